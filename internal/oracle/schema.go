package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildItemListSchema returns the JSON-Schema (draft 2020-12 subset) for an
// oracle response: an object with an "items" array. Name is the only
// required item field; everything else is optional and must be omitted when
// not observed in the source.
func BuildItemListSchema() map[string]any {
	stringList := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
	itemProps := map[string]any{
		"name":         map[string]any{"type": "string", "minLength": 1},
		"description":  map[string]any{"type": "string"},
		"type":         map[string]any{"type": "string"},
		"status":       map[string]any{"type": "string"},
		"priority":     map[string]any{"type": "string"},
		"budget":       map[string]any{"type": "number"},
		"owner":        map[string]any{"type": "string"},
		"start_date":   map[string]any{"type": "string"},
		"end_date":     map[string]any{"type": "string"},
		"technologies": stringList,
		"stakeholders": stringList,
		"dependencies": stringList,
		"risks":        stringList,
		"kpis":         stringList,
		"raw_data":     map[string]any{"type": "object"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"items"},
		"properties": map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"name"},
					"properties":           itemProps,
				},
			},
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
