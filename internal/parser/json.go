package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/portfolio-labs/extraction-pipeline/internal/common"
)

// catalogKeys are the wrapper fields searched for the item array.
var catalogKeys = []string{"products", "items", "articles", "entries", "catalog", "data"}

// ParseJSON flattens a JSON catalog to one item per line. A top-level
// array, or an object holding an array under one of the usual catalog
// keys, renders each element as "key: value" fields joined by pipes.
// Anything else passes through as raw text.
func ParseJSON(data []byte) (Document, error) {
	text := sanitize(string(data))
	if text == "" {
		return Document{}, fmt.Errorf("empty json payload: %w", common.ErrInvalidInput)
	}

	var root any
	if err := json.Unmarshal([]byte(text), &root); err != nil {
		return Document{}, fmt.Errorf("parsing json: %w", err)
	}

	arr := findItemArray(root)
	if arr == nil {
		return Document{Text: text}, nil
	}

	columnSignal := false
	var b strings.Builder
	for _, el := range arr {
		line, hasName := renderElement(el)
		if line == "" {
			continue
		}
		columnSignal = columnSignal || hasName
		b.WriteString(line)
		b.WriteByte('\n')
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return Document{}, fmt.Errorf("json catalog has no usable entries: %w", common.ErrInvalidInput)
	}
	return Document{Text: out, TableHint: true, ColumnSignal: columnSignal}, nil
}

func findItemArray(root any) []any {
	switch v := root.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range catalogKeys {
			for k, val := range v {
				if !strings.EqualFold(k, key) {
					continue
				}
				if arr, ok := val.([]any); ok {
					return arr
				}
			}
		}
	}
	return nil
}

// renderElement flattens one catalog entry. Name-ish fields lead the line
// so truncated chunks still carry the identity.
func renderElement(el any) (string, bool) {
	obj, ok := el.(map[string]any)
	if !ok {
		s := strings.TrimSpace(fmt.Sprintf("%v", el))
		return s, false
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, nj := isNameHeader(keys[i]), isNameHeader(keys[j])
		if ni != nj {
			return ni
		}
		return keys[i] < keys[j]
	})

	hasName := false
	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		val := renderValue(obj[k])
		if val == "" {
			continue
		}
		if isNameHeader(k) {
			hasName = true
		}
		fields = append(fields, k+": "+val)
	}
	return strings.Join(fields, " | "), hasName
}

func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, el := range t {
			if s := renderValue(el); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		raw, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(raw)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}
