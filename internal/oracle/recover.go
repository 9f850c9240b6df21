package oracle

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/portfolio-labs/extraction-pipeline/internal/common"
	"github.com/portfolio-labs/extraction-pipeline/internal/model"
)

type itemEnvelope struct {
	Items []model.RawItem `json:"items"`
}

var (
	reCodeFence    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)
	reUnquotedKey  = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	reNameField    = regexp.MustCompile(`"name"\s*:\s*"((?:[^"\\]|\\.)+)"`)
)

// ParseItems turns a raw oracle response into items. It tries strict
// schema-validated parsing first, then three recovery strategies in order:
// syntax repair and whole-payload reparse, balanced-brace sub-object
// salvage, and finally regex extraction of name fields. Each recovery path
// records a note; exhaustion returns ErrResponseMalformed.
func ParseItems(raw string, logger *slog.Logger) ([]model.RawItem, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	payload := strings.TrimSpace(raw)
	if m := reCodeFence.FindStringSubmatch(payload); m != nil {
		payload = m[1]
	}

	// Strict pass.
	if items, err := decodeStrict(payload); err == nil {
		return items, nil, nil
	}

	// Recovery 1: repair common syntax errors, reparse the whole payload.
	repaired := repairJSON(payload)
	if items, err := decodeStrict(repaired); err == nil {
		logger.Warn("oracle.recover.repaired", "items", len(items))
		return items, []string{"recovered from malformed JSON via syntax repair"}, nil
	}

	// Recovery 2: salvage balanced-brace sub-objects with a valid name.
	if items := scanObjects(repaired); len(items) > 0 {
		logger.Warn("oracle.recover.brace_scan", "items", len(items))
		return items, []string{fmt.Sprintf("salvaged %d items from malformed JSON via brace scan", len(items))}, nil
	}

	// Recovery 3: name-only items from regex matches.
	if items := regexNames(payload); len(items) > 0 {
		logger.Warn("oracle.recover.regex_names", "items", len(items))
		return items, []string{fmt.Sprintf("regex-extracted %d name-only items from malformed response", len(items))}, nil
	}

	logger.Error("oracle.recover.exhausted", "bytes", len(raw))
	return nil, nil, fmt.Errorf("all recovery strategies exhausted: %w", common.ErrResponseMalformed)
}

// decodeStrict validates against the item-list schema and unmarshals. A
// bare top-level array is accepted by wrapping it in the envelope.
func decodeStrict(payload string) ([]model.RawItem, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "[") {
		payload = `{"items":` + payload + `}`
	}
	if err := ValidateJSONAgainstSchema(BuildItemListSchema(), []byte(payload)); err != nil {
		return nil, err
	}
	var env itemEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, err
	}
	return cleanItems(env.Items), nil
}

// repairJSON fixes the malformations models commonly emit: trailing commas
// and unquoted object keys. It also trims any junk outside the outermost
// braces.
func repairJSON(payload string) string {
	start := strings.IndexAny(payload, "{[")
	end := strings.LastIndexAny(payload, "}]")
	if start >= 0 && end > start {
		payload = payload[start : end+1]
	}
	payload = reTrailingComma.ReplaceAllString(payload, "$1")
	payload = reUnquotedKey.ReplaceAllString(payload, `$1"$2":`)
	return payload
}

// scanObjects walks the payload for balanced-brace sub-objects at any
// depth and keeps each one that unmarshals to an item with a usable name.
// Inner objects close before outer ones, so a truncated envelope that
// never closes still yields its completed items. String literals and
// escapes are honored so braces inside values do not break the balance.
func scanObjects(payload string) []model.RawItem {
	type span struct{ start, end int }
	var items []model.RawItem
	var accepted []span
	var stack []int
	inString := false
	escaped := false

	for i := 0; i < len(payload); i++ {
		c := payload[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, i)
		case '}':
			if len(stack) == 0 {
				continue // stray closer
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			// Keep minimal objects: once an inner object was accepted,
			// its enclosing objects only restate it.
			contains := false
			for _, s := range accepted {
				if s.start > start && s.end <= i {
					contains = true
					break
				}
			}
			if contains {
				continue
			}

			var it model.RawItem
			if err := json.Unmarshal([]byte(payload[start:i+1]), &it); err == nil &&
				strings.TrimSpace(it.Name) != "" {
				it.Name = strings.TrimSpace(it.Name)
				items = append(items, it)
				accepted = append(accepted, span{start: start, end: i})
			}
		}
	}
	return items
}

// regexNames is the last resort: every "name": "..." occurrence becomes a
// name-only item.
func regexNames(payload string) []model.RawItem {
	var items []model.RawItem
	for _, m := range reNameField.FindAllStringSubmatch(payload, -1) {
		var name string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &name); err != nil {
			continue
		}
		if strings.TrimSpace(name) == "" {
			continue
		}
		items = append(items, model.RawItem{Name: strings.TrimSpace(name)})
	}
	return items
}

// cleanItems trims names and drops items whose name does not survive the
// trim. Field absence is preserved as-is; nothing is fabricated.
func cleanItems(in []model.RawItem) []model.RawItem {
	out := in[:0]
	for _, it := range in {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}
