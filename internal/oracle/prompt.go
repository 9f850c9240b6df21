package oracle

import (
	"encoding/json"
	"strings"
)

// maxPromptChars caps the chunk text embedded in a prompt. Chunks are sized
// below this by the segmenter; the cap is a guard for direct callers.
const maxPromptChars = 12000

func buildSystemPrompt(req Request) string {
	parts := []string{
		"You are a portfolio analyst. Extract every product, service, or initiative mentioned in the text.",
		"Return ONLY JSON that matches the JSON Schema provided: an object with an 'items' array.",
		"Each item needs a 'name'. Include other fields only when the text states them; never invent values.",
		"Never output null. If a field is not present, omit it.",
		"Put source-specific attributes you cannot map (brand, percentage, code) into 'raw_data'.",
	}
	switch req.Template {
	case TemplateTableRows:
		parts = append(parts,
			"The text is tabular. Extract one item per row, exhaustively; do not skip rows.",
			"When a row starts with a brand or vendor token, set raw_data.brand and keep 'name' as the model/product name.",
			"When a row carries a percentage value, set raw_data.percentage as a number.",
		)
	default:
		parts = append(parts,
			"The text is prose. Extract only concrete named items; ignore narrative framing, titles, and boilerplate.",
		)
	}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		parts = append(parts, "The document language is "+lang+". Keep item names in the original language.")
	}
	if uc := strings.TrimSpace(req.UserContext); uc != "" {
		parts = append(parts, "Business context: "+uc)
	}
	return strings.Join(parts, " ")
}

func buildUserPrompt(req Request) string {
	text := req.Text
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	var b strings.Builder
	b.WriteString("Document text:\n")
	b.WriteString(text)
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
