package pipeline

import (
	"regexp"
	"strings"

	"github.com/portfolio-labs/extraction-pipeline/internal/model"
)

// Market-share row: an uppercase brand token, a model name, a trailing
// percentage. "FIAT Panda 16%" yields item "Panda" with brand and
// percentage in raw data.
var reBrandRow = regexp.MustCompile(`^([A-Z][A-Z0-9&.\-]+)\s+(.+?)\s+(\d{1,3}(?:[.,]\d+)?%)$`)

// Name/description pair separated by a dash.
var reNamePair = regexp.MustCompile(`^(.{3,80}?)\s+[—–-]\s+(.{3,})$`)

// ExtractHeuristic scans raw text line by line for item-shaped rows. Last
// resort when oracle extraction produced nothing at all; recall beats
// precision here since the noise filter still runs on its output.
func ExtractHeuristic(text string) []model.RawItem {
	var items []model.RawItem
	seen := make(map[string]struct{})

	add := func(it model.RawItem) {
		key := strings.ToLower(strings.TrimSpace(it.Name))
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		items = append(items, it)
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := reBrandRow.FindStringSubmatch(line); m != nil {
			add(model.RawItem{
				Name: strings.TrimSpace(m[2]),
				RawData: map[string]any{
					"brand":      m[1],
					"percentage": m[3],
				},
			})
			continue
		}
		if m := reNamePair.FindStringSubmatch(line); m != nil {
			add(model.RawItem{
				Name:        strings.TrimSpace(m[1]),
				Description: strings.TrimSpace(m[2]),
			})
		}
	}
	return items
}
