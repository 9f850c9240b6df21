// Package oracle defines the extraction-oracle contract and turns oracle
// responses into validated candidate items. The oracle itself is an opaque,
// possibly slow, possibly malformed-output service.
package oracle

import (
	"context"

	"github.com/portfolio-labs/extraction-pipeline/internal/router"
)

// Template selects the prompt shape sent with a chunk.
type Template string

const (
	// TemplateTableRows asks for row-exhaustive extraction of tabular text.
	TemplateTableRows Template = "table_rows"
	// TemplateFreeText asks for item extraction from prose.
	TemplateFreeText Template = "free_text"
)

// Request is one extraction call.
type Request struct {
	Template    Template
	Text        string
	Tier        router.Tier
	Language    string
	UserContext string
}

// Extractor is the interface the coordinator depends on. Implementations
// must honor ctx deadlines; the returned string is the raw model output,
// parsed and validated by this package's ParseItems.
type Extractor interface {
	Extract(ctx context.Context, req Request) (string, error)
}
