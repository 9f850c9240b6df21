// Package filter drops non-item text (titles, boilerplate, contacts) from
// raw extraction output. Classification is pure and data-driven: the
// patterns are configuration, so tuning them never touches control flow.
package filter

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/portfolio-labs/extraction-pipeline/constants"
	"github.com/portfolio-labs/extraction-pipeline/internal/model"
)

// Config holds the noise classification rules.
type Config struct {
	MinLength       int
	MaxLength       int
	MaxWords        int
	MaxLowercaseLen int
	// Patterns match boilerplate that is never an item name: document and
	// section titles, company-about language, editorial credits, contact
	// artifacts, page numbers, slogans.
	Patterns []*regexp.Regexp
}

// DefaultPatterns are the tuned boilerplate matchers.
var DefaultPatterns = []*regexp.Regexp{
	// Document/section titles.
	regexp.MustCompile(`(?i)^(catalogo|catalog|listino|brochure|price\s?list|product\s(list|range|catalog)|portfolio|gamma\sprodotti)\b`),
	regexp.MustCompile(`(?i)^(index|indice|sommario|table of contents|contents|introduction|introduzione|premessa|section|sezione|capitolo|chapter)\b`),
	// About-us / company language.
	regexp.MustCompile(`(?i)\b(about us|chi siamo|who we are|our (story|mission|history|team)|la nostra (storia|azienda))\b`),
	// Editorial and design credits.
	regexp.MustCompile(`(?i)\b(all rights reserved|tutti i diritti riservati|copyright|designed by|printed (in|by)|graphic design|stampa)\b`),
	regexp.MustCompile(`©|®\s*$`),
	// URLs, emails, phone numbers.
	regexp.MustCompile(`(?i)https?://|www\.[a-z0-9-]`),
	regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`),
	regexp.MustCompile(`(?i)\b(tel|fax|phone|cell)\.?\s*[:.]?\s*\+?\d`),
	regexp.MustCompile(`\+\d[\d ().\/-]{7,}\d`),
	// Page-number artifacts.
	regexp.MustCompile(`(?i)^(page|pagina|pag\.?)\s*\d+`),
	regexp.MustCompile(`^\d+\s*(/|of|di)\s*\d+$`),
	// Generic slogans.
	regexp.MustCompile(`(?i)\b(quality you can trust|your (trusted )?partner|al vostro servizio|soluzioni per ogni esigenza)\b`),
}

// DefaultConfig returns the tuned noise rules.
func DefaultConfig() Config {
	return Config{
		MinLength:       constants.MinNameLength,
		MaxLength:       constants.MaxNameLength,
		MaxWords:        constants.MaxNameWords,
		MaxLowercaseLen: constants.MaxLowercaseLen,
		Patterns:        DefaultPatterns,
	}
}

// Filter classifies item names as noise.
type Filter struct {
	cfg    Config
	logger *slog.Logger
}

// New builds a Filter, defaulting zero-valued config fields.
func New(cfg Config, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = constants.MinNameLength
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = constants.MaxNameLength
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = constants.MaxNameWords
	}
	if cfg.MaxLowercaseLen <= 0 {
		cfg.MaxLowercaseLen = constants.MaxLowercaseLen
	}
	if cfg.Patterns == nil {
		cfg.Patterns = DefaultPatterns
	}
	return &Filter{cfg: cfg, logger: logger}
}

// IsNoise reports whether name cannot be an item name.
func (f *Filter) IsNoise(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < f.cfg.MinLength || len(name) > f.cfg.MaxLength {
		return true
	}
	if len(strings.Fields(name)) > f.cfg.MaxWords {
		// Likely a sentence or paragraph, not an item name.
		return true
	}
	if len(name) > f.cfg.MaxLowercaseLen && name == strings.ToLower(name) {
		// Long all-lowercase runs read as descriptive prose.
		return true
	}
	for _, p := range f.cfg.Patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// Apply keeps non-noise items and reports the dropped names for
// diagnostics. It never fails.
func (f *Filter) Apply(items []model.RawItem) ([]model.RawItem, []string) {
	kept := make([]model.RawItem, 0, len(items))
	var dropped []string
	for _, it := range items {
		if f.IsNoise(it.Name) {
			dropped = append(dropped, it.Name)
			continue
		}
		kept = append(kept, it)
	}
	if len(dropped) > 0 {
		f.logger.Debug("filter.noise.dropped", "count", len(dropped))
	}
	return kept, dropped
}
