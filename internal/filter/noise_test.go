package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/portfolio-labs/extraction-pipeline/internal/model"
)

func TestIsNoise(t *testing.T) {
	f := New(Config{}, nil)

	tests := []struct {
		name  string
		noise bool
	}{
		{"CATALOGO PRODOTTI", true},
		{"Detergente Pavimenti pH Neutro", false},
		{"", true},
		{"ab", true},
		{strings.Repeat("x", 301), true},
		{"About Us and Our Story", true},
		{"Chi Siamo", true},
		{"www.example.com", true},
		{"info@example.com", true},
		{"Tel: +39 02 1234567", true},
		{"Page 12", true},
		{"Pagina 3", true},
		{"12 / 48", true},
		{"All Rights Reserved 2026", true},
		{"Designed by Studio Grafico", true},
		{"this is a long all lowercase descriptive fragment of text", true},
		{"the product reduces total operating costs across the whole fleet by fifteen percent annually it seems", true},
		{"MacBook Pro 16", false},
		{"Cloud SQL", false},
		{"Servizio Manutenzione Preventiva", false},
		{"FIAT Panda", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.noise, f.IsNoise(tt.name), "name %q", tt.name)
		})
	}
}

func TestApplyReportsDropped(t *testing.T) {
	f := New(Config{}, nil)
	items := []model.RawItem{
		{Name: "CATALOGO PRODOTTI"},
		{Name: "Detergente Pavimenti pH Neutro"},
		{Name: "Page 3"},
		{Name: "Lavatrice Industriale X200"},
	}
	kept, dropped := f.Apply(items)
	assert.Len(t, kept, 2)
	assert.Equal(t, []string{"CATALOGO PRODOTTI", "Page 3"}, dropped)
	assert.Equal(t, "Detergente Pavimenti pH Neutro", kept[0].Name)
}

func TestApplyNeverFailsOnEmptyInput(t *testing.T) {
	f := New(Config{}, nil)
	kept, dropped := f.Apply(nil)
	assert.Empty(t, kept)
	assert.Empty(t, dropped)
}
