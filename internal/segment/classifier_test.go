package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTabular(t *testing.T) {
	cfg := DefaultClassifierConfig()

	tests := []struct {
		name    string
		text    string
		isTable bool
	}{
		{
			name: "pipe separated rows",
			text: "| Product | Price | Qty |\n| Widget | 9.99 | 3 |\n| Gadget | 4.50 | 7 |\n| Sprocket | 1.25 | 12 |",
			isTable: true,
		},
		{
			name: "tab separated rows",
			text: "Widget\t9.99\t3\nGadget\t4.50\t7\nSprocket\t1.25\t12\nFlange\t3.10\t4",
			isTable: true,
		},
		{
			name: "compressed discount rows",
			text: "FIAT Panda 16%\nFIAT 500e 12%\nJEEP Renegade 25%\nALFA Giulia 18%",
			isTable: true,
		},
		{
			name: "header row with dense body",
			text: "Product  Category  Price\nMacBook Pro  Laptops  2499\niPad Pro  Tablets  1099\nAirPods  Audio  249",
			isTable: true,
		},
		{
			name: "plain prose",
			text: "Our portfolio this year focuses on sustainable growth. We launched three new initiatives in the retail segment. Each of them aims to reduce churn and improve margins over the next two quarters.",
			isTable: false,
		},
		{
			name:    "empty",
			text:    "",
			isTable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text, cfg)
			assert.Equal(t, tt.isTable, got.IsTable)
		})
	}
}

func TestClassifierConfigIsZero(t *testing.T) {
	assert.True(t, ClassifierConfig{}.IsZero())
	assert.False(t, DefaultClassifierConfig().IsZero())
	assert.False(t, ClassifierConfig{StructuredRowRatio: 0.5}.IsZero())
	assert.False(t, ClassifierConfig{HeaderKeywords: []string{"name"}}.IsZero())
}

func TestClassifyRatios(t *testing.T) {
	cfg := DefaultClassifierConfig()

	structured := "a\tb\tc\nd\te\tf\n"
	prose := "just a sentence without separators\n"
	text := strings.Repeat(structured, 3) + strings.Repeat(prose, 4)

	got := Classify(text, cfg)
	assert.InDelta(t, 0.6, got.StructuredRowRatio, 0.01)
	assert.True(t, got.IsTable)
}

func TestClassifyDeterministic(t *testing.T) {
	cfg := DefaultClassifierConfig()
	text := "SKU-1001 Widget 10%\nSKU-1002 Gadget 20%\n"
	first := Classify(text, cfg)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Classify(text, cfg))
	}
}
