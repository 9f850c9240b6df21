package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-labs/extraction-pipeline/internal/common"
)

func TestParseItemsStrict(t *testing.T) {
	raw := `{"items":[
		{"name":"Widget Pro","description":"flagship widget","budget":1200.5},
		{"name":"Gadget Lite","raw_data":{"brand":"ACME","percentage":12}}
	]}`
	items, notes, err := ParseItems(raw, nil)
	require.NoError(t, err)
	assert.Empty(t, notes)
	require.Len(t, items, 2)
	assert.Equal(t, "Widget Pro", items[0].Name)
	assert.Equal(t, "flagship widget", items[0].Description)
	require.NotNil(t, items[0].Budget)
	assert.Equal(t, 1200.5, *items[0].Budget)
	assert.Equal(t, "ACME", items[1].RawData["brand"])
}

func TestParseItemsBareArray(t *testing.T) {
	items, notes, err := ParseItems(`[{"name":"Solo"}]`, nil)
	require.NoError(t, err)
	assert.Empty(t, notes)
	require.Len(t, items, 1)
	assert.Equal(t, "Solo", items[0].Name)
}

func TestParseItemsCodeFence(t *testing.T) {
	raw := "```json\n{\"items\":[{\"name\":\"Fenced\"}]}\n```"
	items, _, err := ParseItems(raw, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Fenced", items[0].Name)
}

func TestParseItemsRepairsTrailingCommasAndUnquotedKeys(t *testing.T) {
	raw := `{items: [{name: "Repaired One", description: "desc",}, {name: "Repaired Two"},]}`
	items, notes, err := ParseItems(raw, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Repaired One", items[0].Name)
	assert.Equal(t, "Repaired Two", items[1].Name)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "syntax repair")
}

func TestParseItemsBraceScan(t *testing.T) {
	// Truncated payload: the envelope never closes, so repair cannot make
	// the whole payload parse; individual objects are still salvageable.
	raw := `{"items":[{"name":"First","description":"ok"},{"name":"Second"},{"name":"Thi`
	items, notes, err := ParseItems(raw, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "First", items[0].Name)
	assert.Equal(t, "Second", items[1].Name)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "brace scan")
}

func TestParseItemsBraceScanSkipsNamelessObjects(t *testing.T) {
	raw := `{"items":[{"description":"no name here"},{"name":"Named","raw_data":{"k":"v"}}],`
	items, _, err := ParseItems(raw, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Named", items[0].Name)
	assert.Equal(t, "v", items[0].RawData["k"])
}

func TestParseItemsRegexFallback(t *testing.T) {
	raw := `total garbage "name": "Salvaged A" more garbage "name": "Salvaged B" {{{`
	items, notes, err := ParseItems(raw, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Salvaged A", items[0].Name)
	assert.Equal(t, "Salvaged B", items[1].Name)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "name-only")
}

func TestParseItemsExhausted(t *testing.T) {
	_, _, err := ParseItems("no json at all", nil)
	assert.ErrorIs(t, err, common.ErrResponseMalformed)
}

func TestParseItemsDropsBlankNames(t *testing.T) {
	raw := `{"items":[{"name":"  "},{"name":"Kept"}]}`
	items, _, err := ParseItems(raw, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Kept", items[0].Name)
}
