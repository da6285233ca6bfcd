package syncstate

import (
	"testing"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/commands"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var schema = commands.DefaultRegistry().MustSchema()

func text(t *testing.T, s string, fontSize string) *model.Node {
	if fontSize == "" {
		return schema.Text(s)
	}
	m, err := schema.Mark("textStyle", model.Attrs{"fontSize": fontSize})
	require.NoError(t, err)
	return schema.Text(s, m)
}

func stateOf(t *testing.T, anchor, head int, blocks ...*model.Node) *state.State {
	doc, err := schema.Node("doc", nil, blocks...)
	require.NoError(t, err)
	return state.New(schema, doc, state.NewTextSelection(doc, anchor, head))
}

func paragraph(t *testing.T, content ...*model.Node) *model.Node {
	n, err := schema.Node("paragraph", nil, content...)
	require.NoError(t, err)
	return n
}

func TestFontSize(t *testing.T) {
	p := paragraph(t, text(t, "aa", "14px"), text(t, "bb", "16px"), text(t, "cc", ""))

	tests := []struct {
		name     string
		from, to int
		wantSize string
	}{
		{"single run", 1, 3, "14px"},
		{"differing sizes", 1, 5, ""},
		{"styled and unstyled", 3, 7, ""},
		{"unstyled only", 5, 7, ""},
		{"cursor inside run", 4, 4, "16px"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := Compute(stateOf(t, tt.from, tt.to, p), Options{})
			assert.Equal(t, tt.wantSize, tb.FontSize)
		})
	}
}

func TestIdempotent(t *testing.T) {
	s := stateOf(t, 1, 3, paragraph(t, text(t, "aa", "14px")))
	assert.Equal(t, Compute(s, Options{CanUndo: true}), Compute(s, Options{CanUndo: true}))
}

func TestRowHeight(t *testing.T) {
	var rows []*model.Node
	for r := range 2 {
		var cells []*model.Node
		for range 2 {
			attrs := model.Attrs{}
			if r == 0 {
				attrs["rowMinHeight"] = "40px"
			}
			cell, err := schema.Node("tableCell", attrs, paragraph(t, schema.Text("x")))
			require.NoError(t, err)
			cells = append(cells, cell)
		}
		row, err := schema.Node("tableRow", nil, cells...)
		require.NoError(t, err)
		rows = append(rows, row)
	}
	table, err := schema.Node("table", nil, rows...)
	require.NoError(t, err)

	// ячейка: 1 + 3 + 1 = 5, строка: 2*5 + 2 = 12
	tb := Compute(stateOf(t, 4, 4, table), Options{})
	assert.True(t, tb.InTable)
	assert.Equal(t, "40px", tb.RowHeight)

	tb = Compute(stateOf(t, 16, 16, table), Options{})
	assert.True(t, tb.InTable)
	assert.Equal(t, "", tb.RowHeight)

	tb = Compute(stateOf(t, 1, 1, paragraph(t, schema.Text("x"))), Options{})
	assert.False(t, tb.InTable)
}

func TestMarkupViewFlags(t *testing.T) {
	s := stateOf(t, 1, 1, paragraph(t))

	tb := Compute(s, Options{IsMarkupView: true, FormatterAvailable: true})
	assert.True(t, tb.CanFormat)
	assert.True(t, tb.CanToggleView)

	tb = Compute(s, Options{IsMarkupView: true, IsFormatting: true, FormatterAvailable: true})
	assert.False(t, tb.CanFormat)
	assert.False(t, tb.CanToggleView)

	tb = Compute(s, Options{IsMarkupView: true})
	assert.False(t, tb.CanFormat)
}

func TestMarksAndBlocks(t *testing.T) {
	bold, err := schema.Mark("bold", nil)
	require.NoError(t, err)
	heading, err := schema.Node("heading", model.Attrs{"level": 1, "textAlign": "center"}, schema.Text("Title", bold))
	require.NoError(t, err)

	tb := Compute(stateOf(t, 1, 6, heading), Options{})
	assert.True(t, tb.Marks["bold"])
	assert.False(t, tb.Marks["italic"])
	assert.Equal(t, "center", tb.TextAlign)
	assert.Equal(t, "heading", tb.BlockType)

	item, err := schema.Node("listItem", nil, paragraph(t, schema.Text("x")))
	require.NoError(t, err)
	list, err := schema.Node("orderedList", nil, item)
	require.NoError(t, err)
	tb = Compute(stateOf(t, 3, 3, list), Options{})
	assert.True(t, tb.OrderedList)
	assert.False(t, tb.BulletList)
}
