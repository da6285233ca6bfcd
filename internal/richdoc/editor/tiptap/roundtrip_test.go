package tiptap_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/tiptap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(t *testing.T, name string, attrs model.Attrs, content ...*model.Node) *model.Node {
	t.Helper()
	n, err := schema.Node(name, attrs, content...)
	require.NoError(t, err)
	return n
}

func mark(t *testing.T, name string, attrs model.Attrs) *model.Mark {
	t.Helper()
	m, err := schema.Mark(name, attrs)
	require.NoError(t, err)
	return m
}

func TestRoundTrip(t *testing.T) {
	para := func(content ...*model.Node) *model.Node { return node(t, "paragraph", nil, content...) }
	doc := node(t, "doc", nil,
		node(t, "paragraph", model.Attrs{"textAlign": "justify"},
			schema.Text("sized", mark(t, "textStyle", model.Attrs{"fontSize": "18px"})),
			node(t, "hardBreak", nil),
			schema.Text("link", mark(t, "link", model.Attrs{"href": "https://example.com"})),
		),
		node(t, "orderedList", model.Attrs{"start": 5},
			node(t, "listItem", nil, para(schema.Text("item"))),
		),
		node(t, "table", nil, node(t, "tableRow", nil,
			node(t, "tableHeader", model.Attrs{"colwidth": []int{80, 40}, "colspan": 2}, para()),
		)),
		node(t, "embed", model.Attrs{
			"src": "https://www.youtube.com/embed/abc", "provider": "youtube", "id": "abc",
			"width": "640px", "height": "360px",
		}),
		node(t, "video", model.Attrs{"src": "blob:local/1"}),
	)

	data, err := tiptap.Serialize(doc)
	require.NoError(t, err)

	parsed, err := tiptap.ParseJSON(bytes.NewReader(data), schema)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(doc), "json: %s", data)

	again, err := tiptap.Serialize(parsed)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestSerializeShape(t *testing.T) {
	doc := node(t, "doc", nil, node(t, "paragraph", nil, schema.Text("hi", mark(t, "bold", nil))))

	data, err := tiptap.Serialize(doc)
	require.NoError(t, err)

	var raw tiptap.TipTapDocument
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "doc", raw.Type)
	require.Len(t, raw.Content, 1)
	p := raw.Content[0]
	assert.Equal(t, "paragraph", p.Type)
	require.Len(t, p.Content, 1)
	assert.Equal(t, "hi", p.Content[0].Text)
	assert.Equal(t, []tiptap.TipTapMark{{Type: "bold"}}, p.Content[0].Marks)
}
