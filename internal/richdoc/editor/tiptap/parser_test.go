package tiptap_test

import (
	"strings"
	"testing"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/tiptap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var schema = extensions.Default().MustSchema()

func parse(t *testing.T, src string) *model.Node {
	t.Helper()
	doc, err := tiptap.ParseJSON(strings.NewReader(src), schema)
	require.NoError(t, err)
	return doc
}

func TestParseJSON_Paragraph(t *testing.T) {
	doc := parse(t, `{"type":"doc","content":[{"type":"paragraph","attrs":{"textAlign":"center"},"content":[
		{"type":"text","text":"a"},
		{"type":"text","text":"b","marks":[{"type":"bold"},{"type":"link","attrs":{"href":"https://example.com","rel":"nofollow"}}]}
	]}]}`)

	require.Equal(t, 1, doc.ChildCount())
	p := doc.Child(0)
	assert.Equal(t, "paragraph", p.Type.Name)
	assert.Equal(t, "center", p.Attr("textAlign"))
	require.Equal(t, 2, p.ChildCount())
	assert.Equal(t, "a", p.Child(0).Text)

	b := p.Child(1)
	require.Len(t, b.Marks, 2)
	link := schema.MarkType("link").IsInSet(b.Marks)
	require.NotNil(t, link)
	assert.Equal(t, "https://example.com", link.Attr("href"))
}

func TestParseJSON_Numbers(t *testing.T) {
	doc := parse(t, `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"h"}]},
		{"type":"table","content":[{"type":"tableRow","content":[
			{"type":"tableCell","attrs":{"colwidth":[120],"rowMinHeight":40},"content":[{"type":"paragraph"}]}
		]}]},
		{"type":"embed","attrs":{"src":"https://www.youtube.com/embed/x1","width":640,"height":360}}
	]}`)

	require.Equal(t, 3, doc.ChildCount())
	assert.Equal(t, 2, doc.Child(0).Attr("level"))

	cell := doc.Child(1).Child(0).Child(0)
	assert.Equal(t, []int{120}, cell.Attr("colwidth"))
	assert.Equal(t, "40px", cell.Attr("rowMinHeight"))

	embed := doc.Child(2)
	assert.Equal(t, "640px", embed.Attr("width"))
	assert.Equal(t, "360px", embed.Attr("height"))
}

func TestParseJSON_Lenient(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown node skipped",
			src:  `{"type":"doc","content":[{"type":"spoiler","content":[]},{"type":"paragraph","content":[{"type":"text","text":"x"}]}]}`,
			want: "x",
		},
		{
			name: "unknown mark skipped",
			src:  `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"sparkle"}]}]}]}`,
			want: "x",
		},
		{
			name: "empty text skipped",
			src:  `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":""}]}]}`,
			want: "",
		},
		{
			name: "empty doc filled",
			src:  `{"type":"doc"}`,
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := parse(t, tc.src)
			assert.Equal(t, tc.want, doc.TextContent())
			assert.True(t, doc.Type.ValidContent(doc.Content))
		})
	}
}

func TestParseJSON_CodeBlockMarks(t *testing.T) {
	doc := parse(t, `{"type":"doc","content":[{"type":"codeBlock","attrs":{"language":"go"},"content":[
		{"type":"text","text":"x := 1","marks":[{"type":"bold"}]}
	]}]}`)

	code := doc.Child(0)
	assert.Equal(t, "go", code.Attr("language"))
	assert.Empty(t, code.Child(0).Marks)
}

func TestParseJSON_Errors(t *testing.T) {
	_, err := tiptap.ParseJSON(strings.NewReader(`{"type":"paragraph"}`), schema)
	assert.ErrorIs(t, err, tiptap.ErrNotDocument)

	_, err = tiptap.ParseJSON(strings.NewReader(`{"type":`), schema)
	assert.Error(t, err)
}
