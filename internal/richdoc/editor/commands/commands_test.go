package commands

import (
	"testing"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/providers"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = DefaultRegistry().MustSchema()

func node(t *testing.T, name string, attrs model.Attrs, content ...*model.Node) *model.Node {
	t.Helper()
	n, err := testSchema.Node(name, attrs, content...)
	require.NoError(t, err)
	return n
}

func para(t *testing.T, text string) *model.Node {
	if text == "" {
		return node(t, "paragraph", nil)
	}
	return node(t, "paragraph", nil, testSchema.Text(text))
}

func newState(t *testing.T, anchor, head int, blocks ...*model.Node) *state.State {
	doc := node(t, "doc", nil, blocks...)
	return state.New(testSchema, doc, state.NewTextSelection(doc, anchor, head))
}

func apply(t *testing.T, s *state.State, cmd state.Command) *state.State {
	t.Helper()
	tr, ok := cmd(s)
	require.True(t, ok, "command must apply")
	return s.Apply(tr)
}

func rejected(t *testing.T, s *state.State, cmd state.Command) {
	t.Helper()
	tr, ok := cmd(s)
	assert.False(t, ok)
	assert.Nil(t, tr)
}

// table3x3 таблица 3x3, в каждой ячейке абзац с одной буквой. Размер строки 17.
func table3x3(t *testing.T) *model.Node {
	var rows []*model.Node
	for range 3 {
		var cells []*model.Node
		for range 3 {
			cells = append(cells, node(t, "tableCell", nil, para(t, "a")))
		}
		rows = append(rows, node(t, "tableRow", nil, cells...))
	}
	return node(t, "table", nil, rows...)
}

func TestSetRowMinHeight(t *testing.T) {
	// начало текста первой ячейки второй строки: 1 + 17 + 1 + 1 + 1
	s := newState(t, 21, 21, table3x3(t))

	s = apply(t, s, SetRowMinHeight("40"))
	table := s.Doc.Child(0)
	for r := range 3 {
		for c := range 3 {
			want := any(nil)
			if r == 1 {
				want = "40px"
			}
			assert.Equal(t, want, table.Child(r).Child(c).Attr("rowMinHeight"), "cell %d:%d", r, c)
		}
	}
	h, ok := RowHeight(s)
	assert.True(t, ok)
	assert.Equal(t, "40px", h)

	rejected(t, s, SetRowMinHeight("tall"))

	tr, ok := SetRowMinHeight("40px")(s)
	require.True(t, ok)
	assert.False(t, tr.DocChanged())

	s = apply(t, s, SetRowMinHeight(""))
	for c := range 3 {
		assert.Nil(t, s.Doc.Child(0).Child(1).Child(c).Attr("rowMinHeight"))
	}

	rejected(t, newState(t, 1, 1, para(t, "x")), SetRowMinHeight(40))
}

func TestInsertEmbed(t *testing.T) {
	src := "https://player.vimeo.com/video/12345"

	t.Run("empty src", func(t *testing.T) {
		rejected(t, newState(t, 1, 1, para(t, "hello")), InsertEmbed(model.Attrs{"src": ""}))
	})

	t.Run("after current block", func(t *testing.T) {
		s := apply(t, newState(t, 1, 1, para(t, "hello")), InsertEmbed(model.Attrs{"src": src}))
		require.Equal(t, 2, s.Doc.ChildCount())
		assert.Equal(t, "embed", s.Doc.Child(1).Type.Name)
		ns, ok := s.Selection.(state.NodeSelection)
		require.True(t, ok)
		assert.Equal(t, 7, ns.From())
	})

	t.Run("replaces empty paragraph", func(t *testing.T) {
		s := apply(t, newState(t, 1, 1, para(t, "")), InsertEmbed(model.Attrs{"src": src}))
		require.Equal(t, 1, s.Doc.ChildCount())
		assert.Equal(t, src, s.Doc.Child(0).Attr("src"))
		assert.Equal(t, 0, s.Selection.From())
	})
}

func TestInsertContentAfterAtom(t *testing.T) {
	s := apply(t, newState(t, 1, 1, para(t, "hello")), InsertEmbed(model.Attrs{"src": "https://player.vimeo.com/video/12345"}))
	_, ok := s.Selection.(state.NodeSelection)
	require.True(t, ok)

	link, err := testSchema.Mark("link", model.Attrs{"href": "https://example.com/file.pdf"})
	require.NoError(t, err)
	s = apply(t, s, InsertContent(testSchema.Text("file", link)))

	require.Equal(t, 3, s.Doc.ChildCount())
	assert.Equal(t, "embed", s.Doc.Child(1).Type.Name)
	assert.Equal(t, "paragraph", s.Doc.Child(2).Type.Name)
	assert.Equal(t, "file", s.Doc.Child(2).TextContent())
	// hello(7) + embed(1) + <p> + file
	assert.Equal(t, 13, s.Selection.From())
	assert.True(t, s.Selection.Empty())
}

func TestEmbedSize(t *testing.T) {
	s := apply(t, newState(t, 1, 1, para(t, "hello")), InsertEmbed(model.Attrs{"src": "https://player.vimeo.com/video/12345"}))

	rejected(t, s, SetEmbedSize(7, 0, 360))
	rejected(t, s, SetEmbedSize(1, 640, 360))
	rejected(t, s, ResetEmbedSize(7))

	s = apply(t, s, SetEmbedSize(7, 640, 360))
	embed := s.Doc.Child(1)
	assert.Equal(t, "640px", embed.Attr("width"))
	assert.Equal(t, "360px", embed.Attr("height"))
	w, h, ok := SelectedEmbedSize(s)
	assert.True(t, ok)
	assert.Equal(t, "640px", w)
	assert.Equal(t, "360px", h)

	s = apply(t, s, ResetEmbedSize(7))
	assert.Nil(t, s.Doc.Child(1).Attr("width"))
	assert.Nil(t, s.Doc.Child(1).Attr("height"))
	rejected(t, s, ResetEmbedSize(7))
}

func TestProviderEmbeds(t *testing.T) {
	n := providers.Default()
	s := newState(t, 1, 1, para(t, ""))

	rejected(t, s, SetEmbed(n, "https://example.com/video/1"))
	rejected(t, s, SetProviderEmbed(n, "vimeo", "https://youtu.be/abcDEF123"))

	s = apply(t, s, SetProviderEmbed(n, "youtube", "https://youtu.be/abcDEF123"))
	embed := s.Doc.Child(0)
	assert.Equal(t, "youtube", embed.Attr("provider"))
	assert.Equal(t, "abcDEF123", embed.Attr("id"))
	assert.Equal(t, "https://www.youtube.com/embed/abcDEF123", embed.Attr("src"))
}

func TestFontSize(t *testing.T) {
	// "hello world": 1..12
	s := newState(t, 1, 6, para(t, "hello world"))
	s = apply(t, s, SetFontSize(14))

	first := s.Doc.Child(0).Child(0)
	assert.Equal(t, "hello", first.Text)
	style := testSchema.MarkType("textStyle").IsInSet(first.Marks)
	require.NotNil(t, style)
	assert.Equal(t, "14px", style.Attr("fontSize"))

	s = apply(t, s, state.Command(func(s *state.State) (*state.Transaction, bool) {
		tr := s.Tr()
		tr.SetSelection(state.NewTextSelection(s.Doc, 1, 12))
		return tr, true
	}))
	s = apply(t, s, SetColor("#FF0000"))
	s = apply(t, s, UnsetFontSize())

	p := s.Doc.Child(0)
	require.Equal(t, 1, p.ChildCount(), "text runs merge once only color remains")
	style = testSchema.MarkType("textStyle").IsInSet(p.Child(0).Marks)
	require.NotNil(t, style)
	assert.Equal(t, "#ff0000", style.Attr("color"))
	assert.Nil(t, style.Attr("fontSize"))

	s = apply(t, s, UnsetMarkAttr("textStyle", "color"))
	assert.Empty(t, s.Doc.Child(0).Child(0).Marks)

	rejected(t, s, SetFontSize("huge"))
}

func TestFontSizeAtCursor(t *testing.T) {
	s := newState(t, 3, 3, para(t, "hello"))
	s = apply(t, s, SetFontSize("18px"))
	require.Len(t, s.StoredMarks, 1)
	assert.Equal(t, "18px", s.StoredMarks[0].Attr("fontSize"))

	s = apply(t, s, InsertText("XY"))
	text := s.Doc.Child(0)
	require.Equal(t, 3, text.ChildCount())
	assert.Equal(t, "XY", text.Child(1).Text)
	assert.Equal(t, 5, s.Selection.From())
	assert.Nil(t, s.StoredMarks)
}

func TestToggleMark(t *testing.T) {
	s := newState(t, 1, 6, para(t, "hello world"))
	bold := testSchema.MarkType("bold")

	s = apply(t, s, ToggleMark("bold"))
	assert.True(t, RangeHasMark(s.Doc, 1, 6, bold))
	assert.False(t, RangeHasMark(s.Doc, 1, 12, bold))

	s = apply(t, s, ToggleMark("bold"))
	assert.False(t, RangeHasMark(s.Doc, 1, 6, bold))

	code := node(t, "codeBlock", nil, testSchema.Text("x := 1"))
	rejected(t, newState(t, 1, 3, code), ToggleMark("bold"))
	rejected(t, newState(t, 1, 3, para(t, "abc")), ToggleMark("missing"))
}

func TestLink(t *testing.T) {
	s := newState(t, 1, 6, para(t, "hello world"))
	rejected(t, s, SetLink("javascript:alert(1)"))

	s = apply(t, s, SetLink("https://example.com"))
	assert.Equal(t, "https://example.com", ActiveLink(s))

	s = apply(t, s, state.Command(func(s *state.State) (*state.Transaction, bool) {
		tr := s.Tr()
		tr.SetSelection(state.NewTextSelection(s.Doc, 3, 3))
		return tr, true
	}))
	assert.Equal(t, "https://example.com", ActiveLink(s))

	s = apply(t, s, UnsetLink())
	assert.False(t, RangeHasMark(s.Doc, 1, 12, testSchema.MarkType("link")))
	assert.Equal(t, "", ActiveLink(s))
	rejected(t, s, UnsetLink())
}

func TestTextAlign(t *testing.T) {
	s := newState(t, 1, 5, para(t, "ab"), node(t, "heading", model.Attrs{"level": 2}, testSchema.Text("cd")))
	rejected(t, s, SetTextAlign("middle"))

	s = apply(t, s, SetTextAlign("center"))
	assert.Equal(t, "center", s.Doc.Child(0).Attr("textAlign"))
	assert.Equal(t, "center", s.Doc.Child(1).Attr("textAlign"))
	rejected(t, s, SetTextAlign("center"))

	s = apply(t, s, UnsetTextAlign())
	assert.Nil(t, s.Doc.Child(0).Attr("textAlign"))
}

func TestToggleList(t *testing.T) {
	// "a" 1..2, "b" 4..5
	s := newState(t, 1, 5, para(t, "a"), para(t, "b"))

	s = apply(t, s, ToggleBulletList())
	list := s.Doc.Child(0)
	assert.Equal(t, "bulletList", list.Type.Name)
	assert.Equal(t, 2, list.ChildCount())
	assert.Equal(t, 3, s.Selection.Anchor())
	assert.Equal(t, 9, s.Selection.Head())

	s = apply(t, s, ToggleOrderedList())
	assert.Equal(t, "orderedList", s.Doc.Child(0).Type.Name)
	assert.Equal(t, 3, s.Selection.Anchor())

	s = apply(t, s, ToggleOrderedList())
	assert.Equal(t, 2, s.Doc.ChildCount())
	assert.Equal(t, "paragraph", s.Doc.Child(0).Type.Name)
	assert.Equal(t, 1, s.Selection.Anchor())
	assert.Equal(t, 5, s.Selection.Head())
}

func TestTables(t *testing.T) {
	s := newState(t, 1, 1, para(t, ""))
	s = apply(t, s, InsertTable(2, 2, true))

	table := s.Doc.Child(0)
	require.Equal(t, "table", table.Type.Name)
	assert.Equal(t, "tableHeader", table.Child(0).Child(0).Type.Name)
	assert.Equal(t, "tableCell", table.Child(1).Child(0).Type.Name)
	assert.Equal(t, 4, s.Selection.From())
	assert.True(t, InTable(s))
	rejected(t, s, InsertTable(2, 2, false))

	s = apply(t, s, AddColumnAfter())
	table = s.Doc.Child(0)
	assert.Equal(t, 3, table.Child(0).ChildCount())
	assert.Equal(t, "tableHeader", table.Child(0).Child(1).Type.Name)
	assert.Equal(t, "tableCell", table.Child(1).Child(1).Type.Name)

	s = apply(t, s, AddRowAfter())
	assert.Equal(t, 3, s.Doc.Child(0).ChildCount())
	assert.Equal(t, 4, s.Selection.From())

	s = apply(t, s, DeleteColumn())
	assert.Equal(t, 2, s.Doc.Child(0).Child(0).ChildCount())

	s = apply(t, s, DeleteRow())
	assert.Equal(t, 2, s.Doc.Child(0).ChildCount())

	s = apply(t, s, DeleteTable())
	require.Equal(t, 1, s.Doc.ChildCount())
	assert.Equal(t, "paragraph", s.Doc.Child(0).Type.Name)
	rejected(t, s, DeleteTable())
}

func TestAddColumnKeepsRowHeight(t *testing.T) {
	s := newState(t, 21, 21, table3x3(t))
	s = apply(t, s, SetRowMinHeight(48))
	s = apply(t, s, AddColumnAfter())

	row := s.Doc.Child(0).Child(1)
	require.Equal(t, 4, row.ChildCount())
	for _, cell := range row.Content {
		assert.Equal(t, "48px", cell.Attr("rowMinHeight"))
	}
	// выделение сдвинулось на одну новую ячейку первой строки
	assert.Equal(t, 25, s.Selection.From())
	h, _ := RowHeight(s)
	assert.Equal(t, "48px", h)
}

func TestDeleteSelection(t *testing.T) {
	// "ab" 1..3, "cd" 5..7
	s := newState(t, 2, 6, para(t, "ab"), para(t, "cd"))
	s = apply(t, s, DeleteSelection())
	require.Equal(t, 1, s.Doc.ChildCount())
	assert.Equal(t, "ad", s.Doc.Child(0).TextContent())
	assert.Equal(t, 2, s.Selection.From())

	rejected(t, s, DeleteSelection())
}

func TestInsertTextWithBreaks(t *testing.T) {
	s := apply(t, newState(t, 1, 1, para(t, "")), InsertText("one\ntwo"))
	p := s.Doc.Child(0)
	require.Equal(t, 3, p.ChildCount())
	assert.Equal(t, "hardBreak", p.Child(1).Type.Name)
	assert.Equal(t, 8, s.Selection.From())

	code := node(t, "codeBlock", nil)
	s = apply(t, newState(t, 1, 1, code), InsertText("a\nb"))
	assert.Equal(t, "a\nb", s.Doc.Child(0).TextContent())
}

func TestSelectAll(t *testing.T) {
	s := apply(t, newState(t, 1, 1, para(t, "ab"), para(t, "cd")), SelectAll())
	assert.Equal(t, 1, s.Selection.From())
	assert.Equal(t, 7, s.Selection.To())
	rejected(t, s, SelectAll())
}

func TestChain(t *testing.T) {
	s := newState(t, 1, 1, para(t, "ab"))
	cmd := Chain(DeleteSelection(), InsertText("x"))
	s = apply(t, s, cmd)
	assert.Equal(t, "xab", s.Doc.Child(0).TextContent())
}

func TestRegistryCommands(t *testing.T) {
	reg := DefaultRegistry()
	assert.Contains(t, reg.Commands("tableCell"), "rowHeight")
	assert.Contains(t, reg.Commands("embed"), "youtube")
	assert.Contains(t, reg.Commands("embed"), "twitch")
	assert.Equal(t, "embed", reg.CommandScope("setEmbedSize"))

	f, err := reg.Command("insertTable")
	require.NoError(t, err)
	_, err = f(extensions.Args{"rows": "three"})
	assert.Error(t, err)

	cmd, err := f(extensions.Args{"rows": 2.0, "cols": 2.0, "withHeaderRow": false})
	require.NoError(t, err)
	s := apply(t, newState(t, 1, 1, para(t, "")), cmd)
	assert.Equal(t, "tableCell", s.Doc.Child(0).Child(0).Child(0).Type.Name)

	f, err = reg.Command("insertEmbed")
	require.NoError(t, err)
	_, err = f(extensions.Args{"src": "x", "onload": "y"})
	assert.Error(t, err)

	f, err = reg.Command("setLink")
	require.NoError(t, err)
	_, err = f(extensions.Args{})
	assert.Error(t, err)
}
