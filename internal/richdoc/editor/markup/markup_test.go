package markup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	reg    = extensions.Default()
	schema = reg.MustSchema()
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

func para(t *testing.T, content ...*model.Node) *model.Node {
	return node(t, "paragraph", nil, content...)
}

func parse(t *testing.T, markup string) *model.Node {
	t.Helper()
	doc, err := Parse(reg, markup)
	require.NoError(t, err)
	return doc
}

func TestRoundTrip(t *testing.T) {
	cell := func(name string, attrs model.Attrs, text string) *model.Node {
		return node(t, name, attrs, para(t, schema.Text(text)))
	}
	table := node(t, "table", nil,
		node(t, "tableRow", nil,
			cell("tableHeader", model.Attrs{"colwidth": []int{100}}, "h1"),
			cell("tableHeader", nil, "h2"),
		),
		node(t, "tableRow", nil,
			cell("tableCell", model.Attrs{"rowMinHeight": "40px"}, "a"),
			cell("tableCell", model.Attrs{"rowMinHeight": "40px"}, "b"),
		),
	)

	doc := node(t, "doc", nil,
		node(t, "paragraph", model.Attrs{"textAlign": "center"},
			schema.Text("plain "),
			schema.Text("sized", mark(t, "textStyle", model.Attrs{"fontSize": "18px", "color": "#ff0000"})),
			schema.Text(" "),
			schema.Text("link", mark(t, "link", model.Attrs{"href": "https://example.com"}), mark(t, "bold", nil)),
			node(t, "hardBreak", nil),
			schema.Text("marked", mark(t, "highlight", model.Attrs{"color": "#ffff00"})),
		),
		node(t, "heading", model.Attrs{"level": 3, "textAlign": "right"}, schema.Text("Title")),
		node(t, "orderedList", model.Attrs{"start": 3},
			node(t, "listItem", nil, para(t, schema.Text("item"))),
		),
		node(t, "codeBlock", model.Attrs{"language": "go"}, schema.Text("func main() {\n\tx := 1\n}")),
		table,
		node(t, "image", model.Attrs{"src": "/img/a.png", "alt": "alt text", "title": "t", "width": "200px"}),
		node(t, "embed", model.Attrs{
			"src":      "https://www.youtube.com/embed/abcDEF123",
			"provider": "youtube",
			"id":       "abcDEF123",
			"allow":    "autoplay; fullscreen",
			"width":    "640px",
			"height":   "360px",
		}),
		node(t, "embed", model.Attrs{"src": "https://player.vimeo.com/video/123456", "provider": "vimeo", "id": "123456"}),
		node(t, "video", model.Attrs{"src": "https://cdn.example.com/v.mp4", "width": "320px", "height": "180px"}),
		node(t, "horizontalRule", nil),
		node(t, "blockquote", nil, para(t, schema.Text("quote"))),
	)

	out := Render(reg, doc)
	parsed := parse(t, out)
	assert.True(t, parsed.Equal(doc), "markup: %s\nreparsed: %s", out, Render(reg, parsed))
	assert.Equal(t, out, Render(reg, parsed))
}

func TestRenderEmbedShapes(t *testing.T) {
	sized := node(t, "doc", nil, node(t, "embed", model.Attrs{
		"src": "https://www.youtube.com/embed/abcDEF123", "provider": "youtube", "id": "abcDEF123",
		"width": "640px", "height": "360px",
	}))
	assert.Equal(t,
		`<div data-embed="" data-id="abcDEF123" data-provider="youtube" style="width: 640px; height: 360px">`+
			`<iframe src="https://www.youtube.com/embed/abcDEF123" allowfullscreen="" frameborder="0"></iframe></div>`,
		Render(reg, sized))

	responsive := node(t, "doc", nil, node(t, "embed", model.Attrs{"src": "https://www.youtube.com/embed/abcDEF123"}))
	out := Render(reg, responsive)
	assert.Contains(t, out, "data-responsive")
	assert.NotContains(t, out, "style=")
}

func TestParseBareIframe(t *testing.T) {
	doc := parse(t, `<iframe src="https://www.youtube.com/embed/abcDEF123" width="560" height="315" allowfullscreen></iframe>`)
	require.Equal(t, 1, doc.ChildCount())
	embed := doc.Child(0)
	assert.Equal(t, "embed", embed.Type.Name)
	assert.Equal(t, "https://www.youtube.com/embed/abcDEF123", embed.Attr("src"))
	assert.Equal(t, "youtube", embed.Attr("provider"))
	assert.Equal(t, "abcDEF123", embed.Attr("id"))
	assert.Equal(t, "560px", embed.Attr("width"))
	assert.Equal(t, "315px", embed.Attr("height"))

	// фрейм неизвестного хоста сохраняет src, но не получает провайдера
	doc = parse(t, `<iframe src="https://example.com/player/1"></iframe>`)
	embed = doc.Child(0)
	assert.Equal(t, "https://example.com/player/1", embed.Attr("src"))
	assert.Nil(t, embed.Attr("provider"))
}

func TestParseHalfSizeIsResponsive(t *testing.T) {
	doc := parse(t, `<div data-embed style="width: 640px"><iframe src="https://player.vimeo.com/video/123456"></iframe></div>`)
	embed := doc.Child(0)
	assert.Nil(t, embed.Attr("width"))
	assert.Nil(t, embed.Attr("height"))
}

func TestParseCellMinHeight(t *testing.T) {
	doc := parse(t, `<table><tr><td style="min-height: 40px">x</td><td>y</td></tr></table>`)
	row := doc.Child(0).Child(0)
	assert.Equal(t, "40px", row.Child(0).Attr("rowMinHeight"))
	assert.Nil(t, row.Child(1).Attr("rowMinHeight"))
	assert.Equal(t, "paragraph", row.Child(0).Child(0).Type.Name)
	assert.Equal(t, "x", row.Child(0).TextContent())
}

func TestParseDegrades(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   func(t *testing.T) *model.Node
	}{
		{
			name:   "unknown element is transparent",
			markup: `<custom-tag>hello <b>world</b></custom-tag>`,
			want: func(t *testing.T) *model.Node {
				return node(t, "doc", nil, para(t, schema.Text("hello "), schema.Text("world", mark(t, "bold", nil))))
			},
		},
		{
			name:   "divs split paragraphs",
			markup: `<div>one</div><div>two</div>`,
			want: func(t *testing.T) *model.Node {
				return node(t, "doc", nil, para(t, schema.Text("one")), para(t, schema.Text("two")))
			},
		},
		{
			name:   "empty input",
			markup: ``,
			want: func(t *testing.T) *model.Node {
				return node(t, "doc", nil, para(t))
			},
		},
		{
			name:   "whitespace collapses",
			markup: "<p>  a \n\t b  </p>",
			want: func(t *testing.T) *model.Node {
				return node(t, "doc", nil, para(t, schema.Text("a b")))
			},
		},
		{
			name:   "list item text gets a paragraph",
			markup: `<ul><li>one</li></ul>`,
			want: func(t *testing.T) *model.Node {
				return node(t, "doc", nil, node(t, "bulletList", nil, node(t, "listItem", nil, para(t, schema.Text("one")))))
			},
		},
		{
			name:   "image splits paragraph",
			markup: `<p>a<img src="/x.png">b</p>`,
			want: func(t *testing.T) *model.Node {
				return node(t, "doc", nil,
					para(t, schema.Text("a")),
					node(t, "image", model.Attrs{"src": "/x.png"}),
					para(t, schema.Text("b")),
				)
			},
		},
		{
			name:   "script is dropped and link without href is plain text",
			markup: `<p><script>x()</script><a>text</a></p>`,
			want: func(t *testing.T) *model.Node {
				return node(t, "doc", nil, para(t, schema.Text("text")))
			},
		},
		{
			name:   "marks are not allowed in code",
			markup: `<pre><code class="language-js"><b>let</b> a</code></pre>`,
			want: func(t *testing.T) *model.Node {
				return node(t, "doc", nil, node(t, "codeBlock", model.Attrs{"language": "js"}, schema.Text("let a")))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parse(t, tt.markup)
			want := tt.want(t)
			assert.True(t, got.Equal(want), "got %s want %s", Render(reg, got), Render(reg, want))
		})
	}
}

func TestSanitize(t *testing.T) {
	in := `<p onclick="x()">hi<script>alert(1)</script></p>` +
		`<iframe src="https://evil.example/x"></iframe>` +
		`<div data-embed="" data-provider="youtube" style="width: 640px; height: 360px; position: fixed">` +
		`<iframe src="https://www.youtube.com/embed/abcDEF123" allowfullscreen="" frameborder="0"></iframe></div>` +
		`<table><tbody><tr><td style="min-height: 40px">c</td></tr></tbody></table>` +
		`<p><span style="font-size: 18px">big</span></p>`
	out := Sanitize(in)

	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "evil.example")
	assert.NotContains(t, out, "position")
	assert.Contains(t, out, `src="https://www.youtube.com/embed/abcDEF123"`)
	assert.Contains(t, out, "min-height: 40px")
	assert.Contains(t, out, "font-size: 18px")

	doc := parse(t, out)
	var embed *model.Node
	doc.Descendants(func(n *model.Node, _ int, _ *model.Node, _ int) bool {
		if n.Type.Name == "embed" && embed == nil {
			embed = n
		}
		return true
	})
	require.NotNil(t, embed)
	assert.Equal(t, "640px", embed.Attr("width"))
	assert.Equal(t, "360px", embed.Attr("height"))
}

func TestPrettyFormatter(t *testing.T) {
	src := `<ul><li><p>a</p></li></ul><p>b <strong>c</strong></p><hr>`
	out, err := DefaultPrettyFormatter().Format(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "<ul>\n  <li>\n    <p>a</p>\n  </li>\n</ul>\n<p>b <strong>c</strong></p>\n<hr>\n", out)
	assert.True(t, parse(t, out).Equal(parse(t, src)))

	tabs, err := PrettyFormatter{UseTabs: true, PrintWidth: 10}.Format(context.Background(), `<p>long enough text</p>`)
	require.NoError(t, err)
	assert.Equal(t, "<p>\n\tlong enough text\n</p>\n", tabs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = DefaultPrettyFormatter().Format(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMinifyFormatter(t *testing.T) {
	src := "<p>  a   b </p>\n\n<ul>\n  <li><p>c</p></li>\n</ul>"
	out, err := NewMinifyFormatter().Format(context.Background(), src)
	require.NoError(t, err)
	assert.Less(t, len(out), len(src))
	assert.True(t, parse(t, out).Equal(parse(t, src)), out)
}

func TestFormatterHandle(t *testing.T) {
	var calls atomic.Int32
	var fail atomic.Bool
	fail.Store(true)
	h := NewFormatterHandle(func(context.Context) (Formatter, error) {
		calls.Add(1)
		if fail.Load() {
			return nil, errors.New("formatter failed to load")
		}
		return FormatterFunc(func(_ context.Context, src string) (string, error) {
			return strings.ToUpper(src), nil
		}), nil
	})
	assert.True(t, h.Available())

	_, err := h.Format(context.Background(), "<p>a</p>")
	require.Error(t, err)

	fail.Store(false)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.Format(context.Background(), "<p>a</p>")
			assert.NoError(t, err)
			assert.Equal(t, "<P>A</P>", out)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(9))

	before := calls.Load()
	_, err = h.Format(context.Background(), "<p>b</p>")
	require.NoError(t, err)
	assert.Equal(t, before, calls.Load())

	var none *FormatterHandle
	assert.False(t, none.Available())
	_, err = none.Format(context.Background(), "x")
	assert.ErrorIs(t, err, ErrFormatterUnavailable)
}

func TestFormatCache(t *testing.T) {
	s := miniredis.RunT(t)
	cache, err := NewFormatCache("redis://"+s.Addr(), time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	var calls int
	f := cache.Wrap("upper", FormatterFunc(func(_ context.Context, src string) (string, error) {
		calls++
		return strings.ToUpper(src), nil
	}))

	for range 3 {
		out, err := f.Format(context.Background(), "<p>a</p>")
		require.NoError(t, err)
		assert.Equal(t, "<P>A</P>", out)
	}
	assert.Equal(t, 1, calls)
	assert.Len(t, s.Keys(), 1)

	s.FastForward(2 * time.Hour)
	_, err = f.Format(context.Background(), "<p>a</p>")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRenderMarkdown(t *testing.T) {
	doc := node(t, "doc", nil,
		node(t, "heading", model.Attrs{"level": 2}, schema.Text("Title")),
		para(t, schema.Text("some "), schema.Text("bold", mark(t, "bold", nil))),
		node(t, "bulletList", nil,
			node(t, "listItem", nil, para(t, schema.Text("one"))),
			node(t, "listItem", nil, para(t, schema.Text("two"))),
		),
		node(t, "embed", model.Attrs{"src": "https://www.youtube.com/embed/abcDEF123", "provider": "youtube"}),
	)
	var sb strings.Builder
	require.NoError(t, RenderMarkdown(&sb, doc))
	out := sb.String()
	assert.Contains(t, out, "## Title")
	assert.Contains(t, out, "some **bold**")
	assert.Contains(t, out, "- one")
	assert.Contains(t, out, "- two")
	assert.Contains(t, out, "[youtube](https://www.youtube.com/embed/abcDEF123)")
}
