package markup

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/singleflight"
)

var ErrFormatterUnavailable = errors.New("markup formatter is not available")

// Formatter переформатирует исходный текст разметки. Результат должен разбираться
// в тот же документ, что и исходник.
type Formatter interface {
	Format(ctx context.Context, src string) (string, error)
}

// FormatterFunc адаптер функции к Formatter.
type FormatterFunc func(ctx context.Context, src string) (string, error)

func (f FormatterFunc) Format(ctx context.Context, src string) (string, error) {
	return f(ctx, src)
}

// PrettyFormatter печатает блоки с отступами, строчное содержимое блока остается
// на одной строке, если укладывается в PrintWidth.
type PrettyFormatter struct {
	PrintWidth int
	TabWidth   int
	UseTabs    bool
}

func DefaultPrettyFormatter() PrettyFormatter {
	return PrettyFormatter{PrintWidth: 80, TabWidth: 2}
}

var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Blockquote: true, atom.Pre: true, atom.Hr: true,
	atom.Table: true, atom.Thead: true, atom.Tbody: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Div: true, atom.Iframe: true, atom.Video: true, atom.Img: true, atom.Section: true,
}

func (f PrettyFormatter) Format(ctx context.Context, src string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(src), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return "", err
	}
	p := &printer{cfg: f}
	if p.cfg.PrintWidth <= 0 {
		p.cfg.PrintWidth = 80
	}
	if p.cfg.TabWidth <= 0 {
		p.cfg.TabWidth = 2
	}
	if err := p.children(ctx, nodes, 0); err != nil {
		return "", err
	}
	return p.sb.String(), nil
}

type printer struct {
	cfg PrettyFormatter
	sb  strings.Builder
}

func (p *printer) indent(depth int) string {
	if p.cfg.UseTabs {
		return strings.Repeat("\t", depth)
	}
	return strings.Repeat(" ", depth*p.cfg.TabWidth)
}

func (p *printer) line(depth int, s string) {
	p.sb.WriteString(p.indent(depth))
	p.sb.WriteString(s)
	p.sb.WriteByte('\n')
}

// children печатает последовательность узлов: блоки отдельными строками,
// строчные куски между ними одной строкой.
func (p *printer) children(ctx context.Context, nodes []*html.Node, depth int) error {
	var run []*html.Node
	flushRun := func() error {
		defer func() { run = nil }()
		s, err := renderInline(run)
		if err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s != "" {
			p.line(depth, s)
		}
		return nil
	}
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n.Type == html.CommentNode {
			continue
		}
		if !isBlock(n) {
			run = append(run, n)
			continue
		}
		if err := flushRun(); err != nil {
			return err
		}
		if err := p.block(ctx, n, depth); err != nil {
			return err
		}
	}
	return flushRun()
}

func (p *printer) block(ctx context.Context, n *html.Node, depth int) error {
	if n.DataAtom == atom.Pre {
		var sb strings.Builder
		if err := html.Render(&sb, n); err != nil {
			return err
		}
		p.line(depth, sb.String())
		return nil
	}
	open, end := openTag(n), "</"+n.Data+">"
	if isVoid(n) {
		p.line(depth, open)
		return nil
	}

	var kids []*html.Node
	hasBlock := false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		kids = append(kids, c)
		hasBlock = hasBlock || isBlock(c)
	}
	if !hasBlock {
		inner, err := renderInline(kids)
		if err != nil {
			return err
		}
		inner = strings.TrimSpace(inner)
		one := open + inner + end
		if inner == "" || len(p.indent(depth))+len(one) <= p.cfg.PrintWidth {
			p.line(depth, one)
			return nil
		}
		p.line(depth, open)
		p.line(depth+1, inner)
		p.line(depth, end)
		return nil
	}
	p.line(depth, open)
	if err := p.children(ctx, kids, depth+1); err != nil {
		return err
	}
	p.line(depth, end)
	return nil
}

func isBlock(n *html.Node) bool {
	return n.Type == html.ElementNode && blockAtoms[n.DataAtom]
}

func isVoid(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Hr, atom.Img, atom.Br:
		return true
	}
	return false
}

func openTag(n *html.Node) string {
	var sb strings.Builder
	sb.WriteString("<" + n.Data)
	for _, a := range n.Attr {
		sb.WriteString(" " + a.Key + `="` + html.EscapeString(a.Val) + `"`)
	}
	sb.WriteString(">")
	return sb.String()
}

// renderInline строчные узлы одной строкой с пробелами, схлопнутыми до одного.
func renderInline(nodes []*html.Node) (string, error) {
	var sb strings.Builder
	for _, n := range nodes {
		if err := html.Render(&sb, n); err != nil {
			return "", err
		}
	}
	return spaceRegexp.ReplaceAllString(sb.String(), " "), nil
}

// MinifyFormatter сжимает разметку. Закрывающие теги и кавычки сохраняются,
// чтобы результат оставался читаемым для разбора.
type MinifyFormatter struct {
	m *minify.M
}

func NewMinifyFormatter() *MinifyFormatter {
	m := minify.New()
	m.Add("text/html", &minhtml.Minifier{
		KeepEndTags:         true,
		KeepQuotes:          true,
		KeepDocumentTags:    true,
		KeepDefaultAttrVals: true,
	})
	return &MinifyFormatter{m: m}
}

func (f *MinifyFormatter) Format(ctx context.Context, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.m.String("text/html", src)
}

// FormatterFactory создает форматер. Вызывается лениво при первом форматировании.
type FormatterFactory func(ctx context.Context) (Formatter, error)

// FormatterHandle лениво создает форматер не более одного раза. Одновременные первые
// обращения ждут одну инициализацию; неудачная инициализация не запоминается,
// следующее обращение пробует снова.
type FormatterHandle struct {
	factory FormatterFactory
	group   singleflight.Group

	mu        sync.Mutex
	formatter Formatter
}

func NewFormatterHandle(factory FormatterFactory) *FormatterHandle {
	return &FormatterHandle{factory: factory}
}

// StaticFormatter handle уже готового форматера.
func StaticFormatter(f Formatter) *FormatterHandle {
	return &FormatterHandle{formatter: f}
}

// Available есть ли из чего получить форматер.
func (h *FormatterHandle) Available() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.formatter != nil || h.factory != nil
}

func (h *FormatterHandle) Get(ctx context.Context) (Formatter, error) {
	if h == nil {
		return nil, ErrFormatterUnavailable
	}
	h.mu.Lock()
	if h.formatter != nil {
		f := h.formatter
		h.mu.Unlock()
		return f, nil
	}
	factory := h.factory
	h.mu.Unlock()
	if factory == nil {
		return nil, ErrFormatterUnavailable
	}

	v, err, _ := h.group.Do("formatter", func() (any, error) {
		f, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.formatter = f
		h.mu.Unlock()
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Formatter), nil
}

func (h *FormatterHandle) Format(ctx context.Context, src string) (string, error) {
	f, err := h.Get(ctx)
	if err != nil {
		return "", err
	}
	return f.Format(ctx, src)
}
