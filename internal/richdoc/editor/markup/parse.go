// Пакет markup переводит документ в HTML-разметку и обратно.
//
// Разбор снисходителен: неизвестные элементы прозрачны (остается их текст), строчное
// содержимое в блочных контейнерах оборачивается в абзацы, недостающее обязательное
// содержимое дополняется. Вывод детерминирован: один и тот же документ всегда дает
// одну и ту же строку.
package markup

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ignoredTags элементы, содержимое которых никогда не попадает в документ.
var ignoredTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"head":     {},
	"title":    {},
	"meta":     {},
	"link":     {},
	"template": {},
	"noscript": {},
	"object":   {},
	"colgroup": {},
}

// blockTags прозрачные элементы, которые все же разрывают строчное содержимое.
var blockTags = map[string]struct{}{
	"div":     {},
	"section": {},
	"article": {},
	"header":  {},
	"footer":  {},
	"main":    {},
	"aside":   {},
	"nav":     {},
	"figure":  {},
	"dl":      {},
	"dt":      {},
	"dd":      {},
	"address": {},
}

var spaceRegexp = regexp.MustCompile(`[ \t\n\r\f]+`)

type Parser struct {
	reg    *extensions.Registry
	schema *model.Schema
}

func NewParser(reg *extensions.Registry) (*Parser, error) {
	schema, err := reg.Schema()
	if err != nil {
		return nil, err
	}
	return &Parser{reg: reg, schema: schema}, nil
}

// Parse разбирает разметку реестром reg.
func Parse(reg *extensions.Registry, markup string) (*model.Node, error) {
	p, err := NewParser(reg)
	if err != nil {
		return nil, err
	}
	return p.Parse(markup)
}

func (p *Parser) Parse(markup string) (*model.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, err
	}
	top := newContext(p.schema.TopNodeType, nil)
	for _, n := range nodes {
		p.walk(top, n, nil)
	}
	top.flush()
	return p.schema.TopNodeType.CreateAndFill(nil, top.content)
}

// parseContext собираемый узел. Для textblock done накапливает уже законченные части:
// блок внутри абзаца разрезает его на два.
type parseContext struct {
	typ     *model.NodeType
	attrs   model.Attrs
	content []*model.Node
	// pending строчный текст внутри блочного контейнера, ждущий обертки в абзац
	pending []*model.Node
	done    []*model.Node
	// spaceBefore последний добавленный символ пробельный (или начало строки)
	spaceBefore bool
}

func newContext(typ *model.NodeType, attrs model.Attrs) *parseContext {
	return &parseContext{typ: typ, attrs: attrs, spaceBefore: true}
}

func (c *parseContext) inline() bool {
	return c.typ.InlineContent()
}

func (p *Parser) walk(ctx *parseContext, n *html.Node, marks []*model.Mark) {
	switch n.Type {
	case html.TextNode:
		p.addText(ctx, n.Data, marks)
		return
	case html.ElementNode:
	case html.DocumentNode:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			p.walk(ctx, child, marks)
		}
		return
	default:
		return
	}

	if _, ok := ignoredTags[n.Data]; ok {
		return
	}

	el := wrap(n)
	if desc := p.reg.MatchNode(el); desc != nil {
		if nt := p.schema.NodeType(desc.Name); nt != nil {
			p.addElement(ctx, nt, extensions.ParseAttrs(desc.Attributes, el), n, marks)
			return
		}
	}

	for _, md := range p.reg.MatchMarks(el) {
		mt := p.schema.MarkType(md.Name)
		if mt == nil {
			continue
		}
		attrs := extensions.ParseAttrs(md.Attributes, el)
		if !extensions.MarkValid(md.Name, attrs) {
			continue
		}
		m, err := mt.Create(attrs)
		if err != nil {
			slog.Debug("Skip invalid mark", "mark", md.Name, "err", err)
			continue
		}
		marks = m.AddToSet(marks)
	}
	_, block := blockTags[n.Data]
	if block && !ctx.inline() {
		ctx.flush()
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		p.walk(ctx, child, marks)
	}
	if block && !ctx.inline() {
		ctx.flush()
	}
}

func (p *Parser) addElement(ctx *parseContext, nt *model.NodeType, attrs model.Attrs, n *html.Node, marks []*model.Mark) {
	switch {
	case nt.IsInline():
		node, err := nt.Create(attrs, nil, nil)
		if err != nil {
			slog.Debug("Skip invalid inline node", "type", nt.Name, "err", err)
			return
		}
		p.addInline(ctx, node.WithMarks(marks))
		if nt.Name == "hardBreak" {
			ctx.spaceBefore = true
		}
	case nt.IsLeaf():
		node, err := nt.Create(attrs, nil, nil)
		if err != nil {
			slog.Debug("Skip invalid leaf node", "type", nt.Name, "err", err)
			return
		}
		p.addBlocks(ctx, node)
	case nt.Spec.Code:
		var content []*model.Node
		if text := textContent(n); text != "" {
			content = append(content, p.schema.Text(text))
		}
		node, err := nt.CreateAndFill(attrs, content)
		if err != nil {
			slog.Debug("Skip invalid code block", "err", err)
			return
		}
		p.addBlocks(ctx, node)
	default:
		child := newContext(nt, attrs)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			p.walk(child, c, marks)
		}
		p.addBlocks(ctx, p.finish(child)...)
	}
}

func (p *Parser) addText(ctx *parseContext, text string, marks []*model.Mark) {
	text = spaceRegexp.ReplaceAllString(text, " ")
	if !ctx.inline() && strings.TrimSpace(text) == "" && len(ctx.pending) == 0 {
		return
	}
	if ctx.spaceBefore {
		text = strings.TrimPrefix(text, " ")
	}
	if text == "" {
		return
	}
	ctx.spaceBefore = strings.HasSuffix(text, " ")
	p.addInline(ctx, p.schema.Text(text, marks...))
}

func (p *Parser) addInline(ctx *parseContext, node *model.Node) {
	if !ctx.inline() {
		ctx.pending = append(ctx.pending, node)
		return
	}
	var marks []*model.Mark
	for _, m := range node.Marks {
		if ctx.typ.AllowsMarkType(m.Type) {
			marks = append(marks, m)
		}
	}
	ctx.content = append(ctx.content, node.WithMarks(marks))
}

// addBlocks вставляет законченные блоки в контейнер. Не допустимые схемой блоки
// разворачиваются в свое содержимое или отбрасываются.
func (p *Parser) addBlocks(ctx *parseContext, nodes ...*model.Node) {
	for _, node := range nodes {
		if ctx.inline() {
			ctx.flushTextblock()
			ctx.done = append(ctx.done, node)
			continue
		}
		ctx.flush()
		switch {
		case ctx.typ.ContentExpr().Allows(node.Type):
			ctx.content = append(ctx.content, node)
		case node.IsTextblock() && p.allowsParagraph(ctx):
			para, err := p.schema.NodeType("paragraph").Create(nil, node.Content, nil)
			if err != nil {
				slog.Debug("Drop textblock", "type", node.Type.Name, "parent", ctx.typ.Name, "err", err)
				continue
			}
			ctx.content = append(ctx.content, para)
		case !node.IsLeaf() && !node.IsTextblock():
			p.addBlocks(ctx, node.Content...)
		default:
			slog.Debug("Drop node not allowed here", "type", node.Type.Name, "parent", ctx.typ.Name)
		}
	}
}

func (p *Parser) allowsParagraph(ctx *parseContext) bool {
	para := p.schema.NodeType("paragraph")
	return para != nil && ctx.typ.ContentExpr().Allows(para)
}

// flush оборачивает накопленный строчный текст блочного контейнера в абзац.
func (c *parseContext) flush() {
	if len(c.pending) == 0 {
		return
	}
	run := trimRun(c.pending)
	c.pending = nil
	c.spaceBefore = true
	if len(run) == 0 {
		return
	}
	para := c.typ.Schema.NodeType("paragraph")
	if para == nil || !c.typ.ContentExpr().Allows(para) {
		slog.Debug("Drop inline content", "parent", c.typ.Name)
		return
	}
	var content []*model.Node
	for _, n := range run {
		if para.AllowsMarks(n.Marks) {
			content = append(content, n)
		} else {
			content = append(content, n.WithMarks(nil))
		}
	}
	node, err := para.Create(nil, content, nil)
	if err != nil {
		slog.Debug("Drop inline content", "parent", c.typ.Name, "err", err)
		return
	}
	c.content = append(c.content, node)
}

// flushTextblock закрывает текущую часть textblock перед вставленным в него блоком.
func (c *parseContext) flushTextblock() {
	content := trimRun(c.content)
	c.content = nil
	c.spaceBefore = true
	if len(content) == 0 {
		return
	}
	node, err := c.typ.Create(c.attrs, content, nil)
	if err != nil {
		slog.Debug("Drop textblock part", "type", c.typ.Name, "err", err)
		return
	}
	c.done = append(c.done, node)
}

// finish строит узел контекста. Textblock может дать несколько узлов.
func (p *Parser) finish(c *parseContext) []*model.Node {
	if c.inline() {
		if len(c.done) == 0 {
			node, err := c.typ.Create(c.attrs, trimRun(c.content), nil)
			if err != nil {
				slog.Debug("Drop textblock", "type", c.typ.Name, "err", err)
				return nil
			}
			return []*model.Node{node}
		}
		c.flushTextblock()
		return c.done
	}

	c.flush()
	node, err := c.typ.CreateAndFill(c.attrs, c.content)
	if err == nil {
		return []*model.Node{node}
	}
	// содержимое не сложилось под выражение: оставляем его на уровне родителя
	slog.Debug("Unwrap container", "type", c.typ.Name, "err", err)
	return c.content
}

// trimRun убирает пробел в начале и в конце строчного содержимого.
func trimRun(run []*model.Node) []*model.Node {
	run = model.NormalizeInline(run)
	if len(run) == 0 {
		return nil
	}
	if first := run[0]; first.IsText() {
		if text := strings.TrimLeft(first.Text, " "); text != first.Text {
			run = replaceText(run, 0, text)
		}
	}
	if len(run) == 0 {
		return nil
	}
	last := len(run) - 1
	if n := run[last]; n.IsText() {
		if text := strings.TrimRight(n.Text, " "); text != n.Text {
			run = replaceText(run, last, text)
		}
	}
	return run
}

func replaceText(run []*model.Node, i int, text string) []*model.Node {
	out := make([]*model.Node, 0, len(run))
	out = append(out, run[:i]...)
	if text != "" {
		out = append(out, run[i].Type.Schema.Text(text, run[i].Marks...))
	}
	return append(out, run[i+1:]...)
}
