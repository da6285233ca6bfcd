package markup

import (
	"bytes"
	"log/slog"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Serializer struct {
	reg *extensions.Registry
}

func NewSerializer(reg *extensions.Registry) *Serializer {
	return &Serializer{reg: reg}
}

// Render выводит содержимое документа (без обертки корневого узла).
func Render(reg *extensions.Registry, doc *model.Node) string {
	return NewSerializer(reg).Render(doc)
}

func (s *Serializer) Render(doc *model.Node) string {
	var buf bytes.Buffer
	for _, child := range doc.Content {
		if err := html.Render(&buf, s.node(child)); err != nil {
			slog.Error("Render markup node", "type", child.Type.Name, "err", err)
		}
	}
	return buf.String()
}

// RenderNode разметка одного узла вместе с содержимым.
func (s *Serializer) RenderNode(n *model.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, s.node(n)); err != nil {
		slog.Error("Render markup node", "type", n.Type.Name, "err", err)
	}
	return buf.String()
}

func (s *Serializer) node(n *model.Node) *html.Node {
	if n.IsText() {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}
	el, hole := build(s.reg.RenderNode(n))
	if hole == nil || n.IsLeaf() {
		return el
	}
	if n.Type.InlineContent() {
		s.inline(hole, n.Content)
		return el
	}
	for _, child := range n.Content {
		hole.AppendChild(s.node(child))
	}
	return el
}

type openMark struct {
	mark *model.Mark
	hole *html.Node
}

// inline выводит строчное содержимое. Метки, общие для соседних узлов, остаются одним
// элементом: открытые метки закрываются только после первого расхождения.
func (s *Serializer) inline(parent *html.Node, content []*model.Node) {
	var stack []openMark
	for _, child := range content {
		keep := 0
		for keep < len(stack) && keep < len(child.Marks) && stack[keep].mark.Eq(child.Marks[keep]) {
			keep++
		}
		stack = stack[:keep]

		cur := parent
		if keep > 0 {
			cur = stack[keep-1].hole
		}
		for _, m := range child.Marks[keep:] {
			el, hole := build(s.reg.RenderMark(m))
			if hole == nil {
				hole = el
			}
			cur.AppendChild(el)
			stack = append(stack, openMark{mark: m, hole: hole})
			cur = hole
		}

		if child.IsText() {
			cur.AppendChild(&html.Node{Type: html.TextNode, Data: child.Text})
		} else {
			cur.AppendChild(s.node(child.WithMarks(nil)))
		}
	}
}

// build строит элементы по описанию и возвращает корень и элемент для содержимого.
func build(spec extensions.DOMSpec) (el, hole *html.Node) {
	el = &html.Node{
		Type:     html.ElementNode,
		Data:     spec.Tag,
		DataAtom: atom.Lookup([]byte(spec.Tag)),
	}
	for _, attr := range spec.Attrs.Pairs() {
		el.Attr = append(el.Attr, html.Attribute{Key: attr[0], Val: attr[1]})
	}
	if spec.Hole {
		hole = el
	}
	for _, childSpec := range spec.Children {
		child, childHole := build(childSpec)
		el.AppendChild(child)
		if hole == nil {
			hole = childHole
		}
	}
	return el, hole
}
