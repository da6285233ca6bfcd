package commands

import (
	"strings"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
)

// SetTextAlign выравнивание абзацев и заголовков выделения.
func SetTextAlign(align string) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		v := extensions.NormalizeTextAlign(align)
		if v == nil {
			return noop()
		}
		blocks, positions := textblocksIn(s.Doc, s.Selection.From(), s.Selection.To())
		tr := s.Tr()
		for i, b := range blocks {
			if !b.Type.HasAttr("textAlign") || b.Attr("textAlign") == v {
				continue
			}
			if err := tr.SetNodeAttr(positions[i], "textAlign", v); err != nil {
				return noop()
			}
		}
		if !tr.DocChanged() {
			return noop()
		}
		return tr, true
	}
}

// UnsetTextAlign сбрасывает выравнивание.
func UnsetTextAlign() state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		blocks, positions := textblocksIn(s.Doc, s.Selection.From(), s.Selection.To())
		tr := s.Tr()
		for i, b := range blocks {
			if b.Attr("textAlign") == nil {
				continue
			}
			if err := tr.SetNodeAttr(positions[i], "textAlign", nil); err != nil {
				return noop()
			}
		}
		if !tr.DocChanged() {
			return noop()
		}
		return tr, true
	}
}

// deleteRange удаляет диапазон внутри одного родителя либо между двумя соседними textblock
// одного уровня, склеивая их.
func deleteRange(tr *state.Transaction, from, to int) bool {
	if from == to {
		return true
	}
	if tr.Delete(from, to) == nil {
		return true
	}
	rFrom, err := tr.Doc.Resolve(from)
	if err != nil {
		return false
	}
	rTo, err := tr.Doc.Resolve(to)
	if err != nil {
		return false
	}
	d := rFrom.Depth
	if d == 0 || rTo.Depth != d || !rFrom.Parent().IsTextblock() || !rTo.Parent().IsTextblock() ||
		rFrom.Start(d-1) != rTo.Start(d-1) {
		return false
	}
	head := rFrom.Parent().CutContent(0, rFrom.ParentOffset)
	tail := rTo.Parent().CutContent(rTo.ParentOffset, rTo.Parent().ContentSize())
	joined := head.Copy(model.NormalizeInline(append(head.Content[:len(head.Content):len(head.Content)], tail.Content...)))
	return tr.Replace(rFrom.Before(d), rTo.After(d), joined) == nil
}

// DeleteSelection удаляет выделенный текст или узел.
func DeleteSelection() state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		sel := s.Selection
		if sel.Empty() {
			return noop()
		}
		tr := s.Tr()
		from, to := sel.From(), sel.To()
		if _, ok := sel.(state.NodeSelection); ok {
			if tr.Delete(from, to) != nil {
				para, err := s.Schema.Node("paragraph", nil)
				if err != nil || tr.Replace(from, to, para) != nil {
					return noop()
				}
			}
			tr.SetSelection(state.Near(tr.Doc, from, 1))
			return tr, true
		}
		if !deleteRange(tr, from, to) {
			return noop()
		}
		tr.SetSelection(state.NewTextSelection(tr.Doc, from, from))
		return tr, true
	}
}

// textNodes строит inline-узлы для текста: переводы строк становятся hardBreak,
// в блоке кода остаются символами.
func textNodes(schema *model.Schema, parent *model.NodeType, text string, marks []*model.Mark) []*model.Node {
	var allowed []*model.Mark
	for _, m := range marks {
		if parent.AllowsMarkType(m.Type) {
			allowed = append(allowed, m)
		}
	}
	breakType := schema.NodeType("hardBreak")
	if parent.Spec.Code || breakType == nil || !parent.ContentExpr().Allows(breakType) {
		if parent.Spec.Code {
			return []*model.Node{schema.Text(text)}
		}
		text = strings.ReplaceAll(text, "\n", " ")
		return []*model.Node{schema.Text(text, allowed...)}
	}
	var nodes []*model.Node
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			br, err := breakType.Create(nil, nil, allowed)
			if err == nil {
				nodes = append(nodes, br)
			}
		}
		if line != "" {
			nodes = append(nodes, schema.Text(line, allowed...))
		}
	}
	return nodes
}

func inlineSize(nodes []*model.Node) int {
	size := 0
	for _, n := range nodes {
		size += n.NodeSize()
	}
	return size
}

// InsertText вставляет текст вместо выделения с метками курсора.
func InsertText(text string) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		if text == "" {
			return noop()
		}
		sel := s.Selection
		tr := s.Tr()
		if _, ok := sel.(state.NodeSelection); ok {
			para, err := s.Schema.NodeType("paragraph").Create(nil, textNodes(s.Schema, s.Schema.NodeType("paragraph"), text, nil), nil)
			if err != nil || tr.Replace(sel.From(), sel.To(), para) != nil {
				return noop()
			}
			end := sel.From() + 1 + para.ContentSize()
			tr.SetSelection(state.NewTextSelection(tr.Doc, end, end))
			return tr, true
		}

		from, to := sel.From(), sel.To()
		rp, err := s.Doc.Resolve(from)
		if err != nil || !rp.Parent().Type.InlineContent() {
			return noop()
		}
		marks := cursorMarks(s, rp)
		if !deleteRange(tr, from, to) {
			return noop()
		}
		rp, err = tr.Doc.Resolve(from)
		if err != nil {
			return noop()
		}
		nodes := textNodes(s.Schema, rp.Parent().Type, text, marks)
		if tr.Insert(from, nodes...) != nil {
			return noop()
		}
		end := from + inlineSize(nodes)
		tr.SetSelection(state.NewTextSelection(tr.Doc, end, end))
		return tr, true
	}
}

// InsertContent вставляет узлы: inline-узлы в позицию курсора, блоки после текущего блока.
func InsertContent(nodes ...*model.Node) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		if len(nodes) == 0 {
			return noop()
		}
		inline := true
		for _, n := range nodes {
			inline = inline && n.IsInline()
		}
		if inline {
			sel := s.Selection
			rp, err := s.Doc.Resolve(sel.From())
			if err != nil {
				return noop()
			}
			if !rp.Parent().Type.InlineContent() {
				// выделен атом или весь документ: узлы идут отдельным абзацем после блока
				para, err := s.Schema.NodeType("paragraph").Create(nil, nodes, nil)
				if err != nil {
					return noop()
				}
				tr, pos, ok := insertBlocks(s, para)
				if !ok {
					return noop()
				}
				end := pos + 1 + para.ContentSize()
				tr.SetSelection(state.NewTextSelection(tr.Doc, end, end))
				return tr, true
			}
			tr := s.Tr()
			if !deleteRange(tr, sel.From(), sel.To()) || tr.Insert(sel.From(), nodes...) != nil {
				return noop()
			}
			end := sel.From() + inlineSize(nodes)
			tr.SetSelection(state.NewTextSelection(tr.Doc, end, end))
			return tr, true
		}
		if len(nodes) == 1 && nodes[0].IsAtom() {
			return insertAtom(s, nodes[0])
		}
		tr, pos, ok := insertBlocks(s, nodes...)
		if !ok {
			return noop()
		}
		tr.SetSelection(state.Near(tr.Doc, pos+inlineSize(nodes), -1))
		return tr, true
	}
}

// SetImage вставляет изображение.
func SetImage(src, alt string) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		if strings.TrimSpace(src) == "" {
			return noop()
		}
		attrs := model.Attrs{"src": src}
		if alt != "" {
			attrs["alt"] = alt
		}
		node, err := s.Schema.Node("image", attrs)
		if err != nil {
			return noop()
		}
		return insertAtom(s, node)
	}
}

// SetVideo вставляет видеофайл.
func SetVideo(src string) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		if strings.TrimSpace(src) == "" {
			return noop()
		}
		node, err := s.Schema.Node("video", model.Attrs{"src": src})
		if err != nil {
			return noop()
		}
		return insertAtom(s, node)
	}
}
