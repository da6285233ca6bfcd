package commands

import (
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
)

func isList(n *model.Node) bool {
	return n.Type.Name == "bulletList" || n.Type.Name == "orderedList"
}

// ToggleBulletList оборачивает абзацы выделения в маркированный список.
func ToggleBulletList() state.Command {
	return ToggleList("bulletList")
}

// ToggleOrderedList оборачивает абзацы выделения в нумерованный список.
func ToggleOrderedList() state.Command {
	return ToggleList("orderedList")
}

// ToggleList оборачивает выделенные абзацы в список listName. Внутри списка того же типа
// содержимое поднимается из списка, внутри списка другого типа меняется тип списка.
func ToggleList(listName string) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		listType := s.Schema.NodeType(listName)
		itemType := s.Schema.NodeType("listItem")
		if listType == nil || itemType == nil {
			return noop()
		}
		sel := s.Selection
		rFrom, err := s.Doc.Resolve(sel.From())
		if err != nil {
			return noop()
		}

		if d, ok := rFrom.FindAncestor(isList); ok {
			list := rFrom.Node(d)
			pos := rFrom.Before(d)
			if list.Type == listType {
				return liftList(s, list, pos)
			}
			switched, err := listType.Create(nil, list.Content, nil)
			if err != nil {
				return noop()
			}
			tr := s.Tr()
			if tr.Replace(pos, pos+list.NodeSize(), switched) != nil {
				return noop()
			}
			tr.SetSelection(sameSelection(tr.Doc, sel))
			return tr, true
		}
		return wrapInList(s, listType, itemType)
	}
}

func sameSelection(doc *model.Node, sel state.Selection) state.Selection {
	if ns, ok := sel.(state.NodeSelection); ok {
		if moved, err := state.NewNodeSelection(doc, ns.From()); err == nil {
			return moved
		}
	}
	return state.NewTextSelection(doc, sel.Anchor(), sel.Head())
}

func wrapInList(s *state.State, listType, itemType *model.NodeType) (*state.Transaction, bool) {
	sel := s.Selection
	rFrom, err := s.Doc.Resolve(sel.From())
	if err != nil {
		return noop()
	}
	rTo, err := s.Doc.Resolve(sel.To())
	if err != nil {
		return noop()
	}
	depth := rFrom.SharedDepth(sel.To())
	if rFrom.Node(depth).IsTextblock() {
		depth--
	}
	if depth < 0 {
		return noop()
	}
	parent := rFrom.Node(depth)
	startIdx, endIdx := rFrom.Index(depth), rTo.IndexAfter(depth)
	if startIdx >= endIdx {
		return noop()
	}

	blocks := parent.Content[startIdx:endIdx]
	items := make([]*model.Node, 0, len(blocks))
	for _, b := range blocks {
		if b.Type.Name != "paragraph" {
			return noop()
		}
		item, err := itemType.Create(nil, []*model.Node{b}, nil)
		if err != nil {
			return noop()
		}
		items = append(items, item)
	}
	list, err := listType.Create(nil, items, nil)
	if err != nil {
		return noop()
	}

	start := rFrom.Start(depth)
	for _, c := range parent.Content[:startIdx] {
		start += c.NodeSize()
	}
	end := start + inlineSize(blocks)

	tr := s.Tr()
	if tr.Replace(start, end, list) != nil {
		return noop()
	}
	// Позиция внутри k-го блока сдвигается на открытие списка и k+1 открытий элементов
	// (плюс k закрытий предыдущих элементов).
	shift := func(p int) int {
		off := start
		for k, b := range blocks {
			off += b.NodeSize()
			if p <= off || k == len(blocks)-1 {
				return p + 2*k + 2
			}
		}
		return p
	}
	tr.SetSelection(state.NewTextSelection(tr.Doc, shift(sel.Anchor()), shift(sel.Head())))
	return tr, true
}

// liftList заменяет список содержимым его элементов.
func liftList(s *state.State, list *model.Node, pos int) (*state.Transaction, bool) {
	var content []*model.Node
	for _, item := range list.Content {
		content = append(content, item.Content...)
	}
	tr := s.Tr()
	if tr.Replace(pos, pos+list.NodeSize(), content...) != nil {
		return noop()
	}
	shift := func(p int) int {
		off := pos + 1
		for k, item := range list.Content {
			off += item.NodeSize()
			if p < off || k == len(list.Content)-1 {
				return p - 2*k - 2
			}
		}
		return p
	}
	sel := s.Selection
	tr.SetSelection(state.NewTextSelection(tr.Doc, shift(sel.Anchor()), shift(sel.Head())))
	return tr, true
}
