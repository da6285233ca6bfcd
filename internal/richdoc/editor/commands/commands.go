// Пакет commands содержит команды редактора. Команда строит транзакцию по состоянию
// и никогда не меняет само состояние; неприменимая команда возвращает nil, false.
package commands

import (
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
)

// Chain выполняет первую применимую команду.
func Chain(cmds ...state.Command) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		for _, cmd := range cmds {
			if tr, ok := cmd(s); ok {
				return tr, true
			}
		}
		return nil, false
	}
}

func noop() (*state.Transaction, bool) {
	return nil, false
}

// SelectAll выделяет весь документ.
func SelectAll() state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		sel := state.NewTextSelection(s.Doc, 0, s.Doc.ContentSize())
		if sel.Eq(s.Selection) {
			return noop()
		}
		tr := s.Tr()
		tr.SetSelection(sel)
		return tr, true
	}
}

// insertBlocks вставляет блочные узлы после текущего блока. Пустой абзац под курсором
// заменяется вставкой. Если родитель не принимает узлы, пробуются внешние уровни.
// Возвращает позицию первого вставленного узла.
func insertBlocks(s *state.State, nodes ...*model.Node) (*state.Transaction, int, bool) {
	if len(nodes) == 0 {
		return nil, 0, false
	}
	tr := s.Tr()
	sel := s.Selection
	if ns, ok := sel.(state.NodeSelection); ok {
		if tr.Insert(ns.To(), nodes...) == nil {
			return tr, ns.To(), true
		}
	}

	rp, err := s.Doc.Resolve(sel.From())
	if err != nil {
		return nil, 0, false
	}
	if rp.Depth == 0 {
		pos := rp.Pos
		if tr.Insert(pos, nodes...) == nil {
			return tr, pos, true
		}
		return nil, 0, false
	}

	parent := rp.Parent()
	if parent.Type.Name == "paragraph" && parent.ContentSize() == 0 {
		pos := rp.Before(rp.Depth)
		if tr.Replace(pos, rp.After(rp.Depth), nodes...) == nil {
			return tr, pos, true
		}
	}
	for d := rp.Depth; d > 0; d-- {
		pos := rp.After(d)
		if tr.Insert(pos, nodes...) == nil {
			return tr, pos, true
		}
	}
	return nil, 0, false
}

// insertAtom вставляет атомарный блок и выделяет его.
func insertAtom(s *state.State, node *model.Node) (*state.Transaction, bool) {
	tr, pos, ok := insertBlocks(s, node)
	if !ok {
		return noop()
	}
	if sel, err := state.NewNodeSelection(tr.Doc, pos); err == nil {
		tr.SetSelection(sel)
	} else {
		tr.SetSelection(state.Near(tr.Doc, pos, 1))
	}
	return tr, true
}

// textblocksIn textblock-узлы, пересекающие диапазон, вместе с их позициями.
func textblocksIn(doc *model.Node, from, to int) (nodes []*model.Node, positions []int) {
	doc.NodesBetween(from, to, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if node.IsTextblock() {
			nodes = append(nodes, node)
			positions = append(positions, pos)
			return false
		}
		return true
	})
	return nodes, positions
}

func ancestorOfType(rp *model.ResolvedPos, names ...string) (int, bool) {
	return rp.FindAncestor(func(n *model.Node) bool {
		for _, name := range names {
			if n.Type.Name == name {
				return true
			}
		}
		return false
	})
}
