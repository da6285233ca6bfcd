package editor

import (
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
)

type snapshot struct {
	doc *model.Node
	sel state.Selection
}

// history снимки документа до каждой зафиксированной транзакции. Узлы неизменяемы,
// поэтому снимок это просто ссылка на корень.
type history struct {
	limit int
	undo  []snapshot
	redo  []snapshot
}

func (h *history) record(prev snapshot) {
	if h.limit <= 0 {
		return
	}
	h.undo = append(h.undo, prev)
	if len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
	h.redo = nil
}

func (h *history) canUndo() bool { return len(h.undo) > 0 }

func (h *history) canRedo() bool { return len(h.redo) > 0 }

// back возвращает предыдущий снимок, cur уходит в redo.
func (h *history) back(cur snapshot) (snapshot, bool) {
	if len(h.undo) == 0 {
		return snapshot{}, false
	}
	i := len(h.undo) - 1
	prev := h.undo[i]
	h.undo = h.undo[:i]
	h.redo = append(h.redo, cur)
	return prev, true
}

func (h *history) forward(cur snapshot) (snapshot, bool) {
	if len(h.redo) == 0 {
		return snapshot{}, false
	}
	i := len(h.redo) - 1
	next := h.redo[i]
	h.redo = h.redo[:i]
	if h.limit > 0 {
		h.undo = append(h.undo, cur)
		if len(h.undo) > h.limit {
			h.undo = h.undo[len(h.undo)-h.limit:]
		}
	}
	return next, true
}
