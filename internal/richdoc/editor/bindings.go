package editor

import (
	"github.com/aisa-it/richdoc/internal/richdoc/editor/commands"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/resize"
)

// embedTarget сохраняет размер привязанного узла командами редактора.
type embedTarget struct {
	e *Editor
}

func (t embedTarget) CommitSize(pos int, size resize.Size) bool {
	return t.e.Exec(commands.SetEmbedSize(pos, size.Width, size.Height))
}

func (t embedTarget) ResetSize(pos int) bool {
	return t.e.Exec(commands.ResetEmbedSize(pos))
}

func resizable(n *model.Node) bool {
	return n != nil && n.Type.HasAttr("width") && n.Type.HasAttr("height")
}

func nodeAt(doc *model.Node, pos int) *model.Node {
	if pos < 0 || pos >= doc.ContentSize() {
		return nil
	}
	return doc.NodeAt(pos)
}

// BindEmbed привязывает узел в позиции pos к перетаскиванию размера. Presenter сразу
// получает текущий размер узла и дальше вызывается вне блокировки редактора.
// Привязка следует за узлом при правках и закрывается, когда узел удален.
func (e *Editor) BindEmbed(pos int, presenter resize.Presenter) (*resize.Binding, error) {
	e.mu.Lock()
	defer e.unlock()
	node := nodeAt(e.state.Doc, pos)
	if !resizable(node) {
		return nil, ErrNotResizable
	}
	b := resize.Bind(pos, e.resizeCfg, presenter, embedTarget{e: e})
	e.bindings = append(e.bindings, b)
	width, height := node.Attr("width"), node.Attr("height")
	e.after = append(e.after, func() { b.Sync(width, height) })
	return b, nil
}

// Binding находит живую привязку узла в позиции pos.
func (e *Editor) Binding(pos int) (*resize.Binding, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range e.bindings {
		if b.Pos() == pos && !b.Disposed() {
			return b, true
		}
	}
	return nil, false
}

// mapBindings переносит привязки через изменение документа и показывает новый размер.
// Привязки удаленных или замененных узлов закрываются.
func (e *Editor) mapBindings(mapPos func(pos int) (int, bool)) {
	kept := e.bindings[:0]
	for _, b := range e.bindings {
		if b.Disposed() {
			continue
		}
		pos, ok := mapPos(b.Pos())
		node := nodeAt(e.state.Doc, pos)
		if !ok || !resizable(node) {
			b.Dispose()
			continue
		}
		b.Move(pos)
		width, height := node.Attr("width"), node.Attr("height")
		e.after = append(e.after, func() { b.Sync(width, height) })
		kept = append(kept, b)
	}
	clear(e.bindings[len(kept):])
	e.bindings = kept
}
