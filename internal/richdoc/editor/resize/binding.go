package resize

import (
	"errors"
	"strconv"
	"sync"
)

var ErrDisposed = errors.New("binding is disposed")

// Presenter отображение узла. Пустые строки означают адаптивный размер.
type Presenter interface {
	Present(width, height string)
}

// Target сторона документа: сохраняет и сбрасывает размер узла в позиции pos.
type Target interface {
	CommitSize(pos int, size Size) bool
	ResetSize(pos int) bool
}

// PresenterFunc адаптер функции к Presenter.
type PresenterFunc func(width, height string)

func (f PresenterFunc) Present(width, height string) {
	f(width, height)
}

// Binding связывает узел документа в позиции pos с машиной перетаскивания.
// Редактор переносит позицию через каждую транзакцию и закрывает привязку при удалении узла.
type Binding struct {
	mu        sync.Mutex
	pos       int
	disposed  bool
	machine   *Machine
	presenter Presenter
	target    Target
}

func Bind(pos int, cfg Config, presenter Presenter, target Target) *Binding {
	return &Binding{
		pos:       pos,
		machine:   NewMachine(cfg),
		presenter: presenter,
		target:    target,
	}
}

func (b *Binding) Pos() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pos
}

// Move переносит привязку в новую позицию узла.
func (b *Binding) Move(pos int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = pos
}

// Sync показывает размер из атрибутов узла, если сейчас не идет перетаскивание.
func (b *Binding) Sync(width, height any) {
	b.mu.Lock()
	if b.disposed || b.machine.Dragging() {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	w, _ := width.(string)
	h, _ := height.(string)
	if w == "" || h == "" {
		w, h = "", ""
	}
	b.presenter.Present(w, h)
}

func (b *Binding) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed = true
}

func (b *Binding) Disposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

func (b *Binding) Dragging() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.machine.Dragging()
}

func (b *Binding) PointerDown(ev PointerEvent) error {
	return b.run(func(m *Machine) Result { return m.PointerDown(ev) })
}

func (b *Binding) PointerMove(ev PointerEvent) error {
	return b.run(func(m *Machine) Result { return m.PointerMove(ev) })
}

func (b *Binding) PointerUp(ev PointerEvent) error {
	return b.run(func(m *Machine) Result { return m.PointerUp(ev) })
}

func (b *Binding) PointerCancel(ev PointerEvent) error {
	return b.run(func(m *Machine) Result { return m.PointerCancel(ev) })
}

func (b *Binding) Blur() error {
	return b.run(func(m *Machine) Result { return m.Blur() })
}

func (b *Binding) DoubleClick() error {
	return b.run(func(m *Machine) Result { return m.DoubleClick() })
}

// run выполняет событие машины под замком привязки, а вызовы презентера и редактора
// делает уже без него.
func (b *Binding) run(event func(*Machine) Result) error {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return ErrDisposed
	}
	res := event(b.machine)
	pos := b.pos
	b.mu.Unlock()

	switch res.Effect {
	case Present:
		b.presenter.Present(px(res.Size.Width), px(res.Size.Height))
	case Restore:
		b.present(res.Size)
	case Commit:
		// документ не принял размер: отображение возвращается к исходному
		if b.target.CommitSize(pos, res.Size) {
			b.presenter.Present(px(res.Size.Width), px(res.Size.Height))
		} else {
			b.present(res.Start)
		}
	case Reset:
		if b.target.ResetSize(pos) {
			b.presenter.Present("", "")
		}
	}
	return nil
}

// present показывает размер; нулевой размер означает адаптивное отображение.
func (b *Binding) present(size Size) {
	if size.Width <= 0 || size.Height <= 0 {
		b.presenter.Present("", "")
		return
	}
	b.presenter.Present(px(size.Width), px(size.Height))
}

func px(v int) string {
	return strconv.Itoa(v) + "px"
}
