package editor

import (
	"maps"
	"slices"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/syncstate"
)

type Event string

const (
	EventTransaction     Event = "transaction"
	EventUpdate          Event = "update"
	EventSelectionUpdate Event = "selectionUpdate"
	EventToolbar         Event = "toolbar"
	EventWarning         Event = "warning"
)

// EventData содержимое события. Заполнены только поля, относящиеся к событию.
type EventData struct {
	Event       Event
	Transaction *state.Transaction
	State       *state.State
	Toolbar     syncstate.Toolbar
	Warning     error
}

type Listener func(EventData)

// On подписывает слушателя на событие и возвращает функцию отписки.
// Слушатели вызываются вне блокировки редактора и могут обращаться к нему.
func (e *Editor) On(event Event, fn Listener) (off func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextListener++
	id := e.nextListener
	if e.listeners[event] == nil {
		e.listeners[event] = map[int]Listener{}
	}
	e.listeners[event][id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners[event], id)
	}
}

func (e *Editor) queue(data EventData) {
	e.pending = append(e.pending, data)
}

func (e *Editor) warn(err error) {
	e.logger.Warn("Editor warning", "err", err)
	e.queue(EventData{Event: EventWarning, Warning: err})
}

// unlock снимает блокировку и доставляет накопленные события.
func (e *Editor) unlock() {
	pending, after := e.pending, e.after
	e.pending, e.after = nil, nil
	type call struct {
		fns  []Listener
		data EventData
	}
	calls := make([]call, 0, len(pending))
	for _, data := range pending {
		var fns []Listener
		for _, id := range slices.Sorted(maps.Keys(e.listeners[data.Event])) {
			fns = append(fns, e.listeners[data.Event][id])
		}
		calls = append(calls, call{fns: fns, data: data})
	}
	e.mu.Unlock()

	for _, fn := range after {
		fn()
	}
	for _, c := range calls {
		for _, fn := range c.fns {
			fn(c.data)
		}
	}
}
