// Пакет state содержит состояние редактора (документ, выделение, сохраненные метки),
// транзакции над ним и тип команды.
package state

import (
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/transform"
)

// Ключи метаданных транзакции
const (
	MetaAddToHistory  = "addToHistory"
	MetaPreventUpdate = "preventUpdate"
	MetaOrigin        = "origin"
)

// State неизменяемый снимок редактора.
type State struct {
	Schema      *model.Schema
	Doc         *model.Node
	Selection   Selection
	StoredMarks []*model.Mark
}

// Command строит транзакцию по состоянию. false означает, что команда неприменима;
// состояние при этом не меняется.
type Command func(s *State) (*Transaction, bool)

func New(schema *model.Schema, doc *model.Node, sel Selection) *State {
	if sel == nil {
		sel = AtStart(doc)
	}
	return &State{Schema: schema, Doc: doc, Selection: sel}
}

// Tr начинает транзакцию от текущего состояния.
func (s *State) Tr() *Transaction {
	return &Transaction{
		Transform: transform.New(s.Doc),
		state:     s,
		selection: s.Selection,
		meta:      map[string]any{},
	}
}

// Apply применяет транзакцию и возвращает новое состояние.
func (s *State) Apply(tr *Transaction) *State {
	next := &State{Schema: s.Schema, Doc: tr.Doc}
	if tr.selectionSet {
		next.Selection = revalidate(tr.Doc, tr.selection)
	} else {
		next.Selection = s.Selection.Map(tr.Doc, &tr.Mapping)
	}
	switch {
	case tr.storedMarksSet:
		next.StoredMarks = tr.storedMarks
	case !tr.DocChanged() && next.Selection.Eq(s.Selection):
		next.StoredMarks = s.StoredMarks
	}
	return next
}

func revalidate(doc *model.Node, sel Selection) Selection {
	switch v := sel.(type) {
	case NodeSelection:
		if ns, err := NewNodeSelection(doc, v.pos); err == nil {
			return ns
		}
		return Near(doc, v.pos, 1)
	default:
		return NewTextSelection(doc, sel.Anchor(), sel.Head())
	}
}

// Transaction шаги над документом вместе с изменениями выделения и метаданными.
type Transaction struct {
	*transform.Transform

	state          *State
	selection      Selection
	selectionSet   bool
	storedMarks    []*model.Mark
	storedMarksSet bool
	meta           map[string]any
}

func (tr *Transaction) StartState() *State {
	return tr.state
}

// Selection текущее выделение транзакции, перенесенное через уже добавленные шаги.
func (tr *Transaction) Selection() Selection {
	if tr.selectionSet || !tr.DocChanged() {
		return tr.selection
	}
	return tr.selection.Map(tr.Doc, &tr.Mapping)
}

func (tr *Transaction) SetSelection(sel Selection) *Transaction {
	tr.selection = sel
	tr.selectionSet = true
	return tr
}

func (tr *Transaction) SelectionSet() bool {
	return tr.selectionSet
}

func (tr *Transaction) SetStoredMarks(marks []*model.Mark) *Transaction {
	tr.storedMarks = marks
	tr.storedMarksSet = true
	return tr
}

func (tr *Transaction) StoredMarksSet() bool {
	return tr.storedMarksSet
}

func (tr *Transaction) StoredMarks() []*model.Mark {
	if tr.storedMarksSet {
		return tr.storedMarks
	}
	return tr.state.StoredMarks
}

func (tr *Transaction) SetMeta(key string, value any) *Transaction {
	tr.meta[key] = value
	return tr
}

func (tr *Transaction) Meta(key string) any {
	return tr.meta[key]
}

// ReplaceSelectionWith заменяет выделение узлами.
func (tr *Transaction) ReplaceSelectionWith(nodes ...*model.Node) error {
	sel := tr.Selection()
	return tr.Replace(sel.From(), sel.To(), nodes...)
}
