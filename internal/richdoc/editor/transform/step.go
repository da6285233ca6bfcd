// Пакет transform реализует атомарные изменения документа (шаги) и их карты позиций.
package transform

import (
	"fmt"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
)

// Step атомарное изменение документа. Позиции шага имеют смысл только для документа,
// для которого шаг создан.
type Step interface {
	Apply(doc *model.Node) StepResult
	GetMap() StepMap
}

// StepResult новый документ либо причина отказа.
type StepResult struct {
	Doc    *model.Node
	Failed string
}

func OK(doc *model.Node) StepResult {
	return StepResult{Doc: doc}
}

func Fail(message string) StepResult {
	return StepResult{Failed: message}
}

// FromReplace результат замены диапазона.
func FromReplace(doc *model.Node, from, to int, content []*model.Node) StepResult {
	replaced, err := doc.Replace(from, to, content)
	if err != nil {
		return Fail(err.Error())
	}
	return OK(replaced)
}

// ReplaceStep заменяет диапазон [From, To) узлами Content.
type ReplaceStep struct {
	From, To int
	Content  []*model.Node
}

func (s *ReplaceStep) Apply(doc *model.Node) StepResult {
	return FromReplace(doc, s.From, s.To, s.Content)
}

func (s *ReplaceStep) GetMap() StepMap {
	size := 0
	for _, n := range s.Content {
		size += n.NodeSize()
	}
	return NewStepMap(s.From, s.To-s.From, size)
}

func (s *ReplaceStep) String() string {
	return fmt.Sprintf("replace(%d, %d, %d nodes)", s.From, s.To, len(s.Content))
}

// AttrStep меняет атрибуты узла в позиции Pos. Остальные атрибуты сохраняются.
type AttrStep struct {
	Pos   int
	Attrs model.Attrs
}

func (s *AttrStep) Apply(doc *model.Node) StepResult {
	node := doc.NodeAt(s.Pos)
	if node == nil || node.IsText() {
		return Fail(fmt.Sprintf("no node at position %d", s.Pos))
	}
	updated, err := node.WithAttrs(s.Attrs)
	if err != nil {
		return Fail(err.Error())
	}
	out, err := doc.ReplaceNodeAt(s.Pos, updated)
	if err != nil {
		return Fail(err.Error())
	}
	return OK(out)
}

func (s *AttrStep) GetMap() StepMap {
	return EmptyMap
}

func (s *AttrStep) String() string {
	return fmt.Sprintf("attrs(%d, %v)", s.Pos, s.Attrs)
}

// AddMarkStep добавляет метку всему inline-содержимому диапазона, где метка допустима.
type AddMarkStep struct {
	From, To int
	Mark     *model.Mark
}

func (s *AddMarkStep) Apply(doc *model.Node) StepResult {
	if s.From < 0 || s.To > doc.ContentSize() || s.From > s.To {
		return Fail(fmt.Sprintf("mark range %d-%d out of document", s.From, s.To))
	}
	out := doc.MapInline(s.From, s.To, func(child, parent *model.Node) *model.Node {
		if !parent.Type.AllowsMarkType(s.Mark.Type) {
			return child
		}
		return child.WithMarks(s.Mark.AddToSet(child.Marks))
	})
	return OK(out)
}

func (s *AddMarkStep) GetMap() StepMap {
	return EmptyMap
}

// RemoveMarkStep снимает метки типа MarkType в диапазоне.
type RemoveMarkStep struct {
	From, To int
	MarkType *model.MarkType
}

func (s *RemoveMarkStep) Apply(doc *model.Node) StepResult {
	if s.From < 0 || s.To > doc.ContentSize() || s.From > s.To {
		return Fail(fmt.Sprintf("mark range %d-%d out of document", s.From, s.To))
	}
	out := doc.MapInline(s.From, s.To, func(child, _ *model.Node) *model.Node {
		if s.MarkType.IsInSet(child.Marks) == nil {
			return child
		}
		return child.WithMarks(s.MarkType.RemoveFromSet(child.Marks))
	})
	return OK(out)
}

func (s *RemoveMarkStep) GetMap() StepMap {
	return EmptyMap
}
