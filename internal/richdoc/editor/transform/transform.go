package transform

import (
	"errors"
	"fmt"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
)

// StepError отказ применения шага.
type StepError struct {
	Step   Step
	Reason string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %T failed: %s", e.Step, e.Reason)
}

func IsStepError(err error) bool {
	var se *StepError
	return errors.As(err, &se)
}

// Transform накапливает шаги над документом. Исходный документ не изменяется,
// неудачный шаг не применяется и не записывается.
type Transform struct {
	Doc     *model.Node
	Docs    []*model.Node
	Steps   []Step
	Mapping Mapping
}

func New(doc *model.Node) *Transform {
	return &Transform{Doc: doc}
}

func (tr *Transform) Before() *model.Node {
	if len(tr.Docs) > 0 {
		return tr.Docs[0]
	}
	return tr.Doc
}

func (tr *Transform) DocChanged() bool {
	return len(tr.Steps) > 0
}

func (tr *Transform) Step(step Step) error {
	res := step.Apply(tr.Doc)
	if res.Failed != "" {
		return &StepError{Step: step, Reason: res.Failed}
	}
	tr.Docs = append(tr.Docs, tr.Doc)
	tr.Steps = append(tr.Steps, step)
	tr.Mapping.AppendMap(step.GetMap())
	tr.Doc = res.Doc
	return nil
}

func (tr *Transform) Replace(from, to int, content ...*model.Node) error {
	return tr.Step(&ReplaceStep{From: from, To: to, Content: content})
}

func (tr *Transform) Insert(pos int, content ...*model.Node) error {
	return tr.Replace(pos, pos, content...)
}

func (tr *Transform) Delete(from, to int) error {
	return tr.Replace(from, to)
}

func (tr *Transform) SetNodeAttrs(pos int, attrs model.Attrs) error {
	return tr.Step(&AttrStep{Pos: pos, Attrs: attrs})
}

func (tr *Transform) SetNodeAttr(pos int, key string, value any) error {
	return tr.SetNodeAttrs(pos, model.Attrs{key: value})
}

func (tr *Transform) AddMark(from, to int, mark *model.Mark) error {
	return tr.Step(&AddMarkStep{From: from, To: to, Mark: mark})
}

func (tr *Transform) RemoveMark(from, to int, markType *model.MarkType) error {
	return tr.Step(&RemoveMarkStep{From: from, To: to, MarkType: markType})
}
