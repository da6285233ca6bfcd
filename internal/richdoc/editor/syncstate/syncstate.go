// Пакет syncstate вычисляет состояние панели инструментов по состоянию редактора.
// Compute чистая функция: одинаковые входные данные дают одинаковый результат.
package syncstate

import (
	"github.com/aisa-it/richdoc/internal/richdoc/editor/commands"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
)

// Options то, что не выводится из состояния документа.
type Options struct {
	CanUndo            bool
	CanRedo            bool
	IsMarkupView       bool
	IsFormatting       bool
	FormatterAvailable bool
}

type Toolbar struct {
	FontSize  string          `json:"fontSize"`
	Color     string          `json:"color"`
	Highlight string          `json:"highlight"`
	TextAlign string          `json:"textAlign"`
	BlockType string          `json:"blockType"`
	Marks     map[string]bool `json:"marks"`
	Link      string          `json:"link"`

	BulletList  bool `json:"bulletList"`
	OrderedList bool `json:"orderedList"`

	InTable   bool   `json:"inTable"`
	RowHeight string `json:"rowHeight"`

	EmbedSelected bool   `json:"embedSelected"`
	EmbedWidth    string `json:"embedWidth"`
	EmbedHeight   string `json:"embedHeight"`

	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`

	IsMarkupView  bool `json:"isMarkupView"`
	IsFormatting  bool `json:"isFormatting"`
	CanToggleView bool `json:"canToggleView"`
	CanFormat     bool `json:"canFormat"`
}

// toggleMarks метки без атрибутов, состояние которых показывает панель.
var toggleMarks = []string{"bold", "italic", "underline", "strike", "code", "highlight", "link"}

func Compute(s *state.State, opts Options) Toolbar {
	tb := Toolbar{
		Marks:         map[string]bool{},
		CanUndo:       opts.CanUndo,
		CanRedo:       opts.CanRedo,
		IsMarkupView:  opts.IsMarkupView,
		IsFormatting:  opts.IsFormatting,
		CanToggleView: !opts.IsFormatting,
		CanFormat:     opts.IsMarkupView && !opts.IsFormatting && opts.FormatterAvailable,
	}

	for _, name := range toggleMarks {
		if mt := s.Schema.MarkType(name); mt != nil {
			tb.Marks[name] = markActive(s, mt)
		}
	}
	if mt := s.Schema.MarkType("textStyle"); mt != nil {
		tb.FontSize = markAttr(s, mt, "fontSize")
		tb.Color = markAttr(s, mt, "color")
	}
	if mt := s.Schema.MarkType("highlight"); mt != nil {
		tb.Highlight = markAttr(s, mt, "color")
	}
	tb.Link = commands.ActiveLink(s)

	tb.TextAlign, tb.BlockType = blockState(s)
	if rp, err := s.Doc.Resolve(s.Selection.From()); err == nil {
		if d, ok := rp.FindAncestor(func(n *model.Node) bool {
			return n.Type.Name == "bulletList" || n.Type.Name == "orderedList"
		}); ok {
			tb.BulletList = rp.Node(d).Type.Name == "bulletList"
			tb.OrderedList = !tb.BulletList
		}
	}

	tb.InTable = commands.InTable(s)
	tb.RowHeight, _ = commands.RowHeight(s)
	tb.EmbedWidth, tb.EmbedHeight, tb.EmbedSelected = commands.SelectedEmbedSize(s)
	return tb
}

func cursorMarks(s *state.State) []*model.Mark {
	if s.StoredMarks != nil {
		return s.StoredMarks
	}
	rp, err := s.Doc.Resolve(s.Selection.From())
	if err != nil {
		return nil
	}
	return rp.Marks()
}

func markActive(s *state.State, mt *model.MarkType) bool {
	if s.Selection.Empty() {
		return mt.IsInSet(cursorMarks(s)) != nil
	}
	return commands.RangeHasMark(s.Doc, s.Selection.From(), s.Selection.To(), mt)
}

// markAttr значение атрибута метки на выделении. Если текстовые узлы выделения несут разные
// значения (в том числе значение и его отсутствие), результат пустой.
func markAttr(s *state.State, mt *model.MarkType, key string) string {
	if s.Selection.Empty() {
		if m := mt.IsInSet(cursorMarks(s)); m != nil {
			v, _ := m.Attr(key).(string)
			return v
		}
		return ""
	}
	values := map[string]struct{}{}
	s.Doc.NodesBetween(s.Selection.From(), s.Selection.To(), func(node *model.Node, _ int, _ *model.Node, _ int) bool {
		if !node.IsText() {
			return true
		}
		v := ""
		if m := mt.IsInSet(node.Marks); m != nil {
			v, _ = m.Attr(key).(string)
		}
		values[v] = struct{}{}
		return true
	})
	if len(values) != 1 {
		return ""
	}
	for v := range values {
		return v
	}
	return ""
}

// blockState общее выравнивание textblock выделения и тип первого из них.
func blockState(s *state.State) (align, blockType string) {
	first := true
	s.Doc.NodesBetween(s.Selection.From(), s.Selection.To(), func(node *model.Node, _ int, _ *model.Node, _ int) bool {
		if !node.IsTextblock() {
			return true
		}
		a := node.StringAttr("textAlign")
		if first {
			align, blockType, first = a, node.Type.Name, false
		} else if a != align {
			align = ""
		}
		return false
	})
	return align, blockType
}
