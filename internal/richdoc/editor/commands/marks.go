package commands

import (
	"log/slog"
	"maps"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
)

// cursorMarks метки, которые получит текст, набранный в позиции курсора.
func cursorMarks(s *state.State, rp *model.ResolvedPos) []*model.Mark {
	if s.StoredMarks != nil {
		return s.StoredMarks
	}
	return rp.Marks()
}

// markApplies проверяет, что метка допустима хотя бы в одном textblock диапазона.
func markApplies(doc *model.Node, from, to int, mt *model.MarkType) bool {
	if from == to {
		rp, err := doc.Resolve(from)
		return err == nil && rp.Parent().Type.AllowsMarkType(mt)
	}
	blocks, _ := textblocksIn(doc, from, to)
	for _, b := range blocks {
		if b.Type.AllowsMarkType(mt) {
			return true
		}
	}
	return false
}

// RangeHasMark истинно, если весь текст диапазона несет метку типа mt.
func RangeHasMark(doc *model.Node, from, to int, mt *model.MarkType) bool {
	found, all := false, true
	doc.NodesBetween(from, to, func(node *model.Node, _ int, parent *model.Node, _ int) bool {
		if !all {
			return false
		}
		if node.IsText() && parent.Type.AllowsMarkType(mt) {
			found = true
			if mt.IsInSet(node.Marks) == nil {
				all = false
			}
		}
		return true
	})
	return found && all
}

// ToggleMark снимает метку, если она есть на всем выделении, иначе добавляет ее.
// Для курсора меняются сохраненные метки.
func ToggleMark(name string) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		mt := s.Schema.MarkType(name)
		if mt == nil {
			return noop()
		}
		from, to := s.Selection.From(), s.Selection.To()
		if !markApplies(s.Doc, from, to, mt) {
			return noop()
		}
		tr := s.Tr()
		if s.Selection.Empty() {
			marks := cursorMarks(s, s.Doc.MustResolve(from))
			if mt.IsInSet(marks) != nil {
				tr.SetStoredMarks(mt.RemoveFromSet(marks))
			} else {
				mark, err := mt.Create(nil)
				if err != nil {
					return noop()
				}
				tr.SetStoredMarks(mark.AddToSet(marks))
			}
			return tr, true
		}

		var err error
		if RangeHasMark(s.Doc, from, to, mt) {
			err = tr.RemoveMark(from, to, mt)
		} else {
			var mark *model.Mark
			if mark, err = mt.Create(nil); err == nil {
				err = tr.AddMark(from, to, mark)
			}
		}
		if err != nil {
			return noop()
		}
		return tr, true
	}
}

// SetMarkAttrs объединяет attrs с атрибутами метки name на каждом текстовом узле выделения.
// Остальные атрибуты метки сохраняются. Значение nil удаляет атрибут; если метка становится
// пустой, она снимается.
func SetMarkAttrs(name string, attrs model.Attrs) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		mt := s.Schema.MarkType(name)
		if mt == nil {
			return noop()
		}
		for key := range attrs {
			if !mt.HasAttr(key) {
				slog.Warn("Unknown mark attribute", "mark", name, "attr", key)
				return noop()
			}
		}
		from, to := s.Selection.From(), s.Selection.To()
		if !markApplies(s.Doc, from, to, mt) {
			return noop()
		}

		tr := s.Tr()
		if s.Selection.Empty() {
			marks := cursorMarks(s, s.Doc.MustResolve(from))
			merged := mergeMarkAttrs(mt.IsInSet(marks), attrs)
			if !extensions.MarkValid(name, merged) {
				if mt.IsInSet(marks) == nil {
					return noop()
				}
				tr.SetStoredMarks(mt.RemoveFromSet(marks))
				return tr, true
			}
			mark, err := mt.Create(merged)
			if err != nil {
				return noop()
			}
			tr.SetStoredMarks(mark.AddToSet(marks))
			return tr, true
		}

		var failed bool
		s.Doc.NodesBetween(from, to, func(node *model.Node, pos int, parent *model.Node, _ int) bool {
			if failed {
				return false
			}
			if !node.IsInline() || !parent.Type.AllowsMarkType(mt) {
				return true
			}
			start, end := max(pos, from), min(pos+node.NodeSize(), to)
			existing := mt.IsInSet(node.Marks)
			merged := mergeMarkAttrs(existing, attrs)
			if !extensions.MarkValid(name, merged) {
				if existing != nil {
					failed = tr.RemoveMark(start, end, mt) != nil
				}
				return true
			}
			mark, err := mt.Create(merged)
			if err == nil {
				err = tr.AddMark(start, end, mark)
			}
			failed = err != nil
			return true
		})
		if failed || !tr.DocChanged() || tr.Doc.Equal(s.Doc) {
			return noop()
		}
		return tr, true
	}
}

func mergeMarkAttrs(existing *model.Mark, attrs model.Attrs) model.Attrs {
	merged := model.Attrs{}
	if existing != nil {
		maps.Copy(merged, existing.Attrs)
	}
	maps.Copy(merged, attrs)
	for k, v := range merged {
		if v == nil {
			delete(merged, k)
		}
	}
	return merged
}

// UnsetMarkAttr удаляет один атрибут метки; метка без значимых атрибутов снимается целиком.
func UnsetMarkAttr(name, key string) state.Command {
	return SetMarkAttrs(name, model.Attrs{key: nil})
}

// UnsetMark снимает метку с выделения или из сохраненных меток.
func UnsetMark(name string) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		mt := s.Schema.MarkType(name)
		if mt == nil {
			return noop()
		}
		from, to := s.Selection.From(), s.Selection.To()
		tr := s.Tr()
		if s.Selection.Empty() {
			rp, err := s.Doc.Resolve(from)
			if err != nil {
				return noop()
			}
			marks := cursorMarks(s, rp)
			if mt.IsInSet(marks) == nil {
				return noop()
			}
			tr.SetStoredMarks(mt.RemoveFromSet(marks))
			return tr, true
		}
		if err := tr.RemoveMark(from, to, mt); err != nil || tr.Doc.Equal(s.Doc) {
			return noop()
		}
		return tr, true
	}
}

// SetFontSize задает размер шрифта через метку textStyle. Пустое значение снимает размер.
func SetFontSize(size any) state.Command {
	if s, ok := size.(string); size == nil || (ok && s == "") {
		return UnsetFontSize()
	}
	v := extensions.NormalizeLength(size)
	if v == nil {
		return func(*state.State) (*state.Transaction, bool) { return noop() }
	}
	return SetMarkAttrs("textStyle", model.Attrs{"fontSize": v})
}

// UnsetFontSize снимает размер шрифта, не оставляя пустых атрибутов.
func UnsetFontSize() state.Command {
	return UnsetMarkAttr("textStyle", "fontSize")
}

// SetColor цвет текста; пустая строка снимает цвет.
func SetColor(color string) state.Command {
	if color == "" {
		return UnsetMarkAttr("textStyle", "color")
	}
	v := extensions.NormalizeColor(color)
	if v == nil {
		return func(*state.State) (*state.Transaction, bool) { return noop() }
	}
	return SetMarkAttrs("textStyle", model.Attrs{"color": v})
}

// SetHighlight выделение цветом; без цвета переключает метку.
func SetHighlight(color string) state.Command {
	if color == "" {
		return ToggleMark("highlight")
	}
	v := extensions.NormalizeColor(color)
	if v == nil {
		return func(*state.State) (*state.Transaction, bool) { return noop() }
	}
	return SetMarkAttrs("highlight", model.Attrs{"color": v})
}

// markExtent диапазон соседних inline-узлов вокруг pos, несущих одну и ту же метку типа mt.
func markExtent(doc *model.Node, pos int, mt *model.MarkType) (int, int, *model.Mark, bool) {
	rp, err := doc.Resolve(pos)
	if err != nil {
		return 0, 0, nil, false
	}
	parent := rp.Parent()
	if !parent.Type.InlineContent() {
		return 0, 0, nil, false
	}
	start := rp.Start(rp.Depth)
	rel := pos - start
	offsets := make([]int, len(parent.Content)+1)
	for i, c := range parent.Content {
		offsets[i+1] = offsets[i] + c.NodeSize()
	}
	idx := -1
	for i, c := range parent.Content {
		if mt.IsInSet(c.Marks) == nil || rel < offsets[i] || rel > offsets[i+1] {
			continue
		}
		idx = i
		if rel < offsets[i+1] {
			break
		}
	}
	if idx < 0 {
		return 0, 0, nil, false
	}
	mark := mt.IsInSet(parent.Content[idx].Marks)
	lo, hi := idx, idx
	for lo > 0 && mark.IsInSet(parent.Content[lo-1].Marks) {
		lo--
	}
	for hi+1 < len(parent.Content) && mark.IsInSet(parent.Content[hi+1].Marks) {
		hi++
	}
	return start + offsets[lo], start + offsets[hi+1], mark, true
}

// SetLink ставит ссылку на выделение. Для курсора внутри ссылки меняется ее адрес.
func SetLink(href string) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		mt := s.Schema.MarkType("link")
		v := extensions.NormalizeHref(href)
		if mt == nil || v == nil {
			return noop()
		}
		from, to := s.Selection.From(), s.Selection.To()
		if s.Selection.Empty() {
			var ok bool
			if from, to, _, ok = markExtent(s.Doc, from, mt); !ok {
				return noop()
			}
		}
		if !markApplies(s.Doc, from, to, mt) {
			return noop()
		}
		mark, err := mt.Create(model.Attrs{"href": v})
		if err != nil {
			return noop()
		}
		tr := s.Tr()
		if err := tr.AddMark(from, to, mark); err != nil {
			return noop()
		}
		return tr, true
	}
}

// UnsetLink снимает ссылку с выделения или всю ссылку под курсором.
func UnsetLink() state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		mt := s.Schema.MarkType("link")
		if mt == nil {
			return noop()
		}
		from, to := s.Selection.From(), s.Selection.To()
		if s.Selection.Empty() {
			var ok bool
			if from, to, _, ok = markExtent(s.Doc, from, mt); !ok {
				return noop()
			}
		}
		tr := s.Tr()
		if err := tr.RemoveMark(from, to, mt); err != nil || tr.Doc.Equal(s.Doc) {
			return noop()
		}
		return tr, true
	}
}

// ActiveLink адрес ссылки под курсором или на всем выделении.
func ActiveLink(s *state.State) string {
	mt := s.Schema.MarkType("link")
	if mt == nil {
		return ""
	}
	_, _, mark, ok := markExtent(s.Doc, s.Selection.From(), mt)
	if !ok {
		return ""
	}
	if !s.Selection.Empty() && !RangeHasMark(s.Doc, s.Selection.From(), s.Selection.To(), mt) {
		return ""
	}
	href, _ := mark.Attr("href").(string)
	return href
}
