package state

import (
	"fmt"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/transform"
)

// Selection выделение в документе. Всегда лежит в границах документа.
type Selection interface {
	Anchor() int
	Head() int
	From() int
	To() int
	Empty() bool
	Map(doc *model.Node, mapping *transform.Mapping) Selection
	Eq(other Selection) bool
	String() string
}

// TextSelection курсор или диапазон текста. Обе границы указывают внутрь textblock.
type TextSelection struct {
	anchor, head int
}

func (s TextSelection) Anchor() int { return s.anchor }
func (s TextSelection) Head() int   { return s.head }
func (s TextSelection) From() int   { return min(s.anchor, s.head) }
func (s TextSelection) To() int     { return max(s.anchor, s.head) }
func (s TextSelection) Empty() bool { return s.anchor == s.head }

func (s TextSelection) Map(doc *model.Node, mapping *transform.Mapping) Selection {
	return NewTextSelection(doc, mapping.Map(s.anchor, 1), mapping.Map(s.head, 1))
}

func (s TextSelection) Eq(other Selection) bool {
	o, ok := other.(TextSelection)
	return ok && o == s
}

func (s TextSelection) String() string {
	return fmt.Sprintf("text(%d, %d)", s.anchor, s.head)
}

// NodeSelection выделение одного узла (например, встраивания).
type NodeSelection struct {
	pos  int
	node *model.Node
}

func (s NodeSelection) Anchor() int       { return s.pos }
func (s NodeSelection) Head() int         { return s.pos + s.node.NodeSize() }
func (s NodeSelection) From() int         { return s.pos }
func (s NodeSelection) To() int           { return s.pos + s.node.NodeSize() }
func (s NodeSelection) Empty() bool       { return false }
func (s NodeSelection) Node() *model.Node { return s.node }

func (s NodeSelection) Map(doc *model.Node, mapping *transform.Mapping) Selection {
	pos, ok := mapping.MapNode(s.pos)
	if ok {
		if sel, err := NewNodeSelection(doc, pos); err == nil {
			return sel
		}
	}
	return Near(doc, mapping.Map(s.pos, 1), 1)
}

func (s NodeSelection) Eq(other Selection) bool {
	o, ok := other.(NodeSelection)
	return ok && o.pos == s.pos
}

func (s NodeSelection) String() string {
	return fmt.Sprintf("node(%d %s)", s.pos, s.node.Type.Name)
}

// NewNodeSelection выделяет узел, начинающийся в pos.
func NewNodeSelection(doc *model.Node, pos int) (NodeSelection, error) {
	if pos < 0 || pos >= doc.ContentSize() {
		return NodeSelection{}, fmt.Errorf("%w: %d", model.ErrPositionOutOfRange, pos)
	}
	node := doc.NodeAt(pos)
	if node == nil || node.IsText() {
		return NodeSelection{}, fmt.Errorf("no selectable node at %d", pos)
	}
	return NodeSelection{pos: pos, node: node}, nil
}

// NewTextSelection строит текстовое выделение, подтягивая границы к ближайшим допустимым позициям.
func NewTextSelection(doc *model.Node, anchor, head int) Selection {
	size := doc.ContentSize()
	anchor = clamp(anchor, 0, size)
	head = clamp(head, 0, size)
	a, okA := snapText(doc, anchor, 1)
	h, okH := snapText(doc, head, -1)
	if !okA || !okH {
		return Near(doc, anchor, 1)
	}
	return TextSelection{anchor: a, head: h}
}

// Near ищет ближайшую допустимую позицию курсора, предпочитая направление bias.
// Если в документе нет textblock, выделяется ближайший атомарный узел.
func Near(doc *model.Node, pos int, bias int) Selection {
	pos = clamp(pos, 0, doc.ContentSize())
	if p, ok := snapText(doc, pos, bias); ok {
		return TextSelection{anchor: p, head: p}
	}
	best := -1
	doc.Descendants(func(node *model.Node, npos int, _ *model.Node, _ int) bool {
		if node.IsAtom() && node.IsBlock() && (best < 0 || abs(npos-pos) < abs(best-pos)) {
			best = npos
		}
		return !node.IsAtom()
	})
	if best >= 0 {
		if sel, err := NewNodeSelection(doc, best); err == nil {
			return sel
		}
	}
	return TextSelection{}
}

// AtStart курсор в начале документа.
func AtStart(doc *model.Node) Selection {
	return Near(doc, 0, 1)
}

// AtEnd курсор в конце документа.
func AtEnd(doc *model.Node) Selection {
	return Near(doc, doc.ContentSize(), -1)
}

// snapText возвращает pos, если она внутри textblock, иначе ближайшую позицию внутри textblock.
func snapText(doc *model.Node, pos int, bias int) (int, bool) {
	if rp, err := doc.Resolve(pos); err == nil && rp.Parent().Type.InlineContent() {
		return pos, true
	}
	type span struct{ start, end int }
	var spans []span
	doc.Descendants(func(node *model.Node, npos int, _ *model.Node, _ int) bool {
		if node.IsTextblock() {
			spans = append(spans, span{npos + 1, npos + 1 + node.ContentSize()})
			return false
		}
		return true
	})
	if len(spans) == 0 {
		return 0, false
	}
	best, bestDist := -1, 0
	for _, s := range spans {
		candidate := clamp(pos, s.start, s.end)
		dist := abs(candidate - pos)
		preferred := (bias >= 0 && candidate >= pos) || (bias < 0 && candidate <= pos)
		if best < 0 || dist < bestDist || (dist == bestDist && preferred) {
			best, bestDist = candidate, dist
		}
	}
	return best, true
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
