package model

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// Node узел документа. Узлы неизменяемы: любые правки создают новые узлы,
// нетронутые поддеревья переиспользуются.
type Node struct {
	Type    *NodeType
	Attrs   Attrs
	Content []*Node
	// Text только для текстовых узлов
	Text  string
	Marks []*Mark
}

func (n *Node) IsText() bool {
	return n.Type.IsText()
}

func (n *Node) IsInline() bool {
	return n.Type.IsInline()
}

func (n *Node) IsBlock() bool {
	return n.Type.IsBlock()
}

func (n *Node) IsTextblock() bool {
	return n.Type.IsTextblock()
}

func (n *Node) IsLeaf() bool {
	return n.Type.IsLeaf()
}

func (n *Node) IsAtom() bool {
	return n.Type.IsAtom()
}

// NodeSize размер узла в позициях: длина текста в рунах, 1 для листа,
// размер содержимого плюс 2 для контейнера.
func (n *Node) NodeSize() int {
	if n.IsText() {
		return utf8.RuneCountInString(n.Text)
	}
	if n.IsLeaf() {
		return 1
	}
	return n.ContentSize() + 2
}

func (n *Node) ContentSize() int {
	size := 0
	for _, child := range n.Content {
		size += child.NodeSize()
	}
	return size
}

func (n *Node) ChildCount() int {
	return len(n.Content)
}

func (n *Node) Child(i int) *Node {
	return n.Content[i]
}

func (n *Node) MaybeChild(i int) *Node {
	if i < 0 || i >= len(n.Content) {
		return nil
	}
	return n.Content[i]
}

func (n *Node) FirstChild() *Node {
	return n.MaybeChild(0)
}

func (n *Node) LastChild() *Node {
	return n.MaybeChild(len(n.Content) - 1)
}

// Attr значение атрибута или его значение по умолчанию.
func (n *Node) Attr(key string) any {
	if v, ok := n.Attrs[key]; ok {
		return v
	}
	if spec, ok := n.Type.Spec.Attrs[key]; ok {
		return spec.Default
	}
	return nil
}

func (n *Node) StringAttr(key string) string {
	s, _ := n.Attr(key).(string)
	return s
}

// Copy новый узел того же типа, атрибутов и меток с другим содержимым. Содержимое не проверяется.
func (n *Node) Copy(content []*Node) *Node {
	return &Node{Type: n.Type, Attrs: n.Attrs, Content: content, Text: n.Text, Marks: n.Marks}
}

// WithAttrs новый узел с заменой указанных атрибутов.
func (n *Node) WithAttrs(attrs Attrs) (*Node, error) {
	merged := make(Attrs, len(n.Attrs)+len(attrs))
	for k, v := range n.Attrs {
		merged[k] = v
	}
	for k, v := range attrs {
		merged[k] = v
	}
	computed, err := n.Type.ComputeAttrs(merged)
	if err != nil {
		return nil, err
	}
	out := n.Copy(n.Content)
	out.Attrs = computed
	return out, nil
}

func (n *Node) WithMarks(marks []*Mark) *Node {
	out := n.Copy(n.Content)
	out.Marks = SortMarks(marks)
	return out
}

func (n *Node) withText(text string) *Node {
	out := n.Copy(nil)
	out.Text = text
	return out
}

// Cut для текстовых узлов отрезает диапазон рун, для прочих узлов возвращает сам узел.
func (n *Node) Cut(from, to int) *Node {
	if !n.IsText() {
		return n
	}
	runes := []rune(n.Text)
	if from <= 0 && to >= len(runes) {
		return n
	}
	from = max(from, 0)
	to = min(to, len(runes))
	return n.withText(string(runes[from:to]))
}

// ReplaceChild новый узел, в котором i-й ребенок заменен.
func (n *Node) ReplaceChild(i int, child *Node) *Node {
	content := slices.Clone(n.Content)
	content[i] = child
	return n.Copy(content)
}

func (n *Node) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	var sb strings.Builder
	for _, child := range n.Content {
		sb.WriteString(child.TextContent())
	}
	return sb.String()
}

// TextBetween текст в диапазоне позиций содержимого. Между блоками вставляется blockSeparator.
func (n *Node) TextBetween(from, to int, blockSeparator string) string {
	var sb strings.Builder
	first := true
	n.NodesBetween(from, to, func(node *Node, pos int, _ *Node, _ int) bool {
		switch {
		case node.IsText():
			start := max(from, pos) - pos
			end := min(to, pos+node.NodeSize()) - pos
			sb.WriteString(node.Cut(start, end).Text)
		case node.IsBlock() && node.Type.InlineContent():
			if !first {
				sb.WriteString(blockSeparator)
			}
			first = false
		case node.IsLeaf() && node.Type.Name == "hardBreak":
			sb.WriteString("\n")
		}
		return true
	})
	return sb.String()
}

func (n *Node) SameMarkup(other *Node) bool {
	return n.Type == other.Type && AttrsEqual(n.Attrs, other.Attrs) && SameMarkSet(n.Marks, other.Marks)
}

// Equal глубокое сравнение узлов.
func (n *Node) Equal(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	if !n.SameMarkup(other) || n.Text != other.Text || len(n.Content) != len(other.Content) {
		return false
	}
	for i, child := range n.Content {
		if !child.Equal(other.Content[i]) {
			return false
		}
	}
	return true
}

// NodesBetween вызывает f для каждого узла, пересекающего диапазон [from, to) содержимого.
// pos абсолютная позиция начала узла. Если f возвращает false, потомки узла не обходятся.
func (n *Node) NodesBetween(from, to int, f func(node *Node, pos int, parent *Node, index int) bool) {
	n.nodesBetween(from, to, f, 0)
}

func (n *Node) nodesBetween(from, to int, f func(*Node, int, *Node, int) bool, nodeStart int) {
	pos := 0
	for i, child := range n.Content {
		if pos >= to {
			break
		}
		end := pos + child.NodeSize()
		if end > from && f(child, nodeStart+pos, n, i) && len(child.Content) > 0 {
			start := pos + 1
			child.nodesBetween(max(0, from-start), min(child.ContentSize(), to-start), f, nodeStart+start)
		}
		pos = end
	}
}

// Descendants обходит все узлы документа.
func (n *Node) Descendants(f func(node *Node, pos int, parent *Node, index int) bool) {
	n.NodesBetween(0, n.ContentSize(), f)
}

// NodeAt узел, начинающийся в позиции pos, или nil.
func (n *Node) NodeAt(pos int) *Node {
	node := n
	for {
		index, offset := node.findIndex(pos)
		child := node.MaybeChild(index)
		if child == nil {
			return nil
		}
		if offset == pos || child.IsText() {
			return child
		}
		node = child
		pos -= offset + 1
	}
}

func (n *Node) findIndex(pos int) (int, int) {
	if pos == 0 {
		return 0, 0
	}
	if pos == n.ContentSize() {
		return len(n.Content), pos
	}
	cur := 0
	for i, child := range n.Content {
		end := cur + child.NodeSize()
		if end >= pos {
			if end == pos {
				return i + 1, end
			}
			return i, cur
		}
		cur = end
	}
	return len(n.Content), cur
}

// NormalizeInline склеивает соседние текстовые узлы с одинаковыми метками и убирает пустые.
func NormalizeInline(content []*Node) []*Node {
	var out []*Node
	for _, child := range content {
		if child == nil || (child.IsText() && child.Text == "") {
			continue
		}
		if len(out) > 0 {
			last := out[len(out)-1]
			if last.IsText() && child.IsText() && SameMarkSet(last.Marks, child.Marks) {
				out[len(out)-1] = last.withText(last.Text + child.Text)
				continue
			}
		}
		out = append(out, child)
	}
	return out
}
