package model

import (
	"fmt"
	"slices"
)

// Replace заменяет диапазон [from, to) содержимого документа узлами content.
// Обе границы должны лежать в одном родителе; результат проверяется схемой.
func (n *Node) Replace(from, to int, content []*Node) (*Node, error) {
	if from > to {
		return nil, fmt.Errorf("%w: from %d > to %d", ErrPositionOutOfRange, from, to)
	}
	rFrom, err := n.Resolve(from)
	if err != nil {
		return nil, err
	}
	rTo, err := n.Resolve(to)
	if err != nil {
		return nil, err
	}
	depth := rFrom.Depth
	if rTo.Depth != depth || rFrom.Start(depth) != rTo.Start(depth) {
		return nil, ErrCrossParentReplace
	}

	parent := rFrom.Parent()
	var children []*Node
	if parent.Type.InlineContent() {
		start := rFrom.Start(depth)
		children = append(children, cutInline(parent.Content, 0, from-start)...)
		children = append(children, content...)
		children = append(children, cutInline(parent.Content, to-start, parent.ContentSize())...)
		children = NormalizeInline(children)
	} else {
		children = append(children, parent.Content[:rFrom.Index(depth)]...)
		children = append(children, content...)
		children = append(children, parent.Content[rTo.Index(depth):]...)
	}
	if !parent.Type.ValidContent(children) {
		return nil, &SchemaViolation{Type: parent.Type.Name, Reason: "invalid content: " + describeContent(children)}
	}
	return rFrom.replaceAncestors(depth, parent.Copy(children)), nil
}

// ReplaceNodeAt заменяет узел, начинающийся в позиции pos.
func (n *Node) ReplaceNodeAt(pos int, node *Node) (*Node, error) {
	rp, err := n.Resolve(pos)
	if err != nil {
		return nil, err
	}
	if rp.TextOffset() != 0 || rp.NodeAfter() == nil {
		return nil, fmt.Errorf("no node at position %d", pos)
	}
	parent := rp.Parent()
	children := slices.Clone(parent.Content)
	children[rp.Index(rp.Depth)] = node
	if !parent.Type.ValidContent(children) {
		return nil, &SchemaViolation{Type: parent.Type.Name, Reason: "invalid content: " + describeContent(children)}
	}
	return rp.replaceAncestors(rp.Depth, parent.Copy(children)), nil
}

func (r *ResolvedPos) replaceAncestors(depth int, node *Node) *Node {
	for d := depth - 1; d >= 0; d-- {
		node = r.Node(d).ReplaceChild(r.Index(d), node)
	}
	return node
}

// cutInline вырезает диапазон позиций из inline-содержимого, разрезая текстовые узлы.
func cutInline(content []*Node, from, to int) []*Node {
	var out []*Node
	pos := 0
	for _, child := range content {
		size := child.NodeSize()
		end := pos + size
		if end > from && pos < to {
			if child.IsText() {
				out = append(out, child.Cut(max(from, pos)-pos, min(to, end)-pos))
			} else {
				out = append(out, child)
			}
		}
		pos = end
	}
	return out
}

// MapInline перестраивает inline-узлы, пересекающие диапазон [from, to), через f.
// Текстовые узлы разрезаются по границам диапазона, размеры узлов не меняются.
// f получает кусок и его textblock-родителя и возвращает замену.
func (n *Node) MapInline(from, to int, f func(child *Node, parent *Node) *Node) *Node {
	if from >= to {
		return n
	}
	return n.mapInline(from, to, f)
}

func (n *Node) mapInline(from, to int, f func(*Node, *Node) *Node) *Node {
	if n.Type.InlineContent() {
		var out []*Node
		pos := 0
		for _, child := range n.Content {
			size := child.NodeSize()
			end := pos + size
			if end <= from || pos >= to {
				out = append(out, child)
				pos = end
				continue
			}
			if child.IsText() {
				s, e := max(from, pos)-pos, min(to, end)-pos
				if s > 0 {
					out = append(out, child.Cut(0, s))
				}
				out = append(out, f(child.Cut(s, e), n))
				if e < size {
					out = append(out, child.Cut(e, size))
				}
			} else {
				out = append(out, f(child, n))
			}
			pos = end
		}
		return n.Copy(NormalizeInline(out))
	}

	var content []*Node
	pos := 0
	for i, child := range n.Content {
		end := pos + child.NodeSize()
		if end > from && pos < to && !child.IsLeaf() {
			start := pos + 1
			mapped := child.mapInline(max(0, from-start), min(child.ContentSize(), to-start), f)
			if mapped != child {
				if content == nil {
					content = slices.Clone(n.Content)
				}
				content[i] = mapped
			}
		}
		pos = end
	}
	if content == nil {
		return n
	}
	return n.Copy(content)
}

// CutContent копия узла с inline-содержимым, обрезанным до диапазона [from, to) его содержимого.
func (n *Node) CutContent(from, to int) *Node {
	return n.Copy(NormalizeInline(cutInline(n.Content, from, to)))
}
