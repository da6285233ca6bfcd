package model

import "fmt"

type pathEntry struct {
	node   *Node
	index  int
	offset int
}

// ResolvedPos позиция с контекстом: цепочка предков от корня до родителя позиции.
type ResolvedPos struct {
	Pos          int
	Depth        int
	ParentOffset int

	path []pathEntry
}

// Resolve разрешает позицию внутри содержимого узла.
func (n *Node) Resolve(pos int) (*ResolvedPos, error) {
	if pos < 0 || pos > n.ContentSize() {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrPositionOutOfRange, pos, n.ContentSize())
	}
	var path []pathEntry
	start := 0
	parentOffset := pos
	for node := n; ; {
		index, offset := node.findIndex(parentOffset)
		rem := parentOffset - offset
		path = append(path, pathEntry{node: node, index: index, offset: start + offset})
		if rem == 0 {
			break
		}
		node = node.Child(index)
		if node.IsText() {
			break
		}
		parentOffset = rem - 1
		start += offset + 1
	}
	return &ResolvedPos{Pos: pos, Depth: len(path) - 1, ParentOffset: parentOffset, path: path}, nil
}

// MustResolve как Resolve, но паникует на позиции вне документа.
func (n *Node) MustResolve(pos int) *ResolvedPos {
	rp, err := n.Resolve(pos)
	if err != nil {
		panic(err)
	}
	return rp
}

func (r *ResolvedPos) resolveDepth(depth int) int {
	if depth < 0 {
		return r.Depth + depth
	}
	return depth
}

// Node предок на глубине depth. Отрицательная глубина отсчитывается от родителя.
func (r *ResolvedPos) Node(depth int) *Node {
	return r.path[r.resolveDepth(depth)].node
}

func (r *ResolvedPos) Index(depth int) int {
	return r.path[r.resolveDepth(depth)].index
}

func (r *ResolvedPos) IndexAfter(depth int) int {
	depth = r.resolveDepth(depth)
	if depth == r.Depth && r.TextOffset() == 0 {
		return r.Index(depth)
	}
	return r.Index(depth) + 1
}

func (r *ResolvedPos) Parent() *Node {
	return r.Node(r.Depth)
}

func (r *ResolvedPos) Doc() *Node {
	return r.Node(0)
}

// Start позиция начала содержимого предка на глубине depth.
func (r *ResolvedPos) Start(depth int) int {
	depth = r.resolveDepth(depth)
	if depth == 0 {
		return 0
	}
	return r.path[depth-1].offset + 1
}

func (r *ResolvedPos) End(depth int) int {
	depth = r.resolveDepth(depth)
	return r.Start(depth) + r.Node(depth).ContentSize()
}

// Before позиция непосредственно перед предком на глубине depth (depth > 0).
func (r *ResolvedPos) Before(depth int) int {
	depth = r.resolveDepth(depth)
	if depth == 0 {
		panic("model: there is no position before the top-level node")
	}
	if depth == r.Depth+1 {
		return r.Pos
	}
	return r.path[depth-1].offset
}

func (r *ResolvedPos) After(depth int) int {
	depth = r.resolveDepth(depth)
	if depth == 0 {
		panic("model: there is no position after the top-level node")
	}
	if depth == r.Depth+1 {
		return r.Pos + r.NodeAfter().NodeSize()
	}
	return r.path[depth-1].offset + r.Node(depth).NodeSize()
}

// TextOffset смещение внутри текстового узла, 0 если позиция на границе узлов.
func (r *ResolvedPos) TextOffset() int {
	return r.Pos - r.path[len(r.path)-1].offset
}

func (r *ResolvedPos) NodeAfter() *Node {
	parent := r.Parent()
	index := r.Index(r.Depth)
	if index == parent.ChildCount() {
		return nil
	}
	child := parent.Child(index)
	if off := r.TextOffset(); off > 0 {
		return child.Cut(off, child.NodeSize())
	}
	return child
}

func (r *ResolvedPos) NodeBefore() *Node {
	parent := r.Parent()
	index := r.Index(r.Depth)
	if off := r.TextOffset(); off > 0 {
		return parent.Child(index).Cut(0, off)
	}
	if index == 0 {
		return nil
	}
	return parent.Child(index - 1)
}

// Marks метки, которые получит текст, вставленный в эту позицию.
func (r *ResolvedPos) Marks() []*Mark {
	parent := r.Parent()
	index := r.Index(r.Depth)
	if parent.ContentSize() == 0 {
		return nil
	}
	if r.TextOffset() > 0 {
		return parent.Child(index).Marks
	}
	main, other := parent.MaybeChild(index-1), parent.MaybeChild(index)
	if main == nil {
		main, other = other, main
	}
	var marks []*Mark
	for _, m := range main.Marks {
		if m.Type.Spec.NonInclusive && (other == nil || !m.IsInSet(other.Marks)) {
			continue
		}
		marks = append(marks, m)
	}
	return marks
}

// FindAncestor ищет ближайшего предка (включая родителя), удовлетворяющего условию.
func (r *ResolvedPos) FindAncestor(pred func(*Node) bool) (depth int, ok bool) {
	for d := r.Depth; d >= 0; d-- {
		if pred(r.Node(d)) {
			return d, true
		}
	}
	return 0, false
}

// SharedDepth глубина общего предка этой позиции и pos.
func (r *ResolvedPos) SharedDepth(pos int) int {
	for d := r.Depth; d > 0; d-- {
		if r.Start(d) <= pos && r.End(d) >= pos {
			return d
		}
	}
	return 0
}
