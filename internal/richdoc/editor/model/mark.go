package model

import (
	"reflect"
	"slices"
)

type Mark struct {
	Type  *MarkType
	Attrs Attrs
}

func (m *Mark) Attr(key string) any {
	if v, ok := m.Attrs[key]; ok {
		return v
	}
	if spec, ok := m.Type.Spec.Attrs[key]; ok {
		return spec.Default
	}
	return nil
}

func (m *Mark) Eq(other *Mark) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	return m.Type == other.Type && AttrsEqual(m.Attrs, other.Attrs)
}

// AddToSet добавляет метку в набор с сохранением порядка рангов.
// Метка того же типа заменяется.
func (m *Mark) AddToSet(set []*Mark) []*Mark {
	out := make([]*Mark, 0, len(set)+1)
	placed := false
	for _, other := range set {
		if other.Type == m.Type {
			continue
		}
		if !placed && other.Type.Rank > m.Type.Rank {
			out = append(out, m)
			placed = true
		}
		out = append(out, other)
	}
	if !placed {
		out = append(out, m)
	}
	return out
}

func (m *Mark) RemoveFromSet(set []*Mark) []*Mark {
	var out []*Mark
	for _, other := range set {
		if !other.Eq(m) {
			out = append(out, other)
		}
	}
	return out
}

func (m *Mark) IsInSet(set []*Mark) bool {
	return slices.ContainsFunc(set, m.Eq)
}

// SameMarkSet сравнивает наборы меток поэлементно.
func SameMarkSet(a, b []*Mark) bool {
	return slices.EqualFunc(a, b, func(x, y *Mark) bool { return x.Eq(y) })
}

// SortMarks возвращает нормализованный набор: по одной метке на тип, в порядке рангов.
func SortMarks(marks []*Mark) []*Mark {
	if len(marks) == 0 {
		return nil
	}
	var out []*Mark
	for _, m := range marks {
		if m != nil {
			out = m.AddToSet(out)
		}
	}
	return out
}

func AttrsEqual(a, b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !reflect.DeepEqual(v, w) {
			return false
		}
	}
	return true
}
