package extensions

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// RenderedAttrs упорядоченный набор HTML-атрибутов и CSS-свойств для одного элемента.
type RenderedAttrs struct {
	keys   []string
	vals   map[string]string
	styles [][2]string
}

func (r *RenderedAttrs) Set(key, val string) {
	if r.vals == nil {
		r.vals = map[string]string{}
	}
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = val
}

func (r *RenderedAttrs) Get(key string) (string, bool) {
	v, ok := r.vals[key]
	return v, ok
}

func (r *RenderedAttrs) Del(key string) {
	if _, ok := r.vals[key]; !ok {
		return
	}
	delete(r.vals, key)
	r.keys = slices.DeleteFunc(r.keys, func(k string) bool { return k == key })
}

// SetStyle добавляет CSS-свойство. Свойства собираются в атрибут style при выводе.
func (r *RenderedAttrs) SetStyle(prop, val string) {
	for i, s := range r.styles {
		if s[0] == prop {
			r.styles[i][1] = val
			return
		}
	}
	r.styles = append(r.styles, [2]string{prop, val})
}

func (r *RenderedAttrs) StyleValue(prop string) string {
	for _, s := range r.styles {
		if s[0] == prop {
			return s[1]
		}
	}
	return ""
}

func (r *RenderedAttrs) DelStyle(prop string) {
	r.styles = slices.DeleteFunc(r.styles, func(s [2]string) bool { return s[0] == prop })
}

// Take переносит указанные атрибуты в новый набор (например, с обертки на вложенный фрейм).
func (r *RenderedAttrs) Take(keys ...string) *RenderedAttrs {
	out := &RenderedAttrs{}
	for _, k := range keys {
		if v, ok := r.Get(k); ok {
			out.Set(k, v)
			r.Del(k)
		}
	}
	return out
}

// Pairs атрибуты в порядке добавления, style последним.
func (r *RenderedAttrs) Pairs() [][2]string {
	if r == nil {
		return nil
	}
	out := make([][2]string, 0, len(r.keys)+1)
	for _, k := range r.keys {
		out = append(out, [2]string{k, r.vals[k]})
	}
	if len(r.styles) > 0 {
		decls := make([]string, len(r.styles))
		for i, s := range r.styles {
			decls[i] = s[0] + ": " + s[1]
		}
		out = append(out, [2]string{"style", strings.Join(decls, "; ")})
	}
	return out
}

var lengthRegexp = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(px)?$`)

// NormalizeLength приводит длину к виду "<число>px". Числа и строки вида "40" или "40px"
// принимаются, все остальное (включая пустую строку) дает nil.
func NormalizeLength(v any) any {
	var f float64
	switch t := v.(type) {
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case float32:
		f = float64(t)
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		m := lengthRegexp.FindStringSubmatch(strings.ToLower(strings.TrimSpace(t)))
		if m == nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return strconv.FormatFloat(f, 'f', -1, 64) + "px"
}

// Pixels числовое значение нормализованной длины.
func Pixels(v any) (float64, bool) {
	s, ok := NormalizeLength(v).(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "px"), 64)
	return f, err == nil
}

// LengthStyle атрибут-длина, хранящийся в CSS-свойстве prop.
func LengthStyle(prop string) AttrSpec {
	return AttrSpec{
		Normalize: NormalizeLength,
		ToMarkup: func(v any, out *RenderedAttrs) {
			if s, ok := NormalizeLength(v).(string); ok {
				out.SetStyle(prop, s)
			}
		},
		FromMarkup: func(el Element) any {
			return NormalizeLength(el.Style(prop))
		},
	}
}

// LengthAttr атрибут-длина, хранящийся в HTML-атрибуте key (например, width у img).
func LengthAttr(key string) AttrSpec {
	return AttrSpec{
		Normalize: NormalizeLength,
		ToMarkup: func(v any, out *RenderedAttrs) {
			if s, ok := NormalizeLength(v).(string); ok {
				out.Set(key, strings.TrimSuffix(s, "px"))
			}
		},
		FromMarkup: func(el Element) any {
			v, _ := el.Attr(key)
			return NormalizeLength(v)
		},
	}
}

// NormalizeString непустая строка без крайних пробелов либо nil.
func NormalizeString(v any) any {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case fmt.Stringer:
		s = t.String()
	default:
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

// StringAttr строковый атрибут, хранящийся в HTML-атрибуте key.
func StringAttr(key string) AttrSpec {
	return AttrSpec{
		Normalize: NormalizeString,
		ToMarkup: func(v any, out *RenderedAttrs) {
			if s, ok := v.(string); ok {
				out.Set(key, s)
			}
		},
		FromMarkup: func(el Element) any {
			v, ok := el.Attr(key)
			if !ok {
				return nil
			}
			return NormalizeString(v)
		},
	}
}

// NormalizeInt целое из числа или строки.
func NormalizeInt(v any) any {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		if t != math.Trunc(t) {
			return nil
		}
		return int(t)
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return nil
		}
		return int(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		return i
	}
	return nil
}

// IntAttr целочисленный атрибут; значение по умолчанию не выводится в разметку.
func IntAttr(key string, def int) AttrSpec {
	return AttrSpec{
		Default: def,
		Normalize: func(v any) any {
			i, ok := NormalizeInt(v).(int)
			if !ok || i < 1 {
				return nil
			}
			return i
		},
		ToMarkup: func(v any, out *RenderedAttrs) {
			if i, ok := v.(int); ok && i != def {
				out.Set(key, strconv.Itoa(i))
			}
		},
		FromMarkup: func(el Element) any {
			v, ok := el.Attr(key)
			if !ok {
				return nil
			}
			return NormalizeInt(v)
		},
	}
}

// NormalizeBool логическое значение из bool или строки.
func NormalizeBool(v any) any {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		return b
	}
	return nil
}

// BoolAttr булев HTML-атрибут: присутствие означает true.
func BoolAttr(key string, def bool) AttrSpec {
	return AttrSpec{
		Default:   def,
		Normalize: NormalizeBool,
		ToMarkup: func(v any, out *RenderedAttrs) {
			if b, ok := v.(bool); ok && b {
				out.Set(key, "")
			}
		},
		FromMarkup: func(el Element) any {
			_, ok := el.Attr(key)
			return ok
		},
	}
}

var textAligns = []string{"left", "center", "right", "justify"}

// NormalizeTextAlign одно из left, center, right, justify либо nil.
func NormalizeTextAlign(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(textAligns, s) {
		return nil
	}
	return s
}

func IsTextAlign(s string) bool {
	return NormalizeTextAlign(s) != nil
}

func TextAlignAttr() AttrSpec {
	return AttrSpec{
		Normalize: NormalizeTextAlign,
		ToMarkup: func(v any, out *RenderedAttrs) {
			if s, ok := v.(string); ok {
				out.SetStyle("text-align", s)
			}
		},
		FromMarkup: func(el Element) any {
			return NormalizeTextAlign(el.Style("text-align"))
		},
	}
}

var colorRegexp = regexp.MustCompile(`^(#(?:[0-9a-f]{3,4}|[0-9a-f]{6}|[0-9a-f]{8})|rgba?\(\s*\d+\s*,\s*\d+\s*,\s*\d+\s*(?:,\s*(?:0|1|0?\.\d+)\s*)?\)|[a-z]+)$`)

// NormalizeColor hex, rgb()/rgba() или именованный цвет в нижнем регистре либо nil.
func NormalizeColor(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "inherit" || !colorRegexp.MatchString(s) {
		return nil
	}
	return s
}

// ColorStyle цвет в CSS-свойстве prop.
func ColorStyle(prop string) AttrSpec {
	return AttrSpec{
		Normalize: NormalizeColor,
		ToMarkup: func(v any, out *RenderedAttrs) {
			if s, ok := v.(string); ok {
				out.SetStyle(prop, s)
			}
		},
		FromMarkup: func(el Element) any {
			return NormalizeColor(el.Style(prop))
		},
	}
}

// NormalizeIntList список целых, например ширины колонок.
func NormalizeIntList(v any) any {
	var out []int
	switch t := v.(type) {
	case []int:
		out = slices.Clone(t)
	case []any:
		for _, item := range t {
			i, ok := NormalizeInt(item).(int)
			if !ok {
				return nil
			}
			out = append(out, i)
		}
	case string:
		for part := range strings.SplitSeq(t, ",") {
			i, ok := NormalizeInt(part).(int)
			if !ok {
				return nil
			}
			out = append(out, i)
		}
	default:
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func IntListAttr(key string) AttrSpec {
	return AttrSpec{
		Normalize: NormalizeIntList,
		ToMarkup: func(v any, out *RenderedAttrs) {
			list, ok := v.([]int)
			if !ok {
				return
			}
			parts := make([]string, len(list))
			for i, n := range list {
				parts[i] = strconv.Itoa(n)
			}
			out.Set(key, strings.Join(parts, ","))
		},
		FromMarkup: func(el Element) any {
			v, ok := el.Attr(key)
			if !ok {
				return nil
			}
			return NormalizeIntList(v)
		},
	}
}

// EmptyAttrs истинно, если все значения nil.
func EmptyAttrs(attrs map[string]any) bool {
	for _, v := range attrs {
		if v != nil {
			return false
		}
	}
	return true
}
