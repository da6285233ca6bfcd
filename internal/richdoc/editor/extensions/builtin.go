package extensions

import (
	"strconv"
	"strings"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/providers"
)

// Default реестр со всеми встроенными расширениями. Команды регистрируются отдельно.
func Default() *Registry {
	r := NewRegistry()
	for _, d := range BuiltinNodes() {
		if err := r.AddNode(d); err != nil {
			panic(err)
		}
	}
	for _, d := range BuiltinMarks() {
		if err := r.AddMark(d); err != nil {
			panic(err)
		}
	}
	return r
}

func BuiltinNodes() []*Descriptor {
	return []*Descriptor{
		{Name: "doc", Content: "block+"},
		{
			Name: "paragraph", Group: "block", Content: "inline*", Tag: "p",
			Attributes: map[string]AttrSpec{"textAlign": TextAlignAttr()},
			ParseRules: []ParseRule{{Tag: "p"}},
		},
		{Name: "text", Group: "inline"},
		Heading(),
		{
			Name: "blockquote", Group: "block", Content: "block+", Tag: "blockquote",
			ParseRules: []ParseRule{{Tag: "blockquote"}},
		},
		CodeBlock(),
		{
			Name: "horizontalRule", Group: "block", Tag: "hr",
			ParseRules: []ParseRule{{Tag: "hr"}},
		},
		{
			Name: "hardBreak", Group: "inline", Inline: true, Tag: "br",
			ParseRules: []ParseRule{{Tag: "br"}},
		},
		{
			Name: "bulletList", Group: "block", Content: "listItem+", Tag: "ul",
			ParseRules: []ParseRule{{Tag: "ul"}},
		},
		{
			Name: "orderedList", Group: "block", Content: "listItem+", Tag: "ol",
			Attributes: map[string]AttrSpec{"start": IntAttr("start", 1)},
			ParseRules: []ParseRule{{Tag: "ol"}},
		},
		{
			Name: "listItem", Content: "paragraph block*", Tag: "li",
			ParseRules: []ParseRule{{Tag: "li"}},
		},
		{
			Name: "table", Group: "block", Content: "tableRow+",
			ParseRules: []ParseRule{{Tag: "table"}},
			ToDOM: func(_ *model.Node, attrs *RenderedAttrs) DOMSpec {
				return DOMSpec{Tag: "table", Attrs: attrs, Children: []DOMSpec{{Tag: "tbody", Hole: true}}}
			},
		},
		{
			Name: "tableRow", Content: "(tableCell | tableHeader)+", Tag: "tr",
			ParseRules: []ParseRule{{Tag: "tr"}},
		},
		TableCell("tableHeader", "th"),
		TableCell("tableCell", "td"),
		{
			Name: "image", Group: "block", Atom: true, Tag: "img",
			Attributes: map[string]AttrSpec{
				"src":   StringAttr("src"),
				"alt":   StringAttr("alt"),
				"title": StringAttr("title"),
				"width": LengthAttr("width"),
			},
			ParseRules: []ParseRule{{Tag: "img", Match: func(el Element) bool {
				src, _ := el.Attr("src")
				return strings.TrimSpace(src) != ""
			}}},
		},
		Embed(providers.Default()),
		Video(),
	}
}

func Heading() *Descriptor {
	return &Descriptor{
		Name: "heading", Group: "block", Content: "inline*",
		Attributes: map[string]AttrSpec{
			"level": {
				Default: 1,
				Normalize: func(v any) any {
					level, ok := NormalizeInt(v).(int)
					if !ok || level < 1 || level > 6 {
						return nil
					}
					return level
				},
				FromMarkup: func(el Element) any {
					tag := el.Tag()
					if len(tag) != 2 || tag[0] != 'h' {
						return nil
					}
					return NormalizeInt(tag[1:])
				},
			},
			"textAlign": TextAlignAttr(),
		},
		ParseRules: []ParseRule{{Tag: "h1"}, {Tag: "h2"}, {Tag: "h3"}, {Tag: "h4"}, {Tag: "h5"}, {Tag: "h6"}},
		ToDOM: func(n *model.Node, attrs *RenderedAttrs) DOMSpec {
			level, _ := n.Attr("level").(int)
			return DOMSpec{Tag: "h" + strconv.Itoa(max(1, min(level, 6))), Attrs: attrs, Hole: true}
		},
	}
}

func CodeBlock() *Descriptor {
	return &Descriptor{
		Name: "codeBlock", Group: "block", Content: "text*", Code: true, NoMarks: true,
		Attributes: map[string]AttrSpec{
			"language": {
				Normalize: NormalizeString,
				FromMarkup: func(el Element) any {
					for _, candidate := range []Element{el.Child("code"), el} {
						if candidate == nil {
							continue
						}
						class, _ := candidate.Attr("class")
						for c := range strings.FieldsSeq(class) {
							if lang, ok := strings.CutPrefix(c, "language-"); ok {
								return NormalizeString(lang)
							}
						}
					}
					return nil
				},
			},
		},
		ParseRules: []ParseRule{{Tag: "pre"}},
		ToDOM: func(n *model.Node, attrs *RenderedAttrs) DOMSpec {
			code := &RenderedAttrs{}
			if lang := n.StringAttr("language"); lang != "" {
				code.Set("class", "language-"+lang)
			}
			return DOMSpec{Tag: "pre", Attrs: attrs, Children: []DOMSpec{{Tag: "code", Attrs: code, Hole: true}}}
		},
	}
}

// TableCell ячейка таблицы. rowMinHeight задает минимальную высоту строки и выставляется
// одинаковым на всех ячейках строки.
func TableCell(name, tag string) *Descriptor {
	return &Descriptor{
		Name: name, Content: "block+", Tag: tag,
		Attributes: map[string]AttrSpec{
			"colspan":      IntAttr("colspan", 1),
			"rowspan":      IntAttr("rowspan", 1),
			"colwidth":     IntListAttr("data-colwidth"),
			"rowMinHeight": LengthStyle("min-height"),
		},
		ParseRules: []ParseRule{{Tag: tag}},
	}
}

// Embed встраиваемый плеер провайдера. Размер задается на обертке; без размера встраивание адаптивное.
func Embed(normalizer *providers.Normalizer) *Descriptor {
	return &Descriptor{
		Name: "embed", Group: "block", Atom: true,
		Attributes: map[string]AttrSpec{
			"src": {
				Normalize: NormalizeString,
				ToMarkup:  func(v any, out *RenderedAttrs) { out.Set("src", v.(string)) },
				FromMarkup: func(el Element) any {
					return frameAttr(el, "src")
				},
			},
			"allow": {
				Normalize: NormalizeString,
				ToMarkup:  func(v any, out *RenderedAttrs) { out.Set("allow", v.(string)) },
				FromMarkup: func(el Element) any {
					return frameAttr(el, "allow")
				},
			},
			"allowFullscreen": {
				Default:   true,
				Normalize: NormalizeBool,
				ToMarkup: func(v any, out *RenderedAttrs) {
					if b, _ := v.(bool); b {
						out.Set("allowfullscreen", "")
					}
				},
				FromMarkup: func(el Element) any {
					frame := frameOf(el)
					if frame == nil {
						return nil
					}
					_, ok := frame.Attr("allowfullscreen")
					return ok
				},
			},
			"provider": {
				Normalize: NormalizeString,
				ToMarkup:  func(v any, out *RenderedAttrs) { out.Set("data-provider", v.(string)) },
				FromMarkup: func(el Element) any {
					if el.Tag() == "iframe" {
						src, _ := el.Attr("src")
						if d := normalizer.Normalize(src); d != nil {
							return d.Provider
						}
						return nil
					}
					v, _ := el.Attr("data-provider")
					return NormalizeString(v)
				},
			},
			"id": {
				Normalize: NormalizeString,
				ToMarkup:  func(v any, out *RenderedAttrs) { out.Set("data-id", v.(string)) },
				FromMarkup: func(el Element) any {
					if el.Tag() == "iframe" {
						src, _ := el.Attr("src")
						if d := normalizer.Normalize(src); d != nil {
							return d.ID
						}
						return nil
					}
					v, _ := el.Attr("data-id")
					return NormalizeString(v)
				},
			},
			"width":  frameLength("width"),
			"height": frameLength("height"),
		},
		NormalizeAttrs: pairedSize,
		ParseRules: []ParseRule{
			{Tag: "div", Priority: 60, Match: func(el Element) bool {
				_, ok := el.Attr("data-embed")
				return ok && el.Child("iframe") != nil
			}},
			{Tag: "iframe", Priority: 50, Match: func(el Element) bool {
				src, _ := el.Attr("src")
				return strings.TrimSpace(src) != ""
			}},
		},
		ToDOM: func(_ *model.Node, attrs *RenderedAttrs) DOMSpec {
			frame := attrs.Take("src", "allow", "allowfullscreen")
			frame.Set("frameborder", "0")
			wrapper := &RenderedAttrs{}
			wrapper.Set("data-embed", "")
			for _, p := range attrs.Pairs() {
				if p[0] != "style" {
					wrapper.Set(p[0], p[1])
				}
			}
			width, height := attrs.StyleValue("width"), attrs.StyleValue("height")
			if width != "" && height != "" {
				wrapper.SetStyle("width", width)
				wrapper.SetStyle("height", height)
			} else {
				wrapper.Set("data-responsive", "")
			}
			return DOMSpec{Tag: "div", Attrs: wrapper, Children: []DOMSpec{{Tag: "iframe", Attrs: frame}}}
		},
	}
}

// Video загруженный видеофайл.
func Video() *Descriptor {
	return &Descriptor{
		Name: "video", Group: "block", Atom: true, Tag: "video",
		Attributes: map[string]AttrSpec{
			"src":      StringAttr("src"),
			"controls": BoolAttr("controls", true),
			"width":    LengthStyle("width"),
			"height":   LengthStyle("height"),
		},
		NormalizeAttrs: pairedSize,
		ParseRules: []ParseRule{{Tag: "video", Match: func(el Element) bool {
			src, _ := el.Attr("src")
			return strings.TrimSpace(src) != ""
		}}},
	}
}

// pairedSize не допускает половинчатого размера: ширина и высота заданы обе или ни одна.
func pairedSize(attrs model.Attrs) model.Attrs {
	if (attrs["width"] == nil) != (attrs["height"] == nil) {
		attrs["width"], attrs["height"] = nil, nil
	}
	return attrs
}

func frameOf(el Element) Element {
	if el.Tag() == "iframe" {
		return el
	}
	return el.Child("iframe")
}

func frameAttr(el Element, key string) any {
	frame := frameOf(el)
	if frame == nil {
		return nil
	}
	v, _ := frame.Attr(key)
	return NormalizeString(v)
}

// frameLength размер берется из стиля обертки, у голого фрейма из его атрибутов.
func frameLength(prop string) AttrSpec {
	spec := LengthStyle(prop)
	spec.FromMarkup = func(el Element) any {
		if el.Tag() == "iframe" {
			if v := NormalizeLength(el.Style(prop)); v != nil {
				return v
			}
			v, _ := el.Attr(prop)
			return NormalizeLength(v)
		}
		return NormalizeLength(el.Style(prop))
	}
	return spec
}

func BuiltinMarks() []*MarkDescriptor {
	return []*MarkDescriptor{
		{
			Name: "link", Tag: "a", NonInclusive: true,
			Attributes: map[string]AttrSpec{
				"href":   {Normalize: NormalizeHref, ToMarkup: func(v any, out *RenderedAttrs) { out.Set("href", v.(string)) }, FromMarkup: hrefFromMarkup},
				"target": withDefault(StringAttr("target"), "_blank"),
				"rel":    withDefault(StringAttr("rel"), "noopener noreferrer nofollow"),
			},
			ParseRules: []ParseRule{{Tag: "a", Match: func(el Element) bool {
				_, ok := el.Attr("href")
				return ok
			}}},
		},
		{
			Name: "bold", Tag: "strong",
			ParseRules: []ParseRule{
				{Tag: "strong"},
				{Tag: "b", Match: func(el Element) bool { return el.Style("font-weight") != "normal" }},
				{Tag: "span", Match: func(el Element) bool { return isBoldWeight(el.Style("font-weight")) }},
			},
		},
		{
			Name: "italic", Tag: "em",
			ParseRules: []ParseRule{
				{Tag: "em"},
				{Tag: "i"},
				{Tag: "span", Match: func(el Element) bool { return el.Style("font-style") == "italic" }},
			},
		},
		{
			Name: "underline", Tag: "u",
			ParseRules: []ParseRule{
				{Tag: "u"},
				{Tag: "span", Match: func(el Element) bool { return strings.Contains(el.Style("text-decoration"), "underline") }},
			},
		},
		{
			Name: "strike", Tag: "s",
			ParseRules: []ParseRule{
				{Tag: "s"}, {Tag: "del"}, {Tag: "strike"},
				{Tag: "span", Match: func(el Element) bool { return strings.Contains(el.Style("text-decoration"), "line-through") }},
			},
		},
		{
			Name: "code", Tag: "code",
			ParseRules: []ParseRule{{Tag: "code"}},
		},
		{
			Name: "textStyle", Tag: "span",
			Attributes: map[string]AttrSpec{
				"fontSize": LengthStyle("font-size"),
				"color":    ColorStyle("color"),
			},
			ParseRules: []ParseRule{{Tag: "span", Match: func(el Element) bool {
				return el.Style("font-size") != "" || el.Style("color") != ""
			}}},
		},
		{
			Name: "highlight", Tag: "mark",
			Attributes: map[string]AttrSpec{
				"color": {
					Normalize: NormalizeColor,
					ToMarkup: func(v any, out *RenderedAttrs) {
						out.Set("data-color", v.(string))
						out.SetStyle("background-color", v.(string))
					},
					FromMarkup: func(el Element) any {
						if v, ok := el.Attr("data-color"); ok {
							return NormalizeColor(v)
						}
						return NormalizeColor(el.Style("background-color"))
					},
				},
			},
			ParseRules: []ParseRule{{Tag: "mark"}},
		},
	}
}

// MarkValid проверяет, имеет ли смысл метка с такими атрибутами. Ссылка без адреса и
// стиль текста без единого значения не сохраняются.
func MarkValid(name string, attrs model.Attrs) bool {
	switch name {
	case "link":
		return attrs["href"] != nil
	case "textStyle":
		return !EmptyAttrs(attrs)
	}
	return true
}

func withDefault(spec AttrSpec, def any) AttrSpec {
	spec.Default = def
	return spec
}

func isBoldWeight(w string) bool {
	switch w {
	case "bold", "bolder":
		return true
	}
	n, err := strconv.Atoi(w)
	return err == nil && n >= 600
}

var allowedSchemes = []string{"http:", "https:", "mailto:", "tel:"}

// NormalizeHref разрешает абсолютные http(s), mailto, tel и относительные ссылки.
func NormalizeHref(v any) any {
	s, ok := NormalizeString(v).(string)
	if !ok {
		return nil
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "/") || strings.HasPrefix(lower, "#") {
		return s
	}
	for _, scheme := range allowedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return s
		}
	}
	if !strings.Contains(lower, ":") {
		return s
	}
	return nil
}

func hrefFromMarkup(el Element) any {
	v, _ := el.Attr("href")
	return NormalizeHref(v)
}
