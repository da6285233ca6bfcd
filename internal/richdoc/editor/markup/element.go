package markup

import (
	"slices"
	"strings"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"golang.org/x/net/html"
)

// element обертка узла html для правил разбора расширений.
type element struct {
	node   *html.Node
	styles []html.Attribute
}

func wrap(n *html.Node) *element {
	return &element{node: n, styles: parseStyles(getAttrValue("style", n.Attr))}
}

func (e *element) Tag() string {
	return e.node.Data
}

func (e *element) Attr(key string) (string, bool) {
	if !attrExists(key, e.node.Attr) {
		return "", false
	}
	return getAttrValue(key, e.node.Attr), true
}

func (e *element) Style(prop string) string {
	// последнее объявление свойства побеждает, как в CSS
	for i := len(e.styles) - 1; i >= 0; i-- {
		if e.styles[i].Key == prop {
			return e.styles[i].Val
		}
	}
	return ""
}

func (e *element) Child(tag string) extensions.Element {
	el := findElementByTagName(e.node, tag)
	if el == nil {
		return nil
	}
	return wrap(el)
}

// findElementByTagName первый потомок (не сам узел) с тегом tagName.
func findElementByTagName(rootNode *html.Node, tagName string) *html.Node {
	var el *html.Node
	for child := rootNode.FirstChild; child != nil && el == nil; child = child.NextSibling {
		iterNodes(child, func(n *html.Node) bool {
			if el != nil {
				return true
			}
			if n.Type == html.ElementNode && n.Data == tagName {
				el = n
				return true
			}
			return false
		})
	}
	return el
}

func iterNodes(node *html.Node, f func(child *html.Node) bool) {
	if f(node) {
		return
	}
	for p := node.FirstChild; p != nil; p = p.NextSibling {
		iterNodes(p, f)
	}
}

func getAttrValue(key string, attrs []html.Attribute) string {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func attrExists(key string, attrs []html.Attribute) bool {
	return slices.ContainsFunc(attrs, func(attr html.Attribute) bool {
		return attr.Key == key
	})
}

// parseStyles разбирает атрибут style на пары свойство-значение. Значение может содержать
// двоеточие (url(...)), поэтому режется только первое.
func parseStyles(raw string) []html.Attribute {
	var res []html.Attribute
	for decl := range strings.SplitSeq(raw, ";") {
		key, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		if key == "" || val == "" {
			continue
		}
		res = append(res, html.Attribute{Key: key, Val: val})
	}
	return res
}

// textContent весь текст поддерева без разметки.
func textContent(n *html.Node) string {
	var sb strings.Builder
	iterNodes(n, func(child *html.Node) bool {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
		if child.Type == html.ElementNode && child.Data == "br" {
			sb.WriteString("\n")
		}
		return false
	})
	return sb.String()
}
