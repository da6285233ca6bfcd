package markup

import (
	"fmt"
	"io"
	"strings"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	md "github.com/nao1215/markdown"
)

// RenderMarkdown экспорт документа в Markdown. Размеры, цвета и выравнивание
// в Markdown не выражаются и теряются.
func RenderMarkdown(w io.Writer, doc *model.Node) error {
	m := md.NewMarkdown(w)
	for _, block := range doc.Content {
		markdownBlock(m, block)
	}
	return m.Build()
}

func markdownBlock(m *md.Markdown, n *model.Node) {
	switch n.Type.Name {
	case "paragraph":
		if text := markdownInline(n); text != "" {
			m.PlainText(text).PlainText("")
		}
	case "heading":
		text := markdownInline(n)
		level, _ := n.Attr("level").(int)
		switch level {
		case 1:
			m.H1(text)
		case 2:
			m.H2(text)
		case 3:
			m.H3(text)
		case 4:
			m.H4(text)
		case 5:
			m.H5(text)
		default:
			m.H6(text)
		}
	case "blockquote":
		var parts []string
		for _, child := range n.Content {
			parts = append(parts, markdownInline(child))
		}
		m.Blockquote(strings.Join(parts, "\n"))
	case "codeBlock":
		m.CodeBlocks(md.SyntaxHighlight(n.StringAttr("language")), n.TextContent())
	case "horizontalRule":
		m.HorizontalRule()
	case "bulletList":
		m.BulletList(listItems(n)...)
	case "orderedList":
		m.OrderedList(listItems(n)...)
	case "table":
		var set md.TableSet
		for i, row := range n.Content {
			cells := make([]string, 0, row.ChildCount())
			for _, cell := range row.Content {
				cells = append(cells, cellText(cell))
			}
			if i == 0 {
				set.Header = cells
			} else {
				set.Rows = append(set.Rows, cells)
			}
		}
		m.Table(set)
	case "image":
		m.PlainText(fmt.Sprintf("![%s](%s)", n.StringAttr("alt"), n.StringAttr("src"))).PlainText("")
	case "embed":
		title := n.StringAttr("provider")
		if title == "" {
			title = "embed"
		}
		m.PlainText(md.Link(title, n.StringAttr("src"))).PlainText("")
	case "video":
		m.PlainText(md.Link("video", n.StringAttr("src"))).PlainText("")
	default:
		if text := markdownInline(n); text != "" {
			m.PlainText(text).PlainText("")
		}
	}
}

func listItems(list *model.Node) []string {
	items := make([]string, 0, list.ChildCount())
	for _, item := range list.Content {
		var parts []string
		for _, child := range item.Content {
			parts = append(parts, markdownInline(child))
		}
		items = append(items, strings.Join(parts, " "))
	}
	return items
}

func cellText(cell *model.Node) string {
	var parts []string
	for _, child := range cell.Content {
		parts = append(parts, markdownInline(child))
	}
	return strings.Join(parts, " ")
}

// markdownInline строчное содержимое с метками. Для не-textblock берется весь текст.
func markdownInline(n *model.Node) string {
	if !n.IsTextblock() {
		return n.TextContent()
	}
	var sb strings.Builder
	for _, child := range n.Content {
		if !child.IsText() {
			if child.Type.Name == "hardBreak" {
				sb.WriteString("  \n")
			}
			continue
		}
		sb.WriteString(markdownText(child))
	}
	return sb.String()
}

func markdownText(n *model.Node) string {
	text := n.Text
	for _, m := range n.Marks {
		switch m.Type.Name {
		case "code":
			text = md.Code(text)
		case "bold":
			text = md.Bold(text)
		case "italic":
			text = md.Italic(text)
		case "strike":
			text = md.Strikethrough(text)
		}
	}
	for _, m := range n.Marks {
		if m.Type.Name == "link" {
			href, _ := m.Attr("href").(string)
			text = md.Link(text, href)
		}
	}
	return text
}
