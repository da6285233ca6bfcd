package editor

import (
	"net/url"
	"strings"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/commands"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
)

// HandlePaste вставляет содержимое буфера обмена:
//   - одиночная ссылка известного провайдера становится плеером;
//   - другая ссылка становится ссылкой (на выделенный текст или текстом самой ссылки);
//   - разметка очищается, разбирается и вставляется;
//   - остальное вставляется как текст, строки становятся абзацами.
func (e *Editor) HandlePaste(text, html string) bool {
	if link := singleURL(text); link != "" {
		if e.normalizer.Normalize(link) != nil {
			return e.Exec(commands.SetEmbed(e.normalizer, link))
		}
		return e.Exec(pasteLink(link))
	}
	if strings.TrimSpace(html) != "" {
		doc, err := e.parseMarkup(html, true)
		if err != nil {
			e.logger.Debug("Parse pasted markup", "err", err)
		} else if nodes := pastedNodes(doc); len(nodes) > 0 {
			return e.Exec(commands.InsertContent(nodes...))
		}
	}
	if text == "" {
		return false
	}
	if !strings.Contains(text, "\n") {
		return e.Exec(commands.InsertText(text))
	}
	return e.Exec(pasteLines(text))
}

// singleURL возвращает ссылку, если весь текст это одна http(s) ссылка.
func singleURL(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, " \t\n") {
		return ""
	}
	u, err := url.Parse(text)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return text
}

// pastedNodes содержимое единственного абзаца вставляется строчно, иначе блоками.
func pastedNodes(doc *model.Node) []*model.Node {
	if doc.ChildCount() == 1 && doc.Child(0).Type.Name == "paragraph" {
		return doc.Child(0).Content
	}
	return doc.Content
}

func pasteLink(href string) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		if _, atom := s.Selection.(state.NodeSelection); !atom && !s.Selection.Empty() {
			return commands.SetLink(href)(s)
		}
		link, err := s.Schema.Mark("link", model.Attrs{"href": href})
		if err != nil {
			return nil, false
		}
		return commands.InsertContent(s.Schema.Text(href, link))(s)
	}
}

func pasteLines(text string) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		para := s.Schema.NodeType("paragraph")
		var nodes []*model.Node
		for line := range strings.SplitSeq(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
			var content []*model.Node
			if line != "" {
				content = append(content, s.Schema.Text(line))
			}
			p, err := para.Create(nil, content, nil)
			if err != nil {
				return nil, false
			}
			nodes = append(nodes, p)
		}
		return commands.InsertContent(nodes...)(s)
	}
}
