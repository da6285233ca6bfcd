package tiptap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
)

var ErrNotDocument = errors.New("tiptap: root node is not a document")

// ParseJSON парсит JSON контент TipTap редактора в документ схемы.
// Разбор мягкий: неизвестные узлы и метки пропускаются, незадекларированные
// атрибуты отбрасываются, недостающее обязательное содержимое дополняется.
func ParseJSON(r io.Reader, schema *model.Schema) (*model.Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var tipTapDoc TipTapDocument
	if err := dec.Decode(&tipTapDoc); err != nil {
		return nil, err
	}
	top := schema.TopNodeType
	if tipTapDoc.Type != top.Name {
		return nil, fmt.Errorf("%w: %q", ErrNotDocument, tipTapDoc.Type)
	}

	content := parseContent(schema, tipTapDoc.Content)
	doc, err := top.CreateAndFill(nil, content)
	if err != nil {
		return nil, fmt.Errorf("tiptap: build document: %w", err)
	}
	return doc, nil
}

func parseContent(schema *model.Schema, nodes []TipTapNode) []*model.Node {
	out := make([]*model.Node, 0, len(nodes))
	for _, node := range nodes {
		if n := parseNode(schema, node); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// parseNode возвращает nil, если узел не удалось выразить в схеме.
func parseNode(schema *model.Schema, node TipTapNode) *model.Node {
	nt := schema.NodeType(node.Type)
	if nt == nil {
		slog.Warn("Unknown node type", "type", node.Type)
		return nil
	}

	if nt.IsText() {
		if node.Text == "" {
			return nil
		}
		return schema.Text(node.Text, parseMarks(schema, node.Marks)...)
	}

	attrs, dropped := nt.FilterAttrs(node.Attrs)
	if len(dropped) > 0 {
		slog.Debug("Drop unknown attributes", "type", node.Type, "attrs", dropped)
	}

	content := parseContent(schema, node.Content)
	if nt.InlineContent() {
		content = stripMarks(nt, content)
	}

	n, err := nt.CreateAndFill(attrs, content)
	if err != nil {
		// Содержимое, которое тип не принимает, отбрасывается целиком.
		slog.Warn("Invalid node content", "type", node.Type, "err", err)
		n, err = nt.CreateAndFill(attrs, nil)
		if err != nil {
			return nil
		}
	}

	if nt.IsInline() && len(node.Marks) > 0 {
		n = n.WithMarks(parseMarks(schema, node.Marks))
	}
	return n
}

func parseMarks(schema *model.Schema, marks []TipTapMark) []*model.Mark {
	var set []*model.Mark
	for _, m := range marks {
		mt := schema.MarkType(m.Type)
		if mt == nil {
			slog.Warn("Unknown mark type", "type", m.Type)
			continue
		}
		attrs, dropped := mt.FilterAttrs(m.Attrs)
		if len(dropped) > 0 {
			slog.Debug("Drop unknown attributes", "type", m.Type, "attrs", dropped)
		}
		mark, err := mt.Create(attrs)
		if err != nil {
			continue
		}
		set = mark.AddToSet(set)
	}
	return set
}

// stripMarks убирает метки, которые родитель не допускает (например, в блоке кода).
func stripMarks(parent *model.NodeType, content []*model.Node) []*model.Node {
	for i, child := range content {
		if len(child.Marks) == 0 || parent.AllowsMarks(child.Marks) {
			continue
		}
		var kept []*model.Mark
		for _, m := range child.Marks {
			if parent.AllowsMarkType(m.Type) {
				kept = append(kept, m)
			}
		}
		content[i] = child.WithMarks(kept)
	}
	return content
}
