package tiptap

import (
	"encoding/json"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
)

// Serialize сериализует документ в TipTap JSON.
func Serialize(doc *model.Node) ([]byte, error) {
	return json.Marshal(ToTipTap(doc))
}

// ToTipTap строит дерево TipTap без кодирования в JSON.
func ToTipTap(doc *model.Node) TipTapDocument {
	tipTapDoc := TipTapDocument{
		Type:    doc.Type.Name,
		Content: make([]TipTapNode, 0, doc.ChildCount()),
	}
	for _, child := range doc.Content {
		tipTapDoc.Content = append(tipTapDoc.Content, serializeNode(child))
	}
	return tipTapDoc
}

func serializeNode(n *model.Node) TipTapNode {
	node := TipTapNode{
		Type:  n.Type.Name,
		Attrs: copyAttrs(n.Attrs),
		Text:  n.Text,
	}
	for _, m := range n.Marks {
		node.Marks = append(node.Marks, TipTapMark{Type: m.Type.Name, Attrs: copyAttrs(m.Attrs)})
	}
	for _, child := range n.Content {
		node.Content = append(node.Content, serializeNode(child))
	}
	return node
}

func copyAttrs(attrs model.Attrs) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
