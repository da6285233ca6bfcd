package commands

import (
	"log/slog"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/providers"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
)

// InsertEmbed вставляет встраивание после текущего блока и выделяет его.
// Без src команда неприменима.
func InsertEmbed(attrs model.Attrs) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		if extensions.NormalizeString(attrs["src"]) == nil {
			return noop()
		}
		node, err := s.Schema.Node("embed", attrs)
		if err != nil {
			slog.Warn("Invalid embed attributes", "err", err)
			return noop()
		}
		return insertAtom(s, node)
	}
}

// SetEmbed распознает ссылку любого известного провайдера и вставляет плеер.
func SetEmbed(n *providers.Normalizer, url string) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		d := n.Normalize(url)
		if d == nil {
			return noop()
		}
		return InsertEmbed(d.Attrs())(s)
	}
}

// SetProviderEmbed как SetEmbed, но принимает только ссылки указанного провайдера.
func SetProviderEmbed(n *providers.Normalizer, provider, url string) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		d := n.Normalize(url)
		if d == nil || d.Provider != provider {
			return noop()
		}
		return InsertEmbed(d.Attrs())(s)
	}
}

func sizedNodeAt(s *state.State, pos int) *model.Node {
	if pos < 0 || pos >= s.Doc.ContentSize() {
		return nil
	}
	node := s.Doc.NodeAt(pos)
	if node == nil || !node.Type.HasAttr("width") || !node.Type.HasAttr("height") {
		return nil
	}
	return node
}

// SetEmbedSize фиксирует размер встраивания в позиции pos. Ширина и высота пишутся одним шагом.
func SetEmbedSize(pos, width, height int) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		if width <= 0 || height <= 0 || sizedNodeAt(s, pos) == nil {
			return noop()
		}
		tr := s.Tr()
		err := tr.SetNodeAttrs(pos, model.Attrs{
			"width":  extensions.NormalizeLength(width),
			"height": extensions.NormalizeLength(height),
		})
		if err != nil {
			return noop()
		}
		return tr, true
	}
}

// ResetEmbedSize возвращает встраивание к адаптивному размеру. Для адаптивного узла неприменима.
func ResetEmbedSize(pos int) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		node := sizedNodeAt(s, pos)
		if node == nil || (node.Attr("width") == nil && node.Attr("height") == nil) {
			return noop()
		}
		tr := s.Tr()
		if err := tr.SetNodeAttrs(pos, model.Attrs{"width": nil, "height": nil}); err != nil {
			return noop()
		}
		return tr, true
	}
}

// SelectedEmbedSize размер выделенного узла с размерами; пустые строки для адаптивного.
func SelectedEmbedSize(s *state.State) (width, height string, ok bool) {
	ns, isNode := s.Selection.(state.NodeSelection)
	if !isNode {
		return "", "", false
	}
	node := ns.Node()
	if !node.Type.HasAttr("width") || !node.Type.HasAttr("height") {
		return "", "", false
	}
	width, _ = node.Attr("width").(string)
	height, _ = node.Attr("height").(string)
	return width, height, true
}
