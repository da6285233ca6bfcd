package commands

import (
	"encoding/json"
	"fmt"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/providers"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
)

// DefaultRegistry встроенные расширения вместе с именованными командами панели инструментов.
func DefaultRegistry() *extensions.Registry {
	reg := extensions.Default()
	if err := Register(reg, providers.Default()); err != nil {
		panic(err)
	}
	return reg
}

func static(cmd state.Command) extensions.CommandFactory {
	return func(extensions.Args) (state.Command, error) { return cmd, nil }
}

// Register добавляет именованные команды, привязанные к типам узлов и меток.
func Register(reg *extensions.Registry, n *providers.Normalizer) error {
	type entry struct {
		scope, name string
		factory     extensions.CommandFactory
	}
	entries := []entry{
		{"bold", "bold", static(ToggleMark("bold"))},
		{"italic", "italic", static(ToggleMark("italic"))},
		{"underline", "underline", static(ToggleMark("underline"))},
		{"strike", "strike", static(ToggleMark("strike"))},
		{"code", "code", static(ToggleMark("code"))},
		{"textStyle", "fontSize", func(args extensions.Args) (state.Command, error) {
			return SetFontSize(args["size"]), nil
		}},
		{"textStyle", "unsetFontSize", static(UnsetFontSize())},
		{"textStyle", "color", func(args extensions.Args) (state.Command, error) {
			color, err := argString(args, "color", false)
			return SetColor(color), err
		}},
		{"highlight", "highlight", func(args extensions.Args) (state.Command, error) {
			color, err := argString(args, "color", false)
			return SetHighlight(color), err
		}},
		{"paragraph", "textAlign", func(args extensions.Args) (state.Command, error) {
			align, err := argString(args, "align", true)
			return SetTextAlign(align), err
		}},
		{"paragraph", "unsetTextAlign", static(UnsetTextAlign())},
		{"bulletList", "bulletList", static(ToggleBulletList())},
		{"orderedList", "orderedList", static(ToggleOrderedList())},
		{"table", "insertTable", func(args extensions.Args) (state.Command, error) {
			rows, err := argInt(args, "rows", 3)
			if err != nil {
				return nil, err
			}
			cols, err := argInt(args, "cols", 3)
			if err != nil {
				return nil, err
			}
			header, err := argBool(args, "withHeaderRow", true)
			return InsertTable(rows, cols, header), err
		}},
		{"tableRow", "addRowAfter", static(AddRowAfter())},
		{"tableCell", "addColumnAfter", static(AddColumnAfter())},
		{"tableRow", "deleteRow", static(DeleteRow())},
		{"tableCell", "deleteColumn", static(DeleteColumn())},
		{"table", "deleteTable", static(DeleteTable())},
		{"tableCell", "rowHeight", func(args extensions.Args) (state.Command, error) {
			return SetRowMinHeight(args["height"]), nil
		}},
		{"embed", "insertEmbed", func(args extensions.Args) (state.Command, error) {
			attrs := model.Attrs{}
			for k, v := range args {
				switch k {
				case "src", "provider", "id", "allow", "allowFullscreen", "width", "height":
					attrs[k] = v
				default:
					return nil, fmt.Errorf("unexpected argument %q", k)
				}
			}
			return InsertEmbed(attrs), nil
		}},
		{"embed", "embed", urlCommand(func(url string) state.Command { return SetEmbed(n, url) })},
		{"embed", "setEmbedSize", func(args extensions.Args) (state.Command, error) {
			pos, err := argInt(args, "pos", -1)
			if err != nil {
				return nil, err
			}
			w, err := argInt(args, "width", 0)
			if err != nil {
				return nil, err
			}
			h, err := argInt(args, "height", 0)
			return SetEmbedSize(pos, w, h), err
		}},
		{"embed", "resetEmbedSize", func(args extensions.Args) (state.Command, error) {
			pos, err := argInt(args, "pos", -1)
			return ResetEmbedSize(pos), err
		}},
		{"link", "setLink", func(args extensions.Args) (state.Command, error) {
			href, err := argString(args, "href", true)
			return SetLink(href), err
		}},
		{"link", "unsetLink", static(UnsetLink())},
		{"image", "setImage", func(args extensions.Args) (state.Command, error) {
			src, err := argString(args, "src", true)
			if err != nil {
				return nil, err
			}
			alt, err := argString(args, "alt", false)
			return SetImage(src, alt), err
		}},
		{"video", "setVideo", func(args extensions.Args) (state.Command, error) {
			src, err := argString(args, "src", true)
			return SetVideo(src), err
		}},
		{"text", "insertText", func(args extensions.Args) (state.Command, error) {
			text, err := argString(args, "text", true)
			return InsertText(text), err
		}},
		{"doc", "selectAll", static(SelectAll())},
		{"doc", "deleteSelection", static(DeleteSelection())},
	}
	for _, p := range n.Providers() {
		entries = append(entries, entry{"embed", p.Name, urlCommand(func(url string) state.Command {
			return SetProviderEmbed(n, p.Name, url)
		})})
	}

	for _, e := range entries {
		if err := reg.AddCommand(e.scope, e.name, e.factory); err != nil {
			return err
		}
	}
	return nil
}

func urlCommand(f func(url string) state.Command) extensions.CommandFactory {
	return func(args extensions.Args) (state.Command, error) {
		url, err := argString(args, "url", true)
		if err != nil {
			return nil, err
		}
		return f(url), nil
	}
}

func argString(args extensions.Args, key string, required bool) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("argument %q is required", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, v)
	}
	return s, nil
}

func argInt(args extensions.Args, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case float64:
		if t != float64(int(t)) {
			return 0, fmt.Errorf("argument %q must be an integer", key)
		}
		return int(t), nil
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("argument %q: %w", key, err)
		}
		return int(i), nil
	}
	return 0, fmt.Errorf("argument %q must be a number, got %T", key, v)
}

func argBool(args extensions.Args, key string, def bool) (bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("argument %q must be a boolean, got %T", key, v)
	}
	return b, nil
}
