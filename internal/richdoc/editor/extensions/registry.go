// Пакет extensions описывает расширения редактора: типы узлов и меток вместе с правилами
// разбора и отрисовки разметки, кодеками атрибутов и командами, привязанными к типу.
// Из зарегистрированных расширений собирается схема документа.
package extensions

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
)

var (
	ErrRegistryFrozen = errors.New("registry is frozen after schema build")
	ErrUnknownCommand = errors.New("unknown command")
)

// Element элемент разметки в том виде, в каком его видят правила разбора.
type Element interface {
	Tag() string
	Attr(key string) (string, bool)
	// Style значение CSS-свойства из атрибута style или ""
	Style(prop string) string
	// Child первый потомок с указанным тегом или nil
	Child(tag string) Element
}

// AttrSpec атрибут расширения. ToMarkup и FromMarkup должны быть взаимно обратными
// на нормализованных значениях.
type AttrSpec struct {
	Default    any
	Normalize  func(v any) any
	ToMarkup   func(v any, out *RenderedAttrs)
	FromMarkup func(el Element) any
}

// ParseRule правило распознавания элемента разметки.
type ParseRule struct {
	Tag      string
	Priority int
	Match    func(el Element) bool
}

func (r ParseRule) matches(el Element) bool {
	return r.Tag == el.Tag() && (r.Match == nil || r.Match(el))
}

// DOMSpec описание отрисовываемого элемента. Hole отмечает элемент, куда попадает содержимое узла.
type DOMSpec struct {
	Tag      string
	Attrs    *RenderedAttrs
	Children []DOMSpec
	Hole     bool
}

type Descriptor struct {
	Name           string
	Group          string
	Content        string
	Inline         bool
	Atom           bool
	Code           bool
	NoMarks        bool
	Tag            string
	Attributes     map[string]AttrSpec
	ParseRules     []ParseRule
	ToDOM          func(n *model.Node, attrs *RenderedAttrs) DOMSpec
	NormalizeAttrs func(model.Attrs) model.Attrs
}

type MarkDescriptor struct {
	Name         string
	Tag          string
	NonInclusive bool
	Attributes   map[string]AttrSpec
	ParseRules   []ParseRule
	ToDOM        func(m *model.Mark, attrs *RenderedAttrs) DOMSpec
}

// Args аргументы именованной команды.
type Args map[string]any

// CommandFactory строит команду из аргументов. Ошибка означает неверную форму аргументов.
type CommandFactory func(args Args) (state.Command, error)

type scopedCommand struct {
	scope   string
	factory CommandFactory
}

type Registry struct {
	mu       sync.RWMutex
	nodes    []*Descriptor
	marks    []*MarkDescriptor
	commands map[string]scopedCommand

	schema   *model.Schema
	schemaMu sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{commands: map[string]scopedCommand{}}
}

func (r *Registry) AddNode(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.schema != nil {
		return ErrRegistryFrozen
	}
	if slices.ContainsFunc(r.nodes, func(o *Descriptor) bool { return o.Name == d.Name }) {
		return fmt.Errorf("node extension %q already registered", d.Name)
	}
	r.nodes = append(r.nodes, d)
	return nil
}

func (r *Registry) AddMark(d *MarkDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.schema != nil {
		return ErrRegistryFrozen
	}
	if slices.ContainsFunc(r.marks, func(o *MarkDescriptor) bool { return o.Name == d.Name }) {
		return fmt.Errorf("mark extension %q already registered", d.Name)
	}
	r.marks = append(r.marks, d)
	return nil
}

// AddCommand регистрирует команду, принадлежащую типу scope.
func (r *Registry) AddCommand(scope, name string, f CommandFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[name]; ok {
		return fmt.Errorf("command %q already registered", name)
	}
	r.commands[name] = scopedCommand{scope: scope, factory: f}
	return nil
}

// Command находит фабрику команды по имени.
func (r *Registry) Command(name string) (CommandFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return c.factory, nil
}

// Commands имена команд, принадлежащих типу; пустой scope возвращает все команды.
func (r *Registry) Commands(scope string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name, c := range r.commands {
		if scope == "" || c.scope == scope {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// CommandScope тип, которому принадлежит команда.
func (r *Registry) CommandScope(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[name].scope
}

func (r *Registry) Node(name string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.nodes {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func (r *Registry) Mark(name string) *MarkDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.marks {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func (r *Registry) Nodes() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.nodes)
}

func (r *Registry) Marks() []*MarkDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.marks)
}

// Schema собирает схему при первом обращении. После этого регистрация типов закрыта.
func (r *Registry) Schema() (*model.Schema, error) {
	r.schemaMu.Lock()
	defer r.schemaMu.Unlock()
	if r.schema != nil {
		return r.schema, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	spec := model.SchemaSpec{TopNode: "doc"}
	for _, d := range r.nodes {
		spec.Nodes = append(spec.Nodes, model.NamedNodeSpec{Name: d.Name, Spec: model.NodeSpec{
			Content:        d.Content,
			Group:          d.Group,
			Inline:         d.Inline,
			Atom:           d.Atom,
			Code:           d.Code,
			NoMarks:        d.NoMarks,
			Attrs:          modelAttrs(d.Attributes),
			NormalizeAttrs: d.NormalizeAttrs,
		}})
	}
	for _, d := range r.marks {
		spec.Marks = append(spec.Marks, model.NamedMarkSpec{Name: d.Name, Spec: model.MarkSpec{
			Attrs:        modelAttrs(d.Attributes),
			NonInclusive: d.NonInclusive,
		}})
	}
	s, err := model.NewSchema(spec)
	if err != nil {
		return nil, err
	}
	r.schema = s
	return s, nil
}

// MustSchema как Schema, но паникует при ошибке сборки.
func (r *Registry) MustSchema() *model.Schema {
	s, err := r.Schema()
	if err != nil {
		panic(err)
	}
	return s
}

func modelAttrs(specs map[string]AttrSpec) map[string]model.AttributeSpec {
	if len(specs) == 0 {
		return nil
	}
	out := make(map[string]model.AttributeSpec, len(specs))
	for k, s := range specs {
		out[k] = model.AttributeSpec{Default: s.Default, Normalize: s.Normalize}
	}
	return out
}

// MatchNode находит расширение узла для элемента разметки: правило с наибольшим приоритетом,
// при равенстве первое по порядку регистрации.
func (r *Registry) MatchNode(el Element) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *Descriptor
	bestPriority := 0
	for _, d := range r.nodes {
		for _, rule := range d.ParseRules {
			if rule.matches(el) && (best == nil || rule.Priority > bestPriority) {
				best, bestPriority = d, rule.Priority
			}
		}
	}
	return best
}

// MatchMarks все метки, которые задает элемент разметки.
func (r *Registry) MatchMarks(el Element) []*MarkDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*MarkDescriptor
	for _, d := range r.marks {
		if slices.ContainsFunc(d.ParseRules, func(rule ParseRule) bool { return rule.matches(el) }) {
			out = append(out, d)
		}
	}
	return out
}

// ParseAttrs извлекает атрибуты из элемента через FromMarkup. Отсутствующие значения не попадают в результат.
func ParseAttrs(specs map[string]AttrSpec, el Element) model.Attrs {
	attrs := model.Attrs{}
	for key, spec := range specs {
		if spec.FromMarkup == nil {
			continue
		}
		if v := spec.FromMarkup(el); v != nil {
			if spec.Normalize != nil {
				v = spec.Normalize(v)
			}
			if v != nil {
				attrs[key] = v
			}
		}
	}
	return attrs
}

// RenderAttrs выводит атрибуты через ToMarkup в алфавитном порядке ключей.
func RenderAttrs(specs map[string]AttrSpec, attrs model.Attrs) *RenderedAttrs {
	out := &RenderedAttrs{}
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		spec := specs[k]
		if spec.ToMarkup == nil {
			continue
		}
		if v, ok := attrs[k]; ok && v != nil {
			spec.ToMarkup(v, out)
		}
	}
	return out
}

// RenderNode описание разметки узла.
func (r *Registry) RenderNode(n *model.Node) DOMSpec {
	d := r.Node(n.Type.Name)
	if d == nil {
		return DOMSpec{Tag: "div", Attrs: &RenderedAttrs{}, Hole: !n.IsLeaf()}
	}
	attrs := RenderAttrs(d.Attributes, n.Attrs)
	if d.ToDOM != nil {
		return d.ToDOM(n, attrs)
	}
	return DOMSpec{Tag: d.Tag, Attrs: attrs, Hole: !n.IsLeaf()}
}

// RenderMark описание разметки метки.
func (r *Registry) RenderMark(m *model.Mark) DOMSpec {
	d := r.Mark(m.Type.Name)
	if d == nil {
		return DOMSpec{Tag: "span", Attrs: &RenderedAttrs{}, Hole: true}
	}
	attrs := RenderAttrs(d.Attributes, m.Attrs)
	if d.ToDOM != nil {
		return d.ToDOM(m, attrs)
	}
	return DOMSpec{Tag: d.Tag, Attrs: attrs, Hole: true}
}
