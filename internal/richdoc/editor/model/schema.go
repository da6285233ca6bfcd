// Пакет model описывает документ редактора: неизменяемое дерево типизированных узлов с inline-метками,
// схему (типы узлов и меток с декларацией атрибутов и выражениями допустимого содержимого)
// и целочисленные позиции внутри документа.
//
// Основные возможности:
//   - Строгое создание узлов и меток со проверкой атрибутов и содержимого (SchemaViolation).
//   - Вычисление размеров узлов и разрешение позиций (Resolve, NodeAt, NodesBetween).
//   - Замена диапазонов и обход inline-содержимого с сохранением неизменяемости.
package model

import (
	"fmt"
	"slices"
	"strings"
)

// Attrs набор атрибутов узла или метки. Значения нормализованы: nil, string, int, bool или []int.
type Attrs map[string]any

// AttributeSpec декларация атрибута. Normalize приводит любое входное значение к каноническому виду,
// nil после нормализации означает отсутствие значения.
type AttributeSpec struct {
	Default   any
	Normalize func(v any) any
}

// NodeSpec описание типа узла.
type NodeSpec struct {
	Content string
	Group   string
	Inline  bool
	Atom    bool
	Code    bool
	// NoMarks запрещает метки внутри содержимого (например, блок кода)
	NoMarks bool
	Attrs   map[string]AttributeSpec
	// NormalizeAttrs вызывается после вычисления всех атрибутов и может согласовать связанные значения
	NormalizeAttrs func(Attrs) Attrs
}

// MarkSpec описание типа метки.
type MarkSpec struct {
	Attrs map[string]AttributeSpec
	// NonInclusive метка не продолжается при вводе на своей правой границе (ссылки)
	NonInclusive bool
}

type NamedNodeSpec struct {
	Name string
	Spec NodeSpec
}

type NamedMarkSpec struct {
	Name string
	Spec MarkSpec
}

// SchemaSpec упорядоченный набор типов. Порядок важен: первый узел группы используется
// как тип по умолчанию при заполнении обязательного содержимого, порядок меток задает их ранг.
type SchemaSpec struct {
	TopNode string
	Nodes   []NamedNodeSpec
	Marks   []NamedMarkSpec
}

type Schema struct {
	Spec        SchemaSpec
	TopNodeType *NodeType

	nodes     map[string]*NodeType
	nodeOrder []*NodeType
	marks     map[string]*MarkType
	markOrder []*MarkType
}

type NodeType struct {
	Name   string
	Schema *Schema
	Spec   NodeSpec

	groups        []string
	contentExpr   *ContentExpr
	inlineContent bool
}

type MarkType struct {
	Name   string
	Rank   int
	Schema *Schema
	Spec   MarkSpec
}

// NewSchema собирает схему и разрешает выражения содержимого всех типов.
func NewSchema(spec SchemaSpec) (*Schema, error) {
	s := &Schema{
		Spec:  spec,
		nodes: make(map[string]*NodeType, len(spec.Nodes)),
		marks: make(map[string]*MarkType, len(spec.Marks)),
	}
	for _, n := range spec.Nodes {
		if _, ok := s.nodes[n.Name]; ok {
			return nil, fmt.Errorf("duplicate node type %q", n.Name)
		}
		t := &NodeType{Name: n.Name, Schema: s, Spec: n.Spec, groups: strings.Fields(n.Spec.Group)}
		s.nodes[n.Name] = t
		s.nodeOrder = append(s.nodeOrder, t)
	}
	for i, m := range spec.Marks {
		if _, ok := s.marks[m.Name]; ok {
			return nil, fmt.Errorf("duplicate mark type %q", m.Name)
		}
		t := &MarkType{Name: m.Name, Rank: i, Schema: s, Spec: m.Spec}
		s.marks[m.Name] = t
		s.markOrder = append(s.markOrder, t)
	}
	if _, ok := s.nodes["text"]; !ok {
		return nil, fmt.Errorf("schema must define a text node type")
	}

	for _, t := range s.nodeOrder {
		expr, err := parseContentExpr(t.Spec.Content, s)
		if err != nil {
			return nil, fmt.Errorf("node type %q: %w", t.Name, err)
		}
		t.contentExpr = expr
	}
	for _, t := range s.nodeOrder {
		t.inlineContent = t.contentExpr.inlineContent()
	}

	top := spec.TopNode
	if top == "" {
		top = "doc"
	}
	s.TopNodeType = s.nodes[top]
	if s.TopNodeType == nil {
		return nil, fmt.Errorf("schema is missing its top node type %q", top)
	}
	return s, nil
}

func (s *Schema) NodeType(name string) *NodeType {
	return s.nodes[name]
}

func (s *Schema) MarkType(name string) *MarkType {
	return s.marks[name]
}

func (s *Schema) NodeTypes() []*NodeType {
	return slices.Clone(s.nodeOrder)
}

func (s *Schema) MarkTypes() []*MarkType {
	return slices.Clone(s.markOrder)
}

// Node строгое создание узла по имени типа.
func (s *Schema) Node(name string, attrs Attrs, content ...*Node) (*Node, error) {
	t := s.nodes[name]
	if t == nil {
		return nil, &SchemaViolation{Type: name, Reason: "unknown node type"}
	}
	return t.Create(attrs, content, nil)
}

// Text создает текстовый узел. Пустой текст не допускается.
func (s *Schema) Text(text string, marks ...*Mark) *Node {
	if text == "" {
		panic("model: empty text nodes are not allowed")
	}
	return &Node{Type: s.nodes["text"], Text: text, Marks: SortMarks(marks)}
}

// Mark строгое создание метки по имени типа.
func (s *Schema) Mark(name string, attrs Attrs) (*Mark, error) {
	t := s.marks[name]
	if t == nil {
		return nil, &SchemaViolation{Type: name, Reason: "unknown mark type"}
	}
	return t.Create(attrs)
}

func (t *NodeType) IsText() bool {
	return t.Name == "text"
}

func (t *NodeType) IsInline() bool {
	return t.Spec.Inline || t.IsText()
}

func (t *NodeType) IsBlock() bool {
	return !t.IsInline()
}

func (t *NodeType) IsTextblock() bool {
	return t.IsBlock() && t.inlineContent
}

func (t *NodeType) InlineContent() bool {
	return t.inlineContent
}

func (t *NodeType) IsLeaf() bool {
	return t.contentExpr.empty()
}

func (t *NodeType) IsAtom() bool {
	return t.IsLeaf() || t.Spec.Atom
}

func (t *NodeType) InGroup(group string) bool {
	return slices.Contains(t.groups, group)
}

func (t *NodeType) Groups() []string {
	return slices.Clone(t.groups)
}

func (t *NodeType) ContentExpr() *ContentExpr {
	return t.contentExpr
}

func (t *NodeType) HasAttr(key string) bool {
	_, ok := t.Spec.Attrs[key]
	return ok
}

// AllowsMarkType проверяет, допускает ли содержимое узла данный тип метки.
func (t *NodeType) AllowsMarkType(mt *MarkType) bool {
	return t.inlineContent && !t.Spec.NoMarks && mt != nil
}

// AllowsMarks проверяет все метки набора.
func (t *NodeType) AllowsMarks(marks []*Mark) bool {
	for _, m := range marks {
		if !t.AllowsMarkType(m.Type) {
			return false
		}
	}
	return true
}

// ValidContent проверяет содержимое на соответствие выражению содержимого и меткам.
func (t *NodeType) ValidContent(content []*Node) bool {
	if !t.contentExpr.Matches(content) {
		return false
	}
	if t.inlineContent {
		for _, child := range content {
			if len(child.Marks) > 0 && !t.AllowsMarks(child.Marks) {
				return false
			}
		}
	}
	return true
}

// ComputeAttrs строгое вычисление полного набора атрибутов: незадекларированный ключ
// приводит к SchemaViolation, отсутствующие ключи получают значения по умолчанию.
func (t *NodeType) ComputeAttrs(attrs Attrs) (Attrs, error) {
	out, err := computeAttrs(t.Name, t.Spec.Attrs, attrs, true)
	if err != nil {
		return nil, err
	}
	if t.Spec.NormalizeAttrs != nil && len(out) > 0 {
		out = t.Spec.NormalizeAttrs(out)
	}
	return out, nil
}

// FilterAttrs отбрасывает незадекларированные ключи. Используется при импорте внешних данных.
func (t *NodeType) FilterAttrs(attrs Attrs) (kept Attrs, dropped []string) {
	return filterAttrs(t.Spec.Attrs, attrs)
}

// Create строгое создание узла данного типа.
func (t *NodeType) Create(attrs Attrs, content []*Node, marks []*Mark) (*Node, error) {
	if t.IsText() {
		return nil, &SchemaViolation{Type: t.Name, Reason: "text nodes are created with Schema.Text"}
	}
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	content = slices.Clone(content)
	if t.inlineContent {
		content = NormalizeInline(content)
	}
	if !t.ValidContent(content) {
		return nil, &SchemaViolation{Type: t.Name, Reason: "invalid content: " + describeContent(content)}
	}
	return &Node{Type: t, Attrs: computed, Content: content, Marks: SortMarks(marks)}, nil
}

// CreateAndFill как Create, но дополняет недостающее обязательное содержимое узлами по умолчанию.
func (t *NodeType) CreateAndFill(attrs Attrs, content []*Node) (*Node, error) {
	if t.inlineContent {
		content = NormalizeInline(content)
	}
	if fixed, ok := t.contentExpr.Fix(content); ok {
		content = fixed
	}
	return t.Create(attrs, content, nil)
}

func describeContent(content []*Node) string {
	if len(content) == 0 {
		return "<empty>"
	}
	names := make([]string, len(content))
	for i, n := range content {
		names[i] = n.Type.Name
	}
	return strings.Join(names, " ")
}

func (m *MarkType) Create(attrs Attrs) (*Mark, error) {
	computed, err := computeAttrs(m.Name, m.Spec.Attrs, attrs, true)
	if err != nil {
		return nil, err
	}
	return &Mark{Type: m, Attrs: computed}, nil
}

func (m *MarkType) FilterAttrs(attrs Attrs) (kept Attrs, dropped []string) {
	return filterAttrs(m.Spec.Attrs, attrs)
}

func (m *MarkType) HasAttr(key string) bool {
	_, ok := m.Spec.Attrs[key]
	return ok
}

// IsInSet возвращает метку этого типа из набора или nil.
func (m *MarkType) IsInSet(set []*Mark) *Mark {
	for _, mark := range set {
		if mark.Type == m {
			return mark
		}
	}
	return nil
}

// RemoveFromSet удаляет из набора все метки этого типа.
func (m *MarkType) RemoveFromSet(set []*Mark) []*Mark {
	var out []*Mark
	for _, mark := range set {
		if mark.Type != m {
			out = append(out, mark)
		}
	}
	return out
}

func computeAttrs(typeName string, specs map[string]AttributeSpec, given Attrs, strict bool) (Attrs, error) {
	if len(specs) == 0 {
		if strict && len(given) > 0 {
			for key := range given {
				return nil, &SchemaViolation{Type: typeName, Attr: key, Reason: "undeclared attribute"}
			}
		}
		return nil, nil
	}
	for key := range given {
		if _, ok := specs[key]; !ok && strict {
			return nil, &SchemaViolation{Type: typeName, Attr: key, Reason: "undeclared attribute"}
		}
	}
	out := make(Attrs, len(specs))
	for key, spec := range specs {
		v, ok := given[key]
		if !ok || v == nil {
			out[key] = spec.Default
			continue
		}
		if spec.Normalize != nil {
			v = spec.Normalize(v)
		}
		if v == nil {
			v = spec.Default
		}
		out[key] = v
	}
	return out, nil
}

func filterAttrs(specs map[string]AttributeSpec, given Attrs) (Attrs, []string) {
	var kept Attrs
	var dropped []string
	for key, v := range given {
		if _, ok := specs[key]; !ok {
			dropped = append(dropped, key)
			continue
		}
		if kept == nil {
			kept = make(Attrs, len(given))
		}
		kept[key] = v
	}
	slices.Sort(dropped)
	return kept, dropped
}
