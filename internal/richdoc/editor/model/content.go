package model

import (
	"fmt"
	"slices"
	"unicode"
)

// ContentExpr разобранное выражение допустимого содержимого, например "paragraph block*"
// или "(tableCell | tableHeader)+". Имена разрешаются в типы узлов либо в группы.
type ContentExpr struct {
	src   string
	terms []contentTerm
}

type contentTerm struct {
	types []*NodeType
	min   int
	// max < 0 без ограничения
	max int
}

func (t contentTerm) allows(nt *NodeType) bool {
	return slices.Contains(t.types, nt)
}

func parseContentExpr(src string, s *Schema) (*ContentExpr, error) {
	toks := tokenizeContent(src)
	expr := &ContentExpr{src: src}
	for i := 0; i < len(toks); {
		var types []*NodeType
		switch toks[i] {
		case "(":
			i++
			for {
				if i >= len(toks) {
					return nil, fmt.Errorf("unclosed group in content expression %q", src)
				}
				ts, err := s.resolveContentName(toks[i])
				if err != nil {
					return nil, err
				}
				types = append(types, ts...)
				i++
				if i >= len(toks) {
					return nil, fmt.Errorf("unclosed group in content expression %q", src)
				}
				if toks[i] == "|" {
					i++
					continue
				}
				if toks[i] == ")" {
					i++
					break
				}
				return nil, fmt.Errorf("unexpected %q in content expression %q", toks[i], src)
			}
		case ")", "|", "+", "*", "?":
			return nil, fmt.Errorf("unexpected %q in content expression %q", toks[i], src)
		default:
			ts, err := s.resolveContentName(toks[i])
			if err != nil {
				return nil, err
			}
			types = ts
			i++
		}

		term := contentTerm{types: types, min: 1, max: 1}
		if i < len(toks) {
			switch toks[i] {
			case "+":
				term.min, term.max = 1, -1
				i++
			case "*":
				term.min, term.max = 0, -1
				i++
			case "?":
				term.min, term.max = 0, 1
				i++
			}
		}
		expr.terms = append(expr.terms, term)
	}
	return expr, nil
}

func tokenizeContent(src string) []string {
	var toks []string
	var word []rune
	flush := func() {
		if len(word) > 0 {
			toks = append(toks, string(word))
			word = word[:0]
		}
	}
	for _, r := range src {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			word = append(word, r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			toks = append(toks, string(r))
		}
	}
	flush()
	return toks
}

func (s *Schema) resolveContentName(name string) ([]*NodeType, error) {
	if t, ok := s.nodes[name]; ok {
		return []*NodeType{t}, nil
	}
	var types []*NodeType
	for _, t := range s.nodeOrder {
		if t.InGroup(name) {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("no node type or group %q", name)
	}
	return types, nil
}

func (e *ContentExpr) String() string {
	return e.src
}

func (e *ContentExpr) empty() bool {
	return len(e.terms) == 0
}

func (e *ContentExpr) inlineContent() bool {
	if e.empty() {
		return false
	}
	for _, term := range e.terms {
		for _, t := range term.types {
			if !t.IsInline() {
				return false
			}
		}
	}
	return true
}

// Allows проверяет, может ли тип встретиться в содержимом.
func (e *ContentExpr) Allows(t *NodeType) bool {
	for _, term := range e.terms {
		if term.allows(t) {
			return true
		}
	}
	return false
}

// Matches жадное сопоставление содержимого терм за термом.
func (e *ContentExpr) Matches(content []*Node) bool {
	idx := 0
	for _, term := range e.terms {
		count := 0
		for idx < len(content) && (term.max < 0 || count < term.max) && term.allows(content[idx].Type) {
			idx++
			count++
		}
		if count < term.min {
			return false
		}
	}
	return idx == len(content)
}

// Fix дополняет содержимое узлами по умолчанию там, где термы требуют обязательных узлов.
// Возвращает false, если содержимое содержит узлы, которые не подходят ни под один терм.
func (e *ContentExpr) Fix(content []*Node) ([]*Node, bool) {
	var out []*Node
	idx := 0
	for _, term := range e.terms {
		count := 0
		for idx < len(content) && (term.max < 0 || count < term.max) && term.allows(content[idx].Type) {
			out = append(out, content[idx])
			idx++
			count++
		}
		for count < term.min {
			filler := term.defaultNode()
			if filler == nil {
				return nil, false
			}
			out = append(out, filler)
			count++
		}
	}
	if idx != len(content) {
		return nil, false
	}
	return out, true
}

func (t contentTerm) defaultNode() *Node {
	for _, nt := range t.types {
		if nt.IsText() {
			continue
		}
		if n, err := nt.CreateAndFill(nil, nil); err == nil {
			return n
		}
	}
	return nil
}
