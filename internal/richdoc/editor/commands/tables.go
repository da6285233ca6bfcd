package commands

import (
	"slices"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
)

// cellContext положение выделения в таблице.
type cellContext struct {
	table    *model.Node
	tablePos int
	row      int
	col      int
}

func findCell(s *state.State) (cellContext, bool) {
	rp, err := s.Doc.Resolve(s.Selection.From())
	if err != nil {
		return cellContext{}, false
	}
	d, ok := ancestorOfType(rp, "tableCell", "tableHeader")
	if !ok || d < 2 || rp.Node(d-2).Type.Name != "table" {
		return cellContext{}, false
	}
	return cellContext{
		table:    rp.Node(d - 2),
		tablePos: rp.Before(d - 2),
		row:      rp.Index(d - 2),
		col:      rp.Index(d - 1),
	}, true
}

// InTable истинно, если выделение внутри ячейки таблицы.
func InTable(s *state.State) bool {
	_, ok := findCell(s)
	return ok
}

func newCell(s *state.State, typeName string, attrs model.Attrs) (*model.Node, error) {
	return s.Schema.NodeType(typeName).CreateAndFill(attrs, nil)
}

// InsertTable вставляет таблицу rows x cols; с withHeaderRow первая строка из заголовков.
func InsertTable(rows, cols int, withHeaderRow bool) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		if rows < 1 || cols < 1 || s.Schema.NodeType("table") == nil || InTable(s) {
			return noop()
		}
		rowNodes := make([]*model.Node, 0, rows)
		for r := range rows {
			typeName := "tableCell"
			if withHeaderRow && r == 0 {
				typeName = "tableHeader"
			}
			cells := make([]*model.Node, 0, cols)
			for range cols {
				cell, err := newCell(s, typeName, nil)
				if err != nil {
					return noop()
				}
				cells = append(cells, cell)
			}
			row, err := s.Schema.Node("tableRow", nil, cells...)
			if err != nil {
				return noop()
			}
			rowNodes = append(rowNodes, row)
		}
		table, err := s.Schema.Node("table", nil, rowNodes...)
		if err != nil {
			return noop()
		}
		tr, pos, ok := insertBlocks(s, table)
		if !ok {
			return noop()
		}
		// table > row > cell > paragraph
		tr.SetSelection(state.NewTextSelection(tr.Doc, pos+4, pos+4))
		return tr, true
	}
}

func replaceTable(s *state.State, c cellContext, table *model.Node) (*state.Transaction, bool) {
	tr := s.Tr()
	if tr.Replace(c.tablePos, c.tablePos+c.table.NodeSize(), table) != nil {
		return nil, false
	}
	return tr, true
}

// AddRowAfter добавляет пустую строку после текущей.
func AddRowAfter() state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		c, ok := findCell(s)
		if !ok {
			return noop()
		}
		current := c.table.Child(c.row)
		cells := make([]*model.Node, 0, current.ChildCount())
		for range current.ChildCount() {
			cell, err := newCell(s, "tableCell", nil)
			if err != nil {
				return noop()
			}
			cells = append(cells, cell)
		}
		row, err := s.Schema.Node("tableRow", nil, cells...)
		if err != nil {
			return noop()
		}
		table := c.table.Copy(slices.Insert(slices.Clone(c.table.Content), c.row+1, row))
		tr, ok := replaceTable(s, c, table)
		if !ok {
			return noop()
		}
		tr.SetSelection(sameSelection(tr.Doc, s.Selection))
		return tr, true
	}
}

// AddColumnAfter добавляет колонку после текущей. Новая ячейка наследует тип соседней
// и высоту своей строки.
func AddColumnAfter() state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		c, ok := findCell(s)
		if !ok {
			return noop()
		}
		rows := make([]*model.Node, 0, c.table.ChildCount())
		for _, row := range c.table.Content {
			at := min(c.col+1, row.ChildCount())
			neighbor := row.Child(at - 1)
			cell, err := newCell(s, neighbor.Type.Name, model.Attrs{"rowMinHeight": rowHeightOf(row)})
			if err != nil {
				return noop()
			}
			rows = append(rows, row.Copy(slices.Insert(slices.Clone(row.Content), at, cell)))
		}
		tr, ok := replaceTable(s, c, c.table.Copy(rows))
		if !ok {
			return noop()
		}
		// Каждая предшествующая строка выросла на пустую ячейку с абзацем.
		shift := 4 * c.row
		sel := s.Selection
		tr.SetSelection(state.NewTextSelection(tr.Doc, sel.Anchor()+shift, sel.Head()+shift))
		return tr, true
	}
}

// rowHeightOf общая высота ячеек строки или nil.
func rowHeightOf(row *model.Node) any {
	var common any
	for i, cell := range row.Content {
		v := cell.Attr("rowMinHeight")
		if i == 0 {
			common = v
		} else if v != common {
			return nil
		}
	}
	return common
}

// DeleteRow удаляет текущую строку; последняя строка удаляется вместе с таблицей.
func DeleteRow() state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		c, ok := findCell(s)
		if !ok {
			return noop()
		}
		if c.table.ChildCount() == 1 {
			return deleteTable(s, c)
		}
		content := slices.Delete(slices.Clone(c.table.Content), c.row, c.row+1)
		tr, ok := replaceTable(s, c, c.table.Copy(content))
		if !ok {
			return noop()
		}
		target := min(c.row, len(content)-1)
		pos := c.tablePos + 1
		for _, row := range content[:target] {
			pos += row.NodeSize()
		}
		tr.SetSelection(state.Near(tr.Doc, pos+3, 1))
		return tr, true
	}
}

// DeleteColumn удаляет текущую колонку; строки без ячеек удаляются, пустая таблица удаляется целиком.
func DeleteColumn() state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		c, ok := findCell(s)
		if !ok {
			return noop()
		}
		var rows []*model.Node
		for _, row := range c.table.Content {
			if c.col >= row.ChildCount() {
				rows = append(rows, row)
				continue
			}
			if row.ChildCount() == 1 {
				continue
			}
			rows = append(rows, row.Copy(slices.Delete(slices.Clone(row.Content), c.col, c.col+1)))
		}
		if len(rows) == 0 {
			return deleteTable(s, c)
		}
		tr, ok := replaceTable(s, c, c.table.Copy(rows))
		if !ok {
			return noop()
		}
		tr.SetSelection(state.Near(tr.Doc, c.tablePos+4, 1))
		return tr, true
	}
}

// DeleteTable удаляет таблицу под выделением.
func DeleteTable() state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		c, ok := findCell(s)
		if !ok {
			return noop()
		}
		return deleteTable(s, c)
	}
}

func deleteTable(s *state.State, c cellContext) (*state.Transaction, bool) {
	tr := s.Tr()
	end := c.tablePos + c.table.NodeSize()
	if tr.Delete(c.tablePos, end) != nil {
		para, err := s.Schema.Node("paragraph", nil)
		if err != nil || tr.Replace(c.tablePos, end, para) != nil {
			return noop()
		}
	}
	tr.SetSelection(state.Near(tr.Doc, c.tablePos, 1))
	return tr, true
}

// SetRowMinHeight задает одинаковую минимальную высоту всем ячейкам строки, в которой
// начинается выделение. nil или "" снимает высоту; некорректная длина отклоняется.
// Повторная установка того же значения применима и не меняет документ.
func SetRowMinHeight(value any) state.Command {
	return func(s *state.State) (*state.Transaction, bool) {
		var v any
		if str, ok := value.(string); value != nil && !(ok && str == "") {
			if v = extensions.NormalizeLength(value); v == nil {
				return noop()
			}
		}
		rp, err := s.Doc.Resolve(s.Selection.From())
		if err != nil {
			return noop()
		}
		d, ok := ancestorOfType(rp, "tableRow")
		if !ok {
			return noop()
		}
		row := rp.Node(d)
		pos := rp.Before(d) + 1
		tr := s.Tr()
		for _, cell := range row.Content {
			if cell.Type.HasAttr("rowMinHeight") {
				if err := tr.SetNodeAttr(pos, "rowMinHeight", v); err != nil {
					return noop()
				}
			}
			pos += cell.NodeSize()
		}
		// строка найдена: команда применима, даже если высота уже такая
		return tr, true
	}
}

// RowHeight высота строки под выделением: общее значение ячеек или "".
func RowHeight(s *state.State) (string, bool) {
	rp, err := s.Doc.Resolve(s.Selection.From())
	if err != nil {
		return "", false
	}
	d, ok := ancestorOfType(rp, "tableRow")
	if !ok {
		return "", false
	}
	h, _ := rowHeightOf(rp.Node(d)).(string)
	return h, true
}
