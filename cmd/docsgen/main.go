// Генерация справочника HTTP-интерфейса редактора в формате Markdown.
//
// Основные возможности:
//   - Таблица кодов ошибок API, извлеченная из исходника с определениями ошибок.
//   - Таблица команд панели инструментов с типом узла или метки, которому они принадлежат.
//   - Таблица узлов и меток схемы документа с их атрибутами.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/commands"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/providers"
	md "github.com/nao1215/markdown"
)

func main() {
	errorsFile := flag.String("src", "internal/richdoc/apierrors/apierrors.go", "Path of apierrors.go")
	outputMd := flag.String("out", "api_error.md", "Path to output md")
	referenceMd := flag.String("reference", "editor_reference.md", "Path to commands and schema reference, empty to skip")
	flag.Parse()

	slog.Info("Generate api errors docs", "src", *errorsFile, "out", *outputMd)

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, *errorsFile, nil, 0)
	if err != nil {
		panic(err)
	}

	ff, err := os.Create(*outputMd)
	if err != nil {
		slog.Error("Create output", "err", err)
		os.Exit(1)
	}
	defer ff.Close()

	if err := md.NewMarkdown(ff).
		H1("Перечень кодов ошибок").
		PlainText("Данный раздел посвящен описанию возможных ошибок сервиса редактора.").
		CustomTable(md.TableSet{
			Header: []string{"Код", "HTTP код", "Сообщение", "Сообщение на русском"},
			Rows:   getRows(f),
		}, md.TableOptions{
			AutoWrapText: false,
		}).Build(); err != nil {
		slog.Error("Generate docs fail", "err", err)
		os.Exit(1)
	}
	slog.Info("Docs generated")

	if *referenceMd == "" {
		return
	}
	if err := writeReference(*referenceMd); err != nil {
		slog.Error("Generate reference fail", "err", err)
		os.Exit(1)
	}
	slog.Info("Reference generated", "out", *referenceMd)
}

// getRows строки таблицы ошибок из объявлений вида ErrX = DefinedError{...}.
func getRows(f *ast.File) [][]string {
	var rows [][]string
	for _, d := range f.Decls {
		decl, ok := d.(*ast.GenDecl)
		if !ok || decl.Tok != token.VAR {
			continue
		}
		for _, spec := range decl.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok || len(vs.Values) != len(vs.Names) {
				continue
			}
			for i := range vs.Names {
				lit, ok := vs.Values[i].(*ast.CompositeLit)
				if !ok {
					continue
				}
				rows = append(rows, errorRow(lit))
			}
		}
	}
	return rows
}

func errorRow(lit *ast.CompositeLit) []string {
	row := make([]string, 4)
	statusName := "StatusBadRequest"
	for _, v := range lit.Elts {
		param, ok := v.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		switch fmt.Sprint(param.Key) {
		case "Code":
			row[0] = md.Bold(literal(param.Value))
		case "StatusCode":
			if sel, ok := param.Value.(*ast.SelectorExpr); ok {
				statusName = sel.Sel.Name
			}
		case "Err":
			row[2] = md.Code(literal(param.Value))
		case "RuErr":
			row[3] = md.Code(literal(param.Value))
		}
	}
	row[1] = fmt.Sprintf("%s %s", getStatusCode(statusName), md.Italic(statusName))
	return row
}

// literal строковое значение литерала; конкатенация литералов склеивается.
func literal(expr ast.Expr) string {
	switch x := expr.(type) {
	case *ast.BasicLit:
		if s, err := strconv.Unquote(x.Value); err == nil {
			return s
		}
		return x.Value
	case *ast.BinaryExpr:
		return literal(x.X) + literal(x.Y)
	}
	return ""
}

// getStatusCode код HTTP по имени константы net/http, например StatusGone -> 410.
func getStatusCode(status string) string {
	name := strings.TrimPrefix(status, "Status")
	for code := 100; code < 600; code++ {
		text := strings.NewReplacer(" ", "", "-", "", "'", "").Replace(http.StatusText(code))
		if text != "" && strings.EqualFold(text, name) {
			return strconv.Itoa(code)
		}
	}
	return ""
}

func writeReference(path string) error {
	reg := extensions.Default()
	if err := commands.Register(reg, providers.Default()); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var commandRows [][]string
	for _, name := range reg.Commands("") {
		commandRows = append(commandRows, []string{md.Code(name), reg.CommandScope(name)})
	}
	commandRows = append(commandRows,
		[]string{md.Code("undo"), "history"},
		[]string{md.Code("redo"), "history"},
	)

	var nodeRows [][]string
	for _, n := range reg.Nodes() {
		nodeRows = append(nodeRows, []string{md.Code(n.Name), n.Group, n.Content, n.Tag, attrNames(n.Attributes)})
	}
	var markRows [][]string
	for _, m := range reg.Marks() {
		markRows = append(markRows, []string{md.Code(m.Name), m.Tag, attrNames(m.Attributes)})
	}

	return md.NewMarkdown(f).
		H1("Справочник редактора").
		H2("Команды").
		PlainText("Команды выполняются запросом POST /api/sessions/{id}/commands/{name}/. Неприменимая команда возвращает applied=false.").
		CustomTable(md.TableSet{
			Header: []string{"Команда", "Тип"},
			Rows:   commandRows,
		}, md.TableOptions{AutoWrapText: false}).
		H2("Узлы").
		CustomTable(md.TableSet{
			Header: []string{"Узел", "Группа", "Содержимое", "Тег", "Атрибуты"},
			Rows:   nodeRows,
		}, md.TableOptions{AutoWrapText: false}).
		H2("Метки").
		CustomTable(md.TableSet{
			Header: []string{"Метка", "Тег", "Атрибуты"},
			Rows:   markRows,
		}, md.TableOptions{AutoWrapText: false}).
		Build()
}

func attrNames(specs map[string]extensions.AttrSpec) string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}
