// Пакет editor собирает модель документа, команды, сериализацию и привязки отображения
// в один редактор с историей, событиями и режимом правки разметки.
//
// Основные возможности:
//   - Выполнение команд и именованных команд панели инструментов.
//   - Чтение и запись документа как HTML-разметки, TipTap JSON и экспорт в Markdown.
//   - Undo/redo по снимкам документа.
//   - Загрузка файлов, вставка и перетаскивание.
//   - Привязка встраиваемых узлов к перетаскиванию размера.
package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/commands"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/markup"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/providers"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/resize"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/syncstate"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/tiptap"
	filestorage "github.com/aisa-it/richdoc/internal/richdoc/file-storage"
)

var (
	ErrFormatInProgress = errors.New("markup formatting is in progress")
	ErrMarkupViewClosed = errors.New("markup view is not open")
	ErrNotResizable     = errors.New("node at position is not resizable")
)

var defaultRegistry = sync.OnceValue(commands.DefaultRegistry)

type Editor struct {
	mu sync.Mutex

	reg          *extensions.Registry
	schema       *model.Schema
	normalizer   *providers.Normalizer
	sanitizer    *markup.Sanitizer
	sanitize     bool
	uploader     filestorage.Uploader
	objectURLs   *filestorage.ObjectURLs
	formatter    *markup.FormatterHandle
	formatOnOpen bool
	resizeCfg    resize.Config
	logger       *slog.Logger

	state    *state.State
	history  history
	view     markupView
	bindings []*resize.Binding

	listeners    map[Event]map[int]Listener
	nextListener int
	pending      []EventData
	after        []func()
}

func New(opts ...Option) (*Editor, error) {
	o := options{
		resize:       resize.DefaultConfig(),
		historyLimit: 100,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.registry == nil {
		if o.normalizer == nil {
			o.registry = defaultRegistry()
		} else {
			o.registry = extensions.Default()
			if err := commands.Register(o.registry, o.normalizer); err != nil {
				return nil, err
			}
		}
	}
	if o.normalizer == nil {
		o.normalizer = providers.Default()
	}
	if o.objectURLs == nil {
		o.objectURLs = filestorage.NewObjectURLs("richdoc")
	}

	schema, err := o.registry.Schema()
	if err != nil {
		return nil, err
	}

	e := &Editor{
		reg:          o.registry,
		schema:       schema,
		normalizer:   o.normalizer,
		sanitizer:    markup.NewSanitizer(o.normalizer),
		sanitize:     o.sanitize,
		uploader:     o.uploader,
		objectURLs:   o.objectURLs,
		formatter:    o.formatter,
		formatOnOpen: o.formatOnOpen,
		resizeCfg:    o.resize,
		logger:       o.logger,
		history:      history{limit: o.historyLimit},
		listeners:    map[Event]map[int]Listener{},
	}

	var doc *model.Node
	if strings.TrimSpace(o.content) != "" {
		doc, err = e.parseMarkup(o.content, e.sanitize)
	} else {
		doc, err = schema.TopNodeType.CreateAndFill(nil, nil)
	}
	if err != nil {
		return nil, err
	}
	e.state = state.New(schema, doc, nil)
	return e, nil
}

func (e *Editor) Schema() *model.Schema {
	return e.schema
}

func (e *Editor) Registry() *extensions.Registry {
	return e.reg
}

func (e *Editor) Normalizer() *providers.Normalizer {
	return e.normalizer
}

func (e *Editor) ObjectURLs() *filestorage.ObjectURLs {
	return e.objectURLs
}

func (e *Editor) State() *state.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) Doc() *model.Node {
	return e.State().Doc
}

// Exec выполняет команду. false: команда неприменима или команды сейчас подавлены
// (открыт режим разметки).
func (e *Editor) Exec(cmd state.Command) bool {
	e.mu.Lock()
	defer e.unlock()
	return e.exec(cmd)
}

func (e *Editor) exec(cmd state.Command) bool {
	if e.view.open {
		return false
	}
	tr, ok := cmd(e.state)
	if !ok || tr == nil {
		return false
	}
	e.dispatch(tr)
	return true
}

// Run выполняет именованную команду панели инструментов. Ошибка означает неизвестную
// команду или неверные аргументы; неприменимая команда возвращает false без ошибки.
func (e *Editor) Run(name string, args extensions.Args) (bool, error) {
	switch name {
	case "undo":
		return e.Undo(), nil
	case "redo":
		return e.Redo(), nil
	}
	factory, err := e.reg.Command(name)
	if err != nil {
		return false, err
	}
	cmd, err := factory(args)
	if err != nil {
		return false, err
	}
	return e.Exec(cmd), nil
}

// Commands имена всех команд, доступных через Run.
func (e *Editor) Commands() []string {
	return append(e.reg.Commands(""), "redo", "undo")
}

// dispatch применяет транзакцию и ставит в очередь события.
func (e *Editor) dispatch(tr *state.Transaction) {
	prev := e.state
	next := prev.Apply(tr)
	if tr.DocChanged() {
		if add, ok := tr.Meta(state.MetaAddToHistory).(bool); !ok || add {
			e.history.record(snapshot{doc: prev.Doc, sel: prev.Selection})
		}
	}
	e.state = next

	if tr.DocChanged() {
		e.mapBindings(func(pos int) (int, bool) { return tr.Mapping.MapNode(pos) })
	}

	e.queue(EventData{Event: EventTransaction, Transaction: tr, State: next})
	if prevent, _ := tr.Meta(state.MetaPreventUpdate).(bool); tr.DocChanged() && !prevent {
		e.queue(EventData{Event: EventUpdate, Transaction: tr, State: next})
	}
	if !next.Selection.Eq(prev.Selection) {
		e.queue(EventData{Event: EventSelectionUpdate, Transaction: tr, State: next})
	}
	e.queueToolbar()
}

// restore заменяет состояние снимком истории.
func (e *Editor) restore(s snapshot) {
	prev := e.state
	e.state = state.New(e.schema, s.doc, s.sel)
	e.mapBindings(func(pos int) (int, bool) { return pos, true })

	e.queue(EventData{Event: EventUpdate, State: e.state})
	if !e.state.Selection.Eq(prev.Selection) {
		e.queue(EventData{Event: EventSelectionUpdate, State: e.state})
	}
	e.queueToolbar()
}

func (e *Editor) snap() snapshot {
	return snapshot{doc: e.state.Doc, sel: e.state.Selection}
}

func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.unlock()
	if e.view.open {
		return false
	}
	prev, ok := e.history.back(e.snap())
	if !ok {
		return false
	}
	e.restore(prev)
	return true
}

func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.unlock()
	if e.view.open {
		return false
	}
	next, ok := e.history.forward(e.snap())
	if !ok {
		return false
	}
	e.restore(next)
	return true
}

// SetSelection текстовое выделение; границы подтягиваются к допустимым позициям.
func (e *Editor) SetSelection(anchor, head int) {
	e.mu.Lock()
	defer e.unlock()
	tr := e.state.Tr()
	tr.SetSelection(state.NewTextSelection(e.state.Doc, anchor, head))
	e.dispatch(tr)
}

// SelectNode выделяет узел, начинающийся в pos.
func (e *Editor) SelectNode(pos int) error {
	e.mu.Lock()
	defer e.unlock()
	sel, err := state.NewNodeSelection(e.state.Doc, pos)
	if err != nil {
		return err
	}
	tr := e.state.Tr()
	tr.SetSelection(sel)
	e.dispatch(tr)
	return nil
}

func (e *Editor) Toolbar() syncstate.Toolbar {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.toolbar()
}

func (e *Editor) toolbar() syncstate.Toolbar {
	return syncstate.Compute(e.state, syncstate.Options{
		CanUndo:            e.history.canUndo(),
		CanRedo:            e.history.canRedo(),
		IsMarkupView:       e.view.open,
		IsFormatting:       e.view.formatting,
		FormatterAvailable: e.formatter.Available(),
	})
}

func (e *Editor) queueToolbar() {
	e.queue(EventData{Event: EventToolbar, State: e.state, Toolbar: e.toolbar()})
}

func (e *Editor) parseMarkup(src string, sanitize bool) (*model.Node, error) {
	if sanitize {
		src = e.sanitizer.Sanitize(src)
	}
	return markup.Parse(e.reg, src)
}

// GetMarkup документ в виде HTML-разметки.
func (e *Editor) GetMarkup() string {
	return markup.Render(e.reg, e.Doc())
}

// SetMarkup заменяет документ разобранной разметкой. Замена попадает в историю.
// emitEvents=false подавляет событие update.
func (e *Editor) SetMarkup(src string, emitEvents bool) error {
	doc, err := e.parseMarkup(src, e.sanitize)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.unlock()
	return e.replaceDoc(doc, emitEvents)
}

func (e *Editor) replaceDoc(doc *model.Node, emitEvents bool) error {
	if e.view.formatting {
		return ErrFormatInProgress
	}
	tr := e.state.Tr()
	if err := tr.Replace(0, e.state.Doc.ContentSize(), doc.Content...); err != nil {
		return err
	}
	tr.SetSelection(state.AtStart(tr.Doc))
	tr.SetMeta(state.MetaOrigin, "setContent")
	if !emitEvents {
		tr.SetMeta(state.MetaPreventUpdate, true)
	}
	e.dispatch(tr)
	if e.view.open {
		e.view.reset(markup.Render(e.reg, e.state.Doc))
	}
	return nil
}

// GetJSON документ в формате TipTap JSON.
func (e *Editor) GetJSON() (json.RawMessage, error) {
	return tiptap.Serialize(e.Doc())
}

func (e *Editor) SetJSON(data []byte, emitEvents bool) error {
	doc, err := tiptap.ParseJSON(bytes.NewReader(data), e.schema)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.unlock()
	return e.replaceDoc(doc, emitEvents)
}

// Markdown экспорт документа в Markdown.
func (e *Editor) Markdown() (string, error) {
	var sb strings.Builder
	if err := markup.RenderMarkdown(&sb, e.Doc()); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Close закрывает все привязки отображения.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range e.bindings {
		b.Dispose()
	}
	e.bindings = nil
}
