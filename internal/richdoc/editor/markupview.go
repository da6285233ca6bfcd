package editor

import (
	"context"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/markup"
)

// markupView режим правки исходной разметки. Пока он открыт, команды над документом
// подавлены; документ меняется только при закрытии.
type markupView struct {
	open       bool
	formatting bool
	// base разметка документа на момент открытия
	base   string
	source string
}

func (v *markupView) reset(src string) {
	v.base = src
	v.source = src
}

// MarkupSource текущий исходник режима разметки.
func (e *Editor) MarkupSource() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.source, e.view.open
}

// OpenMarkupView открывает режим разметки. При включенном форматировании при открытии
// исходник сразу форматируется; ошибка форматера только выдается как предупреждение.
func (e *Editor) OpenMarkupView(ctx context.Context) error {
	e.mu.Lock()
	if e.view.formatting {
		e.unlock()
		return ErrFormatInProgress
	}
	if e.view.open {
		e.unlock()
		return nil
	}
	e.view.open = true
	e.view.reset(markup.Render(e.reg, e.state.Doc))
	e.queueToolbar()
	autoFormat := e.formatOnOpen && e.formatter.Available()
	e.unlock()

	if autoFormat {
		if err := e.FormatMarkupView(ctx); err != nil {
			e.logger.Debug("Format on open", "err", err)
		}
	}
	return nil
}

// SetMarkupSource заменяет исходник режима разметки.
func (e *Editor) SetMarkupSource(src string) error {
	e.mu.Lock()
	defer e.unlock()
	if !e.view.open {
		return ErrMarkupViewClosed
	}
	if e.view.formatting {
		return ErrFormatInProgress
	}
	e.view.source = src
	return nil
}

// FormatMarkupView форматирует исходник. Форматер вызывается вне блокировки; повторный
// вызов и переключение режима во время форматирования отклоняются с ErrFormatInProgress.
// При ошибке форматера исходник не меняется, а ошибка выдается событием warning.
func (e *Editor) FormatMarkupView(ctx context.Context) error {
	e.mu.Lock()
	switch {
	case !e.view.open:
		e.unlock()
		return ErrMarkupViewClosed
	case e.view.formatting:
		e.unlock()
		return ErrFormatInProgress
	case !e.formatter.Available():
		e.unlock()
		return markup.ErrFormatterUnavailable
	}
	e.view.formatting = true
	src := e.view.source
	handle := e.formatter
	e.queueToolbar()
	e.unlock()

	out, err := handle.Format(ctx, src)

	e.mu.Lock()
	defer e.unlock()
	e.view.formatting = false
	if err != nil {
		e.warn(err)
	} else {
		e.view.source = out
	}
	e.queueToolbar()
	return err
}

// CloseMarkupView закрывает режим разметки и применяет исходник, если он менялся.
// Если применить исходник не удалось, режим остается открытым.
func (e *Editor) CloseMarkupView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.unlock()
	if e.view.formatting {
		return ErrFormatInProgress
	}
	if !e.view.open {
		return nil
	}
	if e.view.source != e.view.base {
		doc, err := e.parseMarkup(e.view.source, e.sanitize)
		if err == nil {
			err = e.replaceDoc(doc, true)
		}
		if err != nil {
			e.warn(err)
			return err
		}
	}
	e.view = markupView{}
	e.queueToolbar()
	return nil
}
