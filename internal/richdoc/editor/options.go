package editor

import (
	"log/slog"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/markup"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/providers"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/resize"
	filestorage "github.com/aisa-it/richdoc/internal/richdoc/file-storage"
)

type options struct {
	registry     *extensions.Registry
	normalizer   *providers.Normalizer
	content      string
	uploader     filestorage.Uploader
	objectURLs   *filestorage.ObjectURLs
	formatter    *markup.FormatterHandle
	formatOnOpen bool
	resize       resize.Config
	historyLimit int
	sanitize     bool
	logger       *slog.Logger
}

type Option func(*options)

// WithRegistry набор расширений и именованных команд. Реестр должен использовать тот же
// нормализатор провайдеров, что передан в WithNormalizer.
func WithRegistry(reg *extensions.Registry) Option {
	return func(o *options) { o.registry = reg }
}

func WithNormalizer(n *providers.Normalizer) Option {
	return func(o *options) { o.normalizer = n }
}

// WithContent начальная разметка документа.
func WithContent(markup string) Option {
	return func(o *options) { o.content = markup }
}

func WithUploader(u filestorage.Uploader) Option {
	return func(o *options) { o.uploader = u }
}

// WithObjectURLs реестр локальных ссылок для видео, которые не удалось загрузить.
func WithObjectURLs(urls *filestorage.ObjectURLs) Option {
	return func(o *options) { o.objectURLs = urls }
}

// WithFormatter форматер режима разметки. formatOnOpen форматирует исходник при открытии.
func WithFormatter(h *markup.FormatterHandle, formatOnOpen bool) Option {
	return func(o *options) {
		o.formatter = h
		o.formatOnOpen = formatOnOpen
	}
}

func WithResize(cfg resize.Config) Option {
	return func(o *options) { o.resize = cfg }
}

// WithHistoryLimit глубина истории; 0 отключает undo.
func WithHistoryLimit(limit int) Option {
	return func(o *options) { o.historyLimit = limit }
}

// WithSanitize очищать ли разметку из SetMarkup. Вставленная разметка очищается всегда.
func WithSanitize(on bool) Option {
	return func(o *options) { o.sanitize = on }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
