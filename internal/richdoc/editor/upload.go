package editor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/commands"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/model"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/state"
	filestorage "github.com/aisa-it/richdoc/internal/richdoc/file-storage"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnsupportedFile = errors.New("file type cannot be inserted")
	// ErrFileNotInserted файл загружен, но вставить его в текущую позицию нельзя
	ErrFileNotInserted = errors.New("uploaded file was not inserted")
)

// UploadError неудачная загрузка файла. Вставка после нее идет по запасному пути или отменяется.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// dropConcurrency сколько файлов из одного перетаскивания загружается одновременно
const dropConcurrency = 4

type resolvedFile struct {
	blob filestorage.Blob
	url  string
}

// resolve загружает файл вне блокировки редактора. Если загрузчика нет или он
// вернул ошибку, изображение встраивается data: ссылкой, видео получает blob: ссылку.
// Узел документа здесь не создается.
func (e *Editor) resolve(ctx context.Context, blob filestorage.Blob) (resolvedFile, error) {
	if err := ctx.Err(); err != nil {
		return resolvedFile{}, err
	}
	var uploadErr error
	if e.uploader != nil {
		url, err := e.uploader.Upload(ctx, blob)
		if err == nil {
			return resolvedFile{blob: blob, url: url}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return resolvedFile{}, ctxErr
		}
		uploadErr = &UploadError{Name: blob.Name, Err: err}
	}

	if !blob.IsImage() && !blob.IsVideo() {
		if uploadErr != nil {
			return resolvedFile{}, uploadErr
		}
		return resolvedFile{}, fmt.Errorf("%w: %s", ErrUnsupportedFile, blob.Name)
	}
	if uploadErr != nil {
		e.mu.Lock()
		e.warn(uploadErr)
		e.unlock()
	}
	if blob.IsImage() {
		return resolvedFile{blob: blob, url: dataURI(blob)}, nil
	}
	return resolvedFile{blob: blob, url: e.objectURLs.Create(blob)}, nil
}

func dataURI(blob filestorage.Blob) string {
	return "data:" + blob.ContentType + ";base64," + base64.StdEncoding.EncodeToString(blob.Data)
}

// insertCommand команда вставки загруженного файла: изображение, видео или ссылка с именем файла.
func (e *Editor) insertCommand(f resolvedFile) state.Command {
	switch {
	case f.blob.IsImage():
		return commands.SetImage(f.url, f.blob.Name)
	case f.blob.IsVideo():
		return commands.SetVideo(f.url)
	}
	return func(s *state.State) (*state.Transaction, bool) {
		link, err := s.Schema.Mark("link", model.Attrs{"href": f.url})
		if err != nil {
			return nil, false
		}
		name := f.blob.Name
		if name == "" {
			name = f.url
		}
		return commands.InsertContent(s.Schema.Text(name, link))(s)
	}
}

// InsertFile загружает файл и вставляет его в позицию выделения.
// false без ошибки: вставка в текущем состоянии неприменима.
func (e *Editor) InsertFile(ctx context.Context, blob filestorage.Blob) (bool, error) {
	f, err := e.resolve(ctx, blob)
	if err != nil {
		e.mu.Lock()
		e.warn(err)
		e.unlock()
		return false, err
	}
	return e.insertResolved(f), nil
}

// insertResolved вставляет загруженный файл; неудача уходит предупреждением.
func (e *Editor) insertResolved(f resolvedFile) bool {
	e.mu.Lock()
	defer e.unlock()
	if e.exec(e.insertCommand(f)) {
		return true
	}
	e.warn(&UploadError{Name: f.blob.Name, Err: ErrFileNotInserted})
	return false
}

// HandleDrop вставляет перетащенные файлы в порядке перетаскивания. Файлы загружаются
// параллельно; файл, который не удалось вставить, пропускается с предупреждением.
// Без файлов перетащенный текст обрабатывается как вставка.
func (e *Editor) HandleDrop(ctx context.Context, files []filestorage.Blob, text string) (int, error) {
	if len(files) == 0 {
		if e.HandlePaste(text, "") {
			return 1, nil
		}
		return 0, nil
	}

	resolved := make([]*resolvedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dropConcurrency)
	for i, blob := range files {
		g.Go(func() error {
			f, err := e.resolve(gctx, blob)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.mu.Lock()
				e.warn(err)
				e.unlock()
				return nil
			}
			resolved[i] = &f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	inserted := 0
	for _, f := range resolved {
		if f != nil && e.insertResolved(*f) {
			inserted++
		}
	}
	return inserted, nil
}
