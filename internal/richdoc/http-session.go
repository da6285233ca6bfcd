package richdoc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/aisa-it/richdoc/internal/richdoc/apierrors"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/markup"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/tiptap"
	filestorage "github.com/aisa-it/richdoc/internal/richdoc/file-storage"
	"github.com/aisa-it/richdoc/internal/richdoc/sessions"
	"github.com/labstack/echo/v4"
)

func (s *Services) AddSessionServices(g *echo.Group) {
	g.POST("sessions/", s.createSession)

	sessionGroup := g.Group("sessions/:sessionId/", s.SessionMiddleware)
	sessionGroup.DELETE("", s.deleteSession)
	sessionGroup.GET("markup/", s.getMarkup)
	sessionGroup.PUT("markup/", s.setMarkup)
	sessionGroup.GET("json/", s.getJSON)
	sessionGroup.PUT("json/", s.setJSON)
	sessionGroup.GET("markdown/", s.getMarkdown)
	sessionGroup.GET("toolbar/", s.getToolbar)
	sessionGroup.POST("selection/", s.setSelection)
	sessionGroup.POST("commands/:name/", s.runCommand)
	sessionGroup.POST("paste/", s.paste)
	sessionGroup.POST("files/", s.uploadFiles)
	sessionGroup.POST("markup-view/:op/", s.markupView)
	sessionGroup.POST("embeds/:pos/pointer/", s.embedPointer)
}

// bindRequest разбирает и проверяет тело запроса.
func bindRequest(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apierrors.ErrInvalidRequest.WithFormattedMessage(err.Error())
	}
	if err := c.Validate(req); err != nil {
		return apierrors.ErrInvalidRequest.WithFormattedMessage(err.Error())
	}
	return nil
}

func stateResponse(session *sessions.Session, applied bool) StateResponse {
	return StateResponse{
		Applied:  applied,
		Toolbar:  session.Editor.Toolbar(),
		Warnings: session.Warnings(),
	}
}

// createSession godoc
// @Summary Создание сессии редактора
// @Description Создает редактор с начальной разметкой или TipTap JSON
// @Tags Sessions
// @Accept json
// @Produce json
// @Param data body CreateSessionRequest false "Начальное содержимое"
// @Success 201 {object} SessionResponse
// @Failure 422 {object} apierrors.DefinedError
// @Router /api/sessions/ [post]
func (s *Services) createSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}
	if !s.limiter.CanCreateSession(c.RealIP()) {
		return EErrorDefined(c, apierrors.ErrSessionLimit)
	}

	content := req.Markup
	if req.hasJSON() {
		schema, err := s.registry.Schema()
		if err != nil {
			return EError(c, err)
		}
		doc, err := tiptap.ParseJSON(bytes.NewReader(req.JSON), schema)
		if err != nil {
			return EErrorDefined(c, apierrors.ErrInvalidDocument)
		}
		content = markup.Render(s.registry, doc)
	}

	session, err := s.sessionsManager.Create(s.editorOptions(content)...)
	if err != nil {
		if _, ok := defined(err); ok {
			return EError(c, err)
		}
		return EErrorDefined(c, apierrors.ErrInvalidMarkup)
	}
	s.metrics.Sessions.Set(float64(s.sessionsManager.Len()))

	return c.JSON(http.StatusCreated, SessionResponse{
		ID:      session.ID.String(),
		Toolbar: session.Editor.Toolbar(),
	})
}

func (s *Services) deleteSession(c echo.Context) error {
	session := c.(SessionContext).Session
	s.sessionsManager.Delete(session.ID)
	s.metrics.Sessions.Set(float64(s.sessionsManager.Len()))
	return c.NoContent(http.StatusNoContent)
}

func (s *Services) getMarkup(c echo.Context) error {
	session := c.(SessionContext).Session
	return c.JSON(http.StatusOK, MarkupResponse{Markup: session.Editor.GetMarkup()})
}

// setMarkup godoc
// @Summary Замена документа разметкой
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sessionId path string true "ID сессии"
// @Param data body MarkupRequest true "Разметка"
// @Success 200 {object} StateResponse
// @Failure 409 {object} apierrors.DefinedError
// @Failure 422 {object} apierrors.DefinedError
// @Router /api/sessions/{sessionId}/markup/ [put]
func (s *Services) setMarkup(c echo.Context) error {
	session := c.(SessionContext).Session
	var req MarkupRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}
	if err := session.Editor.SetMarkup(req.Markup, req.emit()); err != nil {
		if _, ok := defined(err); ok {
			return EError(c, err)
		}
		return EErrorDefined(c, apierrors.ErrInvalidMarkup)
	}
	return c.JSON(http.StatusOK, stateResponse(session, true))
}

func (s *Services) getJSON(c echo.Context) error {
	session := c.(SessionContext).Session
	data, err := session.Editor.GetJSON()
	if err != nil {
		return EError(c, err)
	}
	return c.JSONBlob(http.StatusOK, data)
}

func (s *Services) setJSON(c echo.Context) error {
	session := c.(SessionContext).Session
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return EError(c, err)
	}
	if err := session.Editor.SetJSON(data, c.QueryParam("emitEvents") != "false"); err != nil {
		if _, ok := defined(err); ok {
			return EError(c, err)
		}
		return EErrorDefined(c, apierrors.ErrInvalidDocument)
	}
	return c.JSON(http.StatusOK, stateResponse(session, true))
}

func (s *Services) getMarkdown(c echo.Context) error {
	session := c.(SessionContext).Session
	md, err := session.Editor.Markdown()
	if err != nil {
		return EErrorDefined(c, apierrors.ErrExportFailed)
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

func (s *Services) getToolbar(c echo.Context) error {
	session := c.(SessionContext).Session
	return c.JSON(http.StatusOK, session.Editor.Toolbar())
}

func (s *Services) setSelection(c echo.Context) error {
	session := c.(SessionContext).Session
	var req SelectionRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}
	if req.Node {
		if err := session.Editor.SelectNode(*req.Anchor); err != nil {
			return EErrorDefined(c, apierrors.ErrInvalidSelection)
		}
		return c.JSON(http.StatusOK, stateResponse(session, true))
	}
	head := *req.Anchor
	if req.Head != nil {
		head = *req.Head
	}
	session.Editor.SetSelection(*req.Anchor, head)
	return c.JSON(http.StatusOK, stateResponse(session, true))
}

// runCommand godoc
// @Summary Выполнение именованной команды
// @Description Неприменимая команда не является ошибкой: возвращается applied=false
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sessionId path string true "ID сессии"
// @Param name path string true "Имя команды"
// @Param data body CommandRequest false "Аргументы"
// @Success 200 {object} StateResponse
// @Failure 400 {object} apierrors.DefinedError
// @Failure 404 {object} apierrors.DefinedError
// @Router /api/sessions/{sessionId}/commands/{name}/ [post]
func (s *Services) runCommand(c echo.Context) error {
	session := c.(SessionContext).Session
	var req CommandRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}

	applied, err := session.Editor.Run(req.Name, extensions.Args(req.Args))
	if err != nil {
		if errors.Is(err, extensions.ErrUnknownCommand) {
			return EErrorDefined(c, apierrors.ErrUnknownCommand.WithFormattedMessage(req.Name))
		}
		er := apierrors.ErrInvalidCommandArgs
		er.Err = err.Error()
		return EErrorDefined(c, er)
	}
	s.metrics.Commands.WithLabelValues(req.Name, result(applied)).Inc()
	return c.JSON(http.StatusOK, stateResponse(session, applied))
}

func (s *Services) paste(c echo.Context) error {
	session := c.(SessionContext).Session
	var req PasteRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}
	applied := session.Editor.HandlePaste(req.Text, req.HTML)
	return c.JSON(http.StatusOK, stateResponse(session, applied))
}

// readBlob читает файл формы целиком. Тип содержимого берется из заголовка части,
// а если его нет, определяется по содержимому.
func readBlob(fh *multipart.FileHeader) (filestorage.Blob, error) {
	f, err := fh.Open()
	if err != nil {
		return filestorage.Blob{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return filestorage.Blob{}, err
	}
	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" || contentType == echo.MIMEOctetStream {
		contentType = http.DetectContentType(data)
	}
	return filestorage.Blob{Name: fh.Filename, ContentType: contentType, Data: data}, nil
}

func blobKind(b filestorage.Blob) string {
	switch {
	case b.IsImage():
		return "image"
	case b.IsVideo():
		return "video"
	}
	return "file"
}

// uploadFiles godoc
// @Summary Вставка файлов
// @Description Один файл вставляется в позицию выделения, несколько обрабатываются как перетаскивание
// @Tags Sessions
// @Accept multipart/form-data
// @Produce json
// @Param sessionId path string true "ID сессии"
// @Param file formData file true "Файлы"
// @Success 200 {object} FilesResponse
// @Failure 415 {object} apierrors.DefinedError
// @Failure 502 {object} apierrors.DefinedError
// @Router /api/sessions/{sessionId}/files/ [post]
func (s *Services) uploadFiles(c echo.Context) error {
	session := c.(SessionContext).Session
	form, err := c.MultipartForm()
	if err != nil {
		return EErrorDefined(c, apierrors.ErrFileRequired)
	}
	headers := form.File["file"]
	if len(headers) == 0 {
		return EErrorDefined(c, apierrors.ErrFileRequired)
	}

	blobs := make([]filestorage.Blob, 0, len(headers))
	var total int64
	for _, fh := range headers {
		blob, err := readBlob(fh)
		if err != nil {
			return EError(c, err)
		}
		blobs = append(blobs, blob)
		total += blob.Size()
	}
	if !s.limiter.CanUpload(session.ID, total) {
		return EErrorDefined(c, apierrors.ErrUploadQuota)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.cfg.UploadTimeout())
	defer cancel()

	var inserted int
	if len(blobs) == 1 {
		applied, err := session.Editor.InsertFile(ctx, blobs[0])
		s.metrics.Uploads.WithLabelValues(blobKind(blobs[0]), result(err == nil && applied)).Inc()
		if err != nil {
			return EError(c, err)
		}
		if applied {
			inserted = 1
		}
	} else {
		inserted, err = session.Editor.HandleDrop(ctx, blobs, c.FormValue("text"))
		if err != nil {
			return EError(c, err)
		}
		for _, b := range blobs {
			s.metrics.Uploads.WithLabelValues(blobKind(b), "dropped").Inc()
		}
	}

	return c.JSON(http.StatusOK, FilesResponse{
		Inserted: inserted,
		Toolbar:  session.Editor.Toolbar(),
		Warnings: session.Warnings(),
	})
}

// markupView godoc
// @Summary Режим правки разметки
// @Description op: open, source, format, close. Для format и close можно передать новый исходник
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sessionId path string true "ID сессии"
// @Param op path string true "Операция"
// @Param data body MarkupViewRequest false "Исходник"
// @Success 200 {object} MarkupViewResponse
// @Failure 409 {object} apierrors.DefinedError
// @Router /api/sessions/{sessionId}/markup-view/{op}/ [post]
func (s *Services) markupView(c echo.Context) error {
	session := c.(SessionContext).Session
	var req MarkupViewRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}
	ctx := c.Request().Context()
	ed := session.Editor

	var err error
	switch op := c.Param("op"); op {
	case "open":
		err = ed.OpenMarkupView(ctx)
	case "source":
		if req.Source == nil {
			return EErrorDefined(c, apierrors.ErrInvalidRequest.WithFormattedMessage("source is required"))
		}
		err = ed.SetMarkupSource(*req.Source)
	case "format":
		if req.Source != nil {
			if err := ed.SetMarkupSource(*req.Source); err != nil {
				return EError(c, err)
			}
		}
		err = ed.FormatMarkupView(ctx)
		s.metrics.Formats.WithLabelValues(result(err == nil)).Inc()
		if err != nil {
			if _, ok := defined(err); !ok {
				er := apierrors.ErrFormatFailed
				er.Err = err.Error()
				return EErrorDefined(c, er)
			}
		}
	case "close":
		if req.Source != nil {
			if err := ed.SetMarkupSource(*req.Source); err != nil {
				return EError(c, err)
			}
		}
		err = ed.CloseMarkupView(ctx)
		if err != nil {
			if _, ok := defined(err); !ok {
				return EErrorDefined(c, apierrors.ErrInvalidMarkup)
			}
		}
	default:
		return c.NoContent(http.StatusNotFound)
	}
	if err != nil {
		return EError(c, err)
	}

	source, open := ed.MarkupSource()
	return c.JSON(http.StatusOK, MarkupViewResponse{
		Open:     open,
		Source:   source,
		Toolbar:  ed.Toolbar(),
		Warnings: session.Warnings(),
	})
}
