package richdoc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/aisa-it/richdoc/internal/richdoc/apierrors"
	"github.com/aisa-it/richdoc/internal/richdoc/editor"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/markup"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/resize"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/tiptap"
	"github.com/aisa-it/richdoc/internal/richdoc/sessions"
	stack_error "github.com/aisa-it/richdoc/internal/richdoc/stack-error"
	"github.com/labstack/echo/v4"
)

// definedErrors соответствие ошибок редактора ошибкам API.
var definedErrors = []struct {
	err     error
	defined apierrors.DefinedError
}{
	{sessions.ErrNotFound, apierrors.ErrSessionNotFound},
	{sessions.ErrExpired, apierrors.ErrSessionExpired},
	{sessions.ErrLimit, apierrors.ErrSessionLimit},
	{editor.ErrFormatInProgress, apierrors.ErrFormatInProgress},
	{editor.ErrMarkupViewClosed, apierrors.ErrMarkupViewClosed},
	{editor.ErrNotResizable, apierrors.ErrNotResizable},
	{editor.ErrUnsupportedFile, apierrors.ErrUnsupportedFile},
	{markup.ErrFormatterUnavailable, apierrors.ErrFormatterUnavailable},
	{resize.ErrDisposed, apierrors.ErrBindingDisposed},
	{tiptap.ErrNotDocument, apierrors.ErrInvalidDocument},
	{extensions.ErrUnknownCommand, apierrors.ErrUnknownCommand},
}

// defined ищет ошибку API для ошибки редактора.
func defined(err error) (apierrors.DefinedError, bool) {
	var de apierrors.DefinedError
	if errors.As(err, &de) {
		return de, true
	}
	for _, d := range definedErrors {
		if errors.Is(err, d.err) {
			return d.defined.WithFormattedMessage(), true
		}
	}
	var uploadErr *editor.UploadError
	if errors.As(err, &uploadErr) {
		return apierrors.ErrUploadFailed, true
	}
	return apierrors.DefinedError{}, false
}

// EError ответ с ошибкой. Известные ошибки отдаются своим кодом, остальные пишутся в лог
// с трассой и отдаются как внутренняя ошибка.
func EError(c echo.Context, err error) error {
	if de, ok := defined(err); ok {
		return EErrorDefined(c, de)
	}
	if errors.Is(err, context.Canceled) {
		return c.NoContent(499)
	}
	if err == nil {
		slog.Error("Unknown API error",
			"method", c.Request().Method,
			"url", c.Request().URL,
			getCallerFile(),
		)
		return EErrorDefined(c, apierrors.ErrGeneric)
	}

	te := stack_error.TrackErrorStack(err).WithOp(c.Path())
	if sc, ok := c.(SessionContext); ok {
		te.WithSession(sc.Session.ID.String())
	}
	stack_error.GetError(c, te)
	return EErrorDefined(c, apierrors.ErrGeneric)
}

// EErrorMsgStatus ответ с заданным статусом и текстом ошибки.
func EErrorMsgStatus(c echo.Context, err error, status int) error {
	if status == http.StatusRequestEntityTooLarge {
		return EErrorDefined(c, apierrors.ErrEntityToLarge)
	}

	er := apierrors.ErrGeneric
	er.StatusCode = status
	if err != nil {
		// Ignore log 404 error
		if status != http.StatusNotFound {
			slog.Error("API error",
				"err", err,
				"method", c.Request().Method,
				slog.Int("status", status),
				"url", c.Request().URL,
				getCallerFile(),
			)
		}
		er.Err = err.Error()
	}
	return EErrorDefined(c, er)
}

// EErrorDefined возвращает JSON-ответ с кодом статуса и сообщением об ошибке. Если код статуса не определен, используется 400 Bad Request.
func EErrorDefined(c echo.Context, err apierrors.DefinedError) error {
	if http.StatusText(err.StatusCode) == "" {
		err.StatusCode = http.StatusBadRequest
	}
	return c.JSON(err.StatusCode, err)
}

func getCallerFile() slog.Attr {
	_, path, no, ok := runtime.Caller(2)
	if !ok {
		return slog.Attr{}
	}
	_, file := filepath.Split(path)
	return slog.String("caller", fmt.Sprintf("%s:%d", file, no))
}
