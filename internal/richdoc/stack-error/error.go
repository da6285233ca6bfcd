package stack_error

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrackerError ошибка редактора с местами, через которые она прошла.
type TrackerError struct {
	Session string
	Op      string
	Trace   []string
	cause   error
}

func TrackErrorStack(err error) *TrackerError {
	var te *TrackerError
	if !errors.As(err, &te) {
		te = &TrackerError{cause: err}
	}
	te.Trace = append(te.Trace, callerFrame(err))
	return te
}

// WithSession сессия, в которой возникла ошибка. Первое значение сохраняется.
func (te *TrackerError) WithSession(id string) *TrackerError {
	if te.Session == "" {
		te.Session = id
	}
	return te
}

// WithOp операция редактора: команда, маршрут или шаг загрузки.
func (te *TrackerError) WithOp(op string) *TrackerError {
	if te.Op == "" {
		te.Op = op
	}
	return te
}

func (te *TrackerError) Error() string {
	if te.cause != nil {
		return te.cause.Error()
	}
	return "TrackerError"
}

func (te *TrackerError) Unwrap() error {
	return te.cause
}

func (te *TrackerError) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("err", te.Error())}
	if te.Session != "" {
		attrs = append(attrs, slog.String("session", te.Session))
	}
	if te.Op != "" {
		attrs = append(attrs, slog.String("op", te.Op))
	}
	if len(te.Trace) > 0 {
		attrs = append(attrs, slog.String("trace", strings.Join(te.Trace, " <- ")))
	}
	return slog.GroupValue(attrs...)
}

// GetError пишет ошибку одной записью вместе с запросом, если он есть.
func GetError(c echo.Context, err error) {
	attrs := []any{}
	var te *TrackerError
	if errors.As(err, &te) {
		attrs = append(attrs, slog.Any("stack_error", te))
	} else {
		attrs = append(attrs, slog.String("raw_error", err.Error()))
	}
	if c != nil {
		attrs = append(attrs,
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path))
	}
	slog.Error("stack error", attrs...)
}

func callerFrame(err error) string {
	_, path, no, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d %s", filepath.Base(path), no, err.Error())
}
