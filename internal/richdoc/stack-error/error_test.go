package stack_error

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpload = errors.New("upload failed")

func upload() error {
	return TrackErrorStack(errUpload)
}

func insert() error {
	return TrackErrorStack(upload()).WithSession("s1").WithOp("files")
}

func TestTrackErrorStack(t *testing.T) {
	err := insert()
	assert.ErrorIs(t, err, errUpload)
	assert.Equal(t, "upload failed", err.Error())

	var te *TrackerError
	require.ErrorAs(t, err, &te)
	require.Len(t, te.Trace, 2)
	assert.Contains(t, te.Trace[0], "error_test.go")
	assert.Equal(t, "s1", te.Session)

	te.WithSession("s2").WithOp("paste")
	assert.Equal(t, "s1", te.Session)
	assert.Equal(t, "files", te.Op)
}

func TestGetError(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/sessions/s1/files/?token=x", nil), httptest.NewRecorder())
	GetError(c, insert())

	out := buf.String()
	assert.Contains(t, out, "stack_error.session=s1")
	assert.Contains(t, out, "stack_error.op=files")
	assert.Contains(t, out, "path=/api/sessions/s1/files/")
	assert.NotContains(t, out, "token=x")

	buf.Reset()
	GetError(nil, errUpload)
	assert.Contains(t, buf.String(), `raw_error="upload failed"`)
}
