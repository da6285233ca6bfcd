package richdoc

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aisa-it/richdoc/internal/richdoc/apierrors"
	"github.com/aisa-it/richdoc/internal/richdoc/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestServer(t *testing.T, env map[string]string) (*Services, *echo.Echo) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	s, err := NewServices(t.Context(), config.ReadConfig(), "test")
	require.NoError(t, err)
	s.registerer = prometheus.NewRegistry()
	t.Cleanup(s.Close)
	return s, s.Router()
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertAPIError(t *testing.T, rec *httptest.ResponseRecorder, want apierrors.DefinedError) {
	t.Helper()
	assert.Equal(t, want.StatusCode, rec.Code, rec.Body.String())
	assert.Equal(t, want.Code, decode[apierrors.DefinedError](t, rec).Code)
}

func createSession(t *testing.T, e *echo.Echo, markup string) string {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/api/sessions/", CreateSessionRequest{Markup: markup})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[SessionResponse](t, rec)
	require.NotEmpty(t, resp.ID)
	return "/api/sessions/" + resp.ID + "/"
}

func getMarkup(t *testing.T, e *echo.Echo, base string) string {
	t.Helper()
	rec := doJSON(t, e, http.MethodGet, base+"markup/", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[MarkupResponse](t, rec).Markup
}

func TestVersionAndHealth(t *testing.T) {
	_, e := newTestServer(t, nil)

	rec := doJSON(t, e, http.MethodGet, "/api/version/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v struct {
		Version  string   `json:"version"`
		Commands []string `json:"commands"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "test", v.Version)
	assert.Contains(t, v.Commands, "bold")
	assert.Equal(t, "richdoc", rec.Header().Get(echo.HeaderServer))

	rec = doJSON(t, e, http.MethodGet, "/api/_health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	s, e := newTestServer(t, nil)
	base := createSession(t, e, "<p>hello</p>")
	assert.Equal(t, 1, s.sessionsManager.Len())
	assert.Contains(t, getMarkup(t, e, base), "hello")

	rec := doJSON(t, e, http.MethodPost, base+"selection/", map[string]int{"anchor": 1, "head": 6})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, e, http.MethodPost, base+"commands/bold/", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decode[StateResponse](t, rec)
	assert.True(t, state.Applied)
	assert.True(t, state.Toolbar.Marks["bold"])
	assert.True(t, state.Toolbar.CanUndo)
	assert.Contains(t, getMarkup(t, e, base), "<strong>hello</strong>")

	rec = doJSON(t, e, http.MethodGet, base+"markdown/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/markdown"))
	assert.Contains(t, rec.Body.String(), "hello")

	rec = doJSON(t, e, http.MethodPost, base+"commands/undo/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[StateResponse](t, rec).Applied)
	assert.NotContains(t, getMarkup(t, e, base), "<strong>")

	rec = doJSON(t, e, http.MethodGet, base+"toolbar/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"canRedo":true`))

	rec = doJSON(t, e, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.sessionsManager.Len())

	assertAPIError(t, doJSON(t, e, http.MethodGet, base+"markup/", nil), apierrors.ErrSessionNotFound)
	assertAPIError(t, doJSON(t, e, http.MethodGet, "/api/sessions/not-an-id/markup/", nil), apierrors.ErrSessionNotFound)
}

func TestCreateSessionNullJSON(t *testing.T) {
	_, e := newTestServer(t, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/sessions/", json.RawMessage(`{"markup":"<p>x</p>","json":null}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	base := "/api/sessions/" + decode[SessionResponse](t, rec).ID + "/"
	assert.Contains(t, getMarkup(t, e, base), "x")

	rec = doJSON(t, e, http.MethodPost, "/api/sessions/", json.RawMessage(`{"markup":"<p>y</p>","json":"  "}`))
	assertAPIError(t, rec, apierrors.ErrInvalidDocument)
}

func TestCommandErrors(t *testing.T) {
	_, e := newTestServer(t, nil)
	base := createSession(t, e, "<p>hello</p>")

	// неприменимая команда не ошибка
	rec := doJSON(t, e, http.MethodPost, base+"commands/deleteRow/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[StateResponse](t, rec).Applied)

	rec = doJSON(t, e, http.MethodPost, base+"commands/noSuchCommand/", nil)
	assertAPIError(t, rec, apierrors.ErrUnknownCommand)
	assert.Contains(t, rec.Body.String(), "noSuchCommand")

	rec = doJSON(t, e, http.MethodPost, base+"commands/insertTable/", CommandRequest{Args: map[string]any{"rows": "many"}})
	assertAPIError(t, rec, apierrors.ErrInvalidCommandArgs)

	rec = doJSON(t, e, http.MethodPost, base+"commands/Bad_name/", nil)
	assertAPIError(t, rec, apierrors.ErrInvalidRequest)

	rec = doJSON(t, e, http.MethodPost, base+"selection/", map[string]int{"anchor": 100})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodPost, base+"selection/", map[string]any{"anchor": 100, "node": true})
	assertAPIError(t, rec, apierrors.ErrInvalidSelection)

	rec = doJSON(t, e, http.MethodPost, base+"selection/", map[string]any{"head": 1})
	assertAPIError(t, rec, apierrors.ErrInvalidRequest)
}

func TestMarkupAndJSON(t *testing.T) {
	_, e := newTestServer(t, nil)
	base := createSession(t, e, "<p>hello</p>")

	rec := doJSON(t, e, http.MethodPut, base+"markup/", MarkupRequest{Markup: "<h2>world</h2>"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	markup := getMarkup(t, e, base)
	assert.Contains(t, markup, "<h2")
	assert.Contains(t, markup, "world")

	rec = doJSON(t, e, http.MethodGet, base+"json/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := rec.Body.Bytes()
	assert.Contains(t, string(doc), `"type":"doc"`)

	// новая сессия из JSON дает ту же разметку
	rec = doJSON(t, e, http.MethodPost, "/api/sessions/", CreateSessionRequest{JSON: doc})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	copyBase := "/api/sessions/" + decode[SessionResponse](t, rec).ID + "/"
	assert.Equal(t, markup, getMarkup(t, e, copyBase))

	req := httptest.NewRequest(http.MethodPut, copyBase+"json/", strings.NewReader(`{"type":"paragraph"`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	bad := httptest.NewRecorder()
	e.ServeHTTP(bad, req)
	assertAPIError(t, bad, apierrors.ErrInvalidDocument)

	rec = doJSON(t, e, http.MethodPost, "/api/sessions/", CreateSessionRequest{JSON: json.RawMessage(`{"type":"table"}`)})
	assertAPIError(t, rec, apierrors.ErrInvalidDocument)
}

func TestPaste(t *testing.T) {
	_, e := newTestServer(t, nil)
	base := createSession(t, e, "<p></p>")

	rec := doJSON(t, e, http.MethodPost, base+"paste/", PasteRequest{HTML: `<p>safe<script>alert(1)</script></p>`})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[StateResponse](t, rec).Applied)
	markup := getMarkup(t, e, base)
	assert.Contains(t, markup, "safe")
	assert.NotContains(t, markup, "script")

	rec = doJSON(t, e, http.MethodPost, base+"paste/", PasteRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[StateResponse](t, rec).Applied)
}

func TestMarkupView(t *testing.T) {
	_, e := newTestServer(t, map[string]string{"RICHDOC_FORMATTER": "none"})
	base := createSession(t, e, "<p>hello</p>")

	assertAPIError(t, doJSON(t, e, http.MethodPost, base+"markup-view/format/", nil), apierrors.ErrMarkupViewClosed)

	rec := doJSON(t, e, http.MethodPost, base+"markup-view/open/", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[MarkupViewResponse](t, rec)
	assert.True(t, view.Open)
	assert.Contains(t, view.Source, "hello")
	assert.True(t, view.Toolbar.IsMarkupView)
	assert.False(t, view.Toolbar.CanFormat)

	// команды в режиме разметки не применяются
	rec = doJSON(t, e, http.MethodPost, base+"commands/selectAll/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[StateResponse](t, rec).Applied)

	assertAPIError(t, doJSON(t, e, http.MethodPost, base+"markup-view/format/", nil), apierrors.ErrFormatterUnavailable)
	assertAPIError(t, doJSON(t, e, http.MethodPost, base+"markup-view/source/", nil), apierrors.ErrInvalidRequest)

	src := "<p>changed</p>"
	rec = doJSON(t, e, http.MethodPost, base+"markup-view/close/", MarkupViewRequest{Source: &src})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[MarkupViewResponse](t, rec).Open)
	assert.Contains(t, getMarkup(t, e, base), "changed")

	rec = doJSON(t, e, http.MethodPost, base+"markup-view/toggle/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkupViewFormatCache(t *testing.T) {
	mr := miniredis.RunT(t)
	s, e := newTestServer(t, map[string]string{
		"RICHDOC_FORMATTER": "minify",
		"RICHDOC_REDIS_URL": "redis://" + mr.Addr(),
	})
	require.NotNil(t, s.formatCache)
	base := createSession(t, e, "<p>hello</p>")

	rec := doJSON(t, e, http.MethodPost, base+"markup-view/open/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[MarkupViewResponse](t, rec).Toolbar.CanFormat)

	src := "<p>\n    hello   world\n</p>"
	rec = doJSON(t, e, http.MethodPost, base+"markup-view/format/", MarkupViewRequest{Source: &src})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[MarkupViewResponse](t, rec)
	assert.True(t, view.Open)
	assert.NotEqual(t, src, view.Source)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "richdoc:format:minify:"))
}

func multipartBody(t *testing.T, files map[string][]byte, text string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for name, data := range files {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if text != "" {
		require.NoError(t, w.WriteField("text", text))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func postFiles(t *testing.T, e *echo.Echo, path string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files, "")
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestUploadFilesWithoutStorage(t *testing.T) {
	_, e := newTestServer(t, nil)
	base := createSession(t, e, "<p>x</p>")

	rec := postFiles(t, e, base+"files/", map[string][]byte{"pic.png": pngHeader})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[FilesResponse](t, rec).Inserted)
	assert.Contains(t, getMarkup(t, e, base), "data:image/png;base64,")

	rec = postFiles(t, e, base+"files/", map[string][]byte{"notes.txt": []byte("plain text")})
	assertAPIError(t, rec, apierrors.ErrUnsupportedFile)

	rec = postFiles(t, e, base+"files/", nil)
	assertAPIError(t, rec, apierrors.ErrFileRequired)
}

func TestUploadFilesHTTPStorage(t *testing.T) {
	var uploads atomic.Int32
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploads.Add(1)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":"https://files.example/report.pdf"}`))
	}))
	t.Cleanup(storage.Close)

	_, e := newTestServer(t, map[string]string{
		"RICHDOC_STORAGE":      "http",
		"RICHDOC_UPLOAD_URL":   storage.URL,
		"RICHDOC_UPLOAD_TOKEN": "secret",
	})
	base := createSession(t, e, "<p>x</p>")

	rec := postFiles(t, e, base+"files/", map[string][]byte{
		"report.pdf": []byte("%PDF-1.4 test"),
		"pic.png":    pngHeader,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[FilesResponse](t, rec)
	assert.Equal(t, 2, resp.Inserted)
	assert.Empty(t, resp.Warnings)
	assert.EqualValues(t, 2, uploads.Load())
	assert.Contains(t, getMarkup(t, e, base), `href="https://files.example/report.pdf"`)
}

func TestEmbedPointer(t *testing.T) {
	_, e := newTestServer(t, nil)
	base := createSession(t, e, "<p>hello</p>")

	rec := doJSON(t, e, http.MethodPost, base+"commands/youtube/", CommandRequest{Args: map[string]any{"url": "https://youtu.be/abcDEF123"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decode[StateResponse](t, rec).Applied)

	pointer := func(op string, ev map[string]any) *httptest.ResponseRecorder {
		return doJSON(t, e, http.MethodPost, base+"embeds/7/pointer/", map[string]any{"op": op, "event": ev})
	}

	rec = pointer("down", map[string]any{"pointerType": "mouse", "width": 640, "height": 360})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[PointerResponse](t, rec).Dragging)

	rec = pointer("move", map[string]any{"pointerType": "mouse", "clientX": 100, "clientY": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[PointerResponse](t, rec)
	assert.Equal(t, "740px", resp.Width)
	assert.Equal(t, "416px", resp.Height)

	rec = pointer("up", map[string]any{"pointerType": "mouse", "clientX": 100, "clientY": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[PointerResponse](t, rec)
	assert.False(t, resp.Dragging)
	assert.Equal(t, 7, resp.Pos)
	assert.Contains(t, getMarkup(t, e, base), "740px")

	rec = pointer("dblclick", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[PointerResponse](t, rec).Width)
	assert.NotContains(t, getMarkup(t, e, base), "740px")

	assertAPIError(t, pointer("jump", nil), apierrors.ErrInvalidRequest)
	rec = doJSON(t, e, http.MethodPost, base+"embeds/1/pointer/", map[string]any{"op": "down"})
	assertAPIError(t, rec, apierrors.ErrNotResizable)
}

func TestNormalizeURL(t *testing.T) {
	_, e := newTestServer(t, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/normalize/", NormalizeRequest{URL: "https://www.youtube.com/watch?v=abcDEF123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var d struct {
		Provider string `json:"provider"`
		ID       string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "youtube", d.Provider)
	assert.Equal(t, "abcDEF123", d.ID)

	rec = doJSON(t, e, http.MethodPost, "/api/normalize/", NormalizeRequest{URL: "https://example.com/video"})
	assertAPIError(t, rec, apierrors.ErrNotEmbeddable)

	rec = doJSON(t, e, http.MethodPost, "/api/normalize/", NormalizeRequest{URL: "not a url"})
	assertAPIError(t, rec, apierrors.ErrInvalidRequest)
}

func TestRequestValidator(t *testing.T) {
	v := NewRequestValidator()
	require.NotNil(t, v)

	assert.NoError(t, v.Validate(&CommandRequest{Name: "insertTable"}))
	assert.Error(t, v.Validate(&CommandRequest{Name: "x"}))
	assert.Error(t, v.Validate(&CommandRequest{Name: "drop table"}))

	anchor := 3
	assert.NoError(t, v.Validate(&PointerRequest{Pos: 3, Op: "move"}))
	assert.Error(t, v.Validate(&PointerRequest{Pos: 3, Op: "wheel"}))
	assert.NoError(t, v.Validate(&SelectionRequest{Anchor: &anchor}))
	assert.Error(t, v.Validate(&SelectionRequest{}))
	assert.Error(t, v.Validate(&NormalizeRequest{URL: "ftp://host/file"}))
}

func TestExternalLimiter(t *testing.T) {
	limits := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/can/create/session/") {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(limits.Close)

	_, e := newTestServer(t, map[string]string{"RICHDOC_EXTERNAL_LIMITER": limits.URL})
	base := createSession(t, e, "<p>x</p>")

	rec := postFiles(t, e, base+"files/", map[string][]byte{"pic.png": pngHeader})
	assertAPIError(t, rec, apierrors.ErrUploadQuota)
	assert.NotContains(t, getMarkup(t, e, base), "data:")
}
