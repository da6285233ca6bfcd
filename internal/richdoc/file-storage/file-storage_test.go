package filestorage

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aisa-it/richdoc/internal/richdoc/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBlob(t *testing.T, w, h int) Blob {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return Blob{Name: "pic.png", ContentType: "image/png", Data: buf.Bytes()}
}

func TestDownscale(t *testing.T) {
	big := pngBlob(t, 400, 200)
	out, err := Downscale(big, 100)
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.ContentType)

	img, _, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	small := pngBlob(t, 40, 20)
	out, err = Downscale(small, 100)
	require.NoError(t, err)
	assert.Equal(t, small.Data, out.Data)

	text := Blob{Name: "a.txt", ContentType: "text/plain", Data: []byte("x")}
	out, err = Downscale(text, 100)
	require.NoError(t, err)
	assert.Equal(t, text, out)

	_, err = Downscale(Blob{ContentType: "image/png", Data: []byte("broken")}, 100)
	assert.Error(t, err)
}

func TestObjectURLs(t *testing.T) {
	urls := NewObjectURLs("http://localhost:8080/")
	blob := Blob{Name: "v.mp4", ContentType: "video/mp4", Data: []byte{1, 2, 3}}

	u := urls.Create(blob)
	assert.True(t, IsObjectURL(u))
	assert.True(t, strings.HasPrefix(u, "blob:http://localhost:8080/"))

	got, ok := urls.Resolve(u)
	require.True(t, ok)
	assert.Equal(t, blob, got)

	assert.NotEqual(t, u, urls.Create(blob))
	assert.Equal(t, 2, urls.Len())

	urls.Revoke(u)
	_, ok = urls.Resolve(u)
	assert.False(t, ok)

	urls.RevokeAll()
	assert.Equal(t, 0, urls.Len())
}

func TestHTTPUploader(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// первый запрос падает, клиент должен повторить
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "hello", string(data))
		assert.Equal(t, "a.txt", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/a.txt"})
	}))
	defer srv.Close()

	up, err := NewHTTPUploader(srv.URL, HTTPOptions{Token: "secret", Retries: 2})
	require.NoError(t, err)

	url, err := up.Upload(context.Background(), Blob{Name: "a.txt", ContentType: "text/plain", Data: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.txt", url)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPUploaderValidation(t *testing.T) {
	up, err := NewHTTPUploader("http://127.0.0.1:1/upload", HTTPOptions{MaxFileSize: 3, AllowedTypes: []string{"image/png"}})
	require.NoError(t, err)

	_, err = up.Upload(context.Background(), Blob{Name: "a.png", ContentType: "image/png", Data: []byte("1234")})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = up.Upload(context.Background(), Blob{Name: "a.txt", ContentType: "text/plain", Data: []byte("1")})
	assert.ErrorIs(t, err, ErrFileType)

	_, err = NewHTTPUploader("", HTTPOptions{})
	assert.ErrorIs(t, err, ErrNoUploader)
}

func TestParseUploadResponse(t *testing.T) {
	cases := []struct {
		name, contentType, body, want string
		err                           error
	}{
		{"json url", "application/json", `{"url":"https://x/1"}`, "https://x/1", nil},
		{"json location", "application/json; charset=utf-8", `{"location":"https://x/2"}`, "https://x/2", nil},
		{"plain text", "text/plain", " https://x/3\n", "https://x/3", nil},
		{"json without url", "application/json", `{}`, "", ErrEmptyResponse},
		{"empty body", "text/plain", "", "", ErrEmptyResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseUploadResponse(tc.contentType, []byte(tc.body))
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWithDownscale(t *testing.T) {
	var got Blob
	up := WithDownscale(UploaderFunc(func(_ context.Context, b Blob) (string, error) {
		got = b
		return "https://cdn/1", nil
	}), 10)

	url, err := up.Upload(context.Background(), pngBlob(t, 40, 20))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/1", url)

	img, _, err := image.Decode(bytes.NewReader(got.Data))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestNewWithoutBackend(t *testing.T) {
	up, err := New(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, up)

	_, err = New(context.Background(), &config.Config{StorageBackend: "ftp"})
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	assert.True(t, strings.HasSuffix(objectName(Blob{Name: "Photo.JPG"}), ".jpg"))
	assert.True(t, strings.HasSuffix(objectName(Blob{ContentType: "image/png"}), ".png"))
	assert.NotEqual(t, objectName(Blob{Name: "a"}), objectName(Blob{Name: "a"}))

	assert.Equal(t, "https://files.example.com/x.png", publicURL("https://files.example.com/", "minio:9000", "b", "x.png", false))
	assert.Equal(t, "http://minio:9000/b/x.png", publicURL("", "minio:9000", "b", "x.png", false))
}
