package filestorage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

type HTTPOptions struct {
	// Token добавляется в заголовок Authorization как Bearer
	Token        string
	Retries      int
	Timeout      time.Duration
	MaxFileSize  int64
	AllowedTypes []string
	// Field имя поля формы, по умолчанию "file"
	Field string
}

// HTTPUploader отправляет файл multipart-формой на эндпоинт загрузки.
// Ответ: JSON с полем url (или location) либо URL в теле ответа.
type HTTPUploader struct {
	url    string
	opts   HTTPOptions
	client *retryablehttp.Client
}

func NewHTTPUploader(uploadURL string, opts HTTPOptions) (*HTTPUploader, error) {
	if uploadURL == "" {
		return nil, fmt.Errorf("%w: empty upload url", ErrNoUploader)
	}
	if opts.Field == "" {
		opts.Field = "file"
	}

	cl := retryablehttp.NewClient()
	cl.RetryMax = opts.Retries
	cl.RetryWaitMin = time.Millisecond * 200
	cl.RetryWaitMax = time.Second * 5
	if opts.Timeout > 0 {
		cl.HTTPClient.Timeout = opts.Timeout
	}
	cl.Logger = slog.Default()

	return &HTTPUploader{url: uploadURL, opts: opts, client: cl}, nil
}

func (u *HTTPUploader) validate(blob Blob) error {
	if u.opts.MaxFileSize > 0 && blob.Size() > u.opts.MaxFileSize {
		return fmt.Errorf("%w: %d > %d", ErrFileTooLarge, blob.Size(), u.opts.MaxFileSize)
	}
	if len(u.opts.AllowedTypes) > 0 && !slices.Contains(u.opts.AllowedTypes, blob.ContentType) {
		return fmt.Errorf("%w: %s", ErrFileType, blob.ContentType)
	}
	return nil
}

func (u *HTTPUploader) Upload(ctx context.Context, blob Blob) (string, error) {
	if err := u.validate(blob); err != nil {
		return "", err
	}

	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, u.opts.Field, blob.Name))
	if blob.ContentType != "" {
		header.Set("Content-Type", blob.ContentType)
	}
	part, err := w.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(blob.Data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, u.url, body.Bytes())
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if u.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+u.opts.Token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload %s: status %d: %s", blob.Name, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return parseUploadResponse(resp.Header.Get("Content-Type"), data)
}

func parseUploadResponse(contentType string, data []byte) (string, error) {
	if strings.HasPrefix(contentType, "application/json") || bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		var payload struct {
			URL      string `json:"url"`
			Location string `json:"location"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", err
		}
		if payload.URL != "" {
			return payload.URL, nil
		}
		if payload.Location != "" {
			return payload.Location, nil
		}
		return "", ErrEmptyResponse
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s, nil
	}
	return "", ErrEmptyResponse
}
