// Пакет предоставляет загрузчики файлов редактора: Minio, S3 и HTTP-эндпоинт, а также
// локальные ссылки на объекты (blob:) для файлов, которые не удалось загрузить.
package filestorage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/aisa-it/richdoc/internal/richdoc/config"
	"github.com/gofrs/uuid"
)

const (
	UploadTries = 3
)

var (
	ErrNoUploader    = errors.New("uploader is not configured")
	ErrFileTooLarge  = errors.New("file is too large")
	ErrFileType      = errors.New("file type is not allowed")
	ErrEmptyResponse = errors.New("upload response has no url")
)

// Blob файл, выбранный пользователем, вставленный или перетащенный в редактор.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

func (b Blob) Size() int64 {
	return int64(len(b.Data))
}

func (b Blob) IsImage() bool {
	return strings.HasPrefix(b.ContentType, "image/")
}

func (b Blob) IsVideo() bool {
	return strings.HasPrefix(b.ContentType, "video/")
}

// Uploader загружает файл и возвращает URL, по которому он доступен.
type Uploader interface {
	Upload(ctx context.Context, blob Blob) (string, error)
}

// UploaderFunc адаптер функции к Uploader.
type UploaderFunc func(ctx context.Context, blob Blob) (string, error)

func (f UploaderFunc) Upload(ctx context.Context, blob Blob) (string, error) {
	return f(ctx, blob)
}

// New выбирает загрузчик по конфигурации. Без настроенного бэкенда возвращает nil:
// редактор в этом случае использует data: и blob: ссылки.
func New(ctx context.Context, cfg *config.Config) (Uploader, error) {
	var (
		up  Uploader
		err error
	)
	switch cfg.StorageBackend {
	case config.StorageNone:
		return nil, nil
	case config.StorageMinio:
		up, err = NewMinioStorage(ctx, cfg.AWSEndpoint, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSUseSSL, cfg.AWSBucketName, cfg.FilesURL)
	case config.StorageS3:
		up, err = NewS3Storage(ctx, cfg)
	case config.StorageHTTP:
		up, err = NewHTTPUploader(cfg.UploadURL, HTTPOptions{
			Token:   cfg.UploadToken,
			Retries: cfg.UploadRetries,
			Timeout: cfg.UploadTimeout(),
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.ImageMaxSize > 0 {
		up = WithDownscale(up, uint(cfg.ImageMaxSize))
	}
	return up, nil
}

// objectName уникальное имя объекта с расширением исходного файла или типа содержимого.
func objectName(blob Blob) string {
	ext := path.Ext(blob.Name)
	if ext == "" && blob.ContentType != "" {
		if exts, _ := mime.ExtensionsByType(blob.ContentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return uuid.Must(uuid.NewV4()).String() + strings.ToLower(ext)
}

// publicURL адрес объекта: base/name, либо endpoint/bucket/name без base.
func publicURL(base, endpoint, bucket, name string, secure bool) string {
	if base != "" {
		return strings.TrimRight(base, "/") + "/" + name
	}
	scheme := "http"
	if secure {
		scheme = "https"
	}
	if strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/") + "/" + bucket + "/" + name
	}
	return scheme + "://" + endpoint + "/" + bucket + "/" + name
}
