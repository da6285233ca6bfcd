package filestorage

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"

	"github.com/nfnt/resize"
)

// Downscale уменьшает изображение так, чтобы стороны не превышали maxSize.
// GIF (возможна анимация), не-изображения и картинки меньше предела возвращаются как есть.
func Downscale(blob Blob, maxSize uint) (Blob, error) {
	if !blob.IsImage() || blob.ContentType == "image/gif" || blob.ContentType == "image/svg+xml" {
		return blob, nil
	}
	img, format, err := image.Decode(bytes.NewReader(blob.Data))
	if err != nil {
		return blob, err
	}
	bounds := img.Bounds()
	if uint(bounds.Dx()) <= maxSize && uint(bounds.Dy()) <= maxSize {
		return blob, nil
	}

	thmb := resize.Thumbnail(maxSize, maxSize, img, resize.Lanczos3)
	buf := new(bytes.Buffer)
	out := blob
	switch format {
	case "png":
		err = png.Encode(buf, thmb)
		out.ContentType = "image/png"
	default:
		err = jpeg.Encode(buf, thmb, &jpeg.Options{Quality: 85})
		out.ContentType = "image/jpeg"
	}
	if err != nil {
		return blob, err
	}
	out.Data = buf.Bytes()
	return out, nil
}

type downscaler struct {
	next    Uploader
	maxSize uint
}

// WithDownscale уменьшает изображения перед загрузкой. Ошибка декодирования не мешает
// загрузке: файл уходит без изменений.
func WithDownscale(next Uploader, maxSize uint) Uploader {
	return &downscaler{next: next, maxSize: maxSize}
}

func (d *downscaler) Upload(ctx context.Context, blob Blob) (string, error) {
	scaled, err := Downscale(blob, d.maxSize)
	if err != nil {
		slog.Debug("Downscale image", "name", blob.Name, "err", err)
	}
	return d.next.Upload(ctx, scaled)
}
