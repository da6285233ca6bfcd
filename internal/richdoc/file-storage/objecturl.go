package filestorage

import (
	"strings"
	"sync"

	"github.com/gofrs/uuid"
)

const objectURLPrefix = "blob:"

// ObjectURLs локальные ссылки на файлы, которые не были загружены. Ссылка живет,
// пока ее не отзовут; сервер отдает содержимое по ней через Resolve.
type ObjectURLs struct {
	origin string

	mu    sync.RWMutex
	blobs map[string]Blob
}

func NewObjectURLs(origin string) *ObjectURLs {
	return &ObjectURLs{origin: strings.TrimRight(origin, "/"), blobs: map[string]Blob{}}
}

// Create регистрирует файл и возвращает ссылку вида blob:<origin>/<uuid>.
func (o *ObjectURLs) Create(blob Blob) string {
	url := objectURLPrefix + o.origin + "/" + uuid.Must(uuid.NewV4()).String()
	o.mu.Lock()
	o.blobs[url] = blob
	o.mu.Unlock()
	return url
}

func (o *ObjectURLs) Resolve(url string) (Blob, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	b, ok := o.blobs[url]
	return b, ok
}

func (o *ObjectURLs) Revoke(url string) {
	o.mu.Lock()
	delete(o.blobs, url)
	o.mu.Unlock()
}

// RevokeAll отзывает все ссылки, например при закрытии сессии.
func (o *ObjectURLs) RevokeAll() {
	o.mu.Lock()
	clear(o.blobs)
	o.mu.Unlock()
}

func (o *ObjectURLs) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.blobs)
}

func IsObjectURL(url string) bool {
	return strings.HasPrefix(url, objectURLPrefix)
}
