package limiter

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
)

const requestTimeout = 3 * time.Second

// ExternalLimiter спрашивает внешний сервис квот. Ответ 200 разрешает действие,
// остаток квоты приходит в заголовке X-Entity-Remain.
type ExternalLimiter struct {
	host   *url.URL
	client *http.Client
}

func NewExternalLimiter(host *url.URL) *ExternalLimiter {
	return &ExternalLimiter{host: host, client: &http.Client{Timeout: requestTimeout}}
}

func (c ExternalLimiter) CanCreateSession(client string) bool {
	return c.doRequest("/can/create/session/by/"+url.PathEscape(client), nil)
}

func (c ExternalLimiter) CanUpload(sessionId uuid.UUID, size int64) bool {
	return c.doRequest("/can/upload/session/"+sessionId.String(), url.Values{"size": {strconv.FormatInt(size, 10)}})
}

func (c ExternalLimiter) GetRemainingSessions(client string) int {
	return c.doRemainRequest("/remain/sessions/by/" + url.PathEscape(client))
}

func (c ExternalLimiter) resolve(path string, query url.Values) string {
	ref := &url.URL{Path: path}
	if query != nil {
		ref.RawQuery = query.Encode()
	}
	return c.host.ResolveReference(ref).String()
}

func (c ExternalLimiter) doRemainRequest(path string) int {
	resp, err := c.client.Get(c.resolve(path, nil))
	if err != nil {
		slog.Error("Request remains", "err", err)
		return -1
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return -1
	}

	remain, err := strconv.Atoi(resp.Header.Get("X-Entity-Remain"))
	if err != nil {
		slog.Error("Parse remain answer", "raw", resp.Header.Get("X-Entity-Remain"), "err", err)
		return -1
	}
	return remain
}

func (c ExternalLimiter) doRequest(path string, query url.Values) bool {
	resp, err := c.client.Get(c.resolve(path, query))
	if err != nil {
		slog.Error("Request access rule", "err", err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
