package limiter

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aisa-it/richdoc/internal/richdoc/config"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	assert.IsType(t, CommunityLimiter{}, New(&config.Config{}))

	host, _ := url.Parse("http://limits.local/")
	assert.IsType(t, &ExternalLimiter{}, New(&config.Config{ExternalLimiter: host}))
}

func TestExternalLimiter(t *testing.T) {
	sessionId := uuid.Must(uuid.NewV4())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/can/create/session/by/10.0.0.1":
			w.WriteHeader(http.StatusOK)
		case "/can/upload/session/" + sessionId.String():
			if r.URL.Query().Get("size") == "100" {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusForbidden)
		case "/remain/sessions/by/10.0.0.1":
			w.Header().Set("X-Entity-Remain", "7")
		case "/remain/sessions/by/10.0.0.2":
			w.Header().Set("X-Entity-Remain", "lots")
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	t.Cleanup(srv.Close)

	host, err := url.Parse(srv.URL)
	require.NoError(t, err)
	l := NewExternalLimiter(host)

	assert.True(t, l.CanCreateSession("10.0.0.1"))
	assert.False(t, l.CanCreateSession("10.0.0.2"))
	assert.True(t, l.CanUpload(sessionId, 100))
	assert.False(t, l.CanUpload(sessionId, 1<<30))
	assert.Equal(t, 7, l.GetRemainingSessions("10.0.0.1"))
	assert.Equal(t, -1, l.GetRemainingSessions("10.0.0.2"))

	srv.Close()
	assert.False(t, l.CanCreateSession("10.0.0.1"))
}
