package sessions

import (
	"sync"
	"testing"
	"time"

	"github.com/aisa-it/richdoc/internal/richdoc/editor"
	filestorage "github.com/aisa-it/richdoc/internal/richdoc/file-storage"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newManager(ttl time.Duration, limit int) (*SessionsManager, *clock) {
	c := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	sm := NewSessionsManager(ttl, limit)
	sm.now = c.Now
	return sm, c
}

func TestCreateGetDelete(t *testing.T) {
	sm, _ := newManager(time.Hour, 0)
	s, err := sm.Create(editor.WithContent("<p>hello</p>"))
	require.NoError(t, err)
	assert.Equal(t, "hello", s.Editor.Doc().TextContent())

	got, err := sm.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = sm.Get(uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.True(t, sm.Delete(s.ID))
	assert.False(t, sm.Delete(s.ID))
	assert.Zero(t, sm.Len())
}

func TestExpiry(t *testing.T) {
	sm, c := newManager(time.Minute, 0)
	s, err := sm.Create()
	require.NoError(t, err)
	other, err := sm.Create()
	require.NoError(t, err)

	c.Add(40 * time.Second)
	_, err = sm.Get(s.ID)
	require.NoError(t, err)

	c.Add(40 * time.Second)
	assert.Equal(t, 1, sm.Sweep())
	_, err = sm.Get(other.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	c.Add(2 * time.Minute)
	_, err = sm.Get(s.ID)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Zero(t, sm.Len())
}

func TestLimit(t *testing.T) {
	sm, c := newManager(time.Minute, 2)
	_, err := sm.Create()
	require.NoError(t, err)
	_, err = sm.Create()
	require.NoError(t, err)

	_, err = sm.Create()
	assert.ErrorIs(t, err, ErrLimit)

	// просроченные сессии освобождают место
	c.Add(2 * time.Minute)
	_, err = sm.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, sm.Len())

	sm.Close()
	assert.Zero(t, sm.Len())
}

func TestWarnings(t *testing.T) {
	sm, _ := newManager(time.Hour, 0)
	s, err := sm.Create(editor.WithContent("<p>x</p>"))
	require.NoError(t, err)
	assert.Empty(t, s.Warnings())

	_, err = s.Editor.InsertFile(t.Context(), filestorage.Blob{Name: "a.txt", ContentType: "text/plain"})
	require.Error(t, err)

	warnings := s.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "a.txt")
	assert.Empty(t, s.Warnings())
}
