// Хранение сессий редактора в памяти процесса.
//
// Основные возможности:
//   - Создание сессии с собственным редактором и уникальным идентификатором.
//   - Продление сессии при каждом обращении.
//   - Автоматическая очистка сессий, к которым не обращались дольше ttl.
package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aisa-it/richdoc/internal/richdoc/editor"
	"github.com/gofrs/uuid"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
	ErrLimit    = errors.New("session limit reached")
)

const (
	cleanInterval = time.Minute
	// maxWarnings сколько непрочитанных предупреждений хранит сессия
	maxWarnings = 32
)

type Session struct {
	ID      uuid.UUID
	Editor  *editor.Editor
	Created time.Time
	// Presenters презентеры привязок размера, ключ *resize.Binding
	Presenters sync.Map

	lastUsed atomic.Int64

	mu       sync.Mutex
	warnings []string
}

func (s *Session) addWarning(data editor.EventData) {
	if data.Warning == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, data.Warning.Error())
	if len(s.warnings) > maxWarnings {
		s.warnings = s.warnings[len(s.warnings)-maxWarnings:]
	}
}

// Warnings забирает накопленные предупреждения редактора.
func (s *Session) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.warnings
	s.warnings = nil
	return w
}

func (s *Session) LastUsed() time.Time {
	return time.UnixMilli(s.lastUsed.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixMilli())
}

type SessionsManager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	limit    int

	now func() time.Time
}

// NewSessionsManager limit <= 0 снимает ограничение на число сессий.
func NewSessionsManager(ttl time.Duration, limit int) *SessionsManager {
	return &SessionsManager{
		sessions: map[uuid.UUID]*Session{},
		ttl:      ttl,
		limit:    limit,
		now:      time.Now,
	}
}

func (sm *SessionsManager) Create(opts ...editor.Option) (*Session, error) {
	sm.mu.RLock()
	full := sm.limit > 0 && len(sm.sessions) >= sm.limit
	sm.mu.RUnlock()
	if full && sm.Sweep() == 0 {
		return nil, ErrLimit
	}

	e, err := editor.New(opts...)
	if err != nil {
		return nil, err
	}
	now := sm.now()
	s := &Session{ID: uuid.Must(uuid.NewV4()), Editor: e, Created: now}
	s.touch(now)
	e.On(editor.EventWarning, s.addWarning)

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.limit > 0 && len(sm.sessions) >= sm.limit {
		e.Close()
		return nil, ErrLimit
	}
	sm.sessions[s.ID] = s
	return s, nil
}

// Get находит сессию и продлевает ее. Просроченная сессия удаляется.
func (sm *SessionsManager) Get(id uuid.UUID) (*Session, error) {
	sm.mu.RLock()
	s, ok := sm.sessions[id]
	sm.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	now := sm.now()
	if sm.expired(s, now) {
		sm.Delete(id)
		return nil, ErrExpired
	}
	s.touch(now)
	return s, nil
}

func (sm *SessionsManager) Delete(id uuid.UUID) bool {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()
	if ok {
		s.Editor.Close()
	}
	return ok
}

func (sm *SessionsManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

func (sm *SessionsManager) expired(s *Session, now time.Time) bool {
	return sm.ttl > 0 && now.Sub(s.LastUsed()) > sm.ttl
}

// Sweep удаляет просроченные сессии и возвращает их число.
func (sm *SessionsManager) Sweep() int {
	now := sm.now()
	var removed []*Session
	sm.mu.Lock()
	for id, s := range sm.sessions {
		if sm.expired(s, now) {
			removed = append(removed, s)
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	for _, s := range removed {
		s.Editor.Close()
	}
	if len(removed) > 0 {
		slog.Debug("Expired editor sessions removed", "count", len(removed))
	}
	return len(removed)
}

// Run чистит просроченные сессии раз в минуту, пока не отменен ctx.
func (sm *SessionsManager) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.Sweep()
		}
	}
}

// Close закрывает все сессии.
func (sm *SessionsManager) Close() {
	sm.mu.Lock()
	sessions := sm.sessions
	sm.sessions = map[uuid.UUID]*Session{}
	sm.mu.Unlock()
	for _, s := range sessions {
		s.Editor.Close()
	}
}
