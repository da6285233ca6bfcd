// Квоты на сессии редактора и загрузку файлов.
//
// По умолчанию действует CommunityLimiter без ограничений. Если задан внешний сервис квот,
// решения принимает он.
package limiter

import (
	"log/slog"
	"math"

	"github.com/aisa-it/richdoc/internal/richdoc/config"
	"github.com/gofrs/uuid"
)

type LimiterInt interface {
	// CanCreateSession client адрес клиента, открывающего сессию
	CanCreateSession(client string) bool
	CanUpload(sessionId uuid.UUID, size int64) bool

	GetRemainingSessions(client string) int
}

// New выбирает лимитер по конфигурации.
func New(cfg *config.Config) LimiterInt {
	if cfg.ExternalLimiter == nil {
		slog.Info("Using Community limiter")
		return CommunityLimiter{}
	}
	slog.Info("Using external limiter", "host", cfg.ExternalLimiter.Host)
	return NewExternalLimiter(cfg.ExternalLimiter)
}

type CommunityLimiter struct{}

func (c CommunityLimiter) CanCreateSession(client string) bool {
	return true
}

func (c CommunityLimiter) CanUpload(sessionId uuid.UUID, size int64) bool {
	return true
}

func (c CommunityLimiter) GetRemainingSessions(client string) int {
	return math.MaxInt32
}
