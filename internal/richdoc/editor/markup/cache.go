package markup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// FormatCache хранит результаты форматирования в Redis по хэшу исходника.
// Разные сессии редактора с одинаковой разметкой не форматируют ее повторно.
type FormatCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewFormatCache(redisURL string, ttl time.Duration) (*FormatCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewFormatCacheWithClient(client, ttl), nil
}

func NewFormatCacheWithClient(client *redis.Client, ttl time.Duration) *FormatCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &FormatCache{client: client, prefix: "richdoc:format:", ttl: ttl}
}

func (c *FormatCache) key(formatter, src string) string {
	sum := sha256.Sum256([]byte(src))
	return c.prefix + formatter + ":" + hex.EncodeToString(sum[:])
}

func (c *FormatCache) Close() error {
	return c.client.Close()
}

// Wrap форматер с кэшем. name различает форматеры с разным выводом.
// Недоступность Redis не мешает форматированию: ошибка кэша только пишется в лог.
func (c *FormatCache) Wrap(name string, next Formatter) Formatter {
	return FormatterFunc(func(ctx context.Context, src string) (string, error) {
		key := c.key(name, src)
		cached, err := c.client.Get(ctx, key).Result()
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, redis.Nil):
			slog.Warn("Read format cache", "err", err)
		}

		out, err := next.Format(ctx, src)
		if err != nil {
			return "", err
		}
		if err := c.client.Set(ctx, key, out, c.ttl).Err(); err != nil {
			slog.Warn("Save format cache", "err", err)
		}
		return out, nil
	})
}
