// Пакет richdoc предоставляет HTTP-интерфейс к редактору структурированных документов.
// Каждая сессия владеет своим редактором; клиент выполняет команды панели инструментов,
// читает и записывает разметку, загружает файлы и масштабирует встраивания.
//
// Основные возможности:
//   - Сессии редактора с ограниченным временем жизни.
//   - Именованные команды, выделение, вставка и перетаскивание файлов.
//   - Режим правки разметки с форматированием.
//   - Нормализация ссылок видеопровайдеров.
//   - Метрики Prometheus.
package richdoc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aisa-it/richdoc/internal/richdoc/config"
	"github.com/aisa-it/richdoc/internal/richdoc/editor"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/commands"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/markup"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/providers"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/resize"
	filestorage "github.com/aisa-it/richdoc/internal/richdoc/file-storage"
	"github.com/aisa-it/richdoc/internal/richdoc/sessions"
	"github.com/aisa-it/richdoc/pkg/limiter"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Services struct {
	cfg             *config.Config
	sessionsManager *sessions.SessionsManager
	uploader        filestorage.Uploader
	formatter       *markup.FormatterHandle
	formatCache     *markup.FormatCache
	normalizer      *providers.Normalizer
	registry        *extensions.Registry
	limiter         limiter.LimiterInt
	metrics         *Metrics
	registerer      prometheus.Registerer
	version         string
}

// NewServices собирает зависимости сервиса по конфигурации: загрузчик файлов, форматер
// разметки с кэшем в Redis и реестр команд.
func NewServices(ctx context.Context, cfg *config.Config, version string) (*Services, error) {
	uploader, err := filestorage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init file storage: %w", err)
	}

	var cache *markup.FormatCache
	if cfg.RedisURL != "" {
		cache, err = markup.NewFormatCache(cfg.RedisURL, cfg.FormatCacheTTL())
		if err != nil {
			slog.Warn("Format cache disabled", "err", err)
			cache = nil
		}
	}

	normalizer := providers.Default()
	registry := extensions.Default()
	if err := commands.Register(registry, normalizer); err != nil {
		return nil, err
	}

	return &Services{
		cfg:             cfg,
		sessionsManager: sessions.NewSessionsManager(cfg.SessionTTL(), cfg.MaxSessions),
		uploader:        uploader,
		formatter:       NewFormatter(cfg, cache),
		formatCache:     cache,
		normalizer:      normalizer,
		registry:        registry,
		limiter:         limiter.New(cfg),
		metrics:         NewMetrics(),
		registerer:      prometheus.DefaultRegisterer,
		version:         version,
	}, nil
}

// NewFormatter форматер разметки по имени из конфигурации; nil если форматирование выключено.
func NewFormatter(cfg *config.Config, cache *markup.FormatCache) *markup.FormatterHandle {
	name := strings.ToLower(cfg.Formatter)
	var create func() markup.Formatter
	switch name {
	case "pretty":
		create = func() markup.Formatter {
			return markup.PrettyFormatter{PrintWidth: cfg.PrintWidth, TabWidth: cfg.TabWidth, UseTabs: cfg.UseTabs}
		}
		name = fmt.Sprintf("pretty-%d-%d-%t", cfg.PrintWidth, cfg.TabWidth, cfg.UseTabs)
	case "minify":
		create = func() markup.Formatter { return markup.NewMinifyFormatter() }
	default:
		slog.Info("Markup formatter disabled", "formatter", cfg.Formatter)
		return nil
	}
	return markup.NewFormatterHandle(func(context.Context) (markup.Formatter, error) {
		f := create()
		if cache != nil {
			f = cache.Wrap(name, f)
		}
		return f, nil
	})
}

// ResizeConfig настройки перетаскивания размера встраиваний.
func ResizeConfig(cfg *config.Config) resize.Config {
	return resize.Config{
		MinWidth:        cfg.EmbedMinWidth,
		MaxWidth:        cfg.EmbedMaxWidth,
		MinHeight:       cfg.EmbedMinHeight,
		MaxHeight:       cfg.EmbedMaxHeight,
		LockAspectRatio: !cfg.EmbedFreeAspect,
		BlurPolicy:      resize.ParseBlurPolicy(cfg.EmbedBlurPolicy),
	}
}

func (s *Services) origin() string {
	if s.cfg.WebURL != nil {
		return s.cfg.WebURL.Scheme + "://" + s.cfg.WebURL.Host
	}
	return "richdoc"
}

// editorOptions параметры редактора новой сессии.
func (s *Services) editorOptions(content string) []editor.Option {
	return []editor.Option{
		editor.WithRegistry(s.registry),
		editor.WithNormalizer(s.normalizer),
		editor.WithContent(content),
		editor.WithUploader(s.uploader),
		editor.WithObjectURLs(filestorage.NewObjectURLs(s.origin())),
		editor.WithFormatter(s.formatter, s.cfg.FormatOnOpen),
		editor.WithResize(ResizeConfig(s.cfg)),
		editor.WithHistoryLimit(s.cfg.HistoryLimit),
		editor.WithSanitize(!s.cfg.SanitizeDisabled),
	}
}

// Router HTTP-маршруты сервиса.
func (s *Services) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}

		// Ignore 404
		if code == http.StatusNotFound {
			c.NoContent(http.StatusNotFound)
			return
		}
		slog.Error("Unhandled error in endpoint", "url", c.Request().URL, "err", err)
		EErrorMsgStatus(c, nil, code)
	}

	e.Use(ServerHeader)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.cfg.Origins(),
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: s.cfg.BodyLimit,
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     5,
		MinLength: 2048,
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "richdoc",
		Registerer: s.registerer,
	}))
	e.Pre(middleware.AddTrailingSlash())

	e.Validator = NewRequestValidator()

	apiGroup := e.Group("/api/")

	apiGroup.GET("version/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"version":   s.version,
			"formatter": s.formatter.Available(),
			"uploads":   s.uploader != nil,
			"commands":  s.registry.Commands(""),
		})
	})
	apiGroup.GET("_health/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	apiGroup.POST("normalize/", s.normalizeURL)
	s.AddSessionServices(apiGroup)

	return e
}

// Server запускает сервис редактора и сервер метрик и работает до сигнала завершения.
func Server(c *config.Config, version string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := NewServices(ctx, c, version)
	if err != nil {
		slog.Error("Init services", "err", err)
		os.Exit(1)
	}
	defer s.Close()

	if err := s.metrics.Register(s.registerer); err != nil {
		slog.Error("Register metrics", "err", err)
		os.Exit(1)
	}

	go s.sessionsManager.Run(ctx)

	e := s.Router()
	// Prometheus metrics
	go func() {
		bootTimeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "richdoc",
			Name:      "boot_time",
			Help:      "Server startup time",
		})
		bootTimeGauge.Set(float64(time.Now().UnixMilli()))

		if err := prometheus.Register(bootTimeGauge); err != nil {
			slog.Error("Register boot time gauge", "err", err)
			os.Exit(1)
		}

		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(c.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server fail", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down gracefully, press Ctrl+C again to force")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown", "err", err)
		}
	}()

	slog.Info("Richdoc start", "addr", c.Addr, "storage", c.StorageBackend, "formatter", c.Formatter)
	if err := e.Start(c.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server fail", "err", err)
	}
}

func (s *Services) Close() {
	s.sessionsManager.Close()
	if s.formatCache != nil {
		if err := s.formatCache.Close(); err != nil {
			slog.Warn("Close format cache", "err", err)
		}
	}
}
