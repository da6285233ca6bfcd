// Конфигурация сервиса редактора из переменных окружения.
//
// Основные возможности:
//   - Загрузка значений по тегам env у полей структуры Config.
//   - Маскировка секретов (ключи, пароли, токены) в логах.
//   - Значения по умолчанию для незаданных параметров.
package config

import (
	"log/slog"
	"net/url"
	"reflect"
	"strings"
	"time"
)

// Бэкенды загрузки файлов
const (
	StorageNone  = ""
	StorageMinio = "minio"
	StorageS3    = "s3"
	StorageHTTP  = "http"
)

type Config struct {
	Addr        string `env:"RICHDOC_ADDR"`
	MetricsAddr string `env:"RICHDOC_METRICS_ADDR"`
	BodyLimit   string `env:"RICHDOC_BODY_LIMIT"`
	CORSOrigins string `env:"RICHDOC_CORS_ORIGINS"`

	WebURL *url.URL `env:"WEB_URL"`

	SessionTTLMinutes int  `env:"RICHDOC_SESSION_TTL"`
	MaxSessions       int  `env:"RICHDOC_MAX_SESSIONS"`
	HistoryLimit      int  `env:"RICHDOC_HISTORY_LIMIT"`
	SanitizeDisabled  bool `env:"RICHDOC_SANITIZE_DISABLED"`

	// ExternalLimiter сервис квот на сессии и загрузки; без него ограничений нет
	ExternalLimiter *url.URL `env:"RICHDOC_EXTERNAL_LIMITER"`

	Formatter        string `env:"RICHDOC_FORMATTER"`
	FormatOnOpen     bool   `env:"RICHDOC_FORMAT_ON_OPEN"`
	PrintWidth       int    `env:"RICHDOC_PRINT_WIDTH"`
	TabWidth         int    `env:"RICHDOC_TAB_WIDTH"`
	UseTabs          bool   `env:"RICHDOC_USE_TABS"`
	RedisURL         string `env:"RICHDOC_REDIS_URL"`
	FormatCacheHours int    `env:"RICHDOC_FORMAT_CACHE_TTL"`

	EmbedMinWidth        int    `env:"RICHDOC_EMBED_MIN_WIDTH"`
	EmbedMaxWidth        int    `env:"RICHDOC_EMBED_MAX_WIDTH"`
	EmbedMinHeight       int    `env:"RICHDOC_EMBED_MIN_HEIGHT"`
	EmbedMaxHeight       int    `env:"RICHDOC_EMBED_MAX_HEIGHT"`
	EmbedFreeAspect      bool   `env:"RICHDOC_EMBED_FREE_ASPECT"`
	EmbedBlurPolicy      string `env:"RICHDOC_EMBED_BLUR_POLICY"`
	ImageMaxSize         int    `env:"RICHDOC_IMAGE_MAX_SIZE"`
	StorageBackend       string `env:"RICHDOC_STORAGE"`
	UploadURL            string `env:"RICHDOC_UPLOAD_URL"`
	UploadToken          string `env:"RICHDOC_UPLOAD_TOKEN"`
	FilesURL             string `env:"RICHDOC_FILES_URL"`
	UploadRetries        int    `env:"RICHDOC_UPLOAD_RETRIES"`
	UploadTimeoutSeconds int    `env:"RICHDOC_UPLOAD_TIMEOUT"`

	AWSRegion     string `env:"AWS_REGION"`
	AWSAccessKey  string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey  string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpoint   string `env:"AWS_S3_ENDPOINT_URL"`
	AWSBucketName string `env:"AWS_S3_BUCKET_NAME"`
	AWSUseSSL     bool   `env:"AWS_S3_USE_SSL"`
}

// ReadConfig загружает конфигурацию из переменных окружения и дополняет ее значениями по умолчанию.
func ReadConfig() *Config {
	config := &Config{}

	envConfig("env", config)
	config.applyDefaults()

	return config
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":2112"
	}
	if c.BodyLimit == "" {
		c.BodyLimit = "32M"
	}
	if c.SessionTTLMinutes <= 0 {
		c.SessionTTLMinutes = 60
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = 10000
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 100
	}
	if c.Formatter == "" {
		c.Formatter = "pretty"
	}
	if c.PrintWidth <= 0 {
		c.PrintWidth = 80
	}
	if c.TabWidth <= 0 {
		c.TabWidth = 2
	}
	if c.FormatCacheHours <= 0 {
		c.FormatCacheHours = 24
	}
	if c.EmbedMinWidth <= 0 {
		c.EmbedMinWidth = 160
	}
	if c.EmbedMaxWidth <= 0 {
		c.EmbedMaxWidth = 1920
	}
	if c.EmbedMinHeight <= 0 {
		c.EmbedMinHeight = 90
	}
	if c.EmbedMaxHeight <= 0 {
		c.EmbedMaxHeight = 1080
	}
	if c.ImageMaxSize <= 0 {
		c.ImageMaxSize = 2048
	}
	if c.UploadRetries <= 0 {
		c.UploadRetries = 3
	}
	if c.UploadTimeoutSeconds <= 0 {
		c.UploadTimeoutSeconds = 60
	}
	if c.AWSRegion == "" {
		c.AWSRegion = "us-east-1"
	}
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c *Config) FormatCacheTTL() time.Duration {
	return time.Duration(c.FormatCacheHours) * time.Hour
}

func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSeconds) * time.Second
}

// Origins разрешенные источники CORS. Пустой список разрешает все.
func (c *Config) Origins() []string {
	var out []string
	for o := range strings.SplitSeq(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Присваивает полям в переданной структуре значения переменных. Название переменной для каждого поля лежит в теге этого поля.
func envConfig(key string, s interface{}) {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fName := typeParam.Field(i).Name
		fEnvTag := typeParam.Field(i).Tag.Get(key)

		if fEnvTag == "" || !Exist(fEnvTag) {
			continue
		}

		logValue := GetEnv(fEnvTag)
		if logValue == "" {
			continue
		}

		// Secure passwords in log
		if isSecret(fName) {
			logValue = mask(logValue)
		}
		slog.Info("Set config value",
			slog.String("key", typeParam.Name()+"."+fName),
			slog.String("value", logValue),
			slog.String("source", "ENVIRONMENT"),
		)

		switch v.Field(i).Interface().(type) {
		case string:
			v.Field(i).SetString(GetEnv(fEnvTag))
		case int:
			v.Field(i).SetInt(int64(GetIntEnv(fEnvTag)))
		case bool:
			v.Field(i).SetBool(GetBoolEnv(fEnvTag))
		case *url.URL:
			if u := GetURLEnv(fEnvTag); u != nil {
				v.Field(i).Set(reflect.ValueOf(u))
			}
		}
	}
}

func isSecret(field string) bool {
	name := strings.ToLower(field)
	for _, s := range []string{"pass", "secret", "token", "key"} {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func mask(value string) string {
	runes := []rune(value)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}
