package config

import (
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Exist true, если переменная key задана
func Exist(key string) bool {
	_, exist := os.LookupEnv(key)
	return exist
}

func GetEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// GetIntEnv число из переменной; 0 при ошибке разбора, тогда сработает значение по умолчанию
func GetIntEnv(key string) int {
	v, err := strconv.Atoi(GetEnv(key))
	if err != nil {
		slog.Warn("Config value is not a number", "key", key)
		return 0
	}
	return v
}

func GetBoolEnv(key string) bool {
	v, err := strconv.ParseBool(GetEnv(key))
	return err == nil && v
}

// GetURLEnv абсолютный адрес из переменной. Адрес без схемы или хоста отбрасывается.
func GetURLEnv(key string) *url.URL {
	u, err := url.Parse(GetEnv(key))
	if err != nil || u.Scheme == "" || u.Host == "" {
		slog.Warn("Config value is not an absolute url", "key", key)
		return nil
	}
	return u
}
