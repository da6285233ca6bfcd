// Основной пакет сервиса редактора документов. Читает конфигурацию, настраивает логирование и запускает HTTP-сервер.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/aisa-it/richdoc/internal/richdoc"
	"github.com/aisa-it/richdoc/internal/richdoc/config"
)

var version string = "DEV"

// Пример запуска: go run main.go --trace
func main() {
	trace := flag.Bool("trace", false, "Verbose logs and error stack traces")
	jsonLogs := flag.Bool("jsonLogs", false, "Log in JSON format")
	flag.Parse()

	PrintBanner()

	if *trace {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Set prod log format
	if version != "DEV" {
		opts := &slog.HandlerOptions{}
		if *trace {
			opts.Level = slog.LevelDebug
		}
		if *jsonLogs {
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opts)))
		} else {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)))
		}
	}

	cfg := config.ReadConfig()

	richdoc.Server(cfg, version)
}

// PrintBanner выводит заголовок сервиса с версией.
func PrintBanner() {
	banner := `
       _      _         _
  _ __(_) ___| |__   __| | ___   ___
 | '__| |/ __| '_ \ / _  |/ _ \ / __|
 | |  | | (__| | | | (_| | (_) | (__
 |_|  |_|\___|_| |_|\__,_|\___/ \___| %s
Structured document editor sessions over HTTP
%s
----------------------------------------------------
`
	colorReset := "\033[0m"

	colorYellow := "\033[33m"
	colorBlue := "\033[34m"

	formattedVersion := version
	if version == "DEV" {
		formattedVersion = colorYellow + version + colorReset
	}

	fmt.Printf(banner, formattedVersion, colorBlue+"https://aisa.ru"+colorReset)
}
