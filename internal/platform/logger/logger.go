package logger

import (
	"log/slog"
	"strings"

	"github.com/go-chi/httplog/v2"
)

// New builds the process-wide logger. The embedded *slog.Logger is used by
// services and the worker; the httplog wrapper feeds the request logger.
func New(service, level, env string) *httplog.Logger {
	return httplog.NewLogger(service, httplog.Options{
		JSON:             env != "dev",
		LogLevel:         ParseLevel(level),
		Concise:          env == "dev",
		RequestHeaders:   env == "dev",
		MessageFieldName: "message",
		Tags: map[string]string{
			"env": env,
		},
	})
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
