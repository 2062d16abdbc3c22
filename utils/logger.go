package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

// LoggerOptions configures NewLoggerWithOptions.
type LoggerOptions struct {
	Writer io.Writer
	Level  slog.Level
	JSON   bool
	Color  bool

	// Fluent, when set, receives a copy of every entry at or above Level.
	Fluent    *fluent.Fluent
	FluentTag string
}

// Logger provides leveled, printf-style logging throughout the application.
type Logger struct {
	slog      *slog.Logger
	level     slog.Level
	fluent    *fluent.Fluent
	fluentTag string
}

// NewLogger creates a colored Logger writing to stdout at info level.
func NewLogger() *Logger {
	return NewLoggerWithOptions(LoggerOptions{Color: true, Level: slog.LevelInfo})
}

// NewLoggerWithOptions builds a Logger on top of slog.
func NewLoggerWithOptions(opts LoggerOptions) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	var handler slog.Handler
	switch {
	case opts.JSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	case opts.Color:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			TimeFormat: "2006-01-02 15:04:05",
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.Level})
	}

	tag := opts.FluentTag
	if tag == "" {
		tag = "makelaarsland"
	}

	return &Logger{
		slog:      slog.New(handler),
		level:     opts.Level,
		fluent:    opts.Fluent,
		fluentTag: tag,
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func (l *Logger) log(level slog.Level, format string, args ...any) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.slog.Log(context.Background(), level, msg)

	if l.fluent != nil && level >= l.level {
		name := strings.ToLower(level.String())
		_ = l.fluent.Post(l.fluentTag+"."+name, map[string]string{
			"level":     name,
			"message":   msg,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

func (l *Logger) Info(format string, args ...any) {
	l.log(slog.LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(slog.LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(slog.LevelError, format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.log(slog.LevelDebug, format, args...)
}

// Close flushes the fluent sink, if any.
func (l *Logger) Close() error {
	if l == nil || l.fluent == nil {
		return nil
	}
	return l.fluent.Close()
}
