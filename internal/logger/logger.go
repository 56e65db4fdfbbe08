package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"
)

// Logger writes one JSON object per line:
// timestamp, level, service, action, message, hostname and free fields.
type Logger struct {
	service string
	base    slog.Handler
	sl      *slog.Logger
}

func New(service string) *Logger { return NewWithWriter(service, os.Stdout, slog.LevelInfo) }

func NewWithWriter(service string, w io.Writer, level slog.Leveler) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String("timestamp", a.Value.Time().UTC().Format(time.RFC3339Nano))
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})
	return &Logger{service: service, base: h, sl: slog.New(h).With("service", service, "hostname", hostname())}
}

// Nop discards everything.
func Nop() *Logger { return NewWithWriter("nop", io.Discard, slog.LevelError) }

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (l *Logger) Service() string { return l.service }

// With returns a logger that adds fields to every entry.
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{service: l.service, base: l.base, sl: l.sl.With(attrs(fields)...)}
}

// Named returns a logger for another service sharing the same output.
func (l *Logger) Named(service string) *Logger {
	return &Logger{service: service, base: l.base, sl: slog.New(l.base).With("service", service, "hostname", hostname())}
}

func (l *Logger) Debug(action string, fields map[string]any) { l.log(slog.LevelDebug, action, fields, nil) }
func (l *Logger) Info(action string, fields map[string]any)  { l.log(slog.LevelInfo, action, fields, nil) }
func (l *Logger) Warn(action string, fields map[string]any)  { l.log(slog.LevelWarn, action, fields, nil) }
func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.log(slog.LevelError, action, fields, err)
}

func (l *Logger) log(level slog.Level, action string, fields map[string]any, err error) {
	args := append([]any{"action", action}, attrs(fields)...)
	if err != nil {
		args = append(args, slog.Group("error", "msg", err.Error()))
	}
	l.sl.Log(context.Background(), level, action, args...)
}

// attrs flattens fields in key order so entries are stable.
func attrs(fields map[string]any) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
