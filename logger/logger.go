package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Level     slog.Level
	Format    string
	Output    io.Writer
	AddSource bool
}

func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelWarn,
		Format: "text",
		Output: os.Stderr,
	}
}

func ParseLevel(s string) (level slog.Level, err error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	err = fmt.Errorf("unknown log level %q", s)
	return
}

func Init(cfg Config) {
	var handler slog.Handler

	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

// ForComponent returns a logger tagged with the component name. The default
// handler is looked up on every record, so package level loggers follow a
// later Init.
func ForComponent(component string) *slog.Logger {
	return slog.New(deferred{}).With("component", component)
}

type deferred struct {
	with []func(slog.Handler) slog.Handler
}

func (d deferred) resolve() (h slog.Handler) {
	h = slog.Default().Handler()
	for _, f := range d.with {
		h = f(h)
	}
	return
}

func (d deferred) Enabled(ctx context.Context, level slog.Level) bool {
	return slog.Default().Handler().Enabled(ctx, level)
}

func (d deferred) Handle(ctx context.Context, r slog.Record) error { return d.resolve().Handle(ctx, r) }

func (d deferred) WithAttrs(attrs []slog.Attr) slog.Handler {
	return d.extend(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (d deferred) WithGroup(name string) slog.Handler {
	return d.extend(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (d deferred) extend(f func(slog.Handler) slog.Handler) deferred {
	with := make([]func(slog.Handler) slog.Handler, len(d.with), len(d.with)+1)
	copy(with, d.with)
	return deferred{with: append(with, f)}
}
