package persist

import (
	"context"
	"log/slog"
	"time"
)

// LogEvent describes one codec, migration or storage step.
type LogEvent struct {
	Op       string
	Type     string
	Path     string
	Message  string
	Duration time.Duration
	Err      error
}

// Logger records persistence events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// NopLogger returns a Logger that discards every event.
func NopLogger() Logger {
	return noopLogger{}
}

// WithLogger attaches a logger to the codec.
func WithLogger(logger Logger) Option {
	return func(cfg *codecConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger forwards events to logger. Events carrying an error are
// written at warn level, everything else at debug.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogLogger{logger: logger}
}

func (l slogLogger) Log(event LogEvent) {
	level := slog.LevelDebug
	if event.Err != nil {
		level = slog.LevelWarn
	}
	msg := event.Message
	if msg == "" {
		msg = event.Op
	}
	attrs := []slog.Attr{slog.String("op", event.Op)}
	if event.Type != "" {
		attrs = append(attrs, slog.String("type", event.Type))
	}
	if event.Path != "" {
		attrs = append(attrs, slog.String("path", event.Path))
	}
	if event.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", event.Duration))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}
