// Package logging holds the process-wide slog logger and carries request scoped
// loggers through context.Context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/masq"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(slog.New(slog.DiscardHandler))
}

// Default returns the process-wide logger. It discards output until SetDefault is called.
func Default() *slog.Logger {
	return defaultLogger.Load()
}

func SetDefault(logger *slog.Logger) {
	defaultLogger.Store(logger)
}

type ctxLoggerKey struct{}

// With returns a context that carries logger
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

// From returns the logger stored in ctx, or Default when there is none
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxLoggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return Default()
}

// Redactor masks credentials and personal data in log attributes
func Redactor() func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(
		masq.WithTag("secret"),
		masq.WithFieldName("Password"),
		masq.WithFieldName("APIKey"),
		masq.WithFieldName("Token"),
		masq.WithFieldPrefix("Secret"),
		masq.WithContain("Bearer "),
	)
}

// New builds a logger writing to w. Text output goes through clog for a human
// readable console layout; JSON output uses the slog JSON handler.
func New(w io.Writer, level slog.Level, format Format, color bool) *slog.Logger {
	switch format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource:   true,
			Level:       level,
			ReplaceAttr: Redactor(),
		}))
	default:
		return slog.New(clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithColor(color),
			clog.WithSource(true),
			clog.WithReplaceAttr(Redactor()),
		))
	}
}
