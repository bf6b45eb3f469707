// Package logger provides the process logger built on log/slog.
//
// WithCtx returns the logger injected by the Logger middleware, already
// tagged with the request ID, so every line a handler writes is correlated:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("course created", "course_id", course.ID)
//	// → time=... level=INFO msg="course created" request_id=4f1c... course_id=...
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

var L *slog.Logger

func init() {
	Setup(os.Getenv("APP_ENV"), os.Stdout)
}

// Console builds the console handler for env: JSON in production,
// human-readable text everywhere else.
func Console(env string, w io.Writer) slog.Handler {
	switch strings.ToLower(env) {
	case "production", "prod":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// Setup replaces the base logger. Extra handlers (e.g. a MongoHandler) are
// fanned out alongside the console handler.
func Setup(env string, w io.Writer, extra ...slog.Handler) *slog.Logger {
	var h slog.Handler = Console(env, w)
	if len(extra) > 0 {
		h = NewMultiHandler(append([]slog.Handler{h}, extra...)...)
	}

	L = slog.New(h)
	slog.SetDefault(L)
	return L
}

// ─── Context-aware logger ─────────────────────────────────────────────────────

type ctxKey struct{}

// WithCtx returns the per-request logger stored in ctx, or the base logger.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a request-scoped logger in ctx.
// Called by the Logger middleware.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// ─── Short-hand helpers (base logger) ─────────────────────────────────────────

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
