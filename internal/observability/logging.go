// Package observability carries build-scoped logging context.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/docxref/internal/logfields"
)

// LogContext is the build scope attached to a context: which build, which
// stage and which source file a log line belongs to.
type LogContext struct {
	BuildID string
	Stage   string
	File    string
}

// Attrs returns the non-empty fields as canonical log attributes.
func (lc LogContext) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 3)
	if lc.BuildID != "" {
		attrs = append(attrs, logfields.BuildID(lc.BuildID))
	}
	if lc.Stage != "" {
		attrs = append(attrs, logfields.Stage(lc.Stage))
	}
	if lc.File != "" {
		attrs = append(attrs, logfields.File(lc.File))
	}
	return attrs
}

type logContextKey struct{}

func with(ctx context.Context, update func(*LogContext)) context.Context {
	lc := GetContext(ctx)
	update(&lc)
	return context.WithValue(ctx, logContextKey{}, lc)
}

// WithBuildID adds a build ID to the context.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	return with(ctx, func(lc *LogContext) { lc.BuildID = buildID })
}

// WithStage sets the pipeline stage, replacing any previous one.
func WithStage(ctx context.Context, stage string) context.Context {
	return with(ctx, func(lc *LogContext) { lc.Stage = stage })
}

// WithFile sets the source file being processed.
func WithFile(ctx context.Context, file string) context.Context {
	return with(ctx, func(lc *LogContext) { lc.File = file })
}

// GetContext returns the build scope of ctx.
func GetContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey{}).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// ContextHandler adds the build scope of the record's context to every
// record, so plain slog.InfoContext calls carry it too.
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler wraps inner.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: inner}
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := GetContext(ctx).Attrs(); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

func logContext(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	logger := slog.Default()
	if _, scoped := logger.Handler().(*ContextHandler); !scoped {
		attrs = append(GetContext(ctx).Attrs(), attrs...)
	}
	logger.LogAttrs(ctx, level, msg, attrs...)
}

// InfoContext logs at info level with the build scope of ctx.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logContext(ctx, slog.LevelInfo, msg, attrs)
}

// WarnContext logs at warn level with the build scope of ctx.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logContext(ctx, slog.LevelWarn, msg, attrs)
}

// ErrorContext logs at error level with the build scope of ctx.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logContext(ctx, slog.LevelError, msg, attrs)
}

// DebugContext logs at debug level with the build scope of ctx.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logContext(ctx, slog.LevelDebug, msg, attrs)
}
