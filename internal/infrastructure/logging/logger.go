// Package logging provides structured logging infrastructure for
// rangesync. It wraps Go's standard log/slog package with
// context-aware logging and domain-specific log attributes.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// contextKey is used for storing logger-related values in context.
type contextKey string

const (
	// CorrelationIDKey is the context key for correlation IDs.
	CorrelationIDKey contextKey = "correlation_id"
	// UserIDKey is the context key for the acting user id.
	UserIDKey contextKey = "user_id"
	// LinkIDKey is the context key for player-link ids.
	LinkIDKey contextKey = "link_id"
	// CollectionKey is the context key for the remote collection in play.
	CollectionKey contextKey = "collection"
)

// Level represents log levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format represents log output formats.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	AddSource  bool
	TimeFormat string
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     os.Stderr,
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

// Logger wraps slog.Logger with additional functionality for rangesync.
type Logger struct {
	slogger *slog.Logger
	level   slog.Level
}

// global is the package-level default logger.
var (
	global     *Logger
	globalOnce sync.Once
)

// Init initializes the global logger with the provided configuration.
func Init(cfg Config) *Logger {
	globalOnce.Do(func() {
		global = New(cfg)
	})
	return global
}

// Default returns the global logger, initializing it with defaults if necessary.
func Default() *Logger {
	if global == nil {
		Init(DefaultConfig())
	}
	return global
}

// New creates a new Logger with the provided configuration.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && cfg.TimeFormat != "" {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.Format(cfg.TimeFormat))
				}
			}
			return a
		},
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		slogger: slog.New(handler),
		level:   level,
	}
}

// parseLevel converts a Level to slog.Level.
func parseLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slogger: l.slogger.With(args...),
		level:   l.level,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// DebugContext logs at debug level with context.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// InfoContext logs at info level with context.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// WarnContext logs at warn level with context.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// ErrorContext logs at error level with context.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// enrichArgs extracts context values and adds them as log attributes.
func (l *Logger) enrichArgs(ctx context.Context, args []any) []any {
	enriched := make([]any, 0, len(args)+8)

	if v := ctx.Value(CorrelationIDKey); v != nil {
		enriched = append(enriched, "correlation_id", v)
	}
	if v := ctx.Value(UserIDKey); v != nil {
		enriched = append(enriched, "user_id", v)
	}
	if v := ctx.Value(LinkIDKey); v != nil {
		enriched = append(enriched, "link_id", v)
	}
	if v := ctx.Value(CollectionKey); v != nil {
		enriched = append(enriched, "collection", v)
	}

	enriched = append(enriched, args...)
	return enriched
}

// Underlying returns the underlying slog.Logger.
func (l *Logger) Underlying() *slog.Logger {
	return l.slogger
}

// --- Context helpers ---

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// WithUserID adds the acting user id to the context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// WithLinkID adds a player-link id to the context.
func WithLinkID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, LinkIDKey, id)
}

// WithCollection adds the remote collection name to the context.
func WithCollection(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, CollectionKey, name)
}

// --- Domain-specific logging helpers ---

// LogPushStart logs the start of an outbox push pass.
func LogPushStart(ctx context.Context, logger *Logger, pending int) {
	logger.DebugContext(ctx, "push pass started",
		"pending", pending,
	)
}

// LogPushComplete logs the completion of an outbox push pass.
func LogPushComplete(ctx context.Context, logger *Logger, pushed, purged, retained int, duration time.Duration) {
	logger.InfoContext(ctx, "push pass completed",
		"pushed", pushed,
		"purged", purged,
		"retained", retained,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogPullComplete logs the completion of a pull pass.
func LogPullComplete(ctx context.Context, logger *Logger, players, sessions, skipped int, duration time.Duration) {
	logger.InfoContext(ctx, "pull pass completed",
		"players", players,
		"sessions", sessions,
		"skipped_pending", skipped,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogItemRetained logs a transient per-item push failure.
func LogItemRetained(ctx context.Context, logger *Logger, collection, targetID string, err error) {
	logger.WarnContext(ctx, "outbox item retained after failure",
		"collection", collection,
		"target_id", targetID,
		"error", err.Error(),
	)
}

// LogTargetPurged logs a permanent-failure purge of a target's items.
func LogTargetPurged(ctx context.Context, logger *Logger, collection, targetID string) {
	logger.InfoContext(ctx, "outbox purged for vanished remote target",
		"collection", collection,
		"target_id", targetID,
	)
}

// LogLinkSync logs the result of a link range merge.
func LogLinkSync(ctx context.Context, logger *Logger, linkID string, added, skipped int, newVersion int64) {
	logger.InfoContext(ctx, "link sync completed",
		"link_id", linkID,
		"added", added,
		"skipped", skipped,
		"new_version", newVersion,
	)
}
