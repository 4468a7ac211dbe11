// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetGlobalLogger replaces the logger used by every RepoLogger and
// ServiceLogger created afterwards.
func SetGlobalLogger(l *slog.Logger) {
	GlobalLogger = &Logger{Logger: l}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID is the context key holding the correlation id.
const CorrelationID LogContextKey = "correlation_id"

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableRepoLogging    bool
	EnableServiceLogging bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableRepoLogging:    true,
	EnableServiceLogging: true,
}

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// RepoLogger provides structured logging for document store operations.
type RepoLogger struct {
	collection string
	logger     *Logger
}

// NewRepoLogger creates a new RepoLogger for the given collection.
func NewRepoLogger(collection string) *RepoLogger {
	return &RepoLogger{
		collection: collection,
		logger:     GlobalLogger,
	}
}

func (l *RepoLogger) log(ctx context.Context, operation string, fields map[string]any) {
	if !Config.EnableRepoLogging {
		return
	}
	attrs := []any{
		slog.String("collection", l.collection),
		slog.String("operation", operation),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.DebugContext(ctx, "repository "+operation, attrs...)
}

// LogCreate logs a repository create operation.
func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]any) {
	l.log(ctx, "create", fields)
}

// LogRead logs a repository read operation.
func (l *RepoLogger) LogRead(ctx context.Context, fields map[string]any) {
	l.log(ctx, "read", fields)
}

// LogUpdate logs a repository update operation.
func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]any) {
	l.log(ctx, "update", fields)
}

// LogDelete logs a repository delete operation.
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]any) {
	l.log(ctx, "delete", fields)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	if !Config.EnableRepoLogging {
		return
	}
	l.logger.ErrorContext(ctx, "repository error",
		slog.String("collection", l.collection),
		slog.String("operation", operation),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
		slog.String("error", err.Error()),
	)
}

// ServiceLogger logs the steps of multi-step service operations, in
// particular compensating cleanups and the resources they leave behind.
type ServiceLogger struct {
	service string
	logger  *Logger
}

// NewServiceLogger creates a ServiceLogger for the named service.
func NewServiceLogger(service string) *ServiceLogger {
	return &ServiceLogger{
		service: service,
		logger:  GlobalLogger,
	}
}

// LogOperation logs the outcome of a service operation.
func (l *ServiceLogger) LogOperation(ctx context.Context, operation string, err error, fields map[string]any) {
	if !Config.EnableServiceLogging {
		return
	}
	attrs := []any{
		slog.String("service", l.service),
		slog.String("operation", operation),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.logger.WarnContext(ctx, "service operation failed", attrs...)
		return
	}
	l.logger.InfoContext(ctx, "service operation completed", attrs...)
}

// LogCompensation logs a cleanup step run after a later step failed.
func (l *ServiceLogger) LogCompensation(ctx context.Context, operation, resourceID string, err error) {
	attrs := []any{
		slog.String("service", l.service),
		slog.String("operation", operation),
		slog.String("resource_id", resourceID),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.logger.ErrorContext(ctx, "compensating cleanup failed, resource orphaned", attrs...)
		return
	}
	l.logger.InfoContext(ctx, "compensating cleanup completed", attrs...)
}

// LogOrphan logs a resource left behind on purpose, such as a superseded
// file whose best-effort deletion failed.
func (l *ServiceLogger) LogOrphan(ctx context.Context, kind, resourceID, reason string, err error) {
	attrs := []any{
		slog.String("service", l.service),
		slog.String("kind", kind),
		slog.String("resource_id", resourceID),
		slog.String("reason", reason),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.logger.WarnContext(ctx, "resource orphaned", attrs...)
}
