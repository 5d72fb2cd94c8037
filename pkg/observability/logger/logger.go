package logger

import (
	"context"
)

// Logger is the structured logging interface used across the module.
// All log methods accept a message string followed by key-value pairs.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs
	Debug(msg string, args ...any)

	// Info logs an info-level message with optional key-value pairs
	Info(msg string, args ...any)

	// Warn logs a warning-level message with optional key-value pairs
	Warn(msg string, args ...any)

	// Error logs an error-level message with optional key-value pairs
	Error(msg string, args ...any)

	// With creates a child logger with additional key-value pairs that will be
	// included in all subsequent log entries
	With(args ...any) Logger

	// WithContext creates a child logger that extracts the job name from context
	WithContext(ctx context.Context) Logger
}

type contextKey string

const jobNameContextKey contextKey = "job_name"

// ContextWithJobName stores the diagnostic job name in the context so that
// log lines emitted inside a firing carry the job identity.
func ContextWithJobName(ctx context.Context, jobName string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, jobNameContextKey, jobName)
}

// JobNameFromContext returns the job name previously stored in the context,
// or an empty string.
func JobNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if jobName, ok := ctx.Value(jobNameContextKey).(string); ok {
		return jobName
	}
	return ""
}
