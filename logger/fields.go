package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging across maestro.
const (
	// Jobs
	FieldJobType  = "job_type"
	FieldJobSeq   = "job_seq"
	FieldJobLabel = "job"
	FieldRetries  = "retries"
	FieldCommand  = "command"

	// Candidates
	FieldCandidateID   = "candidate_id"
	FieldCandidateName = "candidate_name"
	FieldCandidateType = "candidate_type"

	// Scheduling
	FieldRunID       = "run_id"
	FieldWindowStart = "window_start"
	FieldWindowEnd   = "window_end"
	FieldLines       = "lines"

	// Components
	FieldComponent = "component"
	FieldSymbol    = "symbol"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount = "count"

	// Files and network
	FieldFile    = "file"
	FieldAddress = "address"
)

type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	componentKey contextKey = "logger_component"
)

// WithRunID adds a scheduling run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithComponentContext adds a component name to the context for logging
func WithComponentContext(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context as key-value pairs.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}
	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}
	return fields
}

// FromContext decorates base with the fields carried by ctx.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named child of the global logger.
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
