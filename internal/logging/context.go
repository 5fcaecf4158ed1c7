package logging

import (
	"context"
	"log/slog"
)

const (
	FieldComponent = "component"
	FieldProjectID = "project_id"
	FieldRunID     = "run_id"
	FieldStage     = "stage"
	FieldSpanID    = "span_id"
	// FieldAlert flags warnings that should stand out in structured logs.
	FieldAlert = "alert"
)

type ctxKey int

const (
	projectIDKey ctxKey = iota
	runIDKey
	stageKey
)

func WithProjectID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, projectIDKey, id)
}

func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// ContextFields extracts the standard attributes carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if v, ok := ctx.Value(projectIDKey).(string); ok && v != "" {
		fields = append(fields, slog.String(FieldProjectID, v))
	}
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		fields = append(fields, slog.String(FieldRunID, v))
	}
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		fields = append(fields, slog.String(FieldStage, v))
	}
	return fields
}

// WithContext returns logger augmented with the fields carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	logger = OrNop(logger)
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return logger.With(args...)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func Alert(value string) slog.Attr { return slog.String(FieldAlert, value) }
