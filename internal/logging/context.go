package logging

import (
	"context"
	"log/slog"

	"gistcast/internal/services"
)

// ContextFields extracts standardized attributes from context values set by
// the services helpers.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]Attr, 0, 4)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, Int64(FieldJobID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, String(FieldStage, stage))
	}
	if worker, ok := services.WorkerFromContext(ctx); ok {
		fields = append(fields, String(FieldWorker, worker))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger annotated with every field found in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
