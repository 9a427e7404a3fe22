package audit

import (
	"context"
	"log/slog"

	"custody/pkg/requestcontext"
)

// Record logs event as an audit line and emits it. Unlike plain logging, the emit
// error is returned: compliance events are fail-closed.
func Record(ctx context.Context, logger *slog.Logger, emitter Emitter, event Event, attrs ...any) error {
	if logger != nil {
		args := append(attrs,
			"event", string(event.Type),
			"log_type", "audit",
		)
		if event.Account != "" {
			args = append(args, "account", string(event.Account))
		}
		if event.OperationID != "" {
			args = append(args, "operation_id", event.OperationID)
		}
		if requestID := requestcontext.RequestID(ctx); requestID != "" {
			args = append(args, "request_id", requestID)
		}
		logger.InfoContext(ctx, string(event.Type), args...)
	}

	if emitter == nil {
		return nil
	}
	return emitter.Emit(ctx, event)
}

// RecordBestEffort is Record for events that follow an already-committed change;
// emit failures are logged instead of returned.
func RecordBestEffort(ctx context.Context, logger *slog.Logger, emitter Emitter, event Event, attrs ...any) {
	if err := Record(ctx, logger, emitter, event, attrs...); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event.Type),
			"error", err,
		)
	}
}
