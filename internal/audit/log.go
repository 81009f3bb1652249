package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"opsboard.org/internal/auth"
	"opsboard.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the audit request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and identity
// context. Delivery is best-effort: the entry goes to the process log stream,
// never to the request path.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}

	attrs := []slog.Attr{
		slog.String("type", "audit"),
		slog.Time("ts", time.Now().UTC()),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		attrs = append(attrs,
			slog.String("user_id", identity.UserID),
			slog.String("domain", identity.Domain),
		)
	}
	fieldAttrs := make([]any, 0, len(fields))
	for k, v := range fields {
		fieldAttrs = append(fieldAttrs, slog.Any(k, v))
	}
	attrs = append(attrs, slog.Group("fields", fieldAttrs...))

	obs.Logger().LogAttrs(ctx, slog.LevelInfo, event, attrs...)
	return nil
}
