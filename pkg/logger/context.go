package logger

import (
	"context"

	"github.com/google/uuid"
)

// correlationIDKey marks the context storage slot for the correlation identifier.
type correlationIDKey struct{}

// WithCorrelationID stores a fresh correlation identifier in ctx and returns both.
func WithCorrelationID(ctx context.Context) (context.Context, string) {
	correlationID := uuid.NewString()
	return context.WithValue(ctx, correlationIDKey{}, correlationID), correlationID
}

// CorrelationIDFromContext returns the correlation identifier stored in ctx, or an empty string when absent.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}

	return ""
}
