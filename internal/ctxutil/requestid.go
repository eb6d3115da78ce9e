// Package ctxutil carries per-call values through context.
package ctxutil

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

type ctxKey string

const requestIDKey ctxKey = "sv.requestID"

// WithRequestID stores the outbound request ID in context.
func WithRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx fetches the request ID from context.
func RequestIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(requestIDKey)
	if v == nil {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// EnsureRequestID returns ctx unchanged if it already carries a request ID,
// otherwise attaches a fresh V4 ID.
func EnsureRequestID(ctx context.Context) (context.Context, uuid.UUID) {
	if id, ok := RequestIDFromCtx(ctx); ok && id != uuid.Nil {
		return ctx, id
	}
	id, err := uuid.NewV4()
	if err != nil {
		return ctx, uuid.Nil
	}
	return WithRequestID(ctx, id), id
}
