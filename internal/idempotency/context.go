package idempotency

import "context"

type contextKey struct{}

// NewContext returns a Context carrying the request's idempotency key.
func NewContext(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, contextKey{}, key)
}

// FromContext returns the idempotency key stored in ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(contextKey{}).(string)
	return key, ok
}
