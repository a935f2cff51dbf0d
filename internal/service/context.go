package service

import "context"

type reqIDKey struct{}

// WithRequestID tags ctx with the inbound request id so emitted events can be
// correlated across services.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reqIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(reqIDKey{}).(string); ok {
		return v
	}
	return ""
}
