package pkglog

import "context"

const invalidCorrelationID = "[invalid_chain_id]"

type chainIDContextKey struct{}

// GetCorrelationID returns the correlation ID stored in the context.
//
// Middleware is expected to set this value early in the request lifecycle so
// it can be attached to logs and propagated to background work it starts.
func GetCorrelationID(ctx context.Context) string {
	clm, ok := ctx.Value(chainIDContextKey{}).(string)
	if !ok {
		return invalidCorrelationID
	}
	return clm
}

// SetCorrelationID stores a correlation ID into the context.
func SetCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, chainIDContextKey{}, cid)
}

// Detach returns a context that keeps the correlation ID of ctx but not its
// deadline or cancellation, for work that outlives the request.
func Detach(parent, ctx context.Context) context.Context {
	if cid := GetCorrelationID(ctx); cid != invalidCorrelationID {
		return SetCorrelationID(parent, cid)
	}
	return parent
}
