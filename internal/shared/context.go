package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession attaches the authenticated session so handlers
// down the chain can read claims without another Redis round trip.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the session placed by the session
// middleware, or nil for an anonymous request.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
