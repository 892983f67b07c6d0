package tenant

import "context"

type ctxKey struct{}

// WithConn returns a derived context carrying the resolved tenant connection.
func WithConn(ctx context.Context, conn *Conn) context.Context {
	return context.WithValue(ctx, ctxKey{}, conn)
}

// ConnFromContext extracts the tenant connection attached by the resolution
// middleware, and a boolean indicating presence.
func ConnFromContext(ctx context.Context) (*Conn, bool) {
	conn, ok := ctx.Value(ctxKey{}).(*Conn)
	return conn, ok
}
