package auth

import "context"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// Session identifies the authenticated caller for the duration of one
// request. It travels through the request context; there is no
// process-global current user.
type Session struct {
	UserID string
	Role   Role
}

type ctxKey int

const sessionKey ctxKey = iota

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the session placed by Middleware. The second
// result is false on unauthenticated contexts.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
