package shared

import "context"

type sessionContextKey struct{}

// Principal is the authenticated actor of a request.
type Principal struct {
	UserID    int64  `json:"userId"`
	CompanyID int64  `json:"companyId"`
	Role      string `json:"role"`
	Username  string `json:"username"`
}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// PrincipalFromContext returns the authenticated principal stored in the session.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	return SessionFromContext(ctx).Principal()
}
