package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

type scopeContextKey struct{}

// PlatformScopeID is the project id of the platform-wide scope. Assignments
// held there are folded into every project's effective permission set.
const PlatformScopeID int64 = 0

// Scope identifies the project context a request operates in. Zero means the
// platform-wide scope used by global administration endpoints.
type Scope struct {
	ProjectID int64
}

// Global reports whether the scope is the platform-wide one.
func (s Scope) Global() bool {
	return s.ProjectID == PlatformScopeID
}

// ContextWithScope stores the resolved scope in context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the resolved scope. The second return value is
// false when no scope resolver ran for the request.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	return scope, ok
}
