package httpx

import (
	"context"
	"net/http"

	"libraryapi/internal/authz"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// ContextWithRequestID returns a new context carrying the request id.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFrom retrieves the request id from the request context.
func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// PrincipalFrom retrieves the authenticated principal, if any.
func PrincipalFrom(r *http.Request) (authz.Principal, bool) {
	return authz.PrincipalFrom(r.Context())
}

// UserIDFrom retrieves the authenticated user id from the request context.
func UserIDFrom(r *http.Request) string {
	if p, ok := authz.PrincipalFrom(r.Context()); ok {
		return p.UserID
	}
	return ""
}
