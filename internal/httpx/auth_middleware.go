package httpx

import (
	"context"
	"net/http"
	"strings"

	"libraryapi/internal/authz"
	"libraryapi/internal/platform/crypto"
)

// BlacklistRepository reports revoked token ids.
type BlacklistRepository interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// AuthMiddleware verifies the bearer token and attaches the resolved principal.
func AuthMiddleware(secret string, blacklistRepo BlacklistRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated", nil)
				return
			}

			claims, err := crypto.ParseToken(secret, token)
			if err != nil {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated", nil)
				return
			}

			if blacklistRepo != nil {
				isBlacklisted, err := blacklistRepo.IsBlacklisted(r.Context(), claims.ID)
				if err != nil || isBlacklisted {
					JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated", nil)
					return
				}
			}

			recordUserID(r.Context(), claims.Sub)
			principal := authz.NewPrincipal(claims.Sub, authz.Role(claims.Role))
			next.ServeHTTP(w, r.WithContext(authz.WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireCapability rejects principals that do not hold c.
func RequireCapability(c authz.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r)
			if !ok || !p.Authenticated() {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated", nil)
				return
			}
			if !p.Can(c) {
				JSONError(w, r, http.StatusForbidden, "FORBIDDEN", "User does not have the right permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
