package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/authz"
	"libraryapi/internal/platform/crypto"
)

const testSecret = "httpx-secret"

type stubBlacklist struct {
	revoked map[string]bool
	err     error
}

func (s stubBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return s.revoked[jti], s.err
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r)
		JSONSuccess(w, r, map[string]string{"user_id": p.UserID, "role": string(p.Role)}, nil)
	})
}

func TestAuthMiddleware(t *testing.T) {
	token, jti, err := crypto.GenerateToken(testSecret, "u1", "USER", time.Hour)
	require.NoError(t, err)
	foreign, _, err := crypto.GenerateToken("other-secret", "u1", "USER", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name      string
		header    string
		blacklist stubBlacklist
		want      int
	}{
		{"valid token", "Bearer " + token, stubBlacklist{}, http.StatusOK},
		{"missing header", "", stubBlacklist{}, http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, stubBlacklist{}, http.StatusUnauthorized},
		{"wrong signing key", "Bearer " + foreign, stubBlacklist{}, http.StatusUnauthorized},
		{"revoked token", "Bearer " + token, stubBlacklist{revoked: map[string]bool{jti: true}}, http.StatusUnauthorized},
		{"blacklist unavailable", "Bearer " + token, stubBlacklist{err: errors.New("db down")}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(testSecret, tt.blacklist)(principalEcho())
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuthMiddleware_AttachesPrincipal(t *testing.T) {
	token, _, err := crypto.GenerateToken(testSecret, "a1", "ADMIN", time.Hour)
	require.NoError(t, err)

	var got authz.Principal
	handler := AuthMiddleware(testSecret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFrom(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "a1", got.UserID)
	assert.True(t, got.Can(authz.ClearCache))
	assert.False(t, got.Can(authz.BorrowBooks))
}

func TestRequireCapability(t *testing.T) {
	handler := RequireCapability(authz.BorrowBooks)(okHandler())

	run := func(ctx context.Context) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(ctx)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, run(context.Background()))
	assert.Equal(t, http.StatusOK, run(authz.WithPrincipal(context.Background(), authz.NewPrincipal("u1", authz.RoleUser))))
	assert.Equal(t, http.StatusForbidden, run(authz.WithPrincipal(context.Background(), authz.NewPrincipal("a1", authz.RoleAdmin))))
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer   ")
	_, ok := BearerToken(req)
	assert.False(t, ok)

	req.Header.Set("Authorization", "Bearer abc")
	token, ok := BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}
