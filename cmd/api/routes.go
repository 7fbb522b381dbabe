package main

import (
	"context"
	"net/http"

	"libraryapi/internal/auth"
	"libraryapi/internal/authz"
	"libraryapi/internal/book"
	"libraryapi/internal/httpx"
	"libraryapi/internal/user"
)

type routeDeps struct {
	jwtSecret string
	blacklist httpx.BlacklistRepository
	ready     func(ctx context.Context) error

	books *book.HTTPHandler
	users *user.HTTPHandler
	auth  *auth.HTTPHandler
}

func newRouter(d routeDeps) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.ready != nil {
			if err := d.ready(r.Context()); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	authed := httpx.AuthMiddleware(d.jwtSecret, d.blacklist)
	protect := func(h http.HandlerFunc) http.Handler {
		return authed(h)
	}
	guard := func(c authz.Capability, h http.HandlerFunc) http.Handler {
		return authed(httpx.RequireCapability(c)(h))
	}

	router.HandleFunc("POST /api/register", d.users.Register)
	router.HandleFunc("POST /api/login", d.auth.Login)
	router.Handle("POST /api/logout", protect(d.auth.Logout))
	router.Handle("GET /api/me", protect(d.users.Me))

	router.Handle("GET /api/books", protect(d.books.List))
	router.Handle("GET /api/books/{id}", protect(d.books.Get))
	router.Handle("POST /api/books", guard(authz.CreateBooks, d.books.Create))
	router.Handle("PUT /api/books/{id}", guard(authz.EditBooks, d.books.Update))
	router.Handle("DELETE /api/books/{id}", guard(authz.DeleteBooks, d.books.Delete))
	router.Handle("POST /api/books/{id}/borrow", guard(authz.BorrowBooks, d.books.Borrow))
	router.Handle("POST /api/books/{id}/return", guard(authz.ReturnBooks, d.books.Return))
	router.Handle("POST /api/admin/cache/clear", guard(authz.ClearCache, d.books.ClearCache))

	return router
}

type middlewareConfig struct {
	allowedOrigins []string
	maxBodyBytes   int64
	hsts           bool
	rateLimiter    *httpx.RateLimiter
}

// withMiddleware wraps the router; recovery is outermost.
func withMiddleware(h http.Handler, mc middlewareConfig) http.Handler {
	chain := []func(http.Handler) http.Handler{
		httpx.RecoveryMiddleware,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.SecurityHeadersMiddleware(mc.hsts),
		httpx.CORSMiddleware(mc.allowedOrigins),
		httpx.RequestSizeLimitMiddleware(mc.maxBodyBytes),
	}
	if mc.rateLimiter != nil {
		chain = append(chain, mc.rateLimiter.Middleware)
	}
	return httpx.Chain(h, chain...)
}
