package httpx

import (
	"log"
	"net/http"
	"runtime/debug"
)

// headerTracker remembers whether a status line has already gone out.
type headerTracker struct {
	http.ResponseWriter
	sent bool
}

func (t *headerTracker) WriteHeader(code int) {
	t.sent = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *headerTracker) Write(b []byte) (int, error) {
	t.sent = true
	return t.ResponseWriter.Write(b)
}

func (t *headerTracker) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}

// RecoveryMiddleware turns a handler panic into a 500 envelope when nothing was written yet.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &headerTracker{ResponseWriter: w}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Printf("panic recovered method=%s path=%s request_id=%s error=%v stack=%q",
				r.Method, r.URL.Path, RequestIDFrom(r), rec, debug.Stack())
			if !tw.sent {
				JSONError(tw, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
			}
		}()
		next.ServeHTTP(tw, r)
	})
}
