package middleware

import (
	"net/http"

	"github.com/cloo-solutions/skumatch/internal/api"
)

// MaxBodyBytes rejects or truncates request bodies larger than limit.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := LimitBody(limit)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 && r.Body != nil && r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// LimitBody truncates request bodies at limit but leaves the response to the
// handler, which sees *http.MaxBytesError when it reads past the limit. The
// browser UI uses it so an oversized upload still lands back on the page.
func LimitBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
