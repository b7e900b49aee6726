// Package middleware provides HTTP middleware for Conductor.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Strob0t/Conductor/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID trusts an incoming X-Request-ID header and mints a uuid when
// the client sent none. The id travels in the request context for log
// correlation and is echoed on the response so callers can quote it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
