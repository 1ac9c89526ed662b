package middleware

import (
	"context"
	"net/http"

	"github.com/rs/xid"
)

type contextKey int

const requestIDKey contextKey = iota

// RequestID tags the request context with a fresh id for log correlation.
// The id never leaves the process: it is not added to proxied requests or to
// responses.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), requestIDKey, xid.New().String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the id stored by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
