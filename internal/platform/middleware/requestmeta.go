// Package middleware holds HTTP middleware shared across handlers.
package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"alumreg/pkg/requestcontext"
)

// RequestMetadata assigns a correlation id, pins the request time, and
// captures client IP / User-Agent into the request context. Services read
// these via pkg/requestcontext without touching net/http.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err == nil {
				ip = host
			} else {
				ip = r.RemoteAddr
			}
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		ctx = requestcontext.WithClientMetadata(ctx, ip, r.UserAgent())

		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
