package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "alumreg/pkg/domain-errors"
	"alumreg/pkg/platform/httputil"
	"alumreg/pkg/requestcontext"
)

// RequireAdminToken guards admin endpoints with a shared secret header.
// An empty configured token disables the whole admin surface.
func RequireAdminToken(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin API is disabled"))
				return
			}
			got := r.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				logger.WarnContext(r.Context(), "admin token rejected",
					"request_id", requestcontext.RequestID(r.Context()),
					"client_ip", requestcontext.ClientIP(r.Context()),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "invalid admin token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminClaims are the JWT claims carried by dashboard session tokens.
type AdminClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// RequireAdminSession guards dashboard endpoints with a bearer JWT issued by
// the admin login endpoint. On success the admin's email becomes the audit
// actor for the request.
func RequireAdminSession(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims := &AdminClaims{}
			tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
				}
				return []byte(signingKey), nil
			})
			if err != nil || !tok.Valid {
				logger.WarnContext(r.Context(), "admin session rejected",
					"request_id", requestcontext.RequestID(r.Context()),
					"client_ip", requestcontext.ClientIP(r.Context()),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid session token"))
				return
			}

			ctx := requestcontext.WithActor(r.Context(), claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
