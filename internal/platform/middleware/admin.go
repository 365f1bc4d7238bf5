package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"conexus/pkg/requestcontext"
)

// RequireAdminAccess accepts either the shared admin token or a bearer token
// issued to a staff account. Bearer access records the actor email in the
// context so audit events name who acted.
func RequireAdminAccess(expectedToken string, validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			// Constant-time comparison to prevent timing attacks.
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			bearer, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(r.Context(), "admin access denied",
					"request_id", GetRequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin credentials required"}`))
				return
			}

			claims, err := validator.ValidateToken(bearer)
			if err != nil {
				logger.WarnContext(r.Context(), "admin access denied - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := requestcontext.WithActorEmail(r.Context(), claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
