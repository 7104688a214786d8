package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"clubhub/internal/identity"
)

// TokenValidator defines the interface for validating bearer tokens
type TokenValidator interface {
	ValidatePrincipal(tokenString string) (identity.Principal, error)
}

type contextKeyPrincipal struct{}

// ContextKeyPrincipal is exported for use in handlers
var ContextKeyPrincipal = contextKeyPrincipal{}

// GetPrincipal retrieves the authenticated caller from the context
func GetPrincipal(ctx context.Context) (identity.Principal, bool) {
	principal, ok := ctx.Value(ContextKeyPrincipal).(identity.Principal)
	return principal, ok
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if after, ok := strings.CutPrefix(authHeader, bearerPrefix); ok {
				token := after
				principal, err := validator.ValidatePrincipal(token)
				if err != nil {
					ctx := r.Context()
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", GetRequestID(ctx),
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
					return
				}

				ctx := context.WithValue(r.Context(), ContextKeyPrincipal, principal)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// No Authorization header or invalid format
			ctx := r.Context()
			logger.WarnContext(ctx, "unauthorized access - missing token",
				"request_id", GetRequestID(ctx),
			)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
		})
	}
}
