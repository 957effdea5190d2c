package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
	"domio/pkg/platform/httputil"
	"domio/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims are the fields the middleware needs from an access token.
type Claims struct {
	UserID        id.UserID
	ResidentialID id.ResidentialID
	Role          id.RoleName
}

// RequireAuth validates the Authorization header and stores the actor and
// residential in the request context for handlers and the audit recorder.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access, missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access, invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = requestcontext.WithActorID(ctx, claims.UserID)
			ctx = requestcontext.WithResidentialID(ctx, claims.ResidentialID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
