package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/webbase/adminapi/internal/api/response"
	"github.com/webbase/adminapi/internal/auth"
)

const principalKey contextKey = "principal"

// TokenAuthorizer validates a raw bearer token and optionally requires a
// role claim.
type TokenAuthorizer interface {
	Authorize(raw, requiredRole string) (*auth.Principal, error)
}

// Authenticate is middleware that reads the Authorization bearer token and
// stores the validated principal in the request context. Missing or
// invalid tokens return 401.
func Authenticate(tokens TokenAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			raw, ok := bearerToken(r)
			if !ok {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
				return
			}

			p, err := tokens.Authorize(raw, "")
			if err != nil {
				var invalid *auth.InvalidTokenError
				if errors.As(err, &invalid) {
					slog.Debug("token rejected", "reason", invalid.Reason, "requestId", requestID)
				}
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", requestID)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole returns middleware that rejects principals whose role code is
// not exactly role. It must run after Authenticate.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			switch err := auth.CheckRole(GetPrincipal(r.Context()), role); {
			case errors.Is(err, auth.ErrUnauthorized):
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
				return
			case errors.Is(err, auth.ErrForbidden):
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves the authenticated principal from the request context.
func GetPrincipal(ctx context.Context) *auth.Principal {
	if p, ok := ctx.Value(principalKey).(*auth.Principal); ok {
		return p
	}
	return nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
