package httpx

import (
	"context"
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gymflow/internal/apperr"
	"gymflow/internal/logger"
)

// Staff roles.
const (
	RoleOwner   = "OWNER"
	RoleTrainer = "TRAINER"
)

// Principal is the authenticated staff user of a request.
type Principal struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated staff user, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// Authenticator resolves a bearer token to an active staff user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// Authenticate requires a valid "Authorization: Bearer" token.
func Authenticate(a Authenticator, fallback *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				Error(w, r, fallback, apperr.Unauthorized("Authentication required. Please provide a valid token."))
				return
			}

			p, err := a.Authenticate(r.Context(), token)
			if err != nil {
				Error(w, r, fallback, err)
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			ctx = logger.WithUserID(ctx, logger.FromContext(ctx, fallback), p.ID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits only principals holding one of roles.
func RequireRole(fallback *zap.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				Error(w, r, fallback, apperr.Unauthorized("Authentication required. Please provide a valid token."))
				return
			}
			if !slices.Contains(roles, p.Role) {
				Error(w, r, fallback, apperr.Forbidden("You do not have permission to perform this action."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SharedSecret guards machine-to-machine routes with a static header value.
// An empty secret disables the routes with 503.
func SharedSecret(header, secret string, fallback *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				Error(w, r, fallback, apperr.Unavailable("%s not configured.", header))
				return
			}
			if subtle.ConstantTimeCompare([]byte(r.Header.Get(header)), []byte(secret)) != 1 {
				logger.FromContext(r.Context(), fallback).Warn("Unauthorized shared-secret request",
					zap.String("path", r.URL.Path),
					zap.String("remote", r.RemoteAddr),
				)
				Error(w, r, fallback, apperr.Unauthorized("Unauthorized."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DeviceKey guards door-device routes with the X-Device-Key header. Unlike
// SharedSecret, an unset key rejects every request with 401.
func DeviceKey(key string, fallback *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Device-Key")
			if key == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				Error(w, r, fallback, apperr.Unauthorized("Valid device key required."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
