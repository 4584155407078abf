package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
	"github.com/ShivpalBellway/DevBhakti/internal/auth"
	"github.com/ShivpalBellway/DevBhakti/internal/http/respond"
	"github.com/ShivpalBellway/DevBhakti/internal/model"
	"github.com/ShivpalBellway/DevBhakti/internal/repo"
)

type contextKey string

const (
	accountKey   contextKey = "account"
	accountIDKey contextKey = "account_id"
)

// Principal is the authenticated caller attached to the request context
type Principal struct {
	AccountID uuid.UUID
	Phone     string
	Role      model.Role
}

// AuthMiddleware validates the bearer token, loads the account from the DB and attaches it
// to the context. The role is taken from the stored account, not the token, so a demoted
// account loses access before its token expires.
func AuthMiddleware(jwtService *auth.JWTService, accounts repo.AccountRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respond.Error(w, r, nil, apperr.Unauthenticated("No token, authorization denied"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respond.Error(w, r, nil, apperr.Unauthenticated("Invalid authorization header format"))
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				respond.Error(w, r, nil, apperr.Unauthenticated("No token, authorization denied"))
				return
			}

			claims, err := jwtService.VerifyToken(tokenString)
			if err != nil {
				respond.Error(w, r, nil, apperr.Unauthenticated("Token is not valid"))
				return
			}

			acc, err := accounts.GetByID(r.Context(), claims.AccountID)
			if err != nil {
				respond.Error(w, r, nil, apperr.Unauthenticated("User not found"))
				return
			}

			p := Principal{AccountID: acc.ID, Phone: acc.Phone, Role: acc.Role}
			ctx := context.WithValue(r.Context(), accountKey, p)
			ctx = context.WithValue(ctx, accountIDKey, acc.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role is not listed. It must run after
// AuthMiddleware.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				respond.Error(w, r, nil, apperr.Unauthenticated("No token, authorization denied"))
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respond.Error(w, r, nil, apperr.Forbidden("Access denied"))
		})
	}
}

// GetPrincipal returns the caller attached by AuthMiddleware
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(accountKey).(Principal)
	return p, ok
}

// GetAccountID extracts the account ID from context
func GetAccountID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(accountIDKey).(uuid.UUID)
	return id, ok
}

// WithPrincipal returns a context carrying p. Used by tests and internal callers that
// authenticate by other means.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, accountKey, p)
	return context.WithValue(ctx, accountIDKey, p.AccountID)
}
