package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JhostinAleck/asrs/internal/models"
	pkghttp "github.com/JhostinAleck/asrs/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing user claims in context
	UserContextKey contextKey = "user"
)

// BearerToken extracts the token from an Authorization header value.
// Returns ErrTokenMissing when the header is absent or not a bearer scheme.
func BearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", models.ErrTokenMissing
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", models.ErrTokenMissing
	}

	return parts[1], nil
}

// Middleware validates the bearer token and injects user claims into context.
// Refresh tokens are rejected here; they are only accepted by /auth/refresh.
func Middleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Missing token")
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Invalid token")
				return
			}

			if claims.Type != models.TokenTypeAccess {
				pkghttp.WriteUnauthorized(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFetcher looks up users referenced by token claims.
type UserFetcher interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// RequireStaff enforces the staff flag for reporting endpoints. The flag is
// read from the database, not the token, so revoking staff takes effect on
// the next request.
func RequireStaff(userRepo UserFetcher) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			user, err := userRepo.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "unauthorized")
					return
				}
				pkghttp.WriteInternalError(w, "Internal server error")
				return
			}

			if !user.IsStaff {
				pkghttp.WriteForbidden(w, "Permission denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
