package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	apphttp "github.com/kamyabi/economy-engine/pkg/app/http"
)

// TokenValidator validates a bearer token and returns its claims.
// Satisfied by *JWTValidator; narrowed here so handlers can be tested
// with a stub.
type TokenValidator interface {
	ValidateToken(tokenString string) (jwt.MapClaims, error)
}

// RequireUser returns middleware that validates the bearer token and
// injects the uid, role, and phone claims into the request context.
func RequireUser(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := validateBearer(validator, r)
			if err != nil {
				apphttp.DefaultErrorHandler(w, err)
				return
			}

			uid, _ := claims["sub"].(string)
			if uid == "" {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "token missing subject"))
				return
			}

			ctx := WithUID(r.Context(), uid)
			if role, ok := claims["role"].(string); ok {
				ctx = WithRole(ctx, role)
			}
			if phone, ok := claims["phone_number"].(string); ok {
				ctx = WithPhone(ctx, phone)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns middleware that rejects callers whose token does
// not carry the admin role. It must be mounted inside RequireUser.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := RoleFromContext(r.Context())
		if !ok || role != RoleAdmin {
			apphttp.DefaultErrorHandler(w, apperrors.ForbiddenError(nil, "admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func validateBearer(validator TokenValidator, r *http.Request) (jwt.MapClaims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, apperrors.UnAuthorizedError(nil, "missing authorization header")
	}

	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return nil, apperrors.UnAuthorizedError(nil, "malformed authorization header")
	}

	claims, err := validator.ValidateToken(token)
	if err != nil {
		return nil, apperrors.UnAuthorizedError(err, "invalid token")
	}
	return claims, nil
}
