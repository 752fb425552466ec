package auth

import (
	"net/http"

	"github.com/dmitrymomot/authkit/pkg/jwt"
)

// Middleware authenticates requests by bearer token. It rejects requests
// without a token, with an invalid or expired token, with a refresh token
// presented as an access token, and for missing or soft-deleted accounts.
// The authenticated user is stored on the request context.
func Middleware(tokens *TokenService, users UserStorage) func(http.Handler) http.Handler {
	return middleware(tokens, users, true)
}

// OptionalMiddleware resolves the user when a valid bearer token is
// present and lets anonymous requests through untouched.
func OptionalMiddleware(tokens *TokenService, users UserStorage) func(http.Handler) http.Handler {
	return middleware(tokens, users, false)
}

func middleware(tokens *TokenService, users UserStorage, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := jwt.BearerToken(r)
			if err != nil {
				if required {
					unauthorized(w)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.VerifyAccess(token)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if err != nil || user.IsDeleted() {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireRole rejects authenticated requests whose user lacks the role.
// Admins satisfy every role requirement.
func RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok {
				unauthorized(w)
				return
			}
			if user.Role != role && !user.IsAdmin() {
				forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireVerifiedEmail rejects requests from users whose email credential
// has not been verified. Users without an email credential pass.
func RequireVerifiedEmail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := CurrentUser(r.Context())
		if !ok {
			unauthorized(w)
			return
		}
		if user.Email != "" && !user.EmailVerified {
			forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOwner rejects requests where the authenticated user is neither
// the resolved resource owner nor an admin.
func RequireOwner(ownerID func(r *http.Request) (int64, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok {
				unauthorized(w)
				return
			}
			owner, err := ownerID(r)
			if err != nil {
				http.Error(w, "Bad Request", http.StatusBadRequest)
				return
			}
			if user.ID != owner && !user.IsAdmin() {
				forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

func forbidden(w http.ResponseWriter) {
	http.Error(w, "Forbidden", http.StatusForbidden)
}
