package jwt

import (
	"net/http"
	"strings"
)

// BearerToken extracts a token from an "Authorization: Bearer <token>" header
// per RFC 6750. Returns ErrInvalidToken when the header is absent or malformed.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}
