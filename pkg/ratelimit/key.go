package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/dmitrymomot/authkit/pkg/clientip"
)

// Backends like Redis suffer from unbounded key growth, so long composite
// keys are hashed down.
const maxKeyLength = 64

// KeyFunc extracts the rate limit key from a request. An empty key means
// the request is not limited.
type KeyFunc func(*http.Request) string

// KeyByIP keys requests by client IP as resolved through the proxy
// headers clientip understands.
func KeyByIP(r *http.Request) string {
	return clientip.FromRequest(r)
}

// KeyByPath keys requests by URL path, typically combined with KeyByIP.
func KeyByPath(r *http.Request) string {
	return r.URL.Path
}

// Composite joins several key funcs into one key. Oversized keys are
// hashed to a fixed 32 hex chars.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}
		if len(parts) == 0 {
			return ""
		}

		combined := strings.Join(parts, ":")
		if len(combined) > maxKeyLength {
			hash := sha256.Sum256([]byte(combined))
			return hex.EncodeToString(hash[:16])
		}
		return combined
	}
}
