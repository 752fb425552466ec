package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	t.Parallel()

	t.Run("remote addr fallback", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "203.0.113.7:42123"
		assert.Equal(t, "203.0.113.7", FromRequest(req))
	})

	t.Run("header priority", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:80"
		req.Header.Set("X-Real-IP", "198.51.100.2")
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		req.Header.Set("CF-Connecting-IP", "192.0.2.1")

		assert.Equal(t, "192.0.2.1", FromRequest(req))

		req.Header.Del("CF-Connecting-IP")
		assert.Equal(t, "203.0.113.7", FromRequest(req))

		req.Header.Del("X-Forwarded-For")
		assert.Equal(t, "198.51.100.2", FromRequest(req))
	})

	t.Run("spoofed garbage in headers is skipped", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "203.0.113.7:42123"
		req.Header.Set("X-Forwarded-For", "not-an-ip, <script>, 198.51.100.9")
		assert.Equal(t, "198.51.100.9", FromRequest(req))
	})

	t.Run("ipv6 normalized", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "[2001:db8::1]:443"
		assert.Equal(t, "2001:db8::1", FromRequest(req))
	})
}
