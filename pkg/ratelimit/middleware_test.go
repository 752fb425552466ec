package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) RecordIfAllowed(context.Context, string, time.Time, time.Duration, int) (bool, int64, error) {
	return false, 0, errors.New("store down")
}

func (failingStore) CountInWindow(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("store down")
}

func (failingStore) Reset(context.Context, string) error {
	return errors.New("store down")
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("limits and sets headers", func(t *testing.T) {
		t.Parallel()

		sw := newTestLimiter(t, 2, time.Minute)
		handler := Middleware(sw, KeyByIP)(okHandler)

		send := func() *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			handler.ServeHTTP(rec, req)
			return rec
		}

		rec := send()
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

		send()
		rec = send()
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("fails open on store errors", func(t *testing.T) {
		t.Parallel()

		sw, err := NewSlidingWindow(failingStore{}, 1, time.Minute)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		Middleware(sw, KeyByIP)(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("empty key skips limiting", func(t *testing.T) {
		t.Parallel()

		sw := newTestLimiter(t, 1, time.Minute)
		handler := Middleware(sw, func(*http.Request) string { return "" })(okHandler)

		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestKeyFuncs(t *testing.T) {
	t.Parallel()

	t.Run("KeyByIP prefers forwarded header", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		assert.Equal(t, "10.0.0.1", KeyByIP(req))

		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		assert.Equal(t, "203.0.113.9", KeyByIP(req))
	})

	t.Run("Composite joins and hashes long keys", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"

		key := Composite(KeyByPath, KeyByIP)(req)
		assert.Equal(t, "/login:10.0.0.1", key)

		long := Composite(func(*http.Request) string {
			return string(make([]byte, 100))
		})(req)
		assert.Len(t, long, 32)
	})
}
