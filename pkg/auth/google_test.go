package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGoogleAdapter(t *testing.T) {
	t.Parallel()

	t.Run("missing credentials disable the provider", func(t *testing.T) {
		t.Parallel()

		_, err := NewGoogleAdapter(GoogleConfig{ClientID: "id-only"})
		assert.ErrorIs(t, err, ErrProviderNotConfigured)
	})

	t.Run("auth url carries state and client id", func(t *testing.T) {
		t.Parallel()

		adapter, err := NewGoogleAdapter(GoogleConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "https://app.example.com/auth/google/callback",
		})
		require.NoError(t, err)
		assert.Equal(t, "google", adapter.Name())

		url := adapter.AuthURL("csrf-state")
		assert.Contains(t, url, "state=csrf-state")
		assert.Contains(t, url, "client_id=client-id")
		assert.Contains(t, url, "accounts.google.com")
	})
}
