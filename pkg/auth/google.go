package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleConfig holds the Google OAuth application credentials. All fields
// are optional; an unconfigured provider is simply not offered.
type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
}

// Configured reports whether all credentials needed to enable the Google
// provider were supplied.
func (c GoogleConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

type googleAdapter struct {
	oauth *oauth2.Config
}

var _ ProviderAdapter = (*googleAdapter)(nil)

// NewGoogleAdapter creates the Google identity provider adapter. It returns
// ErrProviderNotConfigured when credentials are missing so callers can skip
// the provider instead of failing at startup.
func NewGoogleAdapter(cfg GoogleConfig) (ProviderAdapter, error) {
	if !cfg.Configured() {
		return nil, ErrProviderNotConfigured
	}
	return &googleAdapter{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}, nil
}

func (a *googleAdapter) Name() string { return "google" }

func (a *googleAdapter) AuthURL(state string) string {
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (a *googleAdapter) ResolveProfile(ctx context.Context, code string) (ProviderProfile, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return ProviderProfile{}, fmt.Errorf("%w: code exchange failed", ErrInvalidCredentials)
	}

	resp, err := a.oauth.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return ProviderProfile{}, fmt.Errorf("fetch google profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ProviderProfile{}, fmt.Errorf("fetch google profile: unexpected status %d", resp.StatusCode)
	}

	var raw struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return ProviderProfile{}, fmt.Errorf("decode google profile: %w", err)
	}
	if raw.ID == "" {
		return ProviderProfile{}, fmt.Errorf("%w: google profile has no subject", ErrInvalidCredentials)
	}

	profile := ProviderProfile{
		Provider:    a.Name(),
		SubjectID:   a.Name() + ":" + raw.ID,
		DisplayName: raw.Name,
		AvatarURL:   raw.Picture,
	}
	if raw.Email != "" {
		profile.Emails = append(profile.Emails, ProviderEmail{Address: raw.Email, Verified: raw.VerifiedEmail})
	}
	return profile, nil
}
