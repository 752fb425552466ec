package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/authkit/pkg/jwt"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	DefaultAccessTokenTTL  = 7 * 24 * time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Claims is the session token payload. It carries enough identity to
// authorize most requests without a storage round trip.
type Claims struct {
	UserID        int64  `json:"uid"`
	WalletAddress string `json:"wallet,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          Role   `json:"role"`
	TokenType     string `json:"typ"`
	jwt.StandardClaims
}

// TokenPair bundles the access and refresh tokens issued on sign-in.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // access token lifetime in seconds
}

// TokenService issues and verifies signed session tokens.
type TokenService struct {
	signer     *jwt.Service
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithIssuer sets the iss claim on issued tokens.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		s.issuer = issuer
	}
}

// WithAccessTokenTTL overrides the access token lifetime.
func WithAccessTokenTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		s.accessTTL = ttl
	}
}

// WithRefreshTokenTTL overrides the refresh token lifetime.
func WithRefreshTokenTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		s.refreshTTL = ttl
	}
}

// NewTokenService creates a TokenService signing with the given secret.
func NewTokenService(signingKey string, opts ...TokenOption) (*TokenService, error) {
	signer, err := jwt.NewFromString(signingKey)
	if err != nil {
		return nil, err
	}
	s := &TokenService{
		signer:     signer,
		accessTTL:  DefaultAccessTokenTTL,
		refreshTTL: DefaultRefreshTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates an access/refresh token pair for the user.
func (s *TokenService) Issue(user *User) (TokenPair, error) {
	access, err := s.generate(user, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.generate(user, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// VerifyAccess parses and validates an access token. Expired tokens return
// ErrTokenExpired; everything else invalid returns ErrTokenInvalid.
func (s *TokenService) VerifyAccess(token string) (*Claims, error) {
	return s.verify(token, TokenTypeAccess)
}

// VerifyRefresh parses and validates a refresh token.
func (s *TokenService) VerifyRefresh(token string) (*Claims, error) {
	return s.verify(token, TokenTypeRefresh)
}

// Refresh exchanges a valid refresh token for a fresh access token. The
// new token reflects the user's current state, not the state at sign-in.
func (s *TokenService) Refresh(refreshToken string, current *User) (string, error) {
	claims, err := s.verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	if current.ID != claims.UserID {
		return "", ErrTokenInvalid
	}
	access, err := s.generate(current, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

func (s *TokenService) generate(user *User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	return s.signer.Generate(Claims{
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		Email:         user.Email,
		Role:          user.Role,
		TokenType:     tokenType,
		StandardClaims: jwt.StandardClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			Issuer:    s.issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	})
}

func (s *TokenService) verify(token, expectedType string) (*Claims, error) {
	var claims Claims
	if err := s.signer.Parse(token, &claims); err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != expectedType || claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
