package nonce

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dmitrymomot/authkit/pkg/sanitizer"
)

// DefaultTTL is how long an issued challenge remains valid.
const DefaultTTL = 10 * time.Minute

// tokenBytes gives 128 bits of entropy, hex-encoded to 32 characters.
const tokenBytes = 16

// Storage persists challenge nonces. Implementations must make ConsumeNonce
// atomic: a single conditional delete that reports whether a live row was
// removed, never a read followed by a separate delete. Under concurrent
// consumption of the same (address, token) pair at most one caller may succeed.
type Storage interface {
	// StoreNonce saves a newly issued nonce with its expiry.
	StoreNonce(ctx context.Context, address, token string, expiresAt time.Time) error

	// DeleteNonces removes all nonces issued to the address.
	DeleteNonces(ctx context.Context, address string) error

	// ConsumeNonce atomically deletes a live (unexpired) nonce matching
	// address+token and reports whether one was deleted.
	ConsumeNonce(ctx context.Context, address, token string) (bool, error)
}

// Service issues and single-use-validates per-address challenge nonces.
type Service struct {
	storage Storage
	ttl     time.Duration
}

// Option configures a Service during construction.
type Option func(*Service)

// WithTTL overrides the challenge lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewService creates a nonce manager backed by the given storage.
func NewService(storage Storage, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue generates a fresh challenge nonce for the address, invalidating any
// prior ones so at most one nonce is live per address.
func (s *Service) Issue(ctx context.Context, address string) (string, error) {
	address = sanitizer.NormalizeWalletAddress(address)

	if err := s.storage.DeleteNonces(ctx, address); err != nil {
		return "", fmt.Errorf("failed to invalidate prior nonces: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	if err := s.storage.StoreNonce(ctx, address, token, time.Now().Add(s.ttl)); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}

	return token, nil
}

// Consume validates and burns a nonce in one step. It reports false for a
// wrong, expired or already consumed token; absence is a normal outcome that
// callers translate into an authentication failure.
func (s *Service) Consume(ctx context.Context, address, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	address = sanitizer.NormalizeWalletAddress(address)

	ok, err := s.storage.ConsumeNonce(ctx, address, token)
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}
	return ok, nil
}

// IssueState generates a single-use state value under the given scope.
// Unlike Issue, every state gets its own row, so overlapping flows for the
// same scope stay live until each one is consumed.
func (s *Service) IssueState(ctx context.Context, scope string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	if err := s.storage.StoreNonce(ctx, scope+":"+token, token, time.Now().Add(s.ttl)); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	return token, nil
}

// ConsumeState validates and burns a state issued by IssueState. Like
// Consume, at most one caller succeeds for a given value.
func (s *Service) ConsumeState(ctx context.Context, scope, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	ok, err := s.storage.ConsumeNonce(ctx, scope+":"+token, token)
	if err != nil {
		return false, fmt.Errorf("failed to consume state: %w", err)
	}
	return ok, nil
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
