package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dmitrymomot/authkit/pkg/sanitizer"
	"github.com/dmitrymomot/authkit/pkg/validator"
)

// ChallengeIssuer hands out single-use sign-in challenges per wallet
// address. Satisfied by nonce.Service.
type ChallengeIssuer interface {
	Issue(ctx context.Context, address string) (string, error)
}

// SignatureVerifier checks a signed challenge message against a claimed
// wallet address. Satisfied by wallet.Verifier.
type SignatureVerifier interface {
	Verify(ctx context.Context, message, signature, claimedAddress string) error
}

// WalletService implements signature-based wallet sign-in and wallet
// linking for existing accounts.
type WalletService struct {
	users      UserStorage
	challenges ChallengeIssuer
	verifier   SignatureVerifier
	logger     *slog.Logger
}

// WalletOption configures a WalletService.
type WalletOption func(*WalletService)

// WithWalletLogger sets the logger used for non-fatal failures.
func WithWalletLogger(log *slog.Logger) WalletOption {
	return func(s *WalletService) {
		s.logger = log
	}
}

// NewWalletService creates a WalletService.
func NewWalletService(users UserStorage, challenges ChallengeIssuer, verifier SignatureVerifier, opts ...WalletOption) *WalletService {
	s := &WalletService{
		users:      users,
		challenges: challenges,
		verifier:   verifier,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Challenge issues a fresh single-use sign-in challenge for the address.
// Issuing a new challenge invalidates any prior one for the same address.
func (s *WalletService) Challenge(ctx context.Context, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", validator.ValidationErrors{{Field: "address", Message: "must be a valid hex wallet address"}}
	}
	token, err := s.challenges.Issue(ctx, address)
	if err != nil {
		return "", fmt.Errorf("issue challenge: %w", err)
	}
	return token, nil
}

// Login verifies a signed challenge and signs the wallet's account in,
// creating the account on first sight of the address. The boolean result
// reports whether a new account was created. Every verification failure
// surfaces as ErrInvalidCredentials.
func (s *WalletService) Login(ctx context.Context, address, message, signature string) (*User, bool, error) {
	if err := s.verifier.Verify(ctx, message, signature, address); err != nil {
		s.logger.Debug("wallet signature rejected", "error", err)
		return nil, false, ErrInvalidCredentials
	}
	normalized := sanitizer.NormalizeWalletAddress(address)

	user, err := s.users.GetUserByWallet(ctx, normalized)
	switch {
	case err == nil:
		s.touch(ctx, user)
		return user, false, nil
	case !errors.Is(err, ErrUserNotFound):
		return nil, false, fmt.Errorf("lookup wallet: %w", err)
	}

	user = &User{
		WalletAddress: normalized,
		Role:          RoleUser,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// A concurrent first sign-in for the same address can win the
		// insert. The loser signs in against the winner's row.
		if errors.Is(err, ErrWalletAlreadyLinked) {
			existing, lookupErr := s.users.GetUserByWallet(ctx, normalized)
			if lookupErr != nil {
				return nil, false, err
			}
			s.touch(ctx, existing)
			return existing, false, nil
		}
		return nil, false, err
	}
	s.touch(ctx, user)
	return user, true, nil
}

// LinkWallet attaches a wallet credential to an existing account after
// verifying a signed challenge for the address.
func (s *WalletService) LinkWallet(ctx context.Context, userID int64, address, message, signature string) (*User, error) {
	if err := s.verifier.Verify(ctx, message, signature, address); err != nil {
		s.logger.Debug("wallet signature rejected", "error", err)
		return nil, ErrInvalidCredentials
	}
	normalized := sanitizer.NormalizeWalletAddress(address)

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasWallet() {
		return nil, ErrWalletAlreadyLinked
	}

	if _, err := s.users.GetUserByWallet(ctx, normalized); err == nil {
		return nil, ErrWalletAlreadyLinked
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("lookup wallet: %w", err)
	}

	user.WalletAddress = normalized
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UnlinkWallet removes the wallet credential. It refuses when this is the
// account's only way to sign in.
func (s *WalletService) UnlinkWallet(ctx context.Context, userID int64) (*User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasPassword() && !user.HasProvider() {
		return nil, ErrLastAuthMethod
	}

	user.WalletAddress = ""
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *WalletService) touch(ctx context.Context, user *User) {
	now := time.Now()
	if err := s.users.TouchLastSignIn(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last sign-in", "user_id", user.ID, "error", err)
		return
	}
	user.LastSignInAt = &now
}
