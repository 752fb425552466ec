package auth

import (
	"context"
	"time"
)

// UserStorage persists user accounts. Implementations must enforce
// uniqueness of email, username, wallet address, and provider identifier
// at the storage level and surface violations as the matching sentinel
// (ErrEmailAlreadyExists, ErrUsernameAlreadyExists, ErrWalletAlreadyLinked,
// ErrProviderAlreadyLinked). Lookups exclude soft-deleted accounts and
// return ErrUserNotFound when nothing matches.
type UserStorage interface {
	// CreateUser inserts the user and assigns its ID.
	CreateUser(ctx context.Context, user *User) error

	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByWallet(ctx context.Context, address string) (*User, error)
	GetUserByProviderID(ctx context.Context, providerID string) (*User, error)

	// UpdateUser persists the mutable profile and credential fields.
	UpdateUser(ctx context.Context, user *User) error

	// UpdatePasswordHash replaces the stored password hash for the user.
	UpdatePasswordHash(ctx context.Context, userID int64, hash []byte) error

	// SetEmailVerified flips the email verification flag.
	SetEmailVerified(ctx context.Context, userID int64, verified bool) error

	// TouchLastSignIn records a successful sign-in without racing
	// concurrent profile updates.
	TouchLastSignIn(ctx context.Context, userID int64, at time.Time) error
}

// TokenStorage persists single-use email verification and password reset
// tokens. The consume operations must be atomic: when the same token is
// presented concurrently, at most one call succeeds.
type TokenStorage interface {
	// ReplaceVerificationToken stores a verification token for the user,
	// discarding any prior unconsumed token.
	ReplaceVerificationToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// ConsumeVerificationToken deletes the token and returns the user it
	// belonged to. Expired, unknown, and already-consumed tokens return
	// ErrTokenInvalid.
	ConsumeVerificationToken(ctx context.Context, token string) (int64, error)

	// ReplaceResetToken stores a password reset token for the user,
	// discarding any prior unused token.
	ReplaceResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// UseResetToken marks the token used and returns the user it belonged
	// to. A used token never becomes valid again even inside its TTL.
	// Expired, unknown, and already-used tokens return ErrTokenInvalid.
	UseResetToken(ctx context.Context, token string) (int64, error)
}
