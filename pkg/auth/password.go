package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authkit/pkg/sanitizer"
	"github.com/dmitrymomot/authkit/pkg/validator"
)

const (
	// DefaultBcryptCost is deliberately above the library default.
	DefaultBcryptCost = 12

	DefaultVerificationTokenTTL = 24 * time.Hour
	DefaultResetTokenTTL        = time.Hour

	secureTokenBytes = 32
)

// PasswordService implements email/password registration and sign-in,
// email verification, and the password reset flow.
type PasswordService struct {
	users  UserStorage
	tokens TokenStorage

	bcryptCost      int
	verificationTTL time.Duration
	resetTTL        time.Duration
	logger          *slog.Logger
}

// PasswordOption configures a PasswordService.
type PasswordOption func(*PasswordService)

// WithBcryptCost overrides the bcrypt work factor.
func WithBcryptCost(cost int) PasswordOption {
	return func(s *PasswordService) {
		s.bcryptCost = cost
	}
}

// WithVerificationTokenTTL overrides the email verification token lifetime.
func WithVerificationTokenTTL(ttl time.Duration) PasswordOption {
	return func(s *PasswordService) {
		s.verificationTTL = ttl
	}
}

// WithResetTokenTTL overrides the password reset token lifetime.
func WithResetTokenTTL(ttl time.Duration) PasswordOption {
	return func(s *PasswordService) {
		s.resetTTL = ttl
	}
}

// WithPasswordLogger sets the logger used for non-fatal failures.
func WithPasswordLogger(log *slog.Logger) PasswordOption {
	return func(s *PasswordService) {
		s.logger = log
	}
}

// NewPasswordService creates a PasswordService backed by the given storages.
func NewPasswordService(users UserStorage, tokens TokenStorage, opts ...PasswordOption) *PasswordService {
	s := &PasswordService{
		users:           users,
		tokens:          tokens,
		bcryptCost:      DefaultBcryptCost,
		verificationTTL: DefaultVerificationTokenTTL,
		resetTTL:        DefaultResetTokenTTL,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registration is the input for creating an email/password account.
// Username and DisplayName are optional.
type Registration struct {
	Email       string
	Password    string
	Username    string
	DisplayName string
}

// Register creates an account with an email/password credential and issues
// an email verification token for delivery to the new address.
func (s *PasswordService) Register(ctx context.Context, reg Registration) (*User, string, error) {
	email := sanitizer.NormalizeEmail(reg.Email)

	rules := []validator.Rule{validator.ValidEmail("email", email)}
	rules = append(rules, validator.PasswordRules("password", reg.Password)...)
	if reg.Username != "" {
		rules = append(rules,
			validator.MinLen("username", reg.Username, 3),
			validator.MaxLen("username", reg.Username, 32),
		)
	}
	if reg.DisplayName != "" {
		rules = append(rules, validator.MaxLen("display_name", reg.DisplayName, 100))
	}
	if err := validator.Apply(rules...); err != nil {
		return nil, "", err
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, "", fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Email:        email,
		PasswordHash: hash,
		Username:     reg.Username,
		DisplayName:  strings.TrimSpace(reg.DisplayName),
		Role:         RoleUser,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.issueVerificationToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate verifies an email/password pair. Every failure surfaces as
// ErrInvalidCredentials so callers cannot probe which accounts exist.
func (s *PasswordService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = sanitizer.NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if user.IsDeleted() || !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.users.TouchLastSignIn(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last sign-in", "user_id", user.ID, "error", err)
	} else {
		user.LastSignInAt = &now
	}
	return user, nil
}

// IssueVerificationToken creates a fresh email verification token for the
// user, replacing any prior unconsumed one.
func (s *PasswordService) IssueVerificationToken(ctx context.Context, userID int64) (string, error) {
	return s.issueVerificationToken(ctx, userID)
}

func (s *PasswordService) issueVerificationToken(ctx context.Context, userID int64) (string, error) {
	token, err := generateSecureToken()
	if err != nil {
		return "", err
	}
	expiresAt := time.Now().Add(s.verificationTTL)
	if err := s.tokens.ReplaceVerificationToken(ctx, userID, token, expiresAt); err != nil {
		return "", fmt.Errorf("store verification token: %w", err)
	}
	return token, nil
}

// VerifyEmail consumes a verification token and marks the owning account's
// email as verified.
func (s *PasswordService) VerifyEmail(ctx context.Context, token string) (*User, error) {
	userID, err := s.tokens.ConsumeVerificationToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetEmailVerified(ctx, userID, true); err != nil {
		return nil, fmt.Errorf("mark email verified: %w", err)
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// ForgotPassword issues a password reset token for the account bound to
// the email. Unknown addresses return ErrUserNotFound so that the caller
// can suppress the distinction from its own response.
func (s *PasswordService) ForgotPassword(ctx context.Context, email string) (*PasswordResetRequest, error) {
	email = sanitizer.NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, ErrUserNotFound
	}

	token, err := generateSecureToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.tokens.ReplaceResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}
	return &PasswordResetRequest{Email: email, Token: token, ExpiresAt: expiresAt}, nil
}

// ResetPassword consumes a reset token and installs the new password. The
// token is spent even when it later turns out to be within its TTL.
func (s *PasswordService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validator.Apply(validator.PasswordRules("password", newPassword)...); err != nil {
		return err
	}

	userID, err := s.tokens.UseResetToken(ctx, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ChangePassword replaces the password for an authenticated user after
// confirming the current one.
func (s *PasswordService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	if err := validator.Apply(validator.PasswordRules("new_password", newPassword)...); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// LinkEmail attaches an email/password credential to an existing account
// and issues a verification token for the new address.
func (s *PasswordService) LinkEmail(ctx context.Context, userID int64, email, password string) (*User, string, error) {
	email = sanitizer.NormalizeEmail(email)

	rules := []validator.Rule{validator.ValidEmail("email", email)}
	rules = append(rules, validator.PasswordRules("password", password)...)
	if err := validator.Apply(rules...); err != nil {
		return nil, "", err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if user.Email != "" {
		return nil, "", ErrEmailAlreadyLinked
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, "", fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user.Email = email
	user.PasswordHash = hash
	user.EmailVerified = false
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.issueVerificationToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// UnlinkEmail removes the email/password credential. It refuses when this
// is the account's only way to sign in.
func (s *PasswordService) UnlinkEmail(ctx context.Context, userID int64) (*User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasWallet() && !user.HasProvider() {
		return nil, ErrLastAuthMethod
	}

	user.Email = ""
	user.PasswordHash = nil
	user.EmailVerified = false
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func generateSecureToken() (string, error) {
	buf := make([]byte, secureTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
