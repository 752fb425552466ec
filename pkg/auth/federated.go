package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/authkit/pkg/sanitizer"
)

// ProviderEmail is an email address asserted by an identity provider.
type ProviderEmail struct {
	Address  string
	Verified bool
}

// ProviderProfile is the normalized identity returned by a provider after
// a successful federated exchange.
type ProviderProfile struct {
	Provider    string
	SubjectID   string
	DisplayName string
	AvatarURL   string
	Emails      []ProviderEmail
}

// PrimaryVerifiedEmail returns the first verified address in the profile,
// normalized, or the empty string when none is verified.
func (p ProviderProfile) PrimaryVerifiedEmail() string {
	for _, e := range p.Emails {
		if e.Verified {
			return sanitizer.NormalizeEmail(e.Address)
		}
	}
	return ""
}

// ProviderAdapter abstracts a federated identity provider. Implementations
// exchange the provider's callback code for a verified profile.
type ProviderAdapter interface {
	// Name returns the provider identifier, e.g. "google".
	Name() string
	// AuthURL builds the provider consent URL for the given CSRF state.
	AuthURL(state string) string
	// ResolveProfile exchanges the callback code for the user's profile.
	ResolveProfile(ctx context.Context, code string) (ProviderProfile, error)
}

// FederatedService signs users in through external identity providers,
// linking provider identities to existing accounts by verified email when
// possible and creating accounts otherwise.
type FederatedService struct {
	users  UserStorage
	logger *slog.Logger
}

// FederatedOption configures a FederatedService.
type FederatedOption func(*FederatedService)

// WithFederatedLogger sets the logger used for non-fatal failures.
func WithFederatedLogger(log *slog.Logger) FederatedOption {
	return func(s *FederatedService) {
		s.logger = log
	}
}

// NewFederatedService creates a FederatedService backed by the given storage.
func NewFederatedService(users UserStorage, opts ...FederatedOption) *FederatedService {
	s := &FederatedService{
		users:  users,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate resolves the profile to a user account in three tiers:
// an account already bound to the provider subject, then an existing
// account matched by verified email, then a freshly created account.
// Matching by email is only done on provider-verified addresses so that an
// attacker cannot take over an account by asserting its email unverified.
// The boolean result reports whether a new account was created.
func (s *FederatedService) Authenticate(ctx context.Context, profile ProviderProfile) (*User, bool, error) {
	if profile.SubjectID == "" {
		return nil, false, fmt.Errorf("%w: empty provider subject", ErrInvalidCredentials)
	}

	user, err := s.users.GetUserByProviderID(ctx, profile.SubjectID)
	switch {
	case err == nil:
		s.refreshProfile(ctx, user, profile)
		s.touch(ctx, user)
		return user, false, nil
	case !errors.Is(err, ErrUserNotFound):
		return nil, false, fmt.Errorf("lookup provider identity: %w", err)
	}

	if email := profile.PrimaryVerifiedEmail(); email != "" {
		existing, err := s.users.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			if existing.HasProvider() {
				return nil, false, ErrProviderAlreadyLinked
			}
			existing.ProviderID = profile.SubjectID
			existing.EmailVerified = true
			s.fillProfile(existing, profile)
			if err := s.users.UpdateUser(ctx, existing); err != nil {
				return nil, false, err
			}
			s.touch(ctx, existing)
			return existing, false, nil
		case !errors.Is(err, ErrUserNotFound):
			return nil, false, fmt.Errorf("lookup email: %w", err)
		}
	}

	user = &User{
		ProviderID:  profile.SubjectID,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		Role:        RoleUser,
	}
	if email := profile.PrimaryVerifiedEmail(); email != "" {
		user.Email = email
		user.EmailVerified = true
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// A concurrent callback for the same subject can win the insert.
		// Treat the loser's conflict as a sign-in against the winner's row.
		if errors.Is(err, ErrProviderAlreadyLinked) || errors.Is(err, ErrEmailAlreadyExists) {
			existing, lookupErr := s.users.GetUserByProviderID(ctx, profile.SubjectID)
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

// UnlinkProvider removes the federated identity from the account. It
// refuses when this is the account's only way to sign in.
func (s *FederatedService) UnlinkProvider(ctx context.Context, userID int64) (*User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasWallet() && !user.HasPassword() {
		return nil, ErrLastAuthMethod
	}

	user.ProviderID = ""
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// refreshProfile updates display fields from the provider on repeat
// sign-ins. Failures are logged rather than failing the sign-in.
func (s *FederatedService) refreshProfile(ctx context.Context, user *User, profile ProviderProfile) {
	before := *user
	s.fillProfile(user, profile)
	if user.DisplayName == before.DisplayName && user.AvatarURL == before.AvatarURL {
		return
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		s.logger.Warn("failed to refresh provider profile", "user_id", user.ID, "error", err)
		*user = before
	}
}

func (s *FederatedService) fillProfile(user *User, profile ProviderProfile) {
	if profile.DisplayName != "" {
		user.DisplayName = profile.DisplayName
	}
	if profile.AvatarURL != "" {
		user.AvatarURL = profile.AvatarURL
	}
}

func (s *FederatedService) touch(ctx context.Context, user *User) {
	now := time.Now()
	if err := s.users.TouchLastSignIn(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last sign-in", "user_id", user.ID, "error", err)
		return
	}
	user.LastSignInAt = &now
}
