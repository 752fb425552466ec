package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func googleProfile() ProviderProfile {
	return ProviderProfile{
		Provider:    "google",
		SubjectID:   "google:123",
		DisplayName: "Alice",
		AvatarURL:   "https://example.com/a.png",
		Emails:      []ProviderEmail{{Address: "Alice@Example.com", Verified: true}},
	}
}

func TestFederatedService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("repeat sign-in by subject", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewFederatedService(users)

		stored := &User{ID: 1, ProviderID: "google:123", DisplayName: "Alice", AvatarURL: "https://example.com/a.png"}
		users.On("GetUserByProviderID", mock.Anything, "google:123").Return(stored, nil)
		users.On("TouchLastSignIn", mock.Anything, int64(1), mock.AnythingOfType("time.Time")).Return(nil)

		user, isNew, err := svc.Authenticate(context.Background(), googleProfile())
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, int64(1), user.ID)
		users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("links to existing account by verified email", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewFederatedService(users)

		existing := &User{ID: 2, Email: "alice@example.com", PasswordHash: []byte("x")}
		users.On("GetUserByProviderID", mock.Anything, "google:123").Return(nil, ErrUserNotFound)
		users.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(existing, nil)
		users.On("UpdateUser", mock.Anything, mock.AnythingOfType("*auth.User")).Return(nil)
		users.On("TouchLastSignIn", mock.Anything, int64(2), mock.AnythingOfType("time.Time")).Return(nil)

		user, isNew, err := svc.Authenticate(context.Background(), googleProfile())
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, "google:123", user.ProviderID)
		assert.True(t, user.EmailVerified)
	})

	t.Run("unverified email never merges accounts", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewFederatedService(users)

		profile := googleProfile()
		profile.Emails[0].Verified = false

		users.On("GetUserByProviderID", mock.Anything, "google:123").Return(nil, ErrUserNotFound)
		users.On("CreateUser", mock.Anything, mock.AnythingOfType("*auth.User")).
			Run(func(args mock.Arguments) {
				created := args.Get(1).(*User)
				created.ID = 5
				assert.Empty(t, created.Email)
				assert.False(t, created.EmailVerified)
			}).Return(nil)
		users.On("TouchLastSignIn", mock.Anything, int64(5), mock.AnythingOfType("time.Time")).Return(nil)

		user, isNew, err := svc.Authenticate(context.Background(), profile)
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.Equal(t, int64(5), user.ID)
		users.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
	})

	t.Run("creates account with verified email", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewFederatedService(users)

		users.On("GetUserByProviderID", mock.Anything, "google:123").Return(nil, ErrUserNotFound)
		users.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(nil, ErrUserNotFound)
		users.On("CreateUser", mock.Anything, mock.AnythingOfType("*auth.User")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*User).ID = 6
			}).Return(nil)
		users.On("TouchLastSignIn", mock.Anything, int64(6), mock.AnythingOfType("time.Time")).Return(nil)

		user, isNew, err := svc.Authenticate(context.Background(), googleProfile())
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.True(t, user.EmailVerified)
		assert.Equal(t, RoleUser, user.Role)
	})

	t.Run("concurrent create loser signs in against winner", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewFederatedService(users)

		winner := &User{ID: 8, ProviderID: "google:123"}
		users.On("GetUserByProviderID", mock.Anything, "google:123").Return(nil, ErrUserNotFound).Once()
		users.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(nil, ErrUserNotFound)
		users.On("CreateUser", mock.Anything, mock.AnythingOfType("*auth.User")).Return(ErrProviderAlreadyLinked)
		users.On("GetUserByProviderID", mock.Anything, "google:123").Return(winner, nil).Once()
		users.On("TouchLastSignIn", mock.Anything, int64(8), mock.AnythingOfType("time.Time")).Return(nil)

		user, isNew, err := svc.Authenticate(context.Background(), googleProfile())
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, int64(8), user.ID)
	})

	t.Run("empty subject rejected", func(t *testing.T) {
		t.Parallel()

		svc := NewFederatedService(new(MockUserStorage))

		_, _, err := svc.Authenticate(context.Background(), ProviderProfile{Provider: "google"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("email owner with another provider is a conflict", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewFederatedService(users)

		existing := &User{ID: 2, Email: "alice@example.com", ProviderID: "github:999"}
		users.On("GetUserByProviderID", mock.Anything, "google:123").Return(nil, ErrUserNotFound)
		users.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(existing, nil)

		_, _, err := svc.Authenticate(context.Background(), googleProfile())
		assert.ErrorIs(t, err, ErrProviderAlreadyLinked)
	})
}

func TestFederatedService_UnlinkProvider(t *testing.T) {
	t.Parallel()

	t.Run("refused for last method", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewFederatedService(users)

		users.On("GetUserByID", mock.Anything, int64(1)).Return(&User{ID: 1, ProviderID: "google:123"}, nil)

		_, err := svc.UnlinkProvider(context.Background(), 1)
		assert.ErrorIs(t, err, ErrLastAuthMethod)
	})

	t.Run("allowed with password remaining", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewFederatedService(users)

		stored := &User{ID: 1, ProviderID: "google:123", Email: "a@b.co", PasswordHash: []byte("x")}
		users.On("GetUserByID", mock.Anything, int64(1)).Return(stored, nil)
		users.On("UpdateUser", mock.Anything, mock.AnythingOfType("*auth.User")).Return(nil)

		user, err := svc.UnlinkProvider(context.Background(), 1)
		require.NoError(t, err)
		assert.Empty(t, user.ProviderID)
	})
}

func TestProviderProfile_PrimaryVerifiedEmail(t *testing.T) {
	t.Parallel()

	profile := ProviderProfile{Emails: []ProviderEmail{
		{Address: "unverified@example.com", Verified: false},
		{Address: " Second@Example.com ", Verified: true},
	}}
	assert.Equal(t, "second@example.com", profile.PrimaryVerifiedEmail())

	assert.Empty(t, ProviderProfile{}.PrimaryVerifiedEmail())
}
