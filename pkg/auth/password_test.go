package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authkit/pkg/validator"
)

func hashPassword(t *testing.T, password string) []byte {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

func TestPasswordService_Register(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		tokens := new(MockTokenStorage)
		svc := NewPasswordService(users, tokens, WithBcryptCost(bcrypt.MinCost))

		users.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(nil, ErrUserNotFound)
		users.On("CreateUser", mock.Anything, mock.AnythingOfType("*auth.User")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*User).ID = 7
			}).Return(nil)
		tokens.On("ReplaceVerificationToken", mock.Anything, int64(7), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

		user, token, err := svc.Register(context.Background(), Registration{
			Email:       "  Alice@Example.COM ",
			Password:    "Sup3rSecret!",
			Username:    "alice",
			DisplayName: " Alice Liddell ",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "Alice Liddell", user.DisplayName)
		assert.Equal(t, RoleUser, user.Role)
		assert.False(t, user.EmailVerified)
		assert.Len(t, token, secureTokenBytes*2)
		assert.NoError(t, bcrypt.CompareHashAndPassword(user.PasswordHash, []byte("Sup3rSecret!")))
		users.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewPasswordService(users, new(MockTokenStorage), WithBcryptCost(bcrypt.MinCost))

		users.On("GetUserByEmail", mock.Anything, "taken@example.com").Return(&User{ID: 1, Email: "taken@example.com"}, nil)

		_, _, err := svc.Register(context.Background(), Registration{Email: "taken@example.com", Password: "Sup3rSecret!"})
		assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	})

	t.Run("weak password rejected with all violations", func(t *testing.T) {
		t.Parallel()

		svc := NewPasswordService(new(MockUserStorage), new(MockTokenStorage))

		_, _, err := svc.Register(context.Background(), Registration{Email: "bob@example.com", Password: "short"})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.True(t, verrs.Has("password"))
		assert.GreaterOrEqual(t, len(verrs), 2)
	})

	t.Run("invalid email", func(t *testing.T) {
		t.Parallel()

		svc := NewPasswordService(new(MockUserStorage), new(MockTokenStorage))

		_, _, err := svc.Register(context.Background(), Registration{Email: "not-an-email", Password: "Sup3rSecret!"})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.True(t, verrs.Has("email"))
	})
}

func TestPasswordService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("success updates last sign-in", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewPasswordService(users, new(MockTokenStorage))

		stored := &User{ID: 3, Email: "alice@example.com", PasswordHash: hashPassword(t, "Sup3rSecret!")}
		users.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(stored, nil)
		users.On("TouchLastSignIn", mock.Anything, int64(3), mock.AnythingOfType("time.Time")).Return(nil)

		user, err := svc.Authenticate(context.Background(), "Alice@example.com", "Sup3rSecret!")
		require.NoError(t, err)
		assert.Equal(t, int64(3), user.ID)
		require.NotNil(t, user.LastSignInAt)
		users.AssertExpectations(t)
	})

	t.Run("unknown email is indistinguishable from wrong password", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewPasswordService(users, new(MockTokenStorage))

		users.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, ErrUserNotFound)

		_, err := svc.Authenticate(context.Background(), "ghost@example.com", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewPasswordService(users, new(MockTokenStorage))

		stored := &User{ID: 3, Email: "alice@example.com", PasswordHash: hashPassword(t, "Sup3rSecret!")}
		users.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(stored, nil)

		_, err := svc.Authenticate(context.Background(), "alice@example.com", "wrong password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wallet-only account has no password credential", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewPasswordService(users, new(MockTokenStorage))

		stored := &User{ID: 4, Email: "alice@example.com", WalletAddress: "0xabc"}
		users.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(stored, nil)

		_, err := svc.Authenticate(context.Background(), "alice@example.com", "anything")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("soft-deleted account", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewPasswordService(users, new(MockTokenStorage))

		deletedAt := time.Now()
		stored := &User{ID: 5, Email: "gone@example.com", PasswordHash: hashPassword(t, "Sup3rSecret!"), DeletedAt: &deletedAt}
		users.On("GetUserByEmail", mock.Anything, "gone@example.com").Return(stored, nil)

		_, err := svc.Authenticate(context.Background(), "gone@example.com", "Sup3rSecret!")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestPasswordService_VerifyEmail(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		tokens := new(MockTokenStorage)
		svc := NewPasswordService(users, tokens)

		tokens.On("ConsumeVerificationToken", mock.Anything, "tok").Return(int64(9), nil)
		users.On("SetEmailVerified", mock.Anything, int64(9), true).Return(nil)
		users.On("GetUserByID", mock.Anything, int64(9)).Return(&User{ID: 9, Email: "a@b.co", EmailVerified: true}, nil)

		user, err := svc.VerifyEmail(context.Background(), "tok")
		require.NoError(t, err)
		assert.True(t, user.EmailVerified)
	})

	t.Run("invalid token", func(t *testing.T) {
		t.Parallel()

		tokens := new(MockTokenStorage)
		svc := NewPasswordService(new(MockUserStorage), tokens)

		tokens.On("ConsumeVerificationToken", mock.Anything, "bad").Return(int64(0), ErrTokenInvalid)

		_, err := svc.VerifyEmail(context.Background(), "bad")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestPasswordService_ForgotPassword(t *testing.T) {
	t.Parallel()

	t.Run("success replaces prior token", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		tokens := new(MockTokenStorage)
		svc := NewPasswordService(users, tokens, WithResetTokenTTL(30*time.Minute))

		users.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(&User{ID: 3, Email: "alice@example.com"}, nil)
		tokens.On("ReplaceResetToken", mock.Anything, int64(3), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

		req, err := svc.ForgotPassword(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", req.Email)
		assert.Len(t, req.Token, secureTokenBytes*2)
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), req.ExpiresAt, 5*time.Second)
	})

	t.Run("unknown email surfaces internally", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewPasswordService(users, new(MockTokenStorage))

		users.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, ErrUserNotFound)

		_, err := svc.ForgotPassword(context.Background(), "ghost@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestPasswordService_ResetPassword(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		tokens := new(MockTokenStorage)
		svc := NewPasswordService(users, tokens, WithBcryptCost(bcrypt.MinCost))

		tokens.On("UseResetToken", mock.Anything, "tok").Return(int64(3), nil)
		users.On("UpdatePasswordHash", mock.Anything, int64(3), mock.AnythingOfType("[]uint8")).
			Run(func(args mock.Arguments) {
				hash := args.Get(2).([]byte)
				assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("N3wSecret!pass")))
			}).Return(nil)

		err := svc.ResetPassword(context.Background(), "tok", "N3wSecret!pass")
		require.NoError(t, err)
		users.AssertExpectations(t)
	})

	t.Run("used token stays invalid", func(t *testing.T) {
		t.Parallel()

		tokens := new(MockTokenStorage)
		svc := NewPasswordService(new(MockUserStorage), tokens)

		tokens.On("UseResetToken", mock.Anything, "spent").Return(int64(0), ErrTokenInvalid)

		err := svc.ResetPassword(context.Background(), "spent", "N3wSecret!pass")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("weak replacement rejected before token spend", func(t *testing.T) {
		t.Parallel()

		tokens := new(MockTokenStorage)
		svc := NewPasswordService(new(MockUserStorage), tokens)

		err := svc.ResetPassword(context.Background(), "tok", "weak")
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		tokens.AssertNotCalled(t, "UseResetToken", mock.Anything, mock.Anything)
	})
}

func TestPasswordService_ChangePassword(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewPasswordService(users, new(MockTokenStorage), WithBcryptCost(bcrypt.MinCost))

		stored := &User{ID: 3, Email: "a@b.co", PasswordHash: hashPassword(t, "Curr3nt!pass")}
		users.On("GetUserByID", mock.Anything, int64(3)).Return(stored, nil)
		users.On("UpdatePasswordHash", mock.Anything, int64(3), mock.AnythingOfType("[]uint8")).Return(nil)

		err := svc.ChangePassword(context.Background(), 3, "Curr3nt!pass", "N3wSecret!pass")
		require.NoError(t, err)
	})

	t.Run("wrong current password", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewPasswordService(users, new(MockTokenStorage))

		stored := &User{ID: 3, Email: "a@b.co", PasswordHash: hashPassword(t, "Curr3nt!pass")}
		users.On("GetUserByID", mock.Anything, int64(3)).Return(stored, nil)

		err := svc.ChangePassword(context.Background(), 3, "nope", "N3wSecret!pass")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestPasswordService_LinkUnlinkEmail(t *testing.T) {
	t.Parallel()

	t.Run("link to wallet-only account", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		tokens := new(MockTokenStorage)
		svc := NewPasswordService(users, tokens, WithBcryptCost(bcrypt.MinCost))

		stored := &User{ID: 3, WalletAddress: "0xabc"}
		users.On("GetUserByID", mock.Anything, int64(3)).Return(stored, nil)
		users.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(nil, ErrUserNotFound)
		users.On("UpdateUser", mock.Anything, mock.AnythingOfType("*auth.User")).Return(nil)
		tokens.On("ReplaceVerificationToken", mock.Anything, int64(3), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

		user, token, err := svc.LinkEmail(context.Background(), 3, "alice@example.com", "Sup3rSecret!")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.False(t, user.EmailVerified)
		assert.NotEmpty(t, token)
	})

	t.Run("link rejected when email credential exists", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewPasswordService(users, new(MockTokenStorage))

		stored := &User{ID: 3, Email: "old@example.com", PasswordHash: []byte("x")}
		users.On("GetUserByID", mock.Anything, int64(3)).Return(stored, nil)

		_, _, err := svc.LinkEmail(context.Background(), 3, "new@example.com", "Sup3rSecret!")
		assert.ErrorIs(t, err, ErrEmailAlreadyLinked)
	})

	t.Run("unlink refused for last method", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewPasswordService(users, new(MockTokenStorage))

		stored := &User{ID: 3, Email: "a@b.co", PasswordHash: []byte("x")}
		users.On("GetUserByID", mock.Anything, int64(3)).Return(stored, nil)

		_, err := svc.UnlinkEmail(context.Background(), 3)
		assert.ErrorIs(t, err, ErrLastAuthMethod)
	})

	t.Run("unlink with wallet remaining", func(t *testing.T) {
		t.Parallel()

		users := new(MockUserStorage)
		svc := NewPasswordService(users, new(MockTokenStorage))

		stored := &User{ID: 3, Email: "a@b.co", PasswordHash: []byte("x"), EmailVerified: true, WalletAddress: "0xabc"}
		users.On("GetUserByID", mock.Anything, int64(3)).Return(stored, nil)
		users.On("UpdateUser", mock.Anything, mock.AnythingOfType("*auth.User")).Return(nil)

		user, err := svc.UnlinkEmail(context.Background(), 3)
		require.NoError(t, err)
		assert.Empty(t, user.Email)
		assert.Nil(t, user.PasswordHash)
		assert.False(t, user.EmailVerified)
	})
}
