package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/authkit/pkg/auth"
	"github.com/dmitrymomot/authkit/pkg/pg"
)

const userColumns = `id, wallet_address, email, password_hash, email_verified,
	provider_id, username, display_name, avatar_url, role,
	created_at, updated_at, last_sign_in_at, deleted_at`

func (s *Store) CreateUser(ctx context.Context, user *auth.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (wallet_address, email, password_hash, email_verified,
			provider_id, username, display_name, avatar_url, role)
		VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		user.WalletAddress, user.Email, user.PasswordHash, user.EmailVerified,
		user.ProviderID, user.Username, user.DisplayName, user.AvatarURL, string(user.Role),
	)
	if err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return conflictErr(err)
		}
		return storageErr("create user", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	return s.getUser(ctx, "id = $1", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.getUser(ctx, "email = $1", email)
}

func (s *Store) GetUserByWallet(ctx context.Context, address string) (*auth.User, error) {
	return s.getUser(ctx, "wallet_address = $1", address)
}

func (s *Store) GetUserByProviderID(ctx context.Context, providerID string) (*auth.User, error) {
	return s.getUser(ctx, "provider_id = $1", providerID)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*auth.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where+` AND deleted_at IS NULL`, arg)

	user, err := scanUser(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, storageErr("get user", err)
	}
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *auth.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET
			wallet_address = NULLIF($2, ''),
			email = NULLIF($3, ''),
			password_hash = $4,
			email_verified = $5,
			provider_id = NULLIF($6, ''),
			username = NULLIF($7, ''),
			display_name = $8,
			avatar_url = $9,
			role = $10,
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`,
		user.ID, user.WalletAddress, user.Email, user.PasswordHash, user.EmailVerified,
		user.ProviderID, user.Username, user.DisplayName, user.AvatarURL, string(user.Role),
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return conflictErr(err)
		}
		return storageErr("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID int64, hash []byte) error {
	return s.execOne(ctx, "update password",
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		userID, hash)
}

func (s *Store) SetEmailVerified(ctx context.Context, userID int64, verified bool) error {
	return s.execOne(ctx, "set email verified",
		`UPDATE users SET email_verified = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		userID, verified)
}

func (s *Store) TouchLastSignIn(ctx context.Context, userID int64, at time.Time) error {
	return s.execOne(ctx, "touch last sign-in",
		`UPDATE users SET last_sign_in_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		userID, at)
}

func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return storageErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		user          auth.User
		walletAddress *string
		email         *string
		providerID    *string
		username      *string
		role          string
	)
	err := row.Scan(
		&user.ID, &walletAddress, &email, &user.PasswordHash, &user.EmailVerified,
		&providerID, &username, &user.DisplayName, &user.AvatarURL, &role,
		&user.CreatedAt, &user.UpdatedAt, &user.LastSignInAt, &user.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	user.WalletAddress = deref(walletAddress)
	user.Email = deref(email)
	user.ProviderID = deref(providerID)
	user.Username = deref(username)
	user.Role = auth.Role(role)
	return &user, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// conflictErr maps the offended unique index to the matching sentinel so
// services can tell which identifier collided.
func conflictErr(err error) error {
	switch pg.ConstraintName(err) {
	case "users_email_key":
		return auth.ErrEmailAlreadyExists
	case "users_wallet_key":
		return auth.ErrWalletAlreadyLinked
	case "users_provider_key":
		return auth.ErrProviderAlreadyLinked
	case "users_username_key":
		return auth.ErrUsernameAlreadyExists
	default:
		return storageErr("unique constraint", err)
	}
}
