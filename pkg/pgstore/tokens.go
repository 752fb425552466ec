package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/authkit/pkg/auth"
	"github.com/dmitrymomot/authkit/pkg/pg"
)

func (s *Store) ReplaceVerificationToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM verification_tokens WHERE user_id = $1`, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO verification_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`,
			token, userID, expiresAt)
		return err
	})
	if err != nil {
		return storageErr("replace verification token", err)
	}
	return nil
}

// ConsumeVerificationToken deletes the row in the same statement that
// finds it, so concurrent presentations of one token succeed at most once.
func (s *Store) ConsumeVerificationToken(ctx context.Context, token string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var userID int64
	err := s.pool.QueryRow(ctx, `
		DELETE FROM verification_tokens
		WHERE token = $1 AND expires_at > now()
		RETURNING user_id`, token).Scan(&userID)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return 0, auth.ErrTokenInvalid
		}
		return 0, storageErr("consume verification token", err)
	}
	return userID, nil
}

func (s *Store) ReplaceResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM reset_tokens WHERE user_id = $1 AND used_at IS NULL`, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO reset_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`,
			token, userID, expiresAt)
		return err
	})
	if err != nil {
		return storageErr("replace reset token", err)
	}
	return nil
}

// UseResetToken marks the token used rather than deleting it, keeping a
// spent token permanently invalid and auditable. The conditional update
// is the atomicity guard: only one concurrent caller sees used_at NULL.
func (s *Store) UseResetToken(ctx context.Context, token string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var userID int64
	err := s.pool.QueryRow(ctx, `
		UPDATE reset_tokens SET used_at = now()
		WHERE token = $1 AND used_at IS NULL AND expires_at > now()
		RETURNING user_id`, token).Scan(&userID)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return 0, auth.ErrTokenInvalid
		}
		return 0, storageErr("use reset token", err)
	}
	return userID, nil
}

// PurgeExpiredTokens removes rows past their expiry, for a periodic
// maintenance job. Returns the number of rows removed.
func (s *Store) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var total int64
	for _, table := range []string{"verification_tokens", "reset_tokens", "wallet_nonces"} {
		tag, err := s.pool.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= now()`, table))
		if err != nil {
			return total, storageErr("purge expired tokens", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}
