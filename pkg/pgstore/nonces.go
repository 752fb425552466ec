package pgstore

import (
	"context"
	"time"
)

func (s *Store) StoreNonce(ctx context.Context, address, token string, expiresAt time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO wallet_nonces (address, token, expires_at) VALUES ($1, $2, $3)`,
		address, token, expiresAt)
	if err != nil {
		return storageErr("store nonce", err)
	}
	return nil
}

func (s *Store) DeleteNonces(ctx context.Context, address string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM wallet_nonces WHERE address = $1`, address); err != nil {
		return storageErr("delete nonces", err)
	}
	return nil
}

// ConsumeNonce relies on the single-statement conditional delete: when two
// requests race on the same nonce, exactly one delete reports a row.
func (s *Store) ConsumeNonce(ctx context.Context, address, token string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM wallet_nonces
		WHERE address = $1 AND token = $2 AND expires_at > now()`,
		address, token)
	if err != nil {
		return false, storageErr("consume nonce", err)
	}
	return tag.RowsAffected() == 1, nil
}
