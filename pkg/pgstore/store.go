package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authkit/pkg/auth"
	"github.com/dmitrymomot/authkit/pkg/pg"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const defaultQueryTimeout = 5 * time.Second

// Store implements the auth and nonce storage interfaces on a pgx pool.
type Store struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithQueryTimeout bounds every query so a stalled database surfaces as
// auth.ErrStorageUnavailable instead of a hung request.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.queryTimeout = timeout
		}
	}
}

// New creates a Store on the given pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:         pool,
		queryTimeout: defaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate applies the store's embedded schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, migrationsFS, "migrations", cfg, log)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// storageErr classifies backend failures: timeouts and connection
// problems become ErrStorageUnavailable, everything else passes through
// wrapped for context.
func storageErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, auth.ErrStorageUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
