package nonce

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Storage implementation. Suitable for tests and
// single-process deployments; multi-process deployments should use a shared
// persistent store so a nonce issued by one process can be consumed by another.
type MemoryStore struct {
	mu    sync.Mutex
	rows  map[string]memoryRow // keyed by token
	clock func() time.Time
}

type memoryRow struct {
	address   string
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory nonce store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:  make(map[string]memoryRow),
		clock: time.Now,
	}
}

func (s *MemoryStore) StoreNonce(ctx context.Context, address, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[token] = memoryRow{address: address, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) DeleteNonces(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, row := range s.rows {
		if row.address == address {
			delete(s.rows, token)
		}
	}
	return nil
}

// ConsumeNonce performs the check and delete under one lock so concurrent
// attempts on the same token cannot both succeed.
func (s *MemoryStore) ConsumeNonce(ctx context.Context, address, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[token]
	if !ok || row.address != address {
		return false, nil
	}

	delete(s.rows, token)

	if s.clock().After(row.expiresAt) {
		return false, nil
	}
	return true, nil
}
