package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Store holds session state for the lifetime of a session.
//
// Acquire and Release guard the single run a session may have in flight. The
// lock lives in the store so every instance sharing it sees the same guard.
// Acquire reports false when another holder owns the lock; a lock lapses
// after ttl, and Release only drops a lock still held under token.
type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, s *State) error
	Delete(ctx context.Context, id string) error
	Acquire(ctx context.Context, id, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, id, token string) error
}
