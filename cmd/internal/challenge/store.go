package challenge

import (
	"context"
	"time"
)

// Store is the persistence boundary for challenges.
//
// TryConsume is the one operation that must be atomic: it sets consumed_at
// only if the record is still unconsumed and unexpired, in a single
// indivisible step. Concurrent verifications of the same pending challenge
// therefore yield at most one winner.
type Store interface {
	// Insert persists a new pending challenge.
	Insert(ctx context.Context, c Challenge) error

	// GetByID fetches a challenge. Returns ErrNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (Challenge, error)

	// TryConsume atomically marks a pending, unexpired challenge consumed
	// at now and returns the updated record. Otherwise it returns
	// ErrConsumed, ErrExpired, or ErrNotFound without any state change.
	TryConsume(ctx context.Context, id string, now time.Time) (Challenge, error)

	// DeleteExpired removes an expired, unconsumed record. Best-effort
	// cleanup only; correctness never depends on it having run.
	DeleteExpired(ctx context.Context, id string) error
}
