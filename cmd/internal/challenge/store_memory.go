package challenge

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a dev/test fallback when no database is configured. The
// mutex-guarded check-and-set in TryConsume gives the same at-most-one
// consume guarantee the Postgres conditional update gives.
type MemoryStore struct {
	mu   sync.Mutex
	byID map[string]Challenge
}

// NewMemoryStore constructs an empty in-memory challenge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Challenge)}
}

// Insert persists a new pending challenge.
func (s *MemoryStore) Insert(ctx context.Context, c Challenge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.UserID) == "" || strings.TrimSpace(c.CodeHash) == "" {
		return ErrInvalidInput
	}
	if c.Channel == "" {
		c.Channel = ChannelEmail
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[c.ID] = c
	return nil
}

// GetByID fetches a challenge by id.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (Challenge, error) {
	if err := ctx.Err(); err != nil {
		return Challenge{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	return c, nil
}

// TryConsume performs the atomic consume transition under the store lock.
func (s *MemoryStore) TryConsume(ctx context.Context, id string, now time.Time) (Challenge, error) {
	if err := ctx.Err(); err != nil {
		return Challenge{}, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	if c.Consumed() {
		return Challenge{}, ErrConsumed
	}
	if c.Expired(now) {
		return Challenge{}, ErrExpired
	}

	ts := now
	c.ConsumedAt = &ts
	s.byID[id] = c
	return c, nil
}

// DeleteExpired removes an expired, unconsumed record.
func (s *MemoryStore) DeleteExpired(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return nil
	}
	if !c.Consumed() && c.Expired(time.Now().UTC()) {
		delete(s.byID, id)
	}
	return nil
}
