package challenge

import (
	"context"
	"time"

	"gatekey/cmd/identity/ids"
	"gatekey/cmd/security/otp"
)

const defaultTTL = 10 * time.Minute

// Service orchestrates challenge creation and verification, enforcing the
// lifecycle invariants on top of a Store.
type Service struct {
	store Store
	gen   otp.Generator
	ttl   time.Duration
}

// Option configures the Service.
type Option func(*Service) error

// WithTTL sets the fixed pending window (default 10 minutes).
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) error {
		if ttl <= 0 {
			return ErrInvalidInput
		}
		s.ttl = ttl
		return nil
	}
}

// WithDigits sets the generated code length (default 6).
func WithDigits(n int) Option {
	return func(s *Service) error {
		s.gen = otp.NewGenerator(n)
		return nil
	}
}

// NewService constructs a Service with safe defaults.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrInvalidInput
	}
	s := &Service{
		store: store,
		gen:   otp.NewGenerator(otp.DefaultDigits),
		ttl:   defaultTTL,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// TTL reports the configured pending window.
func (s *Service) TTL() time.Duration { return s.ttl }

// Created is the result of issuing a challenge. Code is handed to the
// delivery layer (and, under the explicit fallback policy, to the caller);
// it is never persisted.
type Created struct {
	Challenge Challenge
	Code      string
}

// Create generates a fresh code, stores its digest, and returns both the
// pending challenge and the plaintext code.
//
// Earlier pending challenges for the same user stay valid; expiry is the
// only cap on outstanding challenges.
func (s *Service) Create(ctx context.Context, userID string, now time.Time) (Created, error) {
	if s == nil || s.store == nil {
		return Created{}, ErrInvalidInput
	}
	if userID == "" {
		return Created{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Created{}, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	code, err := s.gen.Generate()
	if err != nil {
		return Created{}, err
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return Created{}, err
	}

	c := Challenge{
		ID:        id,
		UserID:    userID,
		CodeHash:  otp.HashCode(code),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Channel:   ChannelEmail,
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return Created{}, err
	}

	return Created{Challenge: c, Code: code}, nil
}

// VerifyResult reports a successful, consumed verification.
type VerifyResult struct {
	UserID    string
	Challenge Challenge
}

// Verify checks a supplied code against a challenge and consumes it on
// match.
//
// Failure modes: ErrNotFound, ErrConsumed, ErrExpired (all terminal for the
// challenge) and ErrCodeMismatch (challenge stays pending). The store's
// TryConsume re-validates state atomically, so a race between two correct
// submissions still produces exactly one success.
func (s *Service) Verify(ctx context.Context, challengeID, code string, now time.Time) (VerifyResult, error) {
	if s == nil || s.store == nil {
		return VerifyResult{}, ErrInvalidInput
	}
	if challengeID == "" || code == "" {
		return VerifyResult{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return VerifyResult{}, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	c, err := s.store.GetByID(ctx, challengeID)
	if err != nil {
		return VerifyResult{}, err
	}
	if c.Consumed() {
		return VerifyResult{}, ErrConsumed
	}
	if c.Expired(now) {
		// Best-effort cleanup; the timestamp check above already decided
		// the outcome.
		_ = s.store.DeleteExpired(ctx, c.ID)
		return VerifyResult{}, ErrExpired
	}

	if !otp.VerifyCode(c.CodeHash, code) {
		return VerifyResult{}, ErrCodeMismatch
	}

	consumed, err := s.store.TryConsume(ctx, c.ID, now)
	if err != nil {
		return VerifyResult{}, err
	}

	return VerifyResult{UserID: consumed.UserID, Challenge: consumed}, nil
}
