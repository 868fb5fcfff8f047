package challenge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	svc, err := NewService(store, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestService_CreateThenVerify(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	created, err := svc.Create(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Code == "" || len(created.Code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", created.Code)
	}
	if created.Challenge.CodeHash == created.Code {
		t.Fatalf("plaintext code must not be stored")
	}
	if got, want := created.Challenge.ExpiresAt, now.Add(10*time.Minute); !got.Equal(want) {
		t.Fatalf("expires_at=%v want=%v", got, want)
	}

	res, err := svc.Verify(ctx, created.Challenge.ID, created.Code, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.UserID != "user-1" {
		t.Fatalf("wrong user id %q", res.UserID)
	}
	if !res.Challenge.Consumed() {
		t.Fatalf("expected consumed challenge")
	}
}

func TestService_VerifyTwice_SecondFailsConsumed(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	created, err := svc.Create(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Verify(ctx, created.Challenge.ID, created.Code, now); err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	_, err = svc.Verify(ctx, created.Challenge.ID, created.Code, now)
	if !errors.Is(err, ErrConsumed) {
		t.Fatalf("expected ErrConsumed, got %v", err)
	}
}

func TestService_VerifyAfterExpiry(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	created, err := svc.Create(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Correct code, but past the window.
	_, err = svc.Verify(ctx, created.Challenge.ID, created.Code, now.Add(11*time.Minute))
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	// Cleanup is best-effort; the record may be gone now, and a retry must
	// still fail deterministically.
	_, err = svc.Verify(ctx, created.Challenge.ID, created.Code, now.Add(12*time.Minute))
	if !errors.Is(err, ErrExpired) && !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrExpired or ErrNotFound, got %v", err)
	}
	_ = store
}

func TestService_WrongCodeKeepsChallengePending(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	created, err := svc.Create(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	wrong := "000000"
	if wrong == created.Code {
		wrong = "000001"
	}
	_, err = svc.Verify(ctx, created.Challenge.ID, wrong, now)
	if !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}

	// Challenge must still be verifiable with the correct code.
	if _, err := svc.Verify(ctx, created.Challenge.ID, created.Code, now); err != nil {
		t.Fatalf("Verify after mismatch: %v", err)
	}
}

func TestService_VerifyUnknownChallenge(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.Verify(context.Background(), "01HZZZZZZZZZZZZZZZZZZZZZZZ", "123456", time.Now().UTC())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_ConcurrentVerify_SingleWinner(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	created, err := svc.Create(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const n = 64
	var wg sync.WaitGroup
	errs := make([]error, n)

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Verify(ctx, created.Challenge.ID, created.Code, now)
		}(i)
	}
	wg.Wait()

	var wins, consumed int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConsumed):
			consumed++
		default:
			t.Fatalf("unexpected verify error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", wins)
	}
	if consumed != n-1 {
		t.Fatalf("expected %d ErrConsumed, got %d", n-1, consumed)
	}
}

func TestService_ResendDoesNotInvalidateEarlierChallenge(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := svc.Create(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(ctx, "user-1", now.Add(time.Second))
	if err != nil {
		t.Fatalf("Create (resend): %v", err)
	}
	if first.Challenge.ID == second.Challenge.ID {
		t.Fatalf("expected distinct challenge ids")
	}

	// Both stay independently verifiable within their windows.
	if _, err := svc.Verify(ctx, first.Challenge.ID, first.Code, now.Add(time.Minute)); err != nil {
		t.Fatalf("Verify first: %v", err)
	}
	if _, err := svc.Verify(ctx, second.Challenge.ID, second.Code, now.Add(time.Minute)); err != nil {
		t.Fatalf("Verify second: %v", err)
	}
}

func TestService_WithTTLAndDigits(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, WithTTL(2*time.Minute), WithDigits(8))
	now := time.Now().UTC()

	created, err := svc.Create(context.Background(), "user-1", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created.Code) != 8 {
		t.Fatalf("expected 8-digit code, got %q", created.Code)
	}
	if got, want := created.Challenge.ExpiresAt, now.Add(2*time.Minute); !got.Equal(want) {
		t.Fatalf("expires_at=%v want=%v", got, want)
	}
}
