package identity

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_CreateAndLookup(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	u, err := s.CreateUser(ctx, CreateUserInput{
		Name:     "Ada",
		Email:    "Ada@Example.com",
		Password: "hunter2hunter2",
		Now:      now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if u.Email != "Ada@Example.com" {
		t.Fatalf("original email casing must be preserved, got %q", u.Email)
	}

	// Lookup is case-insensitive on email.
	auth, err := s.GetUserAuthByEmail(ctx, "ada@example.COM")
	if err != nil {
		t.Fatalf("GetUserAuthByEmail: %v", err)
	}
	if auth.User.ID != u.ID {
		t.Fatalf("lookup returned wrong user")
	}

	ok, err := VerifyPassword("hunter2hunter2", auth.PasswordHash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatalf("expected password match")
	}

	got, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Name != "Ada" {
		t.Fatalf("unexpected name %q", got.Name)
	}
}

func TestMemoryStore_EmailConflict(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, CreateUserInput{Name: "A", Email: "dup@example.com", Password: "password1"}); err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}

	_, err := s.CreateUser(ctx, CreateUserInput{Name: "B", Email: "DUP@example.com", Password: "password2"})
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMemoryStore_UnknownEmail(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	_, err := s.GetUserAuthByEmail(context.Background(), "nobody@example.com")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
