package identity

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a dev/test fallback when no database is configured.
// It implements the same Store contract as PostgresStore.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]memUser
	byEmail map[string]string // email_norm -> id
}

type memUser struct {
	user         User
	passwordHash string
}

// NewMemoryStore constructs an empty in-memory account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]memUser),
		byEmail: make(map[string]string),
	}
}

// CreateUser registers a new account, enforcing email uniqueness.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	name := trimmed(in.Name)
	email := trimmed(in.Email)
	if name == "" || email == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "name and email are required"}
	}
	if trimmed(in.Password) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	emailNorm := NormalizeEmail(email)

	pwHash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[emailNorm]; exists {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	u := User{ID: id, Name: name, Email: email, CreatedAt: now}
	s.byID[id] = memUser{user: u, passwordHash: pwHash}
	s.byEmail[emailNorm] = id
	return u, nil
}

// GetUserAuthByEmail resolves a user plus credential hash by email.
func (s *MemoryStore) GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	const op = "identity.GetUserAuthByEmail"

	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}
	emailNorm := NormalizeEmail(email)
	if emailNorm == "" {
		return UserAuth{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing email"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[emailNorm]
	if !ok {
		return UserAuth{}, OpError{Op: op, Kind: ErrNotFound}
	}
	rec := s.byID[id]
	return UserAuth{User: rec.user, PasswordHash: rec.passwordHash}, nil
}

// GetUserByID fetches the public account record.
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if trimmed(id) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	return rec.user, nil
}
