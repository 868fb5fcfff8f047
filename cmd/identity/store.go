package identity

import (
	"context"
	"time"
)

// User is Gatekey's canonical account record.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// UserAuth bundles a user with its credential hash for login checks.
// The hash never leaves the auth boundary.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes an account registration request.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Now      time.Time
}

// Store is the account persistence boundary consumed by the login flow.
type Store interface {
	// CreateUser registers a new account. Returns a ConflictError when the
	// normalized email is already taken.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// GetUserAuthByEmail resolves an account plus credential hash by
	// normalized email. Returns ErrNotFound for unknown addresses.
	GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error)

	// GetUserByID fetches the public account record.
	GetUserByID(ctx context.Context, id string) (User, error)
}
