package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements account persistence over PostgreSQL.
//
// Expected schema (managed externally):
//
//	<schema>.users (
//	    id            text primary key,
//	    name          text not null,
//	    email         text not null,
//	    email_norm    text not null,
//	    password_hash text not null,
//	    created_at    timestamptz not null,
//	    constraint uq_users_email_norm unique (email_norm)
//	)
//
// The pgx pool is owned by the caller; this store must not close it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "gatekey").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" || !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "gatekey"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// CreateUser registers a new account with a hashed credential.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "name and email are required"}
	}
	if strings.TrimSpace(in.Password) == "" {
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

	userID, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")
	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+users+` (id, name, email, email_norm, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, name, email, emailNorm, pwHash, now,
	)
	if err != nil {
		if pgIsUniqueViolation(err) {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		return User{}, err
	}

	return User{ID: userID, Name: name, Email: email, CreatedAt: now}, nil
}

// GetUserAuthByEmail resolves a user plus credential hash by email.
func (s *PostgresStore) GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	const op = "identity.GetUserAuthByEmail"

	if s == nil || s.pool == nil {
		return UserAuth{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}
	emailNorm := NormalizeEmail(email)
	if emailNorm == "" {
		return UserAuth{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing email"}
	}

	users := pgIdent(s.schema, "users")
	var out UserAuth
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at
		   FROM `+users+`
		  WHERE email_norm = $1`,
		emailNorm,
	).Scan(&out.User.ID, &out.User.Name, &out.User.Email, &out.PasswordHash, &out.User.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserAuth{}, OpError{Op: op, Kind: ErrNotFound}
		}
		return UserAuth{}, err
	}
	return out, nil
}

// GetUserByID fetches the public account record.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id"}
	}

	users := pgIdent(s.schema, "users")
	var out User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, created_at
		   FROM `+users+`
		  WHERE id = $1`,
		id,
	).Scan(&out.ID, &out.Name, &out.Email, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, OpError{Op: op, Kind: ErrNotFound}
		}
		return User{}, err
	}
	return out, nil
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgIsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}
