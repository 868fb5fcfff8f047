package challenge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists challenges in PostgreSQL.
//
// Expected schema (managed externally):
//
//	<schema>.login_challenges (
//	    id          text primary key,
//	    user_id     text not null references <schema>.users(id),
//	    code_hash   text not null,
//	    created_at  timestamptz not null,
//	    expires_at  timestamptz not null,
//	    consumed_at timestamptz,
//	    channel     text not null default 'email'
//	)
//
// The consume path is a single conditional UPDATE keyed on
// "consumed_at IS NULL AND expires_at > now"; the database serializes
// concurrent winners, never this process.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the DB schema used by the store (default "gatekey").
func WithSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" || !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("challenge: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore. The pool is owned by the
// caller and is not closed here.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
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
		return nil, fmt.Errorf("challenge: nil pool")
	}
	return st, nil
}

// Insert persists a new pending challenge.
func (s *PostgresStore) Insert(ctx context.Context, c Challenge) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.UserID) == "" || strings.TrimSpace(c.CodeHash) == "" {
		return ErrInvalidInput
	}
	if c.Channel == "" {
		c.Channel = ChannelEmail
	}

	table := s.table()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+table+` (id, user_id, code_hash, created_at, expires_at, consumed_at, channel)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.UserID, c.CodeHash, c.CreatedAt, c.ExpiresAt, c.ConsumedAt, c.Channel,
	)
	return err
}

// GetByID fetches a challenge by id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Challenge, error) {
	if s == nil || s.pool == nil {
		return Challenge{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Challenge{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Challenge{}, ErrInvalidInput
	}

	table := s.table()
	var out Challenge
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, code_hash, created_at, expires_at, consumed_at, channel
		   FROM `+table+`
		  WHERE id = $1`,
		id,
	).Scan(&out.ID, &out.UserID, &out.CodeHash, &out.CreatedAt, &out.ExpiresAt, &out.ConsumedAt, &out.Channel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Challenge{}, ErrNotFound
		}
		return Challenge{}, err
	}
	return out, nil
}

// TryConsume performs the atomic consume transition.
func (s *PostgresStore) TryConsume(ctx context.Context, id string, now time.Time) (Challenge, error) {
	if s == nil || s.pool == nil {
		return Challenge{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Challenge{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Challenge{}, ErrInvalidInput
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	table := s.table()
	var out Challenge
	err := s.pool.QueryRow(ctx,
		`UPDATE `+table+`
		    SET consumed_at = $1
		  WHERE id = $2
		    AND consumed_at IS NULL
		    AND expires_at > $1
		RETURNING id, user_id, code_hash, created_at, expires_at, consumed_at, channel`,
		now, id,
	).Scan(&out.ID, &out.UserID, &out.CodeHash, &out.CreatedAt, &out.ExpiresAt, &out.ConsumedAt, &out.Channel)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Challenge{}, err
	}

	// Lost the race or the window: disambiguate via a plain read.
	cur, selErr := s.GetByID(ctx, id)
	if selErr != nil {
		return Challenge{}, selErr
	}
	if cur.Consumed() {
		return Challenge{}, ErrConsumed
	}
	return Challenge{}, ErrExpired
}

// DeleteExpired removes an expired, unconsumed record. Deleting nothing is
// not an error.
func (s *PostgresStore) DeleteExpired(ctx context.Context, id string) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}

	table := s.table()
	_, err := s.pool.Exec(ctx,
		`DELETE FROM `+table+`
		  WHERE id = $1
		    AND consumed_at IS NULL
		    AND expires_at <= now()`,
		id,
	)
	return err
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "login_challenges"}.Sanitize()
}
