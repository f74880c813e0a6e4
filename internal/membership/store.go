// internal/membership/store.go
package membership

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clubhouse/pkg/txn"
)

// Store persists the membership projection rows. SetState is an
// unconditional write; the effect applier and the reactivation engine are
// responsible for computing the correct target state first.
type Store interface {
	Create(ctx context.Context, code string, state State) (*Membership, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Membership, error)
	GetByCode(ctx context.Context, code string) (*Membership, error)
	SetState(ctx context.Context, id uuid.UUID, state State) error
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, code string, state State) (*Membership, error) {
	m := &Membership{
		ID:        uuid.New(),
		Code:      code,
		State:     state,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	q := txn.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO memberships (id, code, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.Code, m.State, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}

	return m, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Membership, error) {
	return s.get(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) GetByCode(ctx context.Context, code string) (*Membership, error) {
	return s.get(ctx, `WHERE code = $1`, code)
}

func (s *PostgresStore) get(ctx context.Context, where string, arg interface{}) (*Membership, error) {
	query := `
		SELECT id, code, state, created_at, updated_at
		FROM memberships
	` + where

	m := &Membership{}
	q := txn.Executor(ctx, s.db)
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&m.ID,
		&m.Code,
		&m.State,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}

	return m, nil
}

func (s *PostgresStore) SetState(ctx context.Context, id uuid.UUID, state State) error {
	q := txn.Executor(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE memberships
		SET state = $2, updated_at = NOW()
		WHERE id = $1
	`, id, state)
	if err != nil {
		return fmt.Errorf("set membership state: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrMembershipNotFound
	}

	return nil
}
