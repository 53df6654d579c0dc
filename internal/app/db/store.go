package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"policethief/internal/app/inquiry"
	"policethief/internal/app/meeting"
	"policethief/internal/app/reminder"
	"policethief/internal/app/user"
)

// Store implements user.Store, meeting.Store, reminder.Store and inquiry.Store on Postgres.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ user.Store     = (*Store)(nil)
	_ meeting.Store  = (*Store)(nil)
	_ reminder.Store = (*Store)(nil)
	_ inquiry.Store  = (*Store)(nil)
)

// NewStore wraps pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// inTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, fn)
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
