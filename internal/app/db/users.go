package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"policethief/internal/app/user"
)

const userColumns = `id, username, nickname, birth_year, level, exp, reputation, avatar_id, accessory_ids, created_at, last_login_at`

func scanProfile(row pgx.Row) (user.Profile, error) {
	var (
		p    user.Profile
		last *time.Time
	)
	err := row.Scan(&p.ID, &p.Username, &p.Nickname, &p.BirthYear, &p.Level, &p.Exp, &p.Reputation,
		&p.AvatarID, &p.AccessoryIDs, &p.CreatedAt, &last)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.Profile{}, user.ErrNotFound
	}
	if err != nil {
		return user.Profile{}, fmt.Errorf("scan user: %w", err)
	}
	if last != nil {
		p.LastLoginAt = *last
	}
	if p.AccessoryIDs == nil {
		p.AccessoryIDs = []string{}
	}
	return p, nil
}

func (s *Store) CreateUser(ctx context.Context, p user.Profile, passwordHash string) error {
	accessories := p.AccessoryIDs
	if accessories == nil {
		accessories = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, nickname, birth_year, level, exp, reputation, avatar_id, accessory_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Username, passwordHash, p.Nickname, p.BirthYear, p.Level, p.Exp, p.Reputation, p.AvatarID, accessories, p.CreatedAt)
	if IsUniqueViolation(err) {
		if violatedConstraint(err) == "users_nickname_key" {
			return user.ErrNicknameTaken
		}
		return user.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (user.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]user.Profile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	return collect(rows, scanProfile)
}

func (s *Store) GetCredentials(ctx context.Context, username string) (user.Credentials, error) {
	var c user.Credentials
	err := s.pool.QueryRow(ctx, `SELECT id, password_hash FROM users WHERE lower(username) = lower($1)`, username).
		Scan(&c.UserID, &c.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.Credentials{}, user.ErrNotFound
	}
	if err != nil {
		return user.Credentials{}, fmt.Errorf("query credentials: %w", err)
	}
	return c, nil
}

func (s *Store) TouchLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateOutfit(ctx context.Context, id, avatarID string, accessoryIDs []string) (user.Profile, error) {
	if accessoryIDs == nil {
		accessoryIDs = []string{}
	}
	return scanProfile(s.pool.QueryRow(ctx, `
		UPDATE users SET avatar_id = $2, accessory_ids = $3 WHERE id = $1
		RETURNING `+userColumns, id, avatarID, accessoryIDs))
}

// UpdateProgress locks the user row, applies fn and writes level, exp and reputation back.
func (s *Store) UpdateProgress(ctx context.Context, id string, fn func(user.Profile) user.Profile) (user.Profile, error) {
	var out user.Profile
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		cur, err := scanProfile(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		next := fn(cur)
		out, err = scanProfile(tx.QueryRow(ctx, `
			UPDATE users SET level = $2, exp = $3, reputation = $4 WHERE id = $1
			RETURNING `+userColumns, id, next.Level, next.Exp, next.Reputation))
		return err
	})
	return out, err
}

func (s *Store) AdjustReputation(ctx context.Context, ids []string, delta float64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `UPDATE users SET reputation = reputation + $2 WHERE id = ANY($1)`, ids, delta); err != nil {
		return fmt.Errorf("adjust reputation: %w", err)
	}
	return nil
}
