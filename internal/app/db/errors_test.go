package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	dup := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_nickname_key"})

	assert.True(t, IsUniqueViolation(dup))
	assert.Equal(t, "users_nickname_key", violatedConstraint(dup))

	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsForeignKeyViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23503"})))
	assert.False(t, IsForeignKeyViolation(dup))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.Empty(t, violatedConstraint(errors.New("plain")))
}

func TestMigrationsAreEmbedded(t *testing.T) {
	b, err := embedMigrations.ReadFile("migrations/00001_init.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(b), "-- +goose Up")
	assert.Contains(t, string(b), "CREATE TABLE round_history")
}
