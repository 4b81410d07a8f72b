package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, MapError(nil))
	assert.ErrorIs(t, MapError(sql.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, MapError(fmt.Errorf("query: %w", sql.ErrNoRows)), ErrNotFound)

	check := &pgconn.PgError{Code: checkViolationCode, ConstraintName: "task_history_status_check"}
	err := MapError(check)
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Contains(t, err.Error(), "task_history_status_check")

	notNull := &pgconn.PgError{Code: notNullViolationCode, ColumnName: "user_id"}
	assert.ErrorIs(t, MapError(notNull), ErrInvalidRecord)

	other := errors.New("connection refused")
	assert.Equal(t, other, MapError(other))
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolationCode})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: checkViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}
