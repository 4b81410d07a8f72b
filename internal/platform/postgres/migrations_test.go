package postgres

import (
	"context"
	"io/fs"
	"testing"

	"github.com/phrazzld/focus-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	content, err := fs.ReadFile(migrationFS, files[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- +goose Up")
	assert.Contains(t, string(content), "-- +goose Down")
	assert.Contains(t, string(content), "task_history")
}

func TestMigrate_UnknownCommand(t *testing.T) {
	t.Parallel()

	err := Migrate(context.Background(), nil, "sideways", logger.NewTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration command")
}

func TestSlogGooseLogger(t *testing.T) {
	t.Parallel()

	buf, log := logger.NewBufferedTestLogger(t)
	l := &slogGooseLogger{logger: log}
	l.Printf("OK   %s\n", "00001_create_task_history.sql")
	l.Fatalf("failed: %v", "boom")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "OK   00001_create_task_history.sql", entries[0]["msg"])
	assert.Equal(t, "ERROR", entries[1]["level"])
}
