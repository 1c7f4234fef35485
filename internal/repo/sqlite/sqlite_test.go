package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/taskapp/internal/repo/sqlite"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := sqlite.Open(ctx, sqlite.Config{DatabasePath: path})
	require.NoError(t, err)

	for _, table := range []string{"users", "user_tokens", "tasks"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, table)
	}

	require.NoError(t, db.Close())
	require.NoError(t, db.Close(), "second close is a no-op")

	// Reopening applies no migration twice.
	db, err = sqlite.Open(ctx, sqlite.Config{DatabasePath: path})
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	insert := "INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES (?, 'n', ?, 'h', 0, 0)"

	_, err = db.ExecContext(ctx, insert, "u1", "a@example.com")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "u2", "a@example.com")
	require.Error(t, err)
	assert.True(t, sqlite.IsUniqueViolation(err))

	assert.False(t, sqlite.IsUniqueViolation(context.Canceled))
}

func TestTimestamp(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	assert.True(t, now.Equal(sqlite.Time(sqlite.Timestamp(now))))
}
