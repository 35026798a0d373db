package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "recipes", "ratings", "refresh_tokens", "events"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestConstraintHelpers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO users (id, username, email, password_hash, user_type) VALUES ('u1', 'sam', 's@x.io', 'h', 'seller')`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO users (id, username, email, password_hash, user_type) VALUES ('u2', 'sam', 's@x.io', 'h', 'seller')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))

	_, err = db.ExecContext(ctx, `INSERT INTO recipes (id, seller_id, name, description, image, created_at, updated_at)
		VALUES ('r1', 'ghost', 'n', 'd', 'i', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
	assert.False(t, IsUniqueViolation(err))

	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestRoleCheckConstraint(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Exec(`INSERT INTO users (id, username, email, password_hash, user_type) VALUES ('u1', 'sam', 's@x.io', 'h', 'admin')`)
	assert.Error(t, err)
}

func TestWithTx(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	insert := `INSERT INTO events (id, type, level, message, created_at) VALUES (?, 't', 'info', 'm', CURRENT_TIMESTAMP)`

	err := WithTx(ctx, db, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, insert, "e1")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTx(ctx, db, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, insert, "e2"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM events").Scan(&n))
	assert.Equal(t, 1, n)
}
