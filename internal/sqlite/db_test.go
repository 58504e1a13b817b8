package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully and are repeatable
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.RunMigrations())

	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='documents'`).Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "documents", name)

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name LIKE 'idx_documents_%'`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestMigrations_RejectsInvalidJSON(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.Exec(`INSERT INTO documents (collection, id, data) VALUES ('c', '1', 'not json')`)
	require.Error(t, err)
}

func TestOpen_CreatesDirectoryAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "remote.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&count))
	require.Zero(t, count)
}

func TestOpen_FailsWhenParentIsAFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Open(filepath.Join(blocker, "remote.db"))
	require.ErrorContains(t, err, "failed to prepare database directory")
}
