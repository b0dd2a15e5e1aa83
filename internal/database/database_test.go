package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "holidarr.db")
	db, err := Open(context.Background(), Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	assert.Equal(t, DriverSQLite, db.Driver())
	assert.Equal(t, path, db.Path())
	require.NoError(t, db.Ping(context.Background()))

	require.NoError(t, db.Migrate())
	version, err := db.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Running again is a no-op.
	require.NoError(t, db.Migrate())

	var n int
	require.NoError(t, db.X().Get(&n, `SELECT COUNT(*) FROM media_items`))
	assert.Zero(t, n)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestNewPostgresRequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), "")
	require.Error(t, err)
}
