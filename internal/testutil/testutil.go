// Package testutil provides testing utilities for integration tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/holidarr/holidarr/internal/database"
	"github.com/holidarr/holidarr/internal/media"
)

// TestDB wraps a test database connection.
type TestDB struct {
	DB     *database.DB
	Path   string
	Logger zerolog.Logger
}

// NewTestDB creates a migrated SQLite database in a temp directory.
// The database is closed when the test finishes.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)

	db, err := database.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &TestDB{
		DB:     db,
		Path:   tmpDir,
		Logger: logger,
	}
}

// Close closes the database early. Safe to call more than once.
func (tdb *TestDB) Close() {
	if tdb.DB != nil {
		tdb.DB.Close()
	}
}

// NewTestLogger creates a test logger that outputs to t.Log.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}

// NopLogger returns a no-op logger for tests that don't need output.
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// Movie builds a movie fixture.
func Movie(id, title string, year int) *media.Movie {
	return &media.Movie{Base: media.Base{ExternalID: id, DisplayKey: "/library/metadata/" + id, Title: title, Year: year}}
}

// Episode builds an episode fixture.
func Episode(id, series, title string, season, number int) *media.Episode {
	return &media.Episode{
		Base:          media.Base{ExternalID: id, DisplayKey: "/library/metadata/" + id, Title: title},
		SeriesTitle:   series,
		SeasonNumber:  season,
		EpisodeNumber: number,
	}
}

// FixedClock is a manually advanced clock for TTL tests.
type FixedClock struct {
	Now time.Time
}

// Time returns the current fake time.
func (c *FixedClock) Time() time.Time {
	return c.Now
}

// Advance moves the clock forward.
func (c *FixedClock) Advance(d time.Duration) {
	c.Now = c.Now.Add(d)
}
