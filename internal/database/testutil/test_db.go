// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/database"
)

type schemaLevel int

const (
	schemaNone schemaLevel = iota
	schemaMigrated
	schemaSeeded
)

// TestDBOption adjusts the database returned by MustOpenTestDB.
type TestDBOption func(*options)

type options struct {
	schema   schemaLevel
	path     string
	fixtures []func(*gorm.DB) error
}

// WithAutoMigrate creates the schema without seed rows.
func WithAutoMigrate() TestDBOption {
	return func(o *options) {
		o.schema = max(o.schema, schemaMigrated)
	}
}

// WithSeedData migrates and inserts the default tools and settings.
func WithSeedData() TestDBOption {
	return func(o *options) {
		o.schema = schemaSeeded
	}
}

// WithFile backs the database with a file instead of memory, so a second
// connection to the same path sees the same rows.
func WithFile(path string) TestDBOption {
	return func(o *options) {
		o.path = path
	}
}

// WithFixture runs fn after the schema step. Fixtures run in registration order.
func WithFixture(fn func(*gorm.DB) error) TestDBOption {
	return func(o *options) {
		o.fixtures = append(o.fixtures, fn)
	}
}

// MustOpenTestDB opens a SQLite database, in memory unless WithFile is given, and
// closes it when the test ends.
func MustOpenTestDB(t testing.TB, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := database.Open(database.Config{Driver: "sqlite", Path: o.path})
	require.NoError(t, err, "open test database")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	switch o.schema {
	case schemaSeeded:
		require.NoError(t, database.AutoMigrateAndSeed(db), "migrate and seed")
	case schemaMigrated:
		require.NoError(t, database.AutoMigrate(db), "migrate")
	}

	for _, fixture := range o.fixtures {
		require.NoError(t, fixture(db), "apply fixture")
	}
	return db
}
