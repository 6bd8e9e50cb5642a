// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/project-catalog/pkg/database"
)

// SQLiteConfig returns a config for a fresh sqlite file under t.TempDir().
// A file is used rather than :memory: because migrations run on their own
// connection.
func SQLiteConfig(t testing.TB) database.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	return database.Config{
		Driver: database.DriverSQLite,
		DSN:    "file:" + path + "?_foreign_keys=on&_busy_timeout=5000",
	}
}

// NewDB returns a migrated sqlite database closed at test cleanup.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()
	cfg := SQLiteConfig(t)
	if err := database.Migrate(cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Logger returns a no-op sugared logger.
func Logger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
