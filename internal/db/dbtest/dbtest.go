// Package dbtest provides a migrated SQLite database for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/templui/amenitymap/internal/db"
)

// Fixed category ids seeded by the migrations.
const (
	CategoryPowerOutlets = "5b0c6a5e-0f63-4a3e-9a55-3f1c1d6a0001"
	CategoryWaterCoolers = "5b0c6a5e-0f63-4a3e-9a55-3f1c1d6a0002"
)

// New returns a fresh, fully migrated SQLite database in t.TempDir.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	database, err := db.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	return database
}
