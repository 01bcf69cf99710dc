package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/rosterhq/playerapi/config"
	"github.com/rosterhq/playerapi/internal/db"
)

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// SQLiteConfig returns a config pointing at a fresh database file in a
// per-test temporary directory.
func SQLiteConfig(t testing.TB) config.Config {
	t.Helper()
	return config.Config{
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			Path:   filepath.Join(t.TempDir(), "roster.db"),
		},
	}
}

// OpenSQLite migrates and opens a throwaway SQLite database. The handle is
// closed when the test ends.
func OpenSQLite(t testing.TB) *sql.DB {
	t.Helper()
	cfg := SQLiteConfig(t)
	if err := db.MigrateUp(cfg.Database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	conn, err := db.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
