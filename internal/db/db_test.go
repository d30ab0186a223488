package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulexconde/dfsurvey/internal/config"
)

func TestOpenAndApplySchema(t *testing.T) {
	conn, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	for range 2 {
		if err := ApplySchema(ctx, conn); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	var fk int
	if err := conn.GetContext(ctx, &fk, "PRAGMA foreign_keys"); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign keys on, got %d", fk)
	}

	var tables int
	if err := conn.GetContext(ctx, &tables, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'"); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if tables != 5 {
		t.Errorf("expected 5 tables, got %d", tables)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "mysql", DSN: "x"}); err == nil {
		t.Errorf("expected error")
	}
}

func TestSqliteDSN(t *testing.T) {
	tests := map[string]string{
		"a.db":                         "a.db?_pragma=foreign_keys(1)",
		"file:a.db?cache=shared":       "file:a.db?cache=shared&_pragma=foreign_keys(1)",
		"a.db?_pragma=foreign_keys(0)": "a.db?_pragma=foreign_keys(0)",
	}
	for in, want := range tests {
		if got := sqliteDSN(in); got != want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", in, got, want)
		}
	}
}
