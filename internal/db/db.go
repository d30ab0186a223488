package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/paulexconde/dfsurvey/internal/config"
	_ "modernc.org/sqlite"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the configured database. SQLite connections get foreign
// keys enabled and are limited to a single open connection.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case "postgres":
		conn, err := sqlx.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "sqlite":
		conn, err := sqlx.Open("sqlite", sqliteDSN(cfg.DSN))
		if err != nil {
			return nil, err
		}
		conn.SetMaxOpenConns(1)
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// ApplySchema creates any missing tables. It is safe to run repeatedly.
func ApplySchema(ctx context.Context, conn *sqlx.DB) error {
	var schema string
	switch conn.DriverName() {
	case "postgres":
		schema = postgresSchema
	case "sqlite":
		schema = sqliteSchema
	default:
		return fmt.Errorf("no schema for driver %q", conn.DriverName())
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	return tx.Commit()
}
