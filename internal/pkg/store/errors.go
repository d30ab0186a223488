package store

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/paulexconde/dfsurvey/pkg/fault"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// translateError maps driver constraint errors onto fault sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fault.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // PostgreSQL unique constraint violation code
			return fault.ErrUniqueViolation
		case "23503":
			return fault.ErrForeignKeyViolation
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fault.ErrUniqueViolation
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fault.ErrForeignKeyViolation
		}
	}

	return err
}
