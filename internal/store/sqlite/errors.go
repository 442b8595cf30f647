package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/roach88/kvstore/internal/store"
)

// isUniqueViolation reports whether err is a primary-key or unique
// constraint failure from either driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) {
		return mattnErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			mattnErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var modernErr *msqlite.Error
	if errors.As(err, &modernErr) {
		switch modernErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

// dbErr maps database/sql's closed-pool errors to store.ErrClosed. An
// operation can pass checkOpen and still reach the pool after Close.
func dbErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "sql: database is closed") {
		return fmt.Errorf("%w: %v", store.ErrClosed, err)
	}
	return err
}
