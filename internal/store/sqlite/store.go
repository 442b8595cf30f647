package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/roach88/kvstore/internal/store"
)

// Driver names accepted by Open.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

const defaultBusyTimeout = 5 * time.Second

// Options configures Open.
type Options struct {
	// Driver is DriverMattn (default) or DriverModernc.
	Driver string
	// DSN is the connection string: a file path or ":memory:".
	DSN string
	// Tables are created (if absent) before Open returns.
	Tables []string
	// BusyTimeout defaults to 5s.
	BusyTimeout time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store is the SQLite-backed store.Store.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger

	closed  atomic.Bool
	ensured sync.Map // table name -> struct{}
}

var _ store.Store = (*Store)(nil)

// Open connects to the database, applies pragmas and ensures opts.Tables
// exist. The returned Store is meant to live for the whole process.
func Open(ctx context.Context, opts Options) (*Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverMattn
	}
	if driver != DriverMattn && driver != DriverModernc {
		return nil, store.Validationf("unknown sqlite driver %q", driver)
	}
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, store.Validationf("connection string is required")
	}
	for _, table := range opts.Tables {
		if err := store.ValidateTable(table); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	busyTimeout := opts.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", store.ErrConnection, err)
	}

	// Verify connection works
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect to database: %v", store.ErrConnection, err)
	}

	// One physical connection shared by every caller. This also keeps
	// ":memory:" databases alive for the life of the Store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := applyPragmas(ctx, db, opts.DSN, busyTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply pragmas: %v", store.ErrConnection, err)
	}

	s := &Store{db: db, driver: driver, logger: logger}
	for _, table := range opts.Tables {
		if err := s.createTable(ctx, db, table); err != nil {
			db.Close()
			return nil, err
		}
		s.ensured.Store(table, struct{}{})
	}

	logger.Debug("store opened", "driver", driver, "dsn", opts.DSN, "tables", len(opts.Tables))
	return s, nil
}

// Close disposes the store. Later calls fail with store.ErrClosed; the
// connection is never reopened.
func (s *Store) Close() error {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Debug("store closed", "driver", s.driver)
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	if s == nil || s.db == nil || s.closed.Load() {
		return store.ErrClosed
	}
	return nil
}

// Tables lists the key-value tables present in the database.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", dbErr(err))
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", dbErr(err))
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", dbErr(err))
	}
	return tables, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB, dsn string, busyTimeout time.Duration) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA synchronous = NORMAL",
	}
	if !isMemoryDSN(dsn) {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") || strings.Contains(dsn, "mode=memory")
}

// createTable runs the idempotent DDL for table on q.
func (s *Store) createTable(ctx context.Context, q querier, table string) error {
	_, err := q.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, data TEXT NOT NULL)`,
		quoteIdent(table),
	))
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, dbErr(err))
	}
	s.logger.Debug("table ensured", "table", table)
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
