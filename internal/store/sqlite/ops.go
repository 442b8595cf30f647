package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/kvstore/internal/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ops runs record operations against the connection or an open transaction.
// Outside a transaction every statement commits on its own.
type ops struct {
	s *Store
	q querier
	// created holds tables created by an open transaction; they are only
	// recorded as ensured once it commits. nil outside a transaction.
	created map[string]struct{}
}

var _ store.Tx = (*ops)(nil)

func (s *Store) direct() *ops {
	return &ops{s: s, q: s.db}
}

func (s *Store) Insert(ctx context.Context, table string, rec store.Record) error {
	return s.direct().Insert(ctx, table, rec)
}

func (s *Store) Update(ctx context.Context, table string, rec store.Record) error {
	return s.direct().Update(ctx, table, rec)
}

func (s *Store) Delete(ctx context.Context, table string, rec store.Record) error {
	return s.direct().Delete(ctx, table, rec)
}

func (s *Store) Query(ctx context.Context, table, id string) (store.Record, error) {
	return s.direct().Query(ctx, table, id)
}

func (s *Store) Exists(ctx context.Context, table, id string) (bool, error) {
	return s.direct().Exists(ctx, table, id)
}

func (s *Store) ExecRaw(ctx context.Context, statement string) (*store.RawResult, error) {
	return s.direct().ExecRaw(ctx, statement)
}

func (s *Store) ClearTable(ctx context.Context, table, token string) error {
	return s.direct().ClearTable(ctx, table, token)
}

// ensureTable creates table on first use.
func (o *ops) ensureTable(ctx context.Context, table string) error {
	if err := store.ValidateTable(table); err != nil {
		return err
	}
	if _, ok := o.s.ensured.Load(table); ok {
		return nil
	}
	if _, ok := o.created[table]; ok {
		return nil
	}
	if err := o.s.createTable(ctx, o.q, table); err != nil {
		return err
	}
	if o.created != nil {
		o.created[table] = struct{}{}
	} else {
		o.s.ensured.Store(table, struct{}{})
	}
	return nil
}

// Insert writes a new row. A duplicate id surfaces as store.ErrAlreadyExists.
func (o *ops) Insert(ctx context.Context, table string, rec store.Record) error {
	if err := o.s.checkOpen(); err != nil {
		return err
	}
	key, data, err := store.EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if err := o.ensureTable(ctx, table); err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	_, err = o.q.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, ?)`, quoteIdent(table)),
		key, data,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert %s/%s: %w", table, key, store.ErrAlreadyExists)
		}
		return fmt.Errorf("insert %s/%s: %w", table, key, dbErr(err))
	}
	return nil
}

// Update overwrites the payload of an existing row. Zero rows affected is
// not an error.
func (o *ops) Update(ctx context.Context, table string, rec store.Record) error {
	if err := o.s.checkOpen(); err != nil {
		return err
	}
	key, data, err := store.EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if err := o.ensureTable(ctx, table); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	result, err := o.q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET data = ? WHERE id = ?`, quoteIdent(table)),
		data, key,
	)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", table, key, dbErr(err))
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		o.s.logger.Debug("update matched no rows", "table", table, "id", key)
	}
	return nil
}

// Delete removes the row for rec's id, if any.
func (o *ops) Delete(ctx context.Context, table string, rec store.Record) error {
	if err := o.s.checkOpen(); err != nil {
		return err
	}
	id, _, err := store.Split(rec)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	key, err := store.NormalizeID(id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := o.ensureTable(ctx, table); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	_, err = o.q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, quoteIdent(table)),
		key,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, key, dbErr(err))
	}
	return nil
}

// Query returns the stored record with id re-attached exactly as given.
func (o *ops) Query(ctx context.Context, table, id string) (store.Record, error) {
	if err := o.s.checkOpen(); err != nil {
		return nil, err
	}
	key, err := store.NormalizeID(id)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if err := o.ensureTable(ctx, table); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	var data string
	err = o.q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, quoteIdent(table)),
		key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query %s/%s: %w", table, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", table, id, dbErr(err))
	}

	rec, err := store.DecodeRecord(id, data)
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", table, id, err)
	}
	return rec, nil
}

// Exists reports whether id is stored in table.
func (o *ops) Exists(ctx context.Context, table, id string) (bool, error) {
	if err := o.s.checkOpen(); err != nil {
		return false, err
	}
	key, err := store.NormalizeID(id)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	if err := o.ensureTable(ctx, table); err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}

	var one int
	err = o.q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, quoteIdent(table)),
		key,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s/%s: %w", table, id, dbErr(err))
	}
	return true, nil
}

// ClearTable deletes every row in table once token matches store.ConfirmClear.
func (o *ops) ClearTable(ctx context.Context, table, token string) error {
	if err := o.s.checkOpen(); err != nil {
		return err
	}
	if token != store.ConfirmClear {
		return fmt.Errorf("clear table %s: %w", table,
			store.Validationf("safety check failed; pass %q to confirm", store.ConfirmClear))
	}
	if err := o.ensureTable(ctx, table); err != nil {
		return fmt.Errorf("clear table: %w", err)
	}

	result, err := o.q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, quoteIdent(table)))
	if err != nil {
		return fmt.Errorf("clear table %s: %w", table, dbErr(err))
	}
	n, _ := result.RowsAffected()
	o.s.logger.Warn("table cleared", "table", table, "rows", n)
	return nil
}

// ExecRaw runs statement unmodified. Statements that produce rows are run as
// queries; everything else is executed and reports rows affected.
func (o *ops) ExecRaw(ctx context.Context, statement string) (*store.RawResult, error) {
	if err := o.s.checkOpen(); err != nil {
		return nil, err
	}
	stmt := strings.TrimSpace(statement)
	if stmt == "" {
		return nil, store.Validationf("raw statement is empty")
	}

	keyword := leadingKeyword(stmt)
	if returnsRows(keyword, stmt) {
		return o.queryRaw(ctx, stmt)
	}

	result, err := o.q.ExecContext(ctx, stmt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("exec raw: %w", store.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("exec raw: %w", dbErr(err))
	}
	if keyword == "DROP" || keyword == "ALTER" {
		// The schema may no longer match what was ensured, including tables
		// this transaction created.
		o.s.ensured.Clear()
		clear(o.created)
	}
	n, _ := result.RowsAffected()
	return &store.RawResult{Columns: []string{}, Rows: [][]any{}, RowsAffected: n}, nil
}

func (o *ops) queryRaw(ctx context.Context, stmt string) (*store.RawResult, error) {
	rows, err := o.q.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("exec raw: %w", dbErr(err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("exec raw: columns: %w", dbErr(err))
	}

	result := &store.RawResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("exec raw: scan: %w", dbErr(err))
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exec raw: iterate: %w", dbErr(err))
	}
	return result, nil
}

func leadingKeyword(stmt string) string {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimLeft(fields[0], "("))
}

func returnsRows(keyword, stmt string) bool {
	switch keyword {
	case "SELECT", "PRAGMA", "WITH", "VALUES", "EXPLAIN":
		return true
	}
	return strings.Contains(strings.ToUpper(stmt), " RETURNING ")
}
