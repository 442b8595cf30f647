package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/kvstore/internal/store"
)

// view applies record operations to a tables value. Callers hold the lock.
type view struct {
	data   tables
	logger *slog.Logger
}

var _ store.Tx = (*view)(nil)

// rows returns table's rows, creating the table on first use.
func (v *view) rows(table string) (map[string]string, error) {
	if err := store.ValidateTable(table); err != nil {
		return nil, err
	}
	rows, ok := v.data[table]
	if !ok {
		rows = map[string]string{}
		v.data[table] = rows
	}
	return rows, nil
}

func (v *view) Insert(ctx context.Context, table string, rec store.Record) error {
	key, data, err := store.EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	rows, err := v.rows(table)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if _, ok := rows[key]; ok {
		return fmt.Errorf("insert %s/%s: %w", table, key, store.ErrAlreadyExists)
	}
	rows[key] = data
	return nil
}

func (v *view) Update(ctx context.Context, table string, rec store.Record) error {
	key, data, err := store.EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	rows, err := v.rows(table)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if _, ok := rows[key]; !ok {
		v.logger.Debug("update matched no rows", "table", table, "id", key)
		return nil
	}
	rows[key] = data
	return nil
}

func (v *view) Delete(ctx context.Context, table string, rec store.Record) error {
	id, _, err := store.Split(rec)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	key, err := store.NormalizeID(id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	rows, err := v.rows(table)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	delete(rows, key)
	return nil
}

func (v *view) Query(ctx context.Context, table, id string) (store.Record, error) {
	key, err := store.NormalizeID(id)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if err := store.ValidateTable(table); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	data, ok := v.data[table][key]
	if !ok {
		return nil, fmt.Errorf("query %s/%s: %w", table, id, store.ErrNotFound)
	}
	rec, err := store.DecodeRecord(id, data)
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", table, id, err)
	}
	return rec, nil
}

func (v *view) Exists(ctx context.Context, table, id string) (bool, error) {
	key, err := store.NormalizeID(id)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	if err := store.ValidateTable(table); err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	_, ok := v.data[table][key]
	return ok, nil
}

func (v *view) ExecRaw(ctx context.Context, statement string) (*store.RawResult, error) {
	return nil, fmt.Errorf("exec raw: %w", store.ErrUnsupported)
}

func (v *view) ClearTable(ctx context.Context, table, token string) error {
	if token != store.ConfirmClear {
		return fmt.Errorf("clear table %s: %w", table,
			store.Validationf("safety check failed; pass %q to confirm", store.ConfirmClear))
	}
	rows, err := v.rows(table)
	if err != nil {
		return fmt.Errorf("clear table: %w", err)
	}
	n := len(rows)
	clear(rows)
	v.logger.Warn("table cleared", "table", table, "rows", n)
	return nil
}
