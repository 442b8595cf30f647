package memory

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvstore/internal/store"
	"github.com/roach88/kvstore/internal/store/storetest"
)

func newTestStore(t *testing.T, tables ...string) *Store {
	t.Helper()
	s, err := New(tables...)
	require.NoError(t, err)
	s.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t, storetest.Table)
	})
}

func TestNew_RejectsBadTable(t *testing.T) {
	_, err := New("users", "bad name")
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestTables(t *testing.T) {
	s := newTestStore(t, "b", "a")
	tables, err := s.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tables)
}

func TestExecRawUnsupported(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ExecRaw(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, store.ErrUnsupported)
}

func TestTransactionCancelledContext(t *testing.T) {
	s := newTestStore(t, "users")
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		cancel()
		return tx.Insert(ctx, "users", store.Record{"id": "late"})
	})
	require.ErrorIs(t, err, store.ErrTransaction)
	assert.ErrorIs(t, err, context.Canceled)

	ok, err := s.Exists(context.Background(), "users", "late")
	require.NoError(t, err)
	assert.False(t, ok)
}
