// Package storetest checks that a store.Store implementation honours the
// key-value contract. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvstore/internal/store"
)

// Table is the table every case writes to.
const Table = "users"

// OpenFunc returns a fresh, empty store. It should register cleanup itself.
type OpenFunc func(t *testing.T) store.Store

// Run executes the whole suite against stores returned by open.
func Run(t *testing.T, open OpenFunc) {
	cases := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"InsertThenQuery", testInsertThenQuery},
		{"InsertDuplicate", testInsertDuplicate},
		{"UpdateExisting", testUpdateExisting},
		{"UpdateMissing", testUpdateMissing},
		{"DeleteMissing", testDeleteMissing},
		{"QueryMissing", testQueryMissing},
		{"ExistsLifecycle", testExistsLifecycle},
		{"Scenario", testScenario},
		{"NestedPayloadRoundTrip", testNestedPayloadRoundTrip},
		{"LargeIntegers", testLargeIntegers},
		{"EmptyPayload", testEmptyPayload},
		{"RecordWithoutID", testRecordWithoutID},
		{"InvalidTableName", testInvalidTableName},
		{"LazyTableCreation", testLazyTableCreation},
		{"CallerRecordNotMutated", testCallerRecordNotMutated},
		{"EquivalentUnicodeIDs", testEquivalentUnicodeIDs},
		{"TransactionCommit", testTransactionCommit},
		{"TransactionRollback", testTransactionRollback},
		{"TransactionRollbackRestoresUpdates", testTransactionRollbackRestoresUpdates},
		{"TransactionPanic", testTransactionPanic},
		{"TransactionDuplicateInsert", testTransactionDuplicateInsert},
		{"InTxResult", testInTxResult},
		{"ClearTableConfirmed", testClearTableConfirmed},
		{"ClearTableWrongToken", testClearTableWrongToken},
		{"ClearTableInTransaction", testClearTableInTransaction},
		{"ConcurrentInserts", testConcurrentInserts},
		{"UseAfterClose", testUseAfterClose},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, open(t))
		})
	}
}

func testInsertThenQuery(t *testing.T, s store.Store) {
	ctx := context.Background()
	rec := store.Record{"id": "u1", "name": "alice", "age": int64(30), "admin": true}

	require.NoError(t, s.Insert(ctx, Table, rec))

	got, err := s.Query(ctx, Table, "u1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func testInsertDuplicate(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": "dup", "v": "first"}))

	err := s.Insert(ctx, Table, store.Record{"id": "dup", "v": "second"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := s.Query(ctx, Table, "dup")
	require.NoError(t, err)
	assert.Equal(t, "first", got["v"], "original row must survive the failed insert")
}

func testUpdateExisting(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": "u1", "name": "a", "old": "x"}))
	require.NoError(t, s.Update(ctx, Table, store.Record{"id": "u1", "name": "b"}))

	got, err := s.Query(ctx, Table, "u1")
	require.NoError(t, err)
	assert.Equal(t, store.Record{"id": "u1", "name": "b"}, got, "update replaces the whole payload")
}

func testUpdateMissing(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, Table, store.Record{"id": "ghost", "name": "x"}))

	ok, err := s.Exists(ctx, Table, "ghost")
	require.NoError(t, err)
	assert.False(t, ok, "update must not create rows")
}

func testDeleteMissing(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": "keep"}))
	require.NoError(t, s.Delete(ctx, Table, store.Record{"id": "ghost"}))

	ok, err := s.Exists(ctx, Table, "keep")
	require.NoError(t, err)
	assert.True(t, ok)
}

func testQueryMissing(t *testing.T, s store.Store) {
	_, err := s.Query(context.Background(), Table, "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testExistsLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("id-%d", i)

		ok, err := s.Exists(ctx, Table, id)
		require.NoError(t, err)
		assert.False(t, ok, "before insert: %s", id)

		require.NoError(t, s.Insert(ctx, Table, store.Record{"id": id}))

		ok, err = s.Exists(ctx, Table, id)
		require.NoError(t, err)
		assert.True(t, ok, "after insert: %s", id)
	}
}

func testScenario(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": "u1", "name": "a"}))
	got, err := s.Query(ctx, Table, "u1")
	require.NoError(t, err)
	assert.Equal(t, store.Record{"id": "u1", "name": "a"}, got)

	require.NoError(t, s.Update(ctx, Table, store.Record{"id": "u1", "name": "b"}))
	got, err = s.Query(ctx, Table, "u1")
	require.NoError(t, err)
	assert.Equal(t, store.Record{"id": "u1", "name": "b"}, got)

	require.NoError(t, s.Delete(ctx, Table, store.Record{"id": "u1"}))
	ok, err := s.Exists(ctx, Table, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Query(ctx, Table, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testNestedPayloadRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	rec := store.Record{
		"id": "nested",
		"conversation": []any{
			map[string]any{"role": "user", "content": "hello <b>there</b>"},
			map[string]any{"role": "bot", "content": "hi & welcome"},
		},
		"real_users": []any{"a", "b"},
		"profile": map[string]any{
			"scores": []any{int64(1), 2.5, nil},
			"flags":  map[string]any{"beta": true},
		},
		"note": nil,
	}
	require.NoError(t, s.Insert(ctx, Table, rec))

	got, err := s.Query(ctx, Table, "nested")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func testLargeIntegers(t *testing.T, s store.Store) {
	ctx := context.Background()
	rec := store.Record{
		"id":         "u1",
		"twitter_id": int64(1234567890123456789),
		"n":          int64(3),
		"ratio":      0.25,
		"real_users": []any{int64(9007199254740993), int64(-9223372036854775808)},
	}
	require.NoError(t, s.Insert(ctx, Table, rec))

	got, err := s.Query(ctx, Table, "u1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	rec["twitter_id"] = int64(1234567890123456788)
	require.NoError(t, s.Update(ctx, Table, rec))
	got, err = s.Query(ctx, Table, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1234567890123456788), got["twitter_id"])
}

func testEmptyPayload(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": "bare"}))

	got, err := s.Query(ctx, Table, "bare")
	require.NoError(t, err)
	assert.Equal(t, store.Record{"id": "bare"}, got)
}

func testRecordWithoutID(t *testing.T, s store.Store) {
	ctx := context.Background()
	records := []store.Record{
		{"name": "no id"},
		{"id": ""},
		{"id": 42},
	}
	for _, rec := range records {
		assert.ErrorIs(t, s.Insert(ctx, Table, rec), store.ErrValidation, "insert %v", rec)
		assert.ErrorIs(t, s.Update(ctx, Table, rec), store.ErrValidation, "update %v", rec)
		assert.ErrorIs(t, s.Delete(ctx, Table, rec), store.ErrValidation, "delete %v", rec)
	}
	_, err := s.Query(ctx, Table, "")
	assert.ErrorIs(t, err, store.ErrValidation)
}

func testInvalidTableName(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, table := range []string{"", "users; DROP TABLE users", "1abc", "a-b", `x"y`} {
		err := s.Insert(ctx, table, store.Record{"id": "x"})
		assert.ErrorIs(t, err, store.ErrValidation, "table %q", table)

		_, err = s.Exists(ctx, table, "x")
		assert.ErrorIs(t, err, store.ErrValidation, "table %q", table)
	}
}

func testLazyTableCreation(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, "sessions", store.Record{"id": "s1", "ttl": int64(60)}))

	got, err := s.Query(ctx, "sessions", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(60), got["ttl"])

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, "sessions")
}

func testCallerRecordNotMutated(t *testing.T, s store.Store) {
	ctx := context.Background()
	rec := store.Record{"id": "m1", "name": "x"}
	require.NoError(t, s.Insert(ctx, Table, rec))
	require.NoError(t, s.Update(ctx, Table, rec))
	require.NoError(t, s.Delete(ctx, Table, rec))
	assert.Equal(t, store.Record{"id": "m1", "name": "x"}, rec)
}

func testEquivalentUnicodeIDs(t *testing.T, s store.Store) {
	ctx := context.Background()
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": composed}))

	ok, err := s.Exists(ctx, Table, decomposed)
	require.NoError(t, err)
	assert.True(t, ok)

	err = s.Insert(ctx, Table, store.Record{"id": decomposed})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := s.Query(ctx, Table, decomposed)
	require.NoError(t, err)
	assert.Equal(t, decomposed, got.ID(), "query re-attaches the id as requested")
}

func testTransactionCommit(t *testing.T, s store.Store) {
	ctx := context.Background()
	err := s.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Insert(ctx, Table, store.Record{"id": "a"}); err != nil {
			return err
		}
		if err := tx.Insert(ctx, Table, store.Record{"id": "b"}); err != nil {
			return err
		}
		ok, err := tx.Exists(ctx, Table, "a")
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("own write not visible inside transaction")
		}
		return nil
	})
	require.NoError(t, err)

	for _, id := range []string{"a", "b"} {
		ok, err := s.Exists(ctx, Table, id)
		require.NoError(t, err)
		assert.True(t, ok, id)
	}
}

func testTransactionRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Insert(ctx, Table, store.Record{"id": "A"}); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTransaction)
	assert.ErrorIs(t, err, boom, "original error must be preserved")

	var txErr *store.TxError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, boom, txErr.Err)

	ok, err := s.Exists(ctx, Table, "A")
	require.NoError(t, err)
	assert.False(t, ok, "insert inside failed transaction must be rolled back")
}

func testTransactionRollbackRestoresUpdates(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": "keep", "v": "before"}))
	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": "gone", "v": "before"}))

	err := s.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Update(ctx, Table, store.Record{"id": "keep", "v": "after"}); err != nil {
			return err
		}
		if err := tx.Delete(ctx, Table, store.Record{"id": "gone"}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.ErrorIs(t, err, store.ErrTransaction)

	got, err := s.Query(ctx, Table, "keep")
	require.NoError(t, err)
	assert.Equal(t, "before", got["v"])

	ok, err := s.Exists(ctx, Table, "gone")
	require.NoError(t, err)
	assert.True(t, ok)
}

func testTransactionPanic(t *testing.T, s store.Store) {
	ctx := context.Background()
	assert.PanicsWithValue(t, "kaboom", func() {
		_ = s.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := tx.Insert(ctx, Table, store.Record{"id": "p"}); err != nil {
				return err
			}
			panic("kaboom")
		})
	})

	ok, err := s.Exists(ctx, Table, "p")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testTransactionDuplicateInsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": "x"}))

	err := s.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Insert(ctx, Table, store.Record{"id": "y"}); err != nil {
			return err
		}
		return tx.Insert(ctx, Table, store.Record{"id": "x"})
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTransaction)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	ok, err := s.Exists(ctx, Table, "y")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testInTxResult(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": "n", "count": int64(1)}))

	count, err := store.InTx(ctx, s, func(ctx context.Context, tx store.Tx) (int64, error) {
		rec, err := tx.Query(ctx, Table, "n")
		if err != nil {
			return 0, err
		}
		next := rec["count"].(int64) + 1
		rec["count"] = next
		return next, tx.Update(ctx, Table, rec)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = store.InTx(ctx, s, func(ctx context.Context, tx store.Tx) (int64, error) {
		return 0, tx.Update(ctx, Table, store.Record{"id": ""})
	})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func testClearTableConfirmed(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Insert(ctx, Table, store.Record{"id": id}))
	}
	require.NoError(t, s.ClearTable(ctx, Table, store.ConfirmClear))

	for _, id := range []string{"a", "b", "c"} {
		ok, err := s.Exists(ctx, Table, id)
		require.NoError(t, err)
		assert.False(t, ok, id)
	}
}

func testClearTableWrongToken(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": "a"}))

	for _, token := range []string{"WRONG", "", "confirm"} {
		err := s.ClearTable(ctx, Table, token)
		assert.ErrorIs(t, err, store.ErrValidation, "token %q", token)
	}

	ok, err := s.Exists(ctx, Table, "a")
	require.NoError(t, err)
	assert.True(t, ok, "rows must survive a rejected clear")
}

func testClearTableInTransaction(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": "a"}))

	err := s.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.ClearTable(ctx, Table, store.ConfirmClear); err != nil {
			return err
		}
		return errors.New("changed my mind")
	})
	require.ErrorIs(t, err, store.ErrTransaction)

	ok, err := s.Exists(ctx, Table, "a")
	require.NoError(t, err)
	assert.True(t, ok, "clear inside a failed transaction must roll back")
}

func testConcurrentInserts(t *testing.T, s store.Store) {
	ctx := context.Background()
	const workers = 16

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Insert(ctx, Table, store.Record{"id": fmt.Sprintf("c%d", i), "n": int64(i)})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for i := 0; i < workers; i++ {
		got, err := s.Query(ctx, Table, fmt.Sprintf("c%d", i))
		require.NoError(t, err)
		assert.Equal(t, int64(i), got["n"])
	}
}

func testUseAfterClose(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, Table, store.Record{"id": "a"}))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Insert(ctx, Table, store.Record{"id": "b"}), store.ErrClosed)
	_, err := s.Query(ctx, Table, "a")
	assert.ErrorIs(t, err, store.ErrClosed)
	_, err = s.Exists(ctx, Table, "a")
	assert.ErrorIs(t, err, store.ErrConnection)
	err = s.Transact(ctx, func(ctx context.Context, tx store.Tx) error { return nil })
	assert.ErrorIs(t, err, store.ErrClosed)

	// A second Close is harmless.
	assert.NoError(t, s.Close())
}
