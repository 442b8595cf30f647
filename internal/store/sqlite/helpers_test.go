package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kvstore/internal/logging"
)

var discardLogger = logging.Discard()

// createTestStore opens a store on a fresh database file.
func createTestStore(t *testing.T, driver string, tables ...string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), Options{
		Driver: driver,
		DSN:    path,
		Tables: tables,
		Logger: discardLogger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}
