package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvstore/internal/store"
)

func TestRawGolden(t *testing.T) {
	db := tempDB(t)
	require.NoError(t, execute(t, db, "insert", "users", `{"id":"u2","name":"b"}`).err)
	require.NoError(t, execute(t, db, "insert", "users", `{"id":"u1","name":"a"}`).err)

	res := execute(t, db, "raw", "SELECT id, data FROM users ORDER BY id")
	require.NoError(t, res.err, res.stderr)
	newGolden(t).Assert(t, "raw_text", []byte(res.stdout))
}

func TestRawExec(t *testing.T) {
	db := tempDB(t)
	require.NoError(t, execute(t, db, "insert", "users", `{"id":"u1"}`).err)

	res := execute(t, db, "raw", "DELETE FROM users")
	require.NoError(t, res.err)
	assert.Equal(t, "OK, 1 rows affected\n", res.stdout)

	res = execute(t, db, "--format", "json", "raw", "SELECT COUNT(*) AS n FROM users")
	require.NoError(t, res.err)
	assert.JSONEq(t, `{"status":"ok","data":{"columns":["n"],"rows":[[0]],"rows_affected":0}}`, res.stdout)
}

func TestRawError(t *testing.T) {
	res := execute(t, tempDB(t), "raw", "SELECT * FROM nowhere")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.Contains(t, res.stderr, "INTERNAL_ERROR")
}

func TestRenderRaw_Nulls(t *testing.T) {
	var buf bytes.Buffer
	err := renderRaw(&buf, &store.RawResult{
		Columns: []string{"a", "bb"},
		Rows:    [][]any{{nil, int64(7)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "a     bb\nNULL  7\n(1 rows)\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestRenderRaw_WriteError(t *testing.T) {
	err := renderRaw(failingWriter{}, &store.RawResult{Columns: []string{"a"}, Rows: [][]any{{"x"}}})
	assert.Error(t, err)
}

func TestWriteRaw_JSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	out := &OutputFormatter{Format: "json", Writer: &buf}
	res := &store.RawResult{Columns: []string{"n"}, Rows: [][]any{{int64(1)}}}

	require.NoError(t, writeRaw(out, res))
	assert.JSONEq(t, `{"status":"ok","data":{"columns":["n"],"rows":[[1]],"rows_affected":0}}`, buf.String())
}

func TestFail_JSONEnvelopeForUnclassifiedError(t *testing.T) {
	var buf bytes.Buffer
	out := &OutputFormatter{Format: "json", Writer: &buf}

	err := out.Fail("raw statement failed", errors.New("broken pipe"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.JSONEq(t, `{"status":"error","error":{"code":"INTERNAL_ERROR","message":"broken pipe"}}`, buf.String())
}
