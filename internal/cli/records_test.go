package cli

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRecordLifecycle(t *testing.T) {
	db := tempDB(t)

	res := execute(t, db, "insert", "users", `{"id":"u1","name":"a"}`)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "inserted users/u1\n", res.stdout)

	res = execute(t, db, "exists", "users", "u1")
	require.NoError(t, res.err)
	assert.Equal(t, "true\n", res.stdout)

	res = execute(t, db, "update", "users", `{"id":"u1","name":"b"}`)
	require.NoError(t, res.err)

	res = execute(t, db, "--format", "json", "get", "users", "u1")
	require.NoError(t, res.err)
	assert.JSONEq(t, `{"status":"ok","data":{"id":"u1","name":"b"}}`, res.stdout)

	res = execute(t, db, "delete", "users", "u1")
	require.NoError(t, res.err)
	assert.Equal(t, "deleted users/u1\n", res.stdout)

	res = execute(t, db, "exists", "users", "u1")
	require.NoError(t, res.err)
	assert.Equal(t, "false\n", res.stdout)

	res = execute(t, db, "get", "users", "u1")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.Contains(t, res.stderr, "Error [NOT_FOUND]")
}

func TestGetGolden(t *testing.T) {
	db := tempDB(t)
	res := execute(t, db, "insert", "users", `{"id":"u1","name":"a","tags":["x","y"]}`)
	require.NoError(t, res.err)

	g := newGolden(t)

	res = execute(t, db, "get", "users", "u1")
	require.NoError(t, res.err)
	g.Assert(t, "get_text", []byte(res.stdout))

	res = execute(t, db, "--format", "json", "get", "users", "u1")
	require.NoError(t, res.err)
	g.Assert(t, "get_json", []byte(res.stdout))
}

func TestInsertDuplicate(t *testing.T) {
	db := tempDB(t)
	require.NoError(t, execute(t, db, "insert", "users", `{"id":"u1"}`).err)

	res := execute(t, db, "--format", "json", "insert", "users", `{"id":"u1"}`)
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.JSONEq(t,
		`{"status":"error","error":{"code":"ALREADY_EXISTS","message":"insert users/u1: record already exists"}}`,
		res.stdout,
	)
}

func TestInsertInvalidRecord(t *testing.T) {
	db := tempDB(t)
	tests := []struct {
		name string
		json string
	}{
		{"not json", `{id:u1}`},
		{"array", `["u1"]`},
		{"null", `null`},
		{"no id", `{"name":"a"}`},
		{"numeric id", `{"id":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, db, "insert", "users", tt.json)
			require.Error(t, res.err)
			assert.Equal(t, ExitCommandError, GetExitCode(res.err))
			assert.Contains(t, res.stderr, "VALIDATION_FAILED")
		})
	}
}

func TestUpdateAndDeleteMissingAreNoOps(t *testing.T) {
	db := tempDB(t)

	res := execute(t, db, "update", "users", `{"id":"ghost","name":"x"}`)
	require.NoError(t, res.err)
	res = execute(t, db, "delete", "users", "ghost")
	require.NoError(t, res.err)

	res = execute(t, db, "exists", "users", "ghost")
	require.NoError(t, res.err)
	assert.Equal(t, "false\n", res.stdout)
}

func TestTablesCommand(t *testing.T) {
	db := tempDB(t)
	require.NoError(t, execute(t, db, "insert", "orders", `{"id":"o1"}`).err)

	res := execute(t, db, "tables")
	require.NoError(t, res.err)
	assert.Equal(t, "orders\nusers\n", res.stdout, "users comes from the default config")

	res = execute(t, db, "--format", "json", "tables")
	require.NoError(t, res.err)
	assert.JSONEq(t, `{"status":"ok","data":{"tables":["orders","users"]}}`, res.stdout)
}

func TestMemoryDriver(t *testing.T) {
	res := execute(t, tempDB(t), "--driver", "memory", "insert", "users", `{"id":"m1"}`)
	require.NoError(t, res.err)
	assert.Equal(t, "inserted users/m1\n", res.stdout)

	res = execute(t, tempDB(t), "--driver", "memory", "raw", "SELECT 1")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "NOT_SUPPORTED")
}

func TestLargeIntegerRoundTrip(t *testing.T) {
	db := tempDB(t)
	res := execute(t, db, "insert", "users", `{"id":"t1","twitter_id":1234567890123456789,"n":3}`)
	require.NoError(t, res.err, res.stderr)

	res = execute(t, db, "--format", "json", "get", "users", "t1")
	require.NoError(t, res.err)
	assert.Equal(t, `{"status":"ok","data":{"id":"t1","n":3,"twitter_id":1234567890123456789}}`+"\n", res.stdout)

	res = execute(t, db, "raw", "SELECT data FROM users WHERE id = 't1'")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `{"n":3,"twitter_id":1234567890123456789}`)
}
