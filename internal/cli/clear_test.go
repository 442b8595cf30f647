package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearRequiresConfirm(t *testing.T) {
	db := tempDB(t)
	require.NoError(t, execute(t, db, "insert", "users", `{"id":"u1"}`).err)

	for _, args := range [][]string{
		{"clear", "users"},
		{"clear", "users", "--confirm", "WRONG"},
	} {
		res := execute(t, db, args...)
		require.Error(t, res.err, args)
		assert.Equal(t, ExitCommandError, GetExitCode(res.err))
		assert.Contains(t, res.stderr, "VALIDATION_FAILED")
	}

	res := execute(t, db, "exists", "users", "u1")
	require.NoError(t, res.err)
	assert.Equal(t, "true\n", res.stdout)

	res = execute(t, db, "clear", "users", "--confirm", "CONFIRM")
	require.NoError(t, res.err)
	assert.Equal(t, "cleared users\n", res.stdout)

	res = execute(t, db, "exists", "users", "u1")
	require.NoError(t, res.err)
	assert.Equal(t, "false\n", res.stdout)
}

func TestLoadCommand(t *testing.T) {
	db := tempDB(t)
	dir := t.TempDir()

	yamlFile := filepath.Join(dir, "users.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte(`
- id: u1
  name: alice
  roles: [admin]
- id: u2
  name: bob
  profile:
    age: 40
`), 0644))

	res := execute(t, db, "load", "users", yamlFile)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "loaded 2 records into users\n", res.stdout)

	res = execute(t, db, "--format", "json", "get", "users", "u2")
	require.NoError(t, res.err)
	assert.JSONEq(t, `{"status":"ok","data":{"id":"u2","name":"bob","profile":{"age":40}}}`, res.stdout)

	// u3 is new but u1 collides: nothing from this file may be kept.
	jsonFile := filepath.Join(dir, "more.json")
	require.NoError(t, os.WriteFile(jsonFile, []byte(`[{"id":"u3"},{"id":"u1"}]`), 0644))

	res = execute(t, db, "load", "users", jsonFile)
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "ALREADY_EXISTS")

	res = execute(t, db, "exists", "users", "u3")
	require.NoError(t, res.err)
	assert.Equal(t, "false\n", res.stdout)
}

func TestLoadCommandBadFile(t *testing.T) {
	db := tempDB(t)
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("id: not-a-list\n"), 0644))

	res := execute(t, db, "load", "users", bad)
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))

	res = execute(t, db, "load", "users", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "kvstore.yaml")
	dbPath := filepath.Join(dir, "from-config.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte("connection_string: "+dbPath+"\ntables: [accounts]\n"), 0644))

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--config", cfgPath, "tables"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "accounts\n", out.String())

	_, err := os.Stat(dbPath)
	assert.NoError(t, err, "database should be created at the configured path")
}
