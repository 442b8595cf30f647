package cli

import (
	"bytes"
	"path/filepath"
	"testing"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// execute runs the root command with args against a fresh database path
// shared by all calls that pass the same db.
func execute(t *testing.T, db string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--db", db}, args...))
	err := cmd.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "cli.db")
}
