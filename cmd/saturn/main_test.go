package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// execute runs the saturn command tree with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig writes a config file into a temp dir. Relative paths inside
// the YAML are not rewritten, so tests pass absolute paths.
func writeConfig(t *testing.T, yaml string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "saturn.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("Expected to write config, got %v", err)
	}
	return path
}
