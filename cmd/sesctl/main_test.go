package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drses/frozen-realms-shim/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var coder interface{ ExitCode() int }
	require.True(t, errors.As(err, &coder), "got %v", err)
	return coder.ExitCode()
}

func TestRun_Init(t *testing.T) {
	out, _, err := runCLI(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Max Severity: Safe(0).")
}

func TestRun_InitAborts(t *testing.T) {
	out, _, err := runCLI(t, "init", "--extensions")
	assert.Equal(t, 3, exitCode(t, err))
	assert.Contains(t, out, "Max Severity: New symptom(5).")
}

func TestRun_InitJSON(t *testing.T) {
	out, _, err := runCLI(t, "init", "--json", "--defects", "array-push-ignores-frozen")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, true, report["accepted"])
	assert.Equal(t, "safe", report["worst"])
}

func TestRun_Confine(t *testing.T) {
	out, _, err := runCLI(t, "confine", "--bind", "x=3", "--bind", "y=4", "x + y")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)

	out, _, err = runCLI(t, "confine", "--bind", `cfg={"name":"n"}`, "--bind", "s=plain", "[cfg.name, s]")
	require.NoError(t, err)
	assert.JSONEq(t, `["n", "plain"]`, out)
}

func TestRun_ConfineErrors(t *testing.T) {
	_, _, err := runCLI(t, "confine", "missing")
	assert.Equal(t, 4, exitCode(t, err))

	_, _, err = runCLI(t, "confine")
	assert.Equal(t, 2, exitCode(t, err))

	_, _, err = runCLI(t, "confine", "--bind", "novalue", "1")
	assert.Equal(t, 2, exitCode(t, err))
}

func TestRun_Module(t *testing.T) {
	path := filepath.Join(t.TempDir(), "add.wasm")
	require.NoError(t, os.WriteFile(path, testutil.AddModule, 0o600))

	out, _, err := runCLI(t, "module", path)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestRun_Schema(t *testing.T) {
	out, _, err := runCLI(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "max_severity")

	out, _, err = runCLI(t, "schema", "policy")
	require.NoError(t, err)
	assert.Contains(t, out, "maybeAccessor")

	_, _, err = runCLI(t, "schema", "nope")
	assert.Equal(t, 2, exitCode(t, err))
}

func TestRun_UnknownCommand(t *testing.T) {
	_, stderr, err := runCLI(t, "bogus")
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, stderr, "Usage:")
}

func TestParseBindings(t *testing.T) {
	got, err := parseBindings([]string{"n=1", "b=true", "s=hello", "list=[1,2]", "eq=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"n":    1.0,
		"b":    true,
		"s":    "hello",
		"list": []any{1.0, 2.0},
		"eq":   "a=b",
	}, got)
}
