package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shoplist/pkg/types"
)

// TestEnv is an isolated config and data directory pair for one test.
type TestEnv struct {
	t       *testing.T
	TempDir string
	Config  string
	DataDir string
}

// NewTestEnv writes a config.yaml pointing at a fresh data directory.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tempDir := t.TempDir()
	dataDir := filepath.Join(tempDir, "data")
	configDir := filepath.Join(tempDir, "config")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	configContent := "backend: sqlite\n" +
		"data_dir: " + dataDir + "\n" +
		"search_debounce: 20ms\n" +
		"log_level: error\n"
	require.NoError(t, os.WriteFile(filepath.Join(configDir, configFileExt), []byte(configContent), 0o644))

	t.Setenv("SHOPLIST_CONFIG_DIR", "")
	t.Setenv("SHOPLIST_DATA_DIR", "")

	return &TestEnv{t: t, TempDir: tempDir, Config: configDir, DataDir: dataDir}
}

// CmdResult holds the result of one CLI invocation.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes the CLI with args against this environment.
func (e *TestEnv) Run(args ...string) CmdResult {
	return e.RunWithInput("", args...)
}

// RunWithInput executes the CLI with stdin set to input.
func (e *TestEnv) RunWithInput(input string, args ...string) CmdResult {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config-dir", e.Config}, args...)
	code := Run(full, strings.NewReader(input), &stdout, &stderr)
	return CmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}
}

// MustRun executes the CLI and fails the test on a non-zero exit code.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	res := e.Run(args...)
	require.Equal(e.t, exitSuccess, res.ExitCode, "shoplist %v\nstdout: %s\nstderr: %s", args, res.Stdout, res.Stderr)
	return res
}

// MustAdd adds a product and returns the stored record.
func (e *TestEnv) MustAdd(description, quantity, price string) types.Product {
	e.t.Helper()
	res := e.MustRun("--json", "add", "--description", description, "--quantity", quantity, "--price", price)
	var p types.Product
	require.NoError(e.t, json.Unmarshal([]byte(res.Stdout), &p), res.Stdout)
	return p
}

// List returns every stored product through "list --json".
func (e *TestEnv) List() []types.Product {
	e.t.Helper()
	res := e.MustRun("--json", "list")
	var products []types.Product
	require.NoError(e.t, json.Unmarshal([]byte(res.Stdout), &products), res.Stdout)
	return products
}
