package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shoplist/pkg/types"
)

func descriptions(products []types.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Description
	}
	return out
}

func id(p types.Product) string {
	return strconv.FormatInt(p.ID, 10)
}

func TestVersion(t *testing.T) {
	env := NewTestEnv(t)
	res := env.MustRun("version")
	assert.Contains(t, res.Stdout, "shoplist v0.1.0")
	assert.Contains(t, res.Stdout, "github.com/mesh-intelligence/shoplist")
}

func TestUnknownCommand(t *testing.T) {
	env := NewTestEnv(t)
	res := env.Run("frobnicate")
	assert.Equal(t, exitUserError, res.ExitCode)
	assert.Contains(t, res.Stderr, "unknown command")
}

func TestInit(t *testing.T) {
	env := NewTestEnv(t)
	res := env.MustRun("init")

	dbPath := filepath.Join(env.DataDir, types.DefaultDBFile)
	assert.Contains(t, res.Stdout, dbPath)
	assert.FileExists(t, dbPath)

	// A second init keeps the existing data.
	env.MustAdd("Arroz", "1", "2")
	env.MustRun("init")
	assert.Len(t, env.List(), 1)
}

func TestInit_FirstRunWritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "config")
	dataDir := filepath.Join(dir, "data")

	var stdout, stderr bytes.Buffer
	code := Run([]string{"--config-dir", configDir, "--data-dir", dataDir, "init"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitSuccess, code, stderr.String())

	data, err := os.ReadFile(filepath.Join(configDir, configFileExt))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")
	assert.Contains(t, string(data), "data_dir: "+dataDir, "init --data-dir records the directory")
	assert.FileExists(t, filepath.Join(dataDir, types.DefaultDBFile))

	// Later commands find the data without --data-dir.
	code = Run([]string{"--config-dir", configDir, "add", "-d", "Café", "-q", "1", "-p", "10"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitSuccess, code, stderr.String())
	stdout.Reset()
	code = Run([]string{"--config-dir", configDir, "total"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitSuccess, code, stderr.String())
	assert.Equal(t, "The total is 10.00\n", stdout.String())
}

func TestAddListTotal(t *testing.T) {
	env := NewTestEnv(t)
	arroz := env.MustAdd("Arroz", "2", "3.5")
	cafe := env.MustAdd("Café", "1", "10")

	assert.Greater(t, cafe.ID, arroz.ID)
	assert.Equal(t, []string{"Arroz", "Café"}, descriptions(env.List()))

	res := env.MustRun("list")
	assert.Contains(t, res.Stdout, "DESCRIPTION")
	assert.Contains(t, res.Stdout, "Arroz")
	assert.Contains(t, res.Stdout, "3.50")
	assert.Contains(t, res.Stdout, "The total is 17.00")

	res = env.MustRun("total")
	assert.Equal(t, "The total is 17.00\n", res.Stdout)

	res = env.MustRun("total", "  CAF ")
	assert.Equal(t, "The total is 10.00\n", res.Stdout)
}

func TestList_Empty(t *testing.T) {
	env := NewTestEnv(t)
	res := env.MustRun("list")
	assert.Equal(t, "No products.\n", res.Stdout)
	assert.Empty(t, env.List())
}

func TestAdd_RejectsNonFinite(t *testing.T) {
	env := NewTestEnv(t)
	for _, value := range []string{"NaN", "Inf", "-Inf"} {
		res := env.Run("add", "-d", "Arroz", "--quantity="+value, "-p", "1")
		assert.Equal(t, exitUserError, res.ExitCode, "quantity %s", value)
	}
	assert.Empty(t, env.List())
}

func TestEdit(t *testing.T) {
	env := NewTestEnv(t)
	p := env.MustAdd("Arroz", "2", "3.5")

	env.MustRun("edit", id(p), "--price", "4")

	res := env.MustRun("--json", "show", id(p))
	var got types.Product
	require.NoError(t, json.Unmarshal([]byte(res.Stdout), &got))
	assert.Equal(t, types.Product{ID: p.ID, Description: "Arroz", Quantity: 2, UnitPrice: 4}, got)

	env.MustRun("edit", id(p), "-d", "Arroz integral", "-q", "3")
	assert.Equal(t, []types.Product{{ID: p.ID, Description: "Arroz integral", Quantity: 3, UnitPrice: 4}}, env.List())
}

func TestEdit_Errors(t *testing.T) {
	env := NewTestEnv(t)
	env.MustAdd("Arroz", "1", "1")

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing product", args: []string{"edit", "999", "-p", "1"}},
		{name: "non-numeric id", args: []string{"edit", "abc", "-p", "1"}},
		{name: "zero id", args: []string{"edit", "0", "-p", "1"}},
		{name: "no id", args: []string{"edit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.Run(tt.args...)
			assert.Equal(t, exitUserError, res.ExitCode, res.Stderr)
		})
	}
}

func TestShow(t *testing.T) {
	env := NewTestEnv(t)
	p := env.MustAdd("Feijão", "2", "7.25")

	res := env.MustRun("show", id(p))
	assert.Contains(t, res.Stdout, "Feijão")
	assert.Contains(t, res.Stdout, "7.25")
	assert.Contains(t, res.Stdout, "14.50")

	res = env.MustRun("--json", "show", id(p))
	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Stdout), &fields), res.Stdout)
	assert.Equal(t, 14.5, fields["total"])
	assert.Equal(t, 7.25, fields["unit_price"])

	res = env.Run("show", "42")
	assert.Equal(t, exitUserError, res.ExitCode)
	assert.Contains(t, res.Stderr, "not found")
}

func TestDelete(t *testing.T) {
	env := NewTestEnv(t)
	arroz := env.MustAdd("Arroz", "1", "1")
	feijao := env.MustAdd("Feijão", "1", "1")

	t.Run("declined", func(t *testing.T) {
		res := env.RunWithInput("n\n", "delete", id(feijao))
		require.Equal(t, exitSuccess, res.ExitCode)
		assert.Contains(t, res.Stdout, "Are you sure? Remove Feijão?")
		assert.Contains(t, res.Stdout, "Cancelled")
		assert.Len(t, env.List(), 2)
	})

	t.Run("no answer", func(t *testing.T) {
		res := env.RunWithInput("", "delete", id(feijao))
		require.Equal(t, exitSuccess, res.ExitCode)
		assert.Len(t, env.List(), 2)
	})

	t.Run("confirmed", func(t *testing.T) {
		res := env.RunWithInput("yes\n", "delete", id(feijao))
		require.Equal(t, exitSuccess, res.ExitCode)
		assert.Contains(t, res.Stdout, "Deleted product "+id(feijao))
		assert.Equal(t, []string{"Arroz"}, descriptions(env.List()))
	})

	t.Run("already gone", func(t *testing.T) {
		res := env.MustRun("delete", "--yes", id(feijao))
		assert.Contains(t, res.Stdout, "nothing to delete")
	})

	t.Run("yes flag", func(t *testing.T) {
		env.MustRun("delete", "-y", id(arroz))
		assert.Empty(t, env.List())
	})
}

func TestSearch(t *testing.T) {
	env := NewTestEnv(t)
	env.MustAdd("Arroz Integral", "1", "5")
	env.MustAdd("Feijão", "1", "8")
	env.MustAdd("Suco 100% uva", "2", "6")
	env.MustAdd("pão_de_queijo", "1", "12")

	tests := []struct {
		query string
		want  []string
	}{
		{query: "INTEG", want: []string{"Arroz Integral"}},
		{query: "  feijão ", want: []string{"Feijão"}},
		{query: "FEIJÃO", want: []string{"Feijão"}},
		{query: "%", want: []string{"Suco 100% uva"}},
		{query: "_", want: []string{"pão_de_queijo"}},
		{query: "'; DROP TABLE products; --", want: []string{}},
		{query: "zzz", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := env.MustRun("--json", "search", tt.query)
			var got []types.Product
			require.NoError(t, json.Unmarshal([]byte(res.Stdout), &got))
			assert.Equal(t, tt.want, descriptions(got))
		})
	}
	assert.Len(t, env.List(), 4)
}

func TestExportImport(t *testing.T) {
	env := NewTestEnv(t)
	env.MustAdd("Arroz", "2", "3.5")
	env.MustAdd("Café", "1", "10")

	file := filepath.Join(env.TempDir, "products.jsonl")
	res := env.MustRun("export", file)
	assert.Contains(t, res.Stdout, "Exported 2 products")

	other := NewTestEnv(t)
	res = other.MustRun("import", file)
	assert.Contains(t, res.Stdout, "Imported 2 products")
	assert.Equal(t, []string{"Arroz", "Café"}, descriptions(other.List()))
	assert.Equal(t, "The total is 17.00\n", other.MustRun("total").Stdout)

	res = other.Run("import", filepath.Join(env.TempDir, "missing.jsonl"))
	assert.Equal(t, exitUserError, res.ExitCode)
}

func TestBrowse_SearchAndTotal(t *testing.T) {
	env := NewTestEnv(t)
	env.MustAdd("Arroz Integral", "2", "3.5")
	env.MustAdd("Feijão", "1", "10")

	res := env.RunWithInput("a\nar\nINTEG\n:total\n\n:total\n:q\n", "browse")
	require.Equal(t, exitSuccess, res.ExitCode, res.Stderr)

	assert.Contains(t, res.Stdout, "Arroz Integral")
	assert.Contains(t, res.Stdout, "The total is 7.00")
	assert.Contains(t, res.Stdout, "The total is 17.00")
}

func TestBrowse_RemoveProduct(t *testing.T) {
	env := NewTestEnv(t)
	env.MustAdd("Arroz", "1", "1")
	feijao := env.MustAdd("Feijão", "1", "1")

	input := ":rm 999\n" +
		":rm " + id(feijao) + "\nn\n" +
		":rm " + id(feijao) + "\ny\n" +
		":bogus\n" +
		":q\n"
	res := env.RunWithInput(input, "browse")
	require.Equal(t, exitSuccess, res.ExitCode, res.Stderr)

	assert.Contains(t, res.Stdout, "Product 999 is not displayed")
	assert.Contains(t, res.Stdout, "Are you sure? Remove Feijão?")
	assert.Contains(t, res.Stdout, "Cancelled")
	assert.Contains(t, res.Stdout, "unknown command :bogus")
	assert.Equal(t, []string{"Arroz"}, descriptions(env.List()))
}

func TestBrowse_EndOfInputRunsLastQuery(t *testing.T) {
	env := NewTestEnv(t)
	env.MustAdd("Arroz", "1", "1")
	env.MustAdd("Banana", "6", "0.5")

	res := env.RunWithInput("ban", "browse")
	require.Equal(t, exitSuccess, res.ExitCode, res.Stderr)
	assert.Contains(t, res.Stdout, "Banana")
	assert.Contains(t, res.Stdout, "The total is 3.00")
}

func TestConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{name: "log level", config: "backend: sqlite\nlog_level: loud\n"},
		{name: "backend", config: "backend: postgres\n"},
		{name: "workers", config: "backend: sqlite\nworkers: 0\n"},
		{name: "debounce", config: "backend: sqlite\nsearch_debounce: -1s\n"},
		{name: "db file", config: "backend: sqlite\ndb_file: ../escape.db\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewTestEnv(t)
			require.NoError(t, os.WriteFile(filepath.Join(env.Config, configFileExt), []byte(tt.config), 0o644))
			res := env.Run("list")
			assert.Equal(t, exitUserError, res.ExitCode, res.Stderr)
		})
	}
}

func TestReadSettings_Defaults(t *testing.T) {
	v, err := loadConfig(t.TempDir())
	require.NoError(t, err)

	s, err := readSettings(v)
	require.NoError(t, err)
	assert.Equal(t, types.BackendSQLite, s.Backend)
	assert.Equal(t, types.DefaultDBFile, s.DBFile)
	assert.Equal(t, 300*time.Millisecond, s.SearchDebounce)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, logrus.WarnLevel, s.LogLevel)
	assert.Empty(t, s.DataDir)
}

func TestReadSettings_Overrides(t *testing.T) {
	v := viper.New()
	v.Set(cfgKeyBackend, "sqlite")
	v.Set(cfgKeyDBFile, "groceries.db")
	v.Set(cfgKeySearchDebounce, "50ms")
	v.Set(cfgKeyWorkers, 2)
	v.Set(cfgKeyLogLevel, "debug")

	s, err := readSettings(v)
	require.NoError(t, err)
	assert.Equal(t, "groceries.db", s.DBFile)
	assert.Equal(t, 50*time.Millisecond, s.SearchDebounce)
	assert.Equal(t, 2, s.Workers)
	assert.Equal(t, logrus.DebugLevel, s.LogLevel)
	assert.Equal(t, filepath.Join("data", "groceries.db"), s.storeConfig("data").DBPath())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(userError("bad id")))
	assert.Equal(t, exitSysError, exitCode(sysError("disk full")))
	assert.Equal(t, exitSysError, exitCode(storeError("list", &types.StorageError{Op: "list products", Err: os.ErrPermission})))
	assert.Equal(t, exitUserError, exitCode(storeError("get", types.ErrNotFound)))
}
