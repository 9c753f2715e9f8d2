package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configFile mirrors config.yaml for rewriting it on init.
type configFile struct {
	Backend        string `yaml:"backend"`
	DataDir        string `yaml:"data_dir,omitempty"`
	DBFile         string `yaml:"db_file,omitempty"`
	SearchDebounce string `yaml:"search_debounce,omitempty"`
	Workers        int    `yaml:"workers,omitempty"`
	LogLevel       string `yaml:"log_level,omitempty"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize shoplist storage",
		Long: "Create the configuration and data directories and the product database.\n" +
			"With --data-dir the directory is also recorded in config.yaml.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.flags.dataDir != "" {
				dataDir, err := filepath.Abs(a.flags.dataDir)
				if err != nil {
					return sysError("resolve data dir: %w", err)
				}
				if err := pinDataDir(filepath.Join(a.configDir, configFileExt), dataDir); err != nil {
					return sysError("write config: %w", err)
				}
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			path := backend.Path()
			if err := backend.Detach(); err != nil {
				return sysError("finalize storage: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Shopping list initialized at %s\n", path)
			return nil
		},
	}
}

// pinDataDir sets data_dir in the config file at path, keeping its other
// values.
func pinDataDir(path, dataDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.DataDir == dataDir {
		return nil
	}
	cfg.DataDir = dataDir

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}
