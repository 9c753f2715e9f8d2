package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/shoplist/internal/catalog"
	"github.com/mesh-intelligence/shoplist/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyDBFile         = "db_file"
	cfgKeySearchDebounce = "search_debounce"
	cfgKeyWorkers        = "workers"
	cfgKeyLogLevel       = "log_level"

	defaultLogLevel = "warn"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# shoplist configuration

# Storage backend
backend: sqlite

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Database file inside the data directory
db_file: shoplist.db

# Quiet period after the last keystroke before browse searches
search_debounce: 300ms

# Store calls browse runs at once
workers: 4

# panic, fatal, error, warn, info, debug or trace
log_level: warn
`

// settings is the validated content of config.yaml.
type settings struct {
	Backend        string
	DataDir        string
	DBFile         string
	SearchDebounce time.Duration
	Workers        int
	LogLevel       logrus.Level
}

// loadConfig reads config.yaml from the resolved config directory using Viper.
// It creates the config directory and a default config.yaml on first run.
// A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyDBFile, types.DefaultDBFile)
	v.SetDefault(cfgKeySearchDebounce, catalog.DefaultDebounce)
	v.SetDefault(cfgKeyWorkers, catalog.DefaultWorkers)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// readSettings validates the values loaded by v.
func readSettings(v *viper.Viper) (settings, error) {
	s := settings{
		Backend:        v.GetString(cfgKeyBackend),
		DataDir:        v.GetString(cfgKeyDataDir),
		DBFile:         v.GetString(cfgKeyDBFile),
		SearchDebounce: v.GetDuration(cfgKeySearchDebounce),
		Workers:        v.GetInt(cfgKeyWorkers),
	}

	level, err := logrus.ParseLevel(v.GetString(cfgKeyLogLevel))
	if err != nil {
		return settings{}, fmt.Errorf("%s: %w", cfgKeyLogLevel, err)
	}
	s.LogLevel = level

	if s.SearchDebounce <= 0 {
		return settings{}, fmt.Errorf("%s must be a positive duration such as 300ms", cfgKeySearchDebounce)
	}
	if s.Workers < 1 {
		return settings{}, fmt.Errorf("%s must be at least 1", cfgKeyWorkers)
	}
	if err := s.storeConfig("").Validate(); err != nil {
		return settings{}, err
	}
	return s, nil
}

// storeConfig returns the backend configuration for dataDir.
func (s settings) storeConfig(dataDir string) types.Config {
	return types.Config{
		Backend: s.Backend,
		DataDir: dataDir,
		DBFile:  s.DBFile,
	}
}
