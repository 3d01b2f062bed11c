package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/trail/config.yaml"

// Config holds all trail configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Query   QueryConfig   `yaml:"query"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig locates the profile directory and tunes its database.
type StorageConfig struct {
	Dir         string `yaml:"dir"`
	SQLiteFile  string `yaml:"sqlite_file"`
	JournalMode string `yaml:"journal_mode"`
}

// QueryConfig holds defaults for history and search commands.
type QueryConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	SnippetSize  int `yaml:"snippet_size"`
}

// LoggingConfig configures handling of application log events.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var journalModes = []string{"delete", "truncate", "persist", "memory", "wal", "off"}

// Validate checks values that would otherwise only fail once the database
// or logger is opened.
func (c *Config) Validate() error {
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir must not be empty")
	}
	if c.Storage.SQLiteFile == "" {
		return fmt.Errorf("storage.sqlite_file must not be empty")
	}
	if c.Storage.SQLiteFile != filepath.Base(c.Storage.SQLiteFile) {
		return fmt.Errorf("storage.sqlite_file %q must be a file name, not a path", c.Storage.SQLiteFile)
	}
	if !contains(journalModes, strings.ToLower(c.Storage.JournalMode)) {
		return fmt.Errorf("storage.journal_mode %q is not one of %v", c.Storage.JournalMode, journalModes)
	}
	if c.Query.DefaultLimit < 0 {
		return fmt.Errorf("query.default_limit must not be negative")
	}
	if c.Query.SnippetSize < 0 {
		return fmt.Errorf("query.snippet_size must not be negative")
	}
	if !contains(logFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format %q is not one of %v", c.Logging.Format, logFormats)
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML, or
// holds invalid values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
