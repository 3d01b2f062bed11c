package config

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "~/.local/share/trail", cfg.Storage.Dir)
	assert.Equal(t, "trail.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, "wal", cfg.Storage.JournalMode)
	assert.Equal(t, 20, cfg.Query.DefaultLimit)
	assert.Equal(t, 15, cfg.Query.SnippetSize)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadValidYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
storage:
  dir: "/var/lib/trail"
  journal_mode: "delete"
query:
  default_limit: 50
logging:
  level: "debug"
  format: "json"
`
	err := os.WriteFile(cfgPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, "/var/lib/trail", cfg.Storage.Dir)
	assert.Equal(t, "delete", cfg.Storage.JournalMode)
	assert.Equal(t, 50, cfg.Query.DefaultLimit)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Non-overridden values remain defaults
	assert.Equal(t, "trail.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, 15, cfg.Query.SnippetSize)
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	err := os.WriteFile(cfgPath, []byte(":::not valid yaml{{{"), 0644)
	require.NoError(t, err)

	_, err = Load(cfgPath)
	assert.Error(t, err)
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing", "config.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"journal mode", "storage:\n  journal_mode: \"fast\"\n"},
		{"file is a path", "storage:\n  sqlite_file: \"../x.db\"\n"},
		{"empty dir", "storage:\n  dir: \"\"\n"},
		{"negative limit", "query:\n  default_limit: -1\n"},
		{"negative snippet", "query:\n  snippet_size: -4\n"},
		{"log format", "logging:\n  format: \"xml\"\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(tc.yaml), 0644))

			_, err := Load(cfgPath)
			assert.Error(t, err)
		})
	}
}

func TestLoadOrCreateCreatesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "deep", "config.yaml")

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)

	// Should return defaults
	assert.Equal(t, "trail.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, 20, cfg.Query.DefaultLimit)

	// File should now exist on disk
	_, statErr := os.Stat(cfgPath)
	assert.NoError(t, statErr)

	// File should be valid YAML loadable again
	cfg2, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, cfg2)
}

func TestLoadOrCreateLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
query:
  snippet_size: 30
`
	err := os.WriteFile(cfgPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Query.SnippetSize)
	// Other fields remain defaults
	assert.Equal(t, 20, cfg.Query.DefaultLimit)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/.local/share/trail")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local/share/trail"), got)

	got, err = ExpandPath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)
}

func TestInitLog(t *testing.T) {
	prevLevel, prevFormatter := log.GetLevel(), log.StandardLogger().Formatter
	t.Cleanup(func() {
		log.SetLevel(prevLevel)
		log.SetFormatter(prevFormatter)
	})

	require.NoError(t, InitLog(LoggingConfig{Level: "debug", Format: "json"}))
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	require.NoError(t, InitLog(LoggingConfig{Level: "error", Format: "color"}))
	assert.Equal(t, log.ErrorLevel, log.GetLevel())
	formatter, ok := log.StandardLogger().Formatter.(*log.TextFormatter)
	require.True(t, ok)
	assert.True(t, formatter.ForceColors)

	assert.Error(t, InitLog(LoggingConfig{Level: "loud", Format: "text"}))
	assert.Error(t, InitLog(LoggingConfig{Level: "info", Format: "xml"}))
}
