package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir:         "~/.local/share/trail",
			SQLiteFile:  "trail.db",
			JournalMode: "wal",
		},
		Query: QueryConfig{
			DefaultLimit: 20,
			SnippetSize:  15,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}
