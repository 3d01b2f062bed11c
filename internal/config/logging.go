package config

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

var logFormats = []string{"text", "json", "color"}

// InitLog configures the process-wide logger.
func InitLog(cfg LoggingConfig) error {
	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text":
		log.SetFormatter(&log.TextFormatter{})
	case "color":
		log.SetFormatter(&log.TextFormatter{ForceColors: true})
	default:
		return fmt.Errorf("unrecognized log format %q", cfg.Format)
	}

	lvl, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("unrecognized log level: %w", err)
	}
	log.SetLevel(lvl)
	return nil
}
