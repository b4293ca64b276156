package app

import (
	"strings"

	"github.com/spryntr/waitlist/pkg/logger"
)

// ConfigureLogging initialises the global logger from server settings,
// defaulting to info level and JSON output.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}

	opts := logger.Options{Level: level, Format: cfg.LogFormat}
	if path := strings.TrimSpace(cfg.LogFile.Path); path != "" {
		opts.File = &logger.FileOptions{
			Path:       path,
			MaxSizeMB:  cfg.LogFile.MaxSizeMB,
			MaxBackups: cfg.LogFile.MaxBackups,
			MaxAgeDays: cfg.LogFile.MaxAgeDays,
			Compress:   cfg.LogFile.Compress,
		}
	}
	return logger.InitWithOptions(opts)
}
