package config

import (
	"github.com/Iron-Ham/agentboard/internal/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch re-reads the config file whenever it changes on disk and applies the
// settings that can change at runtime: the logging level, then onReload.
// Invalid edits are logged and ignored, leaving the previous settings in force.
// Watch must be called after viper has located a config file.
func Watch(logger *logging.Logger, onReload func(*Config)) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithComponent("config")
	viper.OnConfigChange(func(e fsnotify.Event) {
		applyChange(logger, e, Load, onReload)
	})
	viper.WatchConfig()
}

// applyChange handles one filesystem notification for the config file.
func applyChange(logger *logging.Logger, e fsnotify.Event, load func() (*Config, error), onReload func(*Config)) bool {
	if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}

	cfg, err := load()
	if err != nil {
		logger.Warn("ignoring invalid config change", "file", e.Name, "error", err)
		return false
	}

	if cfg.Logging.Level != "" {
		logger.SetLevel(cfg.Logging.Level)
	}
	logger.Info("config reloaded", "file", e.Name, "level", logger.Level())
	if onReload != nil {
		onReload(cfg)
	}
	return true
}
