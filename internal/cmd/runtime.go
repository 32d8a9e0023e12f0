package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/Iron-Ham/agentboard/internal/channel"
	"github.com/Iron-Ham/agentboard/internal/config"
	"github.com/Iron-Ham/agentboard/internal/event"
	"github.com/Iron-Ham/agentboard/internal/logging"
	"github.com/Iron-Ham/agentboard/internal/monitor"
	"github.com/Iron-Ham/agentboard/internal/session"
	"github.com/spf13/viper"
)

// loadConfig returns the validated configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// createLogger creates a logger if logging is enabled in config.
// Returns a NopLogger if logging is disabled. If the log file cannot be
// created, errors go to stderr instead.
func createLogger(cfg *config.Config, stderr io.Writer) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	rotationConfig := logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}

	logger, err := logging.NewLogger(config.LogDir(), cfg.Logging.Level, rotationConfig)
	if err != nil {
		// Log creation failure shouldn't prevent the application from starting
		_, _ = fmt.Fprintf(stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NewWriterLogger(stderr, logging.LevelError)
	}
	return logger
}

// sessionRuntime is everything one monitored session needs: the event bus,
// the channel to the backend and the monitor deriving state from it.
type sessionRuntime struct {
	cfg       *config.Config
	logger    *logging.Logger
	bus       *event.Bus
	channel   *channel.Channel
	monitor   *monitor.Monitor
	sessionID string
}

// newSessionRuntime wires a monitor for the configured session. The monitor
// is not started.
func newSessionRuntime(cfg *config.Config, logger *logging.Logger) *sessionRuntime {
	sessionID := session.NormalizeID(cfg.Session.ID, time.Now())
	logger = logger.WithSession(sessionID)

	bus := event.NewBus()
	bus.SetLogger(logger)

	ch := channel.New(cfg.ChannelConfig(), bus, channel.WithLogger(logger))

	directory := cfg.RosterClient()
	directory.Logger = logger

	return &sessionRuntime{
		cfg:       cfg,
		logger:    logger,
		bus:       bus,
		channel:   ch,
		monitor:   monitor.New(sessionID, ch, directory, bus, monitor.WithLogger(logger)),
		sessionID: sessionID,
	}
}

// watchConfig applies config file edits, such as a new logging level, while
// the session runs.
func (r *sessionRuntime) watchConfig() {
	if viper.ConfigFileUsed() == "" {
		return
	}
	config.Watch(r.logger, func(cfg *config.Config) {
		if cfg.Backend != r.cfg.Backend || cfg.Channel.FragmentEvent != r.cfg.Channel.FragmentEvent ||
			cfg.Channel.TraceEvent != r.cfg.Channel.TraceEvent {
			r.logger.Warn("backend settings changed; restart to apply them")
		}
	})
}

// close shuts the monitor down, which also closes the channel.
func (r *sessionRuntime) close() {
	if err := r.monitor.Close(); err != nil {
		r.logger.Warn("closing session", "error", err)
	}
	r.logger.Info("session closed")
	_ = r.logger.Close()
}
