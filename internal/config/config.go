package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Iron-Ham/agentboard/internal/channel"
	"github.com/Iron-Ham/agentboard/internal/retry"
	"github.com/Iron-Ham/agentboard/internal/roster"
	"github.com/spf13/viper"
)

// Config represents the complete agentboard configuration
type Config struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Channel ChannelConfig `mapstructure:"channel" yaml:"channel"`
	Roster  RosterConfig  `mapstructure:"roster" yaml:"roster"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	TUI     TUIConfig     `mapstructure:"tui" yaml:"tui"`
	Watch   WatchConfig   `mapstructure:"watch" yaml:"watch"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// BackendConfig locates the orchestration backend
type BackendConfig struct {
	// BaseURL is the backend origin, e.g. "http://localhost:3000"
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// ChatPath receives turn submissions
	ChatPath string `mapstructure:"chat_path" yaml:"chat_path"`
	// DirectoryPath serves the agent directory
	DirectoryPath string `mapstructure:"directory_path" yaml:"directory_path"`
	// SocketPath is the Socket.IO mount point
	SocketPath string `mapstructure:"socket_path" yaml:"socket_path"`
}

// ChannelConfig controls the live session channel
type ChannelConfig struct {
	// FragmentEvent is the wire event carrying streamed answer fragments
	FragmentEvent string `mapstructure:"fragment_event" yaml:"fragment_event"`
	// TraceEvent is the wire event carrying orchestration traces
	TraceEvent string `mapstructure:"trace_event" yaml:"trace_event"`
	// JoinEvent is emitted after connecting to bind the socket to a session
	JoinEvent string `mapstructure:"join_event" yaml:"join_event"`
	// Reconnect re-opens the channel after an unexpected drop
	Reconnect bool `mapstructure:"reconnect" yaml:"reconnect"`
	// MaxAttempts caps connection attempts per open (default: 5)
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	// InitialBackoffMs is the delay before the second attempt
	InitialBackoffMs int `mapstructure:"initial_backoff_ms" yaml:"initial_backoff_ms"`
	// MaxBackoffMs caps the delay between attempts
	MaxBackoffMs int `mapstructure:"max_backoff_ms" yaml:"max_backoff_ms"`
	// HandshakeTimeoutSeconds bounds the Socket.IO handshake
	HandshakeTimeoutSeconds int `mapstructure:"handshake_timeout_seconds" yaml:"handshake_timeout_seconds"`
	// SubmitTimeoutSeconds bounds the submit acknowledgement round trip
	SubmitTimeoutSeconds int `mapstructure:"submit_timeout_seconds" yaml:"submit_timeout_seconds"`
}

// RosterConfig controls the agent directory lookup
type RosterConfig struct {
	// TimeoutSeconds bounds the directory request (default: 10)
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// SessionConfig controls session identity
type SessionConfig struct {
	// ID joins an existing session. Empty means generate session_<unix millis>.
	ID string `mapstructure:"id" yaml:"id"`
}

// TUIConfig controls the terminal UI behavior
type TUIConfig struct {
	// Theme is the color theme for the TUI (default: "default")
	// Options: "default", "monokai", "dracula", "nord", or a path to a YAML theme file
	Theme string `mapstructure:"theme" yaml:"theme"`
	// BoardWidth is the width of the agent board in columns (default: 36, min: 24, max: 80)
	BoardWidth int `mapstructure:"board_width" yaml:"board_width"`
	// ShowRawTraces expands raw trace JSON in the trace log by default
	ShowRawTraces bool `mapstructure:"show_raw_traces" yaml:"show_raw_traces"`
}

// WatchConfig controls the line-mode watch command
type WatchConfig struct {
	// Kinds are glob patterns over trace kinds, e.g. ["*PROCESSING", "ERROR"].
	// Empty prints every trace.
	Kinds []string `mapstructure:"kinds" yaml:"kinds"`
	// ShowFragments prints streamed fragments as they arrive
	ShowFragments bool `mapstructure:"show_fragments" yaml:"show_fragments"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is active (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated backup files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	ch := channel.DefaultConfig()
	policy := retry.DefaultPolicy()
	return &Config{
		Backend: BackendConfig{
			BaseURL:       ch.BaseURL,
			ChatPath:      ch.ChatPath,
			DirectoryPath: roster.DefaultPath,
			SocketPath:    ch.SocketPath,
		},
		Channel: ChannelConfig{
			FragmentEvent:           ch.FragmentEvent,
			TraceEvent:              ch.TraceEvent,
			JoinEvent:               ch.JoinEvent,
			Reconnect:               ch.Reconnect,
			MaxAttempts:             policy.MaxAttempts,
			InitialBackoffMs:        int(policy.InitialDelay / time.Millisecond),
			MaxBackoffMs:            int(policy.MaxDelay / time.Millisecond),
			HandshakeTimeoutSeconds: int(ch.HandshakeTimeout / time.Second),
			SubmitTimeoutSeconds:    int(ch.SubmitTimeout / time.Second),
		},
		Roster: RosterConfig{
			TimeoutSeconds: 10,
		},
		Session: SessionConfig{},
		TUI: TUIConfig{
			Theme:      "default",
			BoardWidth: 36,
		},
		Watch: WatchConfig{
			ShowFragments: true,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// RetryPolicy returns the connection retry policy described by the channel section
func (c *ChannelConfig) RetryPolicy() retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = c.MaxAttempts
	policy.InitialDelay = time.Duration(c.InitialBackoffMs) * time.Millisecond
	policy.MaxDelay = time.Duration(c.MaxBackoffMs) * time.Millisecond
	return policy
}

// ChannelConfig assembles the settings the session channel needs
func (c *Config) ChannelConfig() channel.Config {
	return channel.Config{
		BaseURL:          c.Backend.BaseURL,
		SocketPath:       c.Backend.SocketPath,
		ChatPath:         c.Backend.ChatPath,
		FragmentEvent:    c.Channel.FragmentEvent,
		TraceEvent:       c.Channel.TraceEvent,
		JoinEvent:        c.Channel.JoinEvent,
		Retry:            c.Channel.RetryPolicy(),
		Reconnect:        c.Channel.Reconnect,
		HandshakeTimeout: time.Duration(c.Channel.HandshakeTimeoutSeconds) * time.Second,
		SubmitTimeout:    time.Duration(c.Channel.SubmitTimeoutSeconds) * time.Second,
	}
}

// RosterClient returns a directory client for the configured backend
func (c *Config) RosterClient() *roster.Client {
	return &roster.Client{
		BaseURL:        c.Backend.BaseURL,
		Path:           c.Backend.DirectoryPath,
		RequestTimeout: c.Roster.Timeout(),
	}
}

// Timeout returns the directory request timeout as a time.Duration
func (c *RosterConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Backend defaults
	viper.SetDefault("backend.base_url", defaults.Backend.BaseURL)
	viper.SetDefault("backend.chat_path", defaults.Backend.ChatPath)
	viper.SetDefault("backend.directory_path", defaults.Backend.DirectoryPath)
	viper.SetDefault("backend.socket_path", defaults.Backend.SocketPath)

	// Channel defaults
	viper.SetDefault("channel.fragment_event", defaults.Channel.FragmentEvent)
	viper.SetDefault("channel.trace_event", defaults.Channel.TraceEvent)
	viper.SetDefault("channel.join_event", defaults.Channel.JoinEvent)
	viper.SetDefault("channel.reconnect", defaults.Channel.Reconnect)
	viper.SetDefault("channel.max_attempts", defaults.Channel.MaxAttempts)
	viper.SetDefault("channel.initial_backoff_ms", defaults.Channel.InitialBackoffMs)
	viper.SetDefault("channel.max_backoff_ms", defaults.Channel.MaxBackoffMs)
	viper.SetDefault("channel.handshake_timeout_seconds", defaults.Channel.HandshakeTimeoutSeconds)
	viper.SetDefault("channel.submit_timeout_seconds", defaults.Channel.SubmitTimeoutSeconds)

	// Roster defaults
	viper.SetDefault("roster.timeout_seconds", defaults.Roster.TimeoutSeconds)

	// Session defaults
	viper.SetDefault("session.id", defaults.Session.ID)

	// TUI defaults
	viper.SetDefault("tui.theme", defaults.TUI.Theme)
	viper.SetDefault("tui.board_width", defaults.TUI.BoardWidth)
	viper.SetDefault("tui.show_raw_traces", defaults.TUI.ShowRawTraces)

	// Watch defaults
	viper.SetDefault("watch.kinds", defaults.Watch.Kinds)
	viper.SetDefault("watch.show_fragments", defaults.Watch.ShowFragments)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentboard")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentboard"
	}
	return filepath.Join(home, ".config", "agentboard")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LogDir returns the directory debug logs are written to
func LogDir() string {
	return filepath.Join(ConfigDir(), "logs")
}

// ThemesDir returns the directory custom theme files are loaded from
func ThemesDir() string {
	return filepath.Join(ConfigDir(), "themes")
}
