package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/Iron-Ham/agentboard/internal/trace"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "channel.max_attempts")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// eventNameRegex validates Socket.IO event names
var eventNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_:.-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// BuiltinThemes returns the names of the themes compiled into the TUI
func BuiltinThemes() []string {
	return []string{"default", "monokai", "dracula", "nord"}
}

// Validate checks the configuration and returns every problem found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, c.validateBackend()...)
	errs = append(errs, c.validateChannel()...)
	errs = append(errs, c.validateRoster()...)
	errs = append(errs, c.validateSession()...)
	errs = append(errs, c.validateTUI()...)
	errs = append(errs, c.validateWatch()...)
	errs = append(errs, c.validateLogging()...)
	return errs
}

// validateBackend validates the BackendConfig
func (c *Config) validateBackend() []ValidationError {
	var errors []ValidationError

	parsed, err := url.Parse(c.Backend.BaseURL)
	switch {
	case c.Backend.BaseURL == "":
		errors = append(errors, ValidationError{
			Field:   "backend.base_url",
			Value:   c.Backend.BaseURL,
			Message: "must not be empty",
		})
	case err != nil:
		errors = append(errors, ValidationError{
			Field:   "backend.base_url",
			Value:   c.Backend.BaseURL,
			Message: "is not a valid URL",
		})
	case !slices.Contains([]string{"http", "https"}, parsed.Scheme):
		errors = append(errors, ValidationError{
			Field:   "backend.base_url",
			Value:   c.Backend.BaseURL,
			Message: "must use http or https",
		})
	case parsed.Host == "":
		errors = append(errors, ValidationError{
			Field:   "backend.base_url",
			Value:   c.Backend.BaseURL,
			Message: "must include a host",
		})
	}

	paths := []struct {
		field string
		value string
	}{
		{"backend.chat_path", c.Backend.ChatPath},
		{"backend.directory_path", c.Backend.DirectoryPath},
		{"backend.socket_path", c.Backend.SocketPath},
	}
	for _, p := range paths {
		if !strings.HasPrefix(p.value, "/") {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: "must be an absolute path starting with /",
			})
		}
	}

	return errors
}

// validateChannel validates the ChannelConfig
func (c *Config) validateChannel() []ValidationError {
	var errors []ValidationError

	events := []struct {
		field string
		value string
	}{
		{"channel.fragment_event", c.Channel.FragmentEvent},
		{"channel.trace_event", c.Channel.TraceEvent},
		{"channel.join_event", c.Channel.JoinEvent},
	}
	for _, e := range events {
		if !eventNameRegex.MatchString(e.value) {
			errors = append(errors, ValidationError{
				Field:   e.field,
				Value:   e.value,
				Message: "must start with a letter and contain only letters, digits, and _:.-",
			})
		}
	}
	if c.Channel.FragmentEvent != "" && c.Channel.FragmentEvent == c.Channel.TraceEvent {
		errors = append(errors, ValidationError{
			Field:   "channel.trace_event",
			Value:   c.Channel.TraceEvent,
			Message: "must differ from channel.fragment_event",
		})
	}

	const maxAttemptsLimit = 100
	if c.Channel.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "channel.max_attempts",
			Value:   c.Channel.MaxAttempts,
			Message: "must be at least 1",
		})
	}
	if c.Channel.MaxAttempts > maxAttemptsLimit {
		errors = append(errors, ValidationError{
			Field:   "channel.max_attempts",
			Value:   c.Channel.MaxAttempts,
			Message: fmt.Sprintf("exceeds maximum of %d", maxAttemptsLimit),
		})
	}

	if c.Channel.InitialBackoffMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "channel.initial_backoff_ms",
			Value:   c.Channel.InitialBackoffMs,
			Message: "must be non-negative",
		})
	}
	if c.Channel.MaxBackoffMs < c.Channel.InitialBackoffMs {
		errors = append(errors, ValidationError{
			Field:   "channel.max_backoff_ms",
			Value:   c.Channel.MaxBackoffMs,
			Message: "must be at least channel.initial_backoff_ms",
		})
	}

	if c.Channel.HandshakeTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "channel.handshake_timeout_seconds",
			Value:   c.Channel.HandshakeTimeoutSeconds,
			Message: "must be positive",
		})
	}
	if c.Channel.SubmitTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "channel.submit_timeout_seconds",
			Value:   c.Channel.SubmitTimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

// validateRoster validates the RosterConfig
func (c *Config) validateRoster() []ValidationError {
	var errors []ValidationError

	if c.Roster.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "roster.timeout_seconds",
			Value:   c.Roster.TimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

// validateSession validates the SessionConfig
func (c *Config) validateSession() []ValidationError {
	var errors []ValidationError

	if c.Session.ID != strings.TrimSpace(c.Session.ID) {
		errors = append(errors, ValidationError{
			Field:   "session.id",
			Value:   c.Session.ID,
			Message: "must not have leading or trailing whitespace",
		})
	}

	return errors
}

// validateTUI validates the TUIConfig
func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	// A theme that is not builtin is treated as a file path and checked when loaded.
	if c.TUI.Theme == "" {
		errors = append(errors, ValidationError{
			Field:   "tui.theme",
			Value:   c.TUI.Theme,
			Message: fmt.Sprintf("must be a file path or one of: %s", strings.Join(BuiltinThemes(), ", ")),
		})
	}

	// Must match tui.BoardMinWidth and tui.BoardMaxWidth.
	const minBoardWidth = 24
	const maxBoardWidth = 80
	if c.TUI.BoardWidth != 0 {
		if c.TUI.BoardWidth < minBoardWidth {
			errors = append(errors, ValidationError{
				Field:   "tui.board_width",
				Value:   c.TUI.BoardWidth,
				Message: fmt.Sprintf("must be at least %d columns", minBoardWidth),
			})
		}
		if c.TUI.BoardWidth > maxBoardWidth {
			errors = append(errors, ValidationError{
				Field:   "tui.board_width",
				Value:   c.TUI.BoardWidth,
				Message: fmt.Sprintf("exceeds maximum of %d columns", maxBoardWidth),
			})
		}
	}

	return errors
}

// validateWatch validates the WatchConfig
func (c *Config) validateWatch() []ValidationError {
	var errors []ValidationError

	for i, pattern := range c.Watch.Kinds {
		if _, err := trace.NewFilter([]string{pattern}); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("watch.kinds[%d]", i),
				Value:   pattern,
				Message: "is not a valid glob pattern",
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
