// Package errors defines agentboard's error taxonomy and the helpers used to
// classify errors as they cross package boundaries.
//
// # Error Types
//
// Monitor failures:
//   - ConnectionError: the session channel could not connect, or lost its connection
//   - SubmitError: a turn submission failed (transport error or non-2xx answer)
//   - StreamAnomaly: a fragment or trace arrived with no open turn to receive it
//
// Semantic errors:
//   - ValidationError: rejected input or configuration
//   - TimeoutError: a handshake or submission ran past its deadline
//
// # Usage
//
//	err := errors.NewConnectionError("dial failed", cause).WithSessionID("session_1").WithAttempts(5)
//
//	var connErr *errors.ConnectionError
//	if errors.As(err, &connErr) { ... }
//
//	logger.Log(errors.GetSeverity(err).LogLevel(), "submit failed", "error", err)
//
// A StreamAnomaly is an error so it can go through the same helpers, but the
// monitor records anomalies instead of returning them.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-exported so callers need only this package.
var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)

// Severity ranks how much attention an error deserves.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// LogLevel maps the severity onto the logging package's level names.
// Critical errors log at ERROR.
func (s Severity) LogLevel() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARN"
	default:
		return "ERROR"
	}
}

var (
	// ErrRetriesExhausted means the bounded connection policy gave up.
	ErrRetriesExhausted = New("connection retries exhausted")
	// ErrHandshakeFailed means the socket handshake was rejected or malformed.
	ErrHandshakeFailed = New("socket handshake failed")
	// ErrSessionErrored means the session must be reopened before use.
	ErrSessionErrored = New("session is errored")
	// ErrSessionClosed means the session was closed by the client.
	ErrSessionClosed = New("session is closed")

	// ErrNonSuccessStatus means the backend answered a submission with a non-2xx status.
	ErrNonSuccessStatus = New("non-success status")
	// ErrEmptyMessage means a blank message was submitted.
	ErrEmptyMessage = New("message is empty")

	// ErrNoOpenTurn means a stream event arrived with no open assistant message.
	ErrNoOpenTurn = New("no open turn")

	// ErrTimeout matches every TimeoutError.
	ErrTimeout = New("operation timed out")
)

// AgentboardError is implemented by every error type in this package.
type AgentboardError interface {
	error

	// Severity ranks the error for logging.
	Severity() Severity

	// IsRetryable reports whether repeating the operation may succeed.
	IsRetryable() bool
}

type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) Is(target error) bool {
	return e.cause != nil && errors.Is(e.cause, target)
}

func (e *baseError) Severity() Severity { return e.severity }

func (e *baseError) IsRetryable() bool { return e.retryable }

// formatPrefix renders "kind [k=v, ...]".
func formatPrefix(kind string, parts []string) string {
	if len(parts) == 0 {
		return kind
	}
	return fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
}

// ConnectionError is a failure of the session channel transport. It stays
// retryable while the open-time policy has attempts left; once the session
// is errored the channel marks it non-retryable.
type ConnectionError struct {
	baseError
	SessionID string
	Attempts  int
}

// NewConnectionError creates a retryable ConnectionError of SeverityError.
func NewConnectionError(message string, cause error) *ConnectionError {
	return &ConnectionError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityError,
			retryable: true,
		},
	}
}

// WithSessionID records the session the connection belonged to.
func (e *ConnectionError) WithSessionID(id string) *ConnectionError {
	e.SessionID = id
	return e
}

// WithAttempts records how many connection attempts were made.
func (e *ConnectionError) WithAttempts(n int) *ConnectionError {
	e.Attempts = n
	return e
}

// WithRetryable overrides whether the error is retryable.
func (e *ConnectionError) WithRetryable(r bool) *ConnectionError {
	e.retryable = r
	return e
}

// WithSeverity overrides the error severity.
func (e *ConnectionError) WithSeverity(s Severity) *ConnectionError {
	e.severity = s
	return e
}

func (e *ConnectionError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, "session="+e.SessionID)
	}
	if e.Attempts > 0 {
		parts = append(parts, fmt.Sprintf("attempts=%d", e.Attempts))
	}
	prefix := formatPrefix("connection error", parts)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

func (e *ConnectionError) Is(target error) bool {
	if _, ok := target.(*ConnectionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// SubmitError is a failed turn submission. Submissions are never retried;
// sending again is the user's call.
//
//	err := errors.NewSubmitError(errors.ErrNonSuccessStatus).WithStatusCode(502)
//	err.Reason() // "HTTP error! status: 502"
type SubmitError struct {
	baseError
	SessionID  string
	StatusCode int
}

// NewSubmitError wraps the transport cause of a failed submission.
func NewSubmitError(cause error) *SubmitError {
	severity := SeverityError
	var abErr AgentboardError
	if As(cause, &abErr) {
		severity = abErr.Severity()
	}
	return &SubmitError{
		baseError: baseError{
			message:  "failed to submit message",
			cause:    cause,
			severity: severity,
		},
	}
}

// WithStatusCode records a non-2xx HTTP status.
func (e *SubmitError) WithStatusCode(code int) *SubmitError {
	e.StatusCode = code
	e.message = fmt.Sprintf("HTTP error! status: %d", code)
	return e
}

// WithSessionID records the session the turn was sent to.
func (e *SubmitError) WithSessionID(id string) *SubmitError {
	e.SessionID = id
	return e
}

// Reason is the failure text recorded on the synthetic error trace.
func (e *SubmitError) Reason() string {
	if e.StatusCode != 0 || e.cause == nil {
		return e.message
	}
	return e.cause.Error()
}

func (e *SubmitError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, "session="+e.SessionID)
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	prefix := formatPrefix("submit error", parts)
	if e.StatusCode == 0 && e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

func (e *SubmitError) Is(target error) bool {
	if _, ok := target.(*SubmitError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AnomalyKind names which inbound stream event was dropped.
type AnomalyKind string

const (
	AnomalyFragment AnomalyKind = "fragment"
	AnomalyFailTurn AnomalyKind = "fail_turn"
	AnomalyTrace    AnomalyKind = "trace"
)

// StreamAnomaly records an inbound event that could not be applied to the
// current turn.
type StreamAnomaly struct {
	baseError
	Kind   AnomalyKind
	Detail string
	At     time.Time
}

// NewStreamAnomaly creates a StreamAnomaly stamped with the current time.
func NewStreamAnomaly(kind AnomalyKind, detail string) *StreamAnomaly {
	return &StreamAnomaly{
		baseError: baseError{
			message:  fmt.Sprintf("%s dropped", kind),
			cause:    ErrNoOpenTurn,
			severity: SeverityWarning,
		},
		Kind:   kind,
		Detail: detail,
		At:     time.Now(),
	}
}

func (e *StreamAnomaly) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("stream anomaly: %s: %v", e.message, e.cause)
	}
	return fmt.Sprintf("stream anomaly: %s (%q): %v", e.message, e.Detail, e.cause)
}

func (e *StreamAnomaly) Is(target error) bool {
	if _, ok := target.(*StreamAnomaly); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError is rejected input, such as a blank message or an invalid
// retry policy.
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a ValidationError of SeverityWarning.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			severity: SeverityWarning,
		},
	}
}

// WithField names the rejected field.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue records the rejected value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause attaches a sentinel or underlying error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, "field="+e.Field)
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	prefix := formatPrefix("validation error", parts)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError is an operation that ran past its deadline. It is retryable
// and logged as a warning.
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a TimeoutError for operation bounded by duration.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:   "operation timed out",
			severity:  SeverityWarning,
			retryable: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause attaches the underlying deadline error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("%s timed out after %s", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if target == ErrTimeout {
		return true
	}
	return e.baseError.Is(target)
}

// IsRetryable reports whether err is transient. Errors from outside this
// package are retryable only if they wrap ErrTimeout.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var abErr AgentboardError
	if As(err, &abErr) {
		return abErr.IsRetryable()
	}
	return Is(err, ErrTimeout)
}

// GetSeverity returns the severity of the outermost AgentboardError in err's
// chain, SeverityError for other errors and SeverityDebug for nil.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var abErr AgentboardError
	if As(err, &abErr) {
		return abErr.Severity()
	}
	return SeverityError
}
