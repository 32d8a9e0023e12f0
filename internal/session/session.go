// Package session defines the identity and connection state of one
// conversation with the orchestration backend.
package session

import (
	"fmt"
	"strings"
	"time"
)

// State is the connection state of a session's live channel.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateErrored      State = "errored"
)

// String implements fmt.Stringer.
func (s State) String() string { return string(s) }

// AcceptsSubmissions reports whether a turn may be submitted in this state.
// Only an errored session refuses; a transient disconnect still lets the
// acknowledgement round trip happen over HTTP.
func (s State) AcceptsSubmissions() bool { return s != StateErrored }

// idPrefix matches the identifiers the web client generates.
const idPrefix = "session_"

// NewID returns a session identifier of the form session_<unix millis>.
func NewID(now time.Time) string {
	return fmt.Sprintf("%s%d", idPrefix, now.UnixMilli())
}

// NormalizeID trims whitespace and falls back to a fresh identifier when id
// is empty.
func NormalizeID(id string, now time.Time) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return NewID(now)
	}
	return id
}
