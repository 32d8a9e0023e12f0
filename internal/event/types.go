// Package event defines event types for decoupling components in agentboard.
// These events let the session channel, the orchestration monitor and the
// terminal view communicate without direct dependencies.
package event

import (
	"encoding/json"
	"time"

	"github.com/Iron-Ham/agentboard/internal/session"
)

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "fragment.received", "board.changed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeFragmentReceived  = "fragment.received"
	TypeTraceReceived     = "trace.received"
	TypeConnectionChanged = "connection.changed"

	TypeRosterLoaded      = "roster.loaded"
	TypeTurnStarted       = "turn.started"
	TypeTurnFailed        = "turn.failed"
	TypeTranscriptUpdated = "transcript.updated"
	TypeTraceAppended     = "trace.appended"
	TypeBoardChanged      = "board.changed"
	TypeAnomalyRecorded   = "anomaly.recorded"
)

// MonitorTypes returns the event types the monitor publishes about its
// derived state, in no particular order.
func MonitorTypes() []string {
	return []string{
		TypeRosterLoaded,
		TypeTurnStarted,
		TypeTurnFailed,
		TypeTranscriptUpdated,
		TypeTraceAppended,
		TypeBoardChanged,
		TypeAnomalyRecorded,
	}
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Channel Events
// -----------------------------------------------------------------------------

// FragmentReceivedEvent carries one streamed piece of assistant text.
type FragmentReceivedEvent struct {
	baseEvent
	SessionID string
	Content   string
}

// NewFragmentReceivedEvent creates a FragmentReceivedEvent.
func NewFragmentReceivedEvent(sessionID, content string) FragmentReceivedEvent {
	return FragmentReceivedEvent{
		baseEvent: newBaseEvent(TypeFragmentReceived),
		SessionID: sessionID,
		Content:   content,
	}
}

// TraceReceivedEvent carries one undecoded trace payload.
type TraceReceivedEvent struct {
	baseEvent
	SessionID string
	Payload   json.RawMessage
}

// NewTraceReceivedEvent creates a TraceReceivedEvent.
func NewTraceReceivedEvent(sessionID string, payload json.RawMessage) TraceReceivedEvent {
	return TraceReceivedEvent{
		baseEvent: newBaseEvent(TypeTraceReceived),
		SessionID: sessionID,
		Payload:   payload,
	}
}

// ConnectionChangedEvent is emitted on every session state transition.
// Err is set for transitions caused by a failure.
type ConnectionChangedEvent struct {
	baseEvent
	SessionID string
	State     session.State
	Err       error
}

// NewConnectionChangedEvent creates a ConnectionChangedEvent.
func NewConnectionChangedEvent(sessionID string, state session.State, err error) ConnectionChangedEvent {
	return ConnectionChangedEvent{
		baseEvent: newBaseEvent(TypeConnectionChanged),
		SessionID: sessionID,
		State:     state,
		Err:       err,
	}
}

// -----------------------------------------------------------------------------
// Monitor Events
// -----------------------------------------------------------------------------

// RosterLoadedEvent is emitted once the roster fetch finishes. Agents is zero
// when the fetch failed.
type RosterLoadedEvent struct {
	baseEvent
	SessionID string
	Agents    int
}

// NewRosterLoadedEvent creates a RosterLoadedEvent.
func NewRosterLoadedEvent(sessionID string, agents int) RosterLoadedEvent {
	return RosterLoadedEvent{
		baseEvent: newBaseEvent(TypeRosterLoaded),
		SessionID: sessionID,
		Agents:    agents,
	}
}

// TurnStartedEvent is emitted when the user submits a new turn.
type TurnStartedEvent struct {
	baseEvent
	SessionID string
	Text      string
}

// NewTurnStartedEvent creates a TurnStartedEvent.
func NewTurnStartedEvent(sessionID, text string) TurnStartedEvent {
	return TurnStartedEvent{
		baseEvent: newBaseEvent(TypeTurnStarted),
		SessionID: sessionID,
		Text:      text,
	}
}

// TurnFailedEvent is emitted when a turn submission is rejected.
type TurnFailedEvent struct {
	baseEvent
	SessionID string
	Reason    string
}

// NewTurnFailedEvent creates a TurnFailedEvent.
func NewTurnFailedEvent(sessionID, reason string) TurnFailedEvent {
	return TurnFailedEvent{
		baseEvent: newBaseEvent(TypeTurnFailed),
		SessionID: sessionID,
		Reason:    reason,
	}
}

// TranscriptUpdatedEvent is emitted whenever the transcript changes.
type TranscriptUpdatedEvent struct {
	baseEvent
	SessionID string
	Messages  int
}

// NewTranscriptUpdatedEvent creates a TranscriptUpdatedEvent.
func NewTranscriptUpdatedEvent(sessionID string, messages int) TranscriptUpdatedEvent {
	return TranscriptUpdatedEvent{
		baseEvent: newBaseEvent(TypeTranscriptUpdated),
		SessionID: sessionID,
		Messages:  messages,
	}
}

// TraceAppendedEvent is emitted after a trace joins the current turn's log.
type TraceAppendedEvent struct {
	baseEvent
	SessionID string
	Kind      string
	Summary   string
	Count     int
}

// NewTraceAppendedEvent creates a TraceAppendedEvent.
func NewTraceAppendedEvent(sessionID, kind, summary string, count int) TraceAppendedEvent {
	return TraceAppendedEvent{
		baseEvent: newBaseEvent(TypeTraceAppended),
		SessionID: sessionID,
		Kind:      kind,
		Summary:   summary,
		Count:     count,
	}
}

// BoardChangedEvent is emitted only when at least one agent's derived status
// or summary actually changed.
type BoardChangedEvent struct {
	baseEvent
	SessionID string
	AgentIDs  []string
}

// NewBoardChangedEvent creates a BoardChangedEvent.
func NewBoardChangedEvent(sessionID string, agentIDs []string) BoardChangedEvent {
	return BoardChangedEvent{
		baseEvent: newBaseEvent(TypeBoardChanged),
		SessionID: sessionID,
		AgentIDs:  agentIDs,
	}
}

// AnomalyRecordedEvent is emitted when an inbound event was dropped.
type AnomalyRecordedEvent struct {
	baseEvent
	SessionID string
	Kind      string
	Detail    string
}

// NewAnomalyRecordedEvent creates an AnomalyRecordedEvent.
func NewAnomalyRecordedEvent(sessionID, kind, detail string) AnomalyRecordedEvent {
	return AnomalyRecordedEvent{
		baseEvent: newBaseEvent(TypeAnomalyRecorded),
		SessionID: sessionID,
		Kind:      kind,
		Detail:    detail,
	}
}
