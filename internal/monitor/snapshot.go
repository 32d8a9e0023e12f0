package monitor

import (
	"github.com/Iron-Ham/agentboard/internal/errors"
	"github.com/Iron-Ham/agentboard/internal/roster"
	"github.com/Iron-Ham/agentboard/internal/session"
	"github.com/Iron-Ham/agentboard/internal/status"
	"github.com/Iron-Ham/agentboard/internal/trace"
	"github.com/Iron-Ham/agentboard/internal/transcript"
)

// Snapshot is a point-in-time copy of the monitor's state. It shares nothing
// with the monitor.
type Snapshot struct {
	SessionID string
	State     session.State
	// LastError is the cause of the most recent failed connection state, and
	// is cleared once connected again.
	LastError error

	Roster       roster.Roster
	RosterLoaded bool
	Board        status.Board

	Messages []transcript.Message
	Traces   []trace.Event
	Turn     int

	// Streaming is true while an assistant message is open. The backend sends
	// no completion signal, so it stays true until the next turn starts.
	Streaming bool
	// Submitting is true while a submission awaits its acknowledgement.
	Submitting bool

	Anomalies []*errors.StreamAnomaly
}

// Snapshot returns a copy of the current state. After Close it returns the
// final state.
func (m *Monitor) Snapshot() Snapshot {
	var snap Snapshot
	if err := m.call(func() { snap = m.snapshot() }); err != nil {
		// The loop has exited; nothing mutates the state any more.
		<-m.done
		return m.snapshot()
	}
	return snap
}

func (m *Monitor) snapshot() Snapshot {
	return Snapshot{
		SessionID:    m.sessionID,
		State:        m.state,
		LastError:    m.lastErr,
		Roster:       m.roster,
		RosterLoaded: m.loaded,
		Board:        m.board.Clone(),
		Messages:     m.agg.Messages(),
		Traces:       m.traces.All(),
		Turn:         m.agg.Turn(),
		Streaming:    m.agg.HasOpenTurn(),
		Submitting:   m.submitting > 0,
		Anomalies:    m.agg.Anomalies(),
	}
}

// ActiveAgent returns the first active agent on the board.
func (s Snapshot) ActiveAgent() (status.AgentStatus, bool) {
	active := s.Board.Active()
	if len(active) == 0 {
		return status.AgentStatus{}, false
	}
	return active[0], true
}

// LastMessage returns the newest transcript entry.
func (s Snapshot) LastMessage() (transcript.Message, bool) {
	if len(s.Messages) == 0 {
		return transcript.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
