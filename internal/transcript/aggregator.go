// Package transcript assembles the conversation from user submissions and
// streamed assistant fragments.
package transcript

import (
	"github.com/Iron-Ham/agentboard/internal/errors"
	"github.com/Iron-Ham/agentboard/internal/trace"
)

// FailureText replaces the assistant message of a turn whose submission failed.
const FailureText = "Sorry, there was an error processing your request."

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Open is true only for the assistant
// message currently receiving fragments.
type Message struct {
	Role   Role
	Text   string
	Open   bool
	Failed bool
}

// Aggregator owns the transcript and the current turn's trace log. At most
// one assistant message is open at a time. It is not safe for concurrent use.
type Aggregator struct {
	messages  []Message
	open      int // index of the open assistant message, -1 when none
	turn      int
	traces    *trace.Store
	anomalies []*errors.StreamAnomaly
}

// NewAggregator returns an empty Aggregator that clears traces on every new
// turn.
func NewAggregator(traces *trace.Store) *Aggregator {
	if traces == nil {
		traces = trace.NewStore()
	}
	return &Aggregator{open: -1, traces: traces}
}

// StartTurn records the user's message, opens an empty assistant placeholder
// and clears the trace log. A message still open from the previous turn is
// closed as-is. It returns the new turn's number, starting at 1.
func (a *Aggregator) StartTurn(userText string) int {
	if a.open >= 0 {
		a.messages[a.open].Open = false
	}
	a.messages = append(a.messages,
		Message{Role: RoleUser, Text: userText},
		Message{Role: RoleAssistant, Open: true},
	)
	a.open = len(a.messages) - 1
	a.turn++
	a.traces.Clear()
	return a.turn
}

// Turn returns the number of the current turn, 0 before the first.
func (a *Aggregator) Turn() int { return a.turn }

// AppendFragment appends text to the open assistant message. With no open
// message the fragment is dropped, an anomaly is recorded and false is
// returned.
func (a *Aggregator) AppendFragment(text string) bool {
	if a.open < 0 {
		a.record(errors.NewStreamAnomaly(errors.AnomalyFragment, text))
		return false
	}
	a.messages[a.open].Text += text
	return true
}

// FailTurn replaces the open assistant message with FailureText and closes
// it. reason is kept only for the anomaly when there is nothing to fail.
func (a *Aggregator) FailTurn(reason string) bool {
	if a.open < 0 {
		a.record(errors.NewStreamAnomaly(errors.AnomalyFailTurn, reason))
		return false
	}
	msg := &a.messages[a.open]
	msg.Text = FailureText
	msg.Open = false
	msg.Failed = true
	a.open = -1
	return true
}

// RecordAnomaly stores an anomaly detected outside the aggregator, such as a
// trace arriving before any turn started.
func (a *Aggregator) RecordAnomaly(anomaly *errors.StreamAnomaly) {
	a.record(anomaly)
}

func (a *Aggregator) record(anomaly *errors.StreamAnomaly) {
	a.anomalies = append(a.anomalies, anomaly)
}

// HasOpenTurn reports whether an assistant message is receiving fragments.
func (a *Aggregator) HasOpenTurn() bool { return a.open >= 0 }

// Open returns the open assistant message.
func (a *Aggregator) Open() (Message, bool) {
	if a.open < 0 {
		return Message{}, false
	}
	return a.messages[a.open], true
}

// Messages returns a copy of the transcript.
func (a *Aggregator) Messages() []Message {
	out := make([]Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// Len returns the number of messages.
func (a *Aggregator) Len() int { return len(a.messages) }

// Anomalies returns a copy of the recorded anomalies, oldest first.
func (a *Aggregator) Anomalies() []*errors.StreamAnomaly {
	out := make([]*errors.StreamAnomaly, len(a.anomalies))
	copy(out, a.anomalies)
	return out
}
