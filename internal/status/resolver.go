// Package status derives the per-agent status board from the current turn's
// trace log.
//
// The derivation is driven entirely by the most recent trace. A trace that
// carries a caller chain describes who holds control: the leaf is active, its
// ancestors have completed, and everyone else is waiting. A trace without a
// chain (pre-processing, for example) only tells us the manager is working,
// so the manager is forced active and every other agent keeps the status it
// had before.
package status

import (
	"github.com/Iron-Ham/agentboard/internal/roster"
	"github.com/Iron-Ham/agentboard/internal/trace"
)

// Status is an agent's derived activity state.
type Status string

const (
	Waiting   Status = "waiting"
	Active    Status = "active"
	Completed Status = "completed"
)

// AgentStatus is one row of the board.
type AgentStatus struct {
	Agent   roster.Agent
	Status  Status
	Summary string
}

// Board holds one AgentStatus per roster agent, in roster order.
type Board []AgentStatus

// Change records an agent whose derived value differs from the previous board.
type Change struct {
	AgentID     string
	From, To    Status
	Summary     string
	PrevSummary string
}

// Initial returns a board with every agent waiting.
func Initial(r roster.Roster) Board {
	b := make(Board, r.Len())
	for i := range b {
		b[i] = AgentStatus{Agent: r.At(i), Status: Waiting}
	}
	return b
}

// Resolve computes the board for traces, using prev only where the most
// recent trace carries no caller chain. It never mutates its inputs. The
// returned changes list, in roster order, only the agents whose status or
// summary differ from prev.
func Resolve(r roster.Roster, traces []trace.Event, prev Board) (Board, []Change) {
	if !prev.matches(r) {
		prev = Initial(r)
	}

	next := make(Board, len(prev))
	copy(next, prev)

	switch {
	case len(traces) == 0:
		for i := range next {
			next[i].Status, next[i].Summary = Waiting, ""
		}
	case traces[len(traces)-1].HasCallerChain():
		applyChain(next, traces[len(traces)-1])
	default:
		last := traces[len(traces)-1]
		for i := range next {
			if next[i].Agent.Role == roster.RoleManager {
				next[i].Status, next[i].Summary = Active, last.Summary
			}
		}
	}

	return next, Diff(prev, next)
}

func applyChain(b Board, last trace.Event) {
	ids := last.ChainIDs()
	leaf := len(ids) - 1

	// A ref without an id names no agent, not an agent whose id is empty.
	first := make(map[string]int, len(ids))
	for i, id := range ids {
		if id == "" {
			continue
		}
		if _, seen := first[id]; !seen {
			first[id] = i
		}
	}

	for i := range b {
		idx, ok := first[b[i].Agent.ID]
		switch {
		case !ok:
			b[i].Status, b[i].Summary = Waiting, ""
		case idx == leaf:
			b[i].Status, b[i].Summary = Active, last.Summary
		default:
			b[i].Status, b[i].Summary = Completed, ""
		}
	}
}

// Diff lists the agents whose status or summary differ between two boards
// built from the same roster.
func Diff(prev, next Board) []Change {
	var changes []Change
	for i := range next {
		if i < len(prev) && prev[i].Status == next[i].Status && prev[i].Summary == next[i].Summary {
			continue
		}
		c := Change{AgentID: next[i].Agent.ID, To: next[i].Status, Summary: next[i].Summary}
		if i < len(prev) {
			c.From, c.PrevSummary = prev[i].Status, prev[i].Summary
		}
		changes = append(changes, c)
	}
	return changes
}

// matches reports whether b was built from r.
func (b Board) matches(r roster.Roster) bool {
	if len(b) != r.Len() {
		return false
	}
	for i := range b {
		if b[i].Agent.ID != r.At(i).ID {
			return false
		}
	}
	return true
}

// Find returns the row for an agent id.
func (b Board) Find(id string) (AgentStatus, bool) {
	for _, s := range b {
		if s.Agent.ID == id {
			return s, true
		}
	}
	return AgentStatus{}, false
}

// Clone returns an independent copy of b.
func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	out := make(Board, len(b))
	copy(out, b)
	return out
}

// Active returns the rows currently active.
func (b Board) Active() []AgentStatus {
	var out []AgentStatus
	for _, s := range b {
		if s.Status == Active {
			out = append(out, s)
		}
	}
	return out
}
