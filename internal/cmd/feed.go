package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Iron-Ham/agentboard/internal/event"
	"github.com/Iron-Ham/agentboard/internal/monitor"
	"github.com/Iron-Ham/agentboard/internal/trace"
	"github.com/Iron-Ham/agentboard/internal/transcript"
	"github.com/Iron-Ham/agentboard/internal/tui/styles"
	"github.com/Iron-Ham/agentboard/internal/util"
)

// feed queues bus events for a consumer goroutine. Bus handlers run on the
// channel and monitor goroutines, so push never blocks.
type feed struct {
	bus *event.Bus
	ids []string

	mu     sync.Mutex
	events []event.Event
	ready  chan struct{}
}

// newFeed subscribes to types on bus for the given session.
func newFeed(bus *event.Bus, sessionID string, types ...string) *feed {
	f := &feed{bus: bus, ready: make(chan struct{}, 1)}
	for _, t := range types {
		f.ids = append(f.ids, bus.Subscribe(t, func(e event.Event) {
			if eventSession(e) == sessionID {
				f.push(e)
			}
		}))
	}
	return f
}

func (f *feed) push(e event.Event) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()

	select {
	case f.ready <- struct{}{}:
	default:
	}
}

// Ready is signaled after events were queued.
func (f *feed) Ready() <-chan struct{} { return f.ready }

// drain returns and clears the queued events, oldest first.
func (f *feed) drain() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.events
	f.events = nil
	return events
}

func (f *feed) close() {
	for _, id := range f.ids {
		f.bus.Unsubscribe(id)
	}
}

// eventSession returns the session an event belongs to.
func eventSession(e event.Event) string {
	switch e := e.(type) {
	case event.FragmentReceivedEvent:
		return e.SessionID
	case event.ConnectionChangedEvent:
		return e.SessionID
	case event.RosterLoadedEvent:
		return e.SessionID
	case event.TurnStartedEvent:
		return e.SessionID
	case event.TurnFailedEvent:
		return e.SessionID
	case event.TraceAppendedEvent:
		return e.SessionID
	case event.BoardChangedEvent:
		return e.SessionID
	case event.AnomalyRecordedEvent:
		return e.SessionID
	default:
		return ""
	}
}

// feedTypes are the events the line printer understands.
func feedTypes(fragments bool) []string {
	types := []string{
		event.TypeConnectionChanged,
		event.TypeRosterLoaded,
		event.TypeTurnStarted,
		event.TypeTurnFailed,
		event.TypeTraceAppended,
		event.TypeBoardChanged,
		event.TypeAnomalyRecorded,
	}
	if fragments {
		types = append(types, event.TypeFragmentReceived)
	}
	return types
}

// snapshotter is the part of the monitor the printer reads board rows from.
type snapshotter interface {
	Snapshot() monitor.Snapshot
}

// linePrinter renders session events as plain text lines. Fragments are
// written inline so the assistant's answer reads as it streams.
type linePrinter struct {
	w      io.Writer
	mon    snapshotter
	filter *trace.Filter

	midLine bool
}

// Print writes one event. It must not be called from a bus handler.
func (p *linePrinter) Print(e event.Event) {
	switch e := e.(type) {
	case event.FragmentReceivedEvent:
		if !p.midLine {
			p.write("< ")
		}
		p.write(e.Content)
		p.midLine = !strings.HasSuffix(e.Content, "\n")

	case event.ConnectionChangedEvent:
		if e.Err != nil {
			p.line("* %s: %v", e.State, e.Err)
		} else {
			p.line("* %s", e.State)
		}

	case event.RosterLoadedEvent:
		p.line("* roster: %d agents", e.Agents)

	case event.TurnStartedEvent:
		p.line("> %s", util.OneLine(e.Text))

	case event.TurnFailedEvent:
		p.line("! %s (%s)", transcript.FailureText, e.Reason)

	case event.TraceAppendedEvent:
		kind := trace.ParseKind(e.Kind)
		if !p.filter.Match(trace.Event{Kind: kind, Summary: e.Summary}) {
			return
		}
		if summary := util.OneLine(e.Summary); summary != "" {
			p.line("  [%s] %s", kind.Label(), summary)
		} else {
			p.line("  [%s]", kind.Label())
		}

	case event.BoardChangedEvent:
		board := p.mon.Snapshot().Board
		for _, id := range e.AgentIDs {
			a, ok := board.Find(id)
			if !ok {
				continue
			}
			row := fmt.Sprintf("  %s %s %s", styles.StatusIcon(a.Status), a.Agent.Name, a.Status)
			if a.Summary != "" {
				row += ": " + util.OneLine(a.Summary)
			}
			p.line("%s", row)
		}

	case event.AnomalyRecordedEvent:
		p.line("! dropped %s: %s", e.Kind, e.Detail)
	}
}

func (p *linePrinter) line(format string, args ...any) {
	if p.midLine {
		p.write("\n")
		p.midLine = false
	}
	p.write(fmt.Sprintf(format, args...) + "\n")
}

func (p *linePrinter) write(s string) {
	_, _ = io.WriteString(p.w, s)
}

// Finish terminates a streamed answer that did not end in a newline.
func (p *linePrinter) Finish() {
	if p.midLine {
		p.write("\n")
		p.midLine = false
	}
}
