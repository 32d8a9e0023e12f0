package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/agentboard/internal/errors"
	"github.com/Iron-Ham/agentboard/internal/event"
	"github.com/Iron-Ham/agentboard/internal/logging"
	"github.com/Iron-Ham/agentboard/internal/roster"
	"github.com/Iron-Ham/agentboard/internal/session"
	"github.com/Iron-Ham/agentboard/internal/status"
	"github.com/Iron-Ham/agentboard/internal/trace"
	"github.com/Iron-Ham/agentboard/internal/transcript"
)

const testSession = "session_1700000000000"

// fakeTransport stands in for the socket channel. Inbound events are pushed
// with the helper methods and delivered synchronously through the bus, the
// same way the real reader goroutine delivers them.
type fakeTransport struct {
	bus *event.Bus

	mu        sync.Mutex
	sessionID string
	state     session.State
	openErr   error
	submitErr map[string]error
	gates     map[string]chan struct{}
	entered   chan string
	submitted []string
}

func newFakeTransport(bus *event.Bus) *fakeTransport {
	return &fakeTransport{
		bus:       bus,
		state:     session.StateDisconnected,
		submitErr: make(map[string]error),
		gates:     make(map[string]chan struct{}),
		entered:   make(chan string, 8),
	}
}

func (f *fakeTransport) setState(s session.State, err error) {
	f.mu.Lock()
	f.state = s
	id := f.sessionID
	f.mu.Unlock()
	f.bus.Publish(event.NewConnectionChangedEvent(id, s, err))
}

func (f *fakeTransport) Open(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	f.sessionID = sessionID
	openErr := f.openErr
	f.mu.Unlock()

	f.setState(session.StateConnecting, nil)
	if openErr != nil {
		f.setState(session.StateErrored, openErr)
		return openErr
	}
	f.setState(session.StateConnected, nil)
	return nil
}

func (f *fakeTransport) Submit(ctx context.Context, text string) error {
	f.mu.Lock()
	f.submitted = append(f.submitted, text)
	gate := f.gates[text]
	err := f.submitErr[text]
	f.mu.Unlock()

	if gate != nil {
		f.entered <- text
		<-gate
	}
	return err
}

func (f *fakeTransport) Close() error {
	f.setState(session.StateDisconnected, nil)
	return nil
}

func (f *fakeTransport) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) fragment(text string) {
	f.bus.Publish(event.NewFragmentReceivedEvent(testSession, text))
}

func (f *fakeTransport) trace(t *testing.T, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal trace: %v", err)
	}
	f.bus.Publish(event.NewTraceReceivedEvent(testSession, raw))
}

type staticRoster struct{ r roster.Roster }

func (s staticRoster) Fetch(context.Context) roster.Roster { return s.r }

func testRoster() roster.Roster {
	r, _ := roster.Build(roster.Directory{
		Manager: &roster.Descriptor{ID: "manager", Name: "Manager"},
		Collaborators: []roster.Descriptor{
			{ID: "support", Name: "Support"},
			{ID: "orders", Name: "Orders"},
			{ID: "catalog", Name: "Catalog"},
		},
	})
	return r
}

func chainPayload(summary string, ids ...string) map[string]any {
	chain := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		chain = append(chain, map[string]string{"agentId": id})
	}
	return map[string]any{"type": "ORCHESTRATION", "summary": summary, "callerChain": chain}
}

type harness struct {
	t         *testing.T
	bus       *event.Bus
	transport *fakeTransport
	monitor   *Monitor

	mu     sync.Mutex
	counts map[string]int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bus := event.NewBus()
	h := &harness{
		t:         t,
		bus:       bus,
		transport: newFakeTransport(bus),
		counts:    make(map[string]int),
	}
	bus.SubscribeAll(func(e event.Event) {
		h.mu.Lock()
		h.counts[e.EventType()]++
		h.mu.Unlock()
	})
	h.monitor = New(testSession, h.transport, staticRoster{testRoster()}, bus)
	t.Cleanup(func() { _ = h.monitor.Close() })
	return h
}

func (h *harness) start() {
	h.t.Helper()
	if err := h.monitor.Start(context.Background()); err != nil {
		h.t.Fatalf("Start() error = %v", err)
	}
	select {
	case <-h.monitor.RosterLoaded():
	case <-time.After(5 * time.Second):
		h.t.Fatal("roster never loaded")
	}
}

func (h *harness) count(eventType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[eventType]
}

func boardStatuses(b status.Board) map[string]status.Status {
	out := make(map[string]status.Status, len(b))
	for _, s := range b {
		out[s.Agent.ID] = s.Status
	}
	return out
}

func boardOrder(b status.Board) []string {
	out := make([]string, len(b))
	for i, s := range b {
		out[i] = s.Agent.ID
	}
	return out
}

func TestStart(t *testing.T) {
	h := newHarness(t)
	h.start()

	snap := h.monitor.Snapshot()
	if snap.State != session.StateConnected {
		t.Errorf("State = %s, want connected", snap.State)
	}
	if !snap.RosterLoaded || snap.Roster.Len() != 4 {
		t.Errorf("roster not loaded: %+v", snap.Roster)
	}
	if got := boardOrder(snap.Board); len(got) != 4 || got[0] != "manager" || got[1] != "catalog" {
		t.Errorf("board order = %v", got)
	}
	for id, s := range boardStatuses(snap.Board) {
		if s != status.Waiting {
			t.Errorf("%s = %s, want waiting", id, s)
		}
	}
	if h.count(event.TypeRosterLoaded) != 1 {
		t.Errorf("roster.loaded published %d times", h.count(event.TypeRosterLoaded))
	}
}

func TestMonitor_StreamedAnswer(t *testing.T) {
	h := newHarness(t)
	h.start()

	if err := h.monitor.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	h.transport.fragment("Hel")
	h.transport.fragment("lo!")

	snap := h.monitor.Snapshot()
	want := []transcript.Message{
		{Role: transcript.RoleUser, Text: "hi"},
		{Role: transcript.RoleAssistant, Text: "Hello!", Open: true},
	}
	if len(snap.Messages) != len(want) {
		t.Fatalf("messages = %+v", snap.Messages)
	}
	for i := range want {
		if snap.Messages[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, snap.Messages[i], want[i])
		}
	}
	for id, s := range boardStatuses(snap.Board) {
		if s != status.Waiting {
			t.Errorf("%s = %s, want waiting", id, s)
		}
	}
	if !snap.Streaming || snap.Submitting {
		t.Errorf("Streaming = %v, Submitting = %v", snap.Streaming, snap.Submitting)
	}
	if len(snap.Traces) != 0 {
		t.Errorf("unexpected traces: %+v", snap.Traces)
	}
	if h.count(event.TypeBoardChanged) != 0 {
		t.Errorf("board.changed published %d times without any trace", h.count(event.TypeBoardChanged))
	}
}

func TestMonitor_SubmitFailure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantReason string
	}{
		{
			name:       "network failure",
			err:        errors.New("dial tcp 127.0.0.1:3000: connect: connection refused"),
			wantReason: "dial tcp 127.0.0.1:3000: connect: connection refused",
		},
		{
			name:       "non-2xx",
			err:        errors.NewSubmitError(errors.ErrNonSuccessStatus).WithStatusCode(500),
			wantReason: "HTTP error! status: 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.start()
			h.transport.submitErr["hi"] = tt.err

			err := h.monitor.Submit(context.Background(), "hi")
			var submitErr *errors.SubmitError
			if !errors.As(err, &submitErr) {
				t.Fatalf("expected SubmitError, got %T: %v", err, err)
			}

			snap := h.monitor.Snapshot()
			last, _ := snap.LastMessage()
			if last.Role != transcript.RoleAssistant || last.Text != transcript.FailureText || last.Open {
				t.Errorf("last message = %+v", last)
			}
			if len(snap.Traces) != 1 {
				t.Fatalf("expected exactly one trace, got %+v", snap.Traces)
			}
			tr := snap.Traces[0]
			if tr.Kind != trace.KindError || tr.FailureReason != tt.wantReason || tr.Summary != trace.ErrorSummary {
				t.Errorf("error trace = %+v", tr)
			}
			if snap.Streaming || snap.Submitting {
				t.Errorf("Streaming = %v, Submitting = %v", snap.Streaming, snap.Submitting)
			}
			if h.count(event.TypeTurnFailed) != 1 {
				t.Errorf("turn.failed published %d times", h.count(event.TypeTurnFailed))
			}
			if len(h.transport.submitted) != 1 {
				t.Errorf("submission retried: %v", h.transport.submitted)
			}
		})
	}
}

func TestMonitor_CallerChainHandOff(t *testing.T) {
	h := newHarness(t)
	h.start()
	if err := h.monitor.Submit(context.Background(), "where is order 42?"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	h.transport.trace(t, chainPayload("Routing request", "manager"))
	snap := h.monitor.Snapshot()
	if s, _ := snap.Board.Find("manager"); s.Status != status.Active || s.Summary != "Routing request" {
		t.Errorf("after first trace manager = %+v", s)
	}

	h.transport.trace(t, chainPayload("Looking up order 42", "manager", "orders"))
	snap = h.monitor.Snapshot()

	want := map[string]status.Status{
		"manager": status.Completed,
		"orders":  status.Active,
		"catalog": status.Waiting,
		"support": status.Waiting,
	}
	got := boardStatuses(snap.Board)
	for id, s := range want {
		if got[id] != s {
			t.Errorf("%s = %s, want %s", id, got[id], s)
		}
	}
	if order := boardOrder(snap.Board); order[0] != "manager" || order[1] != "catalog" || order[2] != "orders" || order[3] != "support" {
		t.Errorf("display order = %v", order)
	}
	active, ok := snap.ActiveAgent()
	if !ok || active.Agent.ID != "orders" || active.Summary != "Looking up order 42" {
		t.Errorf("ActiveAgent() = %+v, %v", active, ok)
	}
	if len(snap.Traces) != 2 {
		t.Errorf("traces = %d, want 2", len(snap.Traces))
	}
}

func TestBoardChangedOnlyOnChange(t *testing.T) {
	h := newHarness(t)
	h.start()
	_ = h.monitor.Submit(context.Background(), "hi")

	h.transport.trace(t, chainPayload("same", "manager", "orders"))
	if n := h.count(event.TypeBoardChanged); n != 1 {
		t.Fatalf("board.changed = %d after first trace, want 1", n)
	}
	h.transport.trace(t, chainPayload("same", "manager", "orders"))
	if n := h.count(event.TypeBoardChanged); n != 1 {
		t.Errorf("board.changed = %d after identical trace, want 1", n)
	}
	if n := h.count(event.TypeTraceAppended); n != 2 {
		t.Errorf("trace.appended = %d, want 2", n)
	}
}

func TestNewTurnClearsTraces(t *testing.T) {
	h := newHarness(t)
	h.start()
	_ = h.monitor.Submit(context.Background(), "first")
	h.transport.trace(t, chainPayload("s", "manager", "support"))
	h.transport.fragment("answer")

	if err := h.monitor.Submit(context.Background(), "second"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	snap := h.monitor.Snapshot()
	if len(snap.Traces) != 0 {
		t.Errorf("traces after new turn = %d, want 0", len(snap.Traces))
	}
	for id, s := range boardStatuses(snap.Board) {
		if s != status.Waiting {
			t.Errorf("%s = %s, want waiting after new turn", id, s)
		}
	}
	if snap.Messages[1].Text != "answer" || snap.Messages[1].Open {
		t.Errorf("first answer = %+v", snap.Messages[1])
	}
	if snap.Turn != 2 {
		t.Errorf("Turn = %d", snap.Turn)
	}
}

func TestFallbackTraceKeepsCollaborators(t *testing.T) {
	h := newHarness(t)
	h.start()
	_ = h.monitor.Submit(context.Background(), "hi")

	h.transport.trace(t, chainPayload("checking", "manager", "catalog"))
	h.transport.trace(t, map[string]any{"type": "POST_PROCESSING", "summary": "Composing answer"})

	snap := h.monitor.Snapshot()
	if s, _ := snap.Board.Find("manager"); s.Status != status.Active || s.Summary != "Composing answer" {
		t.Errorf("manager = %+v", s)
	}
	if s, _ := snap.Board.Find("catalog"); s.Status != status.Active || s.Summary != "checking" {
		t.Errorf("catalog = %+v", s)
	}
}

func TestAnomalies(t *testing.T) {
	h := newHarness(t)
	h.start()

	h.transport.fragment("early")
	h.transport.trace(t, chainPayload("early", "manager"))

	snap := h.monitor.Snapshot()
	if len(snap.Messages) != 0 || len(snap.Traces) != 0 {
		t.Errorf("stale events mutated state: %+v / %+v", snap.Messages, snap.Traces)
	}
	if len(snap.Anomalies) != 2 {
		t.Fatalf("anomalies = %v", snap.Anomalies)
	}
	if snap.Anomalies[0].Kind != errors.AnomalyFragment || snap.Anomalies[1].Kind != errors.AnomalyTrace {
		t.Errorf("anomaly kinds = %s, %s", snap.Anomalies[0].Kind, snap.Anomalies[1].Kind)
	}
	if h.count(event.TypeAnomalyRecorded) != 2 {
		t.Errorf("anomaly.recorded = %d", h.count(event.TypeAnomalyRecorded))
	}

	// A failed turn is closed; late fragments are anomalies too.
	h.transport.submitErr["hi"] = errors.New("boom")
	_ = h.monitor.Submit(context.Background(), "hi")
	h.transport.fragment("late")

	snap = h.monitor.Snapshot()
	if last, _ := snap.LastMessage(); last.Text != transcript.FailureText {
		t.Errorf("failed message overwritten: %q", last.Text)
	}
	if len(snap.Anomalies) != 3 {
		t.Errorf("anomalies = %d, want 3", len(snap.Anomalies))
	}
}

func TestOtherSessionsIgnored(t *testing.T) {
	h := newHarness(t)
	h.start()
	_ = h.monitor.Submit(context.Background(), "hi")

	h.bus.Publish(event.NewFragmentReceivedEvent("session_other", "not mine"))
	h.bus.Publish(event.NewConnectionChangedEvent("session_other", session.StateErrored, errors.New("x")))

	snap := h.monitor.Snapshot()
	if open, _ := snap.LastMessage(); open.Text != "" {
		t.Errorf("foreign fragment applied: %q", open.Text)
	}
	if snap.State != session.StateConnected {
		t.Errorf("foreign state applied: %s", snap.State)
	}
}

func TestErroredSessionRejectsSubmit(t *testing.T) {
	h := newHarness(t)
	h.transport.openErr = errors.NewConnectionError("could not connect", errors.ErrRetriesExhausted).WithRetryable(false)

	if err := h.monitor.Start(context.Background()); err == nil {
		t.Fatal("expected Start() to report the connection error")
	}
	<-h.monitor.RosterLoaded()

	snap := h.monitor.Snapshot()
	if snap.State != session.StateErrored || snap.LastError == nil {
		t.Errorf("State = %s, LastError = %v", snap.State, snap.LastError)
	}

	err := h.monitor.Submit(context.Background(), "hello?")
	if !errors.Is(err, errors.ErrSessionErrored) {
		t.Errorf("Submit() on errored session = %v", err)
	}
	if n := len(h.monitor.Snapshot().Messages); n != 0 {
		t.Errorf("rejected submit changed transcript: %d messages", n)
	}
	if len(h.transport.submitted) != 0 {
		t.Error("rejected submit reached the transport")
	}

	h.transport.openErr = nil
	if err := h.monitor.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	snap = h.monitor.Snapshot()
	if snap.State != session.StateConnected || snap.LastError != nil {
		t.Errorf("after reconnect State = %s, LastError = %v", snap.State, snap.LastError)
	}
	if err := h.monitor.Submit(context.Background(), "hello?"); err != nil {
		t.Errorf("Submit() after reconnect = %v", err)
	}
}

func TestSubmitFailureForSupersededTurn(t *testing.T) {
	h := newHarness(t)
	h.start()

	gate := make(chan struct{})
	h.transport.gates["first"] = gate
	h.transport.submitErr["first"] = errors.New("slow failure")

	firstDone := make(chan error, 1)
	go func() { firstDone <- h.monitor.Submit(context.Background(), "first") }()
	<-h.transport.entered

	if snap := h.monitor.Snapshot(); !snap.Submitting {
		t.Error("Submitting should be true while the ack is pending")
	}

	if err := h.monitor.Submit(context.Background(), "second"); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	h.transport.fragment("second answer")

	close(gate)
	if err := <-firstDone; err == nil {
		t.Error("first Submit() should still report its failure")
	}

	snap := h.monitor.Snapshot()
	if len(snap.Messages) != 4 {
		t.Fatalf("messages = %+v", snap.Messages)
	}
	if snap.Messages[3].Text != "second answer" || !snap.Messages[3].Open {
		t.Errorf("current turn was failed by a stale ack: %+v", snap.Messages[3])
	}
	if len(snap.Traces) != 0 {
		t.Errorf("stale failure added a trace: %+v", snap.Traces)
	}
	if snap.Submitting {
		t.Error("Submitting should be false once both acks returned")
	}
}

func TestSubmitEmptyText(t *testing.T) {
	h := newHarness(t)
	h.start()

	err := h.monitor.Submit(context.Background(), "   ")
	if !errors.Is(err, errors.ErrEmptyMessage) {
		t.Errorf("Submit(blank) = %v", err)
	}
	if len(h.monitor.Snapshot().Messages) != 0 {
		t.Error("blank submit must not start a turn")
	}
}

func TestClose(t *testing.T) {
	h := newHarness(t)
	h.start()
	_ = h.monitor.Submit(context.Background(), "hi")
	h.transport.fragment("partial")

	if err := h.monitor.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := h.monitor.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	snap := h.monitor.Snapshot()
	if last, _ := snap.LastMessage(); last.Text != "partial" {
		t.Errorf("final snapshot lost state: %+v", last)
	}
	if err := h.monitor.Submit(context.Background(), "again"); !errors.Is(err, errors.ErrSessionClosed) {
		t.Errorf("Submit() after Close = %v", err)
	}

	// Events published after Close are not delivered to the monitor.
	h.transport.fragment("ignored")
	if last, _ := h.monitor.Snapshot().LastMessage(); last.Text != "partial" {
		t.Errorf("event applied after Close: %q", last.Text)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	h := newHarness(t)
	h.start()
	_ = h.monitor.Submit(context.Background(), "hi")
	h.transport.trace(t, chainPayload("s", "manager"))

	snap := h.monitor.Snapshot()
	snap.Messages[0].Text = "mutated"
	snap.Board[0].Status = status.Completed
	snap.Traces[0].Summary = "mutated"

	fresh := h.monitor.Snapshot()
	if fresh.Messages[0].Text != "hi" || fresh.Board[0].Status != status.Active || fresh.Traces[0].Summary != "s" {
		t.Error("Snapshot shares memory with the monitor")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) entries(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestSubmitFailureLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{"timeout", errors.NewTimeoutError("submit", time.Second), "WARN"},
		{"rejected", errors.NewSubmitError(errors.ErrNonSuccessStatus).WithStatusCode(500), "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs lockedBuffer
			bus := event.NewBus()
			transport := newFakeTransport(bus)
			transport.submitErr["hi"] = tt.err
			m := New(testSession, transport, staticRoster{testRoster()}, bus,
				WithLogger(logging.NewWriterLogger(&logs, logging.LevelInfo)))
			t.Cleanup(func() { _ = m.Close() })
			if err := m.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			<-m.RosterLoaded()

			if err := m.Submit(context.Background(), "hi"); err == nil {
				t.Fatal("Submit() should fail")
			}

			var found map[string]any
			for _, e := range logs.entries(t) {
				if e["msg"] == "submit failed" {
					found = e
				}
			}
			if found == nil {
				t.Fatal("submit failure was not logged")
			}
			if found["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", found["level"], tt.wantLevel)
			}
			if found["turn"] != float64(1) {
				t.Errorf("turn = %v, want 1", found["turn"])
			}
		})
	}
}
