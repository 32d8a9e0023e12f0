// Package monitor composes the session channel, roster, transcript and trace
// log into one session-scoped orchestration monitor.
//
// All monitor state is owned by a single event-loop goroutine. Inbound channel
// events, submit acknowledgements and roster results are posted to the loop
// as closures and run to completion one at a time, so the state needs no
// locks. Readers get copies through [Monitor.Snapshot].
//
// The monitor publishes its own events (turn started, transcript updated,
// board changed, ...) on the shared bus from the loop goroutine. Handlers of
// those events must not call back into the Monitor synchronously; hand the
// work to another goroutine instead.
package monitor

import (
	"context"
	"strings"
	"sync"

	"github.com/Iron-Ham/agentboard/internal/errors"
	"github.com/Iron-Ham/agentboard/internal/event"
	"github.com/Iron-Ham/agentboard/internal/logging"
	"github.com/Iron-Ham/agentboard/internal/roster"
	"github.com/Iron-Ham/agentboard/internal/session"
	"github.com/Iron-Ham/agentboard/internal/status"
	"github.com/Iron-Ham/agentboard/internal/trace"
	"github.com/Iron-Ham/agentboard/internal/transcript"
)

// Transport is the live connection the monitor drives. *channel.Channel
// implements it.
type Transport interface {
	Open(ctx context.Context, sessionID string) error
	Submit(ctx context.Context, text string) error
	Close() error
	State() session.State
}

// RosterSource loads the roster. Fetch must not fail; it returns an empty
// roster instead. *roster.Client implements it.
type RosterSource interface {
	Fetch(ctx context.Context) roster.Roster
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the monitor's logger.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Monitor is one session's orchestration monitor.
type Monitor struct {
	sessionID string
	transport Transport
	source    RosterSource
	bus       *event.Bus
	logger    *logging.Logger

	inbox chan func()
	stop  chan struct{}
	done  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	startOnce   sync.Once
	closeOnce   sync.Once
	rosterReady chan struct{}
	subs        []string

	// Owned by the loop goroutine.
	roster     roster.Roster
	traces     *trace.Store
	agg        *transcript.Aggregator
	board      status.Board
	state      session.State
	lastErr    error
	submitting int
	loaded     bool
}

// New creates a Monitor for sessionID and starts its event loop. Call Start
// to connect.
func New(sessionID string, transport Transport, source RosterSource, bus *event.Bus, opts ...Option) *Monitor {
	traces := trace.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		sessionID:   sessionID,
		transport:   transport,
		source:      source,
		bus:         bus,
		logger:      logging.NopLogger(),
		inbox:       make(chan func()),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		rosterReady: make(chan struct{}),
		traces:      traces,
		agg:         transcript.NewAggregator(traces),
		state:       session.StateDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("monitor").WithSession(sessionID)

	go m.run()
	return m
}

// SessionID returns the monitored session.
func (m *Monitor) SessionID() string { return m.sessionID }

// RosterLoaded is closed once the roster fetch has finished, successfully or
// not.
func (m *Monitor) RosterLoaded() <-chan struct{} { return m.rosterReady }

// Start subscribes to the channel's events, begins loading the roster and
// opens the transport. A returned error is the transport's ConnectionError;
// the monitor stays usable and can be reconnected.
func (m *Monitor) Start(ctx context.Context) error {
	m.startOnce.Do(func() {
		m.subs = append(m.subs,
			m.bus.Subscribe(event.TypeFragmentReceived, m.onFragment),
			m.bus.Subscribe(event.TypeTraceReceived, m.onTrace),
			m.bus.Subscribe(event.TypeConnectionChanged, m.onConnection),
		)
		go m.loadRoster()
	})
	return m.transport.Open(ctx, m.sessionID)
}

// Reconnect reopens the transport, for example after retries ran out.
func (m *Monitor) Reconnect(ctx context.Context) error {
	m.logger.Info("reconnecting session")
	return m.transport.Open(ctx, m.sessionID)
}

// Close tears the monitor down: the transport is closed first so no more
// inbound events arrive, then the loop stops. Snapshot keeps working and
// returns the final state.
func (m *Monitor) Close() error {
	var err error
	m.closeOnce.Do(func() {
		err = m.transport.Close()
		for _, id := range m.subs {
			m.bus.Unsubscribe(id)
		}
		m.cancel()
		close(m.stop)
		<-m.done
	})
	return err
}

func (m *Monitor) run() {
	defer close(m.done)
	for {
		select {
		case fn := <-m.inbox:
			fn()
		case <-m.stop:
			return
		}
	}
}

// call runs fn on the loop and waits for it to finish.
func (m *Monitor) call(fn func()) error {
	finished := make(chan struct{})
	select {
	case m.inbox <- func() {
		defer close(finished)
		fn()
	}:
	case <-m.done:
		return errors.ErrSessionClosed
	}
	select {
	case <-finished:
		return nil
	case <-m.done:
		return errors.ErrSessionClosed
	}
}

func (m *Monitor) loadRoster() {
	r := m.source.Fetch(m.ctx)
	_ = m.call(func() {
		m.roster = r
		m.loaded = true
		m.logger.Info("roster loaded", "agents", r.Len())
		m.bus.Publish(event.NewRosterLoadedEvent(m.sessionID, r.Len()))
		m.board = status.Initial(r)
		m.recompute()
	})
	close(m.rosterReady)
}

// Submit starts a new turn with text and sends it. It returns once the
// backend has accepted or rejected the request. On rejection the turn is
// failed in place and the *errors.SubmitError is returned.
func (m *Monitor) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewValidationError("message is empty").WithField("message").WithCause(errors.ErrEmptyMessage)
	}

	var (
		turn      int
		rejectErr error
	)
	if err := m.call(func() {
		if !m.state.AcceptsSubmissions() {
			rejectErr = errors.NewConnectionError("session must be reopened before submitting", errors.ErrSessionErrored).
				WithSessionID(m.sessionID).
				WithRetryable(false)
			return
		}
		turn = m.agg.StartTurn(text)
		m.submitting++
		m.logger.Info("turn started", "turn", turn)
		m.bus.Publish(event.NewTurnStartedEvent(m.sessionID, text))
		m.bus.Publish(event.NewTranscriptUpdatedEvent(m.sessionID, m.agg.Len()))
		m.recompute()
	}); err != nil {
		return err
	}
	if rejectErr != nil {
		return rejectErr
	}

	sendErr := m.transport.Submit(ctx, text)

	var submitErr *errors.SubmitError
	if sendErr != nil && !errors.As(sendErr, &submitErr) {
		submitErr = errors.NewSubmitError(sendErr).WithSessionID(m.sessionID)
	}

	if err := m.call(func() {
		m.submitting--
		if submitErr == nil {
			return
		}
		m.failTurn(turn, submitErr)
	}); err != nil {
		return err
	}

	if submitErr != nil {
		return submitErr
	}
	return nil
}

// failTurn applies a submit failure to turn if it is still current.
func (m *Monitor) failTurn(turn int, err *errors.SubmitError) {
	reason := err.Reason()
	log := m.logger.With("turn", turn)
	if turn != m.agg.Turn() {
		log.Warn("submit failed for superseded turn", "error", err)
		return
	}
	log.Log(errors.GetSeverity(err).LogLevel(), "submit failed", "error", err)

	if !m.agg.FailTurn(reason) {
		m.anomaly(m.agg.Anomalies())
		return
	}
	m.traces.Append(trace.NewError(reason))
	m.bus.Publish(event.NewTurnFailedEvent(m.sessionID, reason))
	m.bus.Publish(event.NewTranscriptUpdatedEvent(m.sessionID, m.agg.Len()))
	m.bus.Publish(event.NewTraceAppendedEvent(m.sessionID, string(trace.KindError), trace.ErrorSummary, m.traces.Len()))
	m.recompute()
}

func (m *Monitor) onFragment(e event.Event) {
	frag, ok := e.(event.FragmentReceivedEvent)
	if !ok || frag.SessionID != m.sessionID {
		return
	}
	_ = m.call(func() {
		if !m.agg.AppendFragment(frag.Content) {
			m.anomaly(m.agg.Anomalies())
			return
		}
		m.bus.Publish(event.NewTranscriptUpdatedEvent(m.sessionID, m.agg.Len()))
	})
}

func (m *Monitor) onTrace(e event.Event) {
	tr, ok := e.(event.TraceReceivedEvent)
	if !ok || tr.SessionID != m.sessionID {
		return
	}
	ev := trace.Decode(tr.Payload)
	_ = m.call(func() {
		if !m.agg.HasOpenTurn() {
			m.agg.RecordAnomaly(errors.NewStreamAnomaly(errors.AnomalyTrace, string(ev.Kind)))
			m.anomaly(m.agg.Anomalies())
			return
		}
		m.traces.Append(ev)
		m.logger.Debug("trace appended", "kind", string(ev.Kind), "summary", ev.Summary)
		m.bus.Publish(event.NewTraceAppendedEvent(m.sessionID, string(ev.Kind), ev.Summary, m.traces.Len()))
		m.recompute()
	})
}

func (m *Monitor) onConnection(e event.Event) {
	cc, ok := e.(event.ConnectionChangedEvent)
	if !ok || cc.SessionID != m.sessionID {
		return
	}
	_ = m.call(func() {
		m.state = cc.State
		switch {
		case cc.State == session.StateConnected:
			m.lastErr = nil
		case cc.Err != nil:
			m.lastErr = cc.Err
		}
	})
}

// anomaly reports the most recently recorded anomaly.
func (m *Monitor) anomaly(all []*errors.StreamAnomaly) {
	if len(all) == 0 {
		return
	}
	a := all[len(all)-1]
	m.logger.Warn("stream anomaly", "kind", string(a.Kind), "detail", a.Detail)
	m.bus.Publish(event.NewAnomalyRecordedEvent(m.sessionID, string(a.Kind), a.Detail))
}

// recompute derives the board from the current trace log and announces it
// only when some agent actually changed.
func (m *Monitor) recompute() {
	next, changes := status.Resolve(m.roster, m.traces.All(), m.board)
	m.board = next
	if len(changes) == 0 {
		return
	}
	ids := make([]string, len(changes))
	for i, c := range changes {
		ids[i] = c.AgentID
		m.logger.WithAgent(c.AgentID).Debug("agent status changed",
			"from", string(c.From),
			"to", string(c.To),
			"summary", c.Summary)
	}
	m.bus.Publish(event.NewBoardChangedEvent(m.sessionID, ids))
}
