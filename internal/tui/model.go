package tui

import (
	"context"
	"strings"

	"github.com/Iron-Ham/agentboard/internal/errors"
	"github.com/Iron-Ham/agentboard/internal/logging"
	"github.com/Iron-Ham/agentboard/internal/monitor"
	"github.com/Iron-Ham/agentboard/internal/tui/styles"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Monitor is the part of the orchestration monitor the view drives.
type Monitor interface {
	Snapshot() monitor.Snapshot
	Submit(ctx context.Context, text string) error
	Reconnect(ctx context.Context) error
}

// Pane identifies what the right-hand pane shows.
type Pane int

const (
	PaneBoard Pane = iota
	PaneTraces
)

// String returns the tab title of the pane.
func (p Pane) String() string {
	if p == PaneTraces {
		return "Traces"
	}
	return "Agents"
}

// Options configures the view.
type Options struct {
	// BoardWidth is the right pane width in columns; 0 uses the default.
	BoardWidth int
	// ShowRawTraces expands every trace's raw JSON.
	ShowRawTraces bool
	Styles        *styles.Styles
	Logger        *logging.Logger
}

// Model is the Bubbletea model of the session view.
type Model struct {
	ctx    context.Context
	mon    Monitor
	styles *styles.Styles
	logger *logging.Logger

	snap monitor.Snapshot

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	pane       Pane
	cursor     int
	follow     bool // keep the cursor on the newest trace
	expanded   map[int]bool
	showRaw    bool
	turn       int
	pending    int // submissions awaiting their acknowledgement
	reconnects int // manual reconnects in flight

	boardWidth int
	layout     layout
	ready      bool
	errMsg     string
	quitting   bool
}

// NewModel creates the view for mon. ctx bounds the submissions and
// reconnects the view starts.
func NewModel(ctx context.Context, mon Monitor, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask the agents..."
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	st := opts.Styles
	if st == nil {
		st = styles.New(nil)
	}
	sp.Style = st.Warning

	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	return Model{
		ctx:        ctx,
		mon:        mon,
		styles:     st,
		logger:     logger.WithComponent("tui"),
		snap:       mon.Snapshot(),
		input:      ti,
		viewport:   viewport.New(0, 0),
		spinner:    sp,
		follow:     true,
		expanded:   make(map[int]bool),
		showRaw:    opts.ShowRawTraces,
		boardWidth: opts.BoardWidth,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case submitDoneMsg:
		m.pending = max(0, m.pending-1)
		if msg.err != nil {
			m.errMsg = describeError(msg.err)
			m.logger.Warn("submit failed", "error", msg.err)
		}
		m.refresh()
		return m, nil

	case reconnectDoneMsg:
		m.reconnects = max(0, m.reconnects-1)
		if msg.err != nil {
			m.errMsg = describeError(msg.err)
		} else {
			m.errMsg = ""
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.errMsg = ""
		m.pending++
		return m, tea.Batch(m.submitCmd(text), m.spinner.Tick)

	case "tab":
		if m.pane == PaneBoard {
			m.pane = PaneTraces
		} else {
			m.pane = PaneBoard
		}
		return m, nil

	case "ctrl+r":
		if m.reconnects > 0 {
			return m, nil
		}
		m.reconnects++
		m.errMsg = ""
		return m, tea.Batch(m.reconnectCmd(), m.spinner.Tick)

	case "ctrl+o":
		if m.pane == PaneTraces && len(m.snap.Traces) > 0 {
			m.expanded[m.cursor] = !m.expanded[m.cursor]
		}
		return m, nil

	case "ctrl+t":
		m.showRaw = !m.showRaw
		return m, nil

	case "up":
		if m.pane == PaneTraces {
			m.moveCursor(-1)
		} else {
			m.viewport.ScrollUp(1)
		}
		return m, nil

	case "down":
		if m.pane == PaneTraces {
			m.moveCursor(1)
		} else {
			m.viewport.ScrollDown(1)
		}
		return m, nil

	case "pgup":
		m.viewport.PageUp()
		return m, nil

	case "pgdown":
		m.viewport.PageDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitCmd(text string) tea.Cmd {
	ctx, mon := m.ctx, m.mon
	return func() tea.Msg {
		return submitDoneMsg{err: mon.Submit(ctx, text)}
	}
}

func (m Model) reconnectCmd() tea.Cmd {
	ctx, mon := m.ctx, m.mon
	return func() tea.Msg {
		return reconnectDoneMsg{err: mon.Reconnect(ctx)}
	}
}

func (m Model) busy() bool {
	return m.pending > 0 || m.reconnects > 0 || m.snap.Submitting
}

func (m *Model) resize(width, height int) {
	m.layout = computeLayout(width, height, m.boardWidth)
	w, h := m.layout.transcriptInner()
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = max(1, width-paneFrameWidth-len(m.input.Prompt)-3)
	m.ready = true
	m.syncTranscript(true)
}

// refresh takes a new snapshot and reconciles view state with it.
func (m *Model) refresh() {
	m.snap = m.mon.Snapshot()

	newTurn := m.snap.Turn != m.turn
	if newTurn {
		m.turn = m.snap.Turn
		m.cursor = 0
		m.follow = true
		clear(m.expanded)
	}

	n := len(m.snap.Traces)
	switch {
	case n == 0:
		m.cursor = 0
	case m.follow:
		m.cursor = n - 1
	case m.cursor >= n:
		m.cursor = n - 1
	}

	m.syncTranscript(newTurn)
}

func (m *Model) moveCursor(delta int) {
	n := len(m.snap.Traces)
	if n == 0 {
		return
	}
	m.cursor = max(0, min(n-1, m.cursor+delta))
	m.follow = m.cursor == n-1
}

// syncTranscript re-renders the transcript into the viewport, staying pinned
// to the bottom if the reader was already there.
func (m *Model) syncTranscript(forceBottom bool) {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript(m.viewport.Width))
	if forceBottom || atBottom {
		m.viewport.GotoBottom()
	}
}

// describeError turns a monitor error into a status line.
func describeError(err error) string {
	var submitErr *errors.SubmitError
	switch {
	case errors.As(err, &submitErr):
		return "Submit failed: " + submitErr.Reason()
	case errors.Is(err, errors.ErrSessionErrored):
		return "Session disconnected. Press ctrl+r to reconnect."
	case errors.Is(err, errors.ErrEmptyMessage):
		return "Message is empty."
	default:
		return err.Error()
	}
}
