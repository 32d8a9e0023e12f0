package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Iron-Ham/agentboard/internal/roster"
	"github.com/Iron-Ham/agentboard/internal/status"
	"github.com/Iron-Ham/agentboard/internal/trace"
	"github.com/Iron-Ham/agentboard/internal/transcript"
	"github.com/Iron-Ham/agentboard/internal/tui/styles"
	"github.com/Iron-Ham/agentboard/internal/util"
	"github.com/charmbracelet/lipgloss"
)

// streamingCursor trails the open assistant message.
const streamingCursor = "▍"

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderTranscriptPane(), m.renderRightPane())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderInput(),
		m.renderStatusBar(),
		m.renderHelp(),
	)
}

func (m Model) renderHeader() string {
	st := m.styles
	parts := []string{
		st.PaneTitle.Render("agentboard"),
		st.Muted.Render(m.snap.SessionID),
		st.ConnectionStyle(m.snap.State).Render(m.snap.State.String()),
	}
	if m.snap.Turn > 0 {
		parts = append(parts, st.Muted.Render(fmt.Sprintf("turn %d", m.snap.Turn)))
	}
	if active, ok := m.snap.ActiveAgent(); ok {
		parts = append(parts, st.StatusBadge(status.Active).Render(styles.StatusIcon(status.Active)+" "+active.Agent.Name))
	}
	line := util.TruncateANSI(strings.Join(parts, st.Muted.Render(" · ")), max(4, m.layout.width))
	return st.Header.Width(max(1, m.layout.width)).Render(line)
}

func (m Model) renderTranscriptPane() string {
	style := m.styles.Pane
	if m.pane == PaneBoard {
		style = m.styles.PaneFocused
	}
	return style.
		Width(m.layout.transcriptWidth - 2).
		Height(m.layout.paneHeight - paneFrameHeight).
		Render(m.viewport.View())
}

// renderTranscript renders every message, wrapped to width.
func (m Model) renderTranscript(width int) string {
	st := m.styles
	if len(m.snap.Messages) == 0 {
		return st.Muted.Render("Ask the agents something to begin.")
	}

	var b strings.Builder
	for i, msg := range m.snap.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg, width))
	}
	return b.String()
}

func (m Model) renderMessage(msg transcript.Message, width int) string {
	st := m.styles

	label := st.AssistantLabel.Render("Assistant")
	if msg.Role == transcript.RoleUser {
		label = st.UserLabel.Render("You")
	}

	text := util.Wrap(msg.Text, width)
	switch {
	case msg.Failed:
		text = st.FailedText.Render(text)
	case msg.Open && msg.Text == "":
		text = st.Muted.Render("thinking") + st.Cursor.Render(streamingCursor)
	case msg.Open:
		text = st.MessageText.Render(text) + st.Cursor.Render(streamingCursor)
	default:
		text = st.MessageText.Render(text)
	}
	return label + "\n" + text
}

func (m Model) renderRightPane() string {
	style := m.styles.Pane
	if m.pane == PaneTraces {
		style = m.styles.PaneFocused
	}
	w, h := m.layout.boardInner()

	tabs := m.renderTabs()
	var content string
	if m.pane == PaneTraces {
		content = m.renderTraces(w, h-2)
	} else {
		content = m.renderBoard(w, h-2)
	}

	return style.
		Width(m.layout.boardWidth - 2).
		Height(m.layout.paneHeight - paneFrameHeight).
		Render(tabs + "\n\n" + content)
}

func (m Model) renderTabs() string {
	st := m.styles
	board := PaneBoard.String()
	traces := fmt.Sprintf("%s (%d)", PaneTraces, len(m.snap.Traces))
	if m.pane == PaneTraces {
		return st.TabInactive.Render(board) + st.TabActive.Render(traces)
	}
	return st.TabActive.Render(board) + st.TabInactive.Render(traces)
}

// renderBoard renders one entry per agent, manager first.
func (m Model) renderBoard(width, height int) string {
	st := m.styles
	switch {
	case !m.snap.RosterLoaded:
		return st.Muted.Render("Loading agents...")
	case len(m.snap.Board) == 0:
		return st.Muted.Render("No agents available.")
	}

	var lines []string
	for _, a := range m.snap.Board {
		nameStyle := st.AgentName
		name := a.Agent.Name
		if a.Agent.Role == roster.RoleManager {
			nameStyle = st.AgentManager
			name += " (manager)"
		}
		badge := st.StatusBadge(a.Status)
		header := badge.Render(styles.StatusIcon(a.Status)) + " " + nameStyle.Render(name)
		lines = append(lines, util.TruncateANSI(header, width))
		lines = append(lines, "  "+badge.Render(string(a.Status)))
		if a.Status == status.Active && a.Summary != "" {
			lines = append(lines, "  "+st.Summary.Render(util.Summarize(a.Summary, width-2)))
		}
	}
	return strings.Join(clipLines(lines, 0, height), "\n")
}

// renderTraces renders the current turn's trace log. The newest trace is the
// active step; earlier ones are done.
func (m Model) renderTraces(width, height int) string {
	st := m.styles
	traces := m.snap.Traces
	if len(traces) == 0 {
		return st.Muted.Render("No traces for this turn.")
	}

	var (
		lines    []string
		selStart int
		selEnd   int
	)
	for i, ev := range traces {
		if i == m.cursor {
			selStart = len(lines)
		}
		lines = append(lines, m.renderTraceLine(i, ev, width))
		if m.showRaw || m.expanded[i] {
			lines = append(lines, m.renderTraceDetail(ev, width)...)
		}
		if i == m.cursor {
			selEnd = len(lines)
		}
	}

	return strings.Join(clipLines(lines, scrollOffset(len(lines), height, selStart, selEnd), height), "\n")
}

func (m Model) renderTraceLine(i int, ev trace.Event, width int) string {
	st := m.styles

	icon := styles.StatusIcon(status.Completed)
	iconStyle := st.StatusBadge(status.Completed)
	if i == len(m.snap.Traces)-1 {
		icon = styles.StatusIcon(status.Active)
		iconStyle = st.StatusBadge(status.Active)
	}

	label := st.TraceLabel.Foreground(st.TraceColor(ev.Kind)).Render(ev.Kind.Label())
	prefix := "  "
	if m.pane == PaneTraces && i == m.cursor {
		prefix = st.Cursor.Render("› ")
	}
	line := prefix + iconStyle.Render(icon) + " " + label
	if summary := util.OneLine(ev.Summary); summary != "" {
		line += " " + st.Muted.Render(summary)
	}
	return util.TruncateANSI(line, width)
}

func (m Model) renderTraceDetail(ev trace.Event, width int) []string {
	st := m.styles
	inner := max(1, width-4)

	var out []string
	if ev.Rationale != "" {
		out = append(out, indentLines(st.Rationale.Render(util.Wrap("Rationale: "+ev.Rationale, inner)), "    ")...)
	}
	if ev.FailureReason != "" {
		out = append(out, indentLines(st.Error.Render(util.Wrap("Reason: "+ev.FailureReason, inner)), "    ")...)
	}
	if chain := ev.ChainIDs(); len(chain) > 0 {
		out = append(out, indentLines(st.Muted.Render(util.Wrap("Chain: "+strings.Join(chain, " → "), inner)), "    ")...)
	}
	out = append(out, indentLines(st.TraceRaw.Render(util.Wrap(prettyJSON(ev.Raw), inner)), "    ")...)
	return out
}

func (m Model) renderInput() string {
	prefix := ""
	if m.busy() {
		prefix = m.spinner.View() + " "
	}
	return m.styles.Pane.
		Width(max(1, m.layout.width-2)).
		Render(prefix + m.input.View())
}

func (m Model) renderStatusBar() string {
	st := m.styles
	var parts []string
	switch {
	case m.errMsg != "":
		parts = append(parts, st.ErrorMsg.Render(m.errMsg))
	case m.snap.LastError != nil:
		parts = append(parts, st.ErrorMsg.Render(m.snap.LastError.Error()))
	case m.snap.Submitting:
		parts = append(parts, st.WarningMsg.Render("sending..."))
	case m.snap.Streaming:
		parts = append(parts, st.Secondary.Render("streaming"))
	}
	if n := len(m.snap.Anomalies); n > 0 {
		parts = append(parts, st.Warning.Render(fmt.Sprintf("%d dropped events", n)))
	}
	line := strings.Join(parts, "  ")
	return st.StatusBar.Width(max(1, m.layout.width)).Render(util.TruncateANSI(line, max(4, m.layout.width-2)))
}

func (m Model) renderHelp() string {
	st := m.styles
	keys := []struct{ key, desc string }{
		{"enter", "send"},
		{"tab", "agents/traces"},
		{"↑/↓", "scroll/select"},
		{"ctrl+o", "expand"},
		{"ctrl+t", "raw"},
		{"ctrl+r", "reconnect"},
		{"ctrl+c", "quit"},
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = st.HelpKey.Render(k.key) + " " + k.desc
	}
	return st.HelpBar.Render(util.TruncateANSI(strings.Join(parts, "  "), max(4, m.layout.width)))
}

// prettyJSON indents raw for display, falling back to the bytes as received.
func prettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func indentLines(s, prefix string) []string {
	return strings.Split(util.Indent(s, prefix), "\n")
}

// scrollOffset picks the first visible line so the selected block
// [selStart, selEnd) is on screen, preferring to show its start.
func scrollOffset(total, height, selStart, selEnd int) int {
	if height <= 0 || total <= height {
		return 0
	}
	offset := 0
	if selEnd > height {
		offset = selEnd - height
	}
	offset = min(offset, selStart)
	return max(0, min(offset, total-height))
}

func clipLines(lines []string, offset, height int) []string {
	if height <= 0 {
		return nil
	}
	end := min(len(lines), offset+height)
	return lines[offset:end]
}
