// Package styles holds the lipgloss styles of the terminal view, built from a
// color palette so the whole view can be re-themed at once.
package styles

import (
	"github.com/Iron-Ham/agentboard/internal/session"
	"github.com/Iron-Ham/agentboard/internal/status"
	"github.com/Iron-Ham/agentboard/internal/trace"
	"github.com/charmbracelet/lipgloss"
)

// Styles contains every style the view renders with.
type Styles struct {
	Palette *ColorPalette

	Primary   lipgloss.Style
	Secondary lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	Text      lipgloss.Style

	// Header and status bar
	Header    lipgloss.Style
	StatusBar lipgloss.Style

	// Panes
	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	PaneTitle   lipgloss.Style

	// Tabs over the right pane
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style

	// Transcript
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	MessageText    lipgloss.Style
	FailedText     lipgloss.Style
	Cursor         lipgloss.Style

	// Board
	AgentName    lipgloss.Style
	AgentManager lipgloss.Style
	Summary      lipgloss.Style

	// Trace log
	TraceLabel    lipgloss.Style
	TraceSelected lipgloss.Style
	TraceRaw      lipgloss.Style
	Rationale     lipgloss.Style

	// Help bar
	HelpBar lipgloss.Style
	HelpKey lipgloss.Style

	// Messages
	ErrorMsg   lipgloss.Style
	WarningMsg lipgloss.Style

	statusWaiting   lipgloss.Style
	statusActive    lipgloss.Style
	statusCompleted lipgloss.Style
}

// New builds Styles from the given color palette.
func New(p *ColorPalette) *Styles {
	if p == nil {
		p = DefaultPalette()
	}
	s := &Styles{Palette: p}

	s.Primary = lipgloss.NewStyle().Foreground(p.Primary)
	s.Secondary = lipgloss.NewStyle().Foreground(p.Secondary)
	s.Warning = lipgloss.NewStyle().Foreground(p.Warning)
	s.Error = lipgloss.NewStyle().Foreground(p.Error)
	s.Muted = lipgloss.NewStyle().Foreground(p.Muted)
	s.Text = lipgloss.NewStyle().Foreground(p.Text)

	s.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Primary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(p.Border)

	s.StatusBar = lipgloss.NewStyle().
		Foreground(p.Text).
		Background(p.Surface).
		Padding(0, 1)

	s.Pane = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)

	s.PaneFocused = s.Pane.BorderForeground(p.Primary)

	s.PaneTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Primary)

	s.TabActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Text).
		Background(p.Primary).
		Padding(0, 1)

	s.TabInactive = lipgloss.NewStyle().
		Foreground(p.Muted).
		Padding(0, 1)

	s.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(p.User)
	s.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(p.Primary)
	s.MessageText = lipgloss.NewStyle().Foreground(p.Text)
	s.FailedText = lipgloss.NewStyle().Foreground(p.Error).Italic(true)
	s.Cursor = lipgloss.NewStyle().Foreground(p.Secondary).Bold(true)

	s.AgentName = lipgloss.NewStyle().Foreground(p.Text)
	s.AgentManager = lipgloss.NewStyle().Foreground(p.Text).Bold(true)
	s.Summary = lipgloss.NewStyle().Foreground(p.Muted).Italic(true)

	s.TraceLabel = lipgloss.NewStyle().Bold(true)
	s.TraceSelected = lipgloss.NewStyle().
		Foreground(p.Text).
		Background(p.Surface)
	s.TraceRaw = lipgloss.NewStyle().Foreground(p.Muted)
	s.Rationale = lipgloss.NewStyle().Foreground(p.Text).Italic(true)

	s.HelpBar = lipgloss.NewStyle().Foreground(p.Muted)
	s.HelpKey = lipgloss.NewStyle().Bold(true).Foreground(p.Secondary)

	s.ErrorMsg = lipgloss.NewStyle().Foreground(p.Error).Bold(true)
	s.WarningMsg = lipgloss.NewStyle().Foreground(p.Warning).Bold(true)

	badge := lipgloss.NewStyle().Bold(true)
	s.statusWaiting = badge.Foreground(p.StatusWaiting)
	s.statusActive = badge.Foreground(p.StatusActive)
	s.statusCompleted = badge.Foreground(p.StatusCompleted)

	return s
}

// StatusBadge returns the badge style for an agent status.
func (s *Styles) StatusBadge(st status.Status) lipgloss.Style {
	switch st {
	case status.Active:
		return s.statusActive
	case status.Completed:
		return s.statusCompleted
	default:
		return s.statusWaiting
	}
}

// StatusIcon returns the single-character status indicator.
func StatusIcon(st status.Status) string {
	switch st {
	case status.Active:
		return "●"
	case status.Completed:
		return "✓"
	default:
		return "○"
	}
}

// TraceColor returns the color a trace kind's label is drawn in.
func (s *Styles) TraceColor(k trace.Kind) lipgloss.Color {
	switch k {
	case trace.KindError:
		return s.Palette.Error
	case trace.KindOrchestration:
		return s.Palette.Primary
	case trace.KindPreProcessing, trace.KindPostProcessing:
		return s.Palette.Secondary
	default:
		return s.Palette.Muted
	}
}

// ConnectionStyle returns the style for the session state indicator.
func (s *Styles) ConnectionStyle(st session.State) lipgloss.Style {
	switch st {
	case session.StateConnected:
		return s.Secondary
	case session.StateConnecting:
		return s.Warning
	case session.StateErrored:
		return s.ErrorMsg
	default:
		return s.Muted
	}
}
