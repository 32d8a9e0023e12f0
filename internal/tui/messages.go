package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// refreshMsg asks the model to take a fresh snapshot of the monitor.
type refreshMsg struct{}

// tickMsg drives the periodic refresh that catches state the bus did not
// announce, such as connection changes applied after the notification.
type tickMsg time.Time

// submitDoneMsg carries the outcome of a submission.
type submitDoneMsg struct {
	err error
}

// reconnectDoneMsg carries the outcome of a manual reconnect.
type reconnectDoneMsg struct {
	err error
}

const refreshInterval = time.Second

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
