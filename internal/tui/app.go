// Package tui is the interactive terminal view of one monitored session: the
// transcript on the left, the agent board or the trace log on the right, and
// an input line at the bottom.
package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Iron-Ham/agentboard/internal/event"
	tea "github.com/charmbracelet/bubbletea"
)

// App wraps the Bubbletea program
type App struct {
	ctx     context.Context
	model   Model
	bus     *event.Bus
	program *tea.Program
	opts    []tea.ProgramOption
}

// New creates the TUI for mon. Monitor events published on bus trigger redraws.
func New(ctx context.Context, mon Monitor, bus *event.Bus, opts Options) *App {
	return &App{
		ctx:   ctx,
		model: NewModel(ctx, mon, opts),
		bus:   bus,
		opts:  []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)},
	}
}

// Run starts the TUI application and blocks until the user quits or ctx ends.
func (a *App) Run() error {
	a.program = tea.NewProgram(a.model, a.opts...)

	stop := a.forwardEvents()
	defer stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			a.program.Quit()
		case <-a.ctx.Done():
		}
	}()

	_, err := a.program.Run()
	return err
}

// forwardEvents turns bus notifications into refresh messages. Handlers run on
// the monitor's goroutine and must not block or call back into the monitor,
// so they only mark a refresh as pending; a forwarder delivers at most one
// refresh per burst of events.
func (a *App) forwardEvents() (stop func()) {
	pending := make(chan struct{}, 1)
	notify := func(event.Event) {
		select {
		case pending <- struct{}{}:
		default:
		}
	}

	types := append(event.MonitorTypes(), event.TypeConnectionChanged)
	ids := make([]string, 0, len(types))
	for _, t := range types {
		ids = append(ids, a.bus.Subscribe(t, notify))
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-pending:
				a.program.Send(refreshMsg{})
			}
		}
	}()

	return func() {
		for _, id := range ids {
			a.bus.Unsubscribe(id)
		}
		close(done)
	}
}
