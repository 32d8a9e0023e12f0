package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Iron-Ham/agentboard/internal/config"
	"github.com/Iron-Ham/agentboard/internal/errors"
	"github.com/Iron-Ham/agentboard/internal/tui"
	"github.com/Iron-Ham/agentboard/internal/tui/styles"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agents of a session",
	Long: `Join a session and chat with its agents.

In a terminal this opens the interactive view: the conversation on the left,
the agent board or the current turn's traces on the right. When stdin or
stdout is not a terminal, or with --line, each input line is sent as a
message and the session's events are printed as plain text.

Examples:
  agentboard chat
  agentboard chat --session session_1700000000000 --theme nord
  echo "where is my order?" | agentboard chat --idle 10s`,
	RunE: runChat,
}

var (
	chatLineMode bool
	chatTheme    string
	chatIdle     time.Duration
)

func init() {
	chatCmd.Flags().BoolVar(&chatLineMode, "line", false, "Use plain line mode even in a terminal")
	chatCmd.Flags().StringVar(&chatTheme, "theme", "", "Color theme (overrides tui.theme)")
	chatCmd.Flags().DurationVar(&chatIdle, "idle", 5*time.Second, "In line mode, exit this long after input ends and the session goes quiet")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rt := newSessionRuntime(cfg, createLogger(cfg, cmd.ErrOrStderr()))
	defer rt.close()
	rt.watchConfig()

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	if chatLineMode || !interactive {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runLineChat(ctx, rt, cmd.InOrStdin(), cmd.OutOrStdout(), chatIdle)
	}
	return runInteractiveChat(cmd, rt)
}

func runInteractiveChat(cmd *cobra.Command, rt *sessionRuntime) error {
	ctx := cmd.Context()

	theme := rt.cfg.TUI.Theme
	if chatTheme != "" {
		theme = chatTheme
	}
	palette, err := styles.ResolvePalette(theme, config.ThemesDir())
	if err != nil {
		rt.logger.Warn("falling back to the default theme", "theme", theme, "error", err)
		palette = nil
	}

	go func() {
		if err := rt.monitor.Start(ctx); err != nil {
			rt.logger.Log(errors.GetSeverity(err).LogLevel(), "session did not connect", "error", err)
		}
	}()

	app := tui.New(ctx, rt.monitor, rt.bus, tui.Options{
		BoardWidth:    rt.cfg.TUI.BoardWidth,
		ShowRawTraces: rt.cfg.TUI.ShowRawTraces,
		Styles:        styles.New(palette),
		Logger:        rt.logger,
	})
	if err := app.Run(); err != nil {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}

// runLineChat sends each line of in as a message and prints the session's
// events to out. Once in is exhausted it keeps printing until nothing has
// arrived for idle, since the backend never signals that an answer is done.
func runLineChat(ctx context.Context, rt *sessionRuntime, in io.Reader, out io.Writer, idle time.Duration) error {
	f := newFeed(rt.bus, rt.sessionID, feedTypes(true)...)
	defer f.close()
	p := &linePrinter{w: out, mon: rt.monitor}
	defer p.Finish()

	_, _ = fmt.Fprintf(out, "* session %s\n", rt.sessionID)
	if err := rt.monitor.Start(ctx); err != nil {
		for _, e := range f.drain() {
			p.Print(e)
		}
		return err
	}

	lines := make(chan string)
	inputDone := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		inputDone <- scanner.Err()
	}()

	quiet := time.NewTimer(idle)
	quiet.Stop()
	inputOpen := true

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-f.Ready():
			for _, e := range f.drain() {
				p.Print(e)
			}
			if !inputOpen {
				quiet.Reset(idle)
			}

		case text, ok := <-lines:
			if !ok {
				lines = nil
				inputOpen = false
				quiet.Reset(idle)
				continue
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			if err := rt.monitor.Submit(ctx, text); err != nil {
				reportSubmitError(p, err)
			}

		case err := <-inputDone:
			inputDone = nil
			if err != nil {
				rt.logger.Warn("reading input", "error", err)
			}

		case <-quiet.C:
			for _, e := range f.drain() {
				p.Print(e)
			}
			if last, ok := rt.monitor.Snapshot().LastMessage(); ok && last.Open {
				rt.logger.Info("answer still streaming when input went idle", "idle", idle, "chars", len(last.Text))
			}
			return nil
		}
	}
}

// reportSubmitError prints submit failures the feed does not already show.
// Failed submissions of a started turn are reported through the turn.failed
// event instead.
func reportSubmitError(p *linePrinter, err error) {
	var submitErr *errors.SubmitError
	if errors.As(err, &submitErr) {
		return
	}
	switch {
	case errors.Is(err, errors.ErrSessionErrored):
		p.line("! session disconnected; message not sent")
	case errors.Is(err, errors.ErrEmptyMessage):
	default:
		p.line("! %v", err)
	}
}
