package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Iron-Ham/agentboard/internal/trace"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print a session's activity as it happens",
	Long: `Join an existing session without sending anything and print its activity
line by line: connection changes, streamed answers, traces and agent status
changes. Runs until interrupted.

Examples:
  # Everything that happens in a session
  agentboard watch --session session_1700000000000

  # Only orchestration steps and errors, no answer text
  agentboard watch -s session_1700000000000 --kinds ORCHESTRATION,ERROR --fragments=false`,
	RunE: runWatch,
}

var (
	watchKinds     []string
	watchFragments bool
)

func init() {
	watchCmd.Flags().StringSliceVar(&watchKinds, "kinds", nil, "Glob patterns of trace kinds to print, e.g. '*PROCESSING' (default: watch.kinds, or all)")
	watchCmd.Flags().BoolVar(&watchFragments, "fragments", true, "Print streamed answer text (default: watch.show_fragments)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Session.ID == "" {
		return fmt.Errorf("watch needs an existing session; pass --session")
	}

	kinds := cfg.Watch.Kinds
	if cmd.Flags().Changed("kinds") {
		kinds = watchKinds
	}
	filter, err := trace.NewFilter(kinds)
	if err != nil {
		return err
	}
	fragments := cfg.Watch.ShowFragments
	if cmd.Flags().Changed("fragments") {
		fragments = watchFragments
	}

	rt := newSessionRuntime(cfg, createLogger(cfg, cmd.ErrOrStderr()))
	defer rt.close()
	rt.watchConfig()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchSession(ctx, rt, filter, fragments, cmd.OutOrStdout())
}

// watchSession prints the session's events to out until ctx ends.
func watchSession(ctx context.Context, rt *sessionRuntime, filter *trace.Filter, fragments bool, out io.Writer) error {
	f := newFeed(rt.bus, rt.sessionID, feedTypes(fragments)...)
	defer f.close()
	p := &linePrinter{w: out, mon: rt.monitor, filter: filter}
	defer p.Finish()

	_, _ = fmt.Fprintf(out, "* watching %s", rt.sessionID)
	if s := filter.String(); s != "" {
		_, _ = fmt.Fprintf(out, " (traces: %s)", s)
	}
	_, _ = fmt.Fprintln(out)

	if err := rt.monitor.Start(ctx); err != nil {
		for _, e := range f.drain() {
			p.Print(e)
		}
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.Ready():
			for _, e := range f.drain() {
				p.Print(e)
			}
		}
	}
}
