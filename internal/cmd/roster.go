package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Iron-Ham/agentboard/internal/roster"
	"github.com/Iron-Ham/agentboard/internal/util"
	"github.com/spf13/cobra"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "List the agents the backend exposes",
	Long: `Fetch the agent directory from the backend and list its agents in board
order: the manager first, then collaborators by name.`,
	RunE: runRoster,
}

var rosterJSON bool

func init() {
	rosterCmd.Flags().BoolVar(&rosterJSON, "json", false, "Print the roster as JSON")
}

func runRoster(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := createLogger(cfg, cmd.ErrOrStderr())
	defer func() { _ = logger.Close() }()

	client := cfg.RosterClient()
	client.Logger = logger
	r, err := client.Lookup(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load roster from %s: %w", cfg.Backend.BaseURL, err)
	}

	if rosterJSON {
		return writeRosterJSON(cmd.OutOrStdout(), r)
	}
	return writeRosterTable(cmd.OutOrStdout(), r)
}

type rosterEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description,omitempty"`
}

func writeRosterJSON(w io.Writer, r roster.Roster) error {
	entries := make([]rosterEntry, 0, r.Len())
	for _, a := range r.Agents() {
		entries = append(entries, rosterEntry{ID: a.ID, Name: a.Name, Role: string(a.Role), Description: a.Description})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func writeRosterTable(w io.Writer, r roster.Roster) error {
	if r.IsEmpty() {
		_, err := fmt.Fprintln(w, "No agents available.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ROLE\tID\tNAME\tDESCRIPTION")
	for _, a := range r.Agents() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Role, a.ID, a.Name, util.Summarize(a.Description, 60))
	}
	return tw.Flush()
}
