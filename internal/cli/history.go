package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roboco-io/slabrender/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent render runs",
	Long: `Show recent runs from the history database.

Runs are recorded when history is enabled in the config file, with
SLABRENDER_HISTORY=true or with --history.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := cfg.HistoryPath(loader.ConfigDir())
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "No history yet (%s)\n", path)
		return nil
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No history yet (%s)\n", path)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "RUN\tWHEN\tSTATUS\tSTRATEGY\tSIZE\tBYTES\tOUTPUT")
	for _, e := range entries {
		size, bytes := "-", "-"
		status := "✓ " + e.Status
		if e.Status == history.StatusOK {
			size = fmt.Sprintf("%dx%d", e.Width, e.Height)
			bytes = humanize.Bytes(uint64(e.Bytes))
		} else {
			status = "✗ " + e.ErrorKind
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(e.ID), humanize.Time(e.StartedAt), status, e.Strategy, size, bytes, e.Output)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
