package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roboco-io/slabrender/internal/coverage"
)

type strategyInfo struct {
	Aliases     string
	Parameter   string
	Description string
}

var strategyDetails = map[string]strategyInfo{
	coverage.Tile.String(): {
		Parameter:   "tile_width_ratio",
		Description: "Repeat the texture in a grid of tiles, centre-cropped",
	},
	coverage.ScaleToCover.String(): {
		Aliases:     "scale, scale-to-cover",
		Parameter:   "cover_slack",
		Description: "Scale the texture uniformly past the base size, centre-cropped",
	},
	coverage.Stretch.String(): {
		Description: "Resize the texture to the base size, ignoring aspect ratio",
	},
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List coverage strategies",
	Long: `List the strategies that fill the base image with the texture before masking.

Examples:
  slabrender kitchen.jpg slab.jpg mask.png out.jpg --strategy cover
  SLABRENDER_STRATEGY=stretch slabrender kitchen.jpg slab.jpg mask.png out.jpg`,
	// The listing is static; a broken config only loses the default mark.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setup(cmd, args); err != nil {
			cfg = nil
			logger = zap.NewNop()
		}
		return nil
	},
	Run: runStrategies,
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func runStrategies(cmd *cobra.Command, args []string) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "STRATEGY\tDEFAULT\tALIASES\tPARAMETER\tDESCRIPTION")
	fmt.Fprintln(w, "--------\t-------\t-------\t---------\t-----------")

	for _, name := range coverage.List() {
		info := strategyDetails[name]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			name, defaultMark(name), dash(info.Aliases), dash(info.Parameter), info.Description)
	}
}

func defaultMark(name string) string {
	if cfg == nil {
		return ""
	}
	if s, err := coverage.ParseStrategy(cfg.Render.Strategy); err == nil && s.String() == name {
		return "✓"
	}
	return ""
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
