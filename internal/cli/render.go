package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roboco-io/slabrender/internal/compositor"
	"github.com/roboco-io/slabrender/internal/coverage"
	"github.com/roboco-io/slabrender/internal/history"
	"github.com/roboco-io/slabrender/internal/raster"
)

var renderFlags struct {
	strategy   string
	quality    int
	format     string
	maskFilter string
	tileRatio  float64
	coverSlack float64
	history    bool
}

var renderCmd = &cobra.Command{
	Use:   "render <base> <texture> <mask> <output>",
	Short: "Render a slab texture onto a masked region (same as the root command)",
	Long: `Render a slab texture onto the region of the base image selected by the mask.

The output has the size of the base image. A mask of a different size is
resized to the base first.

Examples:
  slabrender render kitchen.jpg slab.jpg mask.png final_render.jpg
  slabrender render kitchen.jpg slab.jpg mask.png out.png --format auto
  slabrender render kitchen.jpg slab.jpg mask.png out.jpg -s cover --cover-slack 1.2`,
	Args: cobra.ExactArgs(4),
	RunE: runRender,
}

func init() {
	addRenderFlags(renderCmd)
	rootCmd.AddCommand(renderCmd)
}

// addRenderFlags registers the compositing flags on cmd. Flags left unset
// fall back to the environment, then the config file.
func addRenderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&renderFlags.strategy, "strategy", "s", "", "coverage strategy: tile, cover, stretch")
	f.IntVarP(&renderFlags.quality, "quality", "q", raster.DefaultQuality, "JPEG quality (1-100)")
	f.StringVar(&renderFlags.format, "format", "", "output format: jpeg, png, auto")
	f.StringVar(&renderFlags.maskFilter, "mask-filter", "", "mask resize filter: bilinear, nearest")
	f.Float64Var(&renderFlags.tileRatio, "tile-ratio", coverage.DefaultParams().TileWidthRatio, "tile width as a fraction of the base width")
	f.Float64Var(&renderFlags.coverSlack, "cover-slack", coverage.DefaultParams().CoverSlack, "extra scale factor for the cover strategy")
	f.BoolVar(&renderFlags.history, "history", false, "record the run in the history database")
}

func applyRenderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("strategy") {
		cfg.Render.Strategy = renderFlags.strategy
	}
	if f.Changed("quality") {
		cfg.Render.Quality = renderFlags.quality
	}
	if f.Changed("format") {
		cfg.Render.OutputFormat = renderFlags.format
	}
	if f.Changed("mask-filter") {
		cfg.Render.MaskFilter = renderFlags.maskFilter
	}
	if f.Changed("tile-ratio") {
		cfg.Render.TileWidthRatio = renderFlags.tileRatio
	}
	if f.Changed("cover-slack") {
		cfg.Render.CoverSlack = renderFlags.coverSlack
	}
	if f.Changed("history") {
		cfg.History.Enabled = renderFlags.history
	}
}

func newCompositor(cmd *cobra.Command) (*compositor.Compositor, error) {
	applyRenderFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	opts, err := cfg.CompositorOptions()
	if err != nil {
		return nil, err
	}
	return compositor.New(opts, logger), nil
}

func runRender(cmd *cobra.Command, args []string) error {
	c, err := newCompositor(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	req := compositor.Request{Base: args[0], Texture: args[1], Mask: args[2], Output: args[3]}
	out := progress(cmd)

	fmt.Fprintf(out, "🏠 Base image: %s\n", req.Base)
	fmt.Fprintf(out, "🪨 Texture image: %s\n", req.Texture)
	fmt.Fprintf(out, "🎭 Mask image: %s\n", req.Mask)
	fmt.Fprintf(out, "📸 Output will be saved to: %s\n", req.Output)
	fmt.Fprintf(out, "\n🔄 Processing (%s coverage)...\n", c.Options().Strategy)

	started := time.Now()
	res, err := c.Render(req)

	if store := openHistory(); store != nil {
		recordRun(cmd.Context(), store, newEntry(req, c.Options().Strategy, started, time.Now(), res, err))
		store.Close()
	}

	if err != nil {
		fmt.Fprintln(out, "\n❌ FAILED!")
		return renderFailure(err)
	}

	fmt.Fprintf(out, "\n✅ DONE! %dx%d %s, %s in %s\n",
		res.Width, res.Height, res.Format, humanize.Bytes(uint64(res.Bytes)), res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "📁 Output saved to: %s\n", req.Output)
	return nil
}

func progress(cmd *cobra.Command) io.Writer {
	if quiet {
		return io.Discard
	}
	return cmd.OutOrStdout()
}

// renderError carries a user-facing message for a compositor failure.
type renderError struct {
	msg string
	err error
}

func (e *renderError) Error() string { return e.msg }
func (e *renderError) Unwrap() error { return e.err }

func renderFailure(err error) error {
	return &renderError{msg: describeError(err), err: err}
}

// describeError maps each compositor error kind to its own message.
func describeError(err error) string {
	var ce *compositor.Error
	if !errors.As(err, &ce) {
		return err.Error()
	}

	var what string
	switch ce.Kind {
	case compositor.KindInputNotFound:
		what = "input file not found"
	case compositor.KindDecode:
		what = "input file is not a readable image"
	case compositor.KindProcessing:
		what = "compositing failed"
	case compositor.KindEncode:
		what = "could not write output image"
	default:
		return err.Error()
	}
	if ce.Path != "" {
		return fmt.Sprintf("%s: %s (%v)", what, ce.Path, ce.Err)
	}
	return fmt.Sprintf("%s during %s: %v", what, ce.Stage, ce.Err)
}

// openHistory opens the history store when recording is enabled. Failures
// are logged and disable recording.
func openHistory() *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	path := cfg.HistoryPath(loader.ConfigDir())
	store, err := history.Open(path)
	if err != nil {
		logger.Warn("history disabled", zap.String("path", path), zap.Error(err))
		return nil
	}
	return store
}

func newEntry(req compositor.Request, strategy coverage.Strategy, started, finished time.Time, res *compositor.Result, err error) history.Entry {
	e := history.NewEntry(started)
	e.Base, e.Texture, e.Mask, e.Output = req.Base, req.Texture, req.Mask, req.Output
	e.Strategy = strategy.String()
	e.Duration = finished.Sub(started)
	if err != nil {
		e.Status = history.StatusFailed
		e.ErrorKind = compositor.KindOf(err).String()
		e.Error = err.Error()
		return e
	}
	e.Status = history.StatusOK
	e.Width, e.Height, e.Bytes = res.Width, res.Height, res.Bytes
	e.Strategy = res.Strategy.String()
	e.Duration = res.Elapsed
	return e
}

func recordRun(ctx context.Context, store *history.Store, e history.Entry) {
	if err := store.Record(ctx, e); err != nil {
		logger.Warn("failed to record run", zap.String("id", e.ID), zap.Error(err))
		return
	}
	logger.Debug("run recorded", zap.String("id", e.ID), zap.String("db", store.Path()))
}
