package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roboco-io/slabrender/internal/batch"
	"github.com/roboco-io/slabrender/internal/job"
)

var batchJobs int

var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Render every job of a YAML manifest in parallel",
	Long: `Render every job listed in a YAML manifest.

Jobs run in parallel and independently: a failed job does not stop the
others. Relative paths are resolved against the manifest's directory.

Manifest format:
  version: "1"
  defaults:
    strategy: tile
  jobs:
    - id: island
      base: kitchen.jpg
      texture: slabs/calacatta.jpg
      mask: masks/island.png
      output: out/island.jpg
      strategy: cover

Examples:
  slabrender batch jobs.yaml
  slabrender batch jobs.yaml --jobs 8 --quality 90`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	addRenderFlags(batchCmd)
	batchCmd.Flags().IntVarP(&batchJobs, "jobs", "j", 0, "number of parallel jobs (default from config)")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	c, err := newCompositor(cmd)
	if err != nil {
		return err
	}

	concurrency := cfg.Batch.Concurrency
	if cmd.Flags().Changed("jobs") {
		if batchJobs < 1 {
			return fmt.Errorf("--jobs must be at least 1: %d", batchJobs)
		}
		concurrency = batchJobs
	}

	m, err := job.LoadManifest(args[0])
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	out := progress(cmd)
	fmt.Fprintf(out, "📋 Manifest: %s (%d jobs, %d parallel)\n\n", args[0], len(m.Jobs), concurrency)

	store := openHistory()
	if store != nil {
		defer store.Close()
	}

	var mu sync.Mutex
	runner := batch.NewRunner(c, concurrency, logger)
	runner.OnDone(func(o batch.Outcome) {
		if store != nil {
			strategy, _ := m.ResolveStrategy(o.Job, c.Options().Strategy)
			recordRun(cmd.Context(), store, newEntry(o.Job.Request, strategy, o.Started, o.Finished, o.Result, o.Err))
		}

		mu.Lock()
		defer mu.Unlock()
		if o.Err != nil {
			fmt.Fprintf(out, "❌ %s: %s\n", o.Job.ID, describeError(o.Err))
			return
		}
		fmt.Fprintf(out, "✅ %s: %s (%s)\n", o.Job.ID, o.Job.Output, humanize.Bytes(uint64(o.Result.Bytes)))
	})

	started := time.Now()
	outcomes, err := runner.Run(cmd.Context(), m)

	var failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	fmt.Fprintf(out, "\n🏁 %d succeeded, %d failed in %s\n",
		len(outcomes)-failed, failed, time.Since(started).Round(time.Millisecond))

	if err != nil {
		return fmt.Errorf("%d of %d jobs failed: %w", failed, len(outcomes), err)
	}
	return nil
}
