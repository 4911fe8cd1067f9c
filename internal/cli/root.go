// Package cli implements the slabrender command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roboco-io/slabrender/internal/config"
)

var version = "dev"

var (
	configFile string
	verbose    bool
	quiet      bool

	loader *config.Loader
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "slabrender <base> <texture> <mask> <output>",
	Short: "Render a stone slab texture onto a masked region of a photo",
	Long: `slabrender replaces the region of a base photo selected by a mask with a
stone slab texture.

The texture is tiled (default), scaled to cover or stretched to the size of
the base image, the mask becomes its alpha channel and the result is blended
over the base and saved as JPEG (quality 95) unless configured otherwise.

Mask values: 255 replaces, 0 keeps the base, anything between blends.

Environment variables:
  SLABRENDER_CONFIG     config file path
  SLABRENDER_STRATEGY   coverage strategy (tile, cover, stretch)
  SLABRENDER_QUALITY    JPEG quality (1-100)
  SLABRENDER_HISTORY    record runs in the history database (true/false)
  SLABRENDER_LOG_LEVEL  log level (debug, info, warn, error)

Examples:
  slabrender kitchen.jpg slab.jpg mask.png final_render.jpg
  slabrender kitchen.jpg slab.jpg mask.png out.jpg --strategy cover
  slabrender batch jobs.yaml --jobs 8`,
	Args:              cobra.ExactArgs(4),
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runRender,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	// Needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "slabrender %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.slabrender/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress progress output")
	addRenderFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx. Cancelling ctx stops batch
// jobs that have not started yet.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// setup loads the configuration and builds the logger for every command
// except config and version, which must work with a broken config file.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	loader, err = newLoader()
	if err != nil {
		return err
	}

	cfg, err = loader.Load()
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}

	logger, err = newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded",
		zap.String("path", loader.ConfigPath()),
		zap.Bool("file", loader.Exists()))
	return nil
}

func newLoader() (*config.Loader, error) {
	if configFile != "" {
		return config.NewLoaderWithPath(configFile), nil
	}
	return config.NewLoader()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.WarnLevel
	if level != "" {
		var err error
		if lvl, err = zapcore.ParseLevel(level); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}
