// Package config manages application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/roboco-io/slabrender/internal/composite"
	"github.com/roboco-io/slabrender/internal/compositor"
	"github.com/roboco-io/slabrender/internal/coverage"
	"github.com/roboco-io/slabrender/internal/raster"
)

// Environment variables that override file values.
const (
	EnvConfig   = "SLABRENDER_CONFIG"
	EnvStrategy = "SLABRENDER_STRATEGY"
	EnvQuality  = "SLABRENDER_QUALITY"
	EnvHistory  = "SLABRENDER_HISTORY"
	EnvLogLevel = "SLABRENDER_LOG_LEVEL"
)

// Config represents the application configuration.
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	Batch   BatchConfig   `yaml:"batch"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// RenderConfig contains compositing options.
type RenderConfig struct {
	Strategy       string  `yaml:"strategy"`
	Quality        int     `yaml:"quality"`
	OutputFormat   string  `yaml:"output_format"`
	MaskFilter     string  `yaml:"mask_filter"`
	TileWidthRatio float64 `yaml:"tile_width_ratio"`
	CoverSlack     float64 `yaml:"cover_slack"`
}

// BatchConfig contains batch execution options.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// HistoryConfig controls the render history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"` // defaults to history.db next to the config file
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	params := coverage.DefaultParams()
	return &Config{
		Render: RenderConfig{
			Strategy:       coverage.Tile.String(),
			Quality:        raster.DefaultQuality,
			OutputFormat:   "jpeg",
			MaskFilter:     composite.Bilinear.String(),
			TileWidthRatio: params.TileWidthRatio,
			CoverSlack:     params.CoverSlack,
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
		History: HistoryConfig{
			Enabled: false,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Validate checks that every value is in range.
func (c *Config) Validate() error {
	if _, err := coverage.ParseStrategy(c.Render.Strategy); err != nil {
		return err
	}
	if c.Render.Quality < 1 || c.Render.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100: %d", c.Render.Quality)
	}
	if _, err := raster.OutputFormat(c.Render.OutputFormat, ""); err != nil {
		return err
	}
	if _, err := composite.ParseMaskFilter(c.Render.MaskFilter); err != nil {
		return err
	}
	if c.Render.TileWidthRatio <= 0 || c.Render.TileWidthRatio > 1 {
		return fmt.Errorf("tile_width_ratio must be in (0, 1]: %g", c.Render.TileWidthRatio)
	}
	if c.Render.CoverSlack < 1 {
		return fmt.Errorf("cover_slack must be at least 1: %g", c.Render.CoverSlack)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch concurrency must be at least 1: %d", c.Batch.Concurrency)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s (supported: debug, info, warn, error)", c.Log.Level)
	}
	return nil
}

// CompositorOptions converts the render section into compositor options.
func (c *Config) CompositorOptions() (compositor.Options, error) {
	strategy, err := coverage.ParseStrategy(c.Render.Strategy)
	if err != nil {
		return compositor.Options{}, err
	}
	filter, err := composite.ParseMaskFilter(c.Render.MaskFilter)
	if err != nil {
		return compositor.Options{}, err
	}
	return compositor.Options{
		Strategy: strategy,
		Coverage: coverage.Params{
			TileWidthRatio: c.Render.TileWidthRatio,
			CoverSlack:     c.Render.CoverSlack,
		},
		MaskFilter:   filter,
		OutputFormat: c.Render.OutputFormat,
		Quality:      c.Render.Quality,
	}, nil
}

// ApplyEnv overrides config values from SLABRENDER_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvStrategy); v != "" {
		c.Render.Strategy = v
	}
	if v := os.Getenv(EnvQuality); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %s", EnvQuality, v)
		}
		c.Render.Quality = q
	}
	if os.Getenv(EnvHistory) != "" {
		c.History.Enabled = GetEnvBool(EnvHistory)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return nil
}

// HistoryPath returns the history database path, defaulting to
// history.db in configDir.
func (c *Config) HistoryPath(configDir string) string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(configDir, HistoryFileName)
}
