package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roboco-io/slabrender/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage slabrender configuration.

Config file: ~/.slabrender/config.yaml (override with --config or SLABRENDER_CONFIG)

Subcommands:
  show    show the current configuration
  init    create a default config file
  set     change a value
  path    print the config file path`,
	// Replaces the root setup so a broken config file can still be inspected
	// and fixed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		loader, err = newLoader()
		return err
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current configuration",
	Long: `Show the configuration file contents merged over the defaults.

Environment variable overrides are listed below the file values.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long: `Create a config file with default values.

Fails if the file already exists unless --force is given.`,
	RunE: runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a configuration value",
	Long: `Change a configuration value.

Supported keys:
  render.strategy          tile, cover, stretch
  render.quality           JPEG quality (1-100)
  render.output_format     jpeg, png, auto
  render.mask_filter       bilinear, nearest
  render.tile_width_ratio  tile width as a fraction of the base width (0-1]
  render.cover_slack       extra scale factor for cover (>= 1)
  batch.concurrency        parallel batch jobs
  history.enabled          true, false
  history.path             history database path
  log.level                debug, info, warn, error

Examples:
  slabrender config set render.strategy cover
  slabrender config set render.quality 90`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), loader.ConfigPath())
	},
}

var configForce bool

var configKeys = []string{
	"render.strategy", "render.quality", "render.output_format", "render.mask_filter",
	"render.tile_width_ratio", "render.cover_slack", "batch.concurrency",
	"history.enabled", "history.path", "log.level",
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	c, err := loader.LoadRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	if loader.Exists() {
		fmt.Fprintf(out, "Config file: %s\n\n", loader.ConfigPath())
	} else {
		fmt.Fprintf(out, "Config file: (defaults)\n\n")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to print config: %w", err)
	}
	fmt.Fprintln(out, string(data))

	fmt.Fprintln(out, "Environment:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	envVars := []struct {
		key  string
		desc string
	}{
		{config.EnvConfig, "config file path"},
		{config.EnvStrategy, "coverage strategy"},
		{config.EnvQuality, "JPEG quality"},
		{config.EnvHistory, "record runs"},
		{config.EnvLogLevel, "log level"},
	}
	for _, ev := range envVars {
		value := os.Getenv(ev.key)
		if value == "" {
			value = "(unset)"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", ev.key, ev.desc, value)
	}
	return w.Flush()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if loader.Exists() && !configForce {
		return fmt.Errorf("config file already exists: %s\nuse --force to overwrite", loader.ConfigPath())
	}

	if err := loader.Save(config.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config file created: %s\n", loader.ConfigPath())
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	if !contains(configKeys, key) {
		return fmt.Errorf("unknown config key: %s\nsupported keys: %s", key, strings.Join(configKeys, ", "))
	}

	c, err := loader.LoadRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := setConfigValue(c, key, value); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := loader.Save(c); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config updated: %s = %s\n", key, value)
	return nil
}

func setConfigValue(c *config.Config, key, value string) error {
	switch key {
	case "render.strategy":
		c.Render.Strategy = value
	case "render.output_format":
		c.Render.OutputFormat = value
	case "render.mask_filter":
		c.Render.MaskFilter = value
	case "history.path":
		c.History.Path = value
	case "log.level":
		c.Log.Level = value

	case "render.quality", "batch.concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %s", key, value)
		}
		if key == "render.quality" {
			c.Render.Quality = n
		} else {
			c.Batch.Concurrency = n
		}

	case "render.tile_width_ratio", "render.cover_slack":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number: %s", key, value)
		}
		if key == "render.tile_width_ratio" {
			c.Render.TileWidthRatio = f
		} else {
			c.Render.CoverSlack = f
		}

	case "history.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false: %s", key, value)
		}
		c.History.Enabled = b

	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
