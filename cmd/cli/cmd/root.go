// Package cmd - CLI commands for matali
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"matali-pricing/core/engine"
	"matali-pricing/core/output"
	"matali-pricing/internal/config"
	apperrors "matali-pricing/internal/errors"
	"matali-pricing/internal/logging"
	"matali-pricing/internal/metrics"
)

// Version is set at build time with -ldflags "-X matali-pricing/cmd/cli/cmd.Version=..."
var Version = "0.1.0"

// defaultConfigFile is read when --config is not given and the file exists
const defaultConfigFile = "matali.yaml"

var (
	cfgFile      string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "matali",
	Short: "Tiered service pricing and quotes",
	Long: `matali prices fulfillment services from a volume tier table.

It maps service labels to service keys, resolves the tier covering a
quantity, and builds customer quotes with cost and margin.

Examples:
  matali price "ايراد الشحن" 750
  matali tiers validate --file data/pricing_tiers.csv
  matali quote -f request.json --save
  matali serve --addr :8080`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, .yaml or .json (default is ./"+defaultConfigFile+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "cli", "output format (cli, json)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// loadConfig reads --config (or ./matali.yaml), applies MATALI_* overrides and sets up logging
func loadConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	if err := cfg.ApplyEnv(cmd.Context(), nil); err != nil {
		return err
	}
	config.Set(cfg)

	if verbose {
		cfg.Logging.Level = "debug"
	}
	return logging.Initialize(cfg.Logging)
}

// newEngine wires an engine from the global configuration
func newEngine(ctx context.Context, m *metrics.Metrics) (*engine.Engine, error) {
	return engine.New(ctx, config.Get(), engine.Options{
		Metrics: m,
		Logger:  logging.Named("engine"),
	})
}

// render writes v to stdout in the --format format
func render(v any) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	f, err := output.New(format)
	if err != nil {
		return err
	}
	return f.Render(os.Stdout, v)
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("matali version %s\n", Version)
	},
}

// configCmd manages configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (file, then MATALI_* environment)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if err := cfg.Validate(); err != nil {
			return err
		}
		if outputFormat == string(output.FormatJSON) {
			return render(cfg)
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultConfigFile
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return apperrors.Newf(apperrors.TypeInput, "%s already exists", path)
		}

		cfg := config.Default()
		cfg.Data.ServicesPath = filepath.Join("data", "services.hcl")
		if err := cfg.Save(path); err != nil {
			return apperrors.Config("write "+path, err)
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}
