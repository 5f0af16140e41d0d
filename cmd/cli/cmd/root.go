// Package cmd provides the CLI commands for apparel-pricing.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"apparel-pricing/core/ui"
	"apparel-pricing/internal/config"
	"apparel-pricing/internal/logging"
)

// Version is set at build time with -ldflags
var Version = "0.1.0"

var (
	cfgFile     string
	catalogPath string
	verbose     bool
	noColor     bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "apparel-pricing",
	Short: "Price decorated apparel orders",
	Long: `apparel-pricing quotes decorated garments: embroidery, caps, screen print,
DTG and laser engraving, using tiered quantity pricing.

Examples:
  apparel-pricing lines
  apparel-pricing tiers --line embroidery
  apparel-pricing price --line embroidery --order order.json
  apparel-pricing quote save --line embroidery --order order.json --customer "Acme Rowing"`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (JSON; environment and .env override it)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "product-line catalog file or directory (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(linesCmd)
	rootCmd.AddCommand(tiersCmd)
	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(quoteCmd)
}

func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	config.Set(cfg)

	// Initialize logging
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// newWriter returns a UI writer honouring --no-color and --verbose
func newWriter(out io.Writer) *ui.Writer {
	w := ui.NewWriter(out, noColor)
	if verbose {
		w.SetVerbosity(2)
	}
	return w
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "apparel-pricing version %s\n", Version)
	},
}
