package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/hcpdash/internal/config"
	"github.com/KaramelBytes/hcpdash/internal/logging"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "hcpdash",
	Short: "hcpdash: provider encounter analytics over uploaded spreadsheets",
	Long: `hcpdash normalizes provider encounter exports (Excel or CSV) onto a canonical schema,
then filters and aggregates them. Run "hcpdash serve" for the password-gated dashboard API,
or "hcpdash normalize" / "hcpdash report" to run the same pipeline over local files.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.hcpdash/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to defaults via currentConfig
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
	} else {
		cfg = c
	}
	initLogging()
}

func initLogging() {
	level, pretty := "info", false
	if cfg != nil {
		level, pretty = cfg.LogLevel, cfg.LogPretty
	}
	if debug {
		level = "debug"
	}
	logging.Init(level, pretty)
}

// currentConfig returns the loaded configuration, loading it on demand.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}
