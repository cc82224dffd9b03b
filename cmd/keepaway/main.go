package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/serbanrobu/keepaway/internal/config"
	"github.com/serbanrobu/keepaway/internal/ledger"
	"github.com/serbanrobu/keepaway/internal/logging"
)

// Set via -ldflags at build time.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "keepaway",
		Short: "Keep-away simulation of workers passing stressed items",
		Long: `keepaway simulates workers that inspect, transform and throw items to
each other in rounds, then reports the product of the two busiest
workers' inspection counts.

Worker notes are read from the "Monkey N:" text format or from YAML.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.keepaway/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newValidateCmd(),
		newHistoryCmd(),
		newGraphCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

// loadSettings reads the --config file if given, otherwise the default
// locations, and validates the result.
func loadSettings(cmd *cobra.Command) (*config.KeepawayConfig, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.KeepawayConfig
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openLedger opens the run history, or returns nil if it is disabled.
func openLedger(cfg *config.KeepawayConfig) (*ledger.Ledger, error) {
	if !cfg.Ledger.Enabled {
		return nil, nil
	}
	path, err := cfg.LedgerPath()
	if err != nil {
		return nil, err
	}
	return ledger.Open(path)
}

func newLogger(cfg *config.KeepawayConfig, w io.Writer) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, w)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
