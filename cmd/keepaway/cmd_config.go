package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/serbanrobu/keepaway/internal/config"
)

// configKeys lists every settable key in display order.
var configKeys = []string{
	"simulation.relief",
	"simulation.bounded_rounds",
	"simulation.unbounded_rounds",
	"simulation.max_reentries",
	"simulation.self_target",
	"ledger.enabled",
	"ledger.path",
	"logging.level",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage keepaway configuration",
		Long: `View and modify keepaway configuration settings.

Configuration is stored in ~/.keepaway/config.yaml. KEEPAWAY_* environment
variables override the file when commands run.

Examples:
  keepaway config list                               # Show all settings
  keepaway config get simulation.relief              # Get a specific setting
  keepaway config set simulation.self_target reject  # Set a setting
  keepaway config set ledger.path '${XDG_DATA_HOME}/keepaway/runs.db'`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)
	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Configuration (~/.keepaway/config.yaml):")
			for _, key := range configKeys {
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(w, "  %-28s %v\n", key+":", value)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			// Start from the file alone so environment overrides are not persisted.
			cfg, err := loadConfigFile()
			if err != nil {
				return err
			}
			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// loadConfigFile reads ~/.keepaway/config.yaml without environment
// overrides, falling back to defaults when it does not exist.
func loadConfigFile() (*config.KeepawayConfig, error) {
	path, err := config.Path()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.LoadFromFile(path)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.KeepawayConfig, key string) (any, bool) {
	switch key {
	case "simulation.relief":
		return cfg.Simulation.Relief, true
	case "simulation.bounded_rounds":
		return cfg.Simulation.BoundedRounds, true
	case "simulation.unbounded_rounds":
		return cfg.Simulation.UnboundedRounds, true
	case "simulation.max_reentries":
		return cfg.Simulation.MaxReentries, true
	case "simulation.self_target":
		return cfg.Simulation.SelfTarget, true
	case "ledger.enabled":
		return cfg.Ledger.Enabled, true
	case "ledger.path":
		path, err := cfg.LedgerPath()
		if err != nil {
			return cfg.Ledger.Path, true
		}
		return path, true
	case "logging.level":
		return cfg.Logging.Level, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.KeepawayConfig, key, value string) error {
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %s", key, value)
		}
		return n, nil
	}

	switch key {
	case "simulation.relief":
		cfg.Simulation.Relief = value
	case "simulation.bounded_rounds":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.Simulation.BoundedRounds = n
	case "simulation.unbounded_rounds":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.Simulation.UnboundedRounds = n
	case "simulation.max_reentries":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.Simulation.MaxReentries = n
	case "simulation.self_target":
		cfg.Simulation.SelfTarget = value
	case "ledger.enabled":
		cfg.Ledger.Enabled = value == "true" || value == "1"
	case "ledger.path":
		cfg.Ledger.Path = value
	case "logging.level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
