// Package config provides unified configuration loading for keepaway.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/serbanrobu/keepaway/internal/sim"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user directory holding config, ledger and traces.
const DirName = ".keepaway"

// KeepawayConfig contains all keepaway configuration settings.
type KeepawayConfig struct {
	// Simulation contains defaults for simulation runs.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Ledger configures the run history database.
	Ledger LedgerConfig `json:"ledger" yaml:"ledger"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig holds the defaults applied when a run does not say
// otherwise.
type SimulationConfig struct {
	// Relief is the default relief policy: "bounded" or "unbounded".
	Relief string `json:"relief" yaml:"relief"`

	// BoundedRounds is the default round count for bounded runs.
	BoundedRounds int `json:"bounded_rounds" yaml:"bounded_rounds"`

	// UnboundedRounds is the default round count for unbounded runs.
	UnboundedRounds int `json:"unbounded_rounds" yaml:"unbounded_rounds"`

	// MaxReentries caps how many items a worker may throw to itself within
	// one drain. 0 disables the cap.
	MaxReentries int `json:"max_reentries" yaml:"max_reentries"`

	// SelfTarget is "guard" (allow, bounded by MaxReentries) or "reject".
	SelfTarget string `json:"self_target" yaml:"self_target"`
}

// LedgerConfig configures the SQLite run history.
type LedgerConfig struct {
	// Enabled records every completed CLI run.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the database file. Supports ${VAR} syntax. Empty means
	// ~/.keepaway/runs.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LoggingConfig configures keepaway's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables round tracing to ~/.keepaway/trace.jsonl.
	// "trace" additionally logs every throw.
	Level string `json:"level" yaml:"level"`
}

// ReliefPolicy returns the configured default relief.
func (c SimulationConfig) ReliefPolicy() (sim.Relief, error) {
	return sim.ParseRelief(c.Relief)
}

// RoundsFor returns the default round count for relief.
func (c SimulationConfig) RoundsFor(relief sim.Relief) int {
	if relief == sim.Unbounded {
		return c.UnboundedRounds
	}
	return c.BoundedRounds
}

// Resolve picks relief and round count for one run. part selects a preset
// (1: bounded, 2: unbounded, 0: none). A non-empty relief overrides the preset
// and the configured default; rounds > 0 overrides the default round count.
func (c SimulationConfig) Resolve(part int, relief string, rounds int) (sim.Relief, int, error) {
	var r sim.Relief
	switch part {
	case 0:
		var err error
		if r, err = c.ReliefPolicy(); err != nil {
			return 0, 0, err
		}
	case 1:
		r = sim.Bounded
	case 2:
		r = sim.Unbounded
	default:
		return 0, 0, fmt.Errorf("invalid part %d (must be 1 or 2)", part)
	}

	if relief != "" {
		var err error
		if r, err = sim.ParseRelief(relief); err != nil {
			return 0, 0, err
		}
	}
	if rounds < 0 {
		return 0, 0, fmt.Errorf("invalid rounds %d (must be positive)", rounds)
	}
	if rounds == 0 {
		rounds = c.RoundsFor(r)
	}
	return r, rounds, nil
}

// SelfTargetPolicy returns the configured self-target policy.
func (c SimulationConfig) SelfTargetPolicy() (sim.SelfTargetPolicy, error) {
	return sim.ParseSelfTargetPolicy(c.SelfTarget)
}

// Options converts the simulation settings into simulator options.
func (c SimulationConfig) Options() ([]sim.Option, error) {
	policy, err := c.SelfTargetPolicy()
	if err != nil {
		return nil, err
	}
	return []sim.Option{
		sim.WithMaxReentries(c.MaxReentries),
		sim.WithSelfTargetPolicy(policy),
	}, nil
}

// Default returns a KeepawayConfig with sensible defaults.
func Default() *KeepawayConfig {
	return &KeepawayConfig{
		Simulation: SimulationConfig{
			Relief:          "bounded",
			BoundedRounds:   20,
			UnboundedRounds: 10000,
			MaxReentries:    sim.DefaultMaxReentries,
			SelfTarget:      "guard",
		},
		Ledger: LedgerConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Dir returns ~/.keepaway.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// Path returns the location of the user config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LedgerPath resolves the ledger database location.
func (c *KeepawayConfig) LedgerPath() (string, error) {
	if c.Ledger.Path != "" {
		return c.Ledger.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "runs.db"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.keepaway/config.yaml -> environment variables
func Load() (*KeepawayConfig, error) {
	config := Default()

	configPath, err := Path()
	if err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*KeepawayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Ledger.Path = expandEnvVars(config.Ledger.Path)

	return config, nil
}

// Save writes the configuration to ~/.keepaway/config.yaml.
func Save(cfg *KeepawayConfig) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", DirName, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *KeepawayConfig) Validate() error {
	if _, err := c.Simulation.ReliefPolicy(); err != nil {
		return err
	}

	if c.Simulation.BoundedRounds <= 0 {
		return fmt.Errorf("bounded_rounds must be positive, got %d", c.Simulation.BoundedRounds)
	}
	if c.Simulation.UnboundedRounds <= 0 {
		return fmt.Errorf("unbounded_rounds must be positive, got %d", c.Simulation.UnboundedRounds)
	}

	if c.Simulation.MaxReentries < 0 {
		return fmt.Errorf("max_reentries must be non-negative, got %d", c.Simulation.MaxReentries)
	}

	if _, err := c.Simulation.SelfTargetPolicy(); err != nil {
		return err
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *KeepawayConfig) {
	if v := os.Getenv("KEEPAWAY_RELIEF"); v != "" {
		config.Simulation.Relief = v
	}

	if v := os.Getenv("KEEPAWAY_BOUNDED_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.BoundedRounds = n
		}
	}
	if v := os.Getenv("KEEPAWAY_UNBOUNDED_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.UnboundedRounds = n
		}
	}
	if v := os.Getenv("KEEPAWAY_MAX_REENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.MaxReentries = n
		}
	}

	if v := os.Getenv("KEEPAWAY_SELF_TARGET"); v != "" {
		config.Simulation.SelfTarget = v
	}

	if v := os.Getenv("KEEPAWAY_LEDGER_ENABLED"); v != "" {
		config.Ledger.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("KEEPAWAY_LEDGER_PATH"); v != "" {
		config.Ledger.Path = expandEnvVars(v)
	}

	if v := os.Getenv("KEEPAWAY_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
