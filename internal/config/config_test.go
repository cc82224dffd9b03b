package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/serbanrobu/keepaway/internal/sim"
)

func TestDefault(t *testing.T) {
	config := Default()

	if config.Simulation.Relief != "bounded" {
		t.Errorf("expected Relief 'bounded', got '%s'", config.Simulation.Relief)
	}
	if config.Simulation.BoundedRounds != 20 {
		t.Errorf("expected BoundedRounds 20, got %d", config.Simulation.BoundedRounds)
	}
	if config.Simulation.UnboundedRounds != 10000 {
		t.Errorf("expected UnboundedRounds 10000, got %d", config.Simulation.UnboundedRounds)
	}
	if config.Simulation.MaxReentries != sim.DefaultMaxReentries {
		t.Errorf("expected MaxReentries %d, got %d", sim.DefaultMaxReentries, config.Simulation.MaxReentries)
	}
	if config.Simulation.SelfTarget != "guard" {
		t.Errorf("expected SelfTarget 'guard', got '%s'", config.Simulation.SelfTarget)
	}
	if !config.Ledger.Enabled {
		t.Error("expected Ledger.Enabled to be true by default")
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
simulation:
  relief: unbounded
  unbounded_rounds: 500
  self_target: reject

ledger:
  enabled: false
  path: ${KEEPAWAY_TEST_DIR}/runs.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("KEEPAWAY_TEST_DIR", tmpDir)

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Simulation.Relief != "unbounded" {
		t.Errorf("expected Relief 'unbounded', got '%s'", config.Simulation.Relief)
	}
	if config.Simulation.UnboundedRounds != 500 {
		t.Errorf("expected UnboundedRounds 500, got %d", config.Simulation.UnboundedRounds)
	}
	// Unset keys keep their defaults
	if config.Simulation.BoundedRounds != 20 {
		t.Errorf("expected BoundedRounds 20, got %d", config.Simulation.BoundedRounds)
	}
	if config.Ledger.Enabled {
		t.Error("expected Ledger.Enabled to be false")
	}
	if want := filepath.Join(tmpDir, "runs.db"); config.Ledger.Path != want {
		t.Errorf("expected Ledger.Path %q, got %q", want, config.Ledger.Path)
	}

	policy, err := config.Simulation.SelfTargetPolicy()
	if err != nil || policy != sim.RejectSelfTarget {
		t.Errorf("SelfTargetPolicy() = %v, %v; want reject", policy, err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KEEPAWAY_RELIEF", "unbounded")
	t.Setenv("KEEPAWAY_BOUNDED_ROUNDS", "7")
	t.Setenv("KEEPAWAY_UNBOUNDED_ROUNDS", "not-a-number")
	t.Setenv("KEEPAWAY_MAX_REENTRIES", "0")
	t.Setenv("KEEPAWAY_LEDGER_ENABLED", "0")
	t.Setenv("KEEPAWAY_LOG_LEVEL", "debug")

	config := Default()
	applyEnvOverrides(config)

	if config.Simulation.Relief != "unbounded" {
		t.Errorf("expected Relief 'unbounded', got '%s'", config.Simulation.Relief)
	}
	if config.Simulation.BoundedRounds != 7 {
		t.Errorf("expected BoundedRounds 7, got %d", config.Simulation.BoundedRounds)
	}
	if config.Simulation.UnboundedRounds != 10000 {
		t.Errorf("expected invalid override to be ignored, got %d", config.Simulation.UnboundedRounds)
	}
	if config.Simulation.MaxReentries != 0 {
		t.Errorf("expected MaxReentries 0, got %d", config.Simulation.MaxReentries)
	}
	if config.Ledger.Enabled {
		t.Error("expected Ledger.Enabled to be false")
	}
	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}
}

func TestLoad_UsesHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, DirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("logging:\n  level: trace\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	config, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Logging.Level != "trace" {
		t.Errorf("expected Logging.Level 'trace', got '%s'", config.Logging.Level)
	}

	path, err := config.LedgerPath()
	if err != nil {
		t.Fatalf("LedgerPath: %v", err)
	}
	if want := filepath.Join(dir, "runs.db"); path != want {
		t.Errorf("LedgerPath() = %q, want %q", path, want)
	}
}

func TestSave(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	config := Default()
	config.Simulation.BoundedRounds = 33
	if err := Save(config); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromFile(filepath.Join(home, DirName, "config.yaml"))
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Simulation.BoundedRounds != 33 {
		t.Errorf("expected BoundedRounds 33, got %d", loaded.Simulation.BoundedRounds)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*KeepawayConfig)
	}{
		{"relief", func(c *KeepawayConfig) { c.Simulation.Relief = "gentle" }},
		{"bounded rounds", func(c *KeepawayConfig) { c.Simulation.BoundedRounds = 0 }},
		{"unbounded rounds", func(c *KeepawayConfig) { c.Simulation.UnboundedRounds = -1 }},
		{"max reentries", func(c *KeepawayConfig) { c.Simulation.MaxReentries = -5 }},
		{"self target", func(c *KeepawayConfig) { c.Simulation.SelfTarget = "ignore" }},
		{"log level", func(c *KeepawayConfig) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRoundsFor(t *testing.T) {
	c := Default().Simulation
	if got := c.RoundsFor(sim.Bounded); got != 20 {
		t.Errorf("RoundsFor(Bounded) = %d, want 20", got)
	}
	if got := c.RoundsFor(sim.Unbounded); got != 10000 {
		t.Errorf("RoundsFor(Unbounded) = %d, want 10000", got)
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
simulation:
  relief: [invalid yaml
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestResolve(t *testing.T) {
	c := Default().Simulation

	tests := []struct {
		name       string
		part       int
		relief     string
		rounds     int
		wantRelief sim.Relief
		wantRounds int
		wantErr    bool
	}{
		{"defaults", 0, "", 0, sim.Bounded, 20, false},
		{"part one", 1, "", 0, sim.Bounded, 20, false},
		{"part two", 2, "", 0, sim.Unbounded, 10000, false},
		{"explicit relief", 0, "unbounded", 0, sim.Unbounded, 10000, false},
		{"relief overrides part", 2, "bounded", 0, sim.Bounded, 20, false},
		{"explicit rounds", 2, "", 500, sim.Unbounded, 500, false},
		{"bad part", 3, "", 0, 0, 0, true},
		{"bad relief", 0, "sometimes", 0, 0, 0, true},
		{"negative rounds", 0, "", -1, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relief, rounds, err := c.Resolve(tt.part, tt.relief, tt.rounds)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if relief != tt.wantRelief {
				t.Errorf("relief = %v, want %v", relief, tt.wantRelief)
			}
			if rounds != tt.wantRounds {
				t.Errorf("rounds = %d, want %d", rounds, tt.wantRounds)
			}
		})
	}
}
