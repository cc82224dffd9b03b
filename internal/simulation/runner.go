package simulation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/serbanrobu/keepaway/internal/ledger"
	"github.com/serbanrobu/keepaway/internal/sim"
)

// Runner orchestrates simulation experiments against the real scheduler and
// an isolated run ledger.
type Runner struct {
	t      *testing.T
	ledger *ledger.Ledger
}

// NewRunner creates a runner with an isolated ledger and sandboxed HOME.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	l, err := ledger.Open(filepath.Join(tmpDir, "runs.db"))
	if err != nil {
		t.Fatalf("NewRunner: failed to open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	return &Runner{t: t, ledger: l}
}

// Ledger returns the runner's ledger.
func (r *Runner) Ledger() *ledger.Ledger {
	return r.ledger
}

// Run executes the scenario and returns the collected results. Simulator
// errors are returned in SimulationResult.Err, so scenarios can assert on
// them; scenario construction errors fail the test.
func (r *Runner) Run(scenario Scenario) SimulationResult {
	r.t.Helper()

	reg, err := scenario.Registry()
	if err != nil {
		r.t.Fatalf("Run(%s): building registry: %v", scenario.Name, err)
	}
	if scenario.Rounds <= 0 {
		r.t.Fatalf("Run(%s): rounds must be positive, got %d", scenario.Name, scenario.Rounds)
	}

	result := SimulationResult{Name: scenario.Name, Initial: reg.Clone()}

	rec := &recorder{}
	opts := append([]sim.Option{}, scenario.Options...)
	var obs sim.Observer = rec
	if scenario.Observer != nil {
		obs = sim.Observers{rec, scenario.Observer}
	}
	opts = append(opts, sim.WithObserver(obs))

	s, err := sim.New(reg, scenario.Relief, opts...)
	if err != nil {
		result.Err = err
		return result
	}

	result.Rounds = make([]RoundSnapshot, 0, scenario.Rounds)
	for i := 1; i <= scenario.Rounds; i++ {
		if scenario.BeforeRound != nil {
			scenario.BeforeRound(i, s.Registry())
		}
		rec.reset()
		if err := s.Round(); err != nil {
			result.Err = err
			return result
		}
		result.Rounds = append(result.Rounds, snapshot(i, s.Registry(), rec))
	}

	result.Final = s.Result()
	if scenario.Record {
		run := ledger.NewRun(scenario.Name, result.Final)
		if err := r.ledger.Record(context.Background(), run); err != nil {
			r.t.Fatalf("Run(%s): recording run: %v", scenario.Name, err)
		}
		result.RunID = run.ID
	}
	return result
}

func snapshot(index int, reg *sim.Registry, rec *recorder) RoundSnapshot {
	queues := make([][]sim.Item, reg.Len())
	for i, w := range reg.Workers {
		queues[i] = append([]sim.Item{}, w.Items...)
	}
	return RoundSnapshot{
		Index:       index,
		Inspections: reg.Inspections(),
		Queues:      queues,
		Throws:      rec.throws,
		SelfThrows:  rec.selfThrows,
		Fingerprint: sim.Fingerprint(reg),
	}
}

// recorder counts throws within the current round.
type recorder struct {
	throws     int
	selfThrows int
}

func (r *recorder) reset() {
	r.throws, r.selfThrows = 0, 0
}

func (r *recorder) ItemThrown(_, from, to int, _, _ sim.Item) {
	r.throws++
	if from == to {
		r.selfThrows++
	}
}

func (r *recorder) RoundCompleted(int, *sim.Registry) {}
