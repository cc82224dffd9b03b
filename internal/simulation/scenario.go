package simulation

import (
	"fmt"

	"github.com/serbanrobu/keepaway/internal/notes"
	"github.com/serbanrobu/keepaway/internal/sim"
)

// Scenario defines a complete simulation experiment. Exactly one of Workers
// and Notes should be set.
type Scenario struct {
	Name    string
	Workers []WorkerSpec
	Notes   string // plain-text notes, parsed with notes.ParseString
	Relief  sim.Relief
	Rounds  int
	Options []sim.Option

	// Observer, when non-nil, receives scheduling events alongside the
	// runner's own recorder. Options must not set an observer themselves.
	Observer sim.Observer

	// Record stores the final result in the runner's ledger.
	Record bool

	// BeforeRound, when non-nil, is called with the 1-based round number and
	// the live registry before the round executes. It must not mutate the
	// registry.
	BeforeRound func(round int, reg *sim.Registry)
}

// WorkerSpec is a flat builder for one worker. Op uses the notes syntax,
// e.g. "old * 19" or "old + 6".
type WorkerSpec struct {
	Items   []uint64
	Op      string
	Divisor uint64
	IfTrue  int
	IfFalse int
}

// ToWorker converts a WorkerSpec into a sim.Worker.
func (s WorkerSpec) ToWorker() (*sim.Worker, error) {
	op, err := notes.ParseOperation(s.Op)
	if err != nil {
		return nil, fmt.Errorf("operation %q: %w", s.Op, err)
	}
	return &sim.Worker{
		Items:     append([]sim.Item{}, s.Items...),
		Operation: op,
		Test:      sim.Test{Divisor: s.Divisor, IfTrue: s.IfTrue, IfFalse: s.IfFalse},
	}, nil
}

// Registry builds the scenario's initial registry.
func (sc Scenario) Registry() (*sim.Registry, error) {
	if sc.Notes != "" {
		return notes.ParseString(sc.Notes)
	}
	workers := make([]*sim.Worker, len(sc.Workers))
	for i, spec := range sc.Workers {
		w, err := spec.ToWorker()
		if err != nil {
			return nil, fmt.Errorf("worker %d: %w", i, err)
		}
		workers[i] = w
	}
	return sim.NewRegistry(workers...), nil
}

// RoundSnapshot captures the registry state at the end of one round.
type RoundSnapshot struct {
	Index       int // 1-based round number
	Inspections []uint64
	Queues      [][]sim.Item
	Throws      int // items thrown during the round
	SelfThrows  int // items a worker threw to itself during the round
	Fingerprint uint64
}

// Total returns the number of queued items.
func (r RoundSnapshot) Total() int {
	n := 0
	for _, q := range r.Queues {
		n += len(q)
	}
	return n
}

// SimulationResult captures every round plus the final outcome.
type SimulationResult struct {
	Name    string
	Initial *sim.Registry
	Rounds  []RoundSnapshot
	Final   *sim.Result
	Err     error  // first error returned by the simulator, if any
	RunID   string // ledger id when Scenario.Record was set
}

// Last returns the final round snapshot.
func (r SimulationResult) Last() RoundSnapshot {
	if len(r.Rounds) == 0 {
		return RoundSnapshot{}
	}
	return r.Rounds[len(r.Rounds)-1]
}
