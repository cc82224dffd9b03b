package simulation_test

import (
	"testing"

	"github.com/serbanrobu/keepaway/internal/sim"
	"github.com/serbanrobu/keepaway/internal/simulation"
)

// TestOrderingSameRoundDelivery validates that items thrown to a higher
// worker are drained by it in the same round, while items thrown to a lower
// worker wait for the next round.
//
// Setup: worker 0 holds two items and always throws to worker 2; worker 2
// always throws back to worker 1, which throws to worker 0.
// Expected after round 1: worker 2 inspected both items, worker 1 none, and
// worker 1 holds both items.
func TestOrderingSameRoundDelivery(t *testing.T) {
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name: "same-round-delivery",
		Workers: []simulation.WorkerSpec{
			{Items: []uint64{1, 2}, Op: "old + 0", Divisor: 1, IfTrue: 2, IfFalse: 2},
			{Op: "old + 0", Divisor: 1, IfTrue: 0, IfFalse: 0},
			{Op: "old + 0", Divisor: 1, IfTrue: 1, IfFalse: 1},
		},
		Relief: sim.Unbounded,
		Rounds: 3,
	})
	simulation.AssertNoError(t, result)

	simulation.AssertInspections(t, result, 1, []uint64{2, 0, 2})
	if got := result.Rounds[0].Queues[1]; len(got) != 2 {
		t.Errorf("worker 1 queue after round 1 = %v, want both items", got)
	}

	// Round 2: worker 0 is empty when it drains, so worker 1 throws to it
	// and the items stay there until round 3.
	simulation.AssertInspections(t, result, 2, []uint64{2, 2, 2})
	simulation.AssertInspections(t, result, 3, []uint64{4, 2, 4})
	simulation.AssertConserved(t, result)
}

// TestOrderingSensitivity checks that reversing the routing direction of an
// otherwise identical population changes how often items are inspected.
func TestOrderingSensitivity(t *testing.T) {
	r := simulation.NewRunner(t)

	forward := r.Run(simulation.Scenario{
		Name: "forward",
		Workers: []simulation.WorkerSpec{
			{Items: []uint64{5}, Op: "old + 1", Divisor: 1, IfTrue: 1, IfFalse: 1},
			{Op: "old + 1", Divisor: 1, IfTrue: 0, IfFalse: 0},
		},
		Relief: sim.Unbounded,
		Rounds: 4,
	})
	backward := r.Run(simulation.Scenario{
		Name: "backward",
		Workers: []simulation.WorkerSpec{
			{Op: "old + 1", Divisor: 1, IfTrue: 1, IfFalse: 1},
			{Items: []uint64{5}, Op: "old + 1", Divisor: 1, IfTrue: 0, IfFalse: 0},
		},
		Relief: sim.Unbounded,
		Rounds: 4,
	})
	simulation.AssertNoError(t, forward)
	simulation.AssertNoError(t, backward)

	// Forward: the item crosses both workers every round.
	simulation.AssertInspections(t, forward, 4, []uint64{4, 4})
	// Backward: worker 1 throws down to worker 0, which already drained.
	simulation.AssertInspections(t, backward, 4, []uint64{3, 4})
}
