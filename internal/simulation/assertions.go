package simulation

import (
	"errors"
	"slices"
	"testing"

	"github.com/serbanrobu/keepaway/internal/sim"
)

// AssertNoError fails the test if the run stopped with an error.
func AssertNoError(t *testing.T, result SimulationResult) {
	t.Helper()
	if result.Err != nil {
		t.Fatalf("%s: simulation failed: %v", result.Name, result.Err)
	}
}

// AssertConserved asserts that the number of queued items at the end of every
// round equals the number held initially.
func AssertConserved(t *testing.T, result SimulationResult) {
	t.Helper()
	want := result.Initial.TotalItems()
	for _, r := range result.Rounds {
		if got := r.Total(); got != want {
			t.Errorf("AssertConserved: %s round %d: %d items queued, want %d", result.Name, r.Index, got, want)
		}
	}
}

// AssertMonotonic asserts that inspection counts never decrease and that
// each round's total increase equals the number of items thrown.
func AssertMonotonic(t *testing.T, result SimulationResult) {
	t.Helper()
	prev := result.Initial.Inspections()
	for _, r := range result.Rounds {
		var delta uint64
		for i, n := range r.Inspections {
			if n < prev[i] {
				t.Errorf("AssertMonotonic: %s round %d: worker %d count fell from %d to %d", result.Name, r.Index, i, prev[i], n)
				continue
			}
			delta += n - prev[i]
		}
		if delta != uint64(r.Throws) {
			t.Errorf("AssertMonotonic: %s round %d: counts rose by %d but %d items were thrown", result.Name, r.Index, delta, r.Throws)
		}
		prev = r.Inspections
	}
}

// AssertNormalized asserts that every queued item is below the common
// modulus at the end of every round.
func AssertNormalized(t *testing.T, result SimulationResult) {
	t.Helper()
	modulus, err := sim.CommonModulus(result.Initial)
	if err != nil {
		t.Fatalf("AssertNormalized: %s: %v", result.Name, err)
	}
	for _, r := range result.Rounds {
		for w, q := range r.Queues {
			for _, v := range q {
				if v >= modulus {
					t.Errorf("AssertNormalized: %s round %d: worker %d holds %d >= modulus %d", result.Name, r.Index, w, v, modulus)
				}
			}
		}
	}
}

// AssertInspections asserts the per-worker counts after the given 1-based round.
func AssertInspections(t *testing.T, result SimulationResult, round int, want []uint64) {
	t.Helper()
	if round < 1 || round > len(result.Rounds) {
		t.Fatalf("AssertInspections: %s: round %d not captured (have %d)", result.Name, round, len(result.Rounds))
	}
	got := result.Rounds[round-1].Inspections
	if !slices.Equal(got, want) {
		t.Errorf("AssertInspections: %s round %d: got %v, want %v", result.Name, round, got, want)
	}
}

// AssertScore asserts the final activity score.
func AssertScore(t *testing.T, result SimulationResult, want uint64) {
	t.Helper()
	AssertNoError(t, result)
	if result.Final.Score != want {
		t.Errorf("AssertScore: %s: score %d, want %d (inspections %v)", result.Name, result.Final.Score, want, result.Final.Inspections)
	}
}

// AssertDeterministic asserts that two runs passed through identical states.
func AssertDeterministic(t *testing.T, a, b SimulationResult) {
	t.Helper()
	if len(a.Rounds) != len(b.Rounds) {
		t.Fatalf("AssertDeterministic: %d rounds vs %d rounds", len(a.Rounds), len(b.Rounds))
	}
	for i := range a.Rounds {
		if a.Rounds[i].Fingerprint != b.Rounds[i].Fingerprint {
			t.Fatalf("AssertDeterministic: runs diverge at round %d", a.Rounds[i].Index)
		}
	}
	if a.Final != nil && b.Final != nil && a.Final.Score != b.Final.Score {
		t.Errorf("AssertDeterministic: scores differ: %d vs %d", a.Final.Score, b.Final.Score)
	}
}

// AssertFailsWith asserts that the run stopped in the given round and worker
// with an error matching target.
func AssertFailsWith(t *testing.T, result SimulationResult, target error, round, worker int) {
	t.Helper()
	if !errors.Is(result.Err, target) {
		t.Fatalf("AssertFailsWith: %s: error %v, want %v", result.Name, result.Err, target)
	}
	var re *sim.RoundError
	if !errors.As(result.Err, &re) {
		t.Fatalf("AssertFailsWith: %s: error %v is not a *sim.RoundError", result.Name, result.Err)
	}
	if re.Round != round || re.Worker != worker {
		t.Errorf("AssertFailsWith: %s: failed at round %d worker %d, want round %d worker %d", result.Name, re.Round, re.Worker, round, worker)
	}
}
