package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRun_BoundedReference(t *testing.T) {
	res, err := Run(exampleRegistry(), 20, Bounded)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Score != 10605 {
		t.Errorf("Score = %d, want 10605", res.Score)
	}
	if diff := cmp.Diff([]uint64{101, 95, 7, 105}, res.Inspections); diff != "" {
		t.Errorf("Inspections mismatch (-want +got):\n%s", diff)
	}
	if res.Rounds != 20 {
		t.Errorf("Rounds = %d, want 20", res.Rounds)
	}
}

func TestRun_UnboundedReference(t *testing.T) {
	res, err := Run(exampleRegistry(), 10000, Unbounded)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Score != 2713310158 {
		t.Errorf("Score = %d, want 2713310158", res.Score)
	}
	if diff := cmp.Diff([]uint64{52166, 47830, 1938, 52013}, res.Inspections); diff != "" {
		t.Errorf("Inspections mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_UnboundedEarlyRounds(t *testing.T) {
	tests := []struct {
		rounds int
		want   []uint64
	}{
		{1, []uint64{2, 4, 3, 6}},
		{20, []uint64{99, 97, 8, 103}},
		{1000, []uint64{5204, 4792, 199, 5192}},
	}
	for _, tt := range tests {
		res, err := Run(exampleRegistry(), tt.rounds, Unbounded)
		if err != nil {
			t.Fatalf("Run(%d): %v", tt.rounds, err)
		}
		if diff := cmp.Diff(tt.want, res.Inspections); diff != "" {
			t.Errorf("after %d rounds (-want +got):\n%s", tt.rounds, diff)
		}
	}
}

func TestRound_DrainsItemsReceivedThisRound(t *testing.T) {
	s, err := New(exampleRegistry(), Bounded)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Round(); err != nil {
		t.Fatalf("Round: %v", err)
	}

	reg := s.Registry()
	// Worker 3 started with one item and inspected the four thrown to it by
	// workers 0 and 2 earlier in the same round.
	if diff := cmp.Diff([]uint64{2, 4, 3, 5}, reg.Inspections()); diff != "" {
		t.Errorf("Inspections mismatch (-want +got):\n%s", diff)
	}

	wantQueues := [][]Item{
		{20, 23, 27, 26},
		{2080, 25, 167, 207, 401, 1046},
		{},
		{},
	}
	for i, w := range reg.Workers {
		got := append([]Item{}, w.Items...)
		if diff := cmp.Diff(wantQueues[i], got); diff != "" {
			t.Errorf("worker %d queue (-want +got):\n%s", i, diff)
		}
	}
}

func TestRun_LeavesInputUntouched(t *testing.T) {
	reg := exampleRegistry()
	before := reg.Clone()
	if _, err := Run(reg, 5, Unbounded); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff(before, reg); diff != "" {
		t.Errorf("input registry changed (-before +after):\n%s", diff)
	}
}

func TestRun_Deterministic(t *testing.T) {
	reg := exampleRegistry()
	a, err := Run(reg, 300, Unbounded)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	b, err := Run(reg, 300, Unbounded)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}
	if a.Fingerprint != Fingerprint(b.Registry) {
		t.Errorf("fingerprint %x does not match registry %x", a.Fingerprint, Fingerprint(b.Registry))
	}
}

func TestRun_ReliefModesDiffer(t *testing.T) {
	bounded, err := Run(exampleRegistry(), 20, Bounded)
	if err != nil {
		t.Fatalf("bounded Run: %v", err)
	}
	unbounded, err := Run(exampleRegistry(), 20, Unbounded)
	if err != nil {
		t.Fatalf("unbounded Run: %v", err)
	}
	if bounded.Fingerprint == unbounded.Fingerprint {
		t.Error("expected relief policies to produce different final states")
	}
}

// selfThrowRegistry has worker 0 keep even values for itself.
func selfThrowRegistry() *Registry {
	return NewRegistry(
		&Worker{
			Items:     []Item{1},
			Operation: Operation{Kind: Add, Operand: ConstOperand(1)},
			Test:      Test{Divisor: 2, IfTrue: 0, IfFalse: 1},
		},
		&Worker{
			Operation: Operation{Kind: Multiply, Operand: ConstOperand(1)},
			Test:      Test{Divisor: 3, IfTrue: 0, IfFalse: 0},
		},
	)
}

func TestRound_SelfThrowReentersSameDrain(t *testing.T) {
	s, err := New(selfThrowRegistry(), Unbounded)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Round(); err != nil {
		t.Fatalf("Round: %v", err)
	}
	reg := s.Registry()
	// 1 -> 2 stays with worker 0, 2 -> 3 goes to worker 1, which sends it back.
	if diff := cmp.Diff([]uint64{2, 1}, reg.Inspections()); diff != "" {
		t.Errorf("Inspections mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Item{3}, reg.Workers[0].Items); diff != "" {
		t.Errorf("worker 0 queue (-want +got):\n%s", diff)
	}
	if reg.TotalItems() != 1 {
		t.Errorf("TotalItems = %d, want 1", reg.TotalItems())
	}
}

func TestRound_SelfThrowLoopHitsGuard(t *testing.T) {
	reg := NewRegistry(
		&Worker{
			Items:     []Item{4},
			Operation: Operation{Kind: Add, Operand: ConstOperand(0)},
			Test:      Test{Divisor: 2, IfTrue: 0, IfFalse: 0},
		},
		&Worker{
			Operation: Operation{Kind: Add, Operand: ConstOperand(1)},
			Test:      Test{Divisor: 3, IfTrue: 0, IfFalse: 0},
		},
	)
	_, err := Run(reg, 1, Unbounded, WithMaxReentries(10))
	if !errors.Is(err, ErrReentryLimit) {
		t.Fatalf("Run error = %v, want ErrReentryLimit", err)
	}
	var re *RoundError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RoundError, got %T", err)
	}
	if re.Round != 1 || re.Worker != 0 {
		t.Errorf("RoundError = round %d worker %d, want round 1 worker 0", re.Round, re.Worker)
	}
}

func TestNew_RejectSelfTarget(t *testing.T) {
	_, err := New(selfThrowRegistry(), Unbounded, WithSelfTargetPolicy(RejectSelfTarget))
	if !errors.Is(err, ErrSelfTarget) {
		t.Errorf("New error = %v, want ErrSelfTarget", err)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		reg  *Registry
		want error
	}{
		{
			name: "single worker",
			reg:  NewRegistry(&Worker{Test: Test{Divisor: 2}}),
			want: ErrTooFewWorkers,
		},
		{
			name: "zero divisor",
			reg: NewRegistry(
				&Worker{Test: Test{Divisor: 0, IfTrue: 1, IfFalse: 1}},
				&Worker{Test: Test{Divisor: 3, IfTrue: 0, IfFalse: 0}},
			),
			want: ErrZeroDivisor,
		},
		{
			name: "target out of range",
			reg: NewRegistry(
				&Worker{Test: Test{Divisor: 2, IfTrue: 1, IfFalse: 2}},
				&Worker{Test: Test{Divisor: 3, IfTrue: 0, IfFalse: 0}},
			),
			want: ErrTargetOutOfRange,
		},
		{
			name: "negative target",
			reg: NewRegistry(
				&Worker{Test: Test{Divisor: 2, IfTrue: -1, IfFalse: 1}},
				&Worker{Test: Test{Divisor: 3, IfTrue: 0, IfFalse: 0}},
			),
			want: ErrTargetOutOfRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.reg, Bounded)
			if !errors.Is(err, tt.want) {
				t.Errorf("New error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRound_RouteOutOfRangeAborts(t *testing.T) {
	s, err := New(exampleRegistry(), Bounded)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Corrupt the registry after validation to reach the scheduler's check.
	s.Registry().Workers[0].Test.IfFalse = 9
	s.Registry().Workers[0].Test.IfTrue = 9

	err = s.Round()
	if !errors.Is(err, ErrRouteOutOfRange) {
		t.Fatalf("Round error = %v, want ErrRouteOutOfRange", err)
	}
}

// A modulus above 2^32 makes old * old exceed 64 bits; the result must still
// be exact.
func TestRound_WideModulus(t *testing.T) {
	registry := func() *Registry {
		return NewRegistry(
			&Worker{
				Items:     []Item{4295000000},
				Operation: Operation{Kind: Multiply, Operand: OldOperand()},
				Test:      Test{Divisor: 65537, IfTrue: 1, IfFalse: 1},
			},
			&Worker{
				Operation: Operation{Kind: Multiply, Operand: ConstOperand(1)},
				Test:      Test{Divisor: 65539, IfTrue: 0, IfFalse: 0},
			},
		)
	}

	tests := []struct {
		relief Relief
		want   Item
	}{
		// 4295000000^2 mod (65537*65539)
		{Unbounded, 1101336933},
		// (4295000000^2 / 3) mod m, then /3 again at worker 1
		{Bounded, 1076866202},
	}
	for _, tt := range tests {
		t.Run(tt.relief.String(), func(t *testing.T) {
			res, err := Run(registry(), 1, tt.relief)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if res.Modulus != 4295229443 {
				t.Errorf("Modulus = %d, want 4295229443", res.Modulus)
			}
			got := res.Registry.Workers[0].Items
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("worker 0 items = %v, want [%d]", got, tt.want)
			}
		})
	}
}

// Each of the three items comes back to worker 0 exactly once, so the cap
// sees three self-throws in the drain.
func TestRound_ReentryLimitCountsAllSelfThrows(t *testing.T) {
	registry := func() *Registry {
		return NewRegistry(
			&Worker{
				Items:     []Item{1, 3, 5},
				Operation: Operation{Kind: Add, Operand: ConstOperand(1)},
				Test:      Test{Divisor: 2, IfTrue: 0, IfFalse: 1},
			},
			&Worker{
				Operation: Operation{Kind: Add, Operand: ConstOperand(0)},
				Test:      Test{Divisor: 3, IfTrue: 0, IfFalse: 0},
			},
		)
	}

	_, err := Run(registry(), 1, Unbounded, WithMaxReentries(2))
	if !errors.Is(err, ErrReentryLimit) {
		t.Errorf("Run error = %v, want ErrReentryLimit", err)
	}

	res, err := Run(registry(), 1, Unbounded, WithMaxReentries(3))
	if err != nil {
		t.Fatalf("Run with cap 3: %v", err)
	}
	if got := res.Registry.Workers[0].Inspected; got != 6 {
		t.Errorf("worker 0 inspected %d items, want 6", got)
	}
}

func TestRun_InvalidRounds(t *testing.T) {
	if _, err := Run(exampleRegistry(), 0, Bounded); err == nil {
		t.Error("expected error for zero rounds")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := New(exampleRegistry(), Unbounded)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = s.Run(ctx, 10)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if s.Rounds() != 0 {
		t.Errorf("Rounds = %d, want 0", s.Rounds())
	}
}

type countingObserver struct {
	throws int
	rounds []int
}

func (c *countingObserver) ItemThrown(int, int, int, Item, Item) { c.throws++ }
func (c *countingObserver) RoundCompleted(round int, _ *Registry) {
	c.rounds = append(c.rounds, round)
}

func TestRun_ObserverSeesEveryInspection(t *testing.T) {
	obs := &countingObserver{}
	res, err := Run(exampleRegistry(), 3, Bounded, WithObserver(Observers{obs, NopObserver{}}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var total uint64
	for _, n := range res.Inspections {
		total += n
	}
	if uint64(obs.throws) != total {
		t.Errorf("observer saw %d throws, want %d", obs.throws, total)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, obs.rounds); diff != "" {
		t.Errorf("rounds (-want +got):\n%s", diff)
	}
}
