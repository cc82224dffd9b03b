package sim

import (
	"fmt"
	"strings"
)

// Worker holds a queue of items and the fixed rules it applies to them.
type Worker struct {
	// ID is the worker's position in the registry. It never changes.
	ID int

	// Items is the pending queue, oldest first.
	Items []Item

	Operation Operation
	Test      Test

	// Inspected counts every item this worker has popped from its own queue.
	Inspected uint64
}

// SelfTargetPolicy decides whether a worker may throw to itself.
type SelfTargetPolicy int

const (
	// GuardSelfTarget accepts self-targeting workers and relies on the
	// scheduler's re-entry limit to stop runaway drains.
	GuardSelfTarget SelfTargetPolicy = iota
	// RejectSelfTarget refuses such registries at load time.
	RejectSelfTarget
)

func (p SelfTargetPolicy) String() string {
	if p == RejectSelfTarget {
		return "reject"
	}
	return "guard"
}

// ParseSelfTargetPolicy maps "guard" or "reject" to a policy.
func ParseSelfTargetPolicy(s string) (SelfTargetPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "guard":
		return GuardSelfTarget, nil
	case "reject":
		return RejectSelfTarget, nil
	default:
		return 0, fmt.Errorf("invalid self-target policy: %q (valid: guard, reject)", s)
	}
}

// Registry is the ordered set of workers. Index is the only address.
type Registry struct {
	Workers []*Worker
}

// NewRegistry builds a registry and assigns IDs by position.
func NewRegistry(workers ...*Worker) *Registry {
	for i, w := range workers {
		w.ID = i
	}
	return &Registry{Workers: workers}
}

// Len returns the number of workers.
func (r *Registry) Len() int {
	return len(r.Workers)
}

// TotalItems returns the number of items queued across all workers.
func (r *Registry) TotalItems() int {
	n := 0
	for _, w := range r.Workers {
		n += len(w.Items)
	}
	return n
}

// Inspections returns each worker's inspection count, in registry order.
func (r *Registry) Inspections() []uint64 {
	counts := make([]uint64, len(r.Workers))
	for i, w := range r.Workers {
		counts[i] = w.Inspected
	}
	return counts
}

// Clone returns a deep copy that shares no queues with r.
func (r *Registry) Clone() *Registry {
	workers := make([]*Worker, len(r.Workers))
	for i, w := range r.Workers {
		cp := *w
		cp.Items = append([]Item(nil), w.Items...)
		workers[i] = &cp
	}
	return &Registry{Workers: workers}
}

// Validate checks the structural rules a registry must satisfy before it can
// be simulated.
func (r *Registry) Validate(policy SelfTargetPolicy) error {
	if len(r.Workers) < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewWorkers, len(r.Workers))
	}
	n := len(r.Workers)
	for i, w := range r.Workers {
		if w == nil {
			return fmt.Errorf("worker %d is nil", i)
		}
		if w.ID != i {
			return fmt.Errorf("%w: worker at %d has id %d", ErrWorkerOrder, i, w.ID)
		}
		if w.Test.Divisor == 0 {
			return fmt.Errorf("worker %d: %w", i, ErrZeroDivisor)
		}
		for _, target := range []int{w.Test.IfTrue, w.Test.IfFalse} {
			if target < 0 || target >= n {
				return fmt.Errorf("worker %d: %w: %d (have %d workers)", i, ErrTargetOutOfRange, target, n)
			}
		}
		if policy == RejectSelfTarget && w.Test.Targets(i) {
			return fmt.Errorf("worker %d: %w", i, ErrSelfTarget)
		}
	}
	if _, err := CommonModulus(r); err != nil {
		return err
	}
	return nil
}
