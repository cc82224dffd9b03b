package sim

import (
	"errors"
	"fmt"
)

// Load-time validation errors.
var (
	ErrTooFewWorkers    = errors.New("registry needs at least two workers")
	ErrZeroDivisor      = errors.New("test divisor must be positive")
	ErrTargetOutOfRange = errors.New("throw target is not a worker")
	ErrSelfTarget       = errors.New("worker throws to itself")
	ErrModulusOverflow  = errors.New("common modulus overflows uint64")
	ErrWorkerOrder      = errors.New("worker id does not match its position")
)

// Errors raised while a round is in progress. Any of them aborts the run.
var (
	ErrRouteOutOfRange = errors.New("routed to a worker outside the registry")
	ErrReentryLimit    = errors.New("self re-entry limit exceeded")
)

// RoundError reports where a run was aborted.
type RoundError struct {
	Round  int
	Worker int
	Err    error
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("round %d, worker %d: %v", e.Round, e.Worker, e.Err)
}

func (e *RoundError) Unwrap() error {
	return e.Err
}
