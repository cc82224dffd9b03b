package sim

import (
	"context"
	"fmt"
)

// Simulator owns a registry for the duration of a run and advances it one
// round at a time. It is not safe for concurrent use; the order in which
// workers drain is part of the result.
type Simulator struct {
	reg     *Registry
	relief  Relief
	modulus uint64
	opts    options
	round   int
}

// Result summarizes a finished run.
type Result struct {
	Rounds      int      `json:"rounds"`
	Relief      Relief   `json:"relief"`
	Modulus     uint64   `json:"modulus"`
	Inspections []uint64 `json:"inspections"`
	Score       uint64   `json:"score"`
	Fingerprint uint64   `json:"fingerprint"`

	// Registry is the final state. It is owned by the caller once Run returns.
	Registry *Registry `json:"-"`
}

// New validates reg and prepares a simulator that takes ownership of it.
// Callers that want to keep the initial registry should pass reg.Clone().
func New(reg *Registry, relief Relief, opts ...Option) (*Simulator, error) {
	if relief != Bounded && relief != Unbounded {
		return nil, fmt.Errorf("invalid relief: %d", int(relief))
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := reg.Validate(o.policy); err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}

	// Divisors never change, so the modulus is computed once per run.
	modulus, err := CommonModulus(reg)
	if err != nil {
		return nil, err
	}

	return &Simulator{
		reg:     reg,
		relief:  relief,
		modulus: modulus,
		opts:    o,
	}, nil
}

// Modulus returns the common modulus used to normalize stress levels.
func (s *Simulator) Modulus() uint64 {
	return s.modulus
}

// Rounds returns the number of completed rounds.
func (s *Simulator) Rounds() int {
	return s.round
}

// Registry returns the live registry. It must not be modified while the
// simulator is in use.
func (s *Simulator) Registry() *Registry {
	return s.reg
}

// Round runs one full round. On error the registry is left mid-round and the
// simulator must not be used again.
func (s *Simulator) Round() error {
	s.round++
	for i, w := range s.reg.Workers {
		if err := s.drain(i, w); err != nil {
			return &RoundError{Round: s.round, Worker: i, Err: err}
		}
	}
	s.opts.observer.RoundCompleted(s.round, s.reg)
	return nil
}

// drain inspects every item in w's queue. The queue may grow while it is
// being drained: items thrown back by w itself are appended to the slice the
// loop is walking.
func (s *Simulator) drain(i int, w *Worker) error {
	n := len(s.reg.Workers)
	selfThrows := 0
	for j := 0; j < len(w.Items); j++ {
		before := w.Items[j]
		w.Inspected++

		hi, lo := w.Operation.Wide(before)
		v := s.relief.Reduce(hi, lo, s.modulus)

		dst := w.Test.Route(v)
		if dst < 0 || dst >= n {
			return fmt.Errorf("%w: %d", ErrRouteOutOfRange, dst)
		}
		if dst == i {
			selfThrows++
			if s.opts.maxReentries > 0 && selfThrows > s.opts.maxReentries {
				return fmt.Errorf("%w: %d", ErrReentryLimit, s.opts.maxReentries)
			}
		}

		target := s.reg.Workers[dst]
		target.Items = append(target.Items, v)
		s.opts.observer.ItemThrown(s.round, i, dst, before, v)
	}
	w.Items = w.Items[:0]
	return nil
}

// Run advances the simulation by rounds rounds. ctx is checked between
// rounds only; a round is never interrupted.
func (s *Simulator) Run(ctx context.Context, rounds int) (*Result, error) {
	if rounds <= 0 {
		return nil, fmt.Errorf("rounds must be positive, got %d", rounds)
	}
	for r := 0; r < rounds; r++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("stopped after %d rounds: %w", s.round, err)
		}
		if err := s.Round(); err != nil {
			return nil, err
		}
	}
	return s.Result(), nil
}

// Result summarizes the current state.
func (s *Simulator) Result() *Result {
	return &Result{
		Rounds:      s.round,
		Relief:      s.relief,
		Modulus:     s.modulus,
		Inspections: s.reg.Inspections(),
		Score:       Score(s.reg.Workers),
		Fingerprint: Fingerprint(s.reg),
		Registry:    s.reg,
	}
}

// Run simulates a copy of reg for the given number of rounds. reg itself is
// left untouched.
func Run(reg *Registry, rounds int, relief Relief, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), reg, rounds, relief, opts...)
}

// RunContext is Run with cancellation between rounds.
func RunContext(ctx context.Context, reg *Registry, rounds int, relief Relief, opts ...Option) (*Result, error) {
	s, err := New(reg.Clone(), relief, opts...)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, rounds)
}
