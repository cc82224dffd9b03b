package sim

// DefaultMaxReentries bounds the total number of self-throws a worker may
// make within one drain of its queue.
const DefaultMaxReentries = 1_000_000

// Option configures a Simulator.
type Option func(*options)

type options struct {
	observer     Observer
	maxReentries int
	policy       SelfTargetPolicy
}

func defaultOptions() options {
	return options{
		observer:     NopObserver{},
		maxReentries: DefaultMaxReentries,
		policy:       GuardSelfTarget,
	}
}

// WithObserver reports scheduling events to obs. Use Observers to attach more
// than one.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithMaxReentries caps the total number of self-throws in one drain of a
// worker's queue, counted across all of its items rather than per item: three
// items that each bounce back once count as three. n <= 0 removes the cap.
func WithMaxReentries(n int) Option {
	return func(o *options) {
		o.maxReentries = n
	}
}

// WithSelfTargetPolicy sets how registry validation treats workers that
// throw to themselves.
func WithSelfTargetPolicy(p SelfTargetPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}
