package sim

import (
	"fmt"
	"math/bits"
	"strings"
)

// Relief is applied to a stress level right after the worker's operation and
// before normalization.
type Relief int

const (
	// Bounded floor-divides by three. Used for short runs.
	Bounded Relief = iota
	// Unbounded leaves the value untouched; only normalization bounds it.
	Unbounded
)

// Apply returns v after relief.
func (r Relief) Apply(v Item) Item {
	if r == Bounded {
		return v / 3
	}
	return v
}

// Reduce applies relief to the 128-bit value (hi, lo) and reduces it modulo
// modulus, exactly.
func (r Relief) Reduce(hi, lo, modulus uint64) Item {
	if r == Bounded {
		rem := hi % 3
		hi /= 3
		lo, _ = bits.Div64(rem, lo, 3)
	}
	return bits.Rem64(hi, lo, modulus)
}

func (r Relief) String() string {
	switch r {
	case Bounded:
		return "bounded"
	case Unbounded:
		return "unbounded"
	default:
		return fmt.Sprintf("relief(%d)", int(r))
	}
}

// ParseRelief maps "bounded" or "unbounded" (case-insensitive) to a Relief.
func ParseRelief(s string) (Relief, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bounded":
		return Bounded, nil
	case "unbounded":
		return Unbounded, nil
	default:
		return 0, fmt.Errorf("invalid relief: %q (valid: bounded, unbounded)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Relief) MarshalText() ([]byte, error) {
	if r != Bounded && r != Unbounded {
		return nil, fmt.Errorf("invalid relief: %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Relief) UnmarshalText(b []byte) error {
	v, err := ParseRelief(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
