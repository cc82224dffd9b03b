package sim

import "math/bits"

// CommonModulus returns the product of every worker's divisor.
//
// For any divisor d of the registry, v % CommonModulus % d == v % d, so
// Normalize never changes a routing decision. Reducing by a subset of the
// divisors would.
func CommonModulus(r *Registry) (uint64, error) {
	m := uint64(1)
	for _, w := range r.Workers {
		if w.Test.Divisor == 0 {
			return 0, ErrZeroDivisor
		}
		hi, lo := bits.Mul64(m, w.Test.Divisor)
		if hi != 0 {
			return 0, ErrModulusOverflow
		}
		m = lo
	}
	return m, nil
}

// Normalize reduces v modulo the common modulus.
func Normalize(v Item, modulus uint64) Item {
	return v % modulus
}
