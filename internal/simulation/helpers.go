package simulation

import (
	"fmt"
	"math/rand/v2"
)

// ExampleNotes is the four-worker population used by the reference scenarios.
const ExampleNotes = `Monkey 0:
  Starting items: 79, 98
  Operation: new = old * 19
  Test: divisible by 23
    If true: throw to monkey 2
    If false: throw to monkey 3

Monkey 1:
  Starting items: 54, 65, 75, 74
  Operation: new = old + 6
  Test: divisible by 19
    If true: throw to monkey 2
    If false: throw to monkey 0

Monkey 2:
  Starting items: 79, 60, 97
  Operation: new = old * old
  Test: divisible by 13
    If true: throw to monkey 1
    If false: throw to monkey 3

Monkey 3:
  Starting items: 74
  Operation: new = old + 3
  Test: divisible by 17
    If true: throw to monkey 0
    If false: throw to monkey 1
`

// ExampleWorkers returns ExampleNotes as WorkerSpecs.
func ExampleWorkers() []WorkerSpec {
	return []WorkerSpec{
		{Items: []uint64{79, 98}, Op: "old * 19", Divisor: 23, IfTrue: 2, IfFalse: 3},
		{Items: []uint64{54, 65, 75, 74}, Op: "old + 6", Divisor: 19, IfTrue: 2, IfFalse: 0},
		{Items: []uint64{79, 60, 97}, Op: "old * old", Divisor: 13, IfTrue: 1, IfFalse: 3},
		{Items: []uint64{74}, Op: "old + 3", Divisor: 17, IfTrue: 0, IfFalse: 1},
	}
}

var primes = []uint64{2, 3, 5, 7, 11, 13, 17, 19}

// RandomWorkers builds a population of 2 to 8 workers with distinct prime
// divisors, no self-targeting and at most one squaring worker, so the common
// modulus stays small enough that squaring never overflows.
func RandomWorkers(rng *rand.Rand) []WorkerSpec {
	n := 2 + rng.IntN(len(primes)-1)
	divisors := append([]uint64{}, primes...)
	rng.Shuffle(len(divisors), func(i, j int) { divisors[i], divisors[j] = divisors[j], divisors[i] })

	squarer := rng.IntN(n + 1) // n means none
	specs := make([]WorkerSpec, n)
	for i := range specs {
		items := make([]uint64, rng.IntN(5))
		for j := range items {
			items[j] = 1 + rng.Uint64N(99)
		}

		var op string
		switch {
		case i == squarer:
			op = "old * old"
		case rng.IntN(2) == 0:
			op = fmt.Sprintf("old + %d", 1+rng.IntN(9))
		default:
			op = fmt.Sprintf("old * %d", 2+rng.IntN(18))
		}

		specs[i] = WorkerSpec{
			Items:   items,
			Op:      op,
			Divisor: divisors[i],
			IfTrue:  otherWorker(rng, n, i),
			IfFalse: otherWorker(rng, n, i),
		}
	}
	return specs
}

func otherWorker(rng *rand.Rand, n, self int) int {
	j := rng.IntN(n - 1)
	if j >= self {
		j++
	}
	return j
}
