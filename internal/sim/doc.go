// Package sim runs the keep-away simulation: a fixed registry of workers that
// inspect, transform and throw integer stress levels to one another in
// rounds.
//
// A round visits workers in ascending index order. Each worker drains its
// queue completely, including items that lower-indexed workers (or the worker
// itself) threw to it earlier in the same round. Every inspected item is
// transformed by the worker's Operation, passed through the run's Relief
// policy, reduced modulo the registry's common modulus and routed by the
// worker's Test.
//
// The common modulus is the product of every worker's divisor, so reducing a
// stress level by it never changes the outcome of any divisibility test while
// keeping values bounded for runs of many thousands of rounds.
//
// Usage:
//
//	reg, _ := notes.ParseString(input)
//	res, err := sim.Run(reg, 20, sim.Bounded)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Score)
package sim
