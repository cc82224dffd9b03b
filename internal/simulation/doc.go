// Package simulation provides a round-by-round test harness for validating
// properties of the keep-away scheduler.
//
// The harness exercises the real parser, Simulator and run ledger with no
// mocks. Scenarios are Go builders that describe a worker population and a
// run length; the Runner steps the simulator one round at a time and captures
// a snapshot after every round for property-based assertions.
//
// Each Runner gets an isolated SQLite ledger via t.TempDir() and a sandboxed
// HOME to prevent touching user data.
//
// Usage:
//
//	func TestConservation(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:    "conservation",
//	        Workers: simulation.ExampleWorkers(),
//	        Relief:  sim.Unbounded,
//	        Rounds:  1000,
//	    })
//	    simulation.AssertConserved(t, result)
//	}
package simulation
