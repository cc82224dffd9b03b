package sim

import "fmt"

// Test decides where a worker throws an inspected item.
type Test struct {
	Divisor uint64
	IfTrue  int
	IfFalse int
}

// Route returns IfTrue when v is divisible by the divisor, IfFalse otherwise.
func (t Test) Route(v Item) int {
	if v%t.Divisor == 0 {
		return t.IfTrue
	}
	return t.IfFalse
}

// Targets reports whether either branch throws to worker id.
func (t Test) Targets(id int) bool {
	return t.IfTrue == id || t.IfFalse == id
}

func (t Test) String() string {
	return fmt.Sprintf("divisible by %d ? %d : %d", t.Divisor, t.IfTrue, t.IfFalse)
}
