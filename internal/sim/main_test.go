package sim

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// exampleRegistry is the four-worker registry from the puzzle notes.
func exampleRegistry() *Registry {
	return NewRegistry(
		&Worker{
			Items:     []Item{79, 98},
			Operation: Operation{Kind: Multiply, Operand: ConstOperand(19)},
			Test:      Test{Divisor: 23, IfTrue: 2, IfFalse: 3},
		},
		&Worker{
			Items:     []Item{54, 65, 75, 74},
			Operation: Operation{Kind: Add, Operand: ConstOperand(6)},
			Test:      Test{Divisor: 19, IfTrue: 2, IfFalse: 0},
		},
		&Worker{
			Items:     []Item{79, 60, 97},
			Operation: Operation{Kind: Multiply, Operand: OldOperand()},
			Test:      Test{Divisor: 13, IfTrue: 1, IfFalse: 3},
		},
		&Worker{
			Items:     []Item{74},
			Operation: Operation{Kind: Add, Operand: ConstOperand(3)},
			Test:      Test{Divisor: 17, IfTrue: 0, IfFalse: 1},
		},
	)
}
