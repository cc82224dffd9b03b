package sim

import (
	"fmt"
	"math/bits"
	"strconv"
)

// Item is a single stress level held by a worker.
type Item = uint64

// Operand is either the item's current value or a fixed constant.
type Operand struct {
	Old   bool
	Const uint64
}

// OldOperand refers to the item's own value.
func OldOperand() Operand { return Operand{Old: true} }

// ConstOperand is a fixed value.
func ConstOperand(v uint64) Operand { return Operand{Const: v} }

func (o Operand) eval(old Item) Item {
	if o.Old {
		return old
	}
	return o.Const
}

func (o Operand) String() string {
	if o.Old {
		return "old"
	}
	return strconv.FormatUint(o.Const, 10)
}

// OpKind selects the arithmetic of an Operation.
type OpKind int

const (
	Add OpKind = iota
	Multiply
)

// Symbol returns the operator as written in puzzle notes.
func (k OpKind) Symbol() string {
	if k == Multiply {
		return "*"
	}
	return "+"
}

// Operation describes how a worker changes a stress level on inspection.
type Operation struct {
	Kind    OpKind
	Operand Operand
}

// Apply returns the new stress level for old, truncated to 64 bits. The
// scheduler uses Wide so that nothing is lost before normalization.
func (op Operation) Apply(old Item) Item {
	_, lo := op.Wide(old)
	return lo
}

// Wide returns the exact result as a 128-bit value (hi, lo).
func (op Operation) Wide(old Item) (hi, lo uint64) {
	operand := op.Operand.eval(old)
	if op.Kind == Multiply {
		return bits.Mul64(old, operand)
	}
	lo, carry := bits.Add64(old, operand, 0)
	return carry, lo
}

// String renders the operation the way the notes write it, e.g. "old * 19".
func (op Operation) String() string {
	return fmt.Sprintf("old %s %s", op.Kind.Symbol(), op.Operand)
}
