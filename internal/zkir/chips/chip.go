// Package chips implements the multi-chip arithmetization of the ZK IR
// virtual machine. Each chip owns a fixed column layout, a constraint set
// over adjacent rows, and a deterministic witness generator; together they
// prove one slice of the machine semantics. Cross-chip consistency (CPU
// load/store rows against memory rows, syscall rows against syscall
// chips) is supplied by the prover's permutation and lookup arguments,
// not by anything in this package.
package chips

import (
	"github.com/consensys/gnark-crypto/field/babybear"

	"github.com/zkir/zkir-prover/internal/zkir/air"
	"github.com/zkir/zkir-prover/internal/zkir/trace"
)

// Chip is one independently proven table: a column layout, an AIR, and a
// generator that fills a witness matrix from an execution trace.
type Chip interface {
	// Name identifies the chip in logs and diagnostics.
	Name() string

	// Width returns the fixed column count.
	Width() int

	// Eval emits the chip's constraints into the builder.
	Eval(b *air.Builder)

	// GenerateTrace derives the chip's witness from an execution trace.
	// The height of the result is always a power of two >= 2.
	GenerateTrace(t *trace.ExecutionTrace) *air.Matrix
}

// SyscallChip is a chip dedicated to one cryptographic syscall. The outer
// pipeline uses the code to route records and the per-call constraint
// count for cost estimation.
type SyscallChip interface {
	Chip

	// SyscallCode returns the code this chip handles.
	SyscallCode() trace.SyscallCode

	// ConstraintsPerCall returns the constraint count one invocation
	// contributes.
	ConstraintsPerCall() int
}

// AllChips returns the fixed chip set of the machine. The set is closed:
// chips are enumerated at compile time, not registered dynamically.
func AllChips() []Chip {
	return []Chip{
		NewCPUChip(),
		NewMemoryChip(),
		NewRangeCheckChip(),
		NewPoseidon2Chip(),
		NewSha256Chip(),
	}
}

// SyscallChips returns the syscall subset of the chip set.
func SyscallChips() []SyscallChip {
	return []SyscallChip{
		NewPoseidon2Chip(),
		NewSha256Chip(),
	}
}

// ConstraintSet collects the constraints a chip emits into a fresh
// builder.
func ConstraintSet(c Chip) *air.ConstraintSet {
	b := air.NewBuilder()
	c.Eval(b)

	return b.ConstraintSet()
}

// feltU32 embeds a machine word into the field.
func feltU32(v uint32) babybear.Element {
	return babybear.NewElement(uint64(v))
}

// feltU64 embeds a cycle counter into the field.
func feltU64(v uint64) babybear.Element {
	return babybear.NewElement(v)
}

// feltI32 embeds a signed immediate into the field, mapping negative
// values to their additive inverse so that pc+imm arithmetic closes over
// the field.
func feltI32(v int32) babybear.Element {
	if v >= 0 {
		return babybear.NewElement(uint64(v))
	}

	e := babybear.NewElement(uint64(-int64(v)))
	e.Neg(&e)

	return e
}

// feltBool embeds a flag into the field.
func feltBool(v bool) babybear.Element {
	if v {
		return babybear.NewElement(1)
	}

	return babybear.Element{}
}

// inverseOrZero returns x^-1, or zero when x is zero. Helper-inverse
// columns are populated with this during generation and verified, never
// computed, by the constraints.
func inverseOrZero(x babybear.Element) babybear.Element {
	var inv babybear.Element
	inv.Inverse(&x)

	return inv
}
