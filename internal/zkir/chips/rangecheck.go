package chips

import (
	"github.com/zkir/zkir-prover/internal/zkir/air"
	"github.com/zkir/zkir-prover/internal/zkir/trace"
)

// Range check column indices: a 32-bit value and its four byte limbs.
const (
	rcValue = iota
	rcLimb0
	rcLimb1
	rcLimb2
	rcLimb3

	// RangeCheckNumColumns is the range check chip width.
	RangeCheckNumColumns
)

// RangeCheckChip proves that claimed values fit in 32 bits by committing
// a byte decomposition. The recomposition identity lives here; the 8-bit
// bound on each limb comes from the byte-lookup argument. The memory
// chip's ordering obligations (address gaps across runs, cycle gaps
// within runs) are the values ranged.
type RangeCheckChip struct{}

// NewRangeCheckChip creates the range check chip
func NewRangeCheckChip() *RangeCheckChip {
	return &RangeCheckChip{}
}

// Name identifies the chip.
func (c *RangeCheckChip) Name() string {
	return "range_check"
}

// Width returns the range check column count.
func (c *RangeCheckChip) Width() int {
	return RangeCheckNumColumns
}

// Eval emits the limb recomposition identity.
func (c *RangeCheckChip) Eval(b *air.Builder) {
	value := air.Col(rcValue)
	recomposed := air.Add(
		air.Col(rcLimb0),
		air.Mul(air.ConstU64(1<<8), air.Col(rcLimb1)),
		air.Mul(air.ConstU64(1<<16), air.Col(rcLimb2)),
		air.Mul(air.ConstU64(1<<24), air.Col(rcLimb3)),
	)

	b.AssertEq("range_check.recomposition", value, recomposed)
}

// GenerateTrace collects the gap values the memory chip needs ranged and
// decomposes each into byte limbs. Zero padding trivially satisfies the
// recomposition.
func (c *RangeCheckChip) GenerateTrace(t *trace.ExecutionTrace) *air.Matrix {
	values := rangedValues(t)
	m := air.NewMatrix(RangeCheckNumColumns, len(values))

	for i, v := range values {
		row := m.Row(i)
		row[rcValue] = feltU32(v)
		row[rcLimb0] = feltU32(v & 0xFF)
		row[rcLimb1] = feltU32((v >> 8) & 0xFF)
		row[rcLimb2] = feltU32((v >> 16) & 0xFF)
		row[rcLimb3] = feltU32((v >> 24) & 0xFF)
	}

	return m
}

// rangedValues walks the sorted memory log and yields the strict-ordering
// gaps: address gaps across run boundaries and cycle gaps within runs.
func rangedValues(t *trace.ExecutionTrace) []uint32 {
	sorted := t.SortedMemoryLog()
	values := make([]uint32, 0, len(sorted))

	for i := 0; i+1 < len(sorted); i++ {
		cur, nxt := sorted[i], sorted[i+1]
		if cur.Address == nxt.Address {
			values = append(values, uint32(nxt.Cycle-cur.Cycle-1))
		} else {
			values = append(values, nxt.Address-cur.Address-1)
		}
	}

	return values
}
