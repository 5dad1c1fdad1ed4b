package air

import "github.com/consensys/gnark-crypto/field/babybear"

// Expr is a polynomial expression over trace columns. Expressions are
// built once per chip and evaluated row by row against a concrete witness
// matrix; a proving backend would instead lower the same tree into
// quotient-polynomial evaluation.
//
// Most nodes are directly arithmetisable. Periodic is the exception: it is
// a row-indexed constant table which a backend realises as a preprocessed
// column, while this layer evaluates it externally.
type Expr interface {
	// EvalAt evaluates the expression on the given row of a witness.
	EvalAt(m *Matrix, row int) babybear.Element
}

// constant is a fixed field element.
type constant struct {
	value babybear.Element
}

// col reads a trace cell. Shift 0 is the local row, shift 1 the next row.
type col struct {
	index int
	shift int
}

// sum is the sum of its arguments.
type sum struct {
	args []Expr
}

// diff is x - y.
type diff struct {
	x, y Expr
}

// product is the product of its arguments.
type product struct {
	args []Expr
}

// periodic is a constant table indexed by row number modulo its length.
type periodic struct {
	values []babybear.Element
	shift  int
}

// Const lifts a field element into an expression.
func Const(v babybear.Element) Expr {
	return &constant{value: v}
}

// ConstU64 lifts an unsigned integer into a constant expression.
func ConstU64(v uint64) Expr {
	return &constant{value: babybear.NewElement(v)}
}

// Zero returns the zero constant.
func Zero() Expr {
	return ConstU64(0)
}

// One returns the unit constant.
func One() Expr {
	return ConstU64(1)
}

// Col reads column index on the local row.
func Col(index int) Expr {
	return &col{index: index, shift: 0}
}

// NextCol reads column index on the next row.
func NextCol(index int) Expr {
	return &col{index: index, shift: 1}
}

// Shifted reads column index with an arbitrary row shift.
func Shifted(index, shift int) Expr {
	return &col{index: index, shift: shift}
}

// Add sums the given expressions.
func Add(args ...Expr) Expr {
	return &sum{args: args}
}

// Sub subtracts y from x.
func Sub(x, y Expr) Expr {
	return &diff{x: x, y: y}
}

// Mul multiplies the given expressions.
func Mul(args ...Expr) Expr {
	return &product{args: args}
}

// OneMinus returns 1 - x, the complement of a boolean selector.
func OneMinus(x Expr) Expr {
	return &diff{x: One(), y: x}
}

// Periodic builds a row-indexed constant table: its value on row r is
// values[(r+shift) mod len(values)].
func Periodic(values []babybear.Element, shift int) Expr {
	return &periodic{values: values, shift: shift}
}

// PeriodicU32 is Periodic over unsigned integer constants.
func PeriodicU32(values []uint32, shift int) Expr {
	elems := make([]babybear.Element, len(values))
	for i, v := range values {
		elems[i] = babybear.NewElement(uint64(v))
	}

	return &periodic{values: elems, shift: shift}
}

func (e *constant) EvalAt(_ *Matrix, _ int) babybear.Element {
	return e.value
}

func (e *col) EvalAt(m *Matrix, row int) babybear.Element {
	return m.At(row+e.shift, e.index)
}

func (e *sum) EvalAt(m *Matrix, row int) babybear.Element {
	var acc babybear.Element
	for _, arg := range e.args {
		v := arg.EvalAt(m, row)
		acc.Add(&acc, &v)
	}

	return acc
}

func (e *diff) EvalAt(m *Matrix, row int) babybear.Element {
	x := e.x.EvalAt(m, row)
	y := e.y.EvalAt(m, row)
	x.Sub(&x, &y)

	return x
}

func (e *product) EvalAt(m *Matrix, row int) babybear.Element {
	var acc babybear.Element
	acc.SetOne()

	for _, arg := range e.args {
		// Short-circuit once the product collapses.
		if acc.IsZero() {
			return acc
		}

		v := arg.EvalAt(m, row)
		acc.Mul(&acc, &v)
	}

	return acc
}

func (e *periodic) EvalAt(_ *Matrix, row int) babybear.Element {
	return e.values[(row+e.shift)%len(e.values)]
}
