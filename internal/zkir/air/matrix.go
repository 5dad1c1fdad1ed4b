// Package air provides the arithmetization primitives shared by every
// chip: the row-major witness matrix over the Baby Bear field, a small
// expression language for polynomial identities, and the constraint
// builder that chips emit their AIR into.
package air

import (
	"fmt"

	"github.com/consensys/gnark-crypto/field/babybear"
)

// MinHeight is the smallest witness height the low-degree-extension step
// accepts.
const MinHeight = 2

// Matrix is a row-major witness matrix with a fixed column count. Its
// height is always a power of two of at least MinHeight; rows beyond the
// populated region are padding and stay zero unless the generator fills
// them.
type Matrix struct {
	data   []babybear.Element
	width  int
	height int
}

// NextPowerOfTwo returns the smallest power of two >= n (and >= 1).
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}

// NewMatrix allocates a zeroed matrix wide enough for the given column
// count, padded from rows up to the next power of two (minimum MinHeight).
func NewMatrix(width, rows int) *Matrix {
	height := NextPowerOfTwo(rows)
	if height < MinHeight {
		height = MinHeight
	}

	return &Matrix{
		data:   make([]babybear.Element, width*height),
		width:  width,
		height: height,
	}
}

// Width returns the column count.
func (m *Matrix) Width() int {
	return m.width
}

// Height returns the padded row count.
func (m *Matrix) Height() int {
	return m.height
}

// Row returns the i-th row as a slice aliasing the matrix storage.
func (m *Matrix) Row(i int) []babybear.Element {
	return m.data[i*m.width : (i+1)*m.width]
}

// At returns the cell at the given row and column.
func (m *Matrix) At(row, col int) babybear.Element {
	return m.data[row*m.width+col]
}

// Set assigns the cell at the given row and column.
func (m *Matrix) Set(row, col int, v babybear.Element) {
	m.data[row*m.width+col] = v
}

// String summarises the matrix dimensions.
func (m *Matrix) String() string {
	return fmt.Sprintf("%dx%d", m.height, m.width)
}
