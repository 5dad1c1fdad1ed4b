package air

import (
	"testing"

	"github.com/consensys/gnark-crypto/field/babybear"
)

// TestNextPowerOfTwo tests the padding helper
func TestNextPowerOfTwo(t *testing.T) {
	testCases := []struct {
		n    int
		want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{63, 64},
		{64, 64},
		{65, 128},
	}
	for _, tc := range testCases {
		if got := NextPowerOfTwo(tc.n); got != tc.want {
			t.Errorf("NextPowerOfTwo(%d): expected %d, got %d", tc.n, tc.want, got)
		}
	}
}

// TestNewMatrixPadding verifies heights are powers of two of at least
// MinHeight.
func TestNewMatrixPadding(t *testing.T) {
	testCases := []struct {
		rows       int
		wantHeight int
	}{
		{0, 2},
		{1, 2},
		{2, 2},
		{3, 4},
		{22, 32},
		{64, 64},
	}
	for _, tc := range testCases {
		m := NewMatrix(5, tc.rows)
		if m.Height() != tc.wantHeight {
			t.Errorf("rows=%d: expected height %d, got %d", tc.rows, tc.wantHeight, m.Height())
		}
		if m.Width() != 5 {
			t.Errorf("rows=%d: expected width 5, got %d", tc.rows, m.Width())
		}
	}
}

func TestMatrixRowAliasesStorage(t *testing.T) {
	m := NewMatrix(3, 4)
	m.Row(1)[2] = babybear.NewElement(7)

	if got := m.At(1, 2); got.Uint64() != 7 {
		t.Errorf("expected 7, got %s", got.String())
	}

	m.Set(3, 0, babybear.NewElement(9))
	if got := m.Row(3)[0]; got.Uint64() != 9 {
		t.Errorf("expected 9, got %s", got.String())
	}
}

// TestExprEval evaluates the expression nodes against a small witness.
func TestExprEval(t *testing.T) {
	m := NewMatrix(2, 4)
	for row := 0; row < 4; row++ {
		m.Set(row, 0, babybear.NewElement(uint64(row+1)))
		m.Set(row, 1, babybear.NewElement(uint64(10*(row+1))))
	}

	testCases := []struct {
		name string
		expr Expr
		row  int
		want uint64
	}{
		{"constant", ConstU64(42), 0, 42},
		{"local column", Col(1), 2, 30},
		{"next column", NextCol(0), 1, 3},
		{"shifted column", Shifted(1, 2), 0, 30},
		{"sum", Add(Col(0), Col(1), One()), 0, 12},
		{"difference", Sub(Col(1), Col(0)), 3, 36},
		{"product", Mul(Col(0), Col(1), ConstU64(2)), 1, 80},
		{"one minus", OneMinus(Zero()), 0, 1},
		{"periodic", PeriodicU32([]uint32{5, 6}, 0), 3, 6},
		{"periodic shifted", PeriodicU32([]uint32{5, 6}, 1), 3, 5},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.expr.EvalAt(m, tc.row)
			if got.Uint64() != tc.want {
				t.Errorf("expected %d, got %s", tc.want, got.String())
			}
		})
	}
}

// TestSubWrapsAroundModulus verifies subtraction closes over the field.
func TestSubWrapsAroundModulus(t *testing.T) {
	m := NewMatrix(1, 2)
	got := Sub(Zero(), One()).EvalAt(m, 0)

	var want babybear.Element
	want.SetOne()
	want.Neg(&want)

	if !got.Equal(&want) {
		t.Errorf("expected %s, got %s", want.String(), got.String())
	}
}

// TestBuilderScoping verifies When, WhenTransition and WhenFirstRow
// restrict where assertions are enforced.
func TestBuilderScoping(t *testing.T) {
	// Column 0 is a selector, column 1 the constrained value.
	m := NewMatrix(2, 4)
	m.Set(1, 0, babybear.NewElement(1))
	m.Set(1, 1, babybear.NewElement(5))
	m.Set(2, 1, babybear.NewElement(9)) // selector off: unconstrained

	t.Run("when enforces under selector only", func(t *testing.T) {
		b := NewBuilder()
		b.When(Col(0)).AssertEq("value.pinned", Col(1), ConstU64(5))

		if err := b.ConstraintSet().Check(m); err != nil {
			t.Errorf("unexpected violation: %v", err)
		}
	})

	t.Run("when reports violations under selector", func(t *testing.T) {
		b := NewBuilder()
		b.When(Col(0)).AssertEq("value.pinned", Col(1), ConstU64(6))

		if err := b.ConstraintSet().Check(m); err == nil {
			t.Errorf("expected violation at row 1")
		}
	})

	t.Run("transition skips the last row", func(t *testing.T) {
		// next.value = value is violated by rows 1 and 2; restrict to
		// a witness where only the final transition would break it.
		m2 := NewMatrix(1, 2)
		m2.Set(1, 0, babybear.NewElement(3))

		b := NewBuilder()
		b.WhenTransition().AssertEq("value.constant", NextCol(0), Col(0))

		if err := b.ConstraintSet().Check(m2); err == nil {
			t.Errorf("expected violation on the first transition")
		}

		m2.Set(0, 0, babybear.NewElement(3))
		if err := b.ConstraintSet().Check(m2); err != nil {
			t.Errorf("unexpected violation: %v", err)
		}
	})

	t.Run("first row only", func(t *testing.T) {
		b := NewBuilder()
		b.WhenFirstRow().AssertZero("starts.zero", Col(1))

		if err := b.ConstraintSet().Check(m); err != nil {
			t.Errorf("unexpected violation: %v", err)
		}

		m.Set(0, 1, babybear.NewElement(1))
		if err := b.ConstraintSet().Check(m); err == nil {
			t.Errorf("expected violation at row 0")
		}
		m.Set(0, 1, babybear.Element{})
	})

	t.Run("scopes compose", func(t *testing.T) {
		b := NewBuilder()
		b.WhenTransition().When(Col(0)).AssertEq("next.pinned", NextCol(1), ConstU64(9))

		if err := b.ConstraintSet().Check(m); err != nil {
			t.Errorf("unexpected violation: %v", err)
		}
	})
}

// TestAssertBool accepts 0 and 1 and rejects everything else.
func TestAssertBool(t *testing.T) {
	b := NewBuilder()
	b.AssertBool("flag.boolean", Col(0))
	cs := b.ConstraintSet()

	m := NewMatrix(1, 2)
	m.Set(1, 0, babybear.NewElement(1))
	if err := cs.Check(m); err != nil {
		t.Errorf("unexpected violation: %v", err)
	}

	m.Set(1, 0, babybear.NewElement(2))
	if err := cs.Check(m); err == nil {
		t.Errorf("expected violation for non-boolean value")
	}
}

func TestConstraintSetSize(t *testing.T) {
	b := NewBuilder()
	b.AssertZero("a", Zero())
	b.AssertOne("b", One())
	b.AssertEq("c", One(), One())

	if got := b.ConstraintSet().Size(); got != 3 {
		t.Errorf("expected 3 constraints, got %d", got)
	}
}
