package air

import "fmt"

// Constraint is a single polynomial identity that must vanish. Transition
// constraints relate a row to its successor and are not evaluated on the
// last row; first-row constraints apply to row 0 only.
type Constraint struct {
	// Handle names the constraint for diagnostics.
	Handle string
	// Expr must evaluate to zero on every applicable row.
	Expr Expr
	// Transition marks a constraint over the (local, next) row pair.
	Transition bool
	// FirstRowOnly restricts the constraint to row 0.
	FirstRowOnly bool
}

// ConstraintSet is the AIR of one chip: the ordered list of identities its
// witness must satisfy.
type ConstraintSet struct {
	constraints []Constraint
}

// Size returns the number of constraints.
func (cs *ConstraintSet) Size() int {
	return len(cs.constraints)
}

// Constraints returns the collected constraints.
func (cs *ConstraintSet) Constraints() []Constraint {
	return cs.constraints
}

// Check evaluates every constraint on every applicable row of a concrete
// witness. It returns nil if all identities vanish, otherwise an error
// naming the first violated constraint and row.
func (cs *ConstraintSet) Check(m *Matrix) error {
	for _, c := range cs.constraints {
		last := m.Height()
		if c.Transition {
			last = m.Height() - 1
		}

		first := 0
		if c.FirstRowOnly {
			last = 1
		}

		for row := first; row < last; row++ {
			if v := c.Expr.EvalAt(m, row); !v.IsZero() {
				return fmt.Errorf("constraint %q does not vanish at row %d (got %s)", c.Handle, row, v.String())
			}
		}
	}

	return nil
}

// Builder collects the constraints a chip emits. Scoping methods return
// derived builders: When multiplies subsequent assertions by a selector
// (so they are enforced exactly where the selector is non-zero), and
// WhenTransition restricts them to (local, next) row pairs. Scopes
// compose.
type Builder struct {
	cs           *ConstraintSet
	conds        []Expr
	transition   bool
	firstRowOnly bool
}

// NewBuilder creates a builder with an empty constraint set.
func NewBuilder() *Builder {
	return &Builder{cs: &ConstraintSet{}}
}

// ConstraintSet returns the constraints collected so far.
func (b *Builder) ConstraintSet() *ConstraintSet {
	return b.cs
}

// When scopes subsequent assertions by the given selector.
func (b *Builder) When(sel Expr) *Builder {
	derived := *b
	derived.conds = append(append([]Expr{}, b.conds...), sel)

	return &derived
}

// WhenTransition scopes subsequent assertions to row transitions; they are
// skipped on the final row.
func (b *Builder) WhenTransition() *Builder {
	derived := *b
	derived.transition = true

	return &derived
}

// WhenFirstRow scopes subsequent assertions to row 0.
func (b *Builder) WhenFirstRow() *Builder {
	derived := *b
	derived.firstRowOnly = true

	return &derived
}

// AssertZero requires the expression to vanish.
func (b *Builder) AssertZero(handle string, e Expr) {
	if len(b.conds) > 0 {
		args := append(append([]Expr{}, b.conds...), e)
		e = Mul(args...)
	}

	b.cs.constraints = append(b.cs.constraints, Constraint{
		Handle:       handle,
		Expr:         e,
		Transition:   b.transition,
		FirstRowOnly: b.firstRowOnly,
	})
}

// AssertOne requires the expression to equal one.
func (b *Builder) AssertOne(handle string, e Expr) {
	b.AssertZero(handle, Sub(e, One()))
}

// AssertEq requires the two expressions to be equal.
func (b *Builder) AssertEq(handle string, x, y Expr) {
	b.AssertZero(handle, Sub(x, y))
}

// AssertBool requires the expression to be 0 or 1.
func (b *Builder) AssertBool(handle string, e Expr) {
	b.AssertZero(handle, Mul(e, OneMinus(e)))
}
