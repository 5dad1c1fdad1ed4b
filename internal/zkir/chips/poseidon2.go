package chips

import (
	"encoding/binary"
	"sync"

	"github.com/consensys/gnark-crypto/field/babybear"
	"golang.org/x/crypto/blake2b"

	"github.com/zkir/zkir-prover/internal/zkir/air"
	"github.com/zkir/zkir-prover/internal/zkir/trace"
)

// Poseidon2 permutation shape.
const (
	// Poseidon2Width is the permutation state width.
	Poseidon2Width = 16
	// Poseidon2FullRounds is the number of full rounds, split evenly
	// around the partial run.
	Poseidon2FullRounds = 8
	// Poseidon2PartialRounds is the number of partial rounds.
	Poseidon2PartialRounds = 14
	// Poseidon2Rounds is the total round count, one trace row each.
	Poseidon2Rounds = Poseidon2FullRounds + Poseidon2PartialRounds
)

// Poseidon2 column indices: cycle, round, full-round flag, the round
// input state (round constants already added), and the state after the
// S-box layer.
const (
	posCycle = iota
	posRound
	posIsFullRound
	posState // 16 lanes
	posSbox = posState + Poseidon2Width

	// Poseidon2NumColumns is the Poseidon2 chip width.
	Poseidon2NumColumns = posSbox + Poseidon2Width
)

// isFullRound reports whether round r is a full round.
func isFullRound(r int) bool {
	half := Poseidon2FullRounds / 2
	return r < half || r >= half+Poseidon2PartialRounds
}

var (
	poseidonOnce sync.Once
	poseidonRC   [Poseidon2Rounds][Poseidon2Width]babybear.Element
	poseidonMDS  [Poseidon2Width][Poseidon2Width]babybear.Element
)

// poseidonParams returns the round constants and the linear layer,
// expanded deterministically from a blake2b stream over a fixed
// domain-separation seed. Partial rounds add a constant to lane 0 only;
// the unused lanes stay zero so one constant table serves every round.
func poseidonParams() (*[Poseidon2Rounds][Poseidon2Width]babybear.Element, *[Poseidon2Width][Poseidon2Width]babybear.Element) {
	poseidonOnce.Do(func() {
		stream := newConstantStream("zkir.poseidon2.babybear.v1")

		for r := 0; r < Poseidon2Rounds; r++ {
			if isFullRound(r) {
				for i := 0; i < Poseidon2Width; i++ {
					poseidonRC[r][i] = stream.next()
				}
			} else {
				poseidonRC[r][0] = stream.next()
			}
		}

		for i := 0; i < Poseidon2Width; i++ {
			for j := 0; j < Poseidon2Width; j++ {
				poseidonMDS[i][j] = stream.next()
			}
		}
	})

	return &poseidonRC, &poseidonMDS
}

// constantStream draws field elements from a counter-mode blake2b
// stream.
type constantStream struct {
	seed    [32]byte
	counter uint64
	buf     [32]byte
	off     int
}

func newConstantStream(domain string) *constantStream {
	s := &constantStream{seed: blake2b.Sum256([]byte(domain))}
	s.refill()

	return s
}

func (s *constantStream) refill() {
	var block [40]byte
	copy(block[:32], s.seed[:])
	binary.LittleEndian.PutUint64(block[32:], s.counter)
	s.counter++
	s.buf = blake2b.Sum256(block[:])
	s.off = 0
}

func (s *constantStream) next() babybear.Element {
	if s.off+8 > len(s.buf) {
		s.refill()
	}

	v := binary.LittleEndian.Uint64(s.buf[s.off : s.off+8])
	s.off += 8

	var e babybear.Element
	e.SetUint64(v)

	return e
}

// Poseidon2Chip proves the Poseidon2 permutation one round per row: 22
// rows per syscall invocation. The committed state columns carry the
// round input with constants already added, so the S-box and linear
// layers close over committed cells.
type Poseidon2Chip struct{}

// NewPoseidon2Chip creates the Poseidon2 chip
func NewPoseidon2Chip() *Poseidon2Chip {
	return &Poseidon2Chip{}
}

// Name identifies the chip.
func (c *Poseidon2Chip) Name() string {
	return "poseidon2"
}

// Width returns the Poseidon2 column count.
func (c *Poseidon2Chip) Width() int {
	return Poseidon2NumColumns
}

// SyscallCode returns the code this chip handles.
func (c *Poseidon2Chip) SyscallCode() trace.SyscallCode {
	return trace.SyscallPoseidon2
}

// ConstraintsPerCall returns the constraint count of one invocation.
func (c *Poseidon2Chip) ConstraintsPerCall() int {
	return ConstraintSet(c).Size() * Poseidon2Rounds
}

// Eval emits the round constraints.
func (c *Poseidon2Chip) Eval(b *air.Builder) {
	rc, mds := poseidonParams()

	round := air.Col(posRound)
	nextRound := air.NextCol(posRound)
	isFull := air.Col(posIsFullRound)

	b.AssertBool("poseidon2.full_round.boolean", isFull)

	// The flag must follow the fixed round shape. Row 0 of each call
	// (round 0) is pinned by the syscall linkage instead.
	shape := make([]babybear.Element, Poseidon2Rounds)
	for r := range shape {
		shape[r] = feltBool(isFullRound(r))
	}

	b.When(round).AssertEq("poseidon2.full_round.shape", isFull, air.Periodic(shape, 0))

	// S-box x^7: every lane in full rounds, lane 0 only in partial
	// rounds with the remaining lanes passed through.
	for i := 0; i < Poseidon2Width; i++ {
		state := air.Col(posState + i)
		sbox := air.Col(posSbox + i)
		pow7 := air.Mul(state, state, state, state, state, state, state)

		b.When(isFull).AssertEq("poseidon2.sbox.full", sbox, pow7)

		if i == 0 {
			b.When(air.OneMinus(isFull)).AssertEq("poseidon2.sbox.partial", sbox, pow7)
		} else {
			b.When(air.OneMinus(isFull)).AssertEq("poseidon2.sbox.passthrough", sbox, state)
		}
	}

	// Linear layer chaining: the next row's state is the mixed S-box
	// output plus the next round's constants. Vanishes into row 0 of
	// each call and into padding, where next.round is zero.
	for i := 0; i < Poseidon2Width; i++ {
		terms := make([]air.Expr, 0, Poseidon2Width+1)
		for j := 0; j < Poseidon2Width; j++ {
			terms = append(terms, air.Mul(air.Const(mds[i][j]), air.Col(posSbox+j)))
		}

		lane := make([]babybear.Element, Poseidon2Rounds)
		for r := 0; r < Poseidon2Rounds; r++ {
			lane[r] = rc[r][i]
		}
		terms = append(terms, air.Periodic(lane, 1))

		b.WhenTransition().When(nextRound).
			AssertEq("poseidon2.linear_layer", air.NextCol(posState+i), air.Add(terms...))
	}

	// Round bookkeeping within a call.
	b.WhenTransition().When(nextRound).
		AssertEq("poseidon2.round.increment", nextRound, air.Add(round, air.One()))
	b.WhenTransition().When(nextRound).
		AssertEq("poseidon2.cycle.constant", air.NextCol(posCycle), air.Col(posCycle))
}

// GenerateTrace filters the trace's syscall log by code and fills 22
// rows per invocation.
func (c *Poseidon2Chip) GenerateTrace(t *trace.ExecutionTrace) *air.Matrix {
	return c.GenerateSyscallTrace(t.Syscalls)
}

// GenerateSyscallTrace runs the real permutation for every matching
// record, one row per round.
func (c *Poseidon2Chip) GenerateSyscallTrace(records []trace.SyscallRecord) *air.Matrix {
	rc, mds := poseidonParams()

	calls := make([]trace.SyscallRecord, 0)
	for _, rec := range records {
		if rec.Code == uint32(trace.SyscallPoseidon2) {
			calls = append(calls, rec)
		}
	}

	m := air.NewMatrix(Poseidon2NumColumns, len(calls)*Poseidon2Rounds)

	for k, call := range calls {
		var state [Poseidon2Width]babybear.Element
		for i := 0; i < Poseidon2Width && i < len(call.Inputs); i++ {
			state[i] = feltU32(call.Inputs[i])
		}

		for r := 0; r < Poseidon2Rounds; r++ {
			row := m.Row(k*Poseidon2Rounds + r)
			row[posCycle] = feltU64(call.Cycle)
			row[posRound] = feltU64(uint64(r))
			row[posIsFullRound] = feltBool(isFullRound(r))

			// Add round constants, apply the S-box layer, commit both.
			var sbox [Poseidon2Width]babybear.Element
			for i := 0; i < Poseidon2Width; i++ {
				state[i].Add(&state[i], &rc[r][i])
				row[posState+i] = state[i]

				if isFullRound(r) || i == 0 {
					sbox[i] = pow7(state[i])
				} else {
					sbox[i] = state[i]
				}
				row[posSbox+i] = sbox[i]
			}

			// Mix through the linear layer into the next round.
			var mixed [Poseidon2Width]babybear.Element
			for i := 0; i < Poseidon2Width; i++ {
				var acc babybear.Element
				for j := 0; j < Poseidon2Width; j++ {
					var term babybear.Element
					term.Mul(&mds[i][j], &sbox[j])
					acc.Add(&acc, &term)
				}
				mixed[i] = acc
			}
			state = mixed
		}
	}

	return m
}

// pow7 computes x^7 with three multiplications.
func pow7(x babybear.Element) babybear.Element {
	var x2, x4, out babybear.Element
	x2.Square(&x)
	x4.Square(&x2)
	out.Mul(&x4, &x2)
	out.Mul(&out, &x)

	return out
}
