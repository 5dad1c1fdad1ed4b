package chips

import (
	"testing"

	"github.com/consensys/gnark-crypto/field/babybear"

	"github.com/zkir/zkir-prover/internal/zkir/trace"
)

func poseidonTrace(n int) *trace.ExecutionTrace {
	t := trace.New([32]byte{5})
	for i := 0; i < n; i++ {
		inputs := make([]uint32, Poseidon2Width)
		for j := range inputs {
			inputs[j] = uint32(i*Poseidon2Width + j)
		}
		t.Syscalls = append(t.Syscalls, trace.SyscallRecord{
			Code:   uint32(trace.SyscallPoseidon2),
			Cycle:  uint64(10 * (i + 1)),
			Inputs: inputs,
		})
	}

	return t
}

func TestPoseidon2GenerateTrace(t *testing.T) {
	chip := NewPoseidon2Chip()
	m := chip.GenerateTrace(poseidonTrace(1))

	if m.Width() != Poseidon2NumColumns {
		t.Fatalf("expected width %d, got %d", Poseidon2NumColumns, m.Width())
	}
	// 22 rounds pad to 32.
	if m.Height() != 32 {
		t.Fatalf("expected height 32, got %d", m.Height())
	}

	t.Run("round counter walks the call", func(t *testing.T) {
		for r := 0; r < Poseidon2Rounds; r++ {
			if got := m.At(r, posRound); got.Uint64() != uint64(r) {
				t.Errorf("row %d: expected round %d, got %s", r, r, got.String())
			}
			if got := m.At(r, posCycle); got.Uint64() != 10 {
				t.Errorf("row %d: expected cycle 10, got %s", r, got.String())
			}
		}
	})

	t.Run("full rounds bracket the partial run", func(t *testing.T) {
		for r := 0; r < Poseidon2Rounds; r++ {
			want := isFullRound(r)
			flag := m.At(r, posIsFullRound)
			if flag.IsOne() != want {
				t.Errorf("round %d: expected full=%v", r, want)
			}
		}
	})

	t.Run("partial rounds pass lanes through", func(t *testing.T) {
		// Round 4 is partial: lanes beyond 0 are untouched by the
		// S-box layer.
		for i := 1; i < Poseidon2Width; i++ {
			state := m.At(4, posState+i)
			sbox := m.At(4, posSbox+i)
			if !state.Equal(&sbox) {
				t.Errorf("lane %d: expected passthrough, state=%s sbox=%s", i, state.String(), sbox.String())
			}
		}
	})

	t.Run("full rounds apply x^7 to every lane", func(t *testing.T) {
		for i := 0; i < Poseidon2Width; i++ {
			want := pow7(m.At(0, posState+i))
			got := m.At(0, posSbox+i)
			if !got.Equal(&want) {
				t.Errorf("lane %d: expected %s, got %s", i, want.String(), got.String())
			}
		}
	})
}

func TestPoseidon2Determinism(t *testing.T) {
	chip := NewPoseidon2Chip()
	a := chip.GenerateTrace(poseidonTrace(2))
	b := chip.GenerateTrace(poseidonTrace(2))

	for row := 0; row < a.Height(); row++ {
		for col := 0; col < a.Width(); col++ {
			x, y := a.At(row, col), b.At(row, col)
			if !x.Equal(&y) {
				t.Fatalf("witness differs at row %d col %d", row, col)
			}
		}
	}
}

func TestPoseidon2ConstraintsSatisfied(t *testing.T) {
	chip := NewPoseidon2Chip()

	for _, n := range []int{0, 1, 2, 3} {
		m := chip.GenerateTrace(poseidonTrace(n))
		if err := ConstraintSet(chip).Check(m); err != nil {
			t.Errorf("%d calls: constraints violated: %v", n, err)
		}
	}
}

func TestPoseidon2ConstraintsCatchTampering(t *testing.T) {
	chip := NewPoseidon2Chip()
	cs := ConstraintSet(chip)

	t.Run("forged sbox output", func(t *testing.T) {
		m := chip.GenerateTrace(poseidonTrace(1))
		m.Set(0, posSbox, babybear.NewElement(123))
		if err := cs.Check(m); err == nil {
			t.Errorf("expected sbox violation")
		}
	})

	t.Run("forged state chaining", func(t *testing.T) {
		m := chip.GenerateTrace(poseidonTrace(1))
		v := m.At(5, posState)
		v.Add(&v, new(babybear.Element).SetOne())
		m.Set(5, posState, v)
		if err := cs.Check(m); err == nil {
			t.Errorf("expected linear layer violation")
		}
	})

	t.Run("wrong round shape", func(t *testing.T) {
		m := chip.GenerateTrace(poseidonTrace(1))
		m.Set(4, posIsFullRound, babybear.NewElement(1))
		if err := cs.Check(m); err == nil {
			t.Errorf("expected round shape violation")
		}
	})
}

func TestPoseidon2ConstraintsPerCall(t *testing.T) {
	chip := NewPoseidon2Chip()
	want := ConstraintSet(chip).Size() * Poseidon2Rounds

	if got := chip.ConstraintsPerCall(); got != want || got == 0 {
		t.Errorf("expected %d constraints per call, got %d", want, got)
	}
}
