package chips

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/consensys/gnark-crypto/field/babybear"

	"github.com/zkir/zkir-prover/internal/zkir/trace"
)

func sha256Trace(inputs []uint32) *trace.ExecutionTrace {
	t := trace.New([32]byte{6})
	t.Syscalls = []trace.SyscallRecord{
		{Code: uint32(trace.SyscallSha256), Cycle: 20, Inputs: inputs},
	}

	return t
}

// TestSha256DigestMatchesStdlib verifies the round function against the
// standard library over messages spanning one and two padding blocks.
func TestSha256DigestMatchesStdlib(t *testing.T) {
	testCases := []struct {
		name   string
		inputs []uint32
	}{
		{"empty", nil},
		{"one word", []uint32{0xdeadbeef}},
		{"thirteen words", make([]uint32, 13)},
		{"two blocks", make([]uint32, 20)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := make([]byte, 0, len(tc.inputs)*4)
			for _, w := range tc.inputs {
				msg = binary.BigEndian.AppendUint32(msg, w)
			}
			want := sha256.Sum256(msg)

			state := NewSha256Chip().Digest(tc.inputs)
			var got [32]byte
			for i, w := range state {
				binary.BigEndian.PutUint32(got[i*4:], w)
			}

			if got != want {
				t.Errorf("expected %x, got %x", want, got)
			}
		})
	}
}

func TestSha256GenerateTrace(t *testing.T) {
	chip := NewSha256Chip()

	// 13 words = 52 bytes: one padded block. 20 words = 80 bytes: two.
	t.Run("row count follows block count", func(t *testing.T) {
		if h := chip.GenerateTrace(sha256Trace(make([]uint32, 13))).Height(); h != 64 {
			t.Errorf("expected height 64 for one block, got %d", h)
		}
		if h := chip.GenerateTrace(sha256Trace(make([]uint32, 20))).Height(); h != 128 {
			t.Errorf("expected height 128 for two blocks, got %d", h)
		}
	})

	m := chip.GenerateTrace(sha256Trace([]uint32{0x61626364}))

	t.Run("initial working variables", func(t *testing.T) {
		// Constants above the field modulus land reduced.
		for i, h := range sha256H {
			want := feltU32(h)
			if got := m.At(0, shaA+i); !got.Equal(&want) {
				t.Errorf("var %d: expected %#x, got %s", i, h, got.String())
			}
		}
	})

	t.Run("schedule starts with the message", func(t *testing.T) {
		if got := m.At(0, shaW); got.Uint64() != 0x61626364 {
			t.Errorf("expected w[0] to carry the input word, got %s", got.String())
		}
	})

	t.Run("round constants follow the k table", func(t *testing.T) {
		for r := 0; r < Sha256Rounds; r++ {
			want := feltU32(sha256K[r])
			if got := m.At(r, shaK); !got.Equal(&want) {
				t.Errorf("round %d: expected k=%#x, got %s", r, sha256K[r], got.String())
			}
		}
	})

	t.Run("last-round flag marks round 63 only", func(t *testing.T) {
		for r := 0; r < Sha256Rounds; r++ {
			want := r == Sha256Rounds-1
			flag := m.At(r, shaIsLastRound)
			if flag.IsOne() != want {
				t.Errorf("round %d: expected last=%v", r, want)
			}
		}
	})
}

// TestSha256DeclaredOutputs verifies that records declaring the true
// digest generate witness rows while mismatched claims leave their block
// zeroed.
func TestSha256DeclaredOutputs(t *testing.T) {
	chip := NewSha256Chip()
	inputs := []uint32{0x11223344}
	digest := chip.Digest(inputs)

	t.Run("true digest fills the block", func(t *testing.T) {
		tr := trace.New([32]byte{})
		tr.Syscalls = []trace.SyscallRecord{
			{Code: uint32(trace.SyscallSha256), Cycle: 1, Inputs: inputs, Outputs: digest[:]},
		}
		m := chip.GenerateTrace(tr)
		if got := m.At(0, shaW); got.Uint64() != uint64(inputs[0]) {
			t.Errorf("expected populated rows, got w[0]=%s", got.String())
		}
	})

	t.Run("forged digest zeroes the block", func(t *testing.T) {
		forged := make([]uint32, len(digest))
		copy(forged, digest[:])
		forged[0] ^= 1

		tr := trace.New([32]byte{})
		tr.Syscalls = []trace.SyscallRecord{
			{Code: uint32(trace.SyscallSha256), Cycle: 1, Inputs: inputs, Outputs: forged},
		}
		m := chip.GenerateTrace(tr)
		for r := 0; r < Sha256Rounds; r++ {
			for col := 0; col < Sha256NumColumns; col++ {
				if v := m.At(r, col); !v.IsZero() {
					t.Fatalf("row %d col %d not zeroed: %s", r, col, v.String())
				}
			}
		}

		if err := ConstraintSet(chip).Check(m); err != nil {
			t.Errorf("constraints violated on zeroed block: %v", err)
		}
	})
}

func TestSha256ConstraintsSatisfied(t *testing.T) {
	chip := NewSha256Chip()

	traces := []struct {
		name string
		t    *trace.ExecutionTrace
	}{
		{"no calls", trace.New([32]byte{})},
		{"one block", sha256Trace([]uint32{1, 2, 3})},
		{"two blocks", sha256Trace(make([]uint32, 20))},
	}
	for _, tc := range traces {
		t.Run(tc.name, func(t *testing.T) {
			m := chip.GenerateTrace(tc.t)
			if err := ConstraintSet(chip).Check(m); err != nil {
				t.Errorf("constraints violated: %v", err)
			}
		})
	}
}

func TestSha256ConstraintsCatchTampering(t *testing.T) {
	chip := NewSha256Chip()
	cs := ConstraintSet(chip)

	t.Run("forged temp1", func(t *testing.T) {
		m := chip.GenerateTrace(sha256Trace([]uint32{7}))
		m.Set(3, shaTemp1, babybear.NewElement(1))
		if err := cs.Check(m); err == nil {
			t.Errorf("expected temp1 violation")
		}
	})

	t.Run("broken rotation", func(t *testing.T) {
		m := chip.GenerateTrace(sha256Trace([]uint32{7}))
		v := m.At(5, shaB)
		v.Add(&v, new(babybear.Element).SetOne())
		m.Set(5, shaB, v)
		if err := cs.Check(m); err == nil {
			t.Errorf("expected rotation violation")
		}
	})

	t.Run("wrong round constant", func(t *testing.T) {
		m := chip.GenerateTrace(sha256Trace([]uint32{7}))
		m.Set(9, shaK, babybear.NewElement(1))
		if err := cs.Check(m); err == nil {
			t.Errorf("expected k table violation")
		}
	})
}

func TestSha256ConstraintsPerCall(t *testing.T) {
	chip := NewSha256Chip()
	want := ConstraintSet(chip).Size() * Sha256Rounds

	if got := chip.ConstraintsPerCall(); got != want || got == 0 {
		t.Errorf("expected %d constraints per call, got %d", want, got)
	}
}
