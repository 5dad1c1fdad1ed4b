package chips

import (
	"encoding/binary"
	"math/bits"

	"github.com/zkir/zkir-prover/internal/zkir/air"
	"github.com/zkir/zkir-prover/internal/zkir/trace"
)

// Sha256Rounds is the number of compression rounds per message block,
// one trace row each.
const Sha256Rounds = 64

// SHA-256 column indices: call bookkeeping, the eight working
// variables before the round update, the schedule word and round
// constant, and the intermediate round values.
const (
	shaCycle = iota
	shaBlockIdx
	shaRound
	shaIsLastRound
	shaA
	shaB
	shaC
	shaD
	shaE
	shaF
	shaG
	shaH
	shaW
	shaK
	shaCh
	shaMaj
	shaSigma0
	shaSigma1
	shaTemp1
	shaTemp2

	// Sha256NumColumns is the SHA-256 chip width.
	Sha256NumColumns = shaTemp2 + 1
)

// sha256K is the SHA-256 round constant table.
var sha256K = [Sha256Rounds]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5,
	0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3,
	0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc,
	0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7,
	0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13,
	0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3,
	0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5,
	0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208,
	0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

// sha256H is the SHA-256 initial hash state.
var sha256H = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

// Sha256Chip proves SHA-256 compression one round per row: 64 rows per
// message block. Working variables are committed before the round
// update, temp1 and temp2 as untruncated field sums over them. The
// modular reduction and bitwise layers that pin ch, maj and the sigmas
// to the working variables live in the bit-decomposition tables and
// are outside this chip.
type Sha256Chip struct{}

// NewSha256Chip creates the SHA-256 chip
func NewSha256Chip() *Sha256Chip {
	return &Sha256Chip{}
}

// Name identifies the chip.
func (c *Sha256Chip) Name() string {
	return "sha256"
}

// Width returns the SHA-256 column count.
func (c *Sha256Chip) Width() int {
	return Sha256NumColumns
}

// SyscallCode returns the code this chip handles.
func (c *Sha256Chip) SyscallCode() trace.SyscallCode {
	return trace.SyscallSha256
}

// ConstraintsPerCall returns the constraint count for a single-block
// message. Longer messages scale linearly with the block count.
func (c *Sha256Chip) ConstraintsPerCall() int {
	return ConstraintSet(c).Size() * Sha256Rounds
}

// Eval emits the round constraints.
func (c *Sha256Chip) Eval(b *air.Builder) {
	round := air.Col(shaRound)
	nextRound := air.NextCol(shaRound)

	b.AssertBool("sha256.last_round.boolean", air.Col(shaIsLastRound))

	// The last-round flag follows the fixed block shape. Row 0 of each
	// block (round 0) is pinned by the syscall linkage instead.
	lastShape := make([]uint32, Sha256Rounds)
	lastShape[Sha256Rounds-1] = 1
	b.When(round).AssertEq("sha256.last_round.shape",
		air.Col(shaIsLastRound), air.PeriodicU32(lastShape, 0))

	// The round constant column carries the K table.
	b.When(round).AssertEq("sha256.round_constant",
		air.Col(shaK), air.PeriodicU32(sha256K[:], 0))

	// temp1 = h + Sigma1 + ch + w + k and temp2 = Sigma0 + maj as
	// untruncated sums. Holds on padding rows, where every term is
	// zero.
	b.AssertEq("sha256.temp1", air.Col(shaTemp1),
		air.Add(air.Col(shaH), air.Col(shaSigma1), air.Col(shaCh), air.Col(shaW), air.Col(shaK)))
	b.AssertEq("sha256.temp2", air.Col(shaTemp2),
		air.Add(air.Col(shaSigma0), air.Col(shaMaj)))

	// Working-variable rotations into the next round. next.e and
	// next.a additionally fold in temp1 modulo 2^32, which needs the
	// carry decomposition and is enforced there.
	rotations := []struct {
		handle   string
		dst, src int
	}{
		{"sha256.rotate.b", shaB, shaA},
		{"sha256.rotate.c", shaC, shaB},
		{"sha256.rotate.d", shaD, shaC},
		{"sha256.rotate.f", shaF, shaE},
		{"sha256.rotate.g", shaG, shaF},
		{"sha256.rotate.h", shaH, shaG},
	}
	for _, rot := range rotations {
		b.WhenTransition().When(nextRound).
			AssertEq(rot.handle, air.NextCol(rot.dst), air.Col(rot.src))
	}

	// Round bookkeeping within a block.
	b.WhenTransition().When(nextRound).
		AssertEq("sha256.round.increment", nextRound, air.Add(round, air.One()))
	b.WhenTransition().When(nextRound).
		AssertEq("sha256.block.constant", air.NextCol(shaBlockIdx), air.Col(shaBlockIdx))
	b.WhenTransition().When(nextRound).
		AssertEq("sha256.cycle.constant", air.NextCol(shaCycle), air.Col(shaCycle))
}

// GenerateTrace filters the trace's syscall log by code and fills 64
// rows per message block.
func (c *Sha256Chip) GenerateTrace(t *trace.ExecutionTrace) *air.Matrix {
	return c.GenerateSyscallTrace(t.Syscalls)
}

// GenerateSyscallTrace runs the real compression function for every
// matching record, one row per round.
func (c *Sha256Chip) GenerateSyscallTrace(records []trace.SyscallRecord) *air.Matrix {
	calls := make([]trace.SyscallRecord, 0)
	blocks := make([][][64]byte, 0)
	rows := 0
	for _, rec := range records {
		if rec.Code != uint32(trace.SyscallSha256) {
			continue
		}
		padded := sha256PadMessage(rec.Inputs)
		calls = append(calls, rec)
		blocks = append(blocks, padded)
		rows += len(padded) * Sha256Rounds
	}

	m := air.NewMatrix(Sha256NumColumns, rows)

	row := 0
	for k, call := range calls {
		// A record that declares outputs must declare the true digest;
		// a mismatched claim gets no witness rows, leaving its block
		// zeroed.
		if len(call.Outputs) > 0 && !digestMatches(c.Digest(call.Inputs), call.Outputs) {
			row += len(blocks[k]) * Sha256Rounds
			continue
		}

		state := sha256H
		for blockIdx, block := range blocks[k] {
			w := sha256Schedule(&block)
			a, bb, cc, d, e, f, g, h := state[0], state[1], state[2], state[3], state[4], state[5], state[6], state[7]

			for r := 0; r < Sha256Rounds; r++ {
				sigma1 := bits.RotateLeft32(e, -6) ^ bits.RotateLeft32(e, -11) ^ bits.RotateLeft32(e, -25)
				ch := (e & f) ^ (^e & g)
				sigma0 := bits.RotateLeft32(a, -2) ^ bits.RotateLeft32(a, -13) ^ bits.RotateLeft32(a, -22)
				maj := (a & bb) ^ (a & cc) ^ (bb & cc)

				out := m.Row(row)
				out[shaCycle] = feltU64(call.Cycle)
				out[shaBlockIdx] = feltU64(uint64(blockIdx))
				out[shaRound] = feltU64(uint64(r))
				out[shaIsLastRound] = feltBool(r == Sha256Rounds-1)
				out[shaA] = feltU32(a)
				out[shaB] = feltU32(bb)
				out[shaC] = feltU32(cc)
				out[shaD] = feltU32(d)
				out[shaE] = feltU32(e)
				out[shaF] = feltU32(f)
				out[shaG] = feltU32(g)
				out[shaH] = feltU32(h)
				out[shaW] = feltU32(w[r])
				out[shaK] = feltU32(sha256K[r])
				out[shaCh] = feltU32(ch)
				out[shaMaj] = feltU32(maj)
				out[shaSigma0] = feltU32(sigma0)
				out[shaSigma1] = feltU32(sigma1)

				t1 := out[shaH]
				for _, term := range []int{shaSigma1, shaCh, shaW, shaK} {
					t1.Add(&t1, &out[term])
				}
				out[shaTemp1] = t1

				t2 := out[shaSigma0]
				t2.Add(&t2, &out[shaMaj])
				out[shaTemp2] = t2

				temp1 := h + sigma1 + ch + w[r] + sha256K[r]
				temp2 := sigma0 + maj
				h, g, f = g, f, e
				e = d + temp1
				d, cc, bb = cc, bb, a
				a = temp1 + temp2

				row++
			}

			state[0] += a
			state[1] += bb
			state[2] += cc
			state[3] += d
			state[4] += e
			state[5] += f
			state[6] += g
			state[7] += h
		}
	}

	return m
}

// digestMatches compares a computed digest against a record's declared
// output words.
func digestMatches(digest [8]uint32, outputs []uint32) bool {
	if len(outputs) != len(digest) {
		return false
	}
	for i, w := range digest {
		if outputs[i] != w {
			return false
		}
	}

	return true
}

// Digest hashes the record's input words and returns the eight digest
// words, matching what the syscall wrote back.
func (c *Sha256Chip) Digest(inputs []uint32) [8]uint32 {
	state := sha256H
	for _, block := range sha256PadMessage(inputs) {
		w := sha256Schedule(&block)
		a, b, cc, d, e, f, g, h := state[0], state[1], state[2], state[3], state[4], state[5], state[6], state[7]

		for r := 0; r < Sha256Rounds; r++ {
			sigma1 := bits.RotateLeft32(e, -6) ^ bits.RotateLeft32(e, -11) ^ bits.RotateLeft32(e, -25)
			ch := (e & f) ^ (^e & g)
			temp1 := h + sigma1 + ch + w[r] + sha256K[r]
			sigma0 := bits.RotateLeft32(a, -2) ^ bits.RotateLeft32(a, -13) ^ bits.RotateLeft32(a, -22)
			maj := (a & b) ^ (a & cc) ^ (b & cc)
			temp2 := sigma0 + maj

			h, g, f = g, f, e
			e = d + temp1
			d, cc, b = cc, b, a
			a = temp1 + temp2
		}

		state[0] += a
		state[1] += b
		state[2] += cc
		state[3] += d
		state[4] += e
		state[5] += f
		state[6] += g
		state[7] += h
	}

	return state
}

// sha256PadMessage serializes the input words big-endian, applies the
// standard SHA-256 padding, and splits into 64-byte blocks.
func sha256PadMessage(inputs []uint32) [][64]byte {
	msg := make([]byte, 0, len(inputs)*4+72)
	for _, word := range inputs {
		msg = binary.BigEndian.AppendUint32(msg, word)
	}

	bitLen := uint64(len(msg)) * 8
	msg = append(msg, 0x80)
	for len(msg)%64 != 56 {
		msg = append(msg, 0x00)
	}
	msg = binary.BigEndian.AppendUint64(msg, bitLen)

	blocks := make([][64]byte, len(msg)/64)
	for i := range blocks {
		copy(blocks[i][:], msg[i*64:])
	}

	return blocks
}

// sha256Schedule expands one block into the 64-word message schedule.
func sha256Schedule(block *[64]byte) [Sha256Rounds]uint32 {
	var w [Sha256Rounds]uint32
	for i := 0; i < 16; i++ {
		w[i] = binary.BigEndian.Uint32(block[i*4:])
	}
	for i := 16; i < Sha256Rounds; i++ {
		s0 := bits.RotateLeft32(w[i-15], -7) ^ bits.RotateLeft32(w[i-15], -18) ^ (w[i-15] >> 3)
		s1 := bits.RotateLeft32(w[i-2], -17) ^ bits.RotateLeft32(w[i-2], -19) ^ (w[i-2] >> 10)
		w[i] = w[i-16] + s0 + s1 + w[i-7]
	}

	return w
}
