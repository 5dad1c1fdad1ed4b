// Package trace defines the execution trace model consumed by the witness
// generators. A trace is produced once by the ZK IR interpreter and is
// read-only afterwards; every chip derives its witness matrix from it.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// NumRegisters is the size of the ZK IR register file.
const NumRegisters = 32

// WordSize is the machine word size in bytes.
const WordSize = 4

// Step is a single executed instruction together with the register file
// snapshot taken after the instruction retired.
type Step struct {
	PC     uint32 `json:"pc"`
	Cycle  uint64 `json:"cycle"`
	Opcode uint8  `json:"opcode"`
	Rd     uint8  `json:"rd"`
	Rs1    uint8  `json:"rs1"`
	Rs2    uint8  `json:"rs2"`
	Imm    int32  `json:"imm"`
	Funct  uint8  `json:"funct"`

	// Register file state after this step.
	Registers [NumRegisters]uint32 `json:"registers"`
}

// MemoryAccess is one read or write of a memory word.
type MemoryAccess struct {
	Address uint32 `json:"address"`
	Cycle   uint64 `json:"cycle"`
	Value   uint32 `json:"value"`
	IsWrite bool   `json:"is_write"`
}

// SyscallCode identifies which cryptographic operation a syscall invoked.
type SyscallCode uint32

const (
	SyscallPoseidon2     SyscallCode = 0x01
	SyscallKeccak256     SyscallCode = 0x02
	SyscallSha256        SyscallCode = 0x03
	SyscallBlake3        SyscallCode = 0x04
	SyscallEcdsaVerify   SyscallCode = 0x10
	SyscallEd25519Verify SyscallCode = 0x11
	SyscallBigintAdd     SyscallCode = 0x20
	SyscallBigintMul     SyscallCode = 0x21
)

// String returns the name of the syscall
func (c SyscallCode) String() string {
	switch c {
	case SyscallPoseidon2:
		return "Poseidon2"
	case SyscallKeccak256:
		return "Keccak256"
	case SyscallSha256:
		return "Sha256"
	case SyscallBlake3:
		return "Blake3"
	case SyscallEcdsaVerify:
		return "EcdsaVerify"
	case SyscallEd25519Verify:
		return "Ed25519Verify"
	case SyscallBigintAdd:
		return "BigintAdd"
	case SyscallBigintMul:
		return "BigintMul"
	default:
		return "Unknown"
	}
}

// SyscallRecord is one cryptographic syscall invocation. Input and output
// words depend on the syscall type.
type SyscallRecord struct {
	Code    uint32   `json:"code"`
	Cycle   uint64   `json:"cycle"`
	Inputs  []uint32 `json:"inputs"`
	Outputs []uint32 `json:"outputs"`
}

// ExecutionTrace is the complete record of one program execution: the
// per-instruction steps, the memory log in execution order, and every
// cryptographic syscall. Steps are ordered by strictly increasing cycle.
type ExecutionTrace struct {
	ProgramHash [32]byte        `json:"program_hash"`
	Inputs      []uint32        `json:"inputs"`
	Outputs     []uint32        `json:"outputs"`
	Steps       []Step          `json:"steps"`
	MemoryLog   []MemoryAccess  `json:"memory_log"`
	Syscalls    []SyscallRecord `json:"syscalls"`
}

// New creates an empty execution trace for the given program
func New(programHash [32]byte) *ExecutionTrace {
	return &ExecutionTrace{
		ProgramHash: programHash,
		Inputs:      make([]uint32, 0),
		Outputs:     make([]uint32, 0),
		Steps:       make([]Step, 0),
		MemoryLog:   make([]MemoryAccess, 0),
		Syscalls:    make([]SyscallRecord, 0),
	}
}

// Load reads a serialized execution trace from a file
func Load(path string) (*ExecutionTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}

	var tr ExecutionTrace
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode trace: %w", err)
	}

	return &tr, nil
}

// Save writes the execution trace to a file
func (t *ExecutionTrace) Save(path string) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write trace file: %w", err)
	}

	return nil
}

// ContentKey returns the blake2b digest of the canonical serialization.
// Persisted trace blobs are stored under this key.
func (t *ExecutionTrace) ContentKey() ([32]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return [32]byte{}, fmt.Errorf("failed to encode trace: %w", err)
	}

	return blake2b.Sum256(data), nil
}

// NumCycles returns the cycle counter of the last step, or 0 for an empty
// trace.
func (t *ExecutionTrace) NumCycles() uint64 {
	if len(t.Steps) == 0 {
		return 0
	}

	return t.Steps[len(t.Steps)-1].Cycle
}

// SortedMemoryLog returns a copy of the memory log sorted by (address,
// cycle) ascending. The execution-order log is left untouched; the sorted
// view is what turns read/write consistency into an adjacency property.
func (t *ExecutionTrace) SortedMemoryLog() []MemoryAccess {
	sorted := make([]MemoryAccess, len(t.MemoryLog))
	copy(sorted, t.MemoryLog)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Address != sorted[j].Address {
			return sorted[i].Address < sorted[j].Address
		}
		return sorted[i].Cycle < sorted[j].Cycle
	})

	return sorted
}

// SyscallsByCode returns the syscall records matching the given code, in
// invocation order.
func (t *ExecutionTrace) SyscallsByCode(code SyscallCode) []SyscallRecord {
	matched := make([]SyscallRecord, 0)
	for _, s := range t.Syscalls {
		if s.Code == uint32(code) {
			matched = append(matched, s)
		}
	}

	return matched
}
