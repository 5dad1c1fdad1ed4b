package chips

import (
	"github.com/zkir/zkir-prover/internal/zkir/air"
	"github.com/zkir/zkir-prover/internal/zkir/trace"
)

// CPUChip proves that every row is one valid instruction step and that
// the state transition into the following row is consistent.
type CPUChip struct{}

// NewCPUChip creates the CPU chip
func NewCPUChip() *CPUChip {
	return &CPUChip{}
}

// Name identifies the chip.
func (c *CPUChip) Name() string {
	return "cpu"
}

// Width returns the CPU column count.
func (c *CPUChip) Width() int {
	return CPUNumColumns
}

// Eval emits the CPU constraints. Opcode-class dispatch is one-hot: a
// polynomial identity cannot branch, so each instruction class gets a
// boolean selector column and the selectors must sum to exactly one.
func (c *CPUChip) Eval(b *air.Builder) {
	local := cpuView(air.Col)
	next := cpuView(air.NextCol)

	// Exactly one opcode-class flag per row.
	flags := local.OpcodeFlags()
	b.AssertOne("cpu.flags.one_hot", air.Add(flags[:]...))

	for _, flag := range flags {
		b.AssertBool("cpu.flags.boolean", flag)
	}

	b.AssertBool("cpu.is_halted.boolean", local.IsHalted)
	b.AssertBool("cpu.branch_taken.boolean", local.BranchTaken)
	b.AssertBool("cpu.mem_is_write.boolean", local.MemIsWrite)

	// ALU classes write the ALU result to rd.
	b.When(local.IsALU).AssertEq("cpu.alu.rd_val", local.RdVal, local.ALUResult)
	b.When(local.IsALUImm).AssertEq("cpu.alu_imm.rd_val", local.RdVal, local.ALUResult)

	pcPlus4 := air.Add(local.PC, air.ConstU64(4))
	pcPlusImm := air.Add(local.PC, local.Imm)

	// PC-shape constraints are scoped by (1 - is_halted): the final step
	// of a trace is forced halted and self-loops regardless of its
	// opcode class.
	notHalted := air.OneMinus(local.IsHalted)

	isSequential := air.Add(
		local.IsALU,
		local.IsALUImm,
		local.IsLoad,
		local.IsStore,
		local.IsLuiAuipc,
		local.IsZkCustom,
		local.IsZkIO,
	)

	b.When(notHalted).When(isSequential).
		AssertEq("cpu.pc.sequential", local.NextPC, pcPlus4)

	// next_pc = taken*(pc+imm) + (1-taken)*(pc+4), a single affine
	// combination instead of a conditional.
	branchTarget := air.Add(
		air.Mul(local.BranchTaken, pcPlusImm),
		air.Mul(air.OneMinus(local.BranchTaken), pcPlus4),
	)

	b.When(notHalted).When(local.IsBranch).
		AssertEq("cpu.pc.branch", local.NextPC, branchTarget)

	// Jumps save the return address in rd. The JAL/JALR target split
	// needs funct disambiguation and is covered by the decode lookup.
	b.When(local.IsJump).AssertEq("cpu.jump.link", local.RdVal, pcPlus4)

	// Halting is a self-loop and is sticky.
	b.When(local.IsHalt).AssertEq("cpu.halt.self_loop", local.NextPC, local.PC)
	b.When(local.IsHalted).AssertEq("cpu.halted.self_loop", local.NextPC, local.PC)

	b.WhenTransition().When(local.IsHalted).
		AssertOne("cpu.halted.sticky", next.IsHalted)

	// Chain each row's computed successor PC into the next row's actual
	// PC. Halted and padding rows carry no successor obligation; the
	// selector is a product so a row that is both stays exempt.
	active := air.Mul(notHalted, air.OneMinus(local.IsNop))
	b.WhenTransition().When(active).
		AssertEq("cpu.pc.continuity", next.PC, local.NextPC)

	// The cycle counter advances exactly once per real instruction.
	b.WhenTransition().When(air.OneMinus(local.IsNop)).
		AssertEq("cpu.cycle.increment", next.Cycle, air.Add(local.Cycle, air.One()))

	// Loads read, stores write; address and data linkage to the memory
	// chip is enforced by the inter-chip permutation argument.
	b.When(local.IsLoad).AssertZero("cpu.load.is_read", local.MemIsWrite)
	b.When(local.IsStore).AssertOne("cpu.store.is_write", local.MemIsWrite)
}

// GenerateTrace builds the CPU witness from the execution trace.
func (c *CPUChip) GenerateTrace(t *trace.ExecutionTrace) *air.Matrix {
	return generateCPUTrace(t)
}
