package chips

// CPU column indices. The layout groups execution state, instruction
// decode, operand values, the one-hot opcode-class flags, ALU fields, and
// the memory interface.
const (
	cpuPC = iota
	cpuNextPC
	cpuCycle
	cpuIsHalted

	cpuOpcode
	cpuRd
	cpuRs1
	cpuRs2
	cpuImm
	cpuFunct

	cpuRs1Val
	cpuRs2Val
	cpuRdVal

	cpuIsALU
	cpuIsALUImm
	cpuIsBranch
	cpuIsJump
	cpuIsLoad
	cpuIsStore
	cpuIsLuiAuipc
	cpuIsSystem
	cpuIsZkCustom
	cpuIsZkIO
	cpuIsHalt
	cpuIsNop

	cpuALUOp
	cpuALUResult
	cpuBranchTaken
	cpuComparisonResult

	cpuMemAddr
	cpuMemVal
	cpuMemIsWrite

	// CPUNumColumns is the CPU chip width.
	CPUNumColumns
)

// numOpcodeFlags counts the mutually exclusive opcode-class flags.
const numOpcodeFlags = 12

// CPUCols is the named view of one CPU row over an arbitrary cell type.
// The same view serves the constraint evaluator (cells are expressions)
// and tests reading a generated witness (cells are field elements); both
// directions go through the shared column indices, so the flat row and
// the named view stay bit-identical.
type CPUCols[T any] struct {
	PC       T
	NextPC   T
	Cycle    T
	IsHalted T

	Opcode T
	Rd     T
	Rs1    T
	Rs2    T
	Imm    T
	Funct  T

	Rs1Val T
	Rs2Val T
	RdVal  T

	IsALU      T
	IsALUImm   T
	IsBranch   T
	IsJump     T
	IsLoad     T
	IsStore    T
	IsLuiAuipc T
	IsSystem   T
	IsZkCustom T
	IsZkIO     T
	IsHalt     T
	IsNop      T

	ALUOp            T
	ALUResult        T
	BranchTaken      T
	ComparisonResult T

	MemAddr    T
	MemVal     T
	MemIsWrite T
}

// cpuView projects a row accessor into the named column view.
func cpuView[T any](cell func(int) T) CPUCols[T] {
	return CPUCols[T]{
		PC:       cell(cpuPC),
		NextPC:   cell(cpuNextPC),
		Cycle:    cell(cpuCycle),
		IsHalted: cell(cpuIsHalted),

		Opcode: cell(cpuOpcode),
		Rd:     cell(cpuRd),
		Rs1:    cell(cpuRs1),
		Rs2:    cell(cpuRs2),
		Imm:    cell(cpuImm),
		Funct:  cell(cpuFunct),

		Rs1Val: cell(cpuRs1Val),
		Rs2Val: cell(cpuRs2Val),
		RdVal:  cell(cpuRdVal),

		IsALU:      cell(cpuIsALU),
		IsALUImm:   cell(cpuIsALUImm),
		IsBranch:   cell(cpuIsBranch),
		IsJump:     cell(cpuIsJump),
		IsLoad:     cell(cpuIsLoad),
		IsStore:    cell(cpuIsStore),
		IsLuiAuipc: cell(cpuIsLuiAuipc),
		IsSystem:   cell(cpuIsSystem),
		IsZkCustom: cell(cpuIsZkCustom),
		IsZkIO:     cell(cpuIsZkIO),
		IsHalt:     cell(cpuIsHalt),
		IsNop:      cell(cpuIsNop),

		ALUOp:            cell(cpuALUOp),
		ALUResult:        cell(cpuALUResult),
		BranchTaken:      cell(cpuBranchTaken),
		ComparisonResult: cell(cpuComparisonResult),

		MemAddr:    cell(cpuMemAddr),
		MemVal:     cell(cpuMemVal),
		MemIsWrite: cell(cpuMemIsWrite),
	}
}

// OpcodeFlags lists the twelve opcode-class flags of the view.
func (c CPUCols[T]) OpcodeFlags() [numOpcodeFlags]T {
	return [numOpcodeFlags]T{
		c.IsALU,
		c.IsALUImm,
		c.IsBranch,
		c.IsJump,
		c.IsLoad,
		c.IsStore,
		c.IsLuiAuipc,
		c.IsSystem,
		c.IsZkCustom,
		c.IsZkIO,
		c.IsHalt,
		c.IsNop,
	}
}
