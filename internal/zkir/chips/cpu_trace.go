package chips

import (
	"github.com/consensys/gnark-crypto/field/babybear"

	"github.com/zkir/zkir-prover/internal/zkir/air"
	"github.com/zkir/zkir-prover/internal/zkir/trace"
)

// ZK IR opcodes (7-bit, RISC-V base encoding plus the ZK extensions).
const (
	OpALU      uint8 = 0b0110011
	OpALUImm   uint8 = 0b0010011
	OpLoad     uint8 = 0b0000011
	OpJalr     uint8 = 0b1100111
	OpStore    uint8 = 0b0100011
	OpBranch   uint8 = 0b1100011
	OpLui      uint8 = 0b0110111
	OpAuipc    uint8 = 0b0010111
	OpJal      uint8 = 0b1101111
	OpSystem   uint8 = 0b1110011
	OpZkCustom uint8 = 0b0001011
	OpZkIO     uint8 = 0b0101011
	OpHalt     uint8 = 0b1111111
)

// ALUOp selects the ALU operation. For ALU-class instructions the funct
// byte carries this code directly.
type ALUOp uint8

const (
	ALUAdd ALUOp = iota
	ALUSub
	ALUAnd
	ALUOr
	ALUXor
	ALUSll
	ALUSrl
	ALUSra
	ALUSlt
	ALUSltu
	ALUMul
	ALUDiv
	ALUDivu
	ALURem
	ALURemu
)

// aluCompute applies the ALU operation with 32-bit machine semantics.
// Division follows the RISC-V conventions for zero divisors and the
// signed-overflow case.
func aluCompute(op ALUOp, a, b uint32) uint32 {
	switch op {
	case ALUAdd:
		return a + b
	case ALUSub:
		return a - b
	case ALUAnd:
		return a & b
	case ALUOr:
		return a | b
	case ALUXor:
		return a ^ b
	case ALUSll:
		return a << (b & 31)
	case ALUSrl:
		return a >> (b & 31)
	case ALUSra:
		return uint32(int32(a) >> (b & 31))
	case ALUSlt:
		if int32(a) < int32(b) {
			return 1
		}
		return 0
	case ALUSltu:
		if a < b {
			return 1
		}
		return 0
	case ALUMul:
		return a * b
	case ALUDiv:
		if b == 0 {
			return 0xFFFFFFFF
		}
		if a == 0x80000000 && b == 0xFFFFFFFF {
			return a
		}
		return uint32(int32(a) / int32(b))
	case ALUDivu:
		if b == 0 {
			return 0xFFFFFFFF
		}
		return a / b
	case ALURem:
		if b == 0 {
			return a
		}
		if a == 0x80000000 && b == 0xFFFFFFFF {
			return 0
		}
		return uint32(int32(a) % int32(b))
	case ALURemu:
		if b == 0 {
			return a
		}
		return a % b
	default:
		return 0
	}
}

// generateCPUTrace fills one row per executed step, then pads with NOP
// rows up to the next power of two.
func generateCPUTrace(t *trace.ExecutionTrace) *air.Matrix {
	numSteps := len(t.Steps)
	m := air.NewMatrix(CPUNumColumns, numSteps)

	for i := range t.Steps {
		populateStepRow(m.Row(i), t, i)
	}

	// The final real row is forced halted, so padding stays halted to
	// keep the stickiness chain intact. Padding cycles continue the +1
	// chain out of the last real row.
	var cycle uint64
	if numSteps > 0 {
		cycle = t.Steps[numSteps-1].Cycle
	}

	for r := numSteps; r < m.Height(); r++ {
		if numSteps > 0 {
			cycle++
		} else {
			cycle = uint64(r)
		}

		populateNopRow(m.Row(r), cycle, numSteps > 0)
	}

	return m
}

func populateStepRow(row []babybear.Element, t *trace.ExecutionTrace, i int) {
	step := &t.Steps[i]
	isLast := i == len(t.Steps)-1

	row[cpuPC] = feltU32(step.PC)
	row[cpuCycle] = feltU64(step.Cycle)

	row[cpuOpcode] = feltU32(uint32(step.Opcode))
	row[cpuRd] = feltU32(uint32(step.Rd))
	row[cpuRs1] = feltU32(uint32(step.Rs1))
	row[cpuRs2] = feltU32(uint32(step.Rs2))
	row[cpuImm] = feltI32(step.Imm)
	row[cpuFunct] = feltU32(uint32(step.Funct))

	rs1Val := step.Registers[step.Rs1]
	rs2Val := step.Registers[step.Rs2]
	rdVal := step.Registers[step.Rd]

	row[cpuRs1Val] = feltU32(rs1Val)
	row[cpuRs2Val] = feltU32(rs2Val)
	row[cpuRdVal] = feltU32(rdVal)

	pcPlus4 := step.PC + 4
	branchTarget := uint32(int64(step.PC) + int64(step.Imm))
	nextPC := pcPlus4

	switch step.Opcode {
	case OpALU, OpALUImm:
		flag := cpuIsALU
		operand := rs2Val
		if step.Opcode == OpALUImm {
			flag = cpuIsALUImm
			operand = uint32(step.Imm)
		}

		op := ALUOp(step.Funct)
		result := aluCompute(op, rs1Val, operand)

		row[flag] = feltBool(true)
		row[cpuALUOp] = feltU32(uint32(step.Funct))
		row[cpuALUResult] = feltU32(result)
		row[cpuRdVal] = feltU32(result)

		if op == ALUSlt || op == ALUSltu {
			row[cpuComparisonResult] = feltU32(result)
		}

	case OpBranch:
		taken := !isLast && t.Steps[i+1].PC == branchTarget && branchTarget != pcPlus4

		row[cpuIsBranch] = feltBool(true)
		row[cpuBranchTaken] = feltBool(taken)

		if taken {
			nextPC = branchTarget
		}

	case OpJal, OpJalr:
		row[cpuIsJump] = feltBool(true)
		row[cpuRdVal] = feltU32(pcPlus4)

		switch {
		case !isLast:
			nextPC = t.Steps[i+1].PC
		case step.Opcode == OpJal:
			nextPC = branchTarget
		default:
			nextPC = (rs1Val + uint32(step.Imm)) &^ 1
		}

	case OpLoad:
		row[cpuIsLoad] = feltBool(true)
		row[cpuMemAddr] = feltU32(rs1Val + uint32(step.Imm))
		row[cpuMemVal] = feltU32(rdVal)

	case OpStore:
		row[cpuIsStore] = feltBool(true)
		row[cpuMemAddr] = feltU32(rs1Val + uint32(step.Imm))
		row[cpuMemVal] = feltU32(rs2Val)
		row[cpuMemIsWrite] = feltBool(true)

	case OpLui, OpAuipc:
		row[cpuIsLuiAuipc] = feltBool(true)

	case OpSystem:
		row[cpuIsSystem] = feltBool(true)

	case OpZkCustom:
		row[cpuIsZkCustom] = feltBool(true)

	case OpZkIO:
		row[cpuIsZkIO] = feltBool(true)

	case OpHalt:
		row[cpuIsHalt] = feltBool(true)
		nextPC = step.PC

	default:
		row[cpuIsNop] = feltBool(true)
	}

	// The final step is the execution's terminal state: force the halt
	// self-loop whether or not it was an explicit HALT.
	if isLast || step.Opcode == OpHalt {
		row[cpuIsHalted] = feltBool(true)
		nextPC = step.PC
	}

	row[cpuNextPC] = feltU32(nextPC)
}

func populateNopRow(row []babybear.Element, cycle uint64, halted bool) {
	row[cpuCycle] = feltU64(cycle)
	row[cpuIsNop] = feltBool(true)
	row[cpuIsHalted] = feltBool(halted)
}
