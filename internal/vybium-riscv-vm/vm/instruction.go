// Package vm provides the RV32IM instruction set architecture
package vm

import (
	"fmt"
)

// Op identifies a decoded RV32IM operation
type Op uint8

// RV32IM operation set: the RV32I base integer instructions plus the
// M standard extension for multiplication and division.
const (
	// ========== Upper Immediate (2 instructions) ==========

	// LUI loads a 20-bit immediate into the upper bits of rd
	LUI Op = iota

	// AUIPC adds a 20-bit upper immediate to the pc
	AUIPC

	// ========== Unconditional Jumps (2 instructions) ==========

	// JAL jumps pc-relative and links the return address in rd
	JAL

	// JALR jumps register-indirect and links the return address in rd
	JALR

	// ========== Conditional Branches (6 instructions) ==========

	// BEQ branches if rs1 == rs2
	BEQ

	// BNE branches if rs1 != rs2
	BNE

	// BLT branches if rs1 < rs2 (signed)
	BLT

	// BGE branches if rs1 >= rs2 (signed)
	BGE

	// BLTU branches if rs1 < rs2 (unsigned)
	BLTU

	// BGEU branches if rs1 >= rs2 (unsigned)
	BGEU

	// ========== Loads (5 instructions) ==========

	// LB loads a sign-extended byte
	LB

	// LH loads a sign-extended halfword
	LH

	// LW loads a word
	LW

	// LBU loads a zero-extended byte
	LBU

	// LHU loads a zero-extended halfword
	LHU

	// ========== Stores (3 instructions) ==========

	// SB stores the low byte of rs2
	SB

	// SH stores the low halfword of rs2
	SH

	// SW stores the full word of rs2
	SW

	// ========== Register-Immediate ALU (9 instructions) ==========

	// ADDI adds a sign-extended immediate
	ADDI

	// SLTI sets rd to 1 if rs1 < imm (signed)
	SLTI

	// SLTIU sets rd to 1 if rs1 < imm (unsigned)
	SLTIU

	// XORI computes rs1 ^ imm
	XORI

	// ORI computes rs1 | imm
	ORI

	// ANDI computes rs1 & imm
	ANDI

	// SLLI shifts rs1 left by a constant amount
	SLLI

	// SRLI shifts rs1 right logically by a constant amount
	SRLI

	// SRAI shifts rs1 right arithmetically by a constant amount
	SRAI

	// ========== Register-Register ALU (10 instructions) ==========

	// ADD computes rs1 + rs2
	ADD

	// SUB computes rs1 - rs2
	SUB

	// SLL shifts rs1 left by the low 5 bits of rs2
	SLL

	// SLT sets rd to 1 if rs1 < rs2 (signed)
	SLT

	// SLTU sets rd to 1 if rs1 < rs2 (unsigned)
	SLTU

	// XOR computes rs1 ^ rs2
	XOR

	// SRL shifts rs1 right logically by the low 5 bits of rs2
	SRL

	// SRA shifts rs1 right arithmetically by the low 5 bits of rs2
	SRA

	// OR computes rs1 | rs2
	OR

	// AND computes rs1 & rs2
	AND

	// ========== M Extension (8 instructions) ==========

	// MUL computes the low 32 bits of rs1 * rs2
	MUL

	// MULH computes the high 32 bits of the signed product
	MULH

	// MULHSU computes the high 32 bits of the signed x unsigned product
	MULHSU

	// MULHU computes the high 32 bits of the unsigned product
	MULHU

	// DIV computes the signed quotient
	DIV

	// DIVU computes the unsigned quotient
	DIVU

	// REM computes the signed remainder
	REM

	// REMU computes the unsigned remainder
	REMU

	// ========== System (2 instructions) ==========

	// ECALL requests an environment call, halting the machine
	ECALL

	// EBREAK requests a breakpoint, halting the machine
	EBREAK
)

// OperationCount is the total number of operations in the RV32IM set
const OperationCount = 47

// InstructionFormat identifies the encoding format of an operation
type InstructionFormat int

const (
	// FormatR encodes two source registers and a destination
	FormatR InstructionFormat = iota

	// FormatI encodes one source register and a 12-bit immediate
	FormatI

	// FormatS encodes a store with a split 12-bit immediate
	FormatS

	// FormatB encodes a branch with a split 13-bit immediate
	FormatB

	// FormatU encodes a 20-bit upper immediate
	FormatU

	// FormatJ encodes a jump with a 21-bit immediate
	FormatJ
)

// OpInfo provides metadata about an operation, including the fixed
// fields of its binary encoding.
type OpInfo struct {
	Op     Op
	Name   string
	Format InstructionFormat
	Opcode uint32 // Bits [6:0] of the encoded word
	Funct3 uint32 // Bits [14:12], where the format carries one
	Funct7 uint32 // Bits [31:25], where the format carries one
}

// AllOperations returns information about all RV32IM operations
var AllOperations = map[Op]OpInfo{
	// Upper Immediate
	LUI:   {LUI, "lui", FormatU, opcodeLUI, 0, 0},
	AUIPC: {AUIPC, "auipc", FormatU, opcodeAUIPC, 0, 0},

	// Unconditional Jumps
	JAL:  {JAL, "jal", FormatJ, opcodeJAL, 0, 0},
	JALR: {JALR, "jalr", FormatI, opcodeJALR, 0, 0},

	// Conditional Branches
	BEQ:  {BEQ, "beq", FormatB, opcodeBranch, 0, 0},
	BNE:  {BNE, "bne", FormatB, opcodeBranch, 1, 0},
	BLT:  {BLT, "blt", FormatB, opcodeBranch, 4, 0},
	BGE:  {BGE, "bge", FormatB, opcodeBranch, 5, 0},
	BLTU: {BLTU, "bltu", FormatB, opcodeBranch, 6, 0},
	BGEU: {BGEU, "bgeu", FormatB, opcodeBranch, 7, 0},

	// Loads
	LB:  {LB, "lb", FormatI, opcodeLoad, 0, 0},
	LH:  {LH, "lh", FormatI, opcodeLoad, 1, 0},
	LW:  {LW, "lw", FormatI, opcodeLoad, 2, 0},
	LBU: {LBU, "lbu", FormatI, opcodeLoad, 4, 0},
	LHU: {LHU, "lhu", FormatI, opcodeLoad, 5, 0},

	// Stores
	SB: {SB, "sb", FormatS, opcodeStore, 0, 0},
	SH: {SH, "sh", FormatS, opcodeStore, 1, 0},
	SW: {SW, "sw", FormatS, opcodeStore, 2, 0},

	// Register-Immediate ALU
	ADDI:  {ADDI, "addi", FormatI, opcodeOpImm, 0, 0},
	SLTI:  {SLTI, "slti", FormatI, opcodeOpImm, 2, 0},
	SLTIU: {SLTIU, "sltiu", FormatI, opcodeOpImm, 3, 0},
	XORI:  {XORI, "xori", FormatI, opcodeOpImm, 4, 0},
	ORI:   {ORI, "ori", FormatI, opcodeOpImm, 6, 0},
	ANDI:  {ANDI, "andi", FormatI, opcodeOpImm, 7, 0},
	SLLI:  {SLLI, "slli", FormatI, opcodeOpImm, 1, 0x00},
	SRLI:  {SRLI, "srli", FormatI, opcodeOpImm, 5, 0x00},
	SRAI:  {SRAI, "srai", FormatI, opcodeOpImm, 5, 0x20},

	// Register-Register ALU
	ADD:  {ADD, "add", FormatR, opcodeOp, 0, 0x00},
	SUB:  {SUB, "sub", FormatR, opcodeOp, 0, 0x20},
	SLL:  {SLL, "sll", FormatR, opcodeOp, 1, 0x00},
	SLT:  {SLT, "slt", FormatR, opcodeOp, 2, 0x00},
	SLTU: {SLTU, "sltu", FormatR, opcodeOp, 3, 0x00},
	XOR:  {XOR, "xor", FormatR, opcodeOp, 4, 0x00},
	SRL:  {SRL, "srl", FormatR, opcodeOp, 5, 0x00},
	SRA:  {SRA, "sra", FormatR, opcodeOp, 5, 0x20},
	OR:   {OR, "or", FormatR, opcodeOp, 6, 0x00},
	AND:  {AND, "and", FormatR, opcodeOp, 7, 0x00},

	// M Extension
	MUL:    {MUL, "mul", FormatR, opcodeOp, 0, 0x01},
	MULH:   {MULH, "mulh", FormatR, opcodeOp, 1, 0x01},
	MULHSU: {MULHSU, "mulhsu", FormatR, opcodeOp, 2, 0x01},
	MULHU:  {MULHU, "mulhu", FormatR, opcodeOp, 3, 0x01},
	DIV:    {DIV, "div", FormatR, opcodeOp, 4, 0x01},
	DIVU:   {DIVU, "divu", FormatR, opcodeOp, 5, 0x01},
	REM:    {REM, "rem", FormatR, opcodeOp, 6, 0x01},
	REMU:   {REMU, "remu", FormatR, opcodeOp, 7, 0x01},

	// System
	ECALL:  {ECALL, "ecall", FormatI, opcodeSystem, 0, 0},
	EBREAK: {EBREAK, "ebreak", FormatI, opcodeSystem, 0, 0},
}

// String returns the name of the operation
func (op Op) String() string {
	if info, ok := AllOperations[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("unknown(%d)", uint8(op))
}

// Info returns metadata about the operation
func (op Op) Info() (OpInfo, error) {
	info, ok := AllOperations[op]
	if !ok {
		return OpInfo{}, fmt.Errorf("unknown operation: %d", uint8(op))
	}
	return info, nil
}

// IsBranch reports whether the operation is a conditional branch
func (op Op) IsBranch() bool {
	return op >= BEQ && op <= BGEU
}

// IsJump reports whether the operation is an unconditional jump
func (op Op) IsJump() bool {
	return op == JAL || op == JALR
}

// IsLoad reports whether the operation reads data memory
func (op Op) IsLoad() bool {
	return op >= LB && op <= LHU
}

// IsStore reports whether the operation writes data memory
func (op Op) IsStore() bool {
	return op >= SB && op <= SW
}

// IsBitwise reports whether the operation is delegated to the bitwise table
func (op Op) IsBitwise() bool {
	switch op {
	case AND, ANDI, OR, ORI, XOR, XORI:
		return true
	}
	return false
}

// IsMulDiv reports whether the operation is delegated to the multiplication table
func (op Op) IsMulDiv() bool {
	return op >= MUL && op <= REMU
}

// IsShift reports whether the operation is delegated to the bitshift table
func (op Op) IsShift() bool {
	switch op {
	case SLL, SLLI, SRL, SRLI, SRA, SRAI:
		return true
	}
	return false
}

// IsHalt reports whether the operation halts the machine
func (op Op) IsHalt() bool {
	return op == ECALL || op == EBREAK
}

// Bitwise table operation selectors
const (
	BitwiseOpAnd = 0
	BitwiseOpOr  = 1
	BitwiseOpXor = 2
)

// BitwiseOp returns the bitwise table selector for the operation.
// Only meaningful when IsBitwise reports true.
func (op Op) BitwiseOp() uint32 {
	switch op {
	case AND, ANDI:
		return BitwiseOpAnd
	case OR, ORI:
		return BitwiseOpOr
	case XOR, XORI:
		return BitwiseOpXor
	}
	return 0
}

// MulDivOp returns the multiplication table selector for the operation,
// numbering MUL through REMU as 0 through 7. Only meaningful when
// IsMulDiv reports true.
func (op Op) MulDivOp() uint32 {
	if !op.IsMulDiv() {
		return 0
	}
	return uint32(op - MUL)
}

// Instruction represents a decoded RV32IM instruction
type Instruction struct {
	Op  Op
	Rd  uint32
	Rs1 uint32
	Rs2 uint32
	Imm uint32 // Sign-extended where the format calls for it
}

// String returns an assembly-style rendering of the instruction
func (inst Instruction) String() string {
	info, err := inst.Op.Info()
	if err != nil {
		return fmt.Sprintf("unknown(%d)", uint8(inst.Op))
	}

	switch {
	case inst.Op == ECALL || inst.Op == EBREAK:
		return info.Name
	case inst.Op.IsShift() && info.Format == FormatI:
		return fmt.Sprintf("%s x%d, x%d, %d", info.Name, inst.Rd, inst.Rs1, inst.Imm&0x1f)
	case inst.Op.IsLoad():
		return fmt.Sprintf("%s x%d, %d(x%d)", info.Name, inst.Rd, int32(inst.Imm), inst.Rs1)
	}

	switch info.Format {
	case FormatR:
		return fmt.Sprintf("%s x%d, x%d, x%d", info.Name, inst.Rd, inst.Rs1, inst.Rs2)
	case FormatI:
		return fmt.Sprintf("%s x%d, x%d, %d", info.Name, inst.Rd, inst.Rs1, int32(inst.Imm))
	case FormatS:
		return fmt.Sprintf("%s x%d, %d(x%d)", info.Name, inst.Rs2, int32(inst.Imm), inst.Rs1)
	case FormatB:
		return fmt.Sprintf("%s x%d, x%d, %d", info.Name, inst.Rs1, inst.Rs2, int32(inst.Imm))
	case FormatU:
		return fmt.Sprintf("%s x%d, 0x%x", info.Name, inst.Rd, inst.Imm>>12)
	case FormatJ:
		return fmt.Sprintf("%s x%d, %d", info.Name, inst.Rd, int32(inst.Imm))
	default:
		return info.Name
	}
}
