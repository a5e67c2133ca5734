// Package vm provides the RV32IM instruction decoder
package vm

// Major opcodes (bits [6:0] of the instruction word)
const (
	opcodeLoad   = 0x03
	opcodeOpImm  = 0x13
	opcodeAUIPC  = 0x17
	opcodeStore  = 0x23
	opcodeOp     = 0x33
	opcodeLUI    = 0x37
	opcodeBranch = 0x63
	opcodeJALR   = 0x67
	opcodeJAL    = 0x6f
	opcodeSystem = 0x73
)

// Fixed encodings of the two supported SYSTEM instructions
const (
	wordECALL  = 0x00000073
	wordEBREAK = 0x00100073
)

// Decode decodes a 32-bit instruction word into an Instruction.
// Words that do not encode a supported RV32IM instruction yield an
// IllegalInstructionError; the caller supplies the pc context.
func Decode(word uint32) (Instruction, error) {
	opcode := word & 0x7f
	rd := (word >> 7) & 0x1f
	funct3 := (word >> 12) & 0x7
	rs1 := (word >> 15) & 0x1f
	rs2 := (word >> 20) & 0x1f
	funct7 := word >> 25

	switch opcode {
	case opcodeLUI:
		return Instruction{Op: LUI, Rd: rd, Imm: immU(word)}, nil

	case opcodeAUIPC:
		return Instruction{Op: AUIPC, Rd: rd, Imm: immU(word)}, nil

	case opcodeJAL:
		return Instruction{Op: JAL, Rd: rd, Imm: immJ(word)}, nil

	case opcodeJALR:
		if funct3 != 0 {
			return Instruction{}, &IllegalInstructionError{Word: word}
		}
		return Instruction{Op: JALR, Rd: rd, Rs1: rs1, Imm: immI(word)}, nil

	case opcodeBranch:
		var op Op
		switch funct3 {
		case 0:
			op = BEQ
		case 1:
			op = BNE
		case 4:
			op = BLT
		case 5:
			op = BGE
		case 6:
			op = BLTU
		case 7:
			op = BGEU
		default:
			return Instruction{}, &IllegalInstructionError{Word: word}
		}
		return Instruction{Op: op, Rs1: rs1, Rs2: rs2, Imm: immB(word)}, nil

	case opcodeLoad:
		var op Op
		switch funct3 {
		case 0:
			op = LB
		case 1:
			op = LH
		case 2:
			op = LW
		case 4:
			op = LBU
		case 5:
			op = LHU
		default:
			return Instruction{}, &IllegalInstructionError{Word: word}
		}
		return Instruction{Op: op, Rd: rd, Rs1: rs1, Imm: immI(word)}, nil

	case opcodeStore:
		var op Op
		switch funct3 {
		case 0:
			op = SB
		case 1:
			op = SH
		case 2:
			op = SW
		default:
			return Instruction{}, &IllegalInstructionError{Word: word}
		}
		return Instruction{Op: op, Rs1: rs1, Rs2: rs2, Imm: immS(word)}, nil

	case opcodeOpImm:
		switch funct3 {
		case 0:
			return Instruction{Op: ADDI, Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
		case 1:
			if funct7 != 0x00 {
				return Instruction{}, &IllegalInstructionError{Word: word}
			}
			return Instruction{Op: SLLI, Rd: rd, Rs1: rs1, Imm: rs2}, nil
		case 2:
			return Instruction{Op: SLTI, Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
		case 3:
			return Instruction{Op: SLTIU, Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
		case 4:
			return Instruction{Op: XORI, Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
		case 5:
			// Shift amount lives in the rs2 field; funct7 selects the kind
			switch funct7 {
			case 0x00:
				return Instruction{Op: SRLI, Rd: rd, Rs1: rs1, Imm: rs2}, nil
			case 0x20:
				return Instruction{Op: SRAI, Rd: rd, Rs1: rs1, Imm: rs2}, nil
			default:
				return Instruction{}, &IllegalInstructionError{Word: word}
			}
		case 6:
			return Instruction{Op: ORI, Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
		case 7:
			return Instruction{Op: ANDI, Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
		default:
			return Instruction{}, &IllegalInstructionError{Word: word}
		}

	case opcodeOp:
		switch funct7 {
		case 0x00:
			var op Op
			switch funct3 {
			case 0:
				op = ADD
			case 1:
				op = SLL
			case 2:
				op = SLT
			case 3:
				op = SLTU
			case 4:
				op = XOR
			case 5:
				op = SRL
			case 6:
				op = OR
			case 7:
				op = AND
			}
			return Instruction{Op: op, Rd: rd, Rs1: rs1, Rs2: rs2}, nil
		case 0x20:
			switch funct3 {
			case 0:
				return Instruction{Op: SUB, Rd: rd, Rs1: rs1, Rs2: rs2}, nil
			case 5:
				return Instruction{Op: SRA, Rd: rd, Rs1: rs1, Rs2: rs2}, nil
			default:
				return Instruction{}, &IllegalInstructionError{Word: word}
			}
		case 0x01:
			// M extension: funct3 numbers MUL through REMU in order
			return Instruction{Op: MUL + Op(funct3), Rd: rd, Rs1: rs1, Rs2: rs2}, nil
		default:
			return Instruction{}, &IllegalInstructionError{Word: word}
		}

	case opcodeSystem:
		switch word {
		case wordECALL:
			return Instruction{Op: ECALL}, nil
		case wordEBREAK:
			return Instruction{Op: EBREAK, Imm: 1}, nil
		default:
			return Instruction{}, &IllegalInstructionError{Word: word}
		}

	default:
		return Instruction{}, &IllegalInstructionError{Word: word}
	}
}

// immI extracts the sign-extended I-type immediate (bits [31:20])
func immI(word uint32) uint32 {
	return uint32(int32(word) >> 20)
}

// immS extracts the sign-extended S-type immediate
// (bits [31:25] are imm[11:5], bits [11:7] are imm[4:0])
func immS(word uint32) uint32 {
	return uint32(int32(word)>>25)<<5 | (word>>7)&0x1f
}

// immB extracts the sign-extended B-type immediate
// (bit 31 is imm[12], bit 7 is imm[11], bits [30:25] are imm[10:5],
// bits [11:8] are imm[4:1]; imm[0] is always zero)
func immB(word uint32) uint32 {
	return uint32(int32(word)>>31)<<12 |
		(word>>7&1)<<11 |
		(word>>25&0x3f)<<5 |
		(word>>8&0xf)<<1
}

// immU extracts the U-type immediate (bits [31:12], already shifted)
func immU(word uint32) uint32 {
	return word & 0xfffff000
}

// immJ extracts the sign-extended J-type immediate
// (bit 31 is imm[20], bits [19:12] stay in place, bit 20 is imm[11],
// bits [30:21] are imm[10:1]; imm[0] is always zero)
func immJ(word uint32) uint32 {
	return uint32(int32(word)>>31)<<20 |
		word&0xff000 |
		(word>>20&1)<<11 |
		(word>>21&0x3ff)<<1
}
