// Package vm provides instruction word encoding for building programs
package vm

import (
	"fmt"
)

// Encode encodes an Instruction into its 32-bit instruction word.
// The encoding is the inverse of Decode for every supported operation.
func Encode(inst Instruction) (uint32, error) {
	info, err := inst.Op.Info()
	if err != nil {
		return 0, err
	}

	if inst.Rd > 31 || inst.Rs1 > 31 || inst.Rs2 > 31 {
		return 0, fmt.Errorf("register index out of range in %s", info.Name)
	}

	switch inst.Op {
	case ECALL:
		return wordECALL, nil
	case EBREAK:
		return wordEBREAK, nil
	}

	// Immediate shifts carry the amount in the rs2 field with funct7 on top
	if inst.Op == SLLI || inst.Op == SRLI || inst.Op == SRAI {
		return info.Funct7<<25 | (inst.Imm&0x1f)<<20 | inst.Rs1<<15 |
			info.Funct3<<12 | inst.Rd<<7 | info.Opcode, nil
	}

	switch info.Format {
	case FormatR:
		return info.Funct7<<25 | inst.Rs2<<20 | inst.Rs1<<15 |
			info.Funct3<<12 | inst.Rd<<7 | info.Opcode, nil

	case FormatI:
		if !fitsSigned(inst.Imm, 12) {
			return 0, fmt.Errorf("immediate %d out of range for %s", int32(inst.Imm), info.Name)
		}
		return (inst.Imm&0xfff)<<20 | inst.Rs1<<15 |
			info.Funct3<<12 | inst.Rd<<7 | info.Opcode, nil

	case FormatS:
		if !fitsSigned(inst.Imm, 12) {
			return 0, fmt.Errorf("immediate %d out of range for %s", int32(inst.Imm), info.Name)
		}
		return (inst.Imm>>5&0x7f)<<25 | inst.Rs2<<20 | inst.Rs1<<15 |
			info.Funct3<<12 | (inst.Imm&0x1f)<<7 | info.Opcode, nil

	case FormatB:
		if !fitsSigned(inst.Imm, 13) || inst.Imm&1 != 0 {
			return 0, fmt.Errorf("branch offset %d invalid for %s", int32(inst.Imm), info.Name)
		}
		return (inst.Imm>>12&1)<<31 | (inst.Imm>>5&0x3f)<<25 | inst.Rs2<<20 |
			inst.Rs1<<15 | info.Funct3<<12 |
			(inst.Imm>>1&0xf)<<8 | (inst.Imm>>11&1)<<7 | info.Opcode, nil

	case FormatU:
		return inst.Imm&0xfffff000 | inst.Rd<<7 | info.Opcode, nil

	case FormatJ:
		if !fitsSigned(inst.Imm, 21) || inst.Imm&1 != 0 {
			return 0, fmt.Errorf("jump offset %d invalid for %s", int32(inst.Imm), info.Name)
		}
		return (inst.Imm>>20&1)<<31 | (inst.Imm>>1&0x3ff)<<21 |
			(inst.Imm>>11&1)<<20 | inst.Imm&0xff000 |
			inst.Rd<<7 | info.Opcode, nil

	default:
		return 0, fmt.Errorf("unsupported format for %s", info.Name)
	}
}

// MustEncode encodes an Instruction and panics on failure.
// Intended for building fixed programs in tests and examples.
func MustEncode(inst Instruction) uint32 {
	word, err := Encode(inst)
	if err != nil {
		panic(err)
	}
	return word
}

// EncodeProgram encodes a sequence of instructions into contiguous words
func EncodeProgram(insts ...Instruction) ([]uint32, error) {
	words := make([]uint32, len(insts))
	for i, inst := range insts {
		word, err := Encode(inst)
		if err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", i, inst, err)
		}
		words[i] = word
	}
	return words, nil
}

// fitsSigned reports whether v, interpreted as a signed 32-bit value,
// fits in a bits-wide signed immediate.
func fitsSigned(v uint32, bits int) bool {
	s := int32(v)
	limit := int32(1) << (bits - 1)
	return s >= -limit && s < limit
}
