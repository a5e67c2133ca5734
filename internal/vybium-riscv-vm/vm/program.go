package vm

import (
	"fmt"
	"sort"

	"github.com/vybium/vybium-riscv-vm/internal/vybium-riscv-vm/utils"
)

// Program is the loader-facing program image. Code is the word-aligned
// instruction ROM, Image seeds data memory, Registers seeds the register
// file. The ROM is immutable once execution starts.
type Program struct {
	// Entry is the initial program counter
	Entry uint32

	// Code maps word-aligned addresses to instruction words
	Code map[uint32]uint32

	// Image maps addresses to initial RAM bytes
	Image map[uint32]byte

	// Registers holds the initial register file (x0 is forced to zero)
	Registers [32]uint32
}

// ProgramWord is one row of the instruction ROM
type ProgramWord struct {
	Address uint32
	Word    uint32
}

// NewProgram creates an empty program with the given entry point
func NewProgram(entry uint32) *Program {
	return &Program{
		Entry: entry,
		Code:  make(map[uint32]uint32),
		Image: make(map[uint32]byte),
	}
}

// NewProgramFromWords creates a program whose instruction words are laid
// out consecutively starting at the entry point
func NewProgramFromWords(entry uint32, words []uint32) *Program {
	p := NewProgram(entry)
	for i, w := range words {
		p.Code[entry+uint32(i*4)] = w
	}
	return p
}

// AddWord places one instruction word into the ROM
func (p *Program) AddWord(addr uint32, word uint32) {
	p.Code[addr] = word
}

// SetImageWord seeds four little-endian RAM bytes at the given address
func (p *Program) SetImageWord(addr uint32, value uint32) {
	p.Image[addr] = byte(value)
	p.Image[addr+1] = byte(value >> 8)
	p.Image[addr+2] = byte(value >> 16)
	p.Image[addr+3] = byte(value >> 24)
}

// Validate checks that the program is well-formed: a non-empty ROM with
// word-aligned addresses and a word-aligned entry point inside the ROM.
func (p *Program) Validate() error {
	if p == nil {
		return fmt.Errorf("program cannot be nil")
	}
	if len(p.Code) == 0 {
		return fmt.Errorf("program has no instruction words")
	}
	if p.Entry%4 != 0 {
		return fmt.Errorf("entry point 0x%08x is not word-aligned", p.Entry)
	}
	for addr := range p.Code {
		if addr%4 != 0 {
			return fmt.Errorf("instruction address 0x%08x is not word-aligned", addr)
		}
	}
	if _, ok := p.Code[p.Entry]; !ok {
		return fmt.Errorf("entry point 0x%08x is outside the instruction ROM", p.Entry)
	}
	return nil
}

// CodeRows returns the instruction ROM as rows sorted by address
func (p *Program) CodeRows() []ProgramWord {
	rows := make([]ProgramWord, 0, len(p.Code))
	for addr, word := range p.Code {
		rows = append(rows, ProgramWord{Address: addr, Word: word})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Address < rows[j].Address
	})
	return rows
}

// Digest computes the program attestation digest: the configured hash
// absorbed over the sorted (address, word) pairs of the ROM.
func (p *Program) Digest(hashFunc string) []byte {
	d := utils.NewDigest(hashFunc)
	for _, row := range p.CodeRows() {
		d.AbsorbUint32(row.Address)
		d.AbsorbUint32(row.Word)
	}
	return d.Sum()
}
