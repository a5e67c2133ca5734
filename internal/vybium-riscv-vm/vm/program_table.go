package vm

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Program table main column indices
const (
	ProgramColAddress = iota
	ProgramColWord

	ProgramColumnCount
)

// ProgramTableImpl implements the Program table: one row per instruction
// ROM word, sorted by address. Every fetched (pc, word) pair is looked up
// here, which binds the executed trace to the attested program image; the
// multiplicity column records each address's execution count.
type ProgramTableImpl struct {
	address      []field.Element
	word         []field.Element
	multiplicity []field.Element

	height       int
	paddedHeight int
}

// NewProgramTable creates the Program table from the instruction ROM
func NewProgramTable(program *Program) *ProgramTableImpl {
	rows := program.CodeRows()
	pt := &ProgramTableImpl{
		address:      make([]field.Element, len(rows)),
		word:         make([]field.Element, len(rows)),
		multiplicity: make([]field.Element, len(rows)),
		height:       len(rows),
	}
	for i, row := range rows {
		pt.address[i] = field.New(uint64(row.Address))
		pt.word[i] = field.New(uint64(row.Word))
		pt.multiplicity[i] = field.Zero
	}
	return pt
}

// GetID returns the table's identifier
func (pt *ProgramTableImpl) GetID() TableID {
	return ProgramTable
}

// GetHeight returns the current height
func (pt *ProgramTableImpl) GetHeight() int {
	return pt.height
}

// GetPaddedHeight returns the padded height
func (pt *ProgramTableImpl) GetPaddedHeight() int {
	return pt.paddedHeight
}

// GetMainColumns returns all main columns
func (pt *ProgramTableImpl) GetMainColumns() [][]field.Element {
	return [][]field.Element{pt.address, pt.word}
}

// GetAuxiliaryColumns returns the lookup multiplicity column
func (pt *ProgramTableImpl) GetAuxiliaryColumns() [][]field.Element {
	return [][]field.Element{pt.multiplicity}
}

// AddMultiplicity accumulates a lookup count onto the given row
func (pt *ProgramTableImpl) AddMultiplicity(row int, count uint64) error {
	if row < 0 || row >= len(pt.multiplicity) {
		return fmt.Errorf("multiplicity row %d out of range", row)
	}
	pt.multiplicity[row] = pt.multiplicity[row].Add(field.New(count))
	return nil
}

// Pad pads the table to the target height by repeating the last row with
// zero multiplicity
func (pt *ProgramTableImpl) Pad(targetHeight int) error {
	if targetHeight < pt.height {
		return fmt.Errorf("target height %d is less than current height %d", targetHeight, pt.height)
	}

	if pt.height == 0 {
		return fmt.Errorf("cannot pad empty Program table")
	}

	lastIdx := pt.height - 1
	paddingRows := targetHeight - pt.height

	for i := 0; i < paddingRows; i++ {
		pt.address = append(pt.address, pt.address[lastIdx])
		pt.word = append(pt.word, pt.word[lastIdx])
		pt.multiplicity = append(pt.multiplicity, field.Zero)
	}

	pt.paddedHeight = targetHeight
	return nil
}
