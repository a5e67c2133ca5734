package vm

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// BitshiftRows is the fixed pre-padding height of the Bitshift table
const BitshiftRows = 32

// Bitshift table main column indices
const (
	BitshiftColAmount = iota
	BitshiftColMultiplier

	BitshiftColumnCount
)

// BitshiftTableImpl is the fixed shift table: 32 rows pairing each shift
// amount 0..31 with its power-of-two multiplier. Shift instructions look
// up (shamt, 1 << shamt) here, which lets the backend express shifts as
// multiplications and divisions by the committed multiplier.
type BitshiftTableImpl struct {
	amount       []field.Element
	multiplier   []field.Element
	multiplicity []field.Element

	height       int
	paddedHeight int
}

// NewBitshiftTable creates the fixed shift table with zeroed multiplicities
func NewBitshiftTable() *BitshiftTableImpl {
	bt := &BitshiftTableImpl{
		amount:       make([]field.Element, BitshiftRows),
		multiplier:   make([]field.Element, BitshiftRows),
		multiplicity: make([]field.Element, BitshiftRows),
		height:       BitshiftRows,
	}
	for i := 0; i < BitshiftRows; i++ {
		bt.amount[i] = field.New(uint64(i))
		bt.multiplier[i] = field.New(uint64(1) << uint(i))
		bt.multiplicity[i] = field.Zero
	}
	return bt
}

// GetID returns the table's identifier
func (bt *BitshiftTableImpl) GetID() TableID {
	return BitshiftTable
}

// GetHeight returns the current height
func (bt *BitshiftTableImpl) GetHeight() int {
	return bt.height
}

// GetPaddedHeight returns the padded height
func (bt *BitshiftTableImpl) GetPaddedHeight() int {
	return bt.paddedHeight
}

// GetMainColumns returns all main columns
func (bt *BitshiftTableImpl) GetMainColumns() [][]field.Element {
	return [][]field.Element{bt.amount, bt.multiplier}
}

// GetAuxiliaryColumns returns the lookup multiplicity column
func (bt *BitshiftTableImpl) GetAuxiliaryColumns() [][]field.Element {
	return [][]field.Element{bt.multiplicity}
}

// AddMultiplicity accumulates a lookup count onto the given row
func (bt *BitshiftTableImpl) AddMultiplicity(row int, count uint64) error {
	if row < 0 || row >= len(bt.multiplicity) {
		return fmt.Errorf("multiplicity row %d out of range", row)
	}
	bt.multiplicity[row] = bt.multiplicity[row].Add(field.New(count))
	return nil
}

// Pad pads the table to the target height by repeating the last row with
// zero multiplicity
func (bt *BitshiftTableImpl) Pad(targetHeight int) error {
	if targetHeight < bt.height {
		return fmt.Errorf("target height %d is less than current height %d", targetHeight, bt.height)
	}

	lastIdx := bt.height - 1
	paddingRows := targetHeight - bt.height

	for i := 0; i < paddingRows; i++ {
		bt.amount = append(bt.amount, bt.amount[lastIdx])
		bt.multiplier = append(bt.multiplier, bt.multiplier[lastIdx])
		bt.multiplicity = append(bt.multiplicity, field.Zero)
	}

	bt.paddedHeight = targetHeight
	return nil
}
