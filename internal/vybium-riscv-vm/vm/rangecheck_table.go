package vm

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// RangeCheckRows is the fixed pre-padding height of the RangeCheck table
const RangeCheckRows = 256

// RangeCheck table main column indices
const (
	RangeCheckColValue = iota

	RangeCheckColumnCount
)

// RangeCheckTableImpl is the fixed 8-bit range table: 256 rows holding
// the values 0..255. Every u8 limb committed anywhere in the trace is
// looked up here; the multiplicity column records how often.
type RangeCheckTableImpl struct {
	value        []field.Element
	multiplicity []field.Element

	height       int
	paddedHeight int
}

// NewRangeCheckTable creates the fixed range table with zeroed multiplicities
func NewRangeCheckTable() *RangeCheckTableImpl {
	rt := &RangeCheckTableImpl{
		value:        make([]field.Element, RangeCheckRows),
		multiplicity: make([]field.Element, RangeCheckRows),
		height:       RangeCheckRows,
	}
	for i := 0; i < RangeCheckRows; i++ {
		rt.value[i] = field.New(uint64(i))
		rt.multiplicity[i] = field.Zero
	}
	return rt
}

// GetID returns the table's identifier
func (rt *RangeCheckTableImpl) GetID() TableID {
	return RangeCheckTable
}

// GetHeight returns the current height
func (rt *RangeCheckTableImpl) GetHeight() int {
	return rt.height
}

// GetPaddedHeight returns the padded height
func (rt *RangeCheckTableImpl) GetPaddedHeight() int {
	return rt.paddedHeight
}

// GetMainColumns returns all main columns
func (rt *RangeCheckTableImpl) GetMainColumns() [][]field.Element {
	return [][]field.Element{rt.value}
}

// GetAuxiliaryColumns returns the lookup multiplicity column
func (rt *RangeCheckTableImpl) GetAuxiliaryColumns() [][]field.Element {
	return [][]field.Element{rt.multiplicity}
}

// AddMultiplicity accumulates a lookup count onto the given row
func (rt *RangeCheckTableImpl) AddMultiplicity(row int, count uint64) error {
	if row < 0 || row >= len(rt.multiplicity) {
		return fmt.Errorf("multiplicity row %d out of range", row)
	}
	rt.multiplicity[row] = rt.multiplicity[row].Add(field.New(count))
	return nil
}

// Pad pads the table to the target height by repeating the last row with
// zero multiplicity
func (rt *RangeCheckTableImpl) Pad(targetHeight int) error {
	if targetHeight < rt.height {
		return fmt.Errorf("target height %d is less than current height %d", targetHeight, rt.height)
	}

	lastIdx := rt.height - 1
	paddingRows := targetHeight - rt.height

	for i := 0; i < paddingRows; i++ {
		rt.value = append(rt.value, rt.value[lastIdx])
		rt.multiplicity = append(rt.multiplicity, field.Zero)
	}

	rt.paddedHeight = targetHeight
	return nil
}
