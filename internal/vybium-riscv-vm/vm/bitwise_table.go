package vm

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Bitwise table main column indices, in GetMainColumns order
const (
	BitwiseColIsExecuted = iota
	BitwiseColOp
	BitwiseColA
	BitwiseColB
	BitwiseColOut
	BitwiseColALimb0
	BitwiseColALimb1
	BitwiseColALimb2
	BitwiseColALimb3
	BitwiseColBLimb0
	BitwiseColBLimb1
	BitwiseColBLimb2
	BitwiseColBLimb3
	BitwiseColOutLimb0
	BitwiseColOutLimb1
	BitwiseColOutLimb2
	BitwiseColOutLimb3

	BitwiseColumnCount
)

// BitwiseTableImpl implements the Bitwise table: one row per AND/OR/XOR
// class instruction. Operands and result are committed whole and as u8
// limbs; the backend checks each limb triple against its fixed 8-bit
// operation table, this side range-checks the limbs.
type BitwiseTableImpl struct {
	isExecuted []field.Element
	op         []field.Element
	a          []field.Element
	b          []field.Element
	out        []field.Element

	aLimb   [4][]field.Element
	bLimb   [4][]field.Element
	outLimb [4][]field.Element

	multiplicity []field.Element

	height       int
	paddedHeight int
}

// NewBitwiseTable creates an empty Bitwise table
func NewBitwiseTable() *BitwiseTableImpl {
	return &BitwiseTableImpl{}
}

// GetID returns the table's identifier
func (bt *BitwiseTableImpl) GetID() TableID {
	return BitwiseTable
}

// GetHeight returns the current height
func (bt *BitwiseTableImpl) GetHeight() int {
	return bt.height
}

// GetPaddedHeight returns the padded height
func (bt *BitwiseTableImpl) GetPaddedHeight() int {
	return bt.paddedHeight
}

// GetMainColumns returns all main columns
func (bt *BitwiseTableImpl) GetMainColumns() [][]field.Element {
	return [][]field.Element{
		bt.isExecuted, bt.op, bt.a, bt.b, bt.out,
		bt.aLimb[0], bt.aLimb[1], bt.aLimb[2], bt.aLimb[3],
		bt.bLimb[0], bt.bLimb[1], bt.bLimb[2], bt.bLimb[3],
		bt.outLimb[0], bt.outLimb[1], bt.outLimb[2], bt.outLimb[3],
	}
}

// GetAuxiliaryColumns returns the lookup multiplicity column
func (bt *BitwiseTableImpl) GetAuxiliaryColumns() [][]field.Element {
	return [][]field.Element{bt.multiplicity}
}

// AddRow appends one bitwise operation with its limb decomposition
func (bt *BitwiseTableImpl) AddRow(op uint32, a, b, out uint32) error {
	if op > BitwiseOpXor {
		return fmt.Errorf("invalid bitwise op selector %d", op)
	}

	bt.isExecuted = append(bt.isExecuted, field.One)
	bt.op = append(bt.op, field.New(uint64(op)))
	bt.a = append(bt.a, field.New(uint64(a)))
	bt.b = append(bt.b, field.New(uint64(b)))
	bt.out = append(bt.out, field.New(uint64(out)))

	aLimbs := u8Limbs(a)
	bLimbs := u8Limbs(b)
	outLimbs := u8Limbs(out)
	for i := 0; i < 4; i++ {
		bt.aLimb[i] = append(bt.aLimb[i], field.New(uint64(aLimbs[i])))
		bt.bLimb[i] = append(bt.bLimb[i], field.New(uint64(bLimbs[i])))
		bt.outLimb[i] = append(bt.outLimb[i], field.New(uint64(outLimbs[i])))
	}

	bt.multiplicity = append(bt.multiplicity, field.Zero)
	bt.height++
	return nil
}

// AddMultiplicity accumulates a lookup count onto the given row
func (bt *BitwiseTableImpl) AddMultiplicity(row int, count uint64) error {
	if row < 0 || row >= len(bt.multiplicity) {
		return fmt.Errorf("multiplicity row %d out of range", row)
	}
	bt.multiplicity[row] = bt.multiplicity[row].Add(field.New(count))
	return nil
}

// Pad pads the table to the target height. Padding repeats the last row
// with isExecuted = 0; an empty table pads with all-zero rows, which are
// consistent limb triples for every operation.
func (bt *BitwiseTableImpl) Pad(targetHeight int) error {
	if targetHeight < bt.height {
		return fmt.Errorf("target height %d is less than current height %d", targetHeight, bt.height)
	}

	if bt.height == 0 {
		for i := 0; i < targetHeight; i++ {
			bt.isExecuted = append(bt.isExecuted, field.Zero)
			bt.op = append(bt.op, field.Zero)
			bt.a = append(bt.a, field.Zero)
			bt.b = append(bt.b, field.Zero)
			bt.out = append(bt.out, field.Zero)
			for j := 0; j < 4; j++ {
				bt.aLimb[j] = append(bt.aLimb[j], field.Zero)
				bt.bLimb[j] = append(bt.bLimb[j], field.Zero)
				bt.outLimb[j] = append(bt.outLimb[j], field.Zero)
			}
			bt.multiplicity = append(bt.multiplicity, field.Zero)
		}
		bt.paddedHeight = targetHeight
		return nil
	}

	lastIdx := bt.height - 1
	paddingRows := targetHeight - bt.height

	for i := 0; i < paddingRows; i++ {
		bt.isExecuted = append(bt.isExecuted, field.Zero)
		bt.op = append(bt.op, bt.op[lastIdx])
		bt.a = append(bt.a, bt.a[lastIdx])
		bt.b = append(bt.b, bt.b[lastIdx])
		bt.out = append(bt.out, bt.out[lastIdx])
		for j := 0; j < 4; j++ {
			bt.aLimb[j] = append(bt.aLimb[j], bt.aLimb[j][lastIdx])
			bt.bLimb[j] = append(bt.bLimb[j], bt.bLimb[j][lastIdx])
			bt.outLimb[j] = append(bt.outLimb[j], bt.outLimb[j][lastIdx])
		}
		bt.multiplicity = append(bt.multiplicity, field.Zero)
	}

	bt.paddedHeight = targetHeight
	return nil
}
