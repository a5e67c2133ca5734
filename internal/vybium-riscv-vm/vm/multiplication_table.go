package vm

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Multiplication table operation selectors, matching Op.MulDivOp
const (
	MulDivOpMul = iota
	MulDivOpMulh
	MulDivOpMulhsu
	MulDivOpMulhu
	MulDivOpDiv
	MulDivOpDivu
	MulDivOpRem
	MulDivOpRemu
)

// Multiplication table main column indices, in GetMainColumns order
const (
	MulColIsExecuted = iota
	MulColOp
	MulColOp1
	MulColOp2
	MulColResult
	MulColProductLow
	MulColProductHigh
	MulColQuotient
	MulColRemainder
	MulColDivisorZero
	MulColDivisorInv

	MulColumnCount
)

// MulDivWitness holds the auxiliary values committed alongside an
// M-extension operation. ProductHigh:ProductLow is the 64-bit product of
// the operands under the operation's signedness for multiplies, and of
// quotient and divisor for divisions, so that
// op1 = productLow + remainder holds modulo 2^32.
type MulDivWitness struct {
	Result      uint32
	ProductLow  uint32
	ProductHigh uint32
	Quotient    uint32
	Remainder   uint32
	DivisorZero bool
}

// ComputeMulDivWitness evaluates one M-extension operation, including the
// division edge cases: division by zero yields an all-ones quotient with
// the dividend as remainder, and INT_MIN / -1 overflows to INT_MIN with
// remainder zero. No operation traps.
func ComputeMulDivWitness(op uint32, op1, op2 uint32) (MulDivWitness, error) {
	var w MulDivWitness

	switch op {
	case MulDivOpMul, MulDivOpMulh:
		prod := uint64(int64(int32(op1)) * int64(int32(op2)))
		w.ProductLow = uint32(prod)
		w.ProductHigh = uint32(prod >> 32)
	case MulDivOpMulhsu:
		prod := uint64(int64(int32(op1)) * int64(uint64(op2)))
		w.ProductLow = uint32(prod)
		w.ProductHigh = uint32(prod >> 32)
	case MulDivOpMulhu:
		prod := uint64(op1) * uint64(op2)
		w.ProductLow = uint32(prod)
		w.ProductHigh = uint32(prod >> 32)

	case MulDivOpDiv, MulDivOpRem:
		a := int32(op1)
		b := int32(op2)
		var q, r int32
		switch {
		case b == 0:
			q = -1
			r = a
		case a == -1<<31 && b == -1:
			q = a
			r = 0
		default:
			q = a / b
			r = a % b
		}
		w.Quotient = uint32(q)
		w.Remainder = uint32(r)
	case MulDivOpDivu, MulDivOpRemu:
		if op2 == 0 {
			w.Quotient = 0xFFFFFFFF
			w.Remainder = op1
		} else {
			w.Quotient = op1 / op2
			w.Remainder = op1 % op2
		}
	default:
		return w, fmt.Errorf("invalid multiplication op selector %d", op)
	}

	switch op {
	case MulDivOpMul:
		w.Result = w.ProductLow
	case MulDivOpMulh, MulDivOpMulhsu, MulDivOpMulhu:
		w.Result = w.ProductHigh
	case MulDivOpDiv, MulDivOpDivu:
		w.Result = w.Quotient
	case MulDivOpRem, MulDivOpRemu:
		w.Result = w.Remainder
	}

	if op >= MulDivOpDiv {
		prod := uint64(w.Quotient) * uint64(op2)
		w.ProductLow = uint32(prod)
		w.ProductHigh = uint32(prod >> 32)
		w.DivisorZero = op2 == 0
	}

	return w, nil
}

// MultiplicationTableImpl implements the Multiplication table: one row
// per M-extension instruction. The backend enforces the product and
// division identities over the committed witness; divisorZero/divisorInv
// give it the zero-divisor branch.
type MultiplicationTableImpl struct {
	isExecuted  []field.Element
	op          []field.Element
	op1         []field.Element
	op2         []field.Element
	result      []field.Element
	productLow  []field.Element
	productHigh []field.Element
	quotient    []field.Element
	remainder   []field.Element
	divisorZero []field.Element
	divisorInv  []field.Element

	multiplicity []field.Element

	height       int
	paddedHeight int
}

// NewMultiplicationTable creates an empty Multiplication table
func NewMultiplicationTable() *MultiplicationTableImpl {
	return &MultiplicationTableImpl{}
}

// GetID returns the table's identifier
func (mt *MultiplicationTableImpl) GetID() TableID {
	return MultiplicationTable
}

// GetHeight returns the current height
func (mt *MultiplicationTableImpl) GetHeight() int {
	return mt.height
}

// GetPaddedHeight returns the padded height
func (mt *MultiplicationTableImpl) GetPaddedHeight() int {
	return mt.paddedHeight
}

// GetMainColumns returns all main columns
func (mt *MultiplicationTableImpl) GetMainColumns() [][]field.Element {
	return [][]field.Element{
		mt.isExecuted, mt.op, mt.op1, mt.op2, mt.result,
		mt.productLow, mt.productHigh, mt.quotient, mt.remainder,
		mt.divisorZero, mt.divisorInv,
	}
}

// GetAuxiliaryColumns returns the lookup multiplicity column
func (mt *MultiplicationTableImpl) GetAuxiliaryColumns() [][]field.Element {
	return [][]field.Element{mt.multiplicity}
}

// AddRow appends one M-extension operation with its computed witness
func (mt *MultiplicationTableImpl) AddRow(op uint32, op1, op2 uint32) error {
	w, err := ComputeMulDivWitness(op, op1, op2)
	if err != nil {
		return err
	}

	mt.isExecuted = append(mt.isExecuted, field.One)
	mt.op = append(mt.op, field.New(uint64(op)))
	mt.op1 = append(mt.op1, field.New(uint64(op1)))
	mt.op2 = append(mt.op2, field.New(uint64(op2)))
	mt.result = append(mt.result, field.New(uint64(w.Result)))
	mt.productLow = append(mt.productLow, field.New(uint64(w.ProductLow)))
	mt.productHigh = append(mt.productHigh, field.New(uint64(w.ProductHigh)))
	mt.quotient = append(mt.quotient, field.New(uint64(w.Quotient)))
	mt.remainder = append(mt.remainder, field.New(uint64(w.Remainder)))
	mt.divisorZero = append(mt.divisorZero, boolToElement(w.DivisorZero))

	divisorInv := field.Zero
	if op >= MulDivOpDiv && op2 != 0 {
		divisorInv = field.New(uint64(op2)).Inverse()
	}
	mt.divisorInv = append(mt.divisorInv, divisorInv)

	mt.multiplicity = append(mt.multiplicity, field.Zero)
	mt.height++
	return nil
}

// AddMultiplicity accumulates a lookup count onto the given row
func (mt *MultiplicationTableImpl) AddMultiplicity(row int, count uint64) error {
	if row < 0 || row >= len(mt.multiplicity) {
		return fmt.Errorf("multiplicity row %d out of range", row)
	}
	mt.multiplicity[row] = mt.multiplicity[row].Add(field.New(count))
	return nil
}

// Pad pads the table to the target height. Padding repeats the last row
// with isExecuted = 0; an empty table pads with all-zero rows.
func (mt *MultiplicationTableImpl) Pad(targetHeight int) error {
	if targetHeight < mt.height {
		return fmt.Errorf("target height %d is less than current height %d", targetHeight, mt.height)
	}

	if mt.height == 0 {
		for i := 0; i < targetHeight; i++ {
			mt.isExecuted = append(mt.isExecuted, field.Zero)
			mt.op = append(mt.op, field.Zero)
			mt.op1 = append(mt.op1, field.Zero)
			mt.op2 = append(mt.op2, field.Zero)
			mt.result = append(mt.result, field.Zero)
			mt.productLow = append(mt.productLow, field.Zero)
			mt.productHigh = append(mt.productHigh, field.Zero)
			mt.quotient = append(mt.quotient, field.Zero)
			mt.remainder = append(mt.remainder, field.Zero)
			mt.divisorZero = append(mt.divisorZero, field.Zero)
			mt.divisorInv = append(mt.divisorInv, field.Zero)
			mt.multiplicity = append(mt.multiplicity, field.Zero)
		}
		mt.paddedHeight = targetHeight
		return nil
	}

	lastIdx := mt.height - 1
	paddingRows := targetHeight - mt.height

	for i := 0; i < paddingRows; i++ {
		mt.isExecuted = append(mt.isExecuted, field.Zero)
		mt.op = append(mt.op, mt.op[lastIdx])
		mt.op1 = append(mt.op1, mt.op1[lastIdx])
		mt.op2 = append(mt.op2, mt.op2[lastIdx])
		mt.result = append(mt.result, mt.result[lastIdx])
		mt.productLow = append(mt.productLow, mt.productLow[lastIdx])
		mt.productHigh = append(mt.productHigh, mt.productHigh[lastIdx])
		mt.quotient = append(mt.quotient, mt.quotient[lastIdx])
		mt.remainder = append(mt.remainder, mt.remainder[lastIdx])
		mt.divisorZero = append(mt.divisorZero, mt.divisorZero[lastIdx])
		mt.divisorInv = append(mt.divisorInv, mt.divisorInv[lastIdx])
		mt.multiplicity = append(mt.multiplicity, field.Zero)
	}

	mt.paddedHeight = targetHeight
	return nil
}
