package vm

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// CPU table main column indices, in GetMainColumns order. The cross-table
// lookup pairs reference columns by these indices.
const (
	CPUColClk = iota
	CPUColPC
	CPUColWord
	CPUColOp
	CPUColRs1
	CPUColRs2
	CPUColRd
	CPUColOp1Value
	CPUColOp2Value
	CPUColImmValue
	CPUColDstValue
	CPUColDstLimb0
	CPUColDstLimb1
	CPUColDstLimb2
	CPUColDstLimb3
	CPUColMemAddr
	CPUColMemValue
	CPUColMemWidth
	CPUColShamt
	CPUColShiftMultiplier
	CPUColBitwiseOp
	CPUColMulDivOp
	CPUColIsRunning
	CPUColIsMemAccess
	CPUColIsMemStore
	CPUColIsBitwise
	CPUColIsMulDiv
	CPUColIsShift
	CPUColIsHalt

	CPUColumnCount
)

// CPURow carries the per-instruction values committed to the CPU table.
// Op1Value and Op2Value are the effective operands (register values, or
// the immediate where the format substitutes one), DstValue the computed
// result before the x0 write discard.
type CPURow struct {
	Clk  uint64
	PC   uint32
	Word uint32
	Op   Op
	Rs1  uint32
	Rs2  uint32
	Rd   uint32

	Op1Value uint32
	Op2Value uint32
	ImmValue uint32
	DstValue uint32

	MemAddr  uint32
	MemValue uint32
	MemWidth uint32

	Shamt           uint32
	ShiftMultiplier uint32
	BitwiseOp       uint32
	MulDivOp        uint32

	IsMemAccess bool
	IsMemStore  bool
	IsBitwise   bool
	IsMulDiv    bool
	IsShift     bool
	IsHalt      bool
}

// CPUTableImpl implements the CPU table: one row per retired instruction.
// The backend enforces the state transition constraints over these columns;
// this side commits the witness values and the delegation selectors.
type CPUTableImpl struct {
	clk      []field.Element
	pc       []field.Element
	word     []field.Element
	op       []field.Element
	rs1      []field.Element
	rs2      []field.Element
	rd       []field.Element
	op1Value []field.Element
	op2Value []field.Element
	immValue []field.Element
	dstValue []field.Element

	dstLimb0 []field.Element
	dstLimb1 []field.Element
	dstLimb2 []field.Element
	dstLimb3 []field.Element

	memAddr  []field.Element
	memValue []field.Element
	memWidth []field.Element

	shamt           []field.Element
	shiftMultiplier []field.Element
	bitwiseOp       []field.Element
	mulDivOp        []field.Element

	isRunning   []field.Element
	isMemAccess []field.Element
	isMemStore  []field.Element
	isBitwise   []field.Element
	isMulDiv    []field.Element
	isShift     []field.Element
	isHalt      []field.Element

	height       int
	paddedHeight int
}

// NewCPUTable creates an empty CPU table
func NewCPUTable() *CPUTableImpl {
	return &CPUTableImpl{}
}

// GetID returns the table's identifier
func (ct *CPUTableImpl) GetID() TableID {
	return CPUTable
}

// GetHeight returns the current height
func (ct *CPUTableImpl) GetHeight() int {
	return ct.height
}

// GetPaddedHeight returns the padded height
func (ct *CPUTableImpl) GetPaddedHeight() int {
	return ct.paddedHeight
}

// GetMainColumns returns all main columns
func (ct *CPUTableImpl) GetMainColumns() [][]field.Element {
	return [][]field.Element{
		ct.clk, ct.pc, ct.word, ct.op,
		ct.rs1, ct.rs2, ct.rd,
		ct.op1Value, ct.op2Value, ct.immValue, ct.dstValue,
		ct.dstLimb0, ct.dstLimb1, ct.dstLimb2, ct.dstLimb3,
		ct.memAddr, ct.memValue, ct.memWidth,
		ct.shamt, ct.shiftMultiplier,
		ct.bitwiseOp, ct.mulDivOp,
		ct.isRunning, ct.isMemAccess, ct.isMemStore,
		ct.isBitwise, ct.isMulDiv, ct.isShift, ct.isHalt,
	}
}

// GetAuxiliaryColumns returns auxiliary columns; the CPU table has none
func (ct *CPUTableImpl) GetAuxiliaryColumns() [][]field.Element {
	return [][]field.Element{}
}

// AddRow appends one retired instruction to the table
func (ct *CPUTableImpl) AddRow(row *CPURow) error {
	if row == nil {
		return fmt.Errorf("cpu row cannot be nil")
	}

	ct.clk = append(ct.clk, field.New(row.Clk))
	ct.pc = append(ct.pc, field.New(uint64(row.PC)))
	ct.word = append(ct.word, field.New(uint64(row.Word)))
	ct.op = append(ct.op, field.New(uint64(row.Op)))
	ct.rs1 = append(ct.rs1, field.New(uint64(row.Rs1)))
	ct.rs2 = append(ct.rs2, field.New(uint64(row.Rs2)))
	ct.rd = append(ct.rd, field.New(uint64(row.Rd)))
	ct.op1Value = append(ct.op1Value, field.New(uint64(row.Op1Value)))
	ct.op2Value = append(ct.op2Value, field.New(uint64(row.Op2Value)))
	ct.immValue = append(ct.immValue, field.New(uint64(row.ImmValue)))
	ct.dstValue = append(ct.dstValue, field.New(uint64(row.DstValue)))

	limbs := u8Limbs(row.DstValue)
	ct.dstLimb0 = append(ct.dstLimb0, field.New(uint64(limbs[0])))
	ct.dstLimb1 = append(ct.dstLimb1, field.New(uint64(limbs[1])))
	ct.dstLimb2 = append(ct.dstLimb2, field.New(uint64(limbs[2])))
	ct.dstLimb3 = append(ct.dstLimb3, field.New(uint64(limbs[3])))

	ct.memAddr = append(ct.memAddr, field.New(uint64(row.MemAddr)))
	ct.memValue = append(ct.memValue, field.New(uint64(row.MemValue)))
	ct.memWidth = append(ct.memWidth, field.New(uint64(row.MemWidth)))

	ct.shamt = append(ct.shamt, field.New(uint64(row.Shamt)))
	ct.shiftMultiplier = append(ct.shiftMultiplier, field.New(uint64(row.ShiftMultiplier)))
	ct.bitwiseOp = append(ct.bitwiseOp, field.New(uint64(row.BitwiseOp)))
	ct.mulDivOp = append(ct.mulDivOp, field.New(uint64(row.MulDivOp)))

	ct.isRunning = append(ct.isRunning, field.One)
	ct.isMemAccess = append(ct.isMemAccess, boolToElement(row.IsMemAccess))
	ct.isMemStore = append(ct.isMemStore, boolToElement(row.IsMemStore))
	ct.isBitwise = append(ct.isBitwise, boolToElement(row.IsBitwise))
	ct.isMulDiv = append(ct.isMulDiv, boolToElement(row.IsMulDiv))
	ct.isShift = append(ct.isShift, boolToElement(row.IsShift))
	ct.isHalt = append(ct.isHalt, boolToElement(row.IsHalt))

	ct.height++
	return nil
}

// Pad pads the table to the target height. Padding rows repeat the final
// row with isRunning and every other selector column zeroed, so padding
// contributes nothing to any lookup.
func (ct *CPUTableImpl) Pad(targetHeight int) error {
	if targetHeight < ct.height {
		return fmt.Errorf("target height %d is less than current height %d", targetHeight, ct.height)
	}

	if ct.height == 0 {
		return fmt.Errorf("cannot pad empty CPU table")
	}

	lastIdx := ct.height - 1
	paddingRows := targetHeight - ct.height

	for i := 0; i < paddingRows; i++ {
		ct.clk = append(ct.clk, ct.clk[lastIdx])
		ct.pc = append(ct.pc, ct.pc[lastIdx])
		ct.word = append(ct.word, ct.word[lastIdx])
		ct.op = append(ct.op, ct.op[lastIdx])
		ct.rs1 = append(ct.rs1, ct.rs1[lastIdx])
		ct.rs2 = append(ct.rs2, ct.rs2[lastIdx])
		ct.rd = append(ct.rd, ct.rd[lastIdx])
		ct.op1Value = append(ct.op1Value, ct.op1Value[lastIdx])
		ct.op2Value = append(ct.op2Value, ct.op2Value[lastIdx])
		ct.immValue = append(ct.immValue, ct.immValue[lastIdx])
		ct.dstValue = append(ct.dstValue, ct.dstValue[lastIdx])
		ct.dstLimb0 = append(ct.dstLimb0, ct.dstLimb0[lastIdx])
		ct.dstLimb1 = append(ct.dstLimb1, ct.dstLimb1[lastIdx])
		ct.dstLimb2 = append(ct.dstLimb2, ct.dstLimb2[lastIdx])
		ct.dstLimb3 = append(ct.dstLimb3, ct.dstLimb3[lastIdx])
		ct.memAddr = append(ct.memAddr, ct.memAddr[lastIdx])
		ct.memValue = append(ct.memValue, ct.memValue[lastIdx])
		ct.memWidth = append(ct.memWidth, ct.memWidth[lastIdx])
		ct.shamt = append(ct.shamt, ct.shamt[lastIdx])
		ct.shiftMultiplier = append(ct.shiftMultiplier, ct.shiftMultiplier[lastIdx])
		ct.bitwiseOp = append(ct.bitwiseOp, ct.bitwiseOp[lastIdx])
		ct.mulDivOp = append(ct.mulDivOp, ct.mulDivOp[lastIdx])

		ct.isRunning = append(ct.isRunning, field.Zero)
		ct.isMemAccess = append(ct.isMemAccess, field.Zero)
		ct.isMemStore = append(ct.isMemStore, field.Zero)
		ct.isBitwise = append(ct.isBitwise, field.Zero)
		ct.isMulDiv = append(ct.isMulDiv, field.Zero)
		ct.isShift = append(ct.isShift, field.Zero)
		ct.isHalt = append(ct.isHalt, field.Zero)
	}

	ct.paddedHeight = targetHeight
	return nil
}
