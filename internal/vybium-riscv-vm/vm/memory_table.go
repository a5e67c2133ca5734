package vm

import (
	"fmt"
	"sort"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Memory table main column indices, in GetMainColumns order
const (
	MemColIsExecuted = iota
	MemColAddr
	MemColClk
	MemColIsWrite
	MemColWidth
	MemColValue
	MemColDiffAddr
	MemColDiffAddrInv
	MemColDiffClk
	MemColDiffAddrLimb0
	MemColDiffAddrLimb1
	MemColDiffAddrLimb2
	MemColDiffAddrLimb3
	MemColDiffClkLimb0
	MemColDiffClkLimb1
	MemColDiffClkLimb2
	MemColDiffClkLimb3

	MemColumnCount
)

// MemoryAccess is one load or store event as seen by the executor
type MemoryAccess struct {
	Clk     uint64
	Addr    uint32
	IsWrite bool
	Width   uint32
	Value   uint32
}

// MemoryTableImpl implements the Memory table: one row per load/store
// event. Rows are appended in execution order and sorted by (addr, clk)
// at finalization, after which the diff columns link consecutive rows.
// The backend enforces that within an address group every read returns
// the last written value, using diffAddr/diffAddrInv to detect group
// boundaries and the u8 limbs to range-bound the differences.
type MemoryTableImpl struct {
	isExecuted []field.Element
	addr       []field.Element
	clk        []field.Element
	isWrite    []field.Element
	width      []field.Element
	value      []field.Element

	diffAddr    []field.Element
	diffAddrInv []field.Element
	diffClk     []field.Element

	diffAddrLimb0 []field.Element
	diffAddrLimb1 []field.Element
	diffAddrLimb2 []field.Element
	diffAddrLimb3 []field.Element
	diffClkLimb0  []field.Element
	diffClkLimb1  []field.Element
	diffClkLimb2  []field.Element
	diffClkLimb3  []field.Element

	// Execution-order record of the accesses, kept for the sort
	accesses []MemoryAccess

	sorted       bool
	height       int
	paddedHeight int
}

// NewMemoryTable creates an empty Memory table
func NewMemoryTable() *MemoryTableImpl {
	return &MemoryTableImpl{}
}

// GetID returns the table's identifier
func (mt *MemoryTableImpl) GetID() TableID {
	return MemoryTable
}

// GetHeight returns the current height
func (mt *MemoryTableImpl) GetHeight() int {
	return mt.height
}

// GetPaddedHeight returns the padded height
func (mt *MemoryTableImpl) GetPaddedHeight() int {
	return mt.paddedHeight
}

// GetMainColumns returns all main columns
func (mt *MemoryTableImpl) GetMainColumns() [][]field.Element {
	return [][]field.Element{
		mt.isExecuted, mt.addr, mt.clk, mt.isWrite, mt.width, mt.value,
		mt.diffAddr, mt.diffAddrInv, mt.diffClk,
		mt.diffAddrLimb0, mt.diffAddrLimb1, mt.diffAddrLimb2, mt.diffAddrLimb3,
		mt.diffClkLimb0, mt.diffClkLimb1, mt.diffClkLimb2, mt.diffClkLimb3,
	}
}

// GetAuxiliaryColumns returns auxiliary columns; the Memory table has none
func (mt *MemoryTableImpl) GetAuxiliaryColumns() [][]field.Element {
	return [][]field.Element{}
}

// AddRow appends one memory access in execution order. Diff columns stay
// zero until SortAndFillDiffs runs.
func (mt *MemoryTableImpl) AddRow(access *MemoryAccess) error {
	if access == nil {
		return fmt.Errorf("memory access cannot be nil")
	}

	mt.accesses = append(mt.accesses, *access)
	mt.appendRow(*access, field.Zero, field.Zero, field.Zero, [4]uint32{}, [4]uint32{})
	mt.height++
	return nil
}

// appendRow writes one row's cells across all columns
func (mt *MemoryTableImpl) appendRow(access MemoryAccess, diffAddr, diffAddrInv, diffClk field.Element, addrLimbs, clkLimbs [4]uint32) {
	mt.isExecuted = append(mt.isExecuted, field.One)
	mt.addr = append(mt.addr, field.New(uint64(access.Addr)))
	mt.clk = append(mt.clk, field.New(access.Clk))
	mt.isWrite = append(mt.isWrite, boolToElement(access.IsWrite))
	mt.width = append(mt.width, field.New(uint64(access.Width)))
	mt.value = append(mt.value, field.New(uint64(access.Value)))

	mt.diffAddr = append(mt.diffAddr, diffAddr)
	mt.diffAddrInv = append(mt.diffAddrInv, diffAddrInv)
	mt.diffClk = append(mt.diffClk, diffClk)

	mt.diffAddrLimb0 = append(mt.diffAddrLimb0, field.New(uint64(addrLimbs[0])))
	mt.diffAddrLimb1 = append(mt.diffAddrLimb1, field.New(uint64(addrLimbs[1])))
	mt.diffAddrLimb2 = append(mt.diffAddrLimb2, field.New(uint64(addrLimbs[2])))
	mt.diffAddrLimb3 = append(mt.diffAddrLimb3, field.New(uint64(addrLimbs[3])))
	mt.diffClkLimb0 = append(mt.diffClkLimb0, field.New(uint64(clkLimbs[0])))
	mt.diffClkLimb1 = append(mt.diffClkLimb1, field.New(uint64(clkLimbs[1])))
	mt.diffClkLimb2 = append(mt.diffClkLimb2, field.New(uint64(clkLimbs[2])))
	mt.diffClkLimb3 = append(mt.diffClkLimb3, field.New(uint64(clkLimbs[3])))
}

// resetColumns drops all column data so the sorted rows can be rebuilt
func (mt *MemoryTableImpl) resetColumns() {
	mt.isExecuted = nil
	mt.addr = nil
	mt.clk = nil
	mt.isWrite = nil
	mt.width = nil
	mt.value = nil
	mt.diffAddr = nil
	mt.diffAddrInv = nil
	mt.diffClk = nil
	mt.diffAddrLimb0 = nil
	mt.diffAddrLimb1 = nil
	mt.diffAddrLimb2 = nil
	mt.diffAddrLimb3 = nil
	mt.diffClkLimb0 = nil
	mt.diffClkLimb1 = nil
	mt.diffClkLimb2 = nil
	mt.diffClkLimb3 = nil
}

// SortAndFillDiffs reorders the rows by (addr, clk) and fills the diff
// columns. For row i > 0: diffAddr = addr[i] - addr[i-1], diffAddrInv its
// field inverse (zero when the address repeats), and diffClk the clock
// difference within an address group (zero at group boundaries). The
// first row carries zero diffs. Idempotent.
func (mt *MemoryTableImpl) SortAndFillDiffs() error {
	if mt.sorted {
		return nil
	}

	rows := make([]MemoryAccess, len(mt.accesses))
	copy(rows, mt.accesses)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Addr != rows[j].Addr {
			return rows[i].Addr < rows[j].Addr
		}
		return rows[i].Clk < rows[j].Clk
	})

	mt.resetColumns()
	for i, access := range rows {
		diffAddr := field.Zero
		diffAddrInv := field.Zero
		diffClk := field.Zero
		var addrLimbs, clkLimbs [4]uint32

		if i > 0 {
			prev := rows[i-1]
			da := access.Addr - prev.Addr
			diffAddr = field.New(uint64(da))
			if da != 0 {
				diffAddrInv = diffAddr.Inverse()
				addrLimbs = u8Limbs(da)
			} else {
				dc := access.Clk - prev.Clk
				diffClk = field.New(dc)
				clkLimbs = u8Limbs(uint32(dc))
			}
		}

		mt.appendRow(access, diffAddr, diffAddrInv, diffClk, addrLimbs, clkLimbs)
	}

	mt.accesses = rows
	mt.sorted = true
	return nil
}

// Pad pads the table to the target height. Padding repeats the last row
// with isExecuted = 0 and zeroed diffs; an empty table pads with all-zero
// rows.
func (mt *MemoryTableImpl) Pad(targetHeight int) error {
	if targetHeight < mt.height {
		return fmt.Errorf("target height %d is less than current height %d", targetHeight, mt.height)
	}

	if mt.height == 0 {
		for i := 0; i < targetHeight; i++ {
			mt.appendRow(MemoryAccess{}, field.Zero, field.Zero, field.Zero, [4]uint32{}, [4]uint32{})
			mt.isExecuted[i] = field.Zero
		}
		mt.paddedHeight = targetHeight
		return nil
	}

	lastIdx := mt.height - 1
	paddingRows := targetHeight - mt.height

	for i := 0; i < paddingRows; i++ {
		mt.isExecuted = append(mt.isExecuted, field.Zero)
		mt.addr = append(mt.addr, mt.addr[lastIdx])
		mt.clk = append(mt.clk, mt.clk[lastIdx])
		mt.isWrite = append(mt.isWrite, mt.isWrite[lastIdx])
		mt.width = append(mt.width, mt.width[lastIdx])
		mt.value = append(mt.value, mt.value[lastIdx])

		mt.diffAddr = append(mt.diffAddr, field.Zero)
		mt.diffAddrInv = append(mt.diffAddrInv, field.Zero)
		mt.diffClk = append(mt.diffClk, field.Zero)
		mt.diffAddrLimb0 = append(mt.diffAddrLimb0, field.Zero)
		mt.diffAddrLimb1 = append(mt.diffAddrLimb1, field.Zero)
		mt.diffAddrLimb2 = append(mt.diffAddrLimb2, field.Zero)
		mt.diffAddrLimb3 = append(mt.diffAddrLimb3, field.Zero)
		mt.diffClkLimb0 = append(mt.diffClkLimb0, field.Zero)
		mt.diffClkLimb1 = append(mt.diffClkLimb1, field.Zero)
		mt.diffClkLimb2 = append(mt.diffClkLimb2, field.Zero)
		mt.diffClkLimb3 = append(mt.diffClkLimb3, field.Zero)
	}

	mt.paddedHeight = targetHeight
	return nil
}
