package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// TableID uniquely identifies each table in the multi-table architecture
type TableID int

const (
	// CPUTable records the main execution trace, one row per retired instruction
	CPUTable TableID = iota

	// MemoryTable ensures load/store consistency
	MemoryTable

	// BitwiseTable handles AND/OR/XOR delegation
	BitwiseTable

	// MultiplicationTable handles the M-extension delegation
	MultiplicationTable

	// RangeCheckTable is the fixed 8-bit range table
	RangeCheckTable

	// BitshiftTable is the fixed shift-amount/multiplier table
	BitshiftTable

	// ProgramTable provides program attestation
	ProgramTable
)

// TableCount is the number of tables in the trace
const TableCount = 7

// String returns the name of the table
func (id TableID) String() string {
	switch id {
	case CPUTable:
		return "CPU"
	case MemoryTable:
		return "Memory"
	case BitwiseTable:
		return "Bitwise"
	case MultiplicationTable:
		return "Multiplication"
	case RangeCheckTable:
		return "RangeCheck"
	case BitshiftTable:
		return "Bitshift"
	case ProgramTable:
		return "Program"
	default:
		return "Unknown"
	}
}

// ExecutionTable is the interface that all trace tables implement.
// The AIR constraints over these columns belong to the external STARK
// backend; each table documents what the backend is expected to enforce.
type ExecutionTable interface {
	// GetID returns the table's unique identifier
	GetID() TableID

	// GetHeight returns the current height (number of rows) before padding
	GetHeight() int

	// GetPaddedHeight returns the height after padding to a power of 2
	GetPaddedHeight() int

	// GetMainColumns returns the main columns
	GetMainColumns() [][]field.Element

	// GetAuxiliaryColumns returns the auxiliary columns (lookup multiplicities)
	GetAuxiliaryColumns() [][]field.Element

	// Pad extends the table to the target height with padding rows
	Pad(targetHeight int) error
}

// multiplicityTable is implemented by tables that carry a lookup
// multiplicity auxiliary column for the cross-table lookup argument.
type multiplicityTable interface {
	// AddMultiplicity accumulates a lookup count onto the given row
	AddMultiplicity(row int, count uint64) error
}

// TableStats holds statistics for a single table
type TableStats struct {
	Height           int
	PaddedHeight     int
	MainColumns      int
	AuxiliaryColumns int
}

// boolToElement maps a selector flag to a 0/1 field element
func boolToElement(b bool) field.Element {
	if b {
		return field.One
	}
	return field.Zero
}

// u8Limbs decomposes a 32-bit value into four little-endian byte limbs
func u8Limbs(v uint32) [4]uint32 {
	return [4]uint32{
		v & 0xff,
		(v >> 8) & 0xff,
		(v >> 16) & 0xff,
		(v >> 24) & 0xff,
	}
}
