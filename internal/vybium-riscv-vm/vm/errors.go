// Package vm provides the RV32IM execution engine and trace table generation
package vm

import (
	"fmt"
)

// IllegalInstructionError reports a word that does not decode to a
// supported RV32IM instruction.
type IllegalInstructionError struct {
	PC   uint32
	Word uint32
}

// Error returns the error message
func (e *IllegalInstructionError) Error() string {
	return fmt.Sprintf("illegal instruction 0x%08x at pc 0x%08x", e.Word, e.PC)
}

// MisalignedAccessError reports a halfword or word access at an address
// that is not a multiple of the access width.
type MisalignedAccessError struct {
	PC      uint32
	Addr    uint32
	Width   uint32
	IsWrite bool
}

// Error returns the error message
func (e *MisalignedAccessError) Error() string {
	kind := "load"
	if e.IsWrite {
		kind = "store"
	}
	return fmt.Sprintf("misaligned %d-byte %s at address 0x%08x (pc 0x%08x)", e.Width, kind, e.Addr, e.PC)
}

// TraceTooLargeError reports a trace whose common padded height exceeds
// the configured maximum.
type TraceTooLargeError struct {
	Required int
	Max      int
}

// Error returns the error message
func (e *TraceTooLargeError) Error() string {
	return fmt.Sprintf("padded trace height %d exceeds maximum %d", e.Required, e.Max)
}

// LookupMismatchError reports a tuple on the looking side of a cross-table
// lookup that has no matching row in the looked table, or an entry in the
// looked table that breaks multiset equality for a permutation pair.
type LookupMismatchError struct {
	Pair  LookupPairID
	Table TableID
	Row   int
	Tuple []uint64
}

// Error returns the error message
func (e *LookupMismatchError) Error() string {
	return fmt.Sprintf("lookup mismatch in %s: %s table row %d has no match for tuple %v",
		e.Pair, e.Table, e.Row, e.Tuple)
}
