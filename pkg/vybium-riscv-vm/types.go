package vybiumriscvvm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// FieldElement represents one trace cell
// This is the public type for field elements used throughout the trace
type FieldElement = field.Element

// Program is the loader-facing program image. Code words are laid out
// consecutively starting at the entry point; Image seeds data memory and
// Registers seeds the register file (x0 is forced to zero).
type Program struct {
	Entry     uint32
	Code      []uint32
	Image     map[uint32]byte
	Registers [32]uint32
}

// NewProgram creates a program from consecutive instruction words
func NewProgram(entry uint32, code []uint32) *Program {
	return &Program{
		Entry: entry,
		Code:  code,
		Image: make(map[uint32]byte),
	}
}

// VMConfig represents configuration for trace generation
type VMConfig struct {
	// Maximum log2 of the common padded trace height
	MaxLog2PaddedHeight int

	// Maximum number of execution cycles (0 = unlimited)
	MaxCycles int

	// Hash function for attestation and commitment ("sha256" or "sha3")
	HashFunction string
}

// TableArtifact is one finalized trace table
type TableArtifact struct {
	ID           int
	Name         string
	Height       int
	PaddedHeight int

	// MainColumns holds the committed witness columns
	MainColumns [][]FieldElement

	// AuxiliaryColumns holds the lookup multiplicity columns
	AuxiliaryColumns [][]FieldElement
}

// LookupArtifact is the challenge-independent output of one cross-table
// lookup pair
type LookupArtifact struct {
	Name                 string
	Kind                 string
	LookingTable         string
	LookedTable          string
	LookedMultiplicities []uint64
}

// TraceArtifact is the complete handoff unit for the external proof
// backend: all finalized tables, the lookup artifacts, and the program
// attestation digest. It is produced only from a halted machine and must
// be treated as an immutable unit.
type TraceArtifact struct {
	Tables        []TableArtifact
	Lookups       []LookupArtifact
	PaddedHeight  int
	CycleCount    uint64
	ProgramDigest []byte
	Commitment    []byte
}

// ExecutionTrace represents the result of one program execution
type ExecutionTrace struct {
	// Artifact is the backend handoff unit
	Artifact *TraceArtifact

	// CycleCount is the number of retired instructions
	CycleCount uint64

	// Registers is the final register file
	Registers [32]uint32

	// Halted reports whether the machine reached a clean halt
	Halted bool
}
