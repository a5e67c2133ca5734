package vm

import (
	"fmt"
	"sync"

	"github.com/vybium/vybium-riscv-vm/internal/vybium-riscv-vm/utils"
)

// AlgebraicExecutionTrace holds the seven trace tables produced by one
// program execution, plus the program attestation digest. Tables grow
// during execution and are frozen by Finalize; after that the lookup
// builder and the handoff read them only (the lookup builder still fills
// the auxiliary multiplicity columns).
type AlgebraicExecutionTrace struct {
	CPU            *CPUTableImpl
	Memory         *MemoryTableImpl
	Bitwise        *BitwiseTableImpl
	Multiplication *MultiplicationTableImpl
	RangeCheck     *RangeCheckTableImpl
	Bitshift       *BitshiftTableImpl
	Program        *ProgramTableImpl

	PaddedHeight  int
	CycleCount    uint64
	ProgramDigest []byte

	finalized       bool
	lookupArtifacts []LookupArtifact
}

// NewAlgebraicExecutionTrace creates an AET with empty dynamic tables,
// the two fixed tables, and the Program table built from the ROM
func NewAlgebraicExecutionTrace(program *Program, hashFunc string) *AlgebraicExecutionTrace {
	return &AlgebraicExecutionTrace{
		CPU:            NewCPUTable(),
		Memory:         NewMemoryTable(),
		Bitwise:        NewBitwiseTable(),
		Multiplication: NewMultiplicationTable(),
		RangeCheck:     NewRangeCheckTable(),
		Bitshift:       NewBitshiftTable(),
		Program:        NewProgramTable(program),
		ProgramDigest:  program.Digest(hashFunc),
	}
}

// GetTable retrieves a specific table by ID
func (aet *AlgebraicExecutionTrace) GetTable(id TableID) (ExecutionTable, error) {
	switch id {
	case CPUTable:
		return aet.CPU, nil
	case MemoryTable:
		return aet.Memory, nil
	case BitwiseTable:
		return aet.Bitwise, nil
	case MultiplicationTable:
		return aet.Multiplication, nil
	case RangeCheckTable:
		return aet.RangeCheck, nil
	case BitshiftTable:
		return aet.Bitshift, nil
	case ProgramTable:
		return aet.Program, nil
	default:
		return nil, fmt.Errorf("invalid table ID: %d", id)
	}
}

// GetAllTables returns all tables in TableID order
func (aet *AlgebraicExecutionTrace) GetAllTables() []ExecutionTable {
	return []ExecutionTable{
		aet.CPU,
		aet.Memory,
		aet.Bitwise,
		aet.Multiplication,
		aet.RangeCheck,
		aet.Bitshift,
		aet.Program,
	}
}

// ComputePaddedHeight determines the common padded height: the next power
// of 2 at least as large as the tallest table
func (aet *AlgebraicExecutionTrace) ComputePaddedHeight() int {
	maxHeight := 0
	for _, table := range aet.GetAllTables() {
		if height := table.GetHeight(); height > maxHeight {
			maxHeight = height
		}
	}
	return utils.NextPowerOfTwo(maxHeight)
}

// IsFinalized reports whether Finalize has completed
func (aet *AlgebraicExecutionTrace) IsFinalized() bool {
	return aet.finalized
}

// Finalize freezes the trace: sorts the Memory table and fills its diff
// columns, computes the common padded height, enforces the configured
// height bound, and pads every table in parallel. Calling Finalize on an
// already finalized trace verifies consistency and returns nil.
func (aet *AlgebraicExecutionTrace) Finalize(config *utils.Config) error {
	if config == nil {
		config = utils.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if aet.finalized {
		for _, table := range aet.GetAllTables() {
			if table.GetPaddedHeight() != aet.PaddedHeight {
				return fmt.Errorf("%s table has padded height %d, expected %d",
					table.GetID(), table.GetPaddedHeight(), aet.PaddedHeight)
			}
		}
		return nil
	}

	if err := aet.Memory.SortAndFillDiffs(); err != nil {
		return fmt.Errorf("failed to sort memory table: %w", err)
	}

	paddedHeight := aet.ComputePaddedHeight()
	maxHeight := 1 << config.MaxLog2PaddedHeight
	if paddedHeight > maxHeight {
		return &TraceTooLargeError{Required: paddedHeight, Max: maxHeight}
	}

	tables := aet.GetAllTables()
	padErrs := make([]error, len(tables))
	var wg sync.WaitGroup
	for i, table := range tables {
		wg.Add(1)
		go func(i int, table ExecutionTable) {
			defer wg.Done()
			padErrs[i] = table.Pad(paddedHeight)
		}(i, table)
	}
	wg.Wait()

	for i, err := range padErrs {
		if err != nil {
			return fmt.Errorf("failed to pad %s table: %w", tables[i].GetID(), err)
		}
	}

	aet.PaddedHeight = paddedHeight
	aet.finalized = true
	return nil
}

// ComputeCommitment hashes every finalized column in table order into a
// single trace commitment. The multiplicity columns are included, so the
// commitment is taken after the lookup builder has run.
func (aet *AlgebraicExecutionTrace) ComputeCommitment(hashFunc string) ([]byte, error) {
	if !aet.finalized {
		return nil, fmt.Errorf("trace is not finalized")
	}

	d := utils.NewDigest(hashFunc)
	for _, table := range aet.GetAllTables() {
		d.AbsorbUint32(uint32(table.GetID()))
		for _, col := range table.GetMainColumns() {
			for _, cell := range col {
				d.AbsorbUint64(cell.Value())
			}
		}
		for _, col := range table.GetAuxiliaryColumns() {
			for _, cell := range col {
				d.AbsorbUint64(cell.Value())
			}
		}
	}
	return d.Sum(), nil
}

// GetTableStatistics returns per-table height and column counts
func (aet *AlgebraicExecutionTrace) GetTableStatistics() map[TableID]TableStats {
	stats := make(map[TableID]TableStats)
	for _, table := range aet.GetAllTables() {
		stats[table.GetID()] = TableStats{
			Height:           table.GetHeight(),
			PaddedHeight:     table.GetPaddedHeight(),
			MainColumns:      len(table.GetMainColumns()),
			AuxiliaryColumns: len(table.GetAuxiliaryColumns()),
		}
	}
	return stats
}
