package vm

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// LookupPairID identifies one cross-table consistency argument
type LookupPairID int

const (
	// CpuMemoryPair links CPU memory rows to the Memory table (permutation)
	CpuMemoryPair LookupPairID = iota

	// CpuRangeCheckPair range-checks the CPU destination limbs
	CpuRangeCheckPair

	// MemoryRangeCheckPair range-checks the Memory diff limbs
	MemoryRangeCheckPair

	// BitwiseRangeCheckPair range-checks the Bitwise operand limbs
	BitwiseRangeCheckPair

	// CpuBitwisePair links bitwise instructions to the Bitwise table
	CpuBitwisePair

	// CpuMultiplicationPair links M-extension instructions to the
	// Multiplication table
	CpuMultiplicationPair

	// CpuBitshiftPair links shift instructions to the Bitshift table
	CpuBitshiftPair

	// CpuProgramPair links every fetch to the attested program ROM
	CpuProgramPair
)

// LookupPairCount is the number of standard lookup pairs
const LookupPairCount = 8

// String returns the name of the lookup pair
func (id LookupPairID) String() string {
	switch id {
	case CpuMemoryPair:
		return "CpuMemory"
	case CpuRangeCheckPair:
		return "CpuRangeCheck"
	case MemoryRangeCheckPair:
		return "MemoryRangeCheck"
	case BitwiseRangeCheckPair:
		return "BitwiseRangeCheck"
	case CpuBitwisePair:
		return "CpuBitwise"
	case CpuMultiplicationPair:
		return "CpuMultiplication"
	case CpuBitshiftPair:
		return "CpuBitshift"
	case CpuProgramPair:
		return "CpuProgram"
	default:
		return "Unknown"
	}
}

// LinkageKind distinguishes the two cross-table argument flavors
type LinkageKind int

const (
	// PermutationLink proves exact multiset equality in both directions
	PermutationLink LinkageKind = iota

	// LookupLink proves every looking tuple appears in the looked table,
	// with per-row multiplicities on the looked side
	LookupLink
)

// String returns the name of the linkage kind
func (k LinkageKind) String() string {
	switch k {
	case PermutationLink:
		return "Permutation"
	case LookupLink:
		return "Lookup"
	default:
		return "Unknown"
	}
}

// LookupPair describes one cross-table argument as column projections
// over the two tables' main columns. A filter index of -1 includes every
// row; each group in LookingTuples projects one tuple per filtered row.
type LookupPair struct {
	ID      LookupPairID
	Kind    LinkageKind
	Looking TableID
	Looked  TableID

	LookingFilter int
	LookingTuples [][]int
	LookedFilter  int
	LookedTuple   []int
}

// CreateStandardLookupPairs returns the eight standard pairs that tie
// the trace together
func CreateStandardLookupPairs() []LookupPair {
	return []LookupPair{
		{
			ID:            CpuMemoryPair,
			Kind:          PermutationLink,
			Looking:       CPUTable,
			Looked:        MemoryTable,
			LookingFilter: CPUColIsMemAccess,
			LookingTuples: [][]int{{CPUColClk, CPUColMemAddr, CPUColMemValue, CPUColMemWidth, CPUColIsMemStore}},
			LookedFilter:  MemColIsExecuted,
			LookedTuple:   []int{MemColClk, MemColAddr, MemColValue, MemColWidth, MemColIsWrite},
		},
		{
			ID:            CpuRangeCheckPair,
			Kind:          LookupLink,
			Looking:       CPUTable,
			Looked:        RangeCheckTable,
			LookingFilter: CPUColIsRunning,
			LookingTuples: [][]int{{CPUColDstLimb0}, {CPUColDstLimb1}, {CPUColDstLimb2}, {CPUColDstLimb3}},
			LookedFilter:  -1,
			LookedTuple:   []int{RangeCheckColValue},
		},
		{
			ID:            MemoryRangeCheckPair,
			Kind:          LookupLink,
			Looking:       MemoryTable,
			Looked:        RangeCheckTable,
			LookingFilter: MemColIsExecuted,
			LookingTuples: [][]int{
				{MemColDiffAddrLimb0}, {MemColDiffAddrLimb1}, {MemColDiffAddrLimb2}, {MemColDiffAddrLimb3},
				{MemColDiffClkLimb0}, {MemColDiffClkLimb1}, {MemColDiffClkLimb2}, {MemColDiffClkLimb3},
			},
			LookedFilter: -1,
			LookedTuple:  []int{RangeCheckColValue},
		},
		{
			ID:            BitwiseRangeCheckPair,
			Kind:          LookupLink,
			Looking:       BitwiseTable,
			Looked:        RangeCheckTable,
			LookingFilter: BitwiseColIsExecuted,
			LookingTuples: [][]int{
				{BitwiseColALimb0}, {BitwiseColALimb1}, {BitwiseColALimb2}, {BitwiseColALimb3},
				{BitwiseColBLimb0}, {BitwiseColBLimb1}, {BitwiseColBLimb2}, {BitwiseColBLimb3},
				{BitwiseColOutLimb0}, {BitwiseColOutLimb1}, {BitwiseColOutLimb2}, {BitwiseColOutLimb3},
			},
			LookedFilter: -1,
			LookedTuple:  []int{RangeCheckColValue},
		},
		{
			ID:            CpuBitwisePair,
			Kind:          LookupLink,
			Looking:       CPUTable,
			Looked:        BitwiseTable,
			LookingFilter: CPUColIsBitwise,
			LookingTuples: [][]int{{CPUColBitwiseOp, CPUColOp1Value, CPUColOp2Value, CPUColDstValue}},
			LookedFilter:  BitwiseColIsExecuted,
			LookedTuple:   []int{BitwiseColOp, BitwiseColA, BitwiseColB, BitwiseColOut},
		},
		{
			ID:            CpuMultiplicationPair,
			Kind:          LookupLink,
			Looking:       CPUTable,
			Looked:        MultiplicationTable,
			LookingFilter: CPUColIsMulDiv,
			LookingTuples: [][]int{{CPUColMulDivOp, CPUColOp1Value, CPUColOp2Value, CPUColDstValue}},
			LookedFilter:  MulColIsExecuted,
			LookedTuple:   []int{MulColOp, MulColOp1, MulColOp2, MulColResult},
		},
		{
			ID:            CpuBitshiftPair,
			Kind:          LookupLink,
			Looking:       CPUTable,
			Looked:        BitshiftTable,
			LookingFilter: CPUColIsShift,
			LookingTuples: [][]int{{CPUColShamt, CPUColShiftMultiplier}},
			LookedFilter:  -1,
			LookedTuple:   []int{BitshiftColAmount, BitshiftColMultiplier},
		},
		{
			ID:            CpuProgramPair,
			Kind:          LookupLink,
			Looking:       CPUTable,
			Looked:        ProgramTable,
			LookingFilter: CPUColIsRunning,
			LookingTuples: [][]int{{CPUColPC, CPUColWord}},
			LookedFilter:  -1,
			LookedTuple:   []int{ProgramColAddress, ProgramColWord},
		},
	}
}

// LookupArtifact is the challenge-free output of one lookup pair: the
// per-row multiplicities of the looked table, aligned to its padded
// height
type LookupArtifact struct {
	Pair                 LookupPairID
	Kind                 LinkageKind
	Looking              TableID
	Looked               TableID
	LookedMultiplicities []uint64
}

// tupleCount tracks one distinct looking-side tuple during a pair build
type tupleCount struct {
	tuple    []uint64
	firstRow int
	count    uint64
}

// BuildLookupArtifacts builds all standard pairs over the finalized
// trace, in parallel, and fills the looked tables' multiplicity columns.
// Any looking tuple absent from its looked table aborts the whole build
// with a LookupMismatchError. Repeated calls return the first result.
func (aet *AlgebraicExecutionTrace) BuildLookupArtifacts() ([]LookupArtifact, error) {
	if !aet.finalized {
		return nil, fmt.Errorf("trace is not finalized")
	}
	if aet.lookupArtifacts != nil {
		return aet.lookupArtifacts, nil
	}

	pairs := CreateStandardLookupPairs()
	artifacts := make([]LookupArtifact, len(pairs))
	buildErrs := make([]error, len(pairs))

	var wg sync.WaitGroup
	for i, pair := range pairs {
		wg.Add(1)
		go func(i int, pair LookupPair) {
			defer wg.Done()
			artifacts[i], buildErrs[i] = aet.buildPair(pair)
		}(i, pair)
	}
	wg.Wait()

	for _, err := range buildErrs {
		if err != nil {
			return nil, err
		}
	}

	for i, pair := range pairs {
		table, err := aet.GetTable(pair.Looked)
		if err != nil {
			return nil, err
		}
		mt, ok := table.(multiplicityTable)
		if !ok {
			continue
		}
		for row, count := range artifacts[i].LookedMultiplicities {
			if count == 0 {
				continue
			}
			if err := mt.AddMultiplicity(row, count); err != nil {
				return nil, fmt.Errorf("failed to record %s multiplicities: %w", pair.ID, err)
			}
		}
	}

	aet.lookupArtifacts = artifacts
	return artifacts, nil
}

// buildPair counts the filtered looking tuples, locates each on the
// looked side, and produces the looked-side multiplicities. Lookup pairs
// assign a tuple's whole count to its first looked occurrence;
// permutation pairs consume counts one-for-one in both directions.
func (aet *AlgebraicExecutionTrace) buildPair(pair LookupPair) (LookupArtifact, error) {
	artifact := LookupArtifact{Pair: pair.ID, Kind: pair.Kind, Looking: pair.Looking, Looked: pair.Looked}

	lookingTable, err := aet.GetTable(pair.Looking)
	if err != nil {
		return artifact, err
	}
	lookedTable, err := aet.GetTable(pair.Looked)
	if err != nil {
		return artifact, err
	}

	lookingCols := lookingTable.GetMainColumns()
	lookedCols := lookedTable.GetMainColumns()

	counts := make(map[string]*tupleCount)
	for row := 0; row < lookingTable.GetPaddedHeight(); row++ {
		if pair.LookingFilter >= 0 && lookingCols[pair.LookingFilter][row].IsZero() {
			continue
		}
		for _, group := range pair.LookingTuples {
			tuple := projectTuple(lookingCols, group, row)
			key := tupleKey(tuple)
			if c, ok := counts[key]; ok {
				c.count++
			} else {
				counts[key] = &tupleCount{tuple: tuple, firstRow: row, count: 1}
			}
		}
	}

	multiplicities := make([]uint64, lookedTable.GetPaddedHeight())
	for row := 0; row < lookedTable.GetPaddedHeight(); row++ {
		if pair.LookedFilter >= 0 && lookedCols[pair.LookedFilter][row].IsZero() {
			continue
		}
		tuple := projectTuple(lookedCols, pair.LookedTuple, row)
		c, ok := counts[tupleKey(tuple)]

		switch pair.Kind {
		case PermutationLink:
			if !ok || c.count == 0 {
				return artifact, &LookupMismatchError{Pair: pair.ID, Table: pair.Looked, Row: row, Tuple: tuple}
			}
			c.count--
			multiplicities[row] = 1
		case LookupLink:
			if ok && c.count > 0 {
				multiplicities[row] = c.count
				c.count = 0
			}
		}
	}

	if unmatched := firstUnmatched(counts); unmatched != nil {
		return artifact, &LookupMismatchError{
			Pair:  pair.ID,
			Table: pair.Looking,
			Row:   unmatched.firstRow,
			Tuple: unmatched.tuple,
		}
	}

	artifact.LookedMultiplicities = multiplicities
	return artifact, nil
}

// firstUnmatched returns the unconsumed looking tuple with the lowest
// first row, or nil when every tuple was matched
func firstUnmatched(counts map[string]*tupleCount) *tupleCount {
	var unmatched *tupleCount
	for _, c := range counts {
		if c.count == 0 {
			continue
		}
		if unmatched == nil || c.firstRow < unmatched.firstRow {
			unmatched = c
		}
	}
	return unmatched
}

// projectTuple reads one tuple of column values at a row
func projectTuple(cols [][]field.Element, indices []int, row int) []uint64 {
	tuple := make([]uint64, len(indices))
	for i, col := range indices {
		tuple[i] = cols[col][row].Value()
	}
	return tuple
}

// tupleKey encodes a tuple as a deterministic map key
func tupleKey(tuple []uint64) string {
	var b strings.Builder
	for i, v := range tuple {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(v, 10))
	}
	return b.String()
}
