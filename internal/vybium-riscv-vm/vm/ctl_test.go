package vm

import (
	"errors"
	"testing"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// exercisedTrace runs a program that touches every dynamic table and
// returns its finalized trace
func exercisedTrace(t *testing.T) (*AlgebraicExecutionTrace, uint64) {
	t.Helper()
	program := mustEncodeProgram(t,
		Instruction{Op: ADDI, Rd: 1, Imm: 0x55},
		Instruction{Op: SW, Rs1: 0, Rs2: 1, Imm: 0x80},
		Instruction{Op: LW, Rd: 2, Rs1: 0, Imm: 0x80},
		Instruction{Op: AND, Rd: 3, Rs1: 1, Rs2: 2},
		Instruction{Op: SLLI, Rd: 4, Rs1: 1, Imm: 4},
		Instruction{Op: MUL, Rd: 5, Rs1: 1, Rs2: 2},
		Instruction{Op: ECALL},
	)
	machine := runProgramForTest(t, program)
	aet := machine.GetAET()
	if err := aet.Finalize(nil); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	return aet, machine.CycleCount
}

// multiplicitySum adds up one artifact's looked-side counts
func multiplicitySum(artifact LookupArtifact) uint64 {
	var sum uint64
	for _, m := range artifact.LookedMultiplicities {
		sum += m
	}
	return sum
}

// TestCreateStandardLookupPairs tests the shape of the eight standard pairs
func TestCreateStandardLookupPairs(t *testing.T) {
	pairs := CreateStandardLookupPairs()
	if len(pairs) != LookupPairCount {
		t.Fatalf("pair count = %d, want %d", len(pairs), LookupPairCount)
	}

	tests := []struct {
		id      LookupPairID
		kind    LinkageKind
		looking TableID
		looked  TableID
		tuples  int
	}{
		{CpuMemoryPair, PermutationLink, CPUTable, MemoryTable, 1},
		{CpuRangeCheckPair, LookupLink, CPUTable, RangeCheckTable, 4},
		{MemoryRangeCheckPair, LookupLink, MemoryTable, RangeCheckTable, 8},
		{BitwiseRangeCheckPair, LookupLink, BitwiseTable, RangeCheckTable, 12},
		{CpuBitwisePair, LookupLink, CPUTable, BitwiseTable, 1},
		{CpuMultiplicationPair, LookupLink, CPUTable, MultiplicationTable, 1},
		{CpuBitshiftPair, LookupLink, CPUTable, BitshiftTable, 1},
		{CpuProgramPair, LookupLink, CPUTable, ProgramTable, 1},
	}
	for i, tt := range tests {
		pair := pairs[i]
		if pair.ID != tt.id {
			t.Errorf("pair %d ID = %s, want %s", i, pair.ID, tt.id)
		}
		if pair.Kind != tt.kind {
			t.Errorf("%s kind = %s, want %s", tt.id, pair.Kind, tt.kind)
		}
		if pair.Looking != tt.looking {
			t.Errorf("%s looking = %s, want %s", tt.id, pair.Looking, tt.looking)
		}
		if pair.Looked != tt.looked {
			t.Errorf("%s looked = %s, want %s", tt.id, pair.Looked, tt.looked)
		}
		if len(pair.LookingTuples) != tt.tuples {
			t.Errorf("%s tuple groups = %d, want %d", tt.id, len(pair.LookingTuples), tt.tuples)
		}
		for _, group := range pair.LookingTuples {
			if len(group) != len(pair.LookedTuple) {
				t.Errorf("%s group width %d does not match looked width %d",
					tt.id, len(group), len(pair.LookedTuple))
			}
		}
	}
}

// TestLookupNameRendering tests the pair and linkage name strings
func TestLookupNameRendering(t *testing.T) {
	names := map[LookupPairID]string{
		CpuMemoryPair:         "CpuMemory",
		CpuRangeCheckPair:     "CpuRangeCheck",
		MemoryRangeCheckPair:  "MemoryRangeCheck",
		BitwiseRangeCheckPair: "BitwiseRangeCheck",
		CpuBitwisePair:        "CpuBitwise",
		CpuMultiplicationPair: "CpuMultiplication",
		CpuBitshiftPair:       "CpuBitshift",
		CpuProgramPair:        "CpuProgram",
		LookupPairID(99):      "Unknown",
	}
	for id, want := range names {
		if got := id.String(); got != want {
			t.Errorf("LookupPairID(%d).String() = %q, want %q", id, got, want)
		}
	}

	if got := PermutationLink.String(); got != "Permutation" {
		t.Errorf("PermutationLink.String() = %q, want Permutation", got)
	}
	if got := LookupLink.String(); got != "Lookup" {
		t.Errorf("LookupLink.String() = %q, want Lookup", got)
	}
	if got := LinkageKind(99).String(); got != "Unknown" {
		t.Errorf("LinkageKind(99).String() = %q, want Unknown", got)
	}
}

// TestBuildLookupArtifacts tests the challenge-free lookup build over a
// trace that exercises every pair
func TestBuildLookupArtifacts(t *testing.T) {
	aet, cycles := exercisedTrace(t)

	artifacts, err := aet.BuildLookupArtifacts()
	if err != nil {
		t.Fatalf("BuildLookupArtifacts failed: %v", err)
	}
	if len(artifacts) != LookupPairCount {
		t.Fatalf("artifact count = %d, want %d", len(artifacts), LookupPairCount)
	}

	for i, artifact := range artifacts {
		if artifact.Pair != LookupPairID(i) {
			t.Errorf("artifact %d pair = %s, want %s", i, artifact.Pair, LookupPairID(i))
		}
		looked, err := aet.GetTable(artifact.Looked)
		if err != nil {
			t.Fatalf("GetTable failed: %v", err)
		}
		if len(artifact.LookedMultiplicities) != looked.GetPaddedHeight() {
			t.Errorf("%s multiplicities length = %d, want padded height %d",
				artifact.Pair, len(artifact.LookedMultiplicities), looked.GetPaddedHeight())
		}
	}

	t.Run("Sums", func(t *testing.T) {
		memHeight := uint64(aet.Memory.GetHeight())
		bitwiseHeight := uint64(aet.Bitwise.GetHeight())

		sums := []struct {
			pair LookupPairID
			want uint64
		}{
			{CpuMemoryPair, memHeight},
			{CpuRangeCheckPair, 4 * cycles},
			{MemoryRangeCheckPair, 8 * memHeight},
			{BitwiseRangeCheckPair, 12 * bitwiseHeight},
			{CpuBitwisePair, 1},
			{CpuMultiplicationPair, 1},
			{CpuBitshiftPair, 1},
			{CpuProgramPair, cycles},
		}
		for _, tt := range sums {
			if got := multiplicitySum(artifacts[tt.pair]); got != tt.want {
				t.Errorf("%s multiplicity sum = %d, want %d", tt.pair, got, tt.want)
			}
		}
	})

	t.Run("PermutationRows", func(t *testing.T) {
		// Each executed memory row is matched exactly once; padding rows
		// stay at zero
		memory := artifacts[CpuMemoryPair]
		for row := 0; row < aet.Memory.GetHeight(); row++ {
			if memory.LookedMultiplicities[row] != 1 {
				t.Errorf("memory row %d multiplicity = %d, want 1", row, memory.LookedMultiplicities[row])
			}
		}
		for row := aet.Memory.GetHeight(); row < len(memory.LookedMultiplicities); row++ {
			if memory.LookedMultiplicities[row] != 0 {
				t.Errorf("padding row %d multiplicity = %d, want 0", row, memory.LookedMultiplicities[row])
			}
		}
	})

	t.Run("ProgramRows", func(t *testing.T) {
		// A straight-line program executes each ROM word once
		program := artifacts[CpuProgramPair]
		for row := 0; row < aet.Program.GetHeight(); row++ {
			if program.LookedMultiplicities[row] != 1 {
				t.Errorf("program row %d multiplicity = %d, want 1", row, program.LookedMultiplicities[row])
			}
		}
	})

	t.Run("BitshiftRow", func(t *testing.T) {
		// The single shift by 4 lands on the row pairing (4, 16)
		bitshift := artifacts[CpuBitshiftPair]
		for row, m := range bitshift.LookedMultiplicities {
			want := uint64(0)
			if row == 4 {
				want = 1
			}
			if m != want {
				t.Errorf("bitshift row %d multiplicity = %d, want %d", row, m, want)
			}
		}
	})

	t.Run("ColumnsFilled", func(t *testing.T) {
		// The looked tables' auxiliary columns now carry the counts
		var rangeSum uint64
		for _, m := range aet.RangeCheck.GetAuxiliaryColumns()[0] {
			rangeSum += m.Value()
		}
		memHeight := uint64(aet.Memory.GetHeight())
		bitwiseHeight := uint64(aet.Bitwise.GetHeight())
		wantRange := 4*cycles + 8*memHeight + 12*bitwiseHeight
		if rangeSum != wantRange {
			t.Errorf("RangeCheck multiplicity column sum = %d, want %d", rangeSum, wantRange)
		}

		var programSum uint64
		for _, m := range aet.Program.GetAuxiliaryColumns()[0] {
			programSum += m.Value()
		}
		if programSum != cycles {
			t.Errorf("Program multiplicity column sum = %d, want %d", programSum, cycles)
		}
	})

	t.Run("Cached", func(t *testing.T) {
		again, err := aet.BuildLookupArtifacts()
		if err != nil {
			t.Fatalf("second BuildLookupArtifacts failed: %v", err)
		}
		if len(again) != LookupPairCount {
			t.Fatalf("cached artifact count = %d, want %d", len(again), LookupPairCount)
		}

		// The cached result must not double the recorded columns
		var programSum uint64
		for _, m := range aet.Program.GetAuxiliaryColumns()[0] {
			programSum += m.Value()
		}
		if programSum != cycles {
			t.Errorf("Program multiplicity column sum after re-build = %d, want %d", programSum, cycles)
		}
	})
}

// TestBuildLookupArtifactsRequiresFinalize tests the finalization guard
func TestBuildLookupArtifactsRequiresFinalize(t *testing.T) {
	program := mustEncodeProgram(t, Instruction{Op: ECALL})
	machine := runProgramForTest(t, program)

	if _, err := machine.GetAET().BuildLookupArtifacts(); err == nil {
		t.Error("BuildLookupArtifacts before Finalize should fail")
	}
}

// TestBuildLookupArtifactsMismatch tests that inconsistent tables are
// rejected with a LookupMismatchError
func TestBuildLookupArtifactsMismatch(t *testing.T) {
	t.Run("LookupSide", func(t *testing.T) {
		aet, _ := exercisedTrace(t)

		// Corrupt the Bitwise result so the CPU row no longer matches
		aet.Bitwise.out[0] = field.New(0xBAD)

		_, err := aet.BuildLookupArtifacts()
		if err == nil {
			t.Fatal("corrupted Bitwise table should fail the build")
		}
		var mismatch *LookupMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("error = %v, want LookupMismatchError", err)
		}
		if mismatch.Pair != CpuBitwisePair {
			t.Errorf("Pair = %s, want %s", mismatch.Pair, CpuBitwisePair)
		}
		if mismatch.Table != CPUTable {
			t.Errorf("Table = %s, want the unmatched looking side %s", mismatch.Table, CPUTable)
		}
	})

	t.Run("PermutationSide", func(t *testing.T) {
		aet, _ := exercisedTrace(t)

		// Corrupt a Memory value so multiset equality breaks
		aet.Memory.value[0] = field.New(0xBAD)

		_, err := aet.BuildLookupArtifacts()
		if err == nil {
			t.Fatal("corrupted Memory table should fail the build")
		}
		var mismatch *LookupMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("error = %v, want LookupMismatchError", err)
		}
		if mismatch.Pair != CpuMemoryPair {
			t.Errorf("Pair = %s, want %s", mismatch.Pair, CpuMemoryPair)
		}
		if mismatch.Table != MemoryTable {
			t.Errorf("Table = %s, want %s", mismatch.Table, MemoryTable)
		}
		if len(mismatch.Tuple) != 5 {
			t.Errorf("Tuple width = %d, want 5", len(mismatch.Tuple))
		}
	})
}

// TestCompressTuple tests the Horner tuple compression
func TestCompressTuple(t *testing.T) {
	alpha := field.New(10)

	tuple := []field.Element{field.New(2), field.New(3), field.New(4)}
	compressed, err := CompressTuple(tuple, alpha)
	if err != nil {
		t.Fatalf("CompressTuple failed: %v", err)
	}
	if !compressed.Equal(field.New(234)) {
		t.Errorf("CompressTuple = %v, want 234", compressed)
	}

	single, err := CompressTuple([]field.Element{field.New(7)}, alpha)
	if err != nil {
		t.Fatalf("CompressTuple failed: %v", err)
	}
	if !single.Equal(field.New(7)) {
		t.Errorf("single-element compression = %v, want 7", single)
	}

	if _, err := CompressTuple(nil, alpha); err == nil {
		t.Error("empty tuple should fail")
	}
}

// TestComputeRunningProduct tests the permutation accumulator
func TestComputeRunningProduct(t *testing.T) {
	challenge := field.New(10)
	symbols := []field.Element{field.New(3), field.New(4)}

	rp, err := ComputeRunningProduct(symbols, field.One, challenge)
	if err != nil {
		t.Fatalf("ComputeRunningProduct failed: %v", err)
	}
	if !rp[0].Equal(field.New(7)) {
		t.Errorf("RP[0] = %v, want 7", rp[0])
	}
	if !rp[1].Equal(field.New(42)) {
		t.Errorf("RP[1] = %v, want 42", rp[1])
	}

	if _, err := ComputeRunningProduct(nil, field.One, challenge); err == nil {
		t.Error("empty symbols should fail")
	}

	t.Run("PermutationInvariance", func(t *testing.T) {
		first := []field.Element{field.New(3), field.New(4), field.New(5)}
		second := []field.Element{field.New(5), field.New(3), field.New(4)}

		rpFirst, err := ComputeRunningProduct(first, field.One, challenge)
		if err != nil {
			t.Fatalf("ComputeRunningProduct failed: %v", err)
		}
		rpSecond, err := ComputeRunningProduct(second, field.One, challenge)
		if err != nil {
			t.Fatalf("ComputeRunningProduct failed: %v", err)
		}
		if !rpFirst[2].Equal(rpSecond[2]) {
			t.Errorf("terminal products differ across a permutation: %v vs %v", rpFirst[2], rpSecond[2])
		}
	})
}

// TestComputeRunningEvaluation tests the evaluation accumulator
func TestComputeRunningEvaluation(t *testing.T) {
	challenge := field.New(10)
	symbols := []field.Element{field.New(1), field.New(2), field.New(3)}

	re, err := ComputeRunningEvaluation(symbols, field.Zero, challenge)
	if err != nil {
		t.Fatalf("ComputeRunningEvaluation failed: %v", err)
	}
	want := []uint64{1, 12, 123}
	for i, w := range want {
		if !re[i].Equal(field.New(w)) {
			t.Errorf("RE[%d] = %v, want %d", i, re[i], w)
		}
	}

	if _, err := ComputeRunningEvaluation(nil, field.Zero, challenge); err == nil {
		t.Error("empty symbols should fail")
	}
}

// TestComputeLogDerivative tests the lookup accumulator and its
// challenge collision guard
func TestComputeLogDerivative(t *testing.T) {
	challenge := field.New(10)
	symbols := []field.Element{field.New(3), field.New(4)}

	ld, err := ComputeLogDerivative(symbols, nil, challenge)
	if err != nil {
		t.Fatalf("ComputeLogDerivative failed: %v", err)
	}
	inv7 := field.New(7).Inverse()
	inv6 := field.New(6).Inverse()
	if !ld[0].Equal(inv7) {
		t.Errorf("LD[0] = %v, want 1/7", ld[0])
	}
	if !ld[1].Equal(inv7.Add(inv6)) {
		t.Errorf("LD[1] = %v, want 1/7 + 1/6", ld[1])
	}

	t.Run("WithMultiplicities", func(t *testing.T) {
		multiplicities := []field.Element{field.New(2), field.Zero}
		ld, err := ComputeLogDerivative(symbols, multiplicities, challenge)
		if err != nil {
			t.Fatalf("ComputeLogDerivative failed: %v", err)
		}
		if !ld[1].Equal(field.New(2).Mul(inv7)) {
			t.Errorf("LD[1] = %v, want 2/7", ld[1])
		}
	})

	t.Run("LengthMismatch", func(t *testing.T) {
		if _, err := ComputeLogDerivative(symbols, []field.Element{field.One}, challenge); err == nil {
			t.Error("mismatched multiplicities length should fail")
		}
	})

	t.Run("ChallengeCollision", func(t *testing.T) {
		if _, err := ComputeLogDerivative(symbols, nil, field.New(4)); err == nil {
			t.Error("challenge equal to a symbol should fail")
		}
	})

	if _, err := ComputeLogDerivative(nil, nil, challenge); err == nil {
		t.Error("empty symbols should fail")
	}
}

// TestCheckLogDerivativeBalance tests the per-pair lookup identity
func TestCheckLogDerivativeBalance(t *testing.T) {
	challenge := field.New(11)
	looking := []field.Element{field.New(5), field.New(5), field.New(7)}
	looked := []field.Element{field.New(5), field.New(7), field.New(9)}
	multiplicities := []field.Element{field.New(2), field.New(1), field.Zero}

	balanced, err := CheckLogDerivativeBalance(looking, looked, multiplicities, challenge)
	if err != nil {
		t.Fatalf("CheckLogDerivativeBalance failed: %v", err)
	}
	if !balanced {
		t.Error("matching multiplicities should balance")
	}

	wrong := []field.Element{field.New(1), field.New(2), field.Zero}
	balanced, err = CheckLogDerivativeBalance(looking, looked, wrong, challenge)
	if err != nil {
		t.Fatalf("CheckLogDerivativeBalance failed: %v", err)
	}
	if balanced {
		t.Error("wrong multiplicities should not balance")
	}

	t.Run("EmptySides", func(t *testing.T) {
		balanced, err := CheckLogDerivativeBalance(nil, nil, nil, challenge)
		if err != nil {
			t.Fatalf("CheckLogDerivativeBalance failed: %v", err)
		}
		if !balanced {
			t.Error("two empty sides should balance")
		}
	})

	t.Run("CollisionPropagates", func(t *testing.T) {
		if _, err := CheckLogDerivativeBalance(looking, looked, multiplicities, field.New(5)); err == nil {
			t.Error("challenge collision should propagate as an error")
		}
	})
}
