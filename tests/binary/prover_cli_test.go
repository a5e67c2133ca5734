package binary_test

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vybium/vybium-riscv-vm/internal/vybium-riscv-vm/vm"
)

// traceOutput mirrors the JSON document the trace subcommand emits
type traceOutput struct {
	PaddedHeight  int            `json:"padded_height"`
	CycleCount    uint64         `json:"cycle_count"`
	ProgramDigest string         `json:"program_digest"`
	Commitment    string         `json:"commitment"`
	Tables        []tableOutput  `json:"tables"`
	Lookups       []lookupOutput `json:"lookups"`
}

type tableOutput struct {
	ID               int        `json:"id"`
	Name             string     `json:"name"`
	Height           int        `json:"height"`
	PaddedHeight     int        `json:"padded_height"`
	MainColumns      [][]uint64 `json:"main_columns"`
	AuxiliaryColumns [][]uint64 `json:"auxiliary_columns"`
}

type lookupOutput struct {
	Name                 string   `json:"name"`
	Kind                 string   `json:"kind"`
	LookingTable         string   `json:"looking_table"`
	LookedTable          string   `json:"looked_table"`
	LookedMultiplicities []uint64 `json:"looked_multiplicities"`
}

func TestProverRunCommand(t *testing.T) {
	proverPath, err := buildProver(t)
	if err != nil {
		t.Skipf("Skipping test: Failed to build vybium-riscv-prover: %v", err)
	}

	testCases := []struct {
		Name             string
		Words            []uint32
		Args             []string
		ExpectedExitCode int
		WantStdout       []string
		WantStderr       []string
	}{
		{
			Name: "Add And Halt",
			Words: encodeWords(t,
				vm.Instruction{Op: vm.ADDI, Rd: 1, Imm: 5},
				vm.Instruction{Op: vm.ADDI, Rd: 2, Imm: 7},
				vm.Instruction{Op: vm.ADD, Rd: 3, Rs1: 1, Rs2: 2},
				vm.Instruction{Op: vm.ECALL},
			),
			ExpectedExitCode: 0,
			WantStdout: []string{
				"Execution completed in 4 cycles",
				"Padded trace height: 256",
				"x3  = 0x0000000c (12)",
			},
		},
		{
			Name:             "Illegal Instruction",
			Words:            []uint32{0xFFFFFFFF},
			ExpectedExitCode: 1,
			WantStderr: []string{
				"vybium-riscv-vm: ERROR:",
				"illegal instruction",
			},
		},
		{
			Name:             "Cycle Limit",
			Words:            []uint32{vm.MustEncode(vm.Instruction{Op: vm.JAL})},
			Args:             []string{"--max-cycles", "64"},
			ExpectedExitCode: 1,
			WantStderr:       []string{"Execution failed"},
		},
		{
			Name:             "Misaligned Entry",
			Words:            []uint32{vm.MustEncode(vm.Instruction{Op: vm.ECALL})},
			Args:             []string{"--entry", "2"},
			ExpectedExitCode: 1,
			WantStderr:       []string{"invalid program"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			programPath := writeProgramFile(t, tc.Words)
			args := append([]string{"run", programPath, "--format", "bin"}, tc.Args...)

			stdout, stderr, exitCode := runProver(proverPath, args...)
			t.Logf("exit code: %d", exitCode)

			if exitCode != tc.ExpectedExitCode {
				t.Errorf("Expected exit code %d, got %d", tc.ExpectedExitCode, exitCode)
				t.Logf("stderr:\n%s", stderr)
			}
			for _, want := range tc.WantStdout {
				if !strings.Contains(stdout, want) {
					t.Errorf("stdout does not contain %q:\n%s", want, stdout)
				}
			}
			for _, want := range tc.WantStderr {
				if !strings.Contains(stderr, want) {
					t.Errorf("stderr does not contain %q:\n%s", want, stderr)
				}
			}

			t.Logf("✅ run command test passed: %s", tc.Name)
		})
	}
}

func TestProverTraceCommand(t *testing.T) {
	proverPath, err := buildProver(t)
	if err != nil {
		t.Skipf("Skipping test: Failed to build vybium-riscv-prover: %v", err)
	}

	// One instruction per delegation table so the artifact exercises
	// every table
	programPath := writeProgramFile(t, encodeWords(t,
		vm.Instruction{Op: vm.ADDI, Rd: 1, Imm: 0x55},
		vm.Instruction{Op: vm.SW, Rs2: 1, Imm: 0x40},
		vm.Instruction{Op: vm.LW, Rd: 2, Imm: 0x40},
		vm.Instruction{Op: vm.XOR, Rd: 3, Rs1: 1, Rs2: 2},
		vm.Instruction{Op: vm.SLLI, Rd: 4, Rs1: 1, Imm: 2},
		vm.Instruction{Op: vm.MUL, Rd: 5, Rs1: 1, Rs2: 2},
		vm.Instruction{Op: vm.ECALL},
	))

	t.Run("Stdout JSON", func(t *testing.T) {
		stdout, stderr, exitCode := runProver(proverPath, "trace", programPath, "--format", "bin")
		if exitCode != 0 {
			t.Fatalf("trace failed with exit code %d:\n%s", exitCode, stderr)
		}

		var output traceOutput
		if err := json.Unmarshal([]byte(stdout), &output); err != nil {
			t.Fatalf("Failed to parse trace output: %v", err)
		}

		if output.CycleCount != 7 {
			t.Errorf("cycle_count = %d, want 7", output.CycleCount)
		}
		if output.PaddedHeight != 256 {
			t.Errorf("padded_height = %d, want 256", output.PaddedHeight)
		}
		if len(output.Tables) != 7 {
			t.Fatalf("tables = %d, want 7", len(output.Tables))
		}
		if len(output.Lookups) != 8 {
			t.Fatalf("lookups = %d, want 8", len(output.Lookups))
		}
		if output.ProgramDigest == "" || output.Commitment == "" {
			t.Error("program_digest and commitment must be present")
		}

		heights := map[string]int{
			"CPU": 7, "Memory": 2, "Bitwise": 1, "Multiplication": 1,
			"RangeCheck": 256, "Bitshift": 32, "Program": 7,
		}
		for i, table := range output.Tables {
			if table.ID != i {
				t.Errorf("table %d has id %d", i, table.ID)
			}
			if want, ok := heights[table.Name]; !ok || table.Height != want {
				t.Errorf("table %s height = %d, want %d", table.Name, table.Height, want)
			}
			if table.PaddedHeight != output.PaddedHeight {
				t.Errorf("table %s padded_height = %d, want the common %d",
					table.Name, table.PaddedHeight, output.PaddedHeight)
			}
		}

		if output.Lookups[0].Name != "CpuMemory" || output.Lookups[0].Kind != "Permutation" {
			t.Errorf("lookup 0 = (%s, %s), want (CpuMemory, Permutation)",
				output.Lookups[0].Name, output.Lookups[0].Kind)
		}
		if output.Lookups[7].Name != "CpuProgram" || output.Lookups[7].Kind != "Lookup" {
			t.Errorf("lookup 7 = (%s, %s), want (CpuProgram, Lookup)",
				output.Lookups[7].Name, output.Lookups[7].Kind)
		}

		t.Log("✅ trace JSON has the expected shape")
	})

	t.Run("Out File", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "trace.json")
		stdout, stderr, exitCode := runProver(proverPath,
			"trace", programPath, "--format", "bin", "--out", outPath)
		if exitCode != 0 {
			t.Fatalf("trace failed with exit code %d:\n%s", exitCode, stderr)
		}
		if stdout != "" {
			t.Errorf("stdout should be empty when writing to a file, got %d bytes", len(stdout))
		}

		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", outPath, err)
		}
		var output traceOutput
		if err := json.Unmarshal(data, &output); err != nil {
			t.Fatalf("Failed to parse trace file: %v", err)
		}
		if output.CycleCount != 7 {
			t.Errorf("cycle_count = %d, want 7", output.CycleCount)
		}

		t.Log("✅ trace file written")
	})
}

func TestProverLoaderRejections(t *testing.T) {
	proverPath, err := buildProver(t)
	if err != nil {
		t.Skipf("Skipping test: Failed to build vybium-riscv-prover: %v", err)
	}

	halt := make([]byte, 4)
	binary.LittleEndian.PutUint32(halt, vm.MustEncode(vm.Instruction{Op: vm.ECALL}))

	testCases := []struct {
		Name       string
		Data       []byte
		Args       []string
		WantStderr string
	}{
		{
			Name:       "Empty File",
			Data:       []byte{},
			Args:       []string{"--format", "bin"},
			WantStderr: "program file is empty",
		},
		{
			Name:       "Truncated File",
			Data:       []byte{0x73, 0x00, 0x00},
			Args:       []string{"--format", "bin"},
			WantStderr: "not a whole number of words",
		},
		{
			Name:       "Unknown Format",
			Data:       halt,
			Args:       []string{"--format", "hex"},
			WantStderr: "unknown program format",
		},
		{
			Name:       "Not An ELF",
			Data:       halt,
			Args:       []string{"--format", "elf"},
			WantStderr: "Failed to load program",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			programPath := filepath.Join(t.TempDir(), "program.bin")
			if err := os.WriteFile(programPath, tc.Data, 0o644); err != nil {
				t.Fatalf("Failed to write program file: %v", err)
			}

			args := append([]string{"run", programPath}, tc.Args...)
			_, stderr, exitCode := runProver(proverPath, args...)

			if exitCode != 1 {
				t.Errorf("Expected exit code 1, got %d", exitCode)
			}
			if !strings.Contains(stderr, tc.WantStderr) {
				t.Errorf("stderr does not contain %q:\n%s", tc.WantStderr, stderr)
			}

			t.Logf("✅ loader rejection test passed: %s", tc.Name)
		})
	}

	t.Run("Missing File", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing.bin")
		_, stderr, exitCode := runProver(proverPath, "run", missing, "--format", "bin")
		if exitCode != 1 {
			t.Errorf("Expected exit code 1, got %d", exitCode)
		}
		if !strings.Contains(stderr, "Failed to load program") {
			t.Errorf("stderr does not contain the load failure:\n%s", stderr)
		}
		t.Log("✅ loader rejection test passed: Missing File")
	})
}

func encodeWords(t *testing.T, insts ...vm.Instruction) []uint32 {
	t.Helper()
	words, err := vm.EncodeProgram(insts...)
	if err != nil {
		t.Fatalf("Failed to encode program: %v", err)
	}
	return words
}

func writeProgramFile(t *testing.T, words []uint32) string {
	t.Helper()
	data := make([]byte, 4*len(words))
	for i, word := range words {
		binary.LittleEndian.PutUint32(data[4*i:], word)
	}

	path := filepath.Join(t.TempDir(), "program.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write program file: %v", err)
	}
	return path
}

func buildProver(t *testing.T) (string, error) {
	t.Helper()

	projectRoot, err := findProjectRoot()
	if err != nil {
		return "", err
	}

	binaryPath := filepath.Join(t.TempDir(), "vybium-riscv-prover")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/vybium-riscv-prover")
	cmd.Dir = projectRoot

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("build failed: %v, output: %s", err, string(output))
	}

	return binaryPath, nil
}

func runProver(proverPath string, args ...string) (stdout string, stderr string, exitCode int) {
	cmd := exec.Command(proverPath, args...)

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()

	exitCode = 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("project root not found")
		}
		dir = parent
	}
}
