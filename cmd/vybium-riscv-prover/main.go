// vybium-riscv-prover executes RV32IM programs and emits the execution
// trace artifact consumed by the proof backend.
package main

import (
	"debug/elf"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	vybiumriscvvm "github.com/vybium/vybium-riscv-vm/pkg/vybium-riscv-vm"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "vybium-riscv-prover",
		Short: "RV32IM trace generator for the Vybium proof backend",
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	var (
		format        string
		entry         uint32
		maxLog2Height int
		maxCycles     int
		hashFunction  string
		outPath       string
	)

	defaults := vybiumriscvvm.DefaultVMConfig()

	buildConfig := func() *vybiumriscvvm.VMConfig {
		return &vybiumriscvvm.VMConfig{
			MaxLog2PaddedHeight: maxLog2Height,
			MaxCycles:           maxCycles,
			HashFunction:        hashFunction,
		}
	}

	var runCmd = &cobra.Command{
		Use:   "run <program>",
		Short: "Execute a program and print an execution summary",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			program, err := loadProgram(args[0], format, entry)
			if err != nil {
				fatal(fmt.Sprintf("Failed to load program: %v", err))
			}

			machine, err := vybiumriscvvm.NewVM(buildConfig())
			if err != nil {
				fatal(fmt.Sprintf("Failed to create VM: %v", err))
			}

			logStderr("Executing program...")
			trace, err := machine.Execute(program)
			if err != nil {
				fatal(fmt.Sprintf("Execution failed: %v", err))
			}

			fmt.Printf("Execution completed in %d cycles\n", trace.CycleCount)
			fmt.Printf("Padded trace height: %d\n", trace.Artifact.PaddedHeight)
			fmt.Printf("Program digest: %s\n", hex.EncodeToString(trace.Artifact.ProgramDigest))
			fmt.Printf("Trace commitment: %s\n", hex.EncodeToString(trace.Artifact.Commitment))

			fmt.Println("\nTables:")
			for _, table := range trace.Artifact.Tables {
				fmt.Printf("  %-14s height=%-8d padded=%-8d columns=%d\n",
					table.Name, table.Height, table.PaddedHeight,
					len(table.MainColumns)+len(table.AuxiliaryColumns))
			}

			fmt.Println("\nFinal registers (nonzero):")
			for i, value := range trace.Registers {
				if value != 0 {
					fmt.Printf("  x%-2d = 0x%08x (%d)\n", i, value, value)
				}
			}
		},
	}

	var traceCmd = &cobra.Command{
		Use:   "trace <program>",
		Short: "Execute a program and emit the trace artifact as JSON",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			program, err := loadProgram(args[0], format, entry)
			if err != nil {
				fatal(fmt.Sprintf("Failed to load program: %v", err))
			}

			machine, err := vybiumriscvvm.NewVM(buildConfig())
			if err != nil {
				fatal(fmt.Sprintf("Failed to create VM: %v", err))
			}

			logStderr("Executing program...")
			trace, err := machine.Execute(program)
			if err != nil {
				fatal(fmt.Sprintf("Execution failed: %v", err))
			}
			logStderr(fmt.Sprintf("Execution completed in %d cycles", trace.CycleCount))

			output, err := json.Marshal(buildTraceOutput(trace.Artifact))
			if err != nil {
				fatal(fmt.Sprintf("Failed to serialize trace: %v", err))
			}

			if outPath == "" {
				os.Stdout.Write(output)
				os.Stdout.Write([]byte("\n"))
				return
			}
			if err := os.WriteFile(outPath, output, 0o644); err != nil {
				fatal(fmt.Sprintf("Failed to write %s: %v", outPath, err))
			}
			logStderr(fmt.Sprintf("Trace artifact written to %s", outPath))
		},
	}

	for _, cmd := range []*cobra.Command{runCmd, traceCmd} {
		cmd.Flags().StringVar(&format, "format", "elf", "Program format (elf, bin)")
		cmd.Flags().Uint32Var(&entry, "entry", 0, "Entry address for bin programs")
		cmd.Flags().IntVar(&maxLog2Height, "max-log2-height", defaults.MaxLog2PaddedHeight, "Maximum log2 of the padded trace height")
		cmd.Flags().IntVar(&maxCycles, "max-cycles", defaults.MaxCycles, "Maximum execution cycles (0 = unlimited)")
		cmd.Flags().StringVar(&hashFunction, "hash", defaults.HashFunction, "Hash function for digests (sha256, sha3)")
	}
	traceCmd.Flags().StringVar(&outPath, "out", "", "Output file (default: stdout)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(traceCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadProgram(path, format string, entry uint32) (*vybiumriscvvm.Program, error) {
	switch format {
	case "elf":
		return loadELF(path)
	case "bin":
		return loadRawWords(path, entry)
	default:
		return nil, fmt.Errorf("unknown program format %q", format)
	}
}

// loadELF reads a statically linked RV32 little-endian executable. The
// executable segments must be contiguous and start at the entry point;
// non-executable segments seed the data memory image.
func loadELF(path string) (*vybiumriscvvm.Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("unsupported ELF class %s, need ELFCLASS32", f.Class)
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("unsupported ELF byte order %s, need little-endian", f.Data)
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("unsupported ELF machine %s, need RISC-V", f.Machine)
	}
	if f.Type != elf.ET_EXEC {
		return nil, fmt.Errorf("unsupported ELF type %s, need a statically linked executable", f.Type)
	}

	program := vybiumriscvvm.NewProgram(uint32(f.Entry), nil)

	var execSegments []*elf.Prog
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if prog.Vaddr+prog.Filesz > 1<<32 {
			return nil, fmt.Errorf("segment at 0x%x exceeds the 32-bit address space", prog.Vaddr)
		}
		if prog.Flags&elf.PF_X != 0 {
			execSegments = append(execSegments, prog)
			continue
		}

		data := make([]byte, prog.Filesz)
		if _, err := io.ReadFull(prog.Open(), data); err != nil {
			return nil, fmt.Errorf("failed to read segment at 0x%x: %w", prog.Vaddr, err)
		}
		base := uint32(prog.Vaddr)
		for i, b := range data {
			program.Image[base+uint32(i)] = b
		}
	}

	if len(execSegments) == 0 {
		return nil, fmt.Errorf("no executable segment found")
	}
	sort.Slice(execSegments, func(i, j int) bool {
		return execSegments[i].Vaddr < execSegments[j].Vaddr
	})
	if uint64(program.Entry) != execSegments[0].Vaddr {
		return nil, fmt.Errorf("entry point 0x%x does not start the executable segment at 0x%x",
			program.Entry, execSegments[0].Vaddr)
	}

	next := execSegments[0].Vaddr
	for _, seg := range execSegments {
		if seg.Vaddr != next {
			return nil, fmt.Errorf("executable segments are not contiguous at 0x%x", seg.Vaddr)
		}
		if seg.Filesz%4 != 0 {
			return nil, fmt.Errorf("executable segment at 0x%x is not a whole number of words", seg.Vaddr)
		}

		data := make([]byte, seg.Filesz)
		if _, err := io.ReadFull(seg.Open(), data); err != nil {
			return nil, fmt.Errorf("failed to read segment at 0x%x: %w", seg.Vaddr, err)
		}
		for i := 0; i+4 <= len(data); i += 4 {
			program.Code = append(program.Code, binary.LittleEndian.Uint32(data[i:i+4]))
		}
		next += seg.Filesz
	}

	return program, nil
}

// loadRawWords reads a flat file of little-endian instruction words laid
// out consecutively from the given entry address.
func loadRawWords(path string, entry uint32) (*vybiumriscvvm.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("program file is empty")
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("program file length %d is not a whole number of words", len(data))
	}

	program := vybiumriscvvm.NewProgram(entry, make([]uint32, 0, len(data)/4))
	for i := 0; i < len(data); i += 4 {
		program.Code = append(program.Code, binary.LittleEndian.Uint32(data[i:i+4]))
	}
	return program, nil
}

// Output format for the trace artifact. Field elements are emitted as
// canonical uint64 values.
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
	AuxiliaryColumns [][]uint64 `json:"auxiliary_columns,omitempty"`
}

type lookupOutput struct {
	Name                 string   `json:"name"`
	Kind                 string   `json:"kind"`
	LookingTable         string   `json:"looking_table"`
	LookedTable          string   `json:"looked_table"`
	LookedMultiplicities []uint64 `json:"looked_multiplicities"`
}

func buildTraceOutput(artifact *vybiumriscvvm.TraceArtifact) traceOutput {
	output := traceOutput{
		PaddedHeight:  artifact.PaddedHeight,
		CycleCount:    artifact.CycleCount,
		ProgramDigest: hex.EncodeToString(artifact.ProgramDigest),
		Commitment:    hex.EncodeToString(artifact.Commitment),
		Tables:        make([]tableOutput, 0, len(artifact.Tables)),
		Lookups:       make([]lookupOutput, 0, len(artifact.Lookups)),
	}

	for _, table := range artifact.Tables {
		output.Tables = append(output.Tables, tableOutput{
			ID:               table.ID,
			Name:             table.Name,
			Height:           table.Height,
			PaddedHeight:     table.PaddedHeight,
			MainColumns:      convertColumns(table.MainColumns),
			AuxiliaryColumns: convertColumns(table.AuxiliaryColumns),
		})
	}

	for _, lookup := range artifact.Lookups {
		output.Lookups = append(output.Lookups, lookupOutput{
			Name:                 lookup.Name,
			Kind:                 lookup.Kind,
			LookingTable:         lookup.LookingTable,
			LookedTable:          lookup.LookedTable,
			LookedMultiplicities: lookup.LookedMultiplicities,
		})
	}

	return output
}

func convertColumns(columns [][]vybiumriscvvm.FieldElement) [][]uint64 {
	if len(columns) == 0 {
		return nil
	}
	converted := make([][]uint64, len(columns))
	for i, column := range columns {
		values := make([]uint64, len(column))
		for j, cell := range column {
			values[j] = cell.Value()
		}
		converted[i] = values
	}
	return converted
}

func logStderr(msg string) {
	fmt.Fprintln(os.Stderr, "vybium-riscv-vm:", msg)
}

func fatal(msg string) {
	logStderr("ERROR: " + msg)
	os.Exit(1)
}
