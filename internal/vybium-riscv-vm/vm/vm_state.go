package vm

import (
	"errors"
	"fmt"

	"github.com/vybium/vybium-riscv-vm/internal/vybium-riscv-vm/utils"
)

// Status is the machine lifecycle state
type Status int

const (
	// StatusReady means the machine is created but has not stepped yet
	StatusReady Status = iota

	// StatusRunning means the machine is between steps
	StatusRunning

	// StatusHalted means the machine retired an ECALL or EBREAK
	StatusHalted

	// StatusFaulted means a step failed; the trace is diagnostic only
	StatusFaulted
)

// String returns the name of the status
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusHalted:
		return "halted"
	case StatusFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// VMState is the architectural machine state plus the trace being built.
// Stepping is strictly single-threaded; each retired instruction mutates
// the state and appends its table rows atomically.
type VMState struct {
	// Registers is the register file; x0 stays zero
	Registers [32]uint32

	// PC is the program counter
	PC uint32

	// RAM is sparse byte-addressed data memory; unwritten addresses read zero
	RAM map[uint32]byte

	// Clk is the clock cycle of the next instruction to retire
	Clk uint64

	// Status is the lifecycle state
	Status Status

	// CycleCount is the number of retired instructions
	CycleCount uint64

	program  *Program
	config   *utils.Config
	aet      *AlgebraicExecutionTrace
	faultErr error
}

// NewVMState creates a machine in the Ready state from a program image.
// The program seeds the register file and RAM; x0 is forced to zero.
func NewVMState(program *Program, config *utils.Config) (*VMState, error) {
	if config == nil {
		config = utils.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := program.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}

	s := &VMState{
		Registers: program.Registers,
		PC:        program.Entry,
		RAM:       make(map[uint32]byte, len(program.Image)),
		Status:    StatusReady,
		program:   program,
		config:    config.Clone(),
		aet:       NewAlgebraicExecutionTrace(program, config.HashFunction),
	}
	s.Registers[0] = 0
	for addr, b := range program.Image {
		s.RAM[addr] = b
	}
	return s, nil
}

// GetAET returns the trace accumulated so far
func (s *VMState) GetAET() *AlgebraicExecutionTrace {
	return s.aet
}

// FaultCause returns the error that moved the machine to Faulted, or nil
func (s *VMState) FaultCause() error {
	return s.faultErr
}

// GetRegister reads a register; index 0 always reads zero
func (s *VMState) GetRegister(i uint32) uint32 {
	return s.Registers[i&31]
}

// ExecuteAndTrace runs the machine from Ready until it halts or faults
// and returns the accumulated trace. The trace is not finalized; a fault
// returns the error and leaves the partial trace available via GetAET
// for diagnostics only.
func (s *VMState) ExecuteAndTrace() (*AlgebraicExecutionTrace, error) {
	if s.Status != StatusReady {
		return nil, fmt.Errorf("machine status is %s, expected %s", s.Status, StatusReady)
	}

	s.Status = StatusRunning
	for s.Status == StatusRunning {
		if s.config.MaxCycles > 0 && s.CycleCount >= uint64(s.config.MaxCycles) {
			err := fmt.Errorf("cycle limit %d reached without halting", s.config.MaxCycles)
			s.fault(err)
			return nil, err
		}
		if err := s.Step(); err != nil {
			s.fault(err)
			return nil, err
		}
	}

	s.aet.CycleCount = s.CycleCount
	return s.aet, nil
}

// Step fetches, decodes, and executes exactly one instruction. The clock
// advances by one per retired instruction, starting at zero.
func (s *VMState) Step() error {
	word := s.fetchWord()
	inst, err := Decode(word)
	if err != nil {
		var illegal *IllegalInstructionError
		if errors.As(err, &illegal) {
			illegal.PC = s.PC
		}
		return err
	}

	if err := s.execute(inst, word); err != nil {
		return err
	}

	s.Clk++
	s.CycleCount++
	return nil
}

// fetchWord reads the instruction ROM at pc. A misaligned or unmapped pc
// reads word 0, which fails decode as an illegal instruction.
func (s *VMState) fetchWord() uint32 {
	if s.PC%4 != 0 {
		return 0
	}
	return s.program.Code[s.PC]
}

func (s *VMState) fault(err error) {
	s.Status = StatusFaulted
	s.faultErr = err
}

// setRegister writes a register; writes to x0 are discarded
func (s *VMState) setRegister(rd uint32, value uint32) {
	if rd != 0 {
		s.Registers[rd] = value
	}
}

// loadValue composes width little-endian bytes from RAM
func (s *VMState) loadValue(addr uint32, width uint32) uint32 {
	var v uint32
	for i := uint32(0); i < width; i++ {
		v |= uint32(s.RAM[addr+i]) << (8 * i)
	}
	return v
}

// storeValue writes width little-endian bytes to RAM
func (s *VMState) storeValue(addr uint32, width uint32, value uint32) {
	for i := uint32(0); i < width; i++ {
		s.RAM[addr+i] = byte(value >> (8 * i))
	}
}
