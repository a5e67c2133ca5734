package vybiumriscvvm

import (
	"errors"
	"fmt"

	"github.com/vybium/vybium-riscv-vm/internal/vybium-riscv-vm/utils"
	"github.com/vybium/vybium-riscv-vm/internal/vybium-riscv-vm/vm"
)

// VM is the public interface for program execution and trace generation
type VM interface {
	// Execute runs a program to completion and returns the execution trace
	// together with the backend handoff artifact
	Execute(program *Program) (*ExecutionTrace, error)

	// GetState returns a snapshot of the machine state after execution
	GetState() *VMState
}

// VMState is a public snapshot of the machine state
type VMState struct {
	Registers  [32]uint32
	PC         uint32
	Clk        uint64
	CycleCount uint64
	Status     string
	Halted     bool
}

type vmImpl struct {
	config *VMConfig
	state  *vm.VMState
}

// NewVM creates a virtual machine with the given configuration
func NewVM(config *VMConfig) (VM, error) {
	if config == nil {
		return nil, &VMError{
			Code:    ErrInvalidConfig,
			Message: "config cannot be nil",
		}
	}

	if err := toInternalConfig(config).Validate(); err != nil {
		return nil, &VMError{
			Code:    ErrInvalidConfig,
			Message: "invalid configuration",
			Cause:   err,
		}
	}

	return &vmImpl{config: config}, nil
}

// DefaultVMConfig returns the default configuration
func DefaultVMConfig() *VMConfig {
	defaults := utils.DefaultConfig()
	return &VMConfig{
		MaxLog2PaddedHeight: defaults.MaxLog2PaddedHeight,
		MaxCycles:           defaults.MaxCycles,
		HashFunction:        defaults.HashFunction,
	}
}

func toInternalConfig(config *VMConfig) *utils.Config {
	return &utils.Config{
		MaxLog2PaddedHeight: config.MaxLog2PaddedHeight,
		MaxCycles:           config.MaxCycles,
		HashFunction:        config.HashFunction,
	}
}

func (p *Program) toInternal() *vm.Program {
	internal := vm.NewProgramFromWords(p.Entry, p.Code)
	for addr, b := range p.Image {
		internal.Image[addr] = b
	}
	internal.Registers = p.Registers
	return internal
}

// Execute implements VM
func (v *vmImpl) Execute(program *Program) (*ExecutionTrace, error) {
	if program == nil {
		return nil, &VMError{
			Code:    ErrInvalidProgram,
			Message: "program cannot be nil",
		}
	}

	internalProgram := program.toInternal()
	if err := internalProgram.Validate(); err != nil {
		return nil, &VMError{
			Code:    ErrInvalidProgram,
			Message: "invalid program",
			Cause:   err,
		}
	}

	cfg := toInternalConfig(v.config)
	state, err := vm.NewVMState(internalProgram, cfg)
	if err != nil {
		return nil, &VMError{
			Code:    ErrVMExecution,
			Message: "failed to initialize machine",
			Cause:   err,
		}
	}
	v.state = state

	aet, err := state.ExecuteAndTrace()
	if err != nil {
		return nil, wrapExecutionError(err)
	}

	if state.Status != vm.StatusHalted {
		return nil, &VMError{
			Code:    ErrNotHalted,
			Message: fmt.Sprintf("machine stopped in status %q without halting", state.Status),
		}
	}
	if err := aet.Finalize(cfg); err != nil {
		var tooLarge *vm.TraceTooLargeError
		if errors.As(err, &tooLarge) {
			return nil, &VMError{
				Code:    ErrTraceTooLarge,
				Message: "trace exceeds configured height bound",
				Cause:   err,
			}
		}
		return nil, &VMError{
			Code:    ErrVMExecution,
			Message: "failed to finalize trace",
			Cause:   err,
		}
	}

	lookups, err := aet.BuildLookupArtifacts()
	if err != nil {
		var mismatch *vm.LookupMismatchError
		if errors.As(err, &mismatch) {
			return nil, &VMError{
				Code:    ErrLookupMismatch,
				Message: "cross-table lookup is inconsistent",
				Cause:   err,
			}
		}
		return nil, &VMError{
			Code:    ErrVMExecution,
			Message: "failed to build lookup artifacts",
			Cause:   err,
		}
	}

	commitment, err := aet.ComputeCommitment(cfg.HashFunction)
	if err != nil {
		return nil, &VMError{
			Code:    ErrVMExecution,
			Message: "failed to compute trace commitment",
			Cause:   err,
		}
	}

	return &ExecutionTrace{
		Artifact:   buildTraceArtifact(aet, lookups, commitment),
		CycleCount: state.CycleCount,
		Registers:  state.Registers,
		Halted:     true,
	}, nil
}

func wrapExecutionError(err error) error {
	var illegal *vm.IllegalInstructionError
	if errors.As(err, &illegal) {
		return &VMError{
			Code:    ErrIllegalInstruction,
			Message: "program executed an illegal instruction",
			Cause:   err,
		}
	}

	var misaligned *vm.MisalignedAccessError
	if errors.As(err, &misaligned) {
		return &VMError{
			Code:    ErrMisalignedAccess,
			Message: "program performed a misaligned memory access",
			Cause:   err,
		}
	}

	return &VMError{
		Code:    ErrVMExecution,
		Message: "execution failed",
		Cause:   err,
	}
}

func buildTraceArtifact(aet *vm.AlgebraicExecutionTrace, lookups []vm.LookupArtifact, commitment []byte) *TraceArtifact {
	tables := aet.GetAllTables()
	artifact := &TraceArtifact{
		Tables:        make([]TableArtifact, 0, len(tables)),
		Lookups:       make([]LookupArtifact, 0, len(lookups)),
		PaddedHeight:  aet.PaddedHeight,
		CycleCount:    aet.CycleCount,
		ProgramDigest: aet.ProgramDigest,
		Commitment:    commitment,
	}

	for _, table := range tables {
		artifact.Tables = append(artifact.Tables, TableArtifact{
			ID:               int(table.GetID()),
			Name:             table.GetID().String(),
			Height:           table.GetHeight(),
			PaddedHeight:     table.GetPaddedHeight(),
			MainColumns:      table.GetMainColumns(),
			AuxiliaryColumns: table.GetAuxiliaryColumns(),
		})
	}

	for _, lookup := range lookups {
		artifact.Lookups = append(artifact.Lookups, LookupArtifact{
			Name:                 lookup.Pair.String(),
			Kind:                 lookup.Kind.String(),
			LookingTable:         lookup.Looking.String(),
			LookedTable:          lookup.Looked.String(),
			LookedMultiplicities: lookup.LookedMultiplicities,
		})
	}

	return artifact
}

// GetState implements VM
func (v *vmImpl) GetState() *VMState {
	if v.state == nil {
		return &VMState{Status: vm.StatusReady.String()}
	}

	return &VMState{
		Registers:  v.state.Registers,
		PC:         v.state.PC,
		Clk:        v.state.Clk,
		CycleCount: v.state.CycleCount,
		Status:     v.state.Status.String(),
		Halted:     v.state.Status == vm.StatusHalted,
	}
}
