package vybiumriscvvm

import "fmt"

// ErrorCode represents a vybium-riscv-vm error code
type ErrorCode int

const (
	// ErrUnknown represents an unknown error
	ErrUnknown ErrorCode = iota

	// ErrInvalidConfig represents an invalid configuration error
	ErrInvalidConfig

	// ErrInvalidProgram represents a malformed program image
	ErrInvalidProgram

	// ErrIllegalInstruction represents a word that does not decode
	ErrIllegalInstruction

	// ErrMisalignedAccess represents an unaligned load or store
	ErrMisalignedAccess

	// ErrTraceTooLarge represents a trace exceeding the height bound
	ErrTraceTooLarge

	// ErrLookupMismatch represents a cross-table consistency violation
	ErrLookupMismatch

	// ErrVMExecution represents any other execution failure
	ErrVMExecution

	// ErrNotHalted represents a trace handoff from a machine that did
	// not halt cleanly
	ErrNotHalted
)

// VMError represents a vybium-riscv-vm error
type VMError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns the error message
func (e *VMError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vybium-riscv-vm error [%d]: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("vybium-riscv-vm error [%d]: %s", e.Code, e.Message)
}

// Unwrap returns the cause of the error
func (e *VMError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error
func (e *VMError) Is(target error) bool {
	t, ok := target.(*VMError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
