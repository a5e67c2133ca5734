// Package vybiumriscvvm provides an RV32IM virtual machine that produces
// columnar execution traces for an external STARK proving backend.
//
// The VM executes RISC-V RV32I programs with the M standard extension and
// records every retired instruction into a set of linked trace tables:
// CPU, Memory, Bitwise, Multiplication, RangeCheck, Bitshift, and Program.
// A cross-table lookup builder ties the tables together with
// challenge-independent multiplicity data, so a downstream prover can
// enforce multiset consistency between them.
//
// # Features
//
// - Complete RV32IM execution: base integer set plus multiply/divide
// - Struct-of-slices trace tables over the Goldilocks field
// - Memory consistency via an (address, clk) sorted Memory table
// - Fixed 8-bit range and 32-row shift lookup tables
// - Program attestation digest over the instruction ROM
// - Deterministic trace artifact with a commitment hash
//
// # Quick Start
//
// Executing a program and producing a trace artifact:
//
//	config := vybiumriscvvm.DefaultVMConfig()
//	machine, err := vybiumriscvvm.NewVM(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// ADDI x1, x0, 5; ADDI x2, x0, 7; ADD x3, x1, x2; ECALL
//	program := vybiumriscvvm.NewProgram(0, []uint32{
//		0x00500093,
//		0x00700113,
//		0x002081b3,
//		0x00000073,
//	})
//
//	trace, err := machine.Execute(program)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println("cycles:", trace.CycleCount)
//	fmt.Println("padded height:", trace.Artifact.PaddedHeight)
//
// # Architecture
//
// The repository uses a hybrid public/private layout:
//
// - pkg/vybium-riscv-vm/: Public API (this package)
// - internal/vybium-riscv-vm/: Private implementation (not importable)
//
// The public API provides stable interfaces for machine creation, program
// execution, and the trace artifact handed to the proof backend. STARK
// proof generation and verification are outside this repository; the
// trace artifact is its terminal output.
package vybiumriscvvm
