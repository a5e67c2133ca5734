package vm

// instructionEffect collects the state changes of one instruction so
// that nothing is committed before the instruction is known to succeed
type instructionEffect struct {
	NextPC    uint32
	WritesDst bool
	Memory    *MemoryAccess
}

// execute runs one decoded instruction: it computes the next state and
// the row contributions, then commits the rows followed by the
// architectural state. A fault returns before any commit.
func (s *VMState) execute(inst Instruction, word uint32) error {
	op1 := s.Registers[inst.Rs1]
	rs2Value := s.Registers[inst.Rs2]

	row := &CPURow{
		Clk:      s.Clk,
		PC:       s.PC,
		Word:     word,
		Op:       inst.Op,
		Rs1:      inst.Rs1,
		Rs2:      inst.Rs2,
		Rd:       inst.Rd,
		Op1Value: op1,
		ImmValue: inst.Imm,
	}
	effect := &instructionEffect{NextPC: s.PC + 4}

	var err error
	switch {
	case inst.Op == LUI || inst.Op == AUIPC:
		s.execUpperImmediate(inst, row, effect)
	case inst.Op.IsJump():
		s.execJump(inst, op1, row, effect)
	case inst.Op.IsBranch():
		s.execBranch(inst, op1, rs2Value, row, effect)
	case inst.Op.IsLoad():
		err = s.execLoad(inst, op1, row, effect)
	case inst.Op.IsStore():
		err = s.execStore(inst, op1, rs2Value, row, effect)
	case inst.Op.IsMulDiv():
		err = s.execMulDiv(inst, op1, rs2Value, row, effect)
	case inst.Op.IsHalt():
		s.execSystem(inst, row)
	default:
		s.execALU(inst, op1, rs2Value, row, effect)
	}
	if err != nil {
		return err
	}

	if err := s.commitRows(row, effect); err != nil {
		return err
	}

	if effect.WritesDst {
		s.setRegister(inst.Rd, row.DstValue)
	}
	if effect.Memory != nil && effect.Memory.IsWrite {
		s.storeValue(effect.Memory.Addr, effect.Memory.Width, effect.Memory.Value)
	}
	s.PC = effect.NextPC
	if row.IsHalt {
		s.Status = StatusHalted
	}
	return nil
}

// commitRows appends the instruction's rows to the trace tables
func (s *VMState) commitRows(row *CPURow, effect *instructionEffect) error {
	if err := s.aet.CPU.AddRow(row); err != nil {
		return err
	}
	if effect.Memory != nil {
		if err := s.aet.Memory.AddRow(effect.Memory); err != nil {
			return err
		}
	}
	if row.IsBitwise {
		if err := s.aet.Bitwise.AddRow(row.BitwiseOp, row.Op1Value, row.Op2Value, row.DstValue); err != nil {
			return err
		}
	}
	if row.IsMulDiv {
		if err := s.aet.Multiplication.AddRow(row.MulDivOp, row.Op1Value, row.Op2Value); err != nil {
			return err
		}
	}
	return nil
}

// execUpperImmediate handles LUI and AUIPC
func (s *VMState) execUpperImmediate(inst Instruction, row *CPURow, effect *instructionEffect) {
	row.Op2Value = inst.Imm
	if inst.Op == LUI {
		row.DstValue = inst.Imm
	} else {
		row.DstValue = s.PC + inst.Imm
	}
	effect.WritesDst = true
}

// execJump handles JAL and JALR. Both link pc+4 into rd; JALR clears
// bit 0 of the computed target.
func (s *VMState) execJump(inst Instruction, op1 uint32, row *CPURow, effect *instructionEffect) {
	row.Op2Value = inst.Imm
	row.DstValue = s.PC + 4
	effect.WritesDst = true

	if inst.Op == JAL {
		effect.NextPC = s.PC + inst.Imm
	} else {
		effect.NextPC = (op1 + inst.Imm) &^ 1
	}
}

// execBranch handles the six conditional branches
func (s *VMState) execBranch(inst Instruction, op1, op2 uint32, row *CPURow, effect *instructionEffect) {
	row.Op2Value = op2
	if branchTaken(inst.Op, op1, op2) {
		effect.NextPC = s.PC + inst.Imm
	}
}

// execLoad handles LB/LH/LW/LBU/LHU. The memory row records the raw
// little-endian composition; sign extension applies only to the value
// written back to rd.
func (s *VMState) execLoad(inst Instruction, op1 uint32, row *CPURow, effect *instructionEffect) error {
	addr := op1 + inst.Imm
	width := memoryWidth(inst.Op)
	if err := s.checkAlignment(addr, width, false); err != nil {
		return err
	}

	raw := s.loadValue(addr, width)
	row.Op2Value = inst.Imm
	row.DstValue = extendLoaded(inst.Op, raw)
	row.MemAddr = addr
	row.MemValue = raw
	row.MemWidth = width
	row.IsMemAccess = true

	effect.WritesDst = true
	effect.Memory = &MemoryAccess{
		Clk:   s.Clk,
		Addr:  addr,
		Width: width,
		Value: raw,
	}
	return nil
}

// execStore handles SB/SH/SW. The memory row records the stored value
// truncated to the access width.
func (s *VMState) execStore(inst Instruction, op1, rs2Value uint32, row *CPURow, effect *instructionEffect) error {
	addr := op1 + inst.Imm
	width := memoryWidth(inst.Op)
	if err := s.checkAlignment(addr, width, true); err != nil {
		return err
	}

	stored := truncateStored(width, rs2Value)
	row.Op2Value = rs2Value
	row.MemAddr = addr
	row.MemValue = stored
	row.MemWidth = width
	row.IsMemAccess = true
	row.IsMemStore = true

	effect.Memory = &MemoryAccess{
		Clk:     s.Clk,
		Addr:    addr,
		IsWrite: true,
		Width:   width,
		Value:   stored,
	}
	return nil
}

// execMulDiv handles the eight M-extension operations
func (s *VMState) execMulDiv(inst Instruction, op1, op2 uint32, row *CPURow, effect *instructionEffect) error {
	w, err := ComputeMulDivWitness(inst.Op.MulDivOp(), op1, op2)
	if err != nil {
		return err
	}

	row.Op2Value = op2
	row.DstValue = w.Result
	row.MulDivOp = inst.Op.MulDivOp()
	row.IsMulDiv = true
	effect.WritesDst = true
	return nil
}

// execSystem handles ECALL and EBREAK: both retire a real row and halt
func (s *VMState) execSystem(inst Instruction, row *CPURow) {
	row.IsHalt = true
}

// execALU handles the register-register and register-immediate ALU
// operations, including shifts and the bitwise class
func (s *VMState) execALU(inst Instruction, op1, rs2Value uint32, row *CPURow, effect *instructionEffect) {
	op2 := rs2Value
	if isImmediateALU(inst.Op) {
		op2 = inst.Imm
	}

	row.Op2Value = op2
	row.DstValue = aluCompute(inst.Op, op1, op2)
	effect.WritesDst = true

	if inst.Op.IsBitwise() {
		row.IsBitwise = true
		row.BitwiseOp = inst.Op.BitwiseOp()
	}
	if inst.Op.IsShift() {
		row.IsShift = true
		row.Shamt = op2 & 0x1f
		row.ShiftMultiplier = 1 << (op2 & 0x1f)
	}
}

// checkAlignment enforces natural alignment for halfword and word access
func (s *VMState) checkAlignment(addr uint32, width uint32, isWrite bool) error {
	if width > 1 && addr%width != 0 {
		return &MisalignedAccessError{PC: s.PC, Addr: addr, Width: width, IsWrite: isWrite}
	}
	return nil
}

// isImmediateALU reports whether the ALU operation takes its second
// operand from the immediate
func isImmediateALU(op Op) bool {
	switch op {
	case ADDI, SLTI, SLTIU, XORI, ORI, ANDI, SLLI, SRLI, SRAI:
		return true
	}
	return false
}

// aluCompute evaluates one ALU operation with 32-bit wrap-around
// arithmetic; shifts use only the low 5 bits of the second operand
func aluCompute(op Op, a, b uint32) uint32 {
	switch op {
	case ADD, ADDI:
		return a + b
	case SUB:
		return a - b
	case SLT, SLTI:
		if int32(a) < int32(b) {
			return 1
		}
		return 0
	case SLTU, SLTIU:
		if a < b {
			return 1
		}
		return 0
	case XOR, XORI:
		return a ^ b
	case OR, ORI:
		return a | b
	case AND, ANDI:
		return a & b
	case SLL, SLLI:
		return a << (b & 0x1f)
	case SRL, SRLI:
		return a >> (b & 0x1f)
	case SRA, SRAI:
		return uint32(int32(a) >> (b & 0x1f))
	}
	return 0
}

// branchTaken evaluates a branch condition
func branchTaken(op Op, a, b uint32) bool {
	switch op {
	case BEQ:
		return a == b
	case BNE:
		return a != b
	case BLT:
		return int32(a) < int32(b)
	case BGE:
		return int32(a) >= int32(b)
	case BLTU:
		return a < b
	case BGEU:
		return a >= b
	}
	return false
}

// memoryWidth returns the access width in bytes for a load or store
func memoryWidth(op Op) uint32 {
	switch op {
	case LB, LBU, SB:
		return 1
	case LH, LHU, SH:
		return 2
	default:
		return 4
	}
}

// extendLoaded applies the load's extension rule to the raw value
func extendLoaded(op Op, raw uint32) uint32 {
	switch op {
	case LB:
		return uint32(int32(raw<<24) >> 24)
	case LH:
		return uint32(int32(raw<<16) >> 16)
	default:
		return raw
	}
}

// truncateStored masks a stored value to the access width
func truncateStored(width uint32, value uint32) uint32 {
	switch width {
	case 1:
		return value & 0xff
	case 2:
		return value & 0xffff
	default:
		return value
	}
}
