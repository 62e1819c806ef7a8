// Package emu provides functional ARMv4T emulation.
package emu

import "github.com/ouharetaso/armv4t/insts"

// addWithCarry computes a + b + carryIn in 33 bits. Subtraction a - b is
// addWithCarry(a, ^b, true), and with borrow addWithCarry(a, ^b, C).
func addWithCarry(a, b uint32, carryIn bool) (result uint32, carry, overflow bool) {
	var cin uint64
	if carryIn {
		cin = 1
	}
	wide := uint64(a) + uint64(b) + cin
	result = uint32(wide)
	carry = wide>>32 != 0
	// Overflow when both operands share a sign that the result does not.
	overflow = (^(a ^ b))&(a^result)&(1<<31) != 0
	return result, carry, overflow
}

// ALU implements the 16 ARM data-processing operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Compute returns the result of op with the flags it would produce. Logical
// operations take C from the shifter and leave V as it is.
func (a *ALU) Compute(op insts.Opcode, rn, op2 uint32, shifterCarry bool) (result uint32, c, v bool) {
	cpsr := a.regFile.CPSR()
	c, v = shifterCarry, cpsr.V

	switch op {
	case insts.OpAND, insts.OpTST:
		result = rn & op2
	case insts.OpEOR, insts.OpTEQ:
		result = rn ^ op2
	case insts.OpSUB, insts.OpCMP:
		result, c, v = addWithCarry(rn, ^op2, true)
	case insts.OpRSB:
		result, c, v = addWithCarry(op2, ^rn, true)
	case insts.OpADD, insts.OpCMN:
		result, c, v = addWithCarry(rn, op2, false)
	case insts.OpADC:
		result, c, v = addWithCarry(rn, op2, cpsr.C)
	case insts.OpSBC:
		result, c, v = addWithCarry(rn, ^op2, cpsr.C)
	case insts.OpRSC:
		result, c, v = addWithCarry(op2, ^rn, cpsr.C)
	case insts.OpORR:
		result = rn | op2
	case insts.OpMOV:
		result = op2
	case insts.OpBIC:
		result = rn &^ op2
	case insts.OpMVN:
		result = ^op2
	}
	return result, c, v
}

// DataProcess executes inst with the given second operand and reports
// whether it wrote the PC.
//
// A result written to r15 is word aligned and, when S is set, the CPSR is
// restored from the active mode's SPSR instead of taking the ALU flags.
// Test operations never write Rd. They always have S set, since the
// decoder rejects them otherwise.
func (a *ALU) DataProcess(inst *insts.DataProcess, op2 uint32, shifterCarry bool) bool {
	rn := a.regFile.Read(inst.Rn)
	result, c, v := a.Compute(inst.Opcode, rn, op2, shifterCarry)

	if inst.WritesResult() {
		if inst.Rd == PCIndex {
			a.regFile.SetPC(result &^ 3)
			if inst.SetFlags {
				a.regFile.RestoreCPSR()
			}
			return true
		}
		a.regFile.Write(inst.Rd, result)
	}

	if inst.SetFlags {
		a.regFile.SetFlags(bitSet(result, 31), result == 0, c, v)
	}
	return false
}
