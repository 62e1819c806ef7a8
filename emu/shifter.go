// Package emu provides functional ARMv4T emulation.
package emu

import (
	"math/bits"

	"github.com/ouharetaso/armv4t/insts"
)

func bitSet(value uint32, n uint) bool {
	return (value>>n)&1 == 1
}

// Immediate expands a rotated 8-bit immediate. The carry is unchanged for a
// zero rotation and bit 31 of the result otherwise.
func Immediate(imm8, rotate uint8, carry bool) (uint32, bool) {
	if rotate == 0 {
		return uint32(imm8), carry
	}
	value := bits.RotateLeft32(uint32(imm8), -2*int(rotate&0xF))
	return value, bitSet(value, 31)
}

// ShiftByImmediate applies a shift whose amount is encoded in the
// instruction. A zero amount is special: LSL #0 passes the value through,
// LSR #0 and ASR #0 mean a shift by 32, and ROR #0 is RRX.
func ShiftByImmediate(value uint32, t insts.ShiftType, amount uint8, carry bool) (uint32, bool) {
	amount &= 0x1F

	if amount == 0 {
		switch t {
		case insts.ShiftLSL:
			return value, carry
		case insts.ShiftLSR:
			return 0, bitSet(value, 31)
		case insts.ShiftASR:
			return uint32(int32(value) >> 31), bitSet(value, 31)
		default:
			rrx := value >> 1
			if carry {
				rrx |= 1 << 31
			}
			return rrx, bitSet(value, 0)
		}
	}

	return shift(value, t, uint(amount))
}

// ShiftByRegister applies a shift whose amount comes from the bottom byte of
// a register. A zero amount passes the value and carry through for every
// type. Amounts of 32 and above saturate.
func ShiftByRegister(value uint32, t insts.ShiftType, amount uint8, carry bool) (uint32, bool) {
	if amount == 0 {
		return value, carry
	}

	switch t {
	case insts.ShiftLSL:
		switch {
		case amount < 32:
			return shift(value, t, uint(amount))
		case amount == 32:
			return 0, bitSet(value, 0)
		default:
			return 0, false
		}
	case insts.ShiftLSR:
		switch {
		case amount < 32:
			return shift(value, t, uint(amount))
		case amount == 32:
			return 0, bitSet(value, 31)
		default:
			return 0, false
		}
	case insts.ShiftASR:
		if amount < 32 {
			return shift(value, t, uint(amount))
		}
		return uint32(int32(value) >> 31), bitSet(value, 31)
	default:
		rot := amount & 0x1F
		if rot == 0 {
			return value, bitSet(value, 31)
		}
		return shift(value, t, uint(rot))
	}
}

// shift handles amounts 1-31.
func shift(value uint32, t insts.ShiftType, amount uint) (uint32, bool) {
	switch t {
	case insts.ShiftLSL:
		return value << amount, bitSet(value, 32-amount)
	case insts.ShiftLSR:
		return value >> amount, bitSet(value, amount-1)
	case insts.ShiftASR:
		return uint32(int32(value) >> amount), bitSet(value, amount-1)
	default:
		return bits.RotateLeft32(value, -int(amount)), bitSet(value, amount-1)
	}
}

// Shifter binds the barrel shifter to the register file and CPSR carry.
type Shifter struct {
	regFile *RegFile
}

// NewShifter creates a Shifter reading from the given register file.
func NewShifter(regFile *RegFile) *Shifter {
	return &Shifter{regFile: regFile}
}

// Operand2 computes the second operand of a data-processing instruction and
// the shifter carry-out.
func (s *Shifter) Operand2(inst *insts.DataProcess) (uint32, bool) {
	carry := s.regFile.CPSR().C

	if inst.Immediate {
		return Immediate(inst.Imm8, inst.Rotate, carry)
	}

	rm := s.regFile.Read(inst.Rm)
	if inst.ShiftByRegister {
		amount := uint8(s.regFile.Read(inst.Rs))
		return ShiftByRegister(rm, inst.ShiftType, amount, carry)
	}
	return ShiftByImmediate(rm, inst.ShiftType, inst.ShiftAmount, carry)
}

// Offset computes the unsigned offset of a single data transfer. The
// direction is applied by the caller.
func (s *Shifter) Offset(inst *insts.SingleDataTransfer) uint32 {
	if !inst.RegisterOffset {
		return uint32(inst.Offset)
	}
	rm := s.regFile.Read(inst.Rm)
	value, _ := ShiftByImmediate(rm, inst.ShiftType, inst.ShiftAmount, s.regFile.CPSR().C)
	return value
}
