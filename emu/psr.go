// Package emu provides functional ARMv4T emulation.
package emu

// PSR bit positions.
const (
	psrN = 31
	psrZ = 30
	psrC = 29
	psrV = 28
	psrQ = 27
	psrI = 7
	psrF = 6
	psrT = 5

	psrReservedMask = 0x07FFFF00 // bits 26-8
	psrModeMask     = 0x1F
)

// PSR is a program status register: the CPSR or one of the SPSRs.
type PSR struct {
	N bool // negative
	Z bool // zero
	C bool // carry
	V bool // overflow
	Q bool // sticky saturation

	// Reserved holds bits 26-8 in place. They are preserved verbatim.
	Reserved uint32

	I bool // IRQ disable
	F bool // FIQ disable
	T bool // Thumb state

	Mode Mode
}

func setBit(word *uint32, pos uint, v bool) {
	if v {
		*word |= 1 << pos
	}
}

// Pack encodes the PSR into its 32-bit layout.
func (p PSR) Pack() uint32 {
	var word uint32
	setBit(&word, psrN, p.N)
	setBit(&word, psrZ, p.Z)
	setBit(&word, psrC, p.C)
	setBit(&word, psrV, p.V)
	setBit(&word, psrQ, p.Q)
	word |= p.Reserved & psrReservedMask
	setBit(&word, psrI, p.I)
	setBit(&word, psrF, p.F)
	setBit(&word, psrT, p.T)
	word |= uint32(p.Mode) & psrModeMask
	return word
}

// UnpackPSR decodes a 32-bit status word. The mode field is taken as is and
// may not name a valid mode.
func UnpackPSR(word uint32) PSR {
	return PSR{
		N:        word&(1<<psrN) != 0,
		Z:        word&(1<<psrZ) != 0,
		C:        word&(1<<psrC) != 0,
		V:        word&(1<<psrV) != 0,
		Q:        word&(1<<psrQ) != 0,
		Reserved: word & psrReservedMask,
		I:        word&(1<<psrI) != 0,
		F:        word&(1<<psrF) != 0,
		T:        word&(1<<psrT) != 0,
		Mode:     Mode(word & psrModeMask),
	}
}
