// Package emu provides functional ARMv4T emulation.
package emu

import (
	"errors"
	"fmt"
)

// Mode is a processor mode, as encoded in CPSR bits 4-0.
type Mode uint8

// Processor modes.
const (
	ModeUser       Mode = 0x10
	ModeFIQ        Mode = 0x11
	ModeIRQ        Mode = 0x12
	ModeSupervisor Mode = 0x13
	ModeAbort      Mode = 0x17
	ModeUndefined  Mode = 0x1B
	ModeSystem     Mode = 0x1F
)

// ErrInvalidMode is returned when switching to an unrecognized mode.
var ErrInvalidMode = errors.New("invalid processor mode")

// bank identifies a register bank. User and System share bankUser.
type bank uint8

const (
	bankUser bank = iota
	bankFIQ
	bankIRQ
	bankSupervisor
	bankAbort
	bankUndefined
	numBanks
)

func (m Mode) bank() (bank, bool) {
	switch m {
	case ModeUser, ModeSystem:
		return bankUser, true
	case ModeFIQ:
		return bankFIQ, true
	case ModeIRQ:
		return bankIRQ, true
	case ModeSupervisor:
		return bankSupervisor, true
	case ModeAbort:
		return bankAbort, true
	case ModeUndefined:
		return bankUndefined, true
	default:
		return bankUser, false
	}
}

// Valid reports whether m is one of the seven ARMv4T modes.
func (m Mode) Valid() bool {
	_, ok := m.bank()
	return ok
}

// HasSPSR reports whether the mode owns a saved status register.
func (m Mode) HasSPSR() bool {
	b, ok := m.bank()
	return ok && b != bankUser
}

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "usr"
	case ModeFIQ:
		return "fiq"
	case ModeIRQ:
		return "irq"
	case ModeSupervisor:
		return "svc"
	case ModeAbort:
		return "abt"
	case ModeUndefined:
		return "und"
	case ModeSystem:
		return "sys"
	default:
		return fmt.Sprintf("mode(%#02x)", uint8(m))
	}
}

// NumPhysicalRegs is the number of word slots behind the 16 logical
// registers: 16 shared, 7 for FIQ (r8-r14) and 2 (r13-r14) for each of IRQ,
// Supervisor, Abort and Undefined.
const NumPhysicalRegs = 31

// PCIndex is the logical index of the program counter.
const PCIndex = 15

// bankTable maps (bank, logical register) to a physical slot. r15 is never
// banked and always resolves to slot 15.
var bankTable = buildBankTable()

func buildBankTable() [numBanks][16]uint8 {
	var table [numBanks][16]uint8
	for b := range table {
		for r := range table[b] {
			table[b][r] = uint8(r)
		}
	}

	slot := uint8(16)
	for r := 8; r <= 14; r++ {
		table[bankFIQ][r] = slot
		slot++
	}
	for _, b := range []bank{bankIRQ, bankSupervisor, bankAbort, bankUndefined} {
		table[b][13] = slot
		table[b][14] = slot + 1
		slot += 2
	}
	return table
}

// RegFile is the mode-banked ARMv4T register file with the CPSR and the five
// SPSRs. Use NewRegFile to get one in Supervisor mode.
type RegFile struct {
	regs [NumPhysicalRegs]uint32
	cpsr PSR
	spsr [numBanks - 1]uint32
}

// NewRegFile creates a zeroed register file in Supervisor mode.
func NewRegFile() *RegFile {
	r := &RegFile{}
	r.Reset()
	return r
}

// Reset zeroes every register and status register and enters Supervisor
// mode.
func (r *RegFile) Reset() {
	*r = RegFile{}
	r.cpsr.Mode = ModeSupervisor
}

func (r *RegFile) slot(b bank, reg uint8) uint8 {
	return bankTable[b][reg&0xF]
}

func (r *RegFile) activeBank() bank {
	b, _ := r.cpsr.Mode.bank()
	return b
}

// Read returns logical register reg in the active mode.
func (r *RegFile) Read(reg uint8) uint32 {
	return r.regs[r.slot(r.activeBank(), reg)]
}

// Write sets logical register reg in the active mode.
func (r *RegFile) Write(reg uint8, value uint32) {
	r.regs[r.slot(r.activeBank(), reg)] = value
}

// ReadUser returns logical register reg as seen from User mode, whatever
// the active mode is.
func (r *RegFile) ReadUser(reg uint8) uint32 {
	return r.regs[r.slot(bankUser, reg)]
}

// WriteUser sets logical register reg in the User bank.
func (r *RegFile) WriteUser(reg uint8, value uint32) {
	r.regs[r.slot(bankUser, reg)] = value
}

// ReadBanked returns logical register reg as seen from mode m.
func (r *RegFile) ReadBanked(m Mode, reg uint8) (uint32, error) {
	b, ok := m.bank()
	if !ok {
		return 0, fmt.Errorf("read %v r%d: %w", m, reg, ErrInvalidMode)
	}
	return r.regs[r.slot(b, reg)], nil
}

// WriteBanked sets logical register reg as seen from mode m.
func (r *RegFile) WriteBanked(m Mode, reg uint8, value uint32) error {
	b, ok := m.bank()
	if !ok {
		return fmt.Errorf("write %v r%d: %w", m, reg, ErrInvalidMode)
	}
	r.regs[r.slot(b, reg)] = value
	return nil
}

// Physical returns the contents of a physical slot, for state dumps.
func (r *RegFile) Physical(slot int) uint32 {
	return r.regs[slot]
}

// PC returns r15.
func (r *RegFile) PC() uint32 {
	return r.regs[PCIndex]
}

// SetPC sets r15.
func (r *RegFile) SetPC(value uint32) {
	r.regs[PCIndex] = value
}

// Mode returns the active mode from the CPSR.
func (r *RegFile) Mode() Mode {
	return r.cpsr.Mode
}

// SetMode switches the active mode. Banked registers become visible or
// hidden; nothing is copied.
func (r *RegFile) SetMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("set mode %v: %w", m, ErrInvalidMode)
	}
	r.cpsr.Mode = m
	return nil
}

// CPSR returns the current program status register.
func (r *RegFile) CPSR() PSR {
	return r.cpsr
}

// SetCPSR replaces the CPSR. The mode field must be valid.
func (r *RegFile) SetCPSR(p PSR) error {
	if !p.Mode.Valid() {
		return fmt.Errorf("set cpsr %#08x: %w", p.Pack(), ErrInvalidMode)
	}
	r.cpsr = p
	return nil
}

// SetFlags writes the N, Z, C and V condition flags.
func (r *RegFile) SetFlags(n, z, c, v bool) {
	r.cpsr.N, r.cpsr.Z, r.cpsr.C, r.cpsr.V = n, z, c, v
}

func (r *RegFile) spsrSlot() (int, bool) {
	b := r.activeBank()
	if b == bankUser {
		return 0, false
	}
	return int(b) - 1, true
}

// StoreSPSR copies the CPSR into the active mode's SPSR. It does nothing in
// User and System mode.
func (r *RegFile) StoreSPSR() {
	if i, ok := r.spsrSlot(); ok {
		r.spsr[i] = r.cpsr.Pack()
	}
}

// SPSR returns the active mode's SPSR. ok is false in User and System mode.
func (r *RegFile) SPSR() (value uint32, ok bool) {
	i, ok := r.spsrSlot()
	if !ok {
		return 0, false
	}
	return r.spsr[i], true
}

// SetSPSR writes the active mode's SPSR and reports whether it has one.
func (r *RegFile) SetSPSR(value uint32) bool {
	i, ok := r.spsrSlot()
	if ok {
		r.spsr[i] = value
	}
	return ok
}

// RestoreCPSR copies the active mode's SPSR back into the CPSR. The mode is
// only switched when the saved mode field is valid; the other fields are
// always restored. It reports false, changing nothing, when the active mode
// has no SPSR.
func (r *RegFile) RestoreCPSR() bool {
	saved, ok := r.SPSR()
	if !ok {
		return false
	}
	p := UnpackPSR(saved)
	if !p.Mode.Valid() {
		p.Mode = r.cpsr.Mode
	}
	r.cpsr = p
	return true
}
