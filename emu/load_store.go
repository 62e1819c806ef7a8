// Package emu provides functional ARMv4T emulation.
package emu

import (
	"github.com/go-logr/logr"

	"github.com/ouharetaso/armv4t/bus"
	"github.com/ouharetaso/armv4t/insts"
)

// LoadStoreUnit implements single and block data transfers over a Bus.
//
// All reads of an instruction are issued before its first register write, so
// an aborted load leaves the register file untouched.
type LoadStoreUnit struct {
	regFile *RegFile
	bus     bus.Bus
	shifter *Shifter
	policy  BusFaultPolicy
	logger  logr.Logger
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and bus.
func NewLoadStoreUnit(regFile *RegFile, b bus.Bus, policy BusFaultPolicy, logger logr.Logger) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		bus:     b,
		shifter: NewShifter(regFile),
		policy:  policy,
		logger:  logger,
	}
}

func (lsu *LoadStoreUnit) fault(addr uint32, dir bus.Direction, err error) error {
	if lsu.policy == BusFaultIgnore {
		lsu.logger.Error(err, "bus fault ignored", "addr", addr, "dir", dir.String())
		return nil
	}
	return &Fault{Category: FaultDataAbort, Addr: addr, Err: err}
}

func (lsu *LoadStoreUnit) read(addr uint32) (uint32, error) {
	var data uint32
	if _, err := lsu.bus.Access(addr, &data, bus.Read); err != nil {
		return 0, lsu.fault(addr, bus.Read, err)
	}
	return data, nil
}

func (lsu *LoadStoreUnit) write(addr, value uint32) error {
	data := value
	if _, err := lsu.bus.Access(addr, &data, bus.Write); err != nil {
		return lsu.fault(addr, bus.Write, err)
	}
	return nil
}

// readByte reads the word containing addr and selects its little-endian lane.
func (lsu *LoadStoreUnit) readByte(addr uint32) (uint32, error) {
	word, err := lsu.read(addr &^ 3)
	if err != nil {
		return 0, err
	}
	return (word >> (8 * (addr & 3))) & 0xFF, nil
}

// writeByte replaces one lane of the word containing addr.
func (lsu *LoadStoreUnit) writeByte(addr, value uint32) error {
	aligned := addr &^ 3
	word, err := lsu.read(aligned)
	if err != nil {
		return err
	}
	lane := 8 * (addr & 3)
	word = word&^(0xFF<<lane) | (value&0xFF)<<lane
	return lsu.write(aligned, word)
}

// storeValue reads a register for a store. A stored r15 is the instruction
// address + 12.
func (lsu *LoadStoreUnit) storeValue(reg uint8, user bool) uint32 {
	if reg == PCIndex {
		return lsu.regFile.PC() + 4
	}
	if user {
		return lsu.regFile.ReadUser(reg)
	}
	return lsu.regFile.Read(reg)
}

// writeBack updates the base register. r15 is never written back.
func (lsu *LoadStoreUnit) writeBack(rn uint8, value uint32) {
	if rn != PCIndex {
		lsu.regFile.Write(rn, value)
	}
}

// SingleDataTransfer executes LDR, STR, LDRB and STRB and reports whether
// it wrote the PC.
//
// Pre-indexed transfers use base±offset and write it back when W is set.
// Post-indexed transfers use the base and always write back.
func (lsu *LoadStoreUnit) SingleDataTransfer(inst *insts.SingleDataTransfer) (bool, error) {
	base := lsu.regFile.Read(inst.Rn)
	offset := lsu.shifter.Offset(inst)

	indexed := base + offset
	if !inst.Up {
		indexed = base - offset
	}

	addr := base
	if inst.PreIndex {
		addr = indexed
	}
	writeBack := !inst.PreIndex || inst.WriteBack

	if inst.Load {
		var value uint32
		var err error
		if inst.Byte {
			value, err = lsu.readByte(addr)
		} else {
			value, err = lsu.read(addr)
		}
		if err != nil {
			return false, err
		}

		if writeBack {
			lsu.writeBack(inst.Rn, indexed)
		}
		if inst.Rd == PCIndex {
			lsu.regFile.SetPC(value &^ 3)
			return true, nil
		}
		lsu.regFile.Write(inst.Rd, value)
		return false, nil
	}

	value := lsu.storeValue(inst.Rd, false)
	var err error
	if inst.Byte {
		err = lsu.writeByte(addr, value)
	} else {
		err = lsu.write(addr, value)
	}
	if err != nil {
		return false, err
	}

	if writeBack {
		lsu.writeBack(inst.Rn, indexed)
	}
	return false, nil
}

// blockAddresses returns the lowest transfer address and the written-back
// base for n registers. Registers always move in ascending order from the
// lowest address.
func blockAddresses(inst *insts.BlockDataTransfer, base uint32, n uint32) (start, final uint32) {
	size := 4 * n
	switch {
	case inst.Up && !inst.PreIndex: // IA
		return base, base + size
	case inst.Up && inst.PreIndex: // IB
		return base + 4, base + size
	case !inst.Up && !inst.PreIndex: // DA
		return base - size + 4, base - size
	default: // DB
		return base - size, base - size
	}
}

// BlockDataTransfer executes LDM and STM and reports whether it wrote the
// PC.
//
// With the S bit, a store transfers the User bank; a load including r15
// also restores the CPSR from the SPSR, and a load without r15 fills the
// User bank.
func (lsu *LoadStoreUnit) BlockDataTransfer(inst *insts.BlockDataTransfer) (bool, error) {
	regs := inst.Registers()
	base := lsu.regFile.Read(inst.Rn)
	start, final := blockAddresses(inst, base, uint32(len(regs)))
	loadsPC := inst.RegisterList&(1<<PCIndex) != 0

	if !inst.Load {
		for i, r := range regs {
			value := lsu.storeValue(r, inst.PSR)
			if err := lsu.write(start+4*uint32(i), value); err != nil {
				return false, err
			}
		}
		if inst.WriteBack {
			lsu.writeBack(inst.Rn, final)
		}
		return false, nil
	}

	values := make([]uint32, len(regs))
	for i := range regs {
		value, err := lsu.read(start + 4*uint32(i))
		if err != nil {
			return false, err
		}
		values[i] = value
	}

	if inst.WriteBack {
		lsu.writeBack(inst.Rn, final)
	}

	userBank := inst.PSR && !loadsPC
	branched := false
	for i, r := range regs {
		switch {
		case r == PCIndex:
			lsu.regFile.SetPC(values[i] &^ 3)
			branched = true
		case userBank:
			lsu.regFile.WriteUser(r, values[i])
		default:
			lsu.regFile.Write(r, values[i])
		}
	}

	if branched && inst.PSR {
		lsu.regFile.RestoreCPSR()
	}
	return branched, nil
}
