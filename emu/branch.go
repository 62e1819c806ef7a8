// Package emu provides functional ARMv4T emulation.
package emu

import "github.com/ouharetaso/armv4t/insts"

// BranchUnit implements B and BL.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// Branch adds the signed offset to the PC. With the link bit set the
// address of the next instruction (PC - 4) is saved in r14 first.
func (b *BranchUnit) Branch(inst *insts.Branch) {
	pc := b.regFile.PC()
	if inst.Link {
		b.regFile.Write(14, pc-4)
	}
	b.regFile.SetPC(uint32(int32(pc) + inst.Offset))
}
