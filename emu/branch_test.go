package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ouharetaso/armv4t/bus"
	"github.com/ouharetaso/armv4t/emu"
	"github.com/ouharetaso/armv4t/insts"
)

var _ = Describe("Branch", func() {
	var (
		e       *emu.Emulator
		regFile *emu.RegFile
	)

	BeforeEach(func() {
		e = emu.NewEmulator(bus.NewMemory(0x1000))
		regFile = e.RegFile()
	})

	It("should add the offset to the PC", func() {
		regFile.SetPC(0x108) // branch at 0x100
		result, err := e.Execute(insts.Decode(encodeBranch(false, 0x20)))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Branched).To(BeTrue())
		Expect(regFile.PC()).To(Equal(uint32(0x128)))
	})

	It("should branch backwards", func() {
		regFile.SetPC(0x108)
		_, err := e.Execute(insts.Decode(encodeBranch(false, -0x10)))
		Expect(err).NotTo(HaveOccurred())
		Expect(regFile.PC()).To(Equal(uint32(0xF8)))
	})

	It("should link to the address after the branch", func() {
		regFile.SetPC(0x108)
		_, err := e.Execute(insts.Decode(encodeBranch(true, 0)))
		Expect(err).NotTo(HaveOccurred())
		Expect(regFile.Read(14)).To(Equal(uint32(0x104)))
		Expect(regFile.PC()).To(Equal(uint32(0x108)))
	})

	It("should link into the banked r14 of the active mode", func() {
		Expect(regFile.SetMode(emu.ModeIRQ)).To(Succeed())
		regFile.SetPC(0x108)
		_, err := e.Execute(insts.Decode(encodeBranch(true, 8)))
		Expect(err).NotTo(HaveOccurred())

		Expect(regFile.Read(14)).To(Equal(uint32(0x104)))
		Expect(regFile.ReadUser(14)).To(BeZero())
	})

	It("should not branch when the condition fails", func() {
		regFile.SetPC(0x108)
		result, err := e.Execute(insts.Decode(withCond(encodeBranch(true, 0x40), insts.CondEQ)))
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal(emu.ExecResult{}))
		Expect(regFile.PC()).To(Equal(uint32(0x108)))
		Expect(regFile.Read(14)).To(BeZero())
	})
})
