package core_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ouharetaso/armv4t/bus"
	"github.com/ouharetaso/armv4t/emu"
	"github.com/ouharetaso/armv4t/timing/cache"
	"github.com/ouharetaso/armv4t/timing/core"
	"github.com/ouharetaso/armv4t/timing/pipeline"
)

var _ = Describe("Core", func() {
	var (
		memory *bus.Memory
		c      *core.Core
	)

	BeforeEach(func() {
		memory = bus.NewMemory(0x1000)
		c = core.NewCore(memory)
	})

	It("should start in Supervisor mode with zeroed state", func() {
		Expect(c.Pipeline).NotTo(BeNil())
		Expect(c.RegFile().Mode()).To(Equal(emu.ModeSupervisor))
		for r := uint8(0); r < 16; r++ {
			Expect(c.RegFile().Read(r)).To(BeZero())
		}
		Expect(c.Pipeline.Stage()).To(Equal(pipeline.StageEmpty))
		Expect(c.Halted()).To(BeFalse())
		Expect(c.Cache()).To(BeNil())
	})

	It("should execute the first instruction after two steps", func() {
		Expect(memory.LoadWords(0, movImm(0, 1))).To(Succeed())

		Expect(c.Step()).To(Succeed())
		Expect(c.Step()).To(Succeed())

		Expect(c.RegFile().Read(0)).To(Equal(uint32(1)))
		Expect(c.PC()).To(Equal(uint32(8)))
	})

	It("should restart fetching from SetPC", func() {
		Expect(memory.LoadWords(0x200, movImm(3, 9))).To(Succeed())
		Expect(c.Step()).To(Succeed())

		c.SetPC(0x200)
		Expect(c.Pipeline.Stage()).To(Equal(pipeline.StageEmpty))
		Expect(c.Run(2)).To(Equal(2))

		Expect(c.RegFile().Read(3)).To(Equal(uint32(9)))
	})

	Describe("Reset", func() {
		It("should save the PC in the Supervisor r14", func() {
			Expect(c.Run(3)).To(Equal(3))
			c.RegFile().Write(0, 0xDEAD)

			c.Reset()

			Expect(c.RegFile().Mode()).To(Equal(emu.ModeSupervisor))
			Expect(c.RegFile().Read(0)).To(BeZero())
			Expect(c.RegFile().Read(14)).To(Equal(uint32(12)))
			Expect(c.PC()).To(BeZero())
			Expect(c.Pipeline.Stage()).To(Equal(pipeline.StageEmpty))
			Expect(c.Stats().Steps).To(BeZero())
		})

		It("should save the PC in r14 of the mode active before reset", func() {
			Expect(c.RegFile().SetMode(emu.ModeIRQ)).To(Succeed())
			c.RegFile().SetPC(0x400)

			c.Reset()

			Expect(c.RegFile().Mode()).To(Equal(emu.ModeSupervisor))
			Expect(c.RegFile().Read(14)).To(BeZero())
			Expect(c.RegFile().ReadBanked(emu.ModeIRQ, 14)).To(Equal(uint32(0x400)))
		})

		It("should clear the status registers", func() {
			c.RegFile().SetFlags(true, true, true, true)
			Expect(c.RegFile().SetSPSR(0xF0000010)).To(BeTrue())

			c.Reset()

			Expect(c.RegFile().CPSR().Pack()).To(Equal(uint32(emu.ModeSupervisor)))
			spsr, ok := c.RegFile().SPSR()
			Expect(ok).To(BeTrue())
			Expect(spsr).To(BeZero())
		})
	})

	Describe("halting", func() {
		BeforeEach(func() {
			Expect(memory.LoadWords(0, movImm(0, 1), 0xE7F000F0)).To(Succeed())
		})

		It("should halt on an unimplemented instruction", func() {
			n, err := c.Run(10)

			Expect(n).To(Equal(2))
			Expect(errors.Is(err, emu.ErrUnimplemented)).To(BeTrue())
			Expect(c.Halted()).To(BeTrue())
			Expect(c.Fault()).To(MatchError(err))
			Expect(c.RegFile().Read(0)).To(Equal(uint32(1)))
		})

		It("should refuse to step until reset", func() {
			_, _ = c.Run(10)

			err := c.Step()
			Expect(err).To(MatchError(core.ErrHalted))
			var fault *emu.Fault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.PC).To(Equal(uint32(4)))

			c.Reset()
			Expect(c.Halted()).To(BeFalse())
			Expect(c.Step()).To(Succeed())
		})
	})

	Describe("bus faults", func() {
		BeforeEach(func() {
			// MOV r0, #5; LDR r0, [r1]
			Expect(memory.LoadWords(0, movImm(0, 5), transfer(true, 0, 1, 0))).To(Succeed())
		})

		It("should abort a load without writing registers", func() {
			Expect(c.Run(2)).To(Equal(2))
			c.RegFile().Write(1, 0x10000)

			err := c.Step()
			var fault *emu.Fault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.Category).To(Equal(emu.FaultDataAbort))
			Expect(fault.Addr).To(Equal(uint32(0x10000)))
			Expect(c.RegFile().Read(0)).To(Equal(uint32(5)))
		})

		It("should load zero under the ignore policy", func() {
			c = core.NewCore(memory, core.WithBusFaultPolicy(emu.BusFaultIgnore))
			Expect(c.Run(2)).To(Equal(2))
			c.RegFile().Write(1, 0x10000)

			Expect(c.Step()).To(Succeed())
			Expect(c.RegFile().Read(0)).To(BeZero())
		})
	})

	Describe("WithCache", func() {
		BeforeEach(func() {
			Expect(memory.LoadWords(0,
				movImm(0, 5),
				movImm(1, 0x80),
				transfer(false, 0, 1, 0), // STR r0, [r1]
				transfer(true, 2, 1, 0),  // LDR r2, [r1]
			)).To(Succeed())
			c = core.NewCore(memory, core.WithCache(cache.DefaultConfig()))
		})

		It("should reject an invalid cache geometry", func() {
			config := cache.DefaultConfig()
			config.BlockSize = 0
			Expect(func() { core.NewCore(memory, core.WithCache(config)) }).To(
				PanicWith(ContainSubstring("invalid config")))
		})

		It("should serve loads and stores through the cache", func() {
			Expect(c.Run(5)).To(Equal(5))

			Expect(c.RegFile().Read(2)).To(Equal(uint32(5)))
			Expect(memory.Read32(0x80)).To(BeZero())

			Expect(c.Cache().Flush()).To(Succeed())
			Expect(memory.Read32(0x80)).To(Equal(uint32(5)))
		})

		It("should add miss penalties to the cycle count", func() {
			Expect(c.Run(5)).To(Equal(5))

			stats := c.Stats()
			Expect(stats.Cache).NotTo(BeNil())
			Expect(stats.Cache.Misses).To(Equal(uint64(2)))
			Expect(stats.MemoryStalls).To(Equal(uint64(18)))
			// fetch only + MOV + MOV + STR + LDR, plus stalls
			Expect(stats.Cycles).To(Equal(uint64(1+1+1+2+3) + 18))
			Expect(stats.MemoryOps).To(Equal(uint64(2)))
		})
	})

	Describe("Stats", func() {
		It("should report pipeline statistics", func() {
			Expect(memory.LoadWords(0, movImm(0, 1), movImm(1, 2))).To(Succeed())
			Expect(c.Run(3)).To(Equal(3))

			stats := c.Stats()
			Expect(stats.Steps).To(Equal(uint64(3)))
			Expect(stats.Instructions).To(Equal(uint64(2)))
			Expect(stats.Cycles).To(Equal(uint64(3)))
			Expect(stats.Cache).To(BeNil())
			Expect(stats.CPI()).To(BeNumerically("~", 1.5))
		})
	})

	Describe("String", func() {
		It("should dump the mode, flags and registers", func() {
			Expect(memory.LoadWords(0, movImm(0, 1))).To(Succeed())
			Expect(c.Run(2)).To(Equal(2))
			c.RegFile().SetFlags(true, false, true, false)

			dump := c.String()

			Expect(dump).To(ContainSubstring("mode: svc"))
			Expect(dump).To(ContainSubstring("[N-C----]"))
			Expect(dump).To(ContainSubstring("r0  0x00000001"))
			Expect(dump).To(ContainSubstring("pc  0x00000008"))
			Expect(dump).To(ContainSubstring("spsr: 0x00000000"))
			Expect(dump).NotTo(ContainSubstring("halted"))
		})
	})
})
