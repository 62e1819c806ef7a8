package pipeline_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ouharetaso/armv4t/bus"
	"github.com/ouharetaso/armv4t/emu"
	"github.com/ouharetaso/armv4t/insts"
	"github.com/ouharetaso/armv4t/timing/latency"
	"github.com/ouharetaso/armv4t/timing/pipeline"
)

var _ = Describe("Pipeline", func() {
	var (
		memory   *bus.Memory
		emulator *emu.Emulator
		regFile  *emu.RegFile
		pipe     *pipeline.Pipeline
	)

	BeforeEach(func() {
		memory = bus.NewMemory(0x1000)
		emulator = emu.NewEmulator(memory)
		regFile = emulator.RegFile()
		pipe = pipeline.NewPipeline(emulator)
	})

	Describe("NewPipeline", func() {
		It("should start empty", func() {
			Expect(pipe.Stage()).To(Equal(pipeline.StageEmpty))
			_, ok := pipe.Pending()
			Expect(ok).To(BeFalse())
			_, ok = pipe.Last()
			Expect(ok).To(BeFalse())
			Expect(pipe.Stats()).To(Equal(pipeline.Statistics{}))
		})

		It("should use the default latency table", func() {
			Expect(pipe.LatencyTable().Config()).To(Equal(latency.DefaultTimingConfig()))
		})
	})

	Describe("Step", func() {
		BeforeEach(func() {
			Expect(memory.LoadWords(0,
				movImm(insts.CondAL, 0, 1),
				movImm(insts.CondAL, 1, 2),
			)).To(Succeed())
		})

		It("should only fetch on the first step", func() {
			Expect(pipe.Step()).To(Succeed())

			Expect(pipe.Stage()).To(Equal(pipeline.StageFetched))
			Expect(regFile.PC()).To(Equal(uint32(4)))
			Expect(regFile.Read(0)).To(Equal(uint32(0)))
			Expect(pipe.Stats().Cycles).To(Equal(uint64(1)))
		})

		It("should execute the first instruction on the second step", func() {
			Expect(pipe.Step()).To(Succeed())
			Expect(pipe.Step()).To(Succeed())

			Expect(regFile.Read(0)).To(Equal(uint32(1)))
			Expect(regFile.PC()).To(Equal(uint32(8)))
			Expect(pipe.Stage()).To(Equal(pipeline.StageFetched))

			last, ok := pipe.Last()
			Expect(ok).To(BeTrue())
			Expect(last.PC).To(Equal(uint32(0)))
			Expect(last.Inst.Kind()).To(Equal(insts.KindDataProcess))
			Expect(last.Result.Executed).To(BeTrue())
		})

		It("should retire one instruction per step once full", func() {
			for i := 0; i < 3; i++ {
				Expect(pipe.Step()).To(Succeed())
			}

			Expect(regFile.Read(1)).To(Equal(uint32(2)))
			stats := pipe.Stats()
			Expect(stats.Steps).To(Equal(uint64(3)))
			Expect(stats.Instructions).To(Equal(uint64(2)))
			Expect(stats.Cycles).To(Equal(uint64(3)))
			Expect(stats.CPI()).To(BeNumerically("~", 1.5))
		})
	})

	Describe("condition failures", func() {
		It("should count a skipped instruction", func() {
			Expect(memory.LoadWords(0, movImm(insts.CondEQ, 0, 1))).To(Succeed())

			Expect(pipe.Step()).To(Succeed())
			Expect(pipe.Step()).To(Succeed())

			Expect(regFile.Read(0)).To(Equal(uint32(0)))
			stats := pipe.Stats()
			Expect(stats.Skipped).To(Equal(uint64(1)))
			Expect(stats.Instructions).To(Equal(uint64(0)))

			last, _ := pipe.Last()
			Expect(last.Result.Executed).To(BeFalse())
		})
	})

	Describe("branches", func() {
		BeforeEach(func() {
			// 0x000: BL 0x100
			// 0x100: MOV r1, #7
			Expect(memory.LoadWords(0, branch(insts.CondAL, true, 0xF8))).To(Succeed())
			Expect(memory.LoadWords(0x100, movImm(insts.CondAL, 1, 7))).To(Succeed())
		})

		It("should flush both latches on a taken branch", func() {
			Expect(pipe.Step()).To(Succeed())
			Expect(pipe.Step()).To(Succeed())

			Expect(regFile.PC()).To(Equal(uint32(0x100)))
			Expect(regFile.Read(14)).To(Equal(uint32(4)))
			Expect(pipe.Stage()).To(Equal(pipeline.StageEmpty))
			Expect(pipe.Stats().Flushes).To(Equal(uint64(1)))
		})

		It("should refill from the target", func() {
			Expect(pipe.Step()).To(Succeed())
			Expect(pipe.Step()).To(Succeed())

			Expect(pipe.Step()).To(Succeed())
			Expect(pipe.Stage()).To(Equal(pipeline.StageFetched))
			Expect(regFile.PC()).To(Equal(uint32(0x104)))
			Expect(regFile.Read(1)).To(Equal(uint32(0)))

			Expect(pipe.Step()).To(Succeed())
			Expect(regFile.Read(1)).To(Equal(uint32(7)))
			Expect(regFile.PC()).To(Equal(uint32(0x108)))
		})

		It("should charge the branch and the refill", func() {
			for i := 0; i < 3; i++ {
				Expect(pipe.Step()).To(Succeed())
			}
			// fetch only + branch + fetch only
			Expect(pipe.Stats().Cycles).To(Equal(uint64(1 + 2 + 1)))
		})

		It("should run a counted loop", func() {
			Expect(memory.LoadWords(0,
				movImm(insts.CondAL, 0, 3),
				subsImm(0, 0, 1),
				branch(insts.CondNE, false, -12),
				movImm(insts.CondAL, 1, 9),
			)).To(Succeed())

			for i := 0; i < 50 && regFile.Read(1) != 9; i++ {
				Expect(pipe.Step()).To(Succeed())
			}

			Expect(regFile.Read(1)).To(Equal(uint32(9)))
			Expect(regFile.Read(0)).To(Equal(uint32(0)))
			stats := pipe.Stats()
			Expect(stats.Instructions).To(Equal(uint64(7)))
			Expect(stats.Skipped).To(Equal(uint64(1)))
			Expect(stats.Flushes).To(Equal(uint64(2)))
		})
	})

	Describe("faults", func() {
		It("should keep a faulting instruction pending", func() {
			Expect(memory.LoadWords(0, 0xE7F000F0)).To(Succeed())

			Expect(pipe.Step()).To(Succeed())
			err := pipe.Step()

			var fault *emu.Fault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.Category).To(Equal(emu.FaultUnimplementedInstruction))
			Expect(fault.PC).To(Equal(uint32(0)))
			Expect(errors.Is(err, emu.ErrUnimplemented)).To(BeTrue())

			Expect(pipe.Stage()).To(Equal(pipeline.StageDecoded))
			inst, ok := pipe.Pending()
			Expect(ok).To(BeTrue())
			Expect(inst.Kind()).To(Equal(insts.KindUndefined))
			Expect(regFile.PC()).To(Equal(uint32(8)))
		})

		It("should retry the pending instruction without fetching", func() {
			Expect(memory.LoadWords(0, 0xE7F000F0)).To(Succeed())

			Expect(pipe.Step()).To(Succeed())
			Expect(pipe.Step()).NotTo(Succeed())
			Expect(pipe.Step()).NotTo(Succeed())

			Expect(regFile.PC()).To(Equal(uint32(8)))
			Expect(pipe.Stats().Faults).To(Equal(uint64(2)))
		})

		Context("when a fetch runs off the end of memory", func() {
			BeforeEach(func() {
				memory = bus.NewMemory(8)
				Expect(memory.LoadWords(0,
					movImm(insts.CondAL, 0, 1),
					movImm(insts.CondAL, 1, 2),
				)).To(Succeed())
			})

			It("should raise a prefetch abort when the word reaches execute", func() {
				emulator = emu.NewEmulator(memory)
				pipe = pipeline.NewPipeline(emulator)

				for i := 0; i < 3; i++ {
					Expect(pipe.Step()).To(Succeed())
				}
				Expect(emulator.RegFile().Read(1)).To(Equal(uint32(2)))

				err := pipe.Step()
				var fault *emu.Fault
				Expect(errors.As(err, &fault)).To(BeTrue())
				Expect(fault.Category).To(Equal(emu.FaultPrefetchAbort))
				Expect(fault.PC).To(Equal(uint32(8)))
				Expect(errors.Is(err, bus.ErrOutOfRange)).To(BeTrue())
			})

			It("should fetch zero under the ignore policy", func() {
				emulator = emu.NewEmulator(memory, emu.WithBusFaultPolicy(emu.BusFaultIgnore))
				pipe = pipeline.NewPipeline(emulator)

				for i := 0; i < 4; i++ {
					Expect(pipe.Step()).To(Succeed())
				}
				// Word 0 is ANDEQ r0, r0, r0, which fails its condition.
				Expect(pipe.Stats().Skipped).To(Equal(uint64(1)))
			})

			It("should drop an aborted fetch behind a branch", func() {
				Expect(memory.LoadWords(4, branch(insts.CondAL, false, -12))).To(Succeed())
				emulator = emu.NewEmulator(memory)
				pipe = pipeline.NewPipeline(emulator)

				for i := 0; i < 6; i++ {
					Expect(pipe.Step()).To(Succeed())
				}
				Expect(pipe.Stats().Flushes).To(Equal(uint64(2)))
			})
		})
	})

	Describe("WithLatencyTable", func() {
		It("should charge the configured costs", func() {
			config := latency.DefaultTimingConfig()
			config.ALULatency = 4
			config.FetchOnlyLatency = 2
			pipe = pipeline.NewPipeline(emulator,
				pipeline.WithLatencyTable(latency.NewTableWithConfig(config)))
			Expect(memory.LoadWords(0, movImm(insts.CondAL, 0, 1))).To(Succeed())

			Expect(pipe.Step()).To(Succeed())
			Expect(pipe.Step()).To(Succeed())

			Expect(pipe.Stats().Cycles).To(Equal(uint64(6)))
			last, _ := pipe.Last()
			Expect(last.Cycles).To(Equal(uint64(4)))
		})
	})

	Describe("Flush and Reset", func() {
		BeforeEach(func() {
			Expect(memory.LoadWords(0, movImm(insts.CondAL, 0, 1))).To(Succeed())
			Expect(pipe.Step()).To(Succeed())
		})

		It("should empty the latches on Flush", func() {
			pipe.Flush()
			Expect(pipe.Stage()).To(Equal(pipeline.StageEmpty))
			Expect(pipe.Stats().Flushes).To(BeZero())
		})

		It("should clear latches and statistics on Reset", func() {
			Expect(pipe.Step()).To(Succeed())
			pipe.Reset()

			Expect(pipe.Stage()).To(Equal(pipeline.StageEmpty))
			Expect(pipe.Stats()).To(Equal(pipeline.Statistics{}))
			_, ok := pipe.Last()
			Expect(ok).To(BeFalse())
			Expect(regFile.Read(0)).To(Equal(uint32(1)))
		})
	})

	It("should name its stages", func() {
		Expect(pipeline.StageEmpty.String()).To(Equal("empty"))
		Expect(pipeline.StageFetched.String()).To(Equal("fetched"))
		Expect(pipeline.StageDecoded.String()).To(Equal("decoded"))
	})
})
