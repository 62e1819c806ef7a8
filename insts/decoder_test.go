package insts_test

import (
	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ouharetaso/armv4t/insts"
)

func header(word uint32) insts.Header {
	return insts.Header{Condition: insts.Cond(word >> 28), Word: word}
}

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Data Processing", func() {
		// MOV r0, #1 -> 0xE3A00001
		It("should decode MOV r0, #1", func() {
			inst := decoder.Decode(0xE3A00001)

			dp, ok := inst.(*insts.DataProcess)
			Expect(ok).To(BeTrue())
			Expect(dp.Opcode).To(Equal(insts.OpMOV))
			Expect(dp.Immediate).To(BeTrue())
			Expect(dp.Imm8).To(Equal(uint8(1)))
			Expect(dp.Rotate).To(BeZero())
			Expect(dp.Rd).To(Equal(uint8(0)))
			Expect(dp.SetFlags).To(BeFalse())
			Expect(dp.Cond()).To(Equal(insts.CondAL))
			Expect(dp.Raw()).To(Equal(uint32(0xE3A00001)))
		})

		// ADD r1, r2, r3, LSL #2 -> 0xE0821103
		It("should decode a register operand shifted by immediate", func() {
			want := &insts.DataProcess{
				Header:      header(0xE0821103),
				Opcode:      insts.OpADD,
				Rn:          2,
				Rd:          1,
				Rm:          3,
				ShiftType:   insts.ShiftLSL,
				ShiftAmount: 2,
			}
			Expect(cmp.Diff(want, decoder.Decode(0xE0821103))).To(BeEmpty())
		})

		// CMP r0, r1, ROR r2 -> 0xE1500271
		It("should decode a register operand shifted by register", func() {
			want := &insts.DataProcess{
				Header:          header(0xE1500271),
				Opcode:          insts.OpCMP,
				SetFlags:        true,
				Rm:              1,
				ShiftType:       insts.ShiftROR,
				ShiftByRegister: true,
				Rs:              2,
			}
			Expect(cmp.Diff(want, decoder.Decode(0xE1500271))).To(BeEmpty())
		})

		// SUBS r0, r0, #1 -> 0xE2500001
		It("should decode the S bit", func() {
			dp := decoder.Decode(0xE2500001).(*insts.DataProcess)
			Expect(dp.Opcode).To(Equal(insts.OpSUB))
			Expect(dp.SetFlags).To(BeTrue())
			Expect(dp.WritesResult()).To(BeTrue())
		})

		It("should mark test opcodes as not writing Rd", func() {
			dp := decoder.Decode(0xE1500271).(*insts.DataProcess)
			Expect(dp.WritesResult()).To(BeFalse())
		})
	})

	Describe("Branch", func() {
		// B #0 -> 0xEA000000
		It("should decode an unconditional branch", func() {
			br := decoder.Decode(0xEA000000).(*insts.Branch)
			Expect(br.Link).To(BeFalse())
			Expect(br.Offset).To(Equal(int32(0)))
		})

		// BL #-8 -> 0xEBFFFFFE
		It("should sign-extend and scale the offset", func() {
			br := decoder.Decode(0xEBFFFFFE).(*insts.Branch)
			Expect(br.Link).To(BeTrue())
			Expect(br.Offset).To(Equal(int32(-8)))
		})

		It("should decode the most negative offset", func() {
			br := decoder.Decode(0xEA800000).(*insts.Branch)
			Expect(br.Offset).To(Equal(int32(-0x2000000)))
		})

		It("should keep the condition", func() {
			Expect(decoder.Decode(0x1A000000).Cond()).To(Equal(insts.CondNE))
		})
	})

	Describe("Single Data Transfer", func() {
		// LDR r0, [r1, #4] -> 0xE5910004
		It("should decode a pre-indexed immediate load", func() {
			want := &insts.SingleDataTransfer{
				Header:   header(0xE5910004),
				PreIndex: true,
				Up:       true,
				Load:     true,
				Rn:       1,
				Offset:   4,
			}
			Expect(cmp.Diff(want, decoder.Decode(0xE5910004))).To(BeEmpty())
		})

		// STR r2, [r3], #-8 -> 0xE4032008
		It("should decode a post-indexed store with a negative offset", func() {
			sdt := decoder.Decode(0xE4032008).(*insts.SingleDataTransfer)
			Expect(sdt.Load).To(BeFalse())
			Expect(sdt.PreIndex).To(BeFalse())
			Expect(sdt.Up).To(BeFalse())
			Expect(sdt.Rn).To(Equal(uint8(3)))
			Expect(sdt.Rd).To(Equal(uint8(2)))
			Expect(sdt.Offset).To(Equal(uint16(8)))
		})

		// LDRB r0, [r1, r2, LSL #2] -> 0xE7D10102
		It("should decode a register offset", func() {
			sdt := decoder.Decode(0xE7D10102).(*insts.SingleDataTransfer)
			Expect(sdt.RegisterOffset).To(BeTrue())
			Expect(sdt.Byte).To(BeTrue())
			Expect(sdt.Rm).To(Equal(uint8(2)))
			Expect(sdt.ShiftType).To(Equal(insts.ShiftLSL))
			Expect(sdt.ShiftAmount).To(Equal(uint8(2)))
		})
	})

	Describe("Block Data Transfer", func() {
		// LDMIA r0!, {r1-r3} -> 0xE8B0000E
		It("should decode LDMIA with write-back", func() {
			bdt := decoder.Decode(0xE8B0000E).(*insts.BlockDataTransfer)
			Expect(bdt.Load).To(BeTrue())
			Expect(bdt.WriteBack).To(BeTrue())
			Expect(bdt.Up).To(BeTrue())
			Expect(bdt.PreIndex).To(BeFalse())
			Expect(bdt.Count()).To(Equal(3))
			Expect(bdt.Registers()).To(Equal([]uint8{1, 2, 3}))
		})

		// STMDB sp!, {r4, lr} -> 0xE92D4010
		It("should decode STMDB", func() {
			bdt := decoder.Decode(0xE92D4010).(*insts.BlockDataTransfer)
			Expect(bdt.Load).To(BeFalse())
			Expect(bdt.PreIndex).To(BeTrue())
			Expect(bdt.Up).To(BeFalse())
			Expect(bdt.Rn).To(Equal(uint8(13)))
			Expect(bdt.Registers()).To(Equal([]uint8{4, 14}))
		})
	})

	Describe("Classes decoded ahead of data processing", func() {
		DescribeTable("should classify by the narrowest format",
			func(word uint32, kind insts.Kind, format string) {
				Expect(decoder.Decode(word).Kind()).To(Equal(kind))
				f, ok := decoder.Lookup(word)
				Expect(ok).To(BeTrue())
				Expect(f.Name).To(Equal(format))
			},
			Entry("bx lr", uint32(0xE12FFF1E), insts.KindBranchExchange, "bx"),
			Entry("mul r0, r1, r2", uint32(0xE0000291), insts.KindMultiply, "multiply"),
			Entry("umull r0, r1, r2, r3", uint32(0xE0810392), insts.KindMultiply, "multiply-long"),
			Entry("swp r0, r1, [r2]", uint32(0xE1020091), insts.KindLoadStoreExtension, "swap"),
			Entry("ldrh r0, [r1, #2]", uint32(0xE1D100B2), insts.KindLoadStoreExtension, "halfword"),
			Entry("ldrsb r0, [r1]", uint32(0xE1D100D0), insts.KindLoadStoreExtension, "signed-byte"),
			Entry("ldrsh r0, [r1]", uint32(0xE1D100F0), insts.KindLoadStoreExtension, "signed-halfword"),
			Entry("mrs r0, cpsr", uint32(0xE10F0000), insts.KindPSRTransfer, "mrs"),
			Entry("msr cpsr_f, r0", uint32(0xE128F000), insts.KindPSRTransfer, "msr-register"),
			Entry("msr cpsr_f, #0xf0000000", uint32(0xE328F20F), insts.KindPSRTransfer, "msr-immediate"),
		)

		It("should decode long multiply registers", func() {
			mul := decoder.Decode(0xE0810392).(*insts.Multiply)
			Expect(mul.Long).To(BeTrue())
			Expect(mul.Signed).To(BeFalse())
			Expect(mul.RdHi).To(Equal(uint8(1)))
			Expect(mul.RdLo).To(Equal(uint8(0)))
			Expect(mul.Rs).To(Equal(uint8(3)))
			Expect(mul.Rm).To(Equal(uint8(2)))
		})

		It("should split the halfword immediate offset", func() {
			ext := decoder.Decode(0xE1D100B2).(*insts.LoadStoreExtension)
			Expect(ext.ImmediateOffset).To(BeTrue())
			Expect(ext.Halfword).To(BeTrue())
			Expect(ext.Signed).To(BeFalse())
			Expect(ext.Offset).To(Equal(uint8(2)))
		})

		It("should decode the MSR field mask", func() {
			psr := decoder.Decode(0xE128F000).(*insts.PSRTransfer)
			Expect(psr.ToPSR).To(BeTrue())
			Expect(psr.SPSR).To(BeFalse())
			Expect(psr.FieldMask).To(Equal(uint8(0x8)))
		})
	})

	Describe("Coprocessor, SWI and undefined", func() {
		DescribeTable("should classify",
			func(word uint32, kind insts.Kind) {
				Expect(decoder.Decode(word).Kind()).To(Equal(kind))
			},
			Entry("ldc", uint32(0xED900100), insts.KindCoprocDataTransfer),
			Entry("cdp", uint32(0xEE000100), insts.KindCoprocDataOperation),
			Entry("mcr", uint32(0xEE000110), insts.KindCoprocRegisterTransfer),
			Entry("swi", uint32(0xEF000011), insts.KindSoftwareInterrupt),
			Entry("architecturally undefined", uint32(0xE7F000F0), insts.KindUndefined),
			Entry("tst r0, r0 without S", uint32(0xE1000000), insts.KindUndefined),
			Entry("teq r1, #1 without S", uint32(0xE3210001), insts.KindUndefined),
			Entry("cmn r2, r3, lsl r4 without S", uint32(0xE1620413), insts.KindUndefined),
		)

		It("should keep the SWI comment", func() {
			swi := decoder.Decode(0xEF000011).(*insts.SoftwareInterrupt)
			Expect(swi.Comment).To(Equal(uint32(0x11)))
		})

		It("should never fail to decode", func() {
			for _, word := range []uint32{0, 0xFFFFFFFF, 0x06000010, 0xE7F000F0} {
				Expect(decoder.Decode(word)).NotTo(BeNil())
			}
		})

		It("should not treat a test opcode without S as data processing", func() {
			f, ok := decoder.Lookup(0xE1000000)
			Expect(ok).To(BeTrue())
			Expect(f.Name).To(Equal("dp-test-no-s"))
			Expect(decoder.Decode(0xE1100000).Kind()).To(Equal(insts.KindDataProcess))
		})

		It("should not match any format for an undefined word", func() {
			_, ok := decoder.Lookup(0xE7F000F0)
			Expect(ok).To(BeFalse())
		})
	})

	It("should agree with the package-level Decode", func() {
		Expect(insts.Decode(0xE3A00001)).To(Equal(decoder.Decode(0xE3A00001)))
	})
})
