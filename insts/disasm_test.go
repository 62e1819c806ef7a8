package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ouharetaso/armv4t/insts"
)

var _ = Describe("Disassemble", func() {
	DescribeTable("should render",
		func(word uint32, text string) {
			Expect(insts.Disassemble(word)).To(Equal(text))
		},
		Entry(nil, uint32(0xE3A00001), "mov r0, #1"),
		Entry(nil, uint32(0xE0821103), "add r1, r2, r3, lsl #2"),
		Entry(nil, uint32(0xE1500271), "cmp r0, r1, ror r2"),
		Entry(nil, uint32(0xE2500001), "subs r0, r0, #1"),
		Entry(nil, uint32(0x03A00000), "moveq r0, #0"),
		Entry(nil, uint32(0xE1A00060), "mov r0, r0, rrx"),
		Entry(nil, uint32(0xE1A00020), "mov r0, r0, lsr #32"),
		Entry(nil, uint32(0xE3A004FF), "mov r0, #0xff000000"),
		Entry(nil, uint32(0xEA000000), "b #0"),
		Entry(nil, uint32(0xEBFFFFFE), "bl #-8"),
		Entry(nil, uint32(0xE5910004), "ldr r0, [r1, #4]"),
		Entry(nil, uint32(0xE5910000), "ldr r0, [r1]"),
		Entry(nil, uint32(0xE4032008), "str r2, [r3], #-8"),
		Entry(nil, uint32(0xE7D10102), "ldrb r0, [r1, r2, lsl #2]"),
		Entry(nil, uint32(0xE8B0000E), "ldmia r0!, {r1, r2, r3}"),
		Entry(nil, uint32(0xE92D4010), "stmdb r13!, {r4, r14}"),
		Entry(nil, uint32(0xEF000011), "swi 0x11"),
		Entry(nil, uint32(0xE0000291), "Multiply 0xe0000291"),
	)

	It("should back Instruction.String", func() {
		Expect(insts.Decode(0xE3A00001).String()).To(Equal("mov r0, #1"))
	})
})
