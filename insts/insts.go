// Package insts provides ARMv4T (ARM state) instruction definitions and
// decoding.
//
// A 32-bit word is classified by walking an ordered table of formats, each
// a (mask, set) pair, and the first match wins. More specific encodings
// (branch-exchange, multiply, PSR transfer) are tested before the generic
// data-processing formats whose encoding space contains them. Words that match
// no format decode to *Undefined, so decoding never fails.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0xE3A00001) // mov r0, #1
//	if dp, ok := inst.(*insts.DataProcess); ok {
//		fmt.Println(dp.Opcode, dp.Rd, dp.Imm8)
//	}
package insts
