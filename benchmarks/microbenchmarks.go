package benchmarks

import (
	"github.com/ouharetaso/armv4t/bus"
	"github.com/ouharetaso/armv4t/emu"
	"github.com/ouharetaso/armv4t/insts"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific core characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		conditionalSkip(),
		blockTransfer(),
		loopCountdown(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: a loop, memory traffic and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopCountdown(),
		memorySequential(),
		branchTaken(),
	}
}

// 1. Arithmetic Sequential - Tests ALU throughput with independent operations
func arithmeticSequential() Benchmark {
	var instrs []uint32
	for i := 0; i < 4; i++ {
		for r := uint8(0); r < 5; r++ {
			instrs = append(instrs, EncodeDPImm(insts.OpADD, r, r, 1, false))
		}
	}
	instrs = append(instrs, EncodeHalt())

	return Benchmark{
		Name:           "arithmetic_sequential",
		Description:    "20 independent ADD operations - measures ALU throughput",
		Program:        BuildProgram(instrs...),
		ExpectedResult: 4,
	}
}

// 2. Dependency Chain - Tests back-to-back dependent ALU operations
func dependencyChain() Benchmark {
	instrs := make([]uint32, 0, 21)
	for i := 0; i < 20; i++ {
		instrs = append(instrs, EncodeDPImm(insts.OpADD, 0, 0, 1, false))
	}
	instrs = append(instrs, EncodeHalt())

	return Benchmark{
		Name:           "dependency_chain",
		Description:    "20 dependent ADDs (r0 = r0 + 1) - the core resolves results in Execute",
		Program:        BuildProgram(instrs...),
		ExpectedResult: 20,
	}
}

// 3. Memory Sequential - Tests store then load of consecutive words
func memorySequential() Benchmark {
	return Benchmark{
		Name:        "memory_sequential",
		Description: "4 STR then 4 LDR of consecutive words - measures load/store latency",
		Setup: func(regFile *emu.RegFile, memory *bus.Memory) {
			regFile.Write(1, 0x2000)
		},
		Program: BuildProgram(
			EncodeDPImm(insts.OpMOV, 0, 0, 7, false),
			EncodeSTR(0, 1, 0),
			EncodeSTR(0, 1, 4),
			EncodeSTR(0, 1, 8),
			EncodeSTR(0, 1, 12),
			EncodeLDR(2, 1, 0),
			EncodeLDR(3, 1, 4),
			EncodeLDR(4, 1, 8),
			EncodeLDR(5, 1, 12),
			EncodeDPReg(insts.OpADD, 0, 2, 3, false),
			EncodeDPReg(insts.OpADD, 0, 0, 4, false),
			EncodeDPReg(insts.OpADD, 0, 0, 5, false),
			EncodeHalt(),
		),
		ExpectedResult: 28,
	}
}

// 4. Function Calls - Tests BL and return through lr
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "3 BL calls to a leaf that returns with MOV pc, lr",
		Program: BuildProgram(
			EncodeB(insts.CondAL, true, 8),             // 0x00: bl leaf
			EncodeB(insts.CondAL, true, 4),             // 0x04: bl leaf
			EncodeB(insts.CondAL, true, 0),             // 0x08: bl leaf
			EncodeHalt(),                               // 0x0C
			EncodeDPImm(insts.OpADD, 0, 0, 1, false),   // 0x10: leaf
			EncodeDPReg(insts.OpMOV, 15, 0, 14, false), // 0x14: mov pc, lr
		),
		ExpectedResult: 3,
	}
}

// 5. Branch Taken - Tests the cost of pipeline refills
func branchTaken() Benchmark {
	var instrs []uint32
	for i := 0; i < 5; i++ {
		// Branch to the next instruction.
		instrs = append(instrs,
			EncodeB(insts.CondAL, false, -4),
			EncodeDPImm(insts.OpADD, 0, 0, 1, false),
		)
	}
	instrs = append(instrs, EncodeHalt())

	return Benchmark{
		Name:           "branch_taken",
		Description:    "5 taken branches - measures flush and refill cost",
		Program:        BuildProgram(instrs...),
		ExpectedResult: 5,
	}
}

// 6. Conditional Skip - Tests instructions whose condition fails
func conditionalSkip() Benchmark {
	return Benchmark{
		Name:        "conditional_skip",
		Description: "CMP then 4 MOVNE that fail and one MOVEQ that executes",
		Program: BuildProgram(
			EncodeDPImm(insts.OpCMP, 0, 0, 0, true),
			EncodeCond(EncodeDPImm(insts.OpMOV, 1, 0, 1, false), insts.CondNE),
			EncodeCond(EncodeDPImm(insts.OpMOV, 2, 0, 1, false), insts.CondNE),
			EncodeCond(EncodeDPImm(insts.OpMOV, 3, 0, 1, false), insts.CondNE),
			EncodeCond(EncodeDPImm(insts.OpMOV, 4, 0, 1, false), insts.CondNE),
			EncodeCond(EncodeDPImm(insts.OpMOV, 0, 0, 5, false), insts.CondEQ),
			EncodeHalt(),
		),
		ExpectedResult: 5,
	}
}

// 7. Block Transfer - Tests STM/LDM through the stack
func blockTransfer() Benchmark {
	const list = 1<<1 | 1<<2 | 1<<3

	return Benchmark{
		Name:        "block_transfer",
		Description: "push and pop {r1-r3} with STMDB/LDMIA - measures per-register cost",
		Program: BuildProgram(
			EncodeDPImm(insts.OpMOV, 1, 0, 1, false),
			EncodeDPImm(insts.OpMOV, 2, 0, 2, false),
			EncodeDPImm(insts.OpMOV, 3, 0, 3, false),
			EncodeBlock(false, true, false, 13, list), // stmdb r13!, {r1-r3}
			EncodeDPImm(insts.OpMOV, 1, 0, 0, false),
			EncodeDPImm(insts.OpMOV, 2, 0, 0, false),
			EncodeDPImm(insts.OpMOV, 3, 0, 0, false),
			EncodeBlock(true, false, true, 13, list), // ldmia r13!, {r1-r3}
			EncodeDPReg(insts.OpADD, 0, 1, 2, false),
			EncodeDPReg(insts.OpADD, 0, 0, 3, false),
			EncodeHalt(),
		),
		ExpectedResult: 6,
	}
}

// 8. Loop Countdown - Tests a flag-setting counted loop
func loopCountdown() Benchmark {
	return Benchmark{
		Name:        "loop_countdown",
		Description: "10 iterations of ADD/SUBS/BNE - measures loop overhead",
		Program: BuildProgram(
			EncodeDPImm(insts.OpMOV, 1, 0, 10, false), // 0x00
			EncodeDPImm(insts.OpADD, 0, 0, 2, false),  // 0x04: loop
			EncodeDPImm(insts.OpSUB, 1, 1, 1, true),   // 0x08
			EncodeB(insts.CondNE, false, -16),         // 0x0C: bne loop
			EncodeHalt(),                              // 0x10
		),
		ExpectedResult: 20,
	}
}

// Instruction encoding helpers

// EncodeDPImm encodes a data-processing instruction with an 8-bit
// immediate: Rd = Rn <op> #imm8.
func EncodeDPImm(op insts.Opcode, rd, rn uint8, imm8 uint8, setFlags bool) uint32 {
	return (&insts.DataProcess{
		Header:    insts.Header{Condition: insts.CondAL},
		Opcode:    op,
		SetFlags:  setFlags,
		Rd:        rd,
		Rn:        rn,
		Immediate: true,
		Imm8:      imm8,
	}).Encode()
}

// EncodeDPReg encodes a data-processing instruction with an unshifted
// register operand: Rd = Rn <op> Rm.
func EncodeDPReg(op insts.Opcode, rd, rn, rm uint8, setFlags bool) uint32 {
	return (&insts.DataProcess{
		Header:   insts.Header{Condition: insts.CondAL},
		Opcode:   op,
		SetFlags: setFlags,
		Rd:       rd,
		Rn:       rn,
		Rm:       rm,
	}).Encode()
}

// EncodeB encodes B/BL. offset is relative to the branch address + 8.
func EncodeB(cond insts.Cond, link bool, offset int32) uint32 {
	return (&insts.Branch{
		Header: insts.Header{Condition: cond},
		Link:   link,
		Offset: offset,
	}).Encode()
}

// EncodeHalt encodes a branch to itself, which ends a benchmark.
func EncodeHalt() uint32 {
	return EncodeB(insts.CondAL, false, -emu.PipelineOffset)
}

// EncodeLDR encodes LDR Rd, [Rn, #offset].
func EncodeLDR(rd, rn uint8, offset uint16) uint32 {
	return encodeTransfer(true, rd, rn, offset)
}

// EncodeSTR encodes STR Rd, [Rn, #offset].
func EncodeSTR(rd, rn uint8, offset uint16) uint32 {
	return encodeTransfer(false, rd, rn, offset)
}

func encodeTransfer(load bool, rd, rn uint8, offset uint16) uint32 {
	return (&insts.SingleDataTransfer{
		Header:   insts.Header{Condition: insts.CondAL},
		PreIndex: true,
		Up:       true,
		Load:     load,
		Rn:       rn,
		Rd:       rd,
		Offset:   offset,
	}).Encode()
}

// EncodeBlock encodes LDM/STM with write-back. pre and up select the
// addressing mode (IA, IB, DA, DB).
func EncodeBlock(load, pre, up bool, rn uint8, list uint16) uint32 {
	return (&insts.BlockDataTransfer{
		Header:       insts.Header{Condition: insts.CondAL},
		PreIndex:     pre,
		Up:           up,
		WriteBack:    true,
		Load:         load,
		Rn:           rn,
		RegisterList: list,
	}).Encode()
}

// EncodeCond replaces the condition field of an encoded instruction.
func EncodeCond(word uint32, cond insts.Cond) uint32 {
	return word&0x0FFFFFFF | uint32(cond)<<28
}
