package insts

import (
	"fmt"
	"math/bits"
)

// Kind identifies an instruction class.
type Kind uint8

// Instruction classes.
const (
	KindUndefined Kind = iota
	KindDataProcess
	KindMultiply
	KindPSRTransfer
	KindBranchExchange
	KindLoadStoreExtension
	KindSingleDataTransfer
	KindBlockDataTransfer
	KindBranch
	KindCoprocDataTransfer
	KindCoprocDataOperation
	KindCoprocRegisterTransfer
	KindSoftwareInterrupt
)

var kindNames = [...]string{
	KindUndefined:              "Undefined",
	KindDataProcess:            "DataProcess",
	KindMultiply:               "Multiply",
	KindPSRTransfer:            "PSRTransfer",
	KindBranchExchange:         "BranchExchange",
	KindLoadStoreExtension:     "LoadStoreExtension",
	KindSingleDataTransfer:     "SingleDataTransfer",
	KindBlockDataTransfer:      "BlockDataTransfer",
	KindBranch:                 "Branch",
	KindCoprocDataTransfer:     "CoprocDataTransfer",
	KindCoprocDataOperation:    "CoprocDataOperation",
	KindCoprocRegisterTransfer: "CoprocRegisterTransfer",
	KindSoftwareInterrupt:      "SoftwareInterrupt",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Cond represents an ARM condition code (bits 31-28).
type Cond uint8

// ARM condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always
	CondNV Cond = 0b1111 // Never
)

var condNames = [16]string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le", "al", "nv",
}

// String returns the lower-case mnemonic suffix.
func (c Cond) String() string {
	return condNames[c&0xF]
}

// Opcode is the 4-bit data-processing operation (bits 24-21).
type Opcode uint8

// Data-processing opcodes.
const (
	OpAND Opcode = iota
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN
)

var opcodeNames = [16]string{
	"and", "eor", "sub", "rsb", "add", "adc", "sbc", "rsc",
	"tst", "teq", "cmp", "cmn", "orr", "mov", "bic", "mvn",
}

func (o Opcode) String() string {
	return opcodeNames[o&0xF]
}

// IsTest reports whether the opcode only sets flags (TST, TEQ, CMP, CMN).
func (o Opcode) IsTest() bool {
	return o >= OpTST && o <= OpCMN
}

// IsLogical reports whether the opcode takes its carry from the shifter.
func (o Opcode) IsLogical() bool {
	switch o {
	case OpAND, OpEOR, OpTST, OpTEQ, OpORR, OpMOV, OpBIC, OpMVN:
		return true
	default:
		return false
	}
}

// ShiftType represents a shift type for register operands.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL ShiftType = 0b00 // Logical shift left
	ShiftLSR ShiftType = 0b01 // Logical shift right
	ShiftASR ShiftType = 0b10 // Arithmetic shift right
	ShiftROR ShiftType = 0b11 // Rotate right
)

var shiftNames = [4]string{"lsl", "lsr", "asr", "ror"}

func (s ShiftType) String() string {
	return shiftNames[s&0x3]
}

// Instruction is a decoded ARM instruction. The set of implementations is
// closed: only the types in this package satisfy it.
type Instruction interface {
	Kind() Kind
	Cond() Cond
	Raw() uint32
	String() string

	isInstruction()
}

// Header carries the fields every instruction shares.
type Header struct {
	Condition Cond   // bits 31-28
	Word      uint32 // the raw encoding
}

// Cond returns the condition code.
func (h Header) Cond() Cond { return h.Condition }

// Raw returns the raw instruction word.
func (h Header) Raw() uint32 { return h.Word }

// String disassembles the raw word.
func (h Header) String() string { return Disassemble(h.Word) }

func (h Header) isInstruction() {}

// DataProcess is an ALU operation: Rd := Rn <op> Operand2.
type DataProcess struct {
	Header
	Opcode   Opcode
	SetFlags bool  // S, bit 20
	Rn       uint8 // bits 19-16
	Rd       uint8 // bits 15-12

	// Immediate selects the rotated 8-bit immediate as the second operand.
	Immediate bool  // I, bit 25
	Rotate    uint8 // bits 11-8, rotation is 2*Rotate
	Imm8      uint8 // bits 7-0

	// Register operand, used when Immediate is false.
	Rm              uint8 // bits 3-0
	ShiftType       ShiftType
	ShiftByRegister bool  // bit 4
	ShiftAmount     uint8 // bits 11-7 when shifting by immediate
	Rs              uint8 // bits 11-8 when shifting by register
}

// Kind implements Instruction.
func (*DataProcess) Kind() Kind { return KindDataProcess }

// WritesResult reports whether Rd is written.
func (d *DataProcess) WritesResult() bool { return !d.Opcode.IsTest() }

// Multiply covers MUL, MLA and the long multiplies.
type Multiply struct {
	Header
	Long       bool // UMULL/UMLAL/SMULL/SMLAL
	Signed     bool // bit 22 for long forms
	Accumulate bool // bit 21
	SetFlags   bool // bit 20
	Rd         uint8
	Rn         uint8
	Rs         uint8
	Rm         uint8
	RdHi       uint8
	RdLo       uint8
}

// Kind implements Instruction.
func (*Multiply) Kind() Kind { return KindMultiply }

// PSRTransfer covers MRS and MSR (register and immediate forms).
type PSRTransfer struct {
	Header
	ToPSR     bool  // MSR when true, MRS otherwise
	SPSR      bool  // bit 22: SPSR instead of CPSR
	Immediate bool  // MSR with a rotated immediate
	FieldMask uint8 // bits 19-16 for MSR
	Rd        uint8 // MRS destination
	Rm        uint8 // MSR register source
	Rotate    uint8
	Imm8      uint8
}

// Kind implements Instruction.
func (*PSRTransfer) Kind() Kind { return KindPSRTransfer }

// BranchExchange is BX Rm.
type BranchExchange struct {
	Header
	Rm uint8
}

// Kind implements Instruction.
func (*BranchExchange) Kind() Kind { return KindBranchExchange }

// LoadStoreExtension covers halfword and signed transfers and SWP.
type LoadStoreExtension struct {
	Header
	Swap            bool
	Byte            bool // SWPB
	PreIndex        bool
	Up              bool
	ImmediateOffset bool // bit 22
	WriteBack       bool
	Load            bool
	Signed          bool // S, bit 6
	Halfword        bool // H, bit 5
	Rn              uint8
	Rd              uint8
	Rm              uint8
	Offset          uint8 // bits 11-8 and 3-0 when ImmediateOffset
}

// Kind implements Instruction.
func (*LoadStoreExtension) Kind() Kind { return KindLoadStoreExtension }

// SingleDataTransfer is LDR/STR with an optional B suffix.
type SingleDataTransfer struct {
	Header
	RegisterOffset bool // I, bit 25: offset is a shifted register
	PreIndex       bool // P, bit 24
	Up             bool // U, bit 23
	Byte           bool // B, bit 22
	WriteBack      bool // W, bit 21
	Load           bool // L, bit 20
	Rn             uint8
	Rd             uint8

	Offset      uint16 // 12-bit immediate offset
	Rm          uint8
	ShiftType   ShiftType
	ShiftAmount uint8
}

// Kind implements Instruction.
func (*SingleDataTransfer) Kind() Kind { return KindSingleDataTransfer }

// BlockDataTransfer is LDM/STM.
type BlockDataTransfer struct {
	Header
	PreIndex     bool
	Up           bool
	PSR          bool // S, bit 22
	WriteBack    bool
	Load         bool
	Rn           uint8
	RegisterList uint16
}

// Kind implements Instruction.
func (*BlockDataTransfer) Kind() Kind { return KindBlockDataTransfer }

// Count returns the number of registers in the list.
func (b *BlockDataTransfer) Count() int {
	return bits.OnesCount16(b.RegisterList)
}

// Registers returns the listed registers in ascending order.
func (b *BlockDataTransfer) Registers() []uint8 {
	regs := make([]uint8, 0, b.Count())
	for r := uint8(0); r < 16; r++ {
		if b.RegisterList&(1<<r) != 0 {
			regs = append(regs, r)
		}
	}
	return regs
}

// Branch is B/BL.
type Branch struct {
	Header
	Link   bool
	Offset int32 // signed byte offset, sign-extended imm24 << 2
}

// Kind implements Instruction.
func (*Branch) Kind() Kind { return KindBranch }

// CoprocDataTransfer is LDC/STC.
type CoprocDataTransfer struct {
	Header
	PreIndex  bool
	Up        bool
	Long      bool // N, bit 22
	WriteBack bool
	Load      bool
	Rn        uint8
	CRd       uint8
	CPNum     uint8
	Offset    uint8
}

// Kind implements Instruction.
func (*CoprocDataTransfer) Kind() Kind { return KindCoprocDataTransfer }

// CoprocDataOperation is CDP.
type CoprocDataOperation struct {
	Header
	Opcode1 uint8
	CRn     uint8
	CRd     uint8
	CPNum   uint8
	Opcode2 uint8
	CRm     uint8
}

// Kind implements Instruction.
func (*CoprocDataOperation) Kind() Kind { return KindCoprocDataOperation }

// CoprocRegisterTransfer is MCR/MRC.
type CoprocRegisterTransfer struct {
	Header
	Opcode1 uint8
	Load    bool // MRC
	CRn     uint8
	Rd      uint8
	CPNum   uint8
	Opcode2 uint8
	CRm     uint8
}

// Kind implements Instruction.
func (*CoprocRegisterTransfer) Kind() Kind { return KindCoprocRegisterTransfer }

// SoftwareInterrupt is SWI.
type SoftwareInterrupt struct {
	Header
	Comment uint32 // bits 23-0
}

// Kind implements Instruction.
func (*SoftwareInterrupt) Kind() Kind { return KindSoftwareInterrupt }

// Undefined is any word that matches no format.
type Undefined struct {
	Header
}

// Kind implements Instruction.
func (*Undefined) Kind() Kind { return KindUndefined }
