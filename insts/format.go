package insts

import (
	"fmt"
	"strings"
)

// Field is one bitfield of a format, listed most significant first.
type Field struct {
	Name  string
	Width uint8
}

// Format is an encoding class: a word belongs to it when word&Mask == Set.
type Format struct {
	Kind   Kind
	Name   string
	Mask   uint32
	Set    uint32
	Fields []Field

	parse func(h Header, word uint32) Instruction
}

// Matches reports whether word belongs to the format.
func (f Format) Matches(word uint32) bool {
	return word&f.Mask == f.Set
}

// Width returns the total width of the fields.
func (f Format) Width() int {
	total := 0
	for _, fl := range f.Fields {
		total += int(fl.Width)
	}
	return total
}

// Extract splits word into its field values, most significant field first.
func (f Format) Extract(word uint32) []uint32 {
	values := make([]uint32, len(f.Fields))
	pos := 32
	for i, fl := range f.Fields {
		pos -= int(fl.Width)
		values[i] = (word >> uint(pos)) & (uint32(1)<<fl.Width - 1)
	}
	return values
}

// Describe renders the field values of word, e.g. "cond=0xe opcode=0xd ...".
func (f Format) Describe(word uint32) string {
	values := f.Extract(word)
	parts := make([]string, len(values))
	for i, fl := range f.Fields {
		parts[i] = fmt.Sprintf("%s=%#x", fl.Name, values[i])
	}
	return f.Name + ": " + strings.Join(parts, " ")
}

// Common field groups.
var (
	fCond = Field{"cond", 4}
	fRn   = Field{"rn", 4}
	fRd   = Field{"rd", 4}
	fRs   = Field{"rs", 4}
	fRm   = Field{"rm", 4}
)

func fixed(width uint8) Field { return Field{"fixed", width} }

func flag(name string) Field { return Field{name, 1} }

// formatTable is ordered from the most specific encoding to the least.
// Multiply, swap, halfword transfer, PSR transfer and branch-exchange all
// live inside the data-processing space (bits 27-26 == 00), so they must be
// tested before the data-processing formats.
var formatTable = []Format{
	{
		Kind: KindBranchExchange, Name: "bx",
		Mask: 0x0FFFFFF0, Set: 0x012FFF10,
		Fields: []Field{fCond, fixed(24), fRm},
		parse:  parseBranchExchange,
	},
	{
		Kind: KindMultiply, Name: "multiply",
		Mask: 0x0FC000F0, Set: 0x00000090,
		Fields: []Field{fCond, fixed(6), flag("a"), flag("s"), fRd, fRn, fRs, fixed(4), fRm},
		parse:  parseMultiply,
	},
	{
		Kind: KindMultiply, Name: "multiply-long",
		Mask: 0x0F8000F0, Set: 0x00800090,
		Fields: []Field{fCond, fixed(5), flag("u"), flag("a"), flag("s"), {"rdhi", 4}, {"rdlo", 4}, fRs, fixed(4), fRm},
		parse:  parseMultiplyLong,
	},
	{
		Kind: KindLoadStoreExtension, Name: "swap",
		Mask: 0x0FB00FF0, Set: 0x01000090,
		Fields: []Field{fCond, fixed(5), flag("b"), fixed(2), fRn, fRd, fixed(8), fRm},
		parse:  parseSwap,
	},
	{
		Kind: KindLoadStoreExtension, Name: "halfword",
		Mask: 0x0E0000F0, Set: 0x000000B0,
		Fields: extensionFields,
		parse:  parseExtension,
	},
	{
		Kind: KindLoadStoreExtension, Name: "signed-byte",
		Mask: 0x0E0000F0, Set: 0x000000D0,
		Fields: extensionFields,
		parse:  parseExtension,
	},
	{
		Kind: KindLoadStoreExtension, Name: "signed-halfword",
		Mask: 0x0E0000F0, Set: 0x000000F0,
		Fields: extensionFields,
		parse:  parseExtension,
	},
	{
		Kind: KindPSRTransfer, Name: "mrs",
		Mask: 0x0FBF0FFF, Set: 0x010F0000,
		Fields: []Field{fCond, fixed(5), flag("ps"), fixed(6), fRd, fixed(12)},
		parse:  parseMRS,
	},
	{
		Kind: KindPSRTransfer, Name: "msr-register",
		Mask: 0x0FB0FFF0, Set: 0x0120F000,
		Fields: []Field{fCond, fixed(5), flag("pd"), fixed(2), {"mask", 4}, fixed(4), fixed(8), fRm},
		parse:  parseMSR,
	},
	{
		Kind: KindPSRTransfer, Name: "msr-immediate",
		Mask: 0x0FB0F000, Set: 0x0320F000,
		Fields: []Field{fCond, fixed(5), flag("pd"), fixed(2), {"mask", 4}, fixed(4), {"rotate", 4}, {"imm8", 8}},
		parse:  parseMSR,
	},
	{
		// TST, TEQ, CMP and CMN without S. The PSR transfers above are the
		// only defined encodings here.
		Kind: KindUndefined, Name: "dp-test-no-s",
		Mask: 0x0D900000, Set: 0x01000000,
		Fields: []Field{fCond, fixed(2), flag("i"), {"opcode", 4}, flag("s"), {"operands", 20}},
		parse:  parseUndefined,
	},
	{
		Kind: KindDataProcess, Name: "dp-immediate",
		Mask: 0x0E000000, Set: 0x02000000,
		Fields: []Field{fCond, fixed(2), flag("i"), {"opcode", 4}, flag("s"), fRn, fRd, {"rotate", 4}, {"imm8", 8}},
		parse:  parseDataProcess,
	},
	{
		Kind: KindDataProcess, Name: "dp-shift-immediate",
		Mask: 0x0E000010, Set: 0x00000000,
		Fields: []Field{fCond, fixed(2), flag("i"), {"opcode", 4}, flag("s"), fRn, fRd, {"amount", 5}, {"type", 2}, fixed(1), fRm},
		parse:  parseDataProcess,
	},
	{
		Kind: KindDataProcess, Name: "dp-shift-register",
		Mask: 0x0E000090, Set: 0x00000010,
		Fields: []Field{fCond, fixed(2), flag("i"), {"opcode", 4}, flag("s"), fRn, fRd, fRs, fixed(1), {"type", 2}, fixed(1), fRm},
		parse:  parseDataProcess,
	},
	{
		Kind: KindSingleDataTransfer, Name: "sdt-immediate",
		Mask: 0x0E000000, Set: 0x04000000,
		Fields: []Field{fCond, fixed(2), flag("i"), flag("p"), flag("u"), flag("b"), flag("w"), flag("l"), fRn, fRd, {"offset", 12}},
		parse:  parseSingleDataTransfer,
	},
	{
		Kind: KindSingleDataTransfer, Name: "sdt-register",
		Mask: 0x0E000010, Set: 0x06000000,
		Fields: []Field{fCond, fixed(2), flag("i"), flag("p"), flag("u"), flag("b"), flag("w"), flag("l"), fRn, fRd, {"amount", 5}, {"type", 2}, fixed(1), fRm},
		parse:  parseSingleDataTransfer,
	},
	{
		Kind: KindBlockDataTransfer, Name: "block",
		Mask: 0x0E000000, Set: 0x08000000,
		Fields: []Field{fCond, fixed(3), flag("p"), flag("u"), flag("s"), flag("w"), flag("l"), fRn, {"list", 16}},
		parse:  parseBlockDataTransfer,
	},
	{
		Kind: KindBranch, Name: "branch",
		Mask: 0x0E000000, Set: 0x0A000000,
		Fields: []Field{fCond, fixed(3), flag("l"), {"offset", 24}},
		parse:  parseBranch,
	},
	{
		Kind: KindCoprocDataTransfer, Name: "ldc-stc",
		Mask: 0x0E000000, Set: 0x0C000000,
		Fields: []Field{fCond, fixed(3), flag("p"), flag("u"), flag("n"), flag("w"), flag("l"), fRn, {"crd", 4}, {"cp", 4}, {"offset", 8}},
		parse:  parseCoprocDataTransfer,
	},
	{
		Kind: KindCoprocDataOperation, Name: "cdp",
		Mask: 0x0F000010, Set: 0x0E000000,
		Fields: []Field{fCond, fixed(4), {"op1", 4}, {"crn", 4}, {"crd", 4}, {"cp", 4}, {"op2", 3}, fixed(1), {"crm", 4}},
		parse:  parseCoprocDataOperation,
	},
	{
		Kind: KindCoprocRegisterTransfer, Name: "mcr-mrc",
		Mask: 0x0F000010, Set: 0x0E000010,
		Fields: []Field{fCond, fixed(4), {"op1", 3}, flag("l"), {"crn", 4}, fRd, {"cp", 4}, {"op2", 3}, fixed(1), {"crm", 4}},
		parse:  parseCoprocRegisterTransfer,
	},
	{
		Kind: KindSoftwareInterrupt, Name: "swi",
		Mask: 0x0F000000, Set: 0x0F000000,
		Fields: []Field{fCond, fixed(4), {"comment", 24}},
		parse:  parseSoftwareInterrupt,
	},
}

var extensionFields = []Field{
	fCond, fixed(3), flag("p"), flag("u"), flag("i"), flag("w"), flag("l"),
	fRn, fRd, {"offhi", 4}, fixed(1), flag("s"), flag("h"), fixed(1), {"offlo", 4},
}
