package insts

import (
	"fmt"
	"math/bits"
	"strings"
)

// Disassemble renders word in pre-UAL assembler syntax, e.g. "mov r0, #1" or
// "addeqs r1, r2, r3, lsl #2". Classes the simulator does not execute render
// as their class name and raw word.
func Disassemble(word uint32) string {
	switch inst := defaultDecoder.Decode(word).(type) {
	case *DataProcess:
		return disasmDataProcess(inst)
	case *Branch:
		return disasmBranch(inst)
	case *SingleDataTransfer:
		return disasmSingleDataTransfer(inst)
	case *BlockDataTransfer:
		return disasmBlockDataTransfer(inst)
	case *SoftwareInterrupt:
		return fmt.Sprintf("swi%s %#x", condSuffix(inst.Condition), inst.Comment)
	default:
		return fmt.Sprintf("%s 0x%08x", inst.Kind(), word)
	}
}

func condSuffix(c Cond) string {
	if c == CondAL {
		return ""
	}
	return c.String()
}

func reg(r uint8) string {
	return fmt.Sprintf("r%d", r)
}

func imm(v uint32) string {
	if v > 0xFF {
		return fmt.Sprintf("#%#x", v)
	}
	return fmt.Sprintf("#%d", v)
}

// shiftSuffix renders an immediate shift; the zero amounts carry the
// special meanings of the encoding.
func shiftSuffix(t ShiftType, amount uint8) string {
	switch {
	case amount == 0 && t == ShiftLSL:
		return ""
	case amount == 0 && t == ShiftROR:
		return ", rrx"
	case amount == 0:
		return fmt.Sprintf(", %s #32", t)
	default:
		return fmt.Sprintf(", %s #%d", t, amount)
	}
}

func disasmDataProcess(d *DataProcess) string {
	var op2 string
	switch {
	case d.Immediate:
		op2 = imm(bits.RotateLeft32(uint32(d.Imm8), -2*int(d.Rotate)))
	case d.ShiftByRegister:
		op2 = fmt.Sprintf("%s, %s %s", reg(d.Rm), d.ShiftType, reg(d.Rs))
	default:
		op2 = reg(d.Rm) + shiftSuffix(d.ShiftType, d.ShiftAmount)
	}

	mnemonic := d.Opcode.String() + condSuffix(d.Condition)
	if d.SetFlags && !d.Opcode.IsTest() {
		mnemonic += "s"
	}

	switch {
	case d.Opcode == OpMOV || d.Opcode == OpMVN:
		return fmt.Sprintf("%s %s, %s", mnemonic, reg(d.Rd), op2)
	case d.Opcode.IsTest():
		return fmt.Sprintf("%s %s, %s", mnemonic, reg(d.Rn), op2)
	default:
		return fmt.Sprintf("%s %s, %s, %s", mnemonic, reg(d.Rd), reg(d.Rn), op2)
	}
}

func disasmBranch(b *Branch) string {
	mnemonic := "b"
	if b.Link {
		mnemonic = "bl"
	}
	return fmt.Sprintf("%s%s #%d", mnemonic, condSuffix(b.Condition), b.Offset)
}

func disasmSingleDataTransfer(s *SingleDataTransfer) string {
	mnemonic := "str"
	if s.Load {
		mnemonic = "ldr"
	}
	mnemonic += condSuffix(s.Condition)
	if s.Byte {
		mnemonic += "b"
	}
	if !s.PreIndex && s.WriteBack {
		mnemonic += "t"
	}

	sign := ""
	if !s.Up {
		sign = "-"
	}

	var offset string
	if s.RegisterOffset {
		offset = sign + reg(s.Rm) + shiftSuffix(s.ShiftType, s.ShiftAmount)
	} else if s.Offset != 0 {
		offset = fmt.Sprintf("#%s%d", sign, s.Offset)
	}

	switch {
	case !s.PreIndex:
		if offset == "" {
			offset = "#0"
		}
		return fmt.Sprintf("%s %s, [%s], %s", mnemonic, reg(s.Rd), reg(s.Rn), offset)
	case offset == "":
		return fmt.Sprintf("%s %s, [%s]%s", mnemonic, reg(s.Rd), reg(s.Rn), bang(s.WriteBack))
	default:
		return fmt.Sprintf("%s %s, [%s, %s]%s", mnemonic, reg(s.Rd), reg(s.Rn), offset, bang(s.WriteBack))
	}
}

func disasmBlockDataTransfer(b *BlockDataTransfer) string {
	mnemonic := "stm"
	if b.Load {
		mnemonic = "ldm"
	}

	mode := "ia"
	switch {
	case b.PreIndex && b.Up:
		mode = "ib"
	case b.PreIndex && !b.Up:
		mode = "db"
	case !b.PreIndex && !b.Up:
		mode = "da"
	}

	regs := b.Registers()
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = reg(r)
	}

	hat := ""
	if b.PSR {
		hat = "^"
	}

	return fmt.Sprintf("%s%s%s %s%s, {%s}%s",
		mnemonic, condSuffix(b.Condition), mode,
		reg(b.Rn), bang(b.WriteBack), strings.Join(names, ", "), hat)
}

func bang(writeBack bool) string {
	if writeBack {
		return "!"
	}
	return ""
}
