package insts

// Decoder decodes ARM machine code into instructions.
type Decoder struct {
	formats []Format
}

// NewDecoder creates a new ARM instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{formats: formatTable}
}

// Formats returns the format table in match order.
func (d *Decoder) Formats() []Format {
	out := make([]Format, len(d.formats))
	copy(out, d.formats)
	return out
}

// Lookup returns the first format that matches word.
func (d *Decoder) Lookup(word uint32) (Format, bool) {
	for _, f := range d.formats {
		if f.Matches(word) {
			return f, true
		}
	}
	return Format{}, false
}

// Decode decodes a 32-bit ARM instruction word. It never fails: a word that
// matches no format becomes *Undefined.
func (d *Decoder) Decode(word uint32) Instruction {
	h := Header{Condition: Cond(word >> 28), Word: word}

	f, ok := d.Lookup(word)
	if !ok {
		return &Undefined{Header: h}
	}
	return f.parse(h, word)
}

// Decode decodes word with the default format table.
func Decode(word uint32) Instruction {
	return defaultDecoder.Decode(word)
}

var defaultDecoder = &Decoder{formats: formatTable}

func bit(word uint32, n uint) bool {
	return (word>>n)&1 == 1
}

func field(word uint32, hi, lo uint) uint32 {
	return (word >> lo) & (uint32(1)<<(hi-lo+1) - 1)
}

func parseUndefined(h Header, _ uint32) Instruction {
	return &Undefined{Header: h}
}

// parseDataProcess decodes Data Processing instructions.
// Format: cond | 00 | I | opcode | S | Rn | Rd | operand2
func parseDataProcess(h Header, word uint32) Instruction {
	inst := &DataProcess{
		Header:    h,
		Opcode:    Opcode(field(word, 24, 21)),
		SetFlags:  bit(word, 20),
		Rn:        uint8(field(word, 19, 16)),
		Rd:        uint8(field(word, 15, 12)),
		Immediate: bit(word, 25),
	}

	if inst.Immediate {
		inst.Rotate = uint8(field(word, 11, 8))
		inst.Imm8 = uint8(word)
		return inst
	}

	inst.Rm = uint8(field(word, 3, 0))
	inst.ShiftType = ShiftType(field(word, 6, 5))
	inst.ShiftByRegister = bit(word, 4)
	if inst.ShiftByRegister {
		inst.Rs = uint8(field(word, 11, 8))
	} else {
		inst.ShiftAmount = uint8(field(word, 11, 7))
	}
	return inst
}

// parseMultiply decodes MUL and MLA.
// Format: cond | 000000 | A | S | Rd | Rn | Rs | 1001 | Rm
func parseMultiply(h Header, word uint32) Instruction {
	return &Multiply{
		Header:     h,
		Accumulate: bit(word, 21),
		SetFlags:   bit(word, 20),
		Rd:         uint8(field(word, 19, 16)),
		Rn:         uint8(field(word, 15, 12)),
		Rs:         uint8(field(word, 11, 8)),
		Rm:         uint8(field(word, 3, 0)),
	}
}

// parseMultiplyLong decodes UMULL, UMLAL, SMULL and SMLAL.
// Format: cond | 00001 | U | A | S | RdHi | RdLo | Rs | 1001 | Rm
func parseMultiplyLong(h Header, word uint32) Instruction {
	return &Multiply{
		Header:     h,
		Long:       true,
		Signed:     bit(word, 22),
		Accumulate: bit(word, 21),
		SetFlags:   bit(word, 20),
		RdHi:       uint8(field(word, 19, 16)),
		RdLo:       uint8(field(word, 15, 12)),
		Rs:         uint8(field(word, 11, 8)),
		Rm:         uint8(field(word, 3, 0)),
	}
}

// parseSwap decodes SWP and SWPB.
// Format: cond | 00010 | B | 00 | Rn | Rd | 00001001 | Rm
func parseSwap(h Header, word uint32) Instruction {
	return &LoadStoreExtension{
		Header: h,
		Swap:   true,
		Byte:   bit(word, 22),
		Rn:     uint8(field(word, 19, 16)),
		Rd:     uint8(field(word, 15, 12)),
		Rm:     uint8(field(word, 3, 0)),
	}
}

// parseExtension decodes halfword and signed data transfers.
// Format: cond | 000 | P | U | I | W | L | Rn | Rd | offHi | 1 | S | H | 1 | offLo
func parseExtension(h Header, word uint32) Instruction {
	inst := &LoadStoreExtension{
		Header:          h,
		PreIndex:        bit(word, 24),
		Up:              bit(word, 23),
		ImmediateOffset: bit(word, 22),
		WriteBack:       bit(word, 21),
		Load:            bit(word, 20),
		Rn:              uint8(field(word, 19, 16)),
		Rd:              uint8(field(word, 15, 12)),
		Signed:          bit(word, 6),
		Halfword:        bit(word, 5),
	}
	if inst.ImmediateOffset {
		inst.Offset = uint8(field(word, 11, 8)<<4 | field(word, 3, 0))
	} else {
		inst.Rm = uint8(field(word, 3, 0))
	}
	return inst
}

// parseMRS decodes MRS.
// Format: cond | 00010 | Ps | 001111 | Rd | 000000000000
func parseMRS(h Header, word uint32) Instruction {
	return &PSRTransfer{
		Header: h,
		SPSR:   bit(word, 22),
		Rd:     uint8(field(word, 15, 12)),
	}
}

// parseMSR decodes both MSR forms.
// Format: cond | 00 | I | 10 | Pd | 10 | mask | 1111 | operand
func parseMSR(h Header, word uint32) Instruction {
	inst := &PSRTransfer{
		Header:    h,
		ToPSR:     true,
		SPSR:      bit(word, 22),
		Immediate: bit(word, 25),
		FieldMask: uint8(field(word, 19, 16)),
	}
	if inst.Immediate {
		inst.Rotate = uint8(field(word, 11, 8))
		inst.Imm8 = uint8(word)
	} else {
		inst.Rm = uint8(field(word, 3, 0))
	}
	return inst
}

// parseBranchExchange decodes BX.
// Format: cond | 000100101111111111110001 | Rm
func parseBranchExchange(h Header, word uint32) Instruction {
	return &BranchExchange{Header: h, Rm: uint8(field(word, 3, 0))}
}

// parseSingleDataTransfer decodes LDR and STR.
// Format: cond | 01 | I | P | U | B | W | L | Rn | Rd | offset
func parseSingleDataTransfer(h Header, word uint32) Instruction {
	inst := &SingleDataTransfer{
		Header:         h,
		RegisterOffset: bit(word, 25),
		PreIndex:       bit(word, 24),
		Up:             bit(word, 23),
		Byte:           bit(word, 22),
		WriteBack:      bit(word, 21),
		Load:           bit(word, 20),
		Rn:             uint8(field(word, 19, 16)),
		Rd:             uint8(field(word, 15, 12)),
	}
	if inst.RegisterOffset {
		inst.Rm = uint8(field(word, 3, 0))
		inst.ShiftType = ShiftType(field(word, 6, 5))
		inst.ShiftAmount = uint8(field(word, 11, 7))
	} else {
		inst.Offset = uint16(field(word, 11, 0))
	}
	return inst
}

// parseBlockDataTransfer decodes LDM and STM.
// Format: cond | 100 | P | U | S | W | L | Rn | register list
func parseBlockDataTransfer(h Header, word uint32) Instruction {
	return &BlockDataTransfer{
		Header:       h,
		PreIndex:     bit(word, 24),
		Up:           bit(word, 23),
		PSR:          bit(word, 22),
		WriteBack:    bit(word, 21),
		Load:         bit(word, 20),
		Rn:           uint8(field(word, 19, 16)),
		RegisterList: uint16(word),
	}
}

// parseBranch decodes B and BL.
// Format: cond | 101 | L | imm24
func parseBranch(h Header, word uint32) Instruction {
	// Shift imm24 to the top, then arithmetic-shift back down by 6 to
	// sign-extend and multiply by 4 in one step.
	offset := int32(word<<8) >> 6
	return &Branch{Header: h, Link: bit(word, 24), Offset: offset}
}

// parseCoprocDataTransfer decodes LDC and STC.
// Format: cond | 110 | P | U | N | W | L | Rn | CRd | CP# | offset
func parseCoprocDataTransfer(h Header, word uint32) Instruction {
	return &CoprocDataTransfer{
		Header:    h,
		PreIndex:  bit(word, 24),
		Up:        bit(word, 23),
		Long:      bit(word, 22),
		WriteBack: bit(word, 21),
		Load:      bit(word, 20),
		Rn:        uint8(field(word, 19, 16)),
		CRd:       uint8(field(word, 15, 12)),
		CPNum:     uint8(field(word, 11, 8)),
		Offset:    uint8(word),
	}
}

// parseCoprocDataOperation decodes CDP.
// Format: cond | 1110 | op1 | CRn | CRd | CP# | op2 | 0 | CRm
func parseCoprocDataOperation(h Header, word uint32) Instruction {
	return &CoprocDataOperation{
		Header:  h,
		Opcode1: uint8(field(word, 23, 20)),
		CRn:     uint8(field(word, 19, 16)),
		CRd:     uint8(field(word, 15, 12)),
		CPNum:   uint8(field(word, 11, 8)),
		Opcode2: uint8(field(word, 7, 5)),
		CRm:     uint8(field(word, 3, 0)),
	}
}

// parseCoprocRegisterTransfer decodes MCR and MRC.
// Format: cond | 1110 | op1 | L | CRn | Rd | CP# | op2 | 1 | CRm
func parseCoprocRegisterTransfer(h Header, word uint32) Instruction {
	return &CoprocRegisterTransfer{
		Header:  h,
		Opcode1: uint8(field(word, 23, 21)),
		Load:    bit(word, 20),
		CRn:     uint8(field(word, 19, 16)),
		Rd:      uint8(field(word, 15, 12)),
		CPNum:   uint8(field(word, 11, 8)),
		Opcode2: uint8(field(word, 7, 5)),
		CRm:     uint8(field(word, 3, 0)),
	}
}

// parseSoftwareInterrupt decodes SWI.
// Format: cond | 1111 | comment
func parseSoftwareInterrupt(h Header, word uint32) Instruction {
	return &SoftwareInterrupt{Header: h, Comment: word & 0xFFFFFF}
}
