package insts

func b2u(b bool, pos uint) uint32 {
	if b {
		return 1 << pos
	}
	return 0
}

func (h Header) condBits() uint32 {
	return uint32(h.Condition&0xF) << 28
}

// Encode returns the machine word for the instruction.
func (d *DataProcess) Encode() uint32 {
	word := d.condBits() |
		b2u(d.Immediate, 25) |
		uint32(d.Opcode&0xF)<<21 |
		b2u(d.SetFlags, 20) |
		uint32(d.Rn&0xF)<<16 |
		uint32(d.Rd&0xF)<<12

	switch {
	case d.Immediate:
		word |= uint32(d.Rotate&0xF)<<8 | uint32(d.Imm8)
	case d.ShiftByRegister:
		word |= uint32(d.Rs&0xF)<<8 | uint32(d.ShiftType&0x3)<<5 | 1<<4 | uint32(d.Rm&0xF)
	default:
		word |= uint32(d.ShiftAmount&0x1F)<<7 | uint32(d.ShiftType&0x3)<<5 | uint32(d.Rm&0xF)
	}
	return word
}

// Encode returns the machine word for the instruction. Offset must be a
// multiple of 4 within the signed 26-bit range.
func (b *Branch) Encode() uint32 {
	return b.condBits() | 0b101<<25 | b2u(b.Link, 24) | (uint32(b.Offset)>>2)&0xFFFFFF
}

// Encode returns the machine word for the instruction.
func (s *SingleDataTransfer) Encode() uint32 {
	word := s.condBits() | 0b01<<26 |
		b2u(s.RegisterOffset, 25) |
		b2u(s.PreIndex, 24) |
		b2u(s.Up, 23) |
		b2u(s.Byte, 22) |
		b2u(s.WriteBack, 21) |
		b2u(s.Load, 20) |
		uint32(s.Rn&0xF)<<16 |
		uint32(s.Rd&0xF)<<12

	if s.RegisterOffset {
		word |= uint32(s.ShiftAmount&0x1F)<<7 | uint32(s.ShiftType&0x3)<<5 | uint32(s.Rm&0xF)
	} else {
		word |= uint32(s.Offset & 0xFFF)
	}
	return word
}

// Encode returns the machine word for the instruction.
func (b *BlockDataTransfer) Encode() uint32 {
	return b.condBits() | 0b100<<25 |
		b2u(b.PreIndex, 24) |
		b2u(b.Up, 23) |
		b2u(b.PSR, 22) |
		b2u(b.WriteBack, 21) |
		b2u(b.Load, 20) |
		uint32(b.Rn&0xF)<<16 |
		uint32(b.RegisterList)
}
