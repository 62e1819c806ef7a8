package loader

import (
	"errors"
	"fmt"
	"os"

	"github.com/ouharetaso/armv4t/bus"
)

// ErrEmptyProgram is returned for a flat binary with no bytes.
var ErrEmptyProgram = errors.New("empty program")

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment is a contiguous block of program memory.
type Segment struct {
	// Addr is where the segment is loaded.
	Addr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory. Bytes past len(Data) are zero.
	MemSize uint32
	// Flags contains the segment protection flags. They are informational;
	// the flat memory does not enforce them.
	Flags SegmentFlags
}

// Program is a loaded image ready to be installed into memory.
type Program struct {
	// Entry is the address where execution should begin.
	Entry uint32
	// Segments contains all loadable segments.
	Segments []Segment
}

// LoadBinary reads a flat little-endian image to be placed at base. The
// entry point is base.
func LoadBinary(path string, base uint32) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read binary: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyProgram)
	}

	return &Program{
		Entry: base,
		Segments: []Segment{{
			Addr:    base,
			Data:    data,
			MemSize: uint32(len(data)),
			Flags:   SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}, nil
}

// Install copies every segment into memory and zero-fills the part of each
// segment that has no file data.
func (p *Program) Install(m *bus.Memory) error {
	for _, seg := range p.Segments {
		if err := m.Load(seg.Addr, seg.Data); err != nil {
			return fmt.Errorf("install segment at 0x%08X: %w", seg.Addr, err)
		}

		if seg.MemSize > uint32(len(seg.Data)) {
			bss := make([]byte, seg.MemSize-uint32(len(seg.Data)))
			if err := m.Load(seg.Addr+uint32(len(seg.Data)), bss); err != nil {
				return fmt.Errorf("zero segment at 0x%08X: %w", seg.Addr, err)
			}
		}
	}
	return nil
}

// Size returns the number of bytes the program occupies in memory.
func (p *Program) Size() uint64 {
	var total uint64
	for _, seg := range p.Segments {
		total += uint64(seg.MemSize)
	}
	return total
}
