package bus

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// DefaultMemorySize is the size of the flat memory used by the CLI (64KiB).
const DefaultMemorySize = 0x10000

// Memory is a flat, little-endian, byte-addressed memory. Word accesses may
// be unaligned; bytes are assembled from addr, addr+1, addr+2, addr+3.
type Memory struct {
	storage *mem.Storage
}

// NewMemory creates a zero-filled memory of the given size in bytes.
func NewMemory(size uint64) *Memory {
	return &Memory{storage: mem.NewStorage(size)}
}

// Size returns the capacity in bytes.
func (m *Memory) Size() uint64 {
	return m.storage.Capacity
}

// Access implements Bus.
func (m *Memory) Access(addr uint32, data *uint32, dir Direction) (uint32, error) {
	switch dir {
	case Read:
		value, err := m.Read32(addr)
		if err != nil {
			return 0, err
		}
		*data = value
		return value, nil
	case Write:
		if err := m.Write32(addr, *data); err != nil {
			return 0, err
		}
		return *data, nil
	default:
		return 0, fmt.Errorf("invalid bus %v at 0x%08X", dir, addr)
	}
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint32) (uint32, error) {
	buf, err := m.read(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	return m.write(addr, buf[:])
}

// Read8 reads a single byte.
func (m *Memory) Read8(addr uint32) (uint8, error) {
	buf, err := m.read(addr, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Load copies data into memory starting at addr.
func (m *Memory) Load(addr uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return m.write(addr, data)
}

// LoadWords stores consecutive words starting at addr.
func (m *Memory) LoadWords(addr uint32, words ...uint32) error {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return m.Load(addr, buf)
}

func (m *Memory) read(addr uint32, n uint64) ([]byte, error) {
	if err := m.check(addr, n); err != nil {
		return nil, err
	}
	buf, err := m.storage.Read(uint64(addr), n)
	if err != nil {
		return nil, fmt.Errorf("read 0x%08X: %w", addr, err)
	}
	return buf, nil
}

func (m *Memory) write(addr uint32, data []byte) error {
	if err := m.check(addr, uint64(len(data))); err != nil {
		return err
	}
	if err := m.storage.Write(uint64(addr), data); err != nil {
		return fmt.Errorf("write 0x%08X: %w", addr, err)
	}
	return nil
}

func (m *Memory) check(addr uint32, n uint64) error {
	if uint64(addr)+n > m.storage.Capacity {
		return fmt.Errorf("access of %d bytes at 0x%08X: %w", n, addr, ErrOutOfRange)
	}
	return nil
}
