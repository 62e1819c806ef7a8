// Package cache provides a write-back cache model using Akita cache
// components.
package cache

import (
	"github.com/ouharetaso/armv4t/bus"
)

// BusBacking adapts a bus.Bus as a BackingStore. Lines move as consecutive
// word accesses.
type BusBacking struct {
	bus bus.Bus
}

// NewBusBacking creates a new BusBacking adapter.
func NewBusBacking(b bus.Bus) *BusBacking {
	return &BusBacking{bus: b}
}

// Read fetches size bytes starting at the word-aligned addr.
func (m *BusBacking) Read(addr uint32, size int) ([]byte, error) {
	data := make([]byte, size)
	for i := 0; i < size; i += 4 {
		word, err := bus.ReadWord(m.bus, addr+uint32(i))
		if err != nil {
			return nil, err
		}
		storeData(data, uint32(i), 4, word)
	}
	return data, nil
}

// Write stores data starting at the word-aligned addr.
func (m *BusBacking) Write(addr uint32, data []byte) error {
	for i := 0; i+4 <= len(data); i += 4 {
		if err := bus.WriteWord(m.bus, addr+uint32(i), extractData(data, uint32(i), 4)); err != nil {
			return err
		}
	}
	return nil
}
