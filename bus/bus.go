// Package bus defines the word-access contract between the simulated core
// and the memory system, and provides a flat memory implementation.
package bus

import (
	"errors"
	"fmt"
)

// Direction selects whether an access reads or writes.
type Direction uint8

// Access directions.
const (
	Read Direction = iota
	Write
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ErrOutOfRange is wrapped by accesses outside the backing store.
var ErrOutOfRange = errors.New("address out of range")

// Bus performs single-word accesses by address.
//
// On Read the implementation stores the word at addr into *data. On Write it
// persists *data at addr. The returned word is the value transferred. A
// non-nil error reports a bus fault; the core decides whether to abort the
// instruction or carry on.
type Bus interface {
	Access(addr uint32, data *uint32, dir Direction) (uint32, error)
}

// ReadWord is a convenience wrapper for a single read access.
func ReadWord(b Bus, addr uint32) (uint32, error) {
	var data uint32
	return b.Access(addr, &data, Read)
}

// WriteWord is a convenience wrapper for a single write access.
func WriteWord(b Bus, addr uint32, value uint32) error {
	data := value
	_, err := b.Access(addr, &data, Write)
	return err
}
