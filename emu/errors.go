// Package emu provides functional ARMv4T emulation.
package emu

import (
	"errors"
	"fmt"
)

// ErrUnimplemented is wrapped by faults for instruction classes the
// emulator decodes but does not execute.
var ErrUnimplemented = errors.New("unimplemented instruction")

// FaultCategory classifies a Fault.
type FaultCategory uint8

// Fault categories.
const (
	FaultUnimplementedInstruction FaultCategory = iota
	FaultDataAbort
	FaultPrefetchAbort
)

func (c FaultCategory) String() string {
	switch c {
	case FaultUnimplementedInstruction:
		return "unimplemented instruction"
	case FaultDataAbort:
		return "data abort"
	case FaultPrefetchAbort:
		return "prefetch abort"
	default:
		return fmt.Sprintf("fault(%d)", uint8(c))
	}
}

// Fault is returned when an instruction cannot complete. Registers are left
// as they were before the instruction.
type Fault struct {
	Category FaultCategory
	PC       uint32 // address of the faulting instruction
	Raw      uint32 // its encoding
	Addr     uint32 // bus address for aborts
	Err      error
}

func (f *Fault) Error() string {
	switch f.Category {
	case FaultDataAbort, FaultPrefetchAbort:
		return fmt.Sprintf("%v at PC=0x%08X (addr 0x%08X): %v", f.Category, f.PC, f.Addr, f.Err)
	default:
		return fmt.Sprintf("%v 0x%08X at PC=0x%08X: %v", f.Category, f.Raw, f.PC, f.Err)
	}
}

// Unwrap returns the underlying error.
func (f *Fault) Unwrap() error {
	return f.Err
}

// BusFaultPolicy selects what happens when a bus access fails.
type BusFaultPolicy uint8

// Bus fault policies.
const (
	// BusFaultAbort fails the instruction with a data abort before any
	// register is written.
	BusFaultAbort BusFaultPolicy = iota
	// BusFaultIgnore logs the error and carries on. A failed read yields 0.
	BusFaultIgnore
)

func (p BusFaultPolicy) String() string {
	switch p {
	case BusFaultAbort:
		return "abort"
	case BusFaultIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// ParseBusFaultPolicy parses "abort" or "ignore".
func ParseBusFaultPolicy(s string) (BusFaultPolicy, error) {
	switch s {
	case "abort":
		return BusFaultAbort, nil
	case "ignore":
		return BusFaultIgnore, nil
	default:
		return 0, fmt.Errorf("unknown bus fault policy %q", s)
	}
}
