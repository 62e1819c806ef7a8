// Package pipeline provides the three-stage fetch/decode/execute pipeline
// for timing simulation.
package pipeline

import "github.com/ouharetaso/armv4t/insts"

// FetchLatch holds state between the Fetch and Decode stages.
type FetchLatch struct {
	// Valid indicates if this latch contains a fetched word.
	Valid bool

	// PC is the address the word was fetched from.
	PC uint32

	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32

	// Abort is the bus error of a failed fetch. It is raised as a prefetch
	// abort only if the word reaches Execute.
	Abort error
}

// Clear resets the latch to empty state.
func (l *FetchLatch) Clear() {
	*l = FetchLatch{}
}

// DecodeLatch holds state between the Decode and Execute stages.
type DecodeLatch struct {
	// Valid indicates if this latch contains a decoded instruction.
	Valid bool

	// PC is the address of the instruction.
	PC uint32

	// Inst is the decoded instruction.
	Inst insts.Instruction

	// Abort is carried over from the fetch latch.
	Abort error
}

// Clear resets the latch to empty state.
func (l *DecodeLatch) Clear() {
	*l = DecodeLatch{}
}
