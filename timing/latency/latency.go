// Package latency provides instruction timing models for cycle-approximate
// simulation.
//
// The latency values approximate an ARM7TDMI-class core and can be
// configured via TimingConfig.
package latency

import (
	"github.com/ouharetaso/armv4t/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for an instruction
// whose condition passed.
func (t *Table) GetLatency(inst insts.Instruction) uint64 {
	switch inst := inst.(type) {
	case nil:
		return 1

	case *insts.DataProcess:
		cycles := t.config.ALULatency
		if !inst.Immediate && inst.ShiftByRegister {
			cycles += t.config.RegisterShiftLatency
		}
		if inst.WritesResult() && inst.Rd == 15 {
			cycles += t.config.BranchLatency
		}
		return cycles

	case *insts.Branch:
		return t.config.BranchLatency

	case *insts.SingleDataTransfer:
		if inst.Load {
			return t.config.LoadLatency
		}
		return t.config.StoreLatency

	case *insts.BlockDataTransfer:
		return t.config.BlockTransferBaseLatency +
			t.config.BlockTransferPerRegister*uint64(inst.Count())

	default:
		return 1
	}
}

// SkippedLatency returns the cost of an instruction whose condition failed.
func (t *Table) SkippedLatency() uint64 {
	return t.config.SkippedLatency
}

// FetchOnlyLatency returns the cost of a step that executes nothing.
func (t *Table) FetchOnlyLatency() uint64 {
	return t.config.FetchOnlyLatency
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst insts.Instruction) bool {
	switch inst := inst.(type) {
	case *insts.SingleDataTransfer:
		return inst.Load
	case *insts.BlockDataTransfer:
		return inst.Load
	default:
		return false
	}
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst insts.Instruction) bool {
	switch inst := inst.(type) {
	case *insts.SingleDataTransfer:
		return !inst.Load
	case *insts.BlockDataTransfer:
		return !inst.Load
	default:
		return false
	}
}

// IsBranchOp returns true if the instruction is a B or BL.
func (t *Table) IsBranchOp(inst insts.Instruction) bool {
	_, ok := inst.(*insts.Branch)
	return ok
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
