// Package emu provides functional ARMv4T emulation.
package emu

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/ouharetaso/armv4t/bus"
	"github.com/ouharetaso/armv4t/insts"
)

// PipelineOffset is how far r15 reads ahead of the executing instruction.
const PipelineOffset = 8

// ExecResult reports the outcome of executing one instruction.
type ExecResult struct {
	// Executed is false when the condition check failed.
	Executed bool

	// Branched is true when the instruction wrote the PC. The fetched and
	// decoded instructions behind it are stale.
	Branched bool
}

// Emulator executes decoded ARMv4T instructions against a register file and
// a bus. It does not fetch; r15 must already read as the address of the
// instruction plus PipelineOffset.
type Emulator struct {
	regFile *RegFile
	bus     bus.Bus
	policy  BusFaultPolicy
	logger  logr.Logger

	// Execution units
	shifter    *Shifter
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	// Execution state
	instructionCount uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger logr.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithBusFaultPolicy sets how failed bus accesses are handled.
func WithBusFaultPolicy(policy BusFaultPolicy) EmulatorOption {
	return func(e *Emulator) {
		e.policy = policy
	}
}

// WithRegFile makes the emulator operate on an existing register file.
func WithRegFile(regFile *RegFile) EmulatorOption {
	return func(e *Emulator) {
		e.regFile = regFile
	}
}

// NewEmulator creates a new emulator over the given bus.
func NewEmulator(b bus.Bus, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		bus:    b,
		policy: BusFaultAbort,
		logger: logr.Discard(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.regFile == nil {
		e.regFile = NewRegFile()
	}

	// Create execution units
	e.shifter = NewShifter(e.regFile)
	e.alu = NewALU(e.regFile)
	e.lsu = NewLoadStoreUnit(e.regFile, e.bus, e.policy, e.logger)
	e.branchUnit = NewBranchUnit(e.regFile)

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Bus returns the bus the emulator accesses.
func (e *Emulator) Bus() bus.Bus {
	return e.bus
}

// Policy returns the bus fault policy.
func (e *Emulator) Policy() BusFaultPolicy {
	return e.policy
}

// InstructionCount returns the number of instructions whose condition
// passed and that completed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Reset zeroes the instruction count. The register file is left alone.
func (e *Emulator) Reset() {
	e.instructionCount = 0
}

// Execute runs one decoded instruction. A failed condition is a no-op. The
// returned error is a *Fault; on a fault no register has been written.
func (e *Emulator) Execute(inst insts.Instruction) (ExecResult, error) {
	pc := e.regFile.PC() - PipelineOffset

	if !ConditionPassed(inst.Cond(), e.regFile.CPSR()) {
		if log := e.logger.V(2); log.Enabled() {
			log.Info("condition failed", "pc", pc, "inst", inst.String())
		}
		return ExecResult{}, nil
	}

	branched, err := e.execute(inst)
	if err != nil {
		return ExecResult{}, e.annotate(err, pc, inst)
	}

	e.instructionCount++
	if log := e.logger.V(1); log.Enabled() {
		log.Info("execute", "pc", pc, "inst", inst.String(), "branched", branched)
	}
	return ExecResult{Executed: true, Branched: branched}, nil
}

func (e *Emulator) execute(inst insts.Instruction) (bool, error) {
	switch inst := inst.(type) {
	case *insts.DataProcess:
		op2, carry := e.shifter.Operand2(inst)
		return e.alu.DataProcess(inst, op2, carry), nil
	case *insts.Branch:
		e.branchUnit.Branch(inst)
		return true, nil
	case *insts.SingleDataTransfer:
		return e.lsu.SingleDataTransfer(inst)
	case *insts.BlockDataTransfer:
		return e.lsu.BlockDataTransfer(inst)
	case *insts.Multiply,
		*insts.PSRTransfer,
		*insts.BranchExchange,
		*insts.LoadStoreExtension,
		*insts.CoprocDataTransfer,
		*insts.CoprocDataOperation,
		*insts.CoprocRegisterTransfer,
		*insts.SoftwareInterrupt,
		*insts.Undefined:
		return false, unimplemented(inst)
	default:
		return false, unimplemented(inst)
	}
}

func unimplemented(inst insts.Instruction) error {
	return &Fault{
		Category: FaultUnimplementedInstruction,
		Err:      fmt.Errorf("%v: %w", inst.Kind(), ErrUnimplemented),
	}
}

// annotate fills in the instruction address and encoding.
func (e *Emulator) annotate(err error, pc uint32, inst insts.Instruction) error {
	var fault *Fault
	if !errors.As(err, &fault) {
		return err
	}
	fault.PC = pc
	fault.Raw = inst.Raw()
	return fault
}
