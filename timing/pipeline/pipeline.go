package pipeline

import (
	"github.com/go-logr/logr"

	"github.com/ouharetaso/armv4t/emu"
	"github.com/ouharetaso/armv4t/insts"
	"github.com/ouharetaso/armv4t/timing/latency"
)

// Stage reports which latches hold work.
type Stage uint8

// Pipeline stages, by the furthest latch that is occupied.
const (
	// StageEmpty means nothing is fetched. The next step only fetches.
	StageEmpty Stage = iota
	// StageFetched means a raw word waits to be decoded.
	StageFetched
	// StageDecoded means a decoded instruction waits to be executed.
	StageDecoded
)

func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StageFetched:
		return "fetched"
	case StageDecoded:
		return "decoded"
	default:
		return "unknown"
	}
}

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Steps is the number of Step calls.
	Steps uint64
	// Instructions is the number of instructions executed with their
	// condition passing.
	Instructions uint64
	// Skipped is the number of instructions whose condition failed.
	Skipped uint64
	// Flushes is the number of pipeline flushes caused by PC writes.
	Flushes uint64
	// MemoryOps is the number of executed loads and stores.
	MemoryOps uint64
	// Faults is the number of steps that returned a fault.
	Faults uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Retired describes the last instruction that left the Execute stage.
type Retired struct {
	PC     uint32
	Inst   insts.Instruction
	Result emu.ExecResult
	Cycles uint64
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithLatencyTable sets a custom latency table for instruction timing.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger logr.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// Pipeline implements the ARM7 three-stage pipeline.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX)
//
// One Step advances every stage once. While an instruction executes, r15
// reads as its address + 8.
type Pipeline struct {
	// Pipeline latches
	fetch  FetchLatch
	decode DecodeLatch

	// Stages
	fetchStage  *FetchStage
	decodeStage *DecodeStage
	emulator    *emu.Emulator

	// Shared resources
	regFile      *emu.RegFile
	latencyTable *latency.Table
	logger       logr.Logger

	// Statistics
	stats Statistics
	last  Retired
	ran   bool
}

// NewPipeline creates a pipeline that executes through the given emulator
// and fetches over the emulator's bus.
func NewPipeline(e *emu.Emulator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		emulator: e,
		regFile:  e.RegFile(),
		logger:   logr.Discard(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.latencyTable == nil {
		p.latencyTable = latency.NewTable()
	}
	p.fetchStage = NewFetchStage(e.Bus(), e.Policy(), p.logger)
	p.decodeStage = NewDecodeStage()

	return p
}

// Stage reports the pipeline state.
func (p *Pipeline) Stage() Stage {
	switch {
	case p.decode.Valid:
		return StageDecoded
	case p.fetch.Valid:
		return StageFetched
	default:
		return StageEmpty
	}
}

// Pending returns the decoded instruction waiting to execute, if any.
func (p *Pipeline) Pending() (insts.Instruction, bool) {
	if !p.decode.Valid {
		return nil, false
	}
	return p.decode.Inst, true
}

// Last returns the instruction most recently retired from Execute.
func (p *Pipeline) Last() (Retired, bool) {
	return p.last, p.ran
}

// Stats returns the pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// LatencyTable returns the latency table.
func (p *Pipeline) LatencyTable() *latency.Table {
	return p.latencyTable
}

// Step advances the pipeline by one stage.
//
// The word in the fetch latch is decoded, the word at PC is fetched and PC
// advances by 4, then the decoded instruction (if any) executes. A PC write
// flushes both latches. On a fault the instruction stays pending and the
// next Step retries it without fetching.
func (p *Pipeline) Step() error {
	p.stats.Steps++

	if !p.decode.Valid {
		if p.fetch.Valid {
			p.decode = p.decodeStage.Decode(p.fetch)
			p.fetch.Clear()
		}
		pc := p.regFile.PC()
		p.fetch = p.fetchStage.Fetch(pc)
		p.regFile.SetPC(pc + 4)
	}

	if !p.decode.Valid {
		p.stats.Cycles += p.latencyTable.FetchOnlyLatency()
		return nil
	}

	return p.execute()
}

func (p *Pipeline) execute() error {
	latch := p.decode

	if latch.Abort != nil {
		p.stats.Faults++
		return &emu.Fault{
			Category: emu.FaultPrefetchAbort,
			PC:       latch.PC,
			Addr:     latch.PC,
			Err:      latch.Abort,
		}
	}

	result, err := p.emulator.Execute(latch.Inst)
	if err != nil {
		p.stats.Faults++
		return err
	}
	p.decode.Clear()

	var cycles uint64
	if result.Executed {
		cycles = p.latencyTable.GetLatency(latch.Inst)
		p.stats.Instructions++
		if p.latencyTable.IsMemoryOp(latch.Inst) {
			p.stats.MemoryOps++
		}
	} else {
		cycles = p.latencyTable.SkippedLatency()
		p.stats.Skipped++
	}
	p.stats.Cycles += cycles

	p.last = Retired{PC: latch.PC, Inst: latch.Inst, Result: result, Cycles: cycles}
	p.ran = true

	if result.Branched {
		p.Flush()
		p.stats.Flushes++
		if log := p.logger.V(1); log.Enabled() {
			log.Info("flush", "from", latch.PC, "target", p.regFile.PC())
		}
	}
	return nil
}

// Flush empties both latches. The next Step fetches from the current PC.
// Only flushes caused by executed PC writes are counted in Statistics.
func (p *Pipeline) Flush() {
	p.fetch.Clear()
	p.decode.Clear()
}

// Reset empties the pipeline and clears the statistics. The register file is
// left alone.
func (p *Pipeline) Reset() {
	p.fetch.Clear()
	p.decode.Clear()
	p.stats = Statistics{}
	p.last = Retired{}
	p.ran = false
}
