// Package core provides the cycle-approximate CPU core model.
// It wraps the pipeline implementation to provide a high-level interface.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/ouharetaso/armv4t/bus"
	"github.com/ouharetaso/armv4t/emu"
	"github.com/ouharetaso/armv4t/timing/cache"
	"github.com/ouharetaso/armv4t/timing/latency"
	"github.com/ouharetaso/armv4t/timing/pipeline"
)

// ErrHalted is returned by Step after a fault until the core is Reset.
var ErrHalted = errors.New("core halted")

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated, memory stalls
	// included.
	Cycles uint64
	// Steps is the number of pipeline steps.
	Steps uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Skipped is the number of instructions whose condition failed.
	Skipped uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// MemoryOps is the number of loads and stores retired.
	MemoryOps uint64
	// MemoryStalls is the number of cycles lost to cache misses.
	MemoryStalls uint64
	// Cache holds cache statistics when a cache is attached.
	Cache *cache.Statistics
}

// CPI returns the cycles per instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// CoreOption is a functional option for configuring the Core.
type CoreOption func(*Core)

// WithLatencyTable sets the instruction timing.
func WithLatencyTable(table *latency.Table) CoreOption {
	return func(c *Core) {
		c.latencyTable = table
	}
}

// WithBusFaultPolicy sets how failed bus accesses are handled.
func WithBusFaultPolicy(policy emu.BusFaultPolicy) CoreOption {
	return func(c *Core) {
		c.policy = policy
	}
}

// WithLogger sets the logger shared by the core, pipeline and emulator.
func WithLogger(logger logr.Logger) CoreOption {
	return func(c *Core) {
		c.logger = logger
	}
}

// WithCache puts a write-back cache between the core and the bus. NewCore
// panics if the configuration does not pass Validate.
func WithCache(config cache.Config) CoreOption {
	return func(c *Core) {
		c.cacheConfig = &config
	}
}

// Core represents a cycle-approximate ARMv4T core.
// It wraps a three-stage pipeline and provides a simple interface for
// simulation.
type Core struct {
	// Pipeline is the underlying three-stage pipeline.
	Pipeline *pipeline.Pipeline

	// Shared resources
	regFile  *emu.RegFile
	emulator *emu.Emulator
	bus      bus.Bus
	cache    *cache.Cache

	// Configuration
	latencyTable *latency.Table
	policy       emu.BusFaultPolicy
	logger       logr.Logger
	cacheConfig  *cache.Config

	fault error
}

// NewCore creates a core over the given bus. It starts in Supervisor mode
// with every register and status register zeroed and an empty pipeline.
func NewCore(b bus.Bus, opts ...CoreOption) *Core {
	c := &Core{
		bus:    b,
		policy: emu.BusFaultAbort,
		logger: logr.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.latencyTable == nil {
		c.latencyTable = latency.NewTable()
	}
	if c.cacheConfig != nil {
		c.cache = cache.NewOverBus(*c.cacheConfig, b)
		c.bus = c.cache
	}

	c.regFile = emu.NewRegFile()
	c.emulator = emu.NewEmulator(c.bus,
		emu.WithRegFile(c.regFile),
		emu.WithBusFaultPolicy(c.policy),
		emu.WithLogger(c.logger.WithName("emu")),
	)
	c.Pipeline = pipeline.NewPipeline(c.emulator,
		pipeline.WithLatencyTable(c.latencyTable),
		pipeline.WithLogger(c.logger.WithName("pipeline")),
	)

	return c
}

// RegFile returns the core's register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Cache returns the attached cache, or nil.
func (c *Core) Cache() *cache.Cache {
	return c.cache
}

// PC returns the raw value of r15, which runs ahead of the executing
// instruction.
func (c *Core) PC() uint32 {
	return c.regFile.PC()
}

// SetPC sets the program counter and empties the pipeline.
func (c *Core) SetPC(pc uint32) {
	c.regFile.SetPC(pc)
	c.Pipeline.Flush()
}

// Halted returns true if the core has stopped on a fault.
func (c *Core) Halted() bool {
	return c.fault != nil
}

// Fault returns the fault that halted the core, or nil.
func (c *Core) Fault() error {
	return c.fault
}

// Reset performs a warm reset. The PC is saved, the register file, status
// registers and pipeline are zeroed, the core enters Supervisor mode and
// the saved PC is written to r14 of the mode that was active before the
// reset.
func (c *Core) Reset() {
	savedPC := c.regFile.PC()
	savedMode := c.regFile.Mode()

	c.regFile.Reset()
	// The mode was valid when saved.
	_ = c.regFile.WriteBanked(savedMode, 14, savedPC)

	c.Pipeline.Reset()
	c.emulator.Reset()
	c.fault = nil

	c.logger.Info("reset", "savedPC", savedPC, "savedMode", savedMode.String())
}

// Step advances the pipeline by one stage. The first fault halts the core
// and is returned; later calls return ErrHalted.
func (c *Core) Step() error {
	if c.fault != nil {
		return fmt.Errorf("%w: %w", ErrHalted, c.fault)
	}

	if err := c.Pipeline.Step(); err != nil {
		c.fault = err
		c.logger.Info("halt", "reason", err.Error())
		return err
	}
	return nil
}

// Run performs up to n steps and returns how many completed without
// error.
func (c *Core) Run(n int) (int, error) {
	for i := 0; i < n; i++ {
		if err := c.Step(); err != nil {
			return i, err
		}
	}
	return n, nil
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	pipeStats := c.Pipeline.Stats()
	stats := Stats{
		Cycles:       pipeStats.Cycles,
		Steps:        pipeStats.Steps,
		Instructions: pipeStats.Instructions,
		Skipped:      pipeStats.Skipped,
		Flushes:      pipeStats.Flushes,
		MemoryOps:    pipeStats.MemoryOps,
	}

	if c.cache != nil {
		cacheStats := c.cache.Stats()
		config := c.cache.Config()
		stats.MemoryStalls = cacheStats.Misses * (config.MissLatency - config.HitLatency)
		stats.Cycles += stats.MemoryStalls
		stats.Cache = &cacheStats
	}

	return stats
}

// String dumps the visible processor state.
func (c *Core) String() string {
	var sb strings.Builder

	cpsr := c.regFile.CPSR()
	fmt.Fprintf(&sb, "mode: %v  cpsr: 0x%08X [%s]  pipeline: %v\n",
		cpsr.Mode, cpsr.Pack(), flagString(cpsr), c.Pipeline.Stage())

	for r := uint8(0); r < 16; r++ {
		fmt.Fprintf(&sb, "%-3s 0x%08X", regName(r), c.regFile.Read(r))
		if r%4 == 3 {
			sb.WriteByte('\n')
		} else {
			sb.WriteString("  ")
		}
	}

	if spsr, ok := c.regFile.SPSR(); ok {
		fmt.Fprintf(&sb, "spsr: 0x%08X [%s]\n", spsr, flagString(emu.UnpackPSR(spsr)))
	}
	if c.fault != nil {
		fmt.Fprintf(&sb, "halted: %v\n", c.fault)
	}

	return sb.String()
}

func regName(r uint8) string {
	switch r {
	case 13:
		return "sp"
	case 14:
		return "lr"
	case 15:
		return "pc"
	default:
		return fmt.Sprintf("r%d", r)
	}
}

// flagString renders set flags in capitals and clear flags as '-'.
func flagString(p emu.PSR) string {
	flags := []struct {
		set  bool
		name byte
	}{
		{p.N, 'N'}, {p.Z, 'Z'}, {p.C, 'C'}, {p.V, 'V'},
		{p.I, 'I'}, {p.F, 'F'}, {p.T, 'T'},
	}

	buf := make([]byte, len(flags))
	for i, f := range flags {
		buf[i] = '-'
		if f.set {
			buf[i] = f.name
		}
	}
	return string(buf)
}
