// Package benchmarks provides timing benchmark infrastructure for calibrating
// the ARMv4T core model.
package benchmarks

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ouharetaso/armv4t/bus"
	"github.com/ouharetaso/armv4t/emu"
	"github.com/ouharetaso/armv4t/insts"
	"github.com/ouharetaso/armv4t/timing/cache"
	"github.com/ouharetaso/armv4t/timing/core"
	"github.com/ouharetaso/armv4t/timing/latency"
)

const (
	// ProgramAddr is where every benchmark program is loaded.
	ProgramAddr = 0x1000

	// StackTop is the initial Supervisor r13.
	StackTop = 0x8000

	// DefaultMaxSteps bounds a benchmark that never reaches its halt loop.
	DefaultMaxSteps = 100000
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// Steps is the number of pipeline steps taken
	Steps uint64 `json:"steps"`

	// InstructionsRetired is the number of instructions whose condition
	// passed
	InstructionsRetired uint64 `json:"instructions_retired"`

	// Skipped is the number of instructions whose condition failed
	Skipped uint64 `json:"skipped"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// PipelineFlushes is the number of pipeline flushes
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// MemStalls is cycles lost to cache misses
	MemStalls uint64 `json:"mem_stalls"`

	// CacheHits/Misses (if cache enabled)
	CacheHits   uint64 `json:"cache_hits,omitempty"`
	CacheMisses uint64 `json:"cache_misses,omitempty"`

	// Result is r0 when the program halted
	Result uint32 `json:"result"`

	// Halted is true if the program reached its halt loop
	Halted bool `json:"halted"`

	// Error is the fault that stopped the run, if any
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the core state (e.g., initialize registers, memory)
	Setup func(regFile *emu.RegFile, memory *bus.Memory)

	// Program is the ARM machine code to execute. It must end in a branch
	// to itself.
	Program []byte

	// ExpectedResult is the expected final r0 (for validation)
	ExpectedResult uint32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableCache puts the default cache in front of memory
	EnableCache bool

	// Timing overrides the default instruction latencies
	Timing *latency.TimingConfig

	// MaxSteps bounds each run (default: DefaultMaxSteps)
	MaxSteps int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableCache: true,
		MaxSteps:    DefaultMaxSteps,
		Output:      os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = DefaultMaxSteps
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		results = append(results, result)
	}

	return results
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	memory := bus.NewMemory(bus.DefaultMemorySize)
	if err := memory.Load(ProgramAddr, bench.Program); err != nil {
		result.Error = err.Error()
		return result
	}

	opts := []core.CoreOption{}
	if h.config.Timing != nil {
		opts = append(opts, core.WithLatencyTable(latency.NewTableWithConfig(h.config.Timing)))
	}
	if h.config.EnableCache {
		opts = append(opts, core.WithCache(cache.DefaultConfig()))
	}

	c := core.NewCore(memory, opts...)
	c.RegFile().Write(13, StackTop)
	if bench.Setup != nil {
		bench.Setup(c.RegFile(), memory)
	}
	c.SetPC(ProgramAddr)

	start := time.Now()
	for i := 0; i < h.config.MaxSteps; i++ {
		if err := c.Step(); err != nil {
			result.Error = err.Error()
			break
		}
		if reachedHalt(c) {
			result.Halted = true
			break
		}
	}
	result.WallTime = time.Since(start)

	stats := c.Stats()
	result.SimulatedCycles = stats.Cycles
	result.Steps = stats.Steps
	result.InstructionsRetired = stats.Instructions
	result.Skipped = stats.Skipped
	result.CPI = stats.CPI()
	result.PipelineFlushes = stats.Flushes
	result.MemStalls = stats.MemoryStalls
	if stats.Cache != nil {
		result.CacheHits = stats.Cache.Hits
		result.CacheMisses = stats.Cache.Misses
	}
	result.Result = c.RegFile().Read(0)

	return result
}

// reachedHalt reports whether the last retired instruction was an executed
// branch to itself.
func reachedHalt(c *core.Core) bool {
	last, ok := c.Pipeline.Last()
	if !ok || !last.Result.Executed {
		return false
	}
	b, isBranch := last.Inst.(*insts.Branch)
	return isBranch && !b.Link && b.Offset == -emu.PipelineOffset
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== ARMv4T Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Result (r0): %d\n", r.Result)
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Steps:                %d\n", r.Steps)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  Skipped:              %d\n", r.Skipped)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)
		_, _ = fmt.Fprintf(h.config.Output, "  Mem Stalls:           %d\n", r.MemStalls)

		if r.CacheHits > 0 || r.CacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.CacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.CacheMisses)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,steps,instructions,skipped,cpi,flushes,mem_stalls,cache_hits,cache_misses,result")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%d,%.3f,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.Steps,
			r.InstructionsRetired,
			r.Skipped,
			r.CPI,
			r.PipelineFlushes,
			r.MemStalls,
			r.CacheHits,
			r.CacheMisses,
			r.Result,
		)
	}
}

// BuildProgram assembles instruction words into a byte slice.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 4*len(instrs))
	for i, inst := range instrs {
		binary.LittleEndian.PutUint32(program[4*i:], inst)
	}
	return program
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// CacheEnabled reports whether the cache was attached
	CacheEnabled bool `json:"cache_enabled"`

	// Timing is the latency configuration used
	Timing *latency.TimingConfig `json:"timing"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the aggregate cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	timing := h.config.Timing
	if timing == nil {
		timing = latency.DefaultTimingConfig()
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			CacheEnabled: h.config.EnableCache,
			Timing:       timing,
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
