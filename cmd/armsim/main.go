// Package main provides the armsim command, which loads an ARM program,
// resets the core and prints the processor state after every step.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/ouharetaso/armv4t/bus"
	"github.com/ouharetaso/armv4t/emu"
	"github.com/ouharetaso/armv4t/loader"
	"github.com/ouharetaso/armv4t/timing/cache"
	"github.com/ouharetaso/armv4t/timing/core"
	"github.com/ouharetaso/armv4t/timing/latency"
)

// Exit codes.
const (
	exitOK     = 0
	exitSetup  = 1
	exitHalted = 2
)

type options struct {
	steps      int
	configPath string
	useCache   bool
	busFault   string
	base       uint
	memSize    uint64
	isELF      bool
	verbosity  int
	trace      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("armsim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.IntVar(&opts.steps, "steps", 12, "Number of pipeline steps to run")
	fs.StringVar(&opts.configPath, "config", "", "Path to timing configuration JSON file")
	fs.BoolVar(&opts.useCache, "cache", false, "Put a write-back cache in front of memory")
	fs.StringVar(&opts.busFault, "bus-fault", "abort", "Bus fault policy: abort or ignore")
	fs.UintVar(&opts.base, "base", 0, "Load address of a flat binary")
	fs.Uint64Var(&opts.memSize, "mem", bus.DefaultMemorySize, "Memory size in bytes")
	fs.BoolVar(&opts.isELF, "elf", false, "Treat the program as an ELF32 executable")
	fs.IntVar(&opts.verbosity, "v", 0, "Log verbosity")
	fs.BoolVar(&opts.trace, "trace", false, "Print each retired instruction with its decoded fields")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: armsim [options] <program>\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitSetup
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return exitSetup
	}

	logger := newLogger(stderr, opts.verbosity)

	c, prog, err := setup(fs.Arg(0), opts, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitSetup
	}

	return simulate(c, prog, opts, stdout, stderr)
}

func newLogger(w io.Writer, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

func setup(path string, opts options, logger logr.Logger) (*core.Core, *loader.Program, error) {
	var (
		prog *loader.Program
		err  error
	)
	if opts.isELF {
		prog, err = loader.LoadELF(path)
	} else {
		prog, err = loader.LoadBinary(path, uint32(opts.base))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading program: %w", err)
	}

	memory := bus.NewMemory(opts.memSize)
	if err := prog.Install(memory); err != nil {
		return nil, nil, fmt.Errorf("installing program: %w", err)
	}

	policy, err := emu.ParseBusFaultPolicy(opts.busFault)
	if err != nil {
		return nil, nil, err
	}

	timingConfig := latency.DefaultTimingConfig()
	if opts.configPath != "" {
		timingConfig, err = latency.LoadConfig(opts.configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading timing config: %w", err)
		}
	}
	if err := timingConfig.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid timing config: %w", err)
	}

	coreOpts := []core.CoreOption{
		core.WithLatencyTable(latency.NewTableWithConfig(timingConfig)),
		core.WithBusFaultPolicy(policy),
		core.WithLogger(logger),
	}
	if opts.useCache {
		cacheConfig := cache.DefaultConfig()
		if err := cacheConfig.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid cache config: %w", err)
		}
		coreOpts = append(coreOpts, core.WithCache(cacheConfig))
	}

	logger.V(1).Info("loaded", "path", path, "entry", prog.Entry,
		"segments", len(prog.Segments), "bytes", prog.Size())

	return core.NewCore(memory, coreOpts...), prog, nil
}

func simulate(c *core.Core, prog *loader.Program, opts options, stdout, stderr io.Writer) int {
	c.Reset()
	c.SetPC(prog.Entry)
	fmt.Fprintf(stdout, "reset\n%v\n", c)

	code := exitOK
	retired := uint64(0)
	for i := 1; i <= opts.steps; i++ {
		err := c.Step()

		fmt.Fprintf(stdout, "step %d\n", i)
		if opts.trace {
			stats := c.Stats()
			if n := stats.Instructions + stats.Skipped; n != retired {
				retired = n
				printRetired(stdout, c)
			}
		}
		fmt.Fprintf(stdout, "%v\n", c)

		if err != nil {
			fmt.Fprintf(stderr, "halted at step %d: %v\n", i, err)
			code = exitHalted
			break
		}
	}

	printStats(stdout, c.Stats())
	return code
}

func printRetired(w io.Writer, c *core.Core) {
	last, ok := c.Pipeline.Last()
	if !ok {
		return
	}

	status := "executed"
	if !last.Result.Executed {
		status = "skipped"
	}
	fmt.Fprintf(w, "  0x%08X: %08X  %-24s %s, %d cycles\n",
		last.PC, last.Inst.Raw(), last.Inst.String(), status, last.Cycles)
	fmt.Fprintf(w, "  %v %+v\n", last.Inst.Kind(), last.Inst)
}

func printStats(w io.Writer, stats core.Stats) {
	fmt.Fprintf(w, "Steps: %d\n", stats.Steps)
	fmt.Fprintf(w, "Instructions: %d (skipped %d)\n", stats.Instructions, stats.Skipped)
	fmt.Fprintf(w, "Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(w, "CPI: %.2f\n", stats.CPI())
	fmt.Fprintf(w, "Flushes: %d\n", stats.Flushes)
	fmt.Fprintf(w, "Memory ops: %d\n", stats.MemoryOps)

	if stats.Cache != nil {
		fmt.Fprintf(w, "Cache: %d hits, %d misses (%.1f%% hit rate), %d writebacks, %d stall cycles\n",
			stats.Cache.Hits, stats.Cache.Misses, 100*stats.Cache.HitRate(),
			stats.Cache.Writebacks, stats.MemoryStalls)
	}
}
