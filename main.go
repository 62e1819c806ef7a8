// Package main provides the entry point for armv4t.
// armv4t is a cycle-approximate ARMv4T (ARM7TDMI-class) simulator.
//
// For the full CLI, use: go run ./cmd/armsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("armv4t - ARMv4T Simulator")
	fmt.Println("")
	fmt.Println("Usage: armsim [options] <program>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -steps      Number of pipeline steps to run (default 12)")
	fmt.Println("  -config     Path to timing configuration JSON file")
	fmt.Println("  -cache      Put a write-back cache in front of memory")
	fmt.Println("  -bus-fault  Bus fault policy: abort or ignore")
	fmt.Println("  -elf        Treat the program as an ELF32 executable")
	fmt.Println("  -trace      Print each retired instruction")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/armsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/armsim' instead.")
	}
}
