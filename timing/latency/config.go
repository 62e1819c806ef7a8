package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds cycle costs for the instruction classes the core
// executes. Defaults follow ARM7TDMI-class cores.
type TimingConfig struct {
	// ALULatency is the cost of a data-processing instruction.
	// Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// RegisterShiftLatency is added when the shift amount comes from a
	// register. Default: 1 cycle.
	RegisterShiftLatency uint64 `json:"register_shift_latency"`

	// BranchLatency is the cost of B/BL and of any instruction that writes
	// the PC. The refill fetch is charged separately. Default: 2 cycles.
	BranchLatency uint64 `json:"branch_latency"`

	// LoadLatency is the cost of LDR/LDRB. Default: 3 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the cost of STR/STRB. Default: 2 cycles.
	StoreLatency uint64 `json:"store_latency"`

	// BlockTransferBaseLatency is the fixed cost of LDM/STM.
	// Default: 2 cycles.
	BlockTransferBaseLatency uint64 `json:"block_transfer_base_latency"`

	// BlockTransferPerRegister is added for each listed register.
	// Default: 1 cycle.
	BlockTransferPerRegister uint64 `json:"block_transfer_per_register"`

	// SkippedLatency is the cost of an instruction whose condition failed.
	// Default: 1 cycle.
	SkippedLatency uint64 `json:"skipped_latency"`

	// FetchOnlyLatency is the cost of a step that only fetches, as after
	// reset or a flush. Default: 1 cycle.
	FetchOnlyLatency uint64 `json:"fetch_only_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:               1,
		RegisterShiftLatency:     1,
		BranchLatency:            2,
		LoadLatency:              3,
		StoreLatency:             2,
		BlockTransferBaseLatency: 2,
		BlockTransferPerRegister: 1,
		SkippedLatency:           1,
		FetchOnlyLatency:         1,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that every base latency is > 0. The register shift and
// per-register surcharges may be zero.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.BlockTransferBaseLatency == 0 {
		return fmt.Errorf("block_transfer_base_latency must be > 0")
	}
	if c.SkippedLatency == 0 {
		return fmt.Errorf("skipped_latency must be > 0")
	}
	if c.FetchOnlyLatency == 0 {
		return fmt.Errorf("fetch_only_latency must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
