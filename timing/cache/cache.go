// Package cache provides a write-back cache model using Akita cache
// components.
package cache

import (
	"fmt"
	"math/bits"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/ouharetaso/armv4t/bus"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64
}

// DefaultConfig returns an 8KB, 4-way cache with 32B lines.
func DefaultConfig() Config {
	return Config{
		Size:          8 * 1024, // 8KB
		Associativity: 4,        // 4-way
		BlockSize:     32,       // 32B cache line
		HitLatency:    1,        // 1 cycle
		MissLatency:   10,       // ~10 cycles to memory
	}
}

// Validate checks that the geometry describes a whole number of sets of
// power-of-two lines.
func (c Config) Validate() error {
	if c.BlockSize < 4 || bits.OnesCount(uint(c.BlockSize)) != 1 {
		return fmt.Errorf("block size %d must be a power of two >= 4", c.BlockSize)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0")
	}
	if c.Size <= 0 || c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size %d is not a multiple of %d-way x %dB", c.Size, c.Associativity, c.BlockSize)
	}
	return nil
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
	// Cycles is the accumulated access latency.
	Cycles uint64
}

// HitRate returns the fraction of accesses that hit.
func (s Statistics) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches a line.
	Read(addr uint32, size int) ([]byte, error)
	// Write stores a line.
	Write(addr uint32, data []byte) error
}

// Cache is a write-back, write-allocate cache that sits in front of a
// backing store and serves word accesses through the bus.Bus contract.
type Cache struct {
	// Configuration
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	// Statistics
	stats Statistics

	// Backing store (for fetching on miss and writeback)
	backing BackingStore
}

// New creates a new cache with the given configuration. It panics if the
// configuration does not pass Validate.
func New(config Config, backing BackingStore) *Cache {
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("cache: invalid config: %v", err))
	}

	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	// Initialize data storage
	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// NewOverBus creates a cache in front of a bus.
func NewOverBus(config Config, b bus.Bus) *Cache {
	return New(config, NewBusBacking(b))
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// blockIndex computes the index into dataStore for a block.
func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint32) uint32 {
	return addr &^ uint32(c.config.BlockSize-1)
}

// Access implements bus.Bus. Words that straddle two lines touch both.
func (c *Cache) Access(addr uint32, data *uint32, dir bus.Direction) (uint32, error) {
	switch dir {
	case bus.Read:
		c.stats.Reads++
		var buf [4]byte
		if err := c.transfer(addr, buf[:], false); err != nil {
			return 0, fmt.Errorf("cache read 0x%08X: %w", addr, err)
		}
		*data = extractData(buf[:], 0, 4)
		return *data, nil
	case bus.Write:
		c.stats.Writes++
		var buf [4]byte
		storeData(buf[:], 0, 4, *data)
		if err := c.transfer(addr, buf[:], true); err != nil {
			return 0, fmt.Errorf("cache write 0x%08X: %w", addr, err)
		}
		return *data, nil
	default:
		return 0, fmt.Errorf("invalid bus %v at 0x%08X", dir, addr)
	}
}

// transfer moves buf to or from the cache, one line-sized chunk at a time.
func (c *Cache) transfer(addr uint32, buf []byte, isWrite bool) error {
	done := 0
	for done < len(buf) {
		cur := addr + uint32(done)
		offset := int(cur - c.blockAddr(cur))
		n := min(len(buf)-done, c.config.BlockSize-offset)

		block, err := c.line(cur)
		if err != nil {
			return err
		}
		line := c.dataStore[c.blockIndex(block)]
		if isWrite {
			copy(line[offset:offset+n], buf[done:done+n])
			block.IsDirty = true
		} else {
			copy(buf[done:done+n], line[offset:offset+n])
		}
		done += n
	}
	return nil
}

// line returns the valid block holding addr, filling it on a miss.
func (c *Cache) line(addr uint32) (*akitacache.Block, error) {
	blockAddr := c.blockAddr(addr)

	// Look up in directory using block-aligned address
	block := c.directory.Lookup(0, uint64(blockAddr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.stats.Cycles += c.config.HitLatency
		c.directory.Visit(block) // Update LRU
		return block, nil
	}

	c.stats.Misses++
	c.stats.Cycles += c.config.MissLatency
	return c.handleMiss(blockAddr)
}

// handleMiss evicts a victim and fetches the line from the backing store.
func (c *Cache) handleMiss(blockAddr uint32) (*akitacache.Block, error) {
	victim := c.directory.FindVictim(uint64(blockAddr))
	if victim == nil {
		return nil, fmt.Errorf("no victim for 0x%08X", blockAddr)
	}

	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		// Writeback if dirty
		if victim.IsDirty {
			if err := c.backing.Write(uint32(victim.Tag), victimData); err != nil {
				return nil, fmt.Errorf("writeback 0x%08X: %w", victim.Tag, err)
			}
			c.stats.Writebacks++
		}
		c.stats.Evictions++
		victim.IsValid = false
		victim.IsDirty = false
	}

	newData, err := c.backing.Read(blockAddr, c.config.BlockSize)
	if err != nil {
		return nil, err
	}
	copy(victimData, newData)

	// Tag stores the block-aligned address
	victim.Tag = uint64(blockAddr)
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim) // Update LRU

	return victim, nil
}

// Invalidate drops the line holding addr without writing it back.
func (c *Cache) Invalidate(addr uint32) {
	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates them.
func (c *Cache) Flush() error {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				blockData := c.dataStore[c.blockIndex(block)]
				if err := c.backing.Write(uint32(block.Tag), blockData); err != nil {
					return fmt.Errorf("flush 0x%08X: %w", block.Tag, err)
				}
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
	return nil
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

// extractData reads a little-endian value of the given size.
func extractData(data []byte, offset uint32, size int) uint32 {
	if int(offset)+size > len(data) {
		return 0
	}

	var result uint32
	for i := 0; i < size; i++ {
		result |= uint32(data[int(offset)+i]) << (i * 8)
	}
	return result
}

// storeData writes a little-endian value of the given size.
func storeData(data []byte, offset uint32, size int, value uint32) {
	if int(offset)+size > len(data) {
		return
	}

	for i := 0; i < size; i++ {
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}
