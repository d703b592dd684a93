package cache

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/emissary/timing/cache/replacement"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
	// HitLatency in cycles
	HitLatency uint64 `json:"hit_latency"`
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64 `json:"miss_latency"`
	// Policy is the registered name of the replacement policy.
	Policy string `json:"policy"`
	// NumCPUs is the number of cores whose accesses reach this cache.
	// Each core gets its own view of the replacement metadata.
	NumCPUs int `json:"num_cpus"`
}

// DefaultL1IConfig returns default configuration for L1 instruction cache.
// Based on Apple M2 specifications:
// - 192KB per performance core (6-way, 64B line)
// - 128KB per efficiency core (4-way, 64B line)
func DefaultL1IConfig() Config {
	return Config{
		Size:          192 * 1024, // 192KB
		Associativity: 6,          // 6-way
		BlockSize:     64,         // 64B cache line
		HitLatency:    1,          // 1 cycle
		MissLatency:   12,         // ~12 cycles to L2
		Policy:        replacement.PolicyEmissary,
		NumCPUs:       1,
	}
}

// DefaultL1DConfig returns default configuration for L1 data cache.
// Based on Apple M2 specifications:
// - 128KB per performance core (8-way, 64B line)
// - 4-cycle load-to-use latency
func DefaultL1DConfig() Config {
	return Config{
		Size:          128 * 1024, // 128KB
		Associativity: 8,          // 8-way
		BlockSize:     64,         // 64B cache line
		HitLatency:    3,          // 3-cycle load-to-use latency (M2)
		MissLatency:   12,         // ~12 cycles to L2
		Policy:        replacement.PolicyEmissary,
		NumCPUs:       1,
	}
}

// DefaultL2Config returns default configuration for unified L2 cache.
// Based on Apple M2 specifications:
// - 24MB shared L2 (entire chip)
// - 16-way set associative
// - 128B cache line
// - ~12-14 cycle latency
func DefaultL2Config() Config {
	return Config{
		Size:          24 * 1024 * 1024, // 24MB (M2 spec)
		Associativity: 16,               // 16-way
		BlockSize:     128,              // 128B cache line
		HitLatency:    12,               // ~12 cycles
		MissLatency:   150,              // ~150 cycles (unified memory)
		Policy:        replacement.PolicyEmissary,
		NumCPUs:       8, // shared by 4P+4E cores
	}
}

// DefaultL2PerCoreConfig returns L2 configuration for per-core L2 setups.
func DefaultL2PerCoreConfig() Config {
	return Config{
		Size:          512 * 1024, // 512KB per core
		Associativity: 8,          // 8-way
		BlockSize:     128,        // 128B cache line
		HitLatency:    12,         // ~12 cycles
		MissLatency:   150,        // ~150 cycles (unified memory)
		Policy:        replacement.PolicyEmissary,
		NumCPUs:       1,
	}
}

// NumSets returns the number of sets the configuration describes.
func (c Config) NumSets() int {
	if c.Associativity <= 0 || c.BlockSize <= 0 {
		return 0
	}
	return c.Size / (c.Associativity * c.BlockSize)
}

// Geometry returns the replacement metadata dimensions for the cache.
func (c Config) Geometry() replacement.Geometry {
	return replacement.Geometry{
		NumCPUs: c.NumCPUs,
		NumSets: c.NumSets(),
		NumWays: c.Associativity,
	}
}

// Validate checks that the configuration describes a buildable cache.
func (c Config) Validate() error {
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0")
	}
	if c.BlockSize <= 0 || c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block_size must be a power of two, got %d", c.BlockSize)
	}
	if c.Size <= 0 || c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf(
			"size %d is not a multiple of associativity*block_size (%d)",
			c.Size, c.Associativity*c.BlockSize)
	}
	if c.NumCPUs <= 0 {
		return fmt.Errorf("num_cpus must be > 0")
	}
	if c.Policy == "" {
		return fmt.Errorf("policy must be set")
	}
	return nil
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep the values of base.
func LoadConfig(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read cache config file: %w", err)
	}

	config := base
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse cache config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize cache config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache config file: %w", err)
	}

	return nil
}
