// Package cache provides cache hierarchy modeling using Akita cache components.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/emissary/timing/cache/replacement"
)

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Data is the data read (for load operations).
	Data uint64
	// Evicted is true if a valid block was evicted.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint64
	// Way is the way that holds the line after the access.
	Way int
}

// Eviction describes one replaced line.
type Eviction struct {
	CPU       int
	Set       int
	Way       int
	VictimTag uint64
	NewTag    uint64
	Dirty     bool
}

// An EvictionRecorder receives every eviction the cache performs.
type EvictionRecorder interface {
	Record(e Eviction) error
}

// Cache represents a set-associative cache using Akita cache components.
// Victim selection and recency tracking are delegated to a replacement
// policy.
type Cache struct {
	// Configuration
	config  Config
	numSets int

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Replacement policy and its adapter to the directory
	registry *replacement.Registry
	policy   replacement.Policy
	finder   *policyVictimFinder

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	// Statistics
	stats      Statistics
	setMisses  []uint64
	policyBase replacement.Stats

	// Backing store interface (for fetching on miss and writeback)
	backing BackingStore

	logger   logrus.FieldLogger
	recorder EvictionRecorder
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64

	// Decisions reported by the replacement policy, if it keeps them.
	ProtectedVictims uint64
	PolicyFallbacks  uint64
}

// Accesses returns the number of reads and writes.
func (s Statistics) Accesses() uint64 {
	return s.Reads + s.Writes
}

// HitRate returns hits per access, or 0 before the first access.
func (s Statistics) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// BackingStore interface for the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches data from the backing store.
	Read(addr uint64, size int) []byte
	// Write stores data to the backing store.
	Write(addr uint64, data []byte)
}

// Option is a functional option for configuring the Cache.
type Option func(*Cache)

// WithRegistry sets the registry the policy named in the config is built
// from. Without it the cache uses a registry holding the built-in policies.
func WithRegistry(registry *replacement.Registry) Option {
	return func(c *Cache) {
		c.registry = registry
	}
}

// WithPolicy makes the cache use the given policy instead of building one
// from the registry.
func WithPolicy(policy replacement.Policy) Option {
	return func(c *Cache) {
		c.policy = policy
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithEvictionRecorder sets a recorder that is told about every eviction.
func WithEvictionRecorder(recorder EvictionRecorder) Option {
	return func(c *Cache) {
		c.recorder = recorder
	}
}

// New creates a new cache with the given configuration.
func New(config Config, backing BackingStore, opts ...Option) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	numSets := config.NumSets()
	totalBlocks := numSets * config.Associativity

	// Initialize data storage
	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	c := &Cache{
		config:    config,
		numSets:   numSets,
		dataStore: dataStore,
		setMisses: make([]uint64, numSets),
		backing:   backing,
		logger:    logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.buildPolicy(); err != nil {
		return nil, err
	}

	c.finder = newPolicyVictimFinder(c.policy, c.logger)
	c.directory = akitacache.NewDirectory(
		numSets,
		config.Associativity,
		config.BlockSize,
		c.finder,
	)

	return c, nil
}

func (c *Cache) buildPolicy() error {
	geometry := c.config.Geometry()

	if c.policy != nil {
		if c.policy.Geometry() != geometry {
			return fmt.Errorf(
				"policy geometry %+v does not match cache geometry %+v",
				c.policy.Geometry(), geometry)
		}
		return nil
	}

	if c.registry == nil {
		c.registry = replacement.NewRegistry()
		if err := replacement.RegisterBuiltins(c.registry); err != nil {
			return err
		}
	}

	policy, err := c.registry.New(c.config.Policy, geometry)
	if err != nil {
		return fmt.Errorf("failed to build replacement policy: %w", err)
	}
	c.policy = policy

	return nil
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Policy returns the replacement policy in use.
func (c *Cache) Policy() replacement.Policy {
	return c.policy
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	stats := c.stats
	if reporter, ok := c.policy.(replacement.StatsReporter); ok {
		ps := reporter.Stats()
		stats.ProtectedVictims = ps.ProtectedVictims - c.policyBase.ProtectedVictims
		stats.PolicyFallbacks = ps.Fallbacks - c.policyBase.Fallbacks
	}
	return stats
}

// SetMisses returns the number of misses seen by each set.
func (c *Cache) SetMisses() []uint64 {
	return append([]uint64(nil), c.setMisses...)
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
	clear(c.setMisses)
	if reporter, ok := c.policy.(replacement.StatsReporter); ok {
		c.policyBase = reporter.Stats()
	}
}

// blockIndex computes the index into dataStore for a block.
func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// blockAddr returns the block-aligned address of addr.
func (c *Cache) blockAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// setIndex returns the set that addr maps to.
func (c *Cache) setIndex(addr uint64) int {
	return int(addr / uint64(c.config.BlockSize) % uint64(c.numSets))
}

func (c *Cache) checkCPU(cpu int) error {
	if cpu < 0 || cpu >= c.config.NumCPUs {
		return fmt.Errorf("%w: cpu %d not in [0, %d)",
			replacement.ErrOutOfRange, cpu, c.config.NumCPUs)
	}
	return nil
}

// Read performs a cache read operation on behalf of the default cpu.
// Returns the access result including hit/miss and latency.
func (c *Cache) Read(addr uint64, size int) AccessResult {
	result, _ := c.ReadFrom(replacement.DefaultCPU, addr, size)
	return result
}

// ReadFrom performs a cache read operation issued by cpu.
func (c *Cache) ReadFrom(cpu int, addr uint64, size int) (AccessResult, error) {
	if err := c.checkCPU(cpu); err != nil {
		return AccessResult{}, err
	}

	c.stats.Reads++

	// Look up in directory using block-aligned address
	block := c.directory.Lookup(0, c.blockAddr(addr)) // PID=0 for now

	if block != nil && block.IsValid {
		// Cache hit
		c.stats.Hits++
		c.directory.Visit(block)
		c.notifyAccess(cpu, block, addr, replacement.Load, true)

		// Extract data from the block
		offset := addr % uint64(c.config.BlockSize)
		blockData := c.dataStore[c.blockIndex(block)]

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Data:    extractData(blockData, offset, size),
			Way:     block.WayID,
		}, nil
	}

	// Cache miss
	c.stats.Misses++
	return c.handleMiss(cpu, addr, size, false, 0), nil
}

// Write performs a cache write operation on behalf of the default cpu.
// Uses write-allocate policy: on miss, fetch the block first, then write.
func (c *Cache) Write(addr uint64, size int, data uint64) AccessResult {
	result, _ := c.WriteFrom(replacement.DefaultCPU, addr, size, data)
	return result
}

// WriteFrom performs a cache write operation issued by cpu.
func (c *Cache) WriteFrom(cpu int, addr uint64, size int, data uint64) (AccessResult, error) {
	if err := c.checkCPU(cpu); err != nil {
		return AccessResult{}, err
	}

	c.stats.Writes++

	block := c.directory.Lookup(0, c.blockAddr(addr))

	if block != nil && block.IsValid {
		// Cache hit
		c.stats.Hits++
		c.directory.Visit(block)
		c.notifyAccess(cpu, block, addr, replacement.RFO, true)

		// Write data to the block
		offset := addr % uint64(c.config.BlockSize)
		blockData := c.dataStore[c.blockIndex(block)]
		storeData(blockData, offset, size, data)
		block.IsDirty = true

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Way:     block.WayID,
		}, nil
	}

	// Cache miss - write-allocate: fetch block, then write
	c.stats.Misses++
	return c.handleMiss(cpu, addr, size, true, data), nil
}

// Writeback accepts a full dirty line evicted from an upper level. A miss
// allocates the line without reading the backing store.
func (c *Cache) Writeback(cpu int, addr uint64, line []byte) (AccessResult, error) {
	if err := c.checkCPU(cpu); err != nil {
		return AccessResult{}, err
	}
	if len(line) != c.config.BlockSize {
		return AccessResult{}, fmt.Errorf(
			"writeback of %d bytes, block size is %d", len(line), c.config.BlockSize)
	}

	c.stats.Writes++

	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)
	result := AccessResult{Hit: block != nil && block.IsValid}

	if result.Hit {
		c.stats.Hits++
		result.Latency = c.config.HitLatency
	} else {
		c.stats.Misses++
		c.setMisses[c.setIndex(blockAddr)]++
		result.Latency = c.config.MissLatency

		block = c.allocate(cpu, blockAddr, &result)
		if block == nil {
			return result, nil
		}
	}

	copy(c.dataStore[c.blockIndex(block)], line)
	block.IsDirty = true
	c.directory.Visit(block)
	c.notifyAccess(cpu, block, addr, replacement.Write, result.Hit)
	if !result.Hit {
		c.notifyFill(cpu, block, blockAddr)
	}
	result.Way = block.WayID

	return result, nil
}

// handleMiss handles a cache miss by fetching from backing store.
func (c *Cache) handleMiss(
	cpu int,
	addr uint64,
	size int,
	isWrite bool,
	writeData uint64,
) AccessResult {
	result := AccessResult{
		Hit:     false,
		Latency: c.config.MissLatency,
	}

	blockAddr := c.blockAddr(addr)
	c.setMisses[c.setIndex(blockAddr)]++

	victim := c.allocate(cpu, blockAddr, &result)
	if victim == nil {
		return result
	}

	kind := replacement.Load
	if isWrite {
		kind = replacement.RFO
	}
	c.notifyAccess(cpu, victim, addr, kind, false)

	// Fetch from backing store
	victimData := c.dataStore[c.blockIndex(victim)]
	if c.backing != nil {
		copy(victimData, c.backing.Read(blockAddr, c.config.BlockSize))
	} else {
		clear(victimData)
	}

	offset := addr % uint64(c.config.BlockSize)
	if isWrite {
		// Write data to the newly fetched block
		storeData(victimData, offset, size, writeData)
		victim.IsDirty = true
	} else {
		result.Data = extractData(victimData, offset, size)
	}

	c.directory.Visit(victim)
	c.notifyFill(cpu, victim, blockAddr)
	result.Way = victim.WayID

	return result
}

// allocate picks a block for blockAddr, evicting (and writing back) its
// current contents if needed. The returned block is valid, clean and tagged
// with blockAddr.
func (c *Cache) allocate(cpu int, blockAddr uint64, result *AccessResult) *akitacache.Block {
	sets := c.directory.GetSets()
	set := &sets[c.setIndex(blockAddr)]

	victim := c.finder.findVictim(set, replacement.VictimContext{
		CPU:     cpu,
		Address: blockAddr,
	})
	if victim == nil {
		// This shouldn't happen with proper directory setup
		return nil
	}

	if victim.IsValid {
		c.evict(cpu, victim, blockAddr, result)
	}

	// Update block metadata - store block-aligned address as tag
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false

	return victim
}

func (c *Cache) evict(cpu int, victim *akitacache.Block, newTag uint64, result *AccessResult) {
	c.stats.Evictions++
	result.Evicted = true
	result.EvictedAddr = victim.Tag // Tag stores block-aligned address

	// Writeback if dirty
	if victim.IsDirty && c.backing != nil {
		c.stats.Writebacks++
		c.backing.Write(victim.Tag, c.dataStore[c.blockIndex(victim)])
	}

	eviction := Eviction{
		CPU:       cpu,
		Set:       victim.SetID,
		Way:       victim.WayID,
		VictimTag: victim.Tag,
		NewTag:    newTag,
		Dirty:     victim.IsDirty,
	}

	c.logger.WithFields(logrus.Fields{
		"cpu":    eviction.CPU,
		"set":    eviction.Set,
		"way":    eviction.Way,
		"victim": fmt.Sprintf("%#x", eviction.VictimTag),
		"dirty":  eviction.Dirty,
	}).Debug("evict")

	if c.recorder != nil {
		if err := c.recorder.Record(eviction); err != nil {
			c.logger.WithError(err).Error("failed to record eviction")
		}
	}
}

func (c *Cache) notifyAccess(
	cpu int,
	block *akitacache.Block,
	addr uint64,
	kind replacement.AccessKind,
	hit bool,
) {
	err := c.policy.OnAccess(replacement.Access{
		CPU:     cpu,
		Set:     block.SetID,
		Way:     block.WayID,
		Address: addr,
		Kind:    kind,
		Hit:     hit,
	})
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"cpu": cpu,
			"set": block.SetID,
			"way": block.WayID,
		}).Error("replacement policy rejected access")
	}
}

func (c *Cache) notifyFill(cpu int, block *akitacache.Block, blockAddr uint64) {
	err := c.policy.OnFill(replacement.Fill{
		CPU:     cpu,
		Set:     block.SetID,
		Way:     block.WayID,
		Address: blockAddr,
	})
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"cpu": cpu,
			"set": block.SetID,
			"way": block.WayID,
		}).Error("replacement policy rejected fill")
	}
}

// Invalidate marks a cache line as invalid. The replacement metadata of the
// set is left alone.
func (c *Cache) Invalidate(addr uint64) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// InvalidateSet drops every line of a set without writeback and resets the
// set's replacement metadata.
func (c *Cache) InvalidateSet(set int) error {
	if set < 0 || set >= c.numSets {
		return fmt.Errorf("%w: set %d not in [0, %d)",
			replacement.ErrOutOfRange, set, c.numSets)
	}

	for _, block := range c.directory.GetSets()[set].Blocks {
		block.IsValid = false
		block.IsDirty = false
	}

	return c.policy.Reset(set)
}

// Flush writes back all dirty blocks and invalidates them.
func (c *Cache) Flush() {
	sets := c.directory.GetSets()
	for _, set := range sets {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				// Tag stores block-aligned address directly
				blockData := c.dataStore[c.blockIndex(block)]
				c.backing.Write(block.Tag, blockData)
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines without writeback and restores the
// replacement metadata of every set.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.ResetStats()

	for set := 0; set < c.numSets; set++ {
		if err := c.policy.Reset(set); err != nil {
			c.logger.WithError(err).WithField("set", set).
				Error("replacement policy failed to reset set")
		}
	}
}

// extractData extracts a value of the given size from a byte slice.
func extractData(data []byte, offset uint64, size int) uint64 {
	if data == nil || int(offset)+size > len(data) {
		return 0
	}

	var result uint64
	for i := 0; i < size; i++ {
		result |= uint64(data[int(offset)+i]) << (i * 8)
	}
	return result
}

// storeData stores a value of the given size into a byte slice.
func storeData(data []byte, offset uint64, size int, value uint64) {
	if data == nil || int(offset)+size > len(data) {
		return
	}

	for i := 0; i < size; i++ {
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}
