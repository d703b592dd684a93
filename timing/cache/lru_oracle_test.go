package cache_test

import (
	"math/rand/v2"

	lru "github.com/hashicorp/golang-lru/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/emissary/timing/cache"
	"github.com/sarchlab/emissary/timing/cache/replacement"
)

var _ = Describe("LRU equivalence", func() {
	// Replays random traffic through the cache and through one
	// golang-lru cache per set; hits and evictions must agree.
	replay := func(policy string, addrs []uint64) {
		config := smallConfig(policy)
		c, err := cache.New(config, cache.NewSparseMemory())
		Expect(err).NotTo(HaveOccurred())

		var lastEvicted uint64
		oracles := make([]*lru.Cache[uint64, struct{}], config.NumSets())
		for i := range oracles {
			oracles[i], err = lru.NewWithEvict(config.Associativity,
				func(key uint64, _ struct{}) { lastEvicted = key })
			Expect(err).NotTo(HaveOccurred())
		}

		for i, addr := range addrs {
			block := addr &^ uint64(config.BlockSize-1)
			set := int(block / uint64(config.BlockSize) % uint64(config.NumSets()))

			_, hit := oracles[set].Get(block)
			evicted := false
			if !hit {
				evicted = oracles[set].Add(block, struct{}{})
			}

			result := c.Read(addr, 1)
			Expect(result.Hit).To(Equal(hit), "access %d to %#x", i, addr)
			Expect(result.Evicted).To(Equal(evicted), "access %d to %#x", i, addr)
			if evicted {
				Expect(result.EvictedAddr).To(Equal(lastEvicted), "access %d", i)
			}
		}
	}

	randomAddrs := func(seed uint64, n int) []uint64 {
		rng := rand.New(rand.NewPCG(seed, seed+1))
		addrs := make([]uint64, n)
		for i := range addrs {
			// 96 distinct lines over 16 sets keeps every set under pressure
			addrs[i] = uint64(rng.IntN(96))*64 + uint64(rng.IntN(64))
		}
		return addrs
	}

	It("should match golang-lru under lru", func() {
		replay(replacement.PolicyLRU, randomAddrs(7, 20000))
	})

	It("should match golang-lru under emissary when nothing is protected", func() {
		// Offsets kept under 16 and lines whose address mod 100 stays
		// at or below 64 never reach the address classifier's range.
		rng := rand.New(rand.NewPCG(11, 12))
		var lines []uint64
		for line := uint64(0); len(lines) < 96; line++ {
			if (line*64)%100 <= 64 {
				lines = append(lines, line*64)
			}
		}

		addrs := make([]uint64, 20000)
		for i := range addrs {
			addrs[i] = lines[rng.IntN(len(lines))] + uint64(rng.IntN(16))
		}
		replay(replacement.PolicyEmissary, addrs)
	})
})
