package evictlog_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/emissary/timing/cache"
	"github.com/sarchlab/emissary/timing/cache/evictlog"
	"github.com/sarchlab/emissary/timing/cache/replacement"
)

var _ = Describe("Log", func() {
	var (
		tempDir string
		path    string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "evictlog-test")
		Expect(err).NotTo(HaveOccurred())
		path = filepath.Join(tempDir, "evictions.sqlite")
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	It("should store evictions in order", func() {
		log, err := evictlog.Open(path, "run-a")
		Expect(err).NotTo(HaveOccurred())
		log.SetBatchSize(2)

		want := []cache.Eviction{
			{CPU: 0, Set: 1, Way: 2, VictimTag: 0x40, NewTag: 0x440, Dirty: true},
			{CPU: 1, Set: 3, Way: 0, VictimTag: 0xC0, NewTag: 0x4C0},
			{CPU: 0, Set: 1, Way: 3, VictimTag: 0xFFFF_FFFF_0000_0040, NewTag: 0x840},
		}
		for _, e := range want {
			Expect(log.Record(e)).To(Succeed())
		}

		// The first two went out with the batch, the third is pending
		n, err := log.Count("run-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))

		Expect(log.Flush()).To(Succeed())
		got, err := log.Evictions("run-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(want))

		Expect(log.Close()).To(Succeed())
	})

	It("should keep runs apart in one database", func() {
		first, err := evictlog.Open(path, "run-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Record(cache.Eviction{Set: 1})).To(Succeed())
		Expect(first.Close()).To(Succeed())

		second, err := evictlog.Open(path, "run-b")
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = second.Close() }()
		Expect(second.Record(cache.Eviction{Set: 2})).To(Succeed())
		Expect(second.Record(cache.Eviction{Set: 3})).To(Succeed())
		Expect(second.Flush()).To(Succeed())

		Expect(second.RunID()).To(Equal("run-b"))
		Expect(second.Count("run-a")).To(Equal(1))
		Expect(second.Count(second.RunID())).To(Equal(2))
	})

	It("should record the evictions of a cache", func() {
		log, err := evictlog.Open(path, "cache-run")
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = log.Close() }()

		c, err := cache.New(cache.Config{
			Size:          256,
			Associativity: 2,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   10,
			Policy:        replacement.PolicyLRU,
			NumCPUs:       1,
		}, cache.NewSparseMemory(), cache.WithEvictionRecorder(log))
		Expect(err).NotTo(HaveOccurred())

		// Two sets of two ways; six lines in set 0 evict four times
		for line := uint64(0); line < 6; line++ {
			c.Read(line*128, 8)
		}
		Expect(log.Flush()).To(Succeed())

		evictions, err := log.Evictions("cache-run")
		Expect(err).NotTo(HaveOccurred())
		Expect(evictions).To(HaveLen(4))
		Expect(evictions[0].VictimTag).To(Equal(uint64(0)))
		Expect(evictions[0].NewTag).To(Equal(uint64(256)))
		Expect(evictions[3].NewTag).To(Equal(uint64(640)))
	})
})
