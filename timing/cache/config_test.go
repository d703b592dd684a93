package cache_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/emissary/timing/cache"
	"github.com/sarchlab/emissary/timing/cache/replacement"
)

var _ = Describe("Config", func() {
	Describe("Default configurations", func() {
		It("should create L1I config", func() {
			config := cache.DefaultL1IConfig()
			Expect(config.Size).To(Equal(192 * 1024))
			Expect(config.Associativity).To(Equal(6))
			Expect(config.BlockSize).To(Equal(64))
			Expect(config.Validate()).To(Succeed())
		})

		It("should create L1D config", func() {
			config := cache.DefaultL1DConfig()
			Expect(config.Size).To(Equal(128 * 1024))
			Expect(config.Associativity).To(Equal(8))
			Expect(config.BlockSize).To(Equal(64))
			Expect(config.NumSets()).To(Equal(256))
			Expect(config.Policy).To(Equal(replacement.PolicyEmissary))
		})

		It("should share the L2 between cores", func() {
			config := cache.DefaultL2Config()
			Expect(config.Geometry()).To(Equal(replacement.Geometry{
				NumCPUs: 8,
				NumSets: 12 * 1024,
				NumWays: 16,
			}))
		})
	})

	Describe("Validation", func() {
		It("should reject a size that does not divide into sets", func() {
			config := cache.DefaultL1DConfig()
			config.Size = 1000
			Expect(config.Validate()).NotTo(Succeed())
		})

		It("should reject a block size that is not a power of two", func() {
			config := cache.DefaultL1DConfig()
			config.BlockSize = 48
			Expect(config.Validate()).NotTo(Succeed())
		})

		It("should require at least one cpu and a policy", func() {
			config := cache.DefaultL1DConfig()
			config.NumCPUs = 0
			Expect(config.Validate()).NotTo(Succeed())

			config = cache.DefaultL1DConfig()
			config.Policy = ""
			Expect(config.Validate()).NotTo(Succeed())
		})

		It("should stop New from building a broken cache", func() {
			config := cache.DefaultL1DConfig()
			config.Associativity = 0
			_, err := cache.New(config, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Config File", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "cache-config-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			path := filepath.Join(tempDir, "cache.json")
			original := cache.DefaultL2PerCoreConfig()
			original.Policy = replacement.PolicyEmissaryHit

			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := cache.LoadConfig(path, cache.Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep base values for fields the file omits", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"policy": "lru", "num_cpus": 4}`), 0644)).To(Succeed())

			loaded, err := cache.LoadConfig(path, cache.DefaultL1DConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Policy).To(Equal(replacement.PolicyLRU))
			Expect(loaded.NumCPUs).To(Equal(4))
			Expect(loaded.Associativity).To(Equal(8))
		})

		It("should return error for non-existent file", func() {
			_, err := cache.LoadConfig("/nonexistent/path/cache.json", cache.Config{})
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			Expect(os.WriteFile(path, []byte("not valid json"), 0644)).To(Succeed())

			_, err := cache.LoadConfig(path, cache.Config{})
			Expect(err).To(HaveOccurred())
		})
	})
})
