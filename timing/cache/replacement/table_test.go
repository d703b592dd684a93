package replacement_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/emissary/timing/cache/replacement"
)

var _ = Describe("Table", func() {
	var table *replacement.Table

	BeforeEach(func() {
		var err error
		table, err = replacement.NewTable(replacement.Geometry{
			NumCPUs: 2,
			NumSets: 4,
			NumWays: 8,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Construction", func() {
		It("should start every set in positional LRU order", func() {
			for cpu := 0; cpu < 2; cpu++ {
				for set := 0; set < 4; set++ {
					for way := 0; way < 8; way++ {
						slot, err := table.Get(cpu, set, way)
						Expect(err).NotTo(HaveOccurred())
						Expect(slot).To(Equal(replacement.LineSlot{Recency: uint64(way)}))
					}
				}
			}
		})

		It("should reject non-positive dimensions", func() {
			_, err := replacement.NewTable(replacement.Geometry{NumCPUs: 1, NumSets: 0, NumWays: 4})
			Expect(err).To(MatchError(replacement.ErrInvalidGeometry))
		})
	})

	Describe("Accessors", func() {
		It("should read back what was written", func() {
			slot := replacement.LineSlot{Recency: 5, Protected: true}
			Expect(table.Set(1, 3, 7, slot)).To(Succeed())

			got, err := table.Get(1, 3, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(slot))

			// Neighbouring cpu and set are untouched
			other, _ := table.Get(0, 3, 7)
			Expect(other.Protected).To(BeFalse())
			other, _ = table.Get(1, 2, 7)
			Expect(other.Protected).To(BeFalse())
		})

		It("should fail with OutOfRange on bad indices", func() {
			_, err := table.Get(2, 0, 0)
			Expect(err).To(MatchError(replacement.ErrOutOfRange))
			_, err = table.Get(0, 4, 0)
			Expect(err).To(MatchError(replacement.ErrOutOfRange))
			_, err = table.Get(0, 0, 8)
			Expect(err).To(MatchError(replacement.ErrOutOfRange))
			_, err = table.Get(-1, 0, 0)
			Expect(err).To(MatchError(replacement.ErrOutOfRange))
			Expect(table.Set(0, 0, -1, replacement.LineSlot{})).To(MatchError(replacement.ErrOutOfRange))
		})

		It("should hand out snapshots that do not alias the table", func() {
			snap, err := table.Snapshot(0, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap).To(HaveLen(8))

			snap[0].Protected = true
			slot, _ := table.Get(0, 1, 0)
			Expect(slot.Protected).To(BeFalse())
		})
	})

	Describe("Reset", func() {
		BeforeEach(func() {
			for cpu := 0; cpu < 2; cpu++ {
				for way := 0; way < 8; way++ {
					Expect(table.Set(cpu, 2, way, replacement.LineSlot{
						Recency:   uint64(7 - way),
						Protected: way%2 == 0,
					})).To(Succeed())
				}
			}
			Expect(table.Set(0, 1, 0, replacement.LineSlot{Recency: 3, Protected: true})).To(Succeed())
		})

		It("should restore the default state in every cpu", func() {
			Expect(table.Reset(2)).To(Succeed())

			for cpu := 0; cpu < 2; cpu++ {
				snap, _ := table.Snapshot(cpu, 2)
				for way, slot := range snap {
					Expect(slot).To(Equal(replacement.LineSlot{Recency: uint64(way)}))
				}
			}
		})

		It("should leave other sets alone", func() {
			Expect(table.Reset(2)).To(Succeed())

			slot, _ := table.Get(0, 1, 0)
			Expect(slot).To(Equal(replacement.LineSlot{Recency: 3, Protected: true}))
		})

		It("should be idempotent", func() {
			Expect(table.Reset(2)).To(Succeed())
			once, _ := table.Snapshot(0, 2)

			Expect(table.Reset(2)).To(Succeed())
			twice, _ := table.Snapshot(0, 2)

			Expect(twice).To(Equal(once))
		})

		It("should fail with OutOfRange for a bad set", func() {
			Expect(table.Reset(4)).To(MatchError(replacement.ErrOutOfRange))
		})
	})
})

var _ = Describe("CheckPermutation", func() {
	It("should accept a permutation", func() {
		ways := []replacement.LineSlot{{Recency: 2}, {Recency: 0}, {Recency: 1}}
		Expect(replacement.CheckPermutation(ways)).To(Succeed())
	})

	It("should reject duplicates", func() {
		ways := []replacement.LineSlot{{Recency: 1}, {Recency: 1}, {Recency: 0}}
		Expect(replacement.CheckPermutation(ways)).NotTo(Succeed())
	})

	It("should reject ranks outside the set", func() {
		ways := []replacement.LineSlot{{Recency: 0}, {Recency: 2}}
		Expect(replacement.CheckPermutation(ways)).NotTo(Succeed())
	})
})
