package main

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseTrace", func() {
	It("should parse reads, writes and cpu ids", func() {
		trace := `
# warmup
R 0x1000
w 4096 1   # store from cpu 1
R 0o17 3
`
		records, err := ParseTrace(strings.NewReader(trace))
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(Equal([]TraceRecord{
			{Write: false, Addr: 0x1000, CPU: 0, Line: 3},
			{Write: true, Addr: 4096, CPU: 1, Line: 4},
			{Write: false, Addr: 15, CPU: 3, Line: 5},
		}))
	})

	It("should return nothing for an empty trace", func() {
		records, err := ParseTrace(strings.NewReader("\n  \n# only a comment\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())
	})

	DescribeTable("should reject malformed lines",
		func(line, msg string) {
			_, err := ParseTrace(strings.NewReader("R 0x40\n" + line + "\n"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("trace line 2"))
			Expect(err.Error()).To(ContainSubstring(msg))
		},
		Entry("missing address", "R", "want 2 or 3 fields"),
		Entry("too many fields", "R 0x40 1 2", "want 2 or 3 fields"),
		Entry("unknown operation", "X 0x40", "unknown operation"),
		Entry("bad address", "R 0xZZ", "bad address"),
		Entry("negative cpu", "W 0x40 -1", "bad cpu"),
		Entry("non-numeric cpu", "W 0x40 one", "bad cpu"),
	)
})
