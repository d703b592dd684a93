package replacement

// RecencyEncoding selects how LineSlot.Recency is interpreted.
type RecencyEncoding int

const (
	// StackEncoding keeps a rank per way, 0 being the most recently used.
	// The ranks of a set always form a permutation of [0, ways).
	StackEncoding RecencyEncoding = iota

	// ClockEncoding stamps ways with a per-policy tick, larger meaning more
	// recent.
	ClockEncoding
)

func (e RecencyEncoding) String() string {
	switch e {
	case StackEncoding:
		return "stack"
	case ClockEncoding:
		return "clock"
	default:
		return "unknown"
	}
}

// older reports whether recency a is strictly less recent than b.
func (e RecencyEncoding) older(a, b uint64) bool {
	if e == ClockEncoding {
		return a < b
	}
	return a > b
}
