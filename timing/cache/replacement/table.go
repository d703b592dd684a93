package replacement

// LineSlot is the replacement metadata of one cache line.
type LineSlot struct {
	// Recency is a stack rank (0 = most recent) or a clock timestamp (larger
	// = more recent), depending on the owning policy's encoding.
	Recency uint64

	// Protected biases victim selection away from the line. It never stops
	// the line from being replaced once chosen.
	Protected bool
}

// Table is a flat, fixed-size store of LineSlots indexed by (cpu, set, way).
type Table struct {
	geometry Geometry
	slots    []LineSlot
}

// NewTable allocates a table for the given dimensions with every set in its
// reset state.
func NewTable(g Geometry) (*Table, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	t := &Table{
		geometry: g,
		slots:    make([]LineSlot, g.Lines()),
	}
	for i := range t.slots {
		t.slots[i].Recency = uint64(i % g.NumWays)
	}

	return t, nil
}

// Geometry returns the table dimensions.
func (t *Table) Geometry() Geometry {
	return t.geometry
}

// Reset clears protection and restores positional recency (way i gets
// recency i) for every way of the set, in every cpu's view.
func (t *Table) Reset(set int) error {
	if err := t.checkSet(set); err != nil {
		return err
	}

	for cpu := 0; cpu < t.geometry.NumCPUs; cpu++ {
		ways := t.ways(cpu, set)
		for way := range ways {
			ways[way] = LineSlot{Recency: uint64(way)}
		}
	}

	return nil
}

// Get returns the slot at (cpu, set, way).
func (t *Table) Get(cpu, set, way int) (LineSlot, error) {
	i, err := t.index(cpu, set, way)
	if err != nil {
		return LineSlot{}, err
	}
	return t.slots[i], nil
}

// Set overwrites the slot at (cpu, set, way).
func (t *Table) Set(cpu, set, way int, slot LineSlot) error {
	i, err := t.index(cpu, set, way)
	if err != nil {
		return err
	}
	t.slots[i] = slot
	return nil
}

// Snapshot returns a copy of the slots of one set, indexed by way.
func (t *Table) Snapshot(cpu, set int) ([]LineSlot, error) {
	ways, err := t.setSlots(cpu, set)
	if err != nil {
		return nil, err
	}
	return append([]LineSlot(nil), ways...), nil
}

// setSlots returns the slots of one set. The slice aliases the table.
func (t *Table) setSlots(cpu, set int) ([]LineSlot, error) {
	if err := t.checkCPU(cpu); err != nil {
		return nil, err
	}
	if err := t.checkSet(set); err != nil {
		return nil, err
	}
	return t.ways(cpu, set), nil
}

func (t *Table) ways(cpu, set int) []LineSlot {
	n := t.geometry.NumWays
	base := (cpu*t.geometry.NumSets + set) * n
	return t.slots[base : base+n : base+n]
}

func (t *Table) index(cpu, set, way int) (int, error) {
	if err := t.checkCPU(cpu); err != nil {
		return 0, err
	}
	if err := t.checkSet(set); err != nil {
		return 0, err
	}
	if err := t.checkWay(way); err != nil {
		return 0, err
	}

	g := t.geometry
	return cpu*g.NumSets*g.NumWays + set*g.NumWays + way, nil
}

func (t *Table) checkCPU(cpu int) error {
	if cpu < 0 || cpu >= t.geometry.NumCPUs {
		return outOfRangeError("cpu", cpu, t.geometry.NumCPUs)
	}
	return nil
}

func (t *Table) checkSet(set int) error {
	if set < 0 || set >= t.geometry.NumSets {
		return outOfRangeError("set", set, t.geometry.NumSets)
	}
	return nil
}

func (t *Table) checkWay(way int) error {
	if way < 0 || way >= t.geometry.NumWays {
		return outOfRangeError("way", way, t.geometry.NumWays)
	}
	return nil
}
