package replacement

// Emissary is a protect-aware LRU replacement policy.
//
// While at most PriorityThreshold lines of a set are protected, the
// victim is the least recently used unprotected line. Above the threshold
// the victim is the least recently used protected line. When the targeted
// class is empty the least recently used line of the whole set is chosen.
type Emissary struct {
	table    *Table
	rule     ProtectionRule
	encoding RecencyEncoding

	// tick is the next clock stamp. It starts above every reset value.
	tick uint64

	stats Stats
}

// EmissaryOption is a functional option for configuring an Emissary policy.
type EmissaryOption func(*Emissary)

// WithProtectionRule sets how lines gain and lose protection. A nil rule
// keeps the default.
func WithProtectionRule(rule ProtectionRule) EmissaryOption {
	return func(e *Emissary) {
		if rule != nil {
			e.rule = rule
		}
	}
}

// WithEncoding sets the recency encoding.
func WithEncoding(encoding RecencyEncoding) EmissaryOption {
	return func(e *Emissary) {
		e.encoding = encoding
	}
}

// NewEmissary creates an Emissary policy. By default it uses the stack
// encoding and RecencyRefresh with AddressClassifier.
func NewEmissary(g Geometry, opts ...EmissaryOption) (*Emissary, error) {
	table, err := NewTable(g)
	if err != nil {
		return nil, err
	}

	e := &Emissary{
		table:    table,
		rule:     RecencyRefresh{Classify: AddressClassifier},
		encoding: StackEncoding,
		tick:     uint64(g.NumWays),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Geometry returns the dimensions the policy was built with.
func (e *Emissary) Geometry() Geometry {
	return e.table.Geometry()
}

// Encoding returns the recency encoding in use.
func (e *Emissary) Encoding() RecencyEncoding {
	return e.encoding
}

// Stats returns the decision counters.
func (e *Emissary) Stats() Stats {
	return e.stats
}

// Snapshot returns a copy of the metadata of one set.
func (e *Emissary) Snapshot(cpu, set int) ([]LineSlot, error) {
	return e.table.Snapshot(cpu, set)
}

// Reset restores the default metadata of a set.
func (e *Emissary) Reset(set int) error {
	return e.table.Reset(set)
}

// SelectVictim returns the way to evict from the set.
func (e *Emissary) SelectVictim(ctx VictimContext) (int, error) {
	ways, err := e.table.setSlots(ctx.CPU, ctx.Set)
	if err != nil {
		return 0, err
	}

	protectedCount := 0
	for _, slot := range ways {
		if slot.Protected {
			protectedCount++
		}
	}

	evictProtected := protectedCount > PriorityThreshold
	victim := e.leastRecent(ways, func(slot LineSlot) bool {
		return slot.Protected == evictProtected
	})

	if victim < 0 {
		e.stats.Fallbacks++
		victim = e.leastRecent(ways, func(LineSlot) bool { return true })
	}

	e.stats.Victims++
	if ways[victim].Protected {
		e.stats.ProtectedVictims++
	}

	return victim, nil
}

// OnAccess applies the protection rule to the accessed way.
func (e *Emissary) OnAccess(a Access) error {
	ways, err := e.table.setSlots(a.CPU, a.Set)
	if err != nil {
		return err
	}
	if err := e.table.checkWay(a.Way); err != nil {
		return err
	}

	e.stats.Accesses++

	protected, refresh := e.rule.Apply(a)
	ways[a.Way].Protected = protected
	if refresh {
		e.refresh(ways, a.Way)
	}

	return nil
}

// OnFill makes the filled way most recently used and unprotected.
func (e *Emissary) OnFill(f Fill) error {
	ways, err := e.table.setSlots(f.CPU, f.Set)
	if err != nil {
		return err
	}
	if err := e.table.checkWay(f.Way); err != nil {
		return err
	}

	e.stats.Fills++

	ways[f.Way].Protected = false
	e.refresh(ways, f.Way)

	return nil
}

// leastRecent returns the least recently used way among those accepted by
// eligible, or -1 if there is none. Ties go to the lowest way.
func (e *Emissary) leastRecent(ways []LineSlot, eligible func(LineSlot) bool) int {
	victim := -1
	for way, slot := range ways {
		if !eligible(slot) {
			continue
		}
		if victim < 0 || e.encoding.older(slot.Recency, ways[victim].Recency) {
			victim = way
		}
	}
	return victim
}

// refresh makes way the most recently used way of the set.
func (e *Emissary) refresh(ways []LineSlot, way int) {
	if e.encoding == ClockEncoding {
		ways[way].Recency = e.tick
		e.tick++
		return
	}

	// Every way that was more recent than this one moves down a rank.
	rank := ways[way].Recency
	for i := range ways {
		if ways[i].Recency < rank {
			ways[i].Recency++
		}
	}
	ways[way].Recency = 0
}
