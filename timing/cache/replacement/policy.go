package replacement

// AccessKind classifies an access the way the host reports it.
type AccessKind int

// Access kinds.
const (
	Load AccessKind = iota
	RFO
	Prefetch
	Write
	Translation
)

var accessKindNames = [...]string{"load", "rfo", "prefetch", "write", "translation"}

func (k AccessKind) String() string {
	if k < 0 || int(k) >= len(accessKindNames) {
		return "unknown"
	}
	return accessKindNames[k]
}

// VictimContext identifies the set that needs a victim.
type VictimContext struct {
	CPU     int
	Set     int
	Address uint64
}

// Access describes one observed access to a way.
type Access struct {
	CPU     int
	Set     int
	Way     int
	Address uint64
	IP      uint64
	Kind    AccessKind
	Hit     bool

	// Priority is a host-supplied priority hint. Only HintClassifier reads
	// it.
	Priority bool
}

// Fill describes the installation of a new line into a way.
type Fill struct {
	CPU     int
	Set     int
	Way     int
	Address uint64
}

// A Policy decides which way of a set to evict and tracks the metadata it
// needs to do so. Calls against one policy must not overlap.
type Policy interface {
	// Geometry returns the dimensions the policy was built with.
	Geometry() Geometry

	// Reset restores the default metadata of a set in every cpu's view.
	Reset(set int) error

	// SelectVictim returns the way to evict. It does not change metadata.
	SelectVictim(ctx VictimContext) (int, error)

	// OnAccess updates metadata after a hit, or after a miss once the
	// victim is known.
	OnAccess(a Access) error

	// OnFill updates metadata after a new line is installed.
	OnFill(f Fill) error
}

// Stats counts the decisions a policy made.
type Stats struct {
	Accesses         uint64
	Fills            uint64
	Victims          uint64
	ProtectedVictims uint64
	Fallbacks        uint64
}

// A StatsReporter is a Policy that keeps decision counters.
type StatsReporter interface {
	Stats() Stats
}
