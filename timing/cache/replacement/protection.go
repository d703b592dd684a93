package replacement

// A Classifier decides from the facts of one access whether the line should
// be protected. It must not depend on earlier accesses.
type Classifier func(a Access) bool

// AddressClassifier protects lines whose address modulo 100 is above 80.
// It is a stand-in until a real priority source is wired in.
func AddressClassifier(a Access) bool {
	return a.Address%100 > 80
}

// HintClassifier protects lines for which the host set the priority hint.
func HintClassifier(a Access) bool {
	return a.Priority
}

// NeverProtect turns RecencyRefresh into plain LRU.
func NeverProtect(Access) bool {
	return false
}

// A ProtectionRule maps an access to the line's new protection flag and
// whether the line becomes most recently used.
type ProtectionRule interface {
	Apply(a Access) (protected, refresh bool)
}

// RecencyRefresh makes every accessed line most recently used and takes the
// protection flag from Classify.
type RecencyRefresh struct {
	Classify Classifier
}

// Apply implements ProtectionRule.
func (r RecencyRefresh) Apply(a Access) (bool, bool) {
	if r.Classify == nil {
		return false, true
	}
	return r.Classify(a), true
}

// ProtectOnHit protects a line on every hit that is not a write and refreshes
// its recency. Misses and writebacks drop protection and leave recency as
// is.
type ProtectOnHit struct{}

// Apply implements ProtectionRule.
func (ProtectOnHit) Apply(a Access) (bool, bool) {
	if a.Hit && a.Kind != Write {
		return true, true
	}
	return false, false
}
