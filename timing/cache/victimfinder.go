package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/emissary/timing/cache/replacement"
)

// policyVictimFinder lets a replacement.Policy choose victims for an Akita
// directory.
type policyVictimFinder struct {
	policy replacement.Policy
	logger logrus.FieldLogger
}

func newPolicyVictimFinder(
	policy replacement.Policy,
	logger logrus.FieldLogger,
) *policyVictimFinder {
	return &policyVictimFinder{policy: policy, logger: logger}
}

// FindVictim implements akitacache.VictimFinder for requests that carry no
// cpu id.
func (f *policyVictimFinder) FindVictim(set *akitacache.Set) *akitacache.Block {
	return f.findVictim(set, replacement.VictimContext{CPU: replacement.DefaultCPU})
}

// findVictim returns an empty block if the set has one. Only full sets are
// handed to the policy.
func (f *policyVictimFinder) findVictim(
	set *akitacache.Set,
	ctx replacement.VictimContext,
) *akitacache.Block {
	if len(set.Blocks) == 0 {
		return nil
	}

	for _, block := range set.Blocks {
		if !block.IsValid && !block.IsLocked {
			return block
		}
	}

	ctx.Set = set.Blocks[0].SetID
	way, err := f.policy.SelectVictim(ctx)
	if err != nil {
		f.logger.WithError(err).WithFields(logrus.Fields{
			"cpu": ctx.CPU,
			"set": ctx.Set,
		}).Error("replacement policy failed to select a victim")
		return f.lruFallback(set)
	}

	return set.Blocks[way]
}

// lruFallback mirrors Akita's LRU finder, used only when the policy errors.
func (f *policyVictimFinder) lruFallback(set *akitacache.Set) *akitacache.Block {
	for _, block := range set.LRUQueue {
		if !block.IsLocked {
			return block
		}
	}
	return set.Blocks[0]
}
