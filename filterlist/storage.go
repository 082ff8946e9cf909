package filterlist

import (
	"sync/atomic"
)

// Snapshot is a consistent pair of block and allow rule sets.  It is never
// modified after it is published.
type Snapshot struct {
	// Block is the list of block rules.  It is never nil.
	Block *RuleSet

	// Allow is the list of allow rules.  It is never nil.
	Allow *RuleSet
}

// RuleStorage keeps the current block and allow rule sets.  Rule sets are
// only ever replaced as a whole, readers get a consistent snapshot without
// locking.
type RuleStorage struct {
	current atomic.Pointer[Snapshot]
}

// NewRuleStorage returns a new storage with empty rule sets.
func NewRuleStorage() (s *RuleStorage) {
	s = &RuleStorage{}
	s.current.Store(&Snapshot{
		Block: NewRuleSet(nil),
		Allow: NewRuleSet(nil),
	})

	return s
}

// Load returns the current snapshot.
func (s *RuleStorage) Load() (snap *Snapshot) {
	return s.current.Load()
}

// SetBlock replaces the block rules and returns the new snapshot.  A nil set
// is replaced with an empty one.
func (s *RuleStorage) SetBlock(block *RuleSet) (snap *Snapshot) {
	if block == nil {
		block = NewRuleSet(nil)
	}

	return s.update(func(prev *Snapshot) (next *Snapshot) {
		return &Snapshot{Block: block, Allow: prev.Allow}
	})
}

// SetAllow replaces the allow rules and returns the new snapshot.  A nil set
// is replaced with an empty one.
func (s *RuleStorage) SetAllow(allow *RuleSet) (snap *Snapshot) {
	if allow == nil {
		allow = NewRuleSet(nil)
	}

	return s.update(func(prev *Snapshot) (next *Snapshot) {
		return &Snapshot{Block: prev.Block, Allow: allow}
	})
}

// update publishes the snapshot built by f from the current one retrying if
// another update won the race.
func (s *RuleStorage) update(f func(prev *Snapshot) (next *Snapshot)) (snap *Snapshot) {
	for {
		prev := s.current.Load()
		snap = f(prev)
		if s.current.CompareAndSwap(prev, snap) {
			return snap
		}
	}
}
