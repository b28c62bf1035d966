package engine

import "sync"

// =============================================================================
// PER-ACCOUNT LOCKS
// =============================================================================

// accountLocks serializes read-then-write operations per account id.
// Cross-account operations run in parallel; two mutations of the same
// account never interleave between their balance check and their writes.
//
// Locks are never evicted. The map grows with the number of distinct
// accounts touched by this process, which is bounded by the user base.
type accountLocks struct {
	mu    sync.Mutex
	locks map[AccountID]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[AccountID]*sync.Mutex)}
}

// acquire locks the account and returns the matching unlock.
func (l *accountLocks) acquire(id AccountID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
