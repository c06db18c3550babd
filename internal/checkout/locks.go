package checkout

import "sync"

// principalLocks hands out one mutex per principal id. Entries are reference
// counted and dropped when the last holder unlocks, so the map only holds
// principals with an operation in flight.
type principalLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newPrincipalLocks() *principalLocks {
	return &principalLocks{locks: make(map[string]*lockEntry)}
}

// lock blocks until principalID is free and returns the matching unlock.
func (l *principalLocks) lock(principalID string) func() {
	l.mu.Lock()
	e, ok := l.locks[principalID]
	if !ok {
		e = &lockEntry{}
		l.locks[principalID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, principalID)
		}
		l.mu.Unlock()
	}
}

func (l *principalLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
