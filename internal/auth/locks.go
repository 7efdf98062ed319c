package auth

import "sync"

// principalLocks serializes session-collection mutations per principal.
// Session stores are read-modify-write over the whole collection, so two
// concurrent mutations for the same principal would otherwise race and the
// last write would silently discard the other's change.
type principalLocks struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newPrincipalLocks() *principalLocks {
	return &principalLocks{locks: make(map[int64]*lockEntry)}
}

// lock acquires the principal's mutex and returns its release func.
func (l *principalLocks) lock(principalID int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[principalID]
	if !ok {
		entry = &lockEntry{}
		l.locks[principalID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, principalID)
		}
		l.mu.Unlock()
	}
}
