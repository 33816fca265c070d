package service

import "sync"

// inflightLatch is the duplicate-submit guard: it rejects a second concurrent
// invocation for the same in-flight operator action. This is a same-process
// reentrancy guard, not a distributed lock; the UI is single-operator-per-
// session, so process-local state is sufficient.
type inflightLatch struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInflightLatch() *inflightLatch {
	return &inflightLatch{keys: make(map[string]struct{})}
}

// tryAcquire claims the key, reporting false if it is already in flight.
func (l *inflightLatch) tryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.keys[key]; busy {
		return false
	}
	l.keys[key] = struct{}{}
	return true
}

func (l *inflightLatch) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}
