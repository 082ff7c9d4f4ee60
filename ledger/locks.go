package ledger

import (
	"sort"
	"sync"
)

// lockManager hands out one mutex per account address so unrelated
// accounts never contend with each other.
type lockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockManager() *lockManager {
	return &lockManager{
		locks: make(map[string]*sync.Mutex),
	}
}

// get returns the mutex for addr, creating it on first use. Locks are
// never evicted; the working set is bounded by the number of accounts.
func (lm *lockManager) get(addr string) *sync.Mutex {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	m, ok := lm.locks[addr]
	if !ok {
		m = &sync.Mutex{}
		lm.locks[addr] = m
	}
	return m
}

// lockOrdered locks the given addresses in lexicographic order, which
// keeps two operations touching the same pair from deadlocking. The
// returned function releases the locks in reverse order.
func (lm *lockManager) lockOrdered(addrs ...string) func() {
	unique := make([]string, 0, len(addrs))
	seen := make(map[string]struct{}, len(addrs))
	for _, addr := range addrs {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		unique = append(unique, addr)
	}
	sort.Strings(unique)

	mutexes := make([]*sync.Mutex, len(unique))
	for i, addr := range unique {
		mutexes[i] = lm.get(addr)
	}
	for _, m := range mutexes {
		m.Lock()
	}

	return func() {
		for i := len(mutexes) - 1; i >= 0; i-- {
			mutexes[i].Unlock()
		}
	}
}
