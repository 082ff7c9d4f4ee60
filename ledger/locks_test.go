package ledger

import (
	"sync"
	"testing"
	"time"
)

func TestLockOrderedDeduplicates(t *testing.T) {
	lm := newLockManager()

	done := make(chan struct{})
	go func() {
		// locking the same address twice must not self-deadlock
		unlock := lm.lockOrdered("alice", "alice")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lockOrdered deadlocked on duplicate address")
	}
}

func TestLockOrderedOppositePairs(t *testing.T) {
	lm := newLockManager()

	// hammer A->B and B->A concurrently; ordered acquisition must
	// never deadlock
	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		first, second := "alice", "bob"
		if i%2 == 1 {
			first, second = second, first
		}
		go func(first, second string) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				unlock := lm.lockOrdered(first, second)
				unlock()
			}
		}(first, second)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("opposite lock orders deadlocked")
	}
}

func TestLockManagerReusesMutexes(t *testing.T) {
	lm := newLockManager()
	if lm.get("alice") != lm.get("alice") {
		t.Error("same address must map to the same mutex")
	}
	if lm.get("alice") == lm.get("bob") {
		t.Error("different addresses must not share a mutex")
	}
}
