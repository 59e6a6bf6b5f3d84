package core

import "sync"

// keyedMutex serializes mutations per natural key. The status-sync engine
// locks on (companyID, invoiceNumber) and the daily-expense upsert on
// (companyID, month, day), so concurrent read-then-write recomputations of
// the same record cannot lose updates. Entries are never evicted; the map is
// bounded by the number of distinct keys ever touched in this process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
