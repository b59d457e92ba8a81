package timecapsule

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes admissions per capsule. The quota check and the
// item commit must see a consistent snapshot; without this, two concurrent
// admissions can each pass the check and jointly overshoot the limits.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Lock acquires the mutex for key, creating it on first use, and returns
// the unlock function. Mutexes are kept for the process lifetime: the key
// space is one entry per touched capsule.
func (k *keyedMutex) Lock(key uuid.UUID) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
