package scheduling

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex provides per-resource mutual exclusion. Locks for different
// resources are independent; a caller only ever holds one at a time, so no
// ordering cycles can form.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*resourceLock
}

type resourceLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*resourceLock)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *keyedMutex) Lock(key uuid.UUID) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &resourceLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
}

// Unlock releases the mutex for key and frees it when no longer contended.
func (k *keyedMutex) Unlock(key uuid.UUID) {
	k.mu.Lock()
	l := k.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	l.Unlock()
}
