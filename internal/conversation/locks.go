// ABOUTME: Per-conversation mutual exclusion
// ABOUTME: KeyedMutex hands out one lock per conversation id and frees idle entries

package conversation

import (
	"context"
	"sync"
)

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex serializes work per conversation id. Waiting for a lock honours
// context cancellation. The zero value is ready to use.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[int64]*keyedEntry
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[int64]*keyedEntry)}
}

// Lock blocks until the lock for key is held or ctx is done. A context that
// is already done fails immediately. The returned function releases the lock
// and must be called exactly once.
func (k *KeyedMutex) Lock(ctx context.Context, key int64) (func(), error) {
	// A done context never acquires, even when the lock is free
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[int64]*keyedEntry)
	}
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.sem
				k.release(key, e)
			})
		}, nil
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) release(key int64, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
