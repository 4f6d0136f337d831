// Package locks provides an in-process registry of named blocking locks.
// Structure mutations acquire one lease per collection so concurrent edits of
// the same tree serialize while different collections proceed in parallel.
package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"arbor/internal/domain"
)

// StructureKey derives the lock key guarding a collection's document
// structure. Keys are always derived from the collection id so locking one
// collection never blocks another.
func StructureKey(collectionID string) string {
	return "structure:" + collectionID
}

// waiter represents one queued acquisition. Its channel is closed when the
// lock is handed to it.
type waiter struct {
	ready chan struct{}
}

// entry tracks one busy key: the current holder plus the FIFO queue behind it.
// An entry exists exactly while its key is held; idle keys are removed.
type entry struct {
	waiters []*waiter
}

// Registry hands out at most one Lease per key at a time. Waiters are served
// in arrival order; release passes the lock directly to the first waiter, so
// a late arrival can never overtake the queue.
type Registry struct {
	mu      sync.Mutex
	maxWait time.Duration
	keys    map[string]*entry
}

// NewRegistry creates a lock registry. maxWait bounds how long Acquire blocks
// before giving up with ErrLockTimeout; a non-positive maxWait leaves the
// bound to the caller's context alone.
func NewRegistry(maxWait time.Duration) *Registry {
	return &Registry{
		maxWait: maxWait,
		keys:    make(map[string]*entry),
	}
}

// Acquire blocks until the key's lock is free, the registry's wait bound
// elapses, or ctx is done. On success the returned Lease must be released,
// typically with defer. Timeout errors wrap domain.ErrLockTimeout and are
// retryable; context errors wrap ctx.Err().
func (r *Registry) Acquire(ctx context.Context, key string) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire %q: %w", key, err)
	}

	r.mu.Lock()
	e, busy := r.keys[key]
	if !busy {
		r.keys[key] = &entry{}
		r.mu.Unlock()
		return &Lease{registry: r, key: key}, nil
	}
	w := &waiter{ready: make(chan struct{})}
	e.waiters = append(e.waiters, w)
	r.mu.Unlock()

	var timeout <-chan time.Time
	if r.maxWait > 0 {
		t := time.NewTimer(r.maxWait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-w.ready:
		return &Lease{registry: r, key: key}, nil
	case <-timeout:
		if !r.withdraw(key, w) {
			// Handed the lock in the same instant the timer fired; we are
			// no longer waiting, so pass it straight to the next in line.
			r.release(key)
		}
		return nil, fmt.Errorf("acquire %q after %s: %w", key, r.maxWait, domain.ErrLockTimeout)
	case <-ctx.Done():
		if !r.withdraw(key, w) {
			r.release(key)
		}
		return nil, fmt.Errorf("acquire %q: %w", key, ctx.Err())
	}
}

// withdraw removes w from the key's queue. It reports false when w is not
// queued anymore, which means the lock was already handed to it.
func (r *Registry) withdraw(key string, w *waiter) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.keys[key]
	if !ok {
		return false
	}
	for i, q := range e.waiters {
		if q == w {
			e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// release hands the key to the first waiter, or drops the entry entirely when
// nobody is queued so the registry does not accumulate idle keys.
func (r *Registry) release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.keys[key]
	if !ok {
		return
	}
	if len(e.waiters) > 0 {
		w := e.waiters[0]
		e.waiters = e.waiters[1:]
		close(w.ready)
		return
	}
	delete(r.keys, key)
}

// busyKeys reports how many keys currently have a holder. Used by tests to
// verify idle keys are cleaned up.
func (r *Registry) busyKeys() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

// Lease is exclusive ownership of one key until released.
type Lease struct {
	registry *Registry
	key      string
	once     sync.Once
}

// Key returns the key this lease holds.
func (l *Lease) Key() string {
	return l.key
}

// Release gives the lock up, waking the next waiter if any. Releasing more
// than once is safe; only the first call has an effect.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.registry.release(l.key)
	})
}

// leaseContextKey is the type for lease context keys
type leaseContextKey string

// leaseKey is the context key for storing a held lease
const leaseKey leaseContextKey = "structure_lease"

// WithLease stores a held lease in the context so nested operations can tell
// the key is already locked by their caller.
func WithLease(ctx context.Context, l *Lease) context.Context {
	return context.WithValue(ctx, leaseKey, l)
}

// Held reports whether the context carries a lease for key. Operations that
// lock internally skip acquisition (and release) when their caller already
// holds the key.
func Held(ctx context.Context, key string) bool {
	l, ok := ctx.Value(leaseKey).(*Lease)
	return ok && l != nil && l.key == key
}
