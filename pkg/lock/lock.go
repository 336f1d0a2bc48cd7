package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotAcquired is returned when the lease is held by someone else.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out best-effort leases. A lease expires after ttl even when it
// is never released, so a crashed holder cannot block others forever.
type Locker interface {
	// Acquire returns a release function or ErrNotAcquired.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// LocalLocker serializes holders within one process.
type LocalLocker struct {
	mu     sync.Mutex
	leases map[string]localLease
	now    func() time.Time
	nextID uint64
}

type localLease struct {
	id        uint64
	expiresAt time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{leases: make(map[string]localLease), now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[key]; ok && now.Before(held.expiresAt) {
		return nil, ErrNotAcquired
	}
	l.nextID++
	id := l.nextID
	l.leases[key] = localLease{id: id, expiresAt: now.Add(ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[key]; ok && held.id == id {
			delete(l.leases, key)
		}
	}, nil
}
