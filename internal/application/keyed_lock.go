package application

import (
	"context"
	"sync"
	"time"

	"github.com/commerce-platform/stock-ledger/internal/domain"
)

// lockSlot is one key's lock plus the number of holders and waiters
// currently interested in it.
type lockSlot struct {
	ch   chan struct{}
	refs int
}

// keyedLock serializes work per stock record key. Acquisition is bounded:
// a caller that cannot get the lock within the timeout fails with
// ErrConcurrencyConflict instead of queueing indefinitely. Slots are
// reference counted and evicted once the last holder or waiter is done,
// so the map does not grow with record-key cardinality.
type keyedLock struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

func newKeyedLock() *keyedLock {
	return &keyedLock{slots: make(map[string]*lockSlot)}
}

func (l *keyedLock) checkout(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *keyedLock) checkin(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// acquire takes the lock for key, waiting at most timeout. The returned
// release function must be called exactly once.
func (l *keyedLock) acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	slot := l.checkout(key)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot.ch <- struct{}{}:
		return func() {
			<-slot.ch
			l.checkin(key, slot)
		}, nil
	case <-timer.C:
		l.checkin(key, slot)
		return nil, domain.ErrConcurrencyConflict
	case <-ctx.Done():
		l.checkin(key, slot)
		return nil, ctx.Err()
	}
}
