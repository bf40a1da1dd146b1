package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerce-platform/stock-ledger/internal/domain"
)

func TestKeyedLock_SerializesSameKey(t *testing.T) {
	locks := newKeyedLock()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "PROD-001@WH-A", time.Second)
	require.NoError(t, err)

	_, err = locks.acquire(ctx, "PROD-001@WH-A", 50*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	release()

	release2, err := locks.acquire(ctx, "PROD-001@WH-A", 50*time.Millisecond)
	require.NoError(t, err)
	release2()
}

func TestKeyedLock_IndependentKeys(t *testing.T) {
	locks := newKeyedLock()
	ctx := context.Background()

	releaseA, err := locks.acquire(ctx, "PROD-001@WH-A", time.Second)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locks.acquire(ctx, "PROD-001@WH-B", 50*time.Millisecond)
	require.NoError(t, err)
	releaseB()
}

func TestKeyedLock_EvictsIdleSlots(t *testing.T) {
	locks := newKeyedLock()
	ctx := context.Background()

	keys := []string{"PROD-001@WH-A", "PROD-002@WH-A", "PROD-003@WH-B"}
	for _, key := range keys {
		release, err := locks.acquire(ctx, key, time.Second)
		require.NoError(t, err)
		release()
	}

	locks.mu.Lock()
	assert.Empty(t, locks.slots)
	locks.mu.Unlock()
}

func TestKeyedLock_KeepsSlotWhileContended(t *testing.T) {
	locks := newKeyedLock()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "PROD-001@WH-A", time.Second)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		release2, err := locks.acquire(ctx, "PROD-001@WH-A", time.Second)
		assert.NoError(t, err)
		release2()
	}()

	// let the waiter park on the slot, then hand over the lock
	time.Sleep(20 * time.Millisecond)
	release()
	<-done

	locks.mu.Lock()
	assert.Empty(t, locks.slots)
	locks.mu.Unlock()
}

func TestKeyedLock_EvictsSlotAfterTimeout(t *testing.T) {
	locks := newKeyedLock()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "PROD-001@WH-A", time.Second)
	require.NoError(t, err)

	_, err = locks.acquire(ctx, "PROD-001@WH-A", 20*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	release()

	locks.mu.Lock()
	assert.Empty(t, locks.slots)
	locks.mu.Unlock()
}

func TestKeyedLock_ContextCancellation(t *testing.T) {
	locks := newKeyedLock()

	release, err := locks.acquire(context.Background(), "PROD-001@WH-A", time.Second)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locks.acquire(ctx, "PROD-001@WH-A", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
