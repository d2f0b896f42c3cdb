package blobstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedBlobstore blocks every Put until released, so tests can hold writes
// in flight deterministically.
type gatedBlobstore struct {
	Blobstore
	started chan struct{}
	release chan struct{}
}

func newGated(inner Blobstore) *gatedBlobstore {
	return &gatedBlobstore{
		Blobstore: inner,
		started:   make(chan struct{}, 64),
		release:   make(chan struct{}),
	}
}

func (g *gatedBlobstore) Put(ctx context.Context, key string, value []byte, behaviour PutBehaviour) error {
	g.started <- struct{}{}
	<-g.release
	return g.Blobstore.Put(ctx, key, value, behaviour)
}

func TestLeasedNoLeasePassthrough(t *testing.T) {
	ctx := context.Background()
	counting := newCounting(NewMemblob())
	l := NewNoLease(counting)

	require.NoError(t, l.Put(ctx, "k", []byte("v"), Overwrite))
	got, ok, err := l.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.EqualValues(t, 1, counting.puts.Load())
}

func TestLeasedCollapsesConcurrentIdenticalWrites(t *testing.T) {
	ctx := context.Background()
	counting := newCounting(NewMemblob())
	gated := newGated(counting)
	l := NewLeased(gated, NewMemLeaseStore(), LeaseOptions{})

	var wg sync.WaitGroup
	errs := make([]error, 8)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = l.Put(ctx, "k", []byte("v"), IfAbsent)
	}()

	// First writer is in flight; the rest arrive while it holds the call.
	<-gated.started
	for i := 1; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = l.Put(ctx, "k", []byte("v"), IfAbsent)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gated.release)
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "writer %d", i)
	}
	// All in-process duplicates shared one backend write.
	assert.EqualValues(t, 1, counting.puts.Load())
}

func TestLeasedWaiterTimesOutOnHeldLease(t *testing.T) {
	ctx := context.Background()
	leases := NewMemLeaseStore()
	counting := newCounting(NewMemblob())
	l := NewLeased(counting, leases, LeaseOptions{
		TTL:          time.Minute,
		PollInterval: 5 * time.Millisecond,
		WaitMax:      50 * time.Millisecond,
	})

	// A foreign process holds the lease and never completes.
	held, err := leases.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	err = l.Put(ctx, "k", []byte("v"), IfAbsent)
	require.ErrorIs(t, err, ErrLeaseTimeout)
	assert.EqualValues(t, 0, counting.puts.Load())
}

func TestLeasedWaiterAdoptsHoldersResult(t *testing.T) {
	ctx := context.Background()
	leases := NewMemLeaseStore()
	inner := NewMemblob()
	counting := newCounting(inner)
	l := NewLeased(counting, leases, LeaseOptions{
		TTL:          time.Minute,
		PollInterval: 5 * time.Millisecond,
		WaitMax:      2 * time.Second,
	})

	held, err := leases.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	done := make(chan error, 1)
	go func() {
		done <- l.Put(ctx, "k", []byte("v"), IfAbsent)
	}()

	// The holder's write lands out of band while its lease stays held, so
	// the waiter can only succeed by observing the visible result.
	time.Sleep(15 * time.Millisecond)
	require.NoError(t, inner.Put(ctx, "k", []byte("v"), IfAbsent))

	require.NoError(t, <-done)
	// The waiter adopted the visible result instead of re-writing.
	assert.EqualValues(t, 0, counting.puts.Load())
}

func TestLeasedRetriesAfterLeaseExpiry(t *testing.T) {
	ctx := context.Background()
	leases := NewMemLeaseStore()
	counting := newCounting(NewMemblob())
	l := NewLeased(counting, leases, LeaseOptions{
		TTL:          time.Minute,
		PollInterval: 5 * time.Millisecond,
		WaitMax:      2 * time.Second,
	})

	// A crashed holder left a short lease behind; it expires and the
	// waiting writer takes over.
	held, err := leases.TryAcquire(ctx, "k", 20*time.Millisecond)
	require.NoError(t, err)
	require.True(t, held)

	require.NoError(t, l.Put(ctx, "k", []byte("v"), IfAbsent))
	assert.EqualValues(t, 1, counting.puts.Load())

	got, ok, err := l.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemLeaseStoreExclusivity(t *testing.T) {
	ctx := context.Background()
	leases := NewMemLeaseStore()

	held, err := leases.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, held)

	held, err = leases.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, held)

	require.NoError(t, leases.Release(ctx, "k"))
	held, err = leases.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, held)
}
