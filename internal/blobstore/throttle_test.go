package blobstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottledUnconfiguredClassPassesThrough(t *testing.T) {
	ctx := context.Background()
	th := NewThrottled(NewMemblob(), ThrottleOptions{})
	defer th.Close()

	start := time.Now()
	for range 50 {
		require.NoError(t, th.Put(ctx, "k", []byte("v"), Overwrite))
		_, _, err := th.Get(ctx, "k")
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestThrottledBoundsWriteRate(t *testing.T) {
	ctx := context.Background()
	th := NewThrottled(NewMemblob(), ThrottleOptions{WriteQPS: 100})
	defer th.Close()

	// Burst is one token: 4 writes need at least 3 replenish intervals.
	start := time.Now()
	for i := range 4 {
		require.NoError(t, th.Put(ctx, "k", []byte{byte(i)}, Overwrite))
	}
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	// Reads are a separate class and stay unthrottled here.
	start = time.Now()
	for range 20 {
		_, _, err := th.Get(ctx, "k")
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestThrottledReleasesInArrivalOrder(t *testing.T) {
	ctx := context.Background()
	counting := newCounting(NewMemblob())
	require.NoError(t, counting.inner.Put(ctx, "k", []byte("v"), Overwrite))

	// Service interval 20ms, arrivals every 5ms: the queue builds up and
	// completions must still follow arrival order.
	th := NewThrottled(counting, ThrottleOptions{ReadQPS: 50})
	defer th.Close()

	const callers = 6
	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := th.Get(ctx, "k")
			require.NoError(t, err)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}()
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	require.Len(t, order, callers)
	for i, got := range order {
		assert.Equal(t, i, got, "completion %d out of arrival order", i)
	}
}

func TestThrottledCancelledCallerUnblocks(t *testing.T) {
	th := NewThrottled(NewMemblob(), ThrottleOptions{ReadQPS: 1})
	defer th.Close()

	// Drain the burst token.
	_, _, err := th.Get(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = th.Get(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
