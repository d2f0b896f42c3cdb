package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
)

// LeaseStore is the shared coordination store for write leases. An
// implementation may live in process memory (MemLeaseStore) or in a shared
// service; either way a lease is a short-lived exclusive claim on a key.
type LeaseStore interface {
	// TryAcquire claims key for ttl. It returns held=false without error
	// when another writer already holds an unexpired lease.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (held bool, err error)

	// Release drops the claim on key. Releasing an expired or unheld lease
	// is a no-op.
	Release(ctx context.Context, key string) error
}

// LeaseOptions tunes write-lease coordination. The waiter retry bound is
// deliberately configurable: WaitMax caps how long a writer polls a held
// lease before giving up with ErrLeaseTimeout.
type LeaseOptions struct {
	// TTL is the lease lifetime. It must exceed the expected write latency;
	// a crashed holder's lease expires after TTL and a later writer retries.
	TTL time.Duration

	// PollInterval is the initial wait between polls of a held lease; the
	// interval backs off exponentially from there.
	PollInterval time.Duration

	// WaitMax bounds the total time a writer waits on another's lease.
	WaitMax time.Duration
}

func (o LeaseOptions) withDefaults() LeaseOptions {
	if o.TTL <= 0 {
		o.TTL = 20 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 50 * time.Millisecond
	}
	if o.WaitMax <= 0 {
		o.WaitMax = 2 * o.TTL
	}
	return o
}

// LeasedBlobstore deduplicates concurrent writes of the same key.
//
// In-process duplicates collapse through a singleflight group: concurrent
// callers putting the same key share one inner write and its outcome.
// Cross-process duplicates coordinate through the LeaseStore: a writer that
// finds the lease held waits for the holder's write to become visible
// instead of performing a redundant one.
//
// Keys are content-addressed, so an identical key implies identical bytes
// and waiting on the holder's result is equivalent to writing.
type LeasedBlobstore struct {
	inner  Blobstore
	leases LeaseStore // nil in no-lease mode
	opts   LeaseOptions
	group  singleflight.Group
}

// NewLeased wraps inner with write-lease coordination through leases.
func NewLeased(inner Blobstore, leases LeaseStore, opts LeaseOptions) *LeasedBlobstore {
	return &LeasedBlobstore{inner: inner, leases: leases, opts: opts.withDefaults()}
}

// NewNoLease wraps inner with in-process dedup only, skipping lease
// acquisition entirely. Used when duplicate concurrent writes are
// acceptable, e.g. load generation.
func NewNoLease(inner Blobstore) *LeasedBlobstore {
	return &LeasedBlobstore{inner: inner}
}

func (l *LeasedBlobstore) Put(ctx context.Context, key string, value []byte, behaviour PutBehaviour) error {
	_, err, _ := l.group.Do(key, func() (any, error) {
		if l.leases == nil {
			return nil, l.inner.Put(ctx, key, value, behaviour)
		}
		return nil, l.putWithLease(ctx, key, value, behaviour)
	})
	return err
}

func (l *LeasedBlobstore) putWithLease(ctx context.Context, key string, value []byte, behaviour PutBehaviour) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.opts.PollInterval
	bo.MaxElapsedTime = l.opts.WaitMax
	bo.Reset()

	for {
		held, err := l.leases.TryAcquire(ctx, key, l.opts.TTL)
		if err != nil {
			return fmt.Errorf("acquire lease for %q: %w", key, err)
		}
		if held {
			putErr := l.inner.Put(ctx, key, value, behaviour)
			if relErr := l.leases.Release(ctx, key); relErr != nil && putErr == nil {
				putErr = fmt.Errorf("release lease for %q: %w", key, relErr)
			}
			return putErr
		}

		// Another writer holds the lease. Wait, then check whether its
		// write landed before deciding to retry acquisition.
		next := bo.NextBackOff()
		if next == backoff.Stop {
			return fmt.Errorf("waiting on lease for %q: %w", key, ErrLeaseTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next):
		}

		presence, err := l.inner.IsPresent(ctx, key)
		if err != nil {
			return fmt.Errorf("poll presence of %q: %w", key, err)
		}
		if presence == Present {
			// The holder's write is visible; same key, same bytes.
			return nil
		}
	}
}

func (l *LeasedBlobstore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return l.inner.Get(ctx, key)
}

func (l *LeasedBlobstore) IsPresent(ctx context.Context, key string) (Presence, error) {
	return l.inner.IsPresent(ctx, key)
}
