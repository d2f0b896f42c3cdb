package blobstore

import (
	"context"
	"sync/atomic"
)

// countingBlobstore wraps an inner store and counts calls that actually
// reach it. Used to observe cache short-circuits and write dedup.
type countingBlobstore struct {
	inner  Blobstore
	puts   atomic.Int64
	gets   atomic.Int64
	checks atomic.Int64
}

func newCounting(inner Blobstore) *countingBlobstore {
	return &countingBlobstore{inner: inner}
}

func (c *countingBlobstore) Put(ctx context.Context, key string, value []byte, behaviour PutBehaviour) error {
	c.puts.Add(1)
	return c.inner.Put(ctx, key, value, behaviour)
}

func (c *countingBlobstore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.gets.Add(1)
	return c.inner.Get(ctx, key)
}

func (c *countingBlobstore) IsPresent(ctx context.Context, key string) (Presence, error) {
	c.checks.Add(1)
	return c.inner.IsPresent(ctx, key)
}
