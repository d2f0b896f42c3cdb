package blobstore

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedBlobstore adds read-through/write-through caching over an inner
// store. Two independently sized LRU regions: a presence index (existence
// only, sized small since check volume is high) and a blob cache (full
// payloads, sized larger).
//
// Population is never speculative: entries appear only after a successful
// inner read or a successful write-through. The only invalidation paths are
// capacity eviction and the explicit DropCaches call.
type CachedBlobstore struct {
	inner    Blobstore
	blobs    *lru.Cache[string, []byte]
	presence *lru.Cache[string, struct{}]
}

func NewCached(inner Blobstore, blobEntries, presenceEntries int) (*CachedBlobstore, error) {
	if blobEntries <= 0 || presenceEntries <= 0 {
		return nil, fmt.Errorf("cache region sizes must be positive, got blobs=%d presence=%d", blobEntries, presenceEntries)
	}
	blobs, err := lru.New[string, []byte](blobEntries)
	if err != nil {
		return nil, fmt.Errorf("create blob cache: %w", err)
	}
	presence, err := lru.New[string, struct{}](presenceEntries)
	if err != nil {
		return nil, fmt.Errorf("create presence cache: %w", err)
	}
	return &CachedBlobstore{inner: inner, blobs: blobs, presence: presence}, nil
}

func (c *CachedBlobstore) Put(ctx context.Context, key string, value []byte, behaviour PutBehaviour) error {
	// Write-through first; populate only on success.
	if err := c.inner.Put(ctx, key, value, behaviour); err != nil {
		return err
	}
	c.blobs.Add(key, value)
	c.presence.Add(key, struct{}{})
	return nil
}

func (c *CachedBlobstore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, ok := c.blobs.Get(key); ok {
		return value, true, nil
	}
	value, ok, err := c.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	c.blobs.Add(key, value)
	c.presence.Add(key, struct{}{})
	return value, true, nil
}

func (c *CachedBlobstore) IsPresent(ctx context.Context, key string) (Presence, error) {
	if c.blobs.Contains(key) || c.presence.Contains(key) {
		return Present, nil
	}
	// No entry: the honest answer from this layer alone is MaybePresent,
	// so ask the backend and remember a definite Present.
	presence, err := c.inner.IsPresent(ctx, key)
	if err != nil {
		return Absent, err
	}
	if presence == Present {
		c.presence.Add(key, struct{}{})
	}
	return presence, nil
}

// DropCaches drops both regions. This is the administrative invalidation
// path; there is no TTL-based expiry.
func (c *CachedBlobstore) DropCaches() {
	c.blobs.Purge()
	c.presence.Purge()
}
