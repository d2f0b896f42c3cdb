package blobkit

import (
	"context"
	"io"
	"iter"

	"github.com/aweris/blobkit/internal/blobstore"
	"github.com/aweris/blobkit/internal/filestore"
)

// Filestore is the top of the stack: a chunked content store over a
// decorated blobstore. It is safe for concurrent use.
type Filestore struct {
	blob     Blobstore
	cache    *blobstore.CachedBlobstore
	throttle *blobstore.ThrottledBlobstore
	closers  []func() error
	cfg      filestore.Config
}

// Open builds the stack fixed by opts: physical backend, then prefix,
// lease, cache and throttle decorators in that wrapping order, so a call
// travels throttle → cache → lease → prefix → backend.
func Open(opts ...Option) (*Filestore, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	blob, closer, err := options.backend(context.Background())
	if err != nil {
		return nil, err
	}

	s := &Filestore{
		cfg: filestore.Config{
			ChunkSize:    options.ChunkSize,
			Concurrency:  options.Concurrency,
			PutBehaviour: options.PutBehaviour,
		},
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}

	if options.Prefix != "" {
		blob = blobstore.NewPrefix(blob, options.Prefix)
	}

	if options.NoLease {
		blob = blobstore.NewNoLease(blob)
	} else {
		leases := options.LeaseStore
		if leases == nil {
			leases = blobstore.NewMemLeaseStore()
		}
		blob = blobstore.NewLeased(blob, leases, options.Lease)
	}

	if options.CacheBlobEntries > 0 {
		cached, err := blobstore.NewCached(blob, options.CacheBlobEntries, options.CachePresenceEntries)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.cache = cached
		blob = cached
	}

	if options.Throttle.ReadQPS > 0 || options.Throttle.WriteQPS > 0 {
		throttled := blobstore.NewThrottled(blob, options.Throttle)
		s.throttle = throttled
		blob = throttled
	}

	s.blob = blob
	return s, nil
}

// Store consumes r and commits it as content-addressed chunks plus a
// metadata record. See the filestore package for the durability ordering.
func (s *Filestore) Store(ctx context.Context, req *StoreRequest, r io.Reader) (*ContentMetadata, error) {
	return filestore.Store(ctx, s.blob, s.cfg, req, r)
}

// Fetch returns a lazy chunk sequence for the content addressed by key.
// Missing content fails with ErrNotFound.
func (s *Filestore) Fetch(ctx context.Context, key FetchKey) (iter.Seq2[[]byte, error], error) {
	return filestore.Fetch(ctx, s.blob, key)
}

// FetchBytes drains Fetch into one buffer. Convenience for small content.
func (s *Filestore) FetchBytes(ctx context.Context, key FetchKey) ([]byte, error) {
	seq, err := s.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	var out []byte
	for data, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

// Metadata resolves key and returns its commit record.
func (s *Filestore) Metadata(ctx context.Context, key FetchKey) (*ContentMetadata, error) {
	return filestore.FetchMetadata(ctx, s.blob, key)
}

// IsPresent reports whether content addressed by key is fully stored.
func (s *Filestore) IsPresent(ctx context.Context, key FetchKey) (Presence, error) {
	return filestore.IsPresent(ctx, s.blob, key)
}

// Blobstore exposes the decorated stack for callers that need raw
// key-level access beneath the chunking layer.
func (s *Filestore) Blobstore() Blobstore { return s.blob }

// DropCaches drops every cached entry without a restart. This is the only
// supported invalidation path besides capacity eviction.
func (s *Filestore) DropCaches() {
	if s.cache != nil {
		s.cache.DropCaches()
	}
}

// Close releases backend connections and stops the throttle dispatchers.
func (s *Filestore) Close() error {
	if s.throttle != nil {
		s.throttle.Close()
	}
	var firstErr error
	for _, closer := range s.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
