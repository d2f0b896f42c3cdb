package blobkit

import (
	"context"

	"github.com/aweris/blobkit/internal/blobstore"
	"github.com/aweris/blobkit/internal/ociblob"
	"github.com/aweris/blobkit/internal/s3blob"
	"github.com/aweris/blobkit/internal/sqlblob"
)

// OpenOptions configures a store. Everything here is fixed at construction;
// the only runtime mutation is DropCaches.
type OpenOptions struct {
	backend func(ctx context.Context) (Blobstore, func() error, error)

	Prefix string

	// Lease coordination. NoLease skips acquisition entirely; LeaseStore
	// nil with NoLease false uses a process-local store.
	NoLease    bool
	LeaseStore LeaseStore
	Lease      LeaseOptions

	// Cache region sizes in entries. Zero blob entries disables caching.
	CacheBlobEntries     int
	CachePresenceEntries int

	Throttle ThrottleOptions

	// Filestore knobs.
	ChunkSize    uint64
	Concurrency  int
	PutBehaviour PutBehaviour
}

// Option is a functional option for configuring Open.
type Option func(*OpenOptions)

const (
	// DefaultChunkSize matches the common large-object chunking unit.
	DefaultChunkSize = 1 << 20

	DefaultConcurrency = 1

	DefaultCacheBlobEntries     = 512
	DefaultCachePresenceEntries = 8192
)

func defaultOptions() *OpenOptions {
	return &OpenOptions{
		backend: func(context.Context) (Blobstore, func() error, error) {
			return blobstore.NewMemblob(), nil, nil
		},
		CacheBlobEntries:     DefaultCacheBlobEntries,
		CachePresenceEntries: DefaultCachePresenceEntries,
		ChunkSize:            DefaultChunkSize,
		Concurrency:          DefaultConcurrency,
		PutBehaviour:         blobstore.DefaultPutBehaviour,
	}
}

// WithBackend uses a caller-supplied physical backend.
func WithBackend(b Blobstore) Option {
	return func(o *OpenOptions) {
		o.backend = func(context.Context) (Blobstore, func() error, error) { return b, nil, nil }
	}
}

// WithMemoryBackend selects the in-memory backend (the default).
func WithMemoryBackend() Option {
	return func(o *OpenOptions) {
		o.backend = func(context.Context) (Blobstore, func() error, error) {
			return blobstore.NewMemblob(), nil, nil
		}
	}
}

// WithSQLBackend selects the sharded SQL backend.
func WithSQLBackend(connector SQLConnector, shardCount int, opts SQLOptions) Option {
	return func(o *OpenOptions) {
		o.backend = func(ctx context.Context) (Blobstore, func() error, error) {
			s, err := sqlblob.New(ctx, connector, shardCount, opts)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		}
	}
}

// WithS3Backend selects the S3 object-store backend.
func WithS3Backend(bucket string) Option {
	return func(o *OpenOptions) {
		o.backend = func(ctx context.Context) (Blobstore, func() error, error) {
			s, err := s3blob.New(ctx, bucket)
			if err != nil {
				return nil, nil, err
			}
			return s, nil, nil
		}
	}
}

// WithOCIBackend selects the OCI registry backend. auth may be nil to use
// the ambient keychain.
func WithOCIBackend(repoRef string, auth RegistryAuthenticator) Option {
	return func(o *OpenOptions) {
		o.backend = func(ctx context.Context) (Blobstore, func() error, error) {
			s, err := ociblob.New(repoRef, auth)
			if err != nil {
				return nil, nil, err
			}
			return s, nil, nil
		}
	}
}

// WithPrefix namespaces every key under a static prefix.
func WithPrefix(prefix string) Option {
	return func(o *OpenOptions) { o.Prefix = prefix }
}

// WithNoLease skips write-lease acquisition entirely; duplicate concurrent
// writes become acceptable.
func WithNoLease() Option {
	return func(o *OpenOptions) { o.NoLease = true }
}

// WithLeaseStore shares a lease coordination store across stacks.
func WithLeaseStore(leases LeaseStore, opts LeaseOptions) Option {
	return func(o *OpenOptions) {
		o.LeaseStore = leases
		o.Lease = opts
	}
}

// WithCacheSizes sets the two cache region capacities in entries. Zero blob
// entries disables the cache decorator.
func WithCacheSizes(blobEntries, presenceEntries int) Option {
	return func(o *OpenOptions) {
		o.CacheBlobEntries = blobEntries
		o.CachePresenceEntries = presenceEntries
	}
}

// WithReadQPS shapes reads to the given queries per second. Zero disables
// read throttling.
func WithReadQPS(qps float64) Option {
	return func(o *OpenOptions) { o.Throttle.ReadQPS = qps }
}

// WithWriteQPS shapes writes to the given queries per second. Zero disables
// write throttling.
func WithWriteQPS(qps float64) Option {
	return func(o *OpenOptions) { o.Throttle.WriteQPS = qps }
}

// WithChunkSize sets the chunk length in bytes; zero stores content
// unchunked.
func WithChunkSize(size uint64) Option {
	return func(o *OpenOptions) { o.ChunkSize = size }
}

// WithConcurrency bounds in-flight chunk uploads per store call.
func WithConcurrency(n int) Option {
	return func(o *OpenOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithPutBehaviour sets the default overwrite policy for all writes.
func WithPutBehaviour(b PutBehaviour) Option {
	return func(o *OpenOptions) { o.PutBehaviour = b }
}
