// Package filestore turns arbitrarily large byte streams into a set of
// content-addressed fixed-size chunks plus a metadata record, on top of any
// blobstore.Blobstore stack.
package filestore

import (
	"context"
	"fmt"
	"io"

	"github.com/sourcegraph/conc/pool"

	"github.com/aweris/blobkit/internal/blobstore"
	"github.com/aweris/blobkit/internal/content"
)

// Config controls chunking and upload parallelism. It is fixed at
// construction of the owning store.
type Config struct {
	// ChunkSize is the fixed chunk length in bytes; the final chunk may be
	// shorter. Zero stores the content as a single chunk.
	ChunkSize uint64

	// Concurrency bounds how many chunk writes are in flight at once.
	// Values below one behave as one.
	Concurrency int

	// PutBehaviour applies to every blob written by a store call.
	PutBehaviour blobstore.PutBehaviour
}

// StoreRequest declares what the caller believes the stream contains.
// The declared length, and the expected content ID when supplied, are
// validated before the metadata record is committed.
type StoreRequest struct {
	TotalSize  uint64
	ExpectedID *content.ID
}

// NewStoreRequest declares just the stream length.
func NewStoreRequest(totalSize uint64) *StoreRequest {
	return &StoreRequest{TotalSize: totalSize}
}

// NewStoreRequestWithID additionally pins the expected canonical ID.
func NewStoreRequestWithID(totalSize uint64, id content.ID) *StoreRequest {
	return &StoreRequest{TotalSize: totalSize, ExpectedID: &id}
}

// Store consumes r incrementally, writes its chunks with bounded
// concurrency, then commits the metadata record last. Chunk digests are
// computed as bytes flow through; the whole object is never buffered.
//
// Any chunk failure fails the store and the metadata record is never
// written; chunks already persisted are orphaned garbage for an external
// retention sweep, not corruption. The same applies to declared-length or
// expected-ID mismatches, which fail with *CorruptInputError.
func Store(ctx context.Context, blob blobstore.Blobstore, cfg Config, req *StoreRequest, r io.Reader) (*Metadata, error) {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	hasher := content.NewHasher()
	p := pool.New().WithMaxGoroutines(concurrency).WithContext(ctx).WithCancelOnError()

	chunks, readErr := submitChunks(ctx, p, blob, cfg, io.TeeReader(r, hasher), req.TotalSize)

	// Always join the in-flight writes, even when the stream failed: the
	// pool owns goroutines referencing the chunk buffers.
	waitErr := p.Wait()
	if readErr != nil {
		return nil, readErr
	}
	if waitErr != nil {
		return nil, fmt.Errorf("store chunks: %w", waitErr)
	}

	if hasher.Size() != req.TotalSize {
		return nil, &CorruptInputError{
			Reason: fmt.Sprintf("declared %d bytes, stream carried %d", req.TotalSize, hasher.Size()),
		}
	}
	id, aliases := hasher.Sum()
	if req.ExpectedID != nil && *req.ExpectedID != id {
		return nil, &CorruptInputError{
			Reason: fmt.Sprintf("expected content id %s, stream hashed to %s", req.ExpectedID, id),
		}
	}

	metadata := &Metadata{
		ContentID: id,
		TotalSize: hasher.Size(),
		Chunks:    chunks,
		Aliases:   aliases,
	}

	for _, alias := range aliases {
		if err := blob.Put(ctx, content.AliasKey(alias), []byte(id.String()), cfg.PutBehaviour); err != nil {
			return nil, fmt.Errorf("store alias %s: %w", alias, err)
		}
	}

	encoded, err := metadata.encode()
	if err != nil {
		return nil, fmt.Errorf("encode content metadata: %w", err)
	}
	// The commit point. Everything the record references is durable now.
	if err := blob.Put(ctx, content.MetadataKey(id), encoded, cfg.PutBehaviour); err != nil {
		return nil, fmt.Errorf("store content metadata: %w", err)
	}
	return metadata, nil
}

// submitChunks reads the stream chunk by chunk and hands each to the pool.
// It returns the ordered chunk ids; ordering is by sequence index even
// though writes complete in any order.
func submitChunks(ctx context.Context, p *pool.ContextPool, blob blobstore.Blobstore, cfg Config, r io.Reader, declaredSize uint64) ([]content.ID, error) {
	chunkSize := cfg.ChunkSize
	if chunkSize == 0 {
		// Unchunked: the whole object is one chunk. Sized from the declared
		// length; a lying stream is caught by the length validation.
		chunkSize = declaredSize
		if chunkSize == 0 {
			chunkSize = 1
		}
	}

	var chunks []content.ID
	for {
		buf := make([]byte, chunkSize)
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			chunk := buf[:n]
			chunkID := content.NewID(chunk)
			chunks = append(chunks, chunkID)
			// Pool admission blocks when the concurrency budget is spent,
			// which also bounds how far the reader runs ahead.
			p.Go(func(ctx context.Context) error {
				if err := blob.Put(ctx, content.ChunkKey(chunkID), chunk, cfg.PutBehaviour); err != nil {
					return fmt.Errorf("chunk %s: %w", chunkID, err)
				}
				return nil
			})
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return chunks, nil
		}
		if err != nil {
			return chunks, fmt.Errorf("read input stream: %w", err)
		}
	}
}
