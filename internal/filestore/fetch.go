package filestore

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/aweris/blobkit/internal/blobstore"
	"github.com/aweris/blobkit/internal/content"
)

// Fetch resolves key and returns a lazy, forward-only sequence of chunk
// payloads in sequence order. Chunks are fetched on demand as the consumer
// pulls, so stopping early never pays for unread chunks. The sequence is
// not restartable; a fresh Fetch call creates a new one.
//
// A mid-stream chunk failure surfaces as the error value at the failing
// position; bytes already yielded stand.
func Fetch(ctx context.Context, blob blobstore.Blobstore, key content.FetchKey) (iter.Seq2[[]byte, error], error) {
	metadata, err := FetchMetadata(ctx, blob, key)
	if err != nil {
		return nil, err
	}
	return func(yield func([]byte, error) bool) {
		for i, chunkID := range metadata.Chunks {
			data, ok, err := blob.Get(ctx, content.ChunkKey(chunkID))
			if err != nil {
				yield(nil, fmt.Errorf("fetch chunk %d (%s): %w", i, chunkID, err))
				return
			}
			if !ok {
				yield(nil, fmt.Errorf("fetch chunk %d (%s): %w", i, chunkID, ErrNotFound))
				return
			}
			if !yield(data, nil) {
				return
			}
		}
	}, nil
}

// FetchMetadata resolves key and reads its metadata record. Missing alias
// or metadata fails with ErrNotFound.
func FetchMetadata(ctx context.Context, blob blobstore.Blobstore, key content.FetchKey) (*Metadata, error) {
	id, err := resolveKey(ctx, blob, key)
	if err != nil {
		return nil, err
	}
	raw, ok, err := blob.Get(ctx, content.MetadataKey(id))
	if err != nil {
		return nil, fmt.Errorf("fetch metadata for %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	return decodeMetadata(raw)
}

// IsPresent answers whether content addressed by key is fully stored, by
// the presence of its metadata record: metadata readable implies every
// chunk readable.
func IsPresent(ctx context.Context, blob blobstore.Blobstore, key content.FetchKey) (blobstore.Presence, error) {
	id, err := resolveKey(ctx, blob, key)
	if errors.Is(err, ErrNotFound) {
		// An unknown alias is a definite absence, not an I/O failure.
		return blobstore.Absent, nil
	}
	if err != nil {
		return blobstore.Absent, err
	}
	return blob.IsPresent(ctx, content.MetadataKey(id))
}
