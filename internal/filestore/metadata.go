package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aweris/blobkit/internal/blobstore"
	"github.com/aweris/blobkit/internal/content"
)

// ErrNotFound reports a missing key, alias, or metadata record on fetch.
var ErrNotFound = errors.New("filestore: not found")

// CorruptInputError reports a mismatch between what the store request
// declared and what the stream actually carried. It is raised before the
// metadata record is written, so the partial upload is never observable.
type CorruptInputError struct {
	Reason string
}

func (e *CorruptInputError) Error() string {
	return "filestore: corrupt input: " + e.Reason
}

// Metadata is the commit record for stored content. It is written exactly
// once per content id, strictly after every chunk it references is durable:
// if a metadata record is readable, every chunk it references is readable.
type Metadata struct {
	ContentID content.ID      `json:"content_id"`
	TotalSize uint64          `json:"total_size"`
	Chunks    []content.ID    `json:"chunks"`
	Aliases   []content.Alias `json:"aliases"`
}

func (m *Metadata) encode() ([]byte, error) {
	return json.Marshal(m)
}

func decodeMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse content metadata: %w", err)
	}
	return &m, nil
}

// resolveKey turns a fetch key into a canonical content ID, reading the
// alias lookup blob when needed.
func resolveKey(ctx context.Context, blob blobstore.Blobstore, key content.FetchKey) (content.ID, error) {
	if !key.IsAliased() {
		return key.ID(), nil
	}
	raw, ok, err := blob.Get(ctx, content.AliasKey(key.Alias()))
	if err != nil {
		return content.ID{}, fmt.Errorf("resolve alias %s: %w", key.Alias(), err)
	}
	if !ok {
		return content.ID{}, fmt.Errorf("alias %s: %w", key.Alias(), ErrNotFound)
	}
	id, err := content.ParseID(string(raw))
	if err != nil {
		return content.ID{}, fmt.Errorf("resolve alias %s: %w", key.Alias(), err)
	}
	return id, nil
}
