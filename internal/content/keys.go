package content

// Blob key formats. Every object the filestore persists lives under one of
// these keys in the backing blobstore.

// MetadataKey returns the blob key holding the content metadata record.
func MetadataKey(id ID) string { return "content_metadata.sha256." + id.Hex() }

// ChunkKey returns the blob key holding one chunk. Chunks are addressed by
// the digest of their own bytes, so they are individually verifiable.
func ChunkKey(id ID) string { return "chunk.sha256." + id.Hex() }

// AliasKey returns the blob key holding the alias lookup record. Its value
// is the canonical ID in text form.
func AliasKey(a Alias) string { return "alias." + string(a.Algorithm) + "." + a.Digest }
