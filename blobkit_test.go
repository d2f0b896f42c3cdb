package blobkit

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/blobkit/internal/blobstore"
)

func TestOpenDefaultStackRoundTrip(t *testing.T) {
	ctx := context.Background()

	store, err := Open(WithChunkSize(4), WithConcurrency(2))
	require.NoError(t, err)
	defer store.Close()

	md, err := store.Store(ctx, NewStoreRequest(8), strings.NewReader("abcdefgh"))
	require.NoError(t, err)
	assert.Equal(t, uint64(8), md.TotalSize)
	assert.Len(t, md.Chunks, 2)

	got, err := store.FetchBytes(ctx, Canonical(md.ContentID))
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdefgh"), got)

	presence, err := store.IsPresent(ctx, Canonical(md.ContentID))
	require.NoError(t, err)
	assert.Equal(t, Present, presence)
}

func TestOpenFetchByAlias(t *testing.T) {
	ctx := context.Background()

	store, err := Open()
	require.NoError(t, err)
	defer store.Close()

	input := []byte("content addressed three ways")
	md, err := store.Store(ctx, NewStoreRequest(uint64(len(input))), bytes.NewReader(input))
	require.NoError(t, err)
	require.NotEmpty(t, md.Aliases)

	for _, alias := range md.Aliases {
		got, err := store.FetchBytes(ctx, Aliased(alias))
		require.NoError(t, err)
		assert.Equal(t, input, got)
	}
}

func TestOpenPrefixIsolationOnSharedBackend(t *testing.T) {
	ctx := context.Background()
	shared := blobstore.NewMemblob()

	a, err := Open(WithBackend(shared), WithPrefix("tenant-a."), WithCacheSizes(0, 0))
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(WithBackend(shared), WithPrefix("tenant-b."), WithCacheSizes(0, 0))
	require.NoError(t, err)
	defer b.Close()

	input := []byte("shared bytes, separate namespaces")
	mdA, err := a.Store(ctx, NewStoreRequest(uint64(len(input))), bytes.NewReader(input))
	require.NoError(t, err)

	// Same content id, but b's namespace has no record of it.
	presence, err := b.IsPresent(ctx, Canonical(mdA.ContentID))
	require.NoError(t, err)
	assert.Equal(t, Absent, presence)

	_, err = b.FetchBytes(ctx, Canonical(mdA.ContentID))
	assert.ErrorIs(t, err, ErrNotFound)

	// Storing through b makes it visible under b only via its own prefix;
	// the raw backend now holds both namespaces.
	_, err = b.Store(ctx, NewStoreRequest(uint64(len(input))), bytes.NewReader(input))
	require.NoError(t, err)
	presence, err = b.IsPresent(ctx, Canonical(mdA.ContentID))
	require.NoError(t, err)
	assert.Equal(t, Present, presence)
}

func TestOpenNoCacheMode(t *testing.T) {
	ctx := context.Background()

	store, err := Open(WithCacheSizes(0, 0))
	require.NoError(t, err)
	defer store.Close()

	input := []byte("uncached")
	md, err := store.Store(ctx, NewStoreRequest(uint64(len(input))), bytes.NewReader(input))
	require.NoError(t, err)

	got, err := store.FetchBytes(ctx, Canonical(md.ContentID))
	require.NoError(t, err)
	assert.Equal(t, input, got)

	// DropCaches is a no-op without the cache decorator.
	store.DropCaches()
}

func TestOpenDropCachesKeepsContentReachable(t *testing.T) {
	ctx := context.Background()

	store, err := Open()
	require.NoError(t, err)
	defer store.Close()

	input := []byte("survives invalidation")
	md, err := store.Store(ctx, NewStoreRequest(uint64(len(input))), bytes.NewReader(input))
	require.NoError(t, err)

	store.DropCaches()

	got, err := store.FetchBytes(ctx, Canonical(md.ContentID))
	require.NoError(t, err)
	assert.Equal(t, input, got)
}

func TestOpenNoLeaseMode(t *testing.T) {
	ctx := context.Background()

	store, err := Open(WithNoLease())
	require.NoError(t, err)
	defer store.Close()

	input := []byte("no coordination")
	md, err := store.Store(ctx, NewStoreRequest(uint64(len(input))), bytes.NewReader(input))
	require.NoError(t, err)

	got, err := store.FetchBytes(ctx, Canonical(md.ContentID))
	require.NoError(t, err)
	assert.Equal(t, input, got)
}

func TestOpenExpectedIDMismatchSurfaces(t *testing.T) {
	ctx := context.Background()

	store, err := Open()
	require.NoError(t, err)
	defer store.Close()

	wrong, err := ParseContentID("sha256:" + strings.Repeat("ab", 32))
	require.NoError(t, err)

	_, err = store.Store(ctx, NewStoreRequestWithID(5, wrong), strings.NewReader("hello"))
	var corrupt *CorruptInputError
	require.ErrorAs(t, err, &corrupt)
}

func TestParseFetchKeyForms(t *testing.T) {
	ctx := context.Background()

	store, err := Open()
	require.NoError(t, err)
	defer store.Close()

	input := []byte("parsed keys")
	md, err := store.Store(ctx, NewStoreRequest(uint64(len(input))), bytes.NewReader(input))
	require.NoError(t, err)

	key, err := ParseFetchKey(md.ContentID.String())
	require.NoError(t, err)
	got, err := store.FetchBytes(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	for _, alias := range md.Aliases {
		key, err := ParseFetchKey(string(alias.Algorithm) + ":" + alias.Digest)
		require.NoError(t, err)
		got, err := store.FetchBytes(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, input, got)
	}

	_, err = ParseFetchKey("md5:abcd")
	assert.Error(t, err)
}
