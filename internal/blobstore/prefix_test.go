package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixRewritesKeys(t *testing.T) {
	ctx := context.Background()
	inner := NewMemblob()
	p := NewPrefix(inner, "repo0001.")

	require.NoError(t, p.Put(ctx, "k", []byte("v"), Overwrite))

	// The inner store sees only the prefixed key.
	_, ok, err := inner.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := inner.Get(ctx, "repo0001.k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	// The decorated view is unchanged.
	got, ok, err = p.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	presence, err := p.IsPresent(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, Present, presence)
}

func TestPrefixIsolatesNamespaces(t *testing.T) {
	ctx := context.Background()
	inner := NewMemblob()
	a := NewPrefix(inner, "a.")
	b := NewPrefix(inner, "b.")

	require.NoError(t, a.Put(ctx, "k", []byte("va"), Overwrite))

	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Put(ctx, "k", []byte("vb"), IfAbsent))

	got, _, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("va"), got)
}
