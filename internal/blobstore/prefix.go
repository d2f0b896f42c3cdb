package blobstore

import "context"

// PrefixBlobstore rewrites every key by prepending a static namespace
// string before delegating. Purely syntactic; the inner call's semantics
// are untouched.
type PrefixBlobstore struct {
	inner  Blobstore
	prefix string
}

func NewPrefix(inner Blobstore, prefix string) *PrefixBlobstore {
	return &PrefixBlobstore{inner: inner, prefix: prefix}
}

func (p *PrefixBlobstore) Put(ctx context.Context, key string, value []byte, behaviour PutBehaviour) error {
	return p.inner.Put(ctx, p.prefix+key, value, behaviour)
}

func (p *PrefixBlobstore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *PrefixBlobstore) IsPresent(ctx context.Context, key string) (Presence, error) {
	return p.inner.IsPresent(ctx, p.prefix+key)
}
