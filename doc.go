// Package blobkit provides composable, content-addressed blob storage: a
// uniform put/get/is-present contract over interchangeable physical
// backends (in-memory, sharded SQL, S3, OCI registry), wrapped by stackable
// decorators for namespacing, caching, write-lease deduplication and rate
// shaping, topped by a chunking filestore that turns large byte streams
// into content-addressed chunks plus a metadata record.
//
// Basic usage:
//
//	store, _ := blobkit.Open(blobkit.WithChunkSize(1 << 20))
//	defer store.Close()
//
//	// Store a stream; the declared length is validated before commit.
//	md, _ := store.Store(ctx, blobkit.NewStoreRequest(size), r)
//	fmt.Println(md.ContentID, md.TotalSize)
//
//	// Fetch lazily, chunk by chunk.
//	seq, _ := store.Fetch(ctx, blobkit.Canonical(md.ContentID))
//	for data, err := range seq {
//	    if err != nil { ... }
//	    w.Write(data)
//	}
//
//	// Content is also addressable through its alias digests.
//	seq, _ = store.Fetch(ctx, blobkit.Aliased(md.Aliases[0]))
//
//	// Administrative cache invalidation, without a restart.
//	store.DropCaches()
//
// Backends are selected at construction:
//
//	store, _ := blobkit.Open(
//	    blobkit.WithSQLBackend(blobkit.PooledConnector{DSNTemplate: tmpl}, 16, blobkit.SQLOptions{Compress: true}),
//	    blobkit.WithReadQPS(2000),
//	    blobkit.WithPrefix("repo0001."),
//	)
package blobkit
