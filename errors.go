package blobkit

import (
	"github.com/aweris/blobkit/internal/blobstore"
	"github.com/aweris/blobkit/internal/filestore"
)

var (
	// ErrNotFound reports a missing key, alias or metadata record on fetch.
	ErrNotFound = filestore.ErrNotFound

	// ErrLeaseTimeout reports that a writer waiting on another writer's
	// lease exhausted its wait budget.
	ErrLeaseTimeout = blobstore.ErrLeaseTimeout
)

// AlreadyPresentError reports a conflicting write under an IfAbsent
// behaviour.
type AlreadyPresentError = blobstore.AlreadyPresentError

// CorruptInputError reports a declared-length or expected-ID mismatch
// caught before the metadata commit.
type CorruptInputError = filestore.CorruptInputError
