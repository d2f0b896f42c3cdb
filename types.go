package blobkit

import (
	"github.com/aweris/blobkit/internal/blobstore"
	"github.com/aweris/blobkit/internal/content"
	"github.com/aweris/blobkit/internal/filestore"
	"github.com/aweris/blobkit/internal/ociblob"
	"github.com/aweris/blobkit/internal/sqlblob"
)

// Core types, re-exported from the internal packages for convenience.

// Blobstore is the uniform storage contract every backend and decorator
// satisfies.
type Blobstore = blobstore.Blobstore

// Presence is the tri-state existence answer.
type Presence = blobstore.Presence

const (
	Absent       = blobstore.Absent
	Present      = blobstore.Present
	MaybePresent = blobstore.MaybePresent
)

// PutBehaviour governs overwrite semantics, uniformly across backends.
type PutBehaviour = blobstore.PutBehaviour

const (
	Overwrite       = blobstore.Overwrite
	OverwriteAndLog = blobstore.OverwriteAndLog
	IfAbsent        = blobstore.IfAbsent
	IfAbsentAndLog  = blobstore.IfAbsentAndLog
)

// ParsePutBehaviour parses the textual form used by configuration.
func ParsePutBehaviour(s string) (PutBehaviour, error) {
	return blobstore.ParsePutBehaviour(s)
}

// ContentID is the canonical (sha256) identifier of stored content.
type ContentID = content.ID

// Alias is a secondary digest resolving to a ContentID.
type Alias = content.Alias

// FetchKey addresses content canonically or through an alias.
type FetchKey = content.FetchKey

// Canonical builds a fetch key from a canonical content ID.
func Canonical(id ContentID) FetchKey { return content.Canonical(id) }

// Aliased builds a fetch key from an alias digest.
func Aliased(a Alias) FetchKey { return content.Aliased(a) }

// ParseFetchKey parses "sha256:<hex>", "sha1:<hex>" or "blake3:<hex>".
func ParseFetchKey(s string) (FetchKey, error) { return content.ParseFetchKey(s) }

// ParseContentID parses a canonical content ID.
func ParseContentID(s string) (ContentID, error) { return content.ParseID(s) }

// ContentMetadata is the commit record of a successful store.
type ContentMetadata = filestore.Metadata

// StoreRequest declares the expected stream length and, optionally, the
// expected canonical ID.
type StoreRequest = filestore.StoreRequest

// NewStoreRequest declares just the stream length.
func NewStoreRequest(totalSize uint64) *StoreRequest {
	return filestore.NewStoreRequest(totalSize)
}

// NewStoreRequestWithID additionally pins the expected content ID.
func NewStoreRequestWithID(totalSize uint64, id ContentID) *StoreRequest {
	return filestore.NewStoreRequestWithID(totalSize, id)
}

// Decorator and backend configuration surfaces.

// ThrottleOptions carries per-class queries-per-second limits.
type ThrottleOptions = blobstore.ThrottleOptions

// LeaseOptions tunes write-lease coordination.
type LeaseOptions = blobstore.LeaseOptions

// LeaseStore is the shared coordination store for write leases.
type LeaseStore = blobstore.LeaseStore

// NewMemLeaseStore returns a process-wide in-memory lease store.
func NewMemLeaseStore() LeaseStore { return blobstore.NewMemLeaseStore() }

// SQLConnector establishes per-shard SQL connections.
type SQLConnector = sqlblob.Connector

// SQLOptions tunes the sharded SQL backend.
type SQLOptions = sqlblob.Options

// The three interchangeable connection strategies.
type (
	PooledConnector   = sqlblob.PooledConnector
	ShardMapConnector = sqlblob.ShardMapConnector
	ProxyConnector    = sqlblob.ProxyConnector
)

// RegistryAuthenticator provides credentials for the OCI registry backend.
type RegistryAuthenticator = ociblob.Authenticator
