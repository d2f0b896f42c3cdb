// Package blobstore defines the uniform byte-addressed storage contract and
// the decorators that stack on top of it.
//
// Every physical backend and every decorator satisfies the same three-method
// Blobstore interface, so layers compose transparently: a decorator owns
// exactly one inner Blobstore and forwards to it, adding one cross-cutting
// concern (key prefixing, caching, write-lease dedup, rate shaping).
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Presence is the tri-state answer to an existence check. MaybePresent means
// "this layer does not know, ask the backend" and is what a cache returns
// when it has no entry.
type Presence int

const (
	Absent Presence = iota
	Present
	MaybePresent
)

func (p Presence) String() string {
	switch p {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return "maybe-present"
	}
}

// PutBehaviour governs whether a put to an existing key replaces it and
// whether the replacement is audit-logged. It applies uniformly across
// backends.
type PutBehaviour int

const (
	Overwrite PutBehaviour = iota
	OverwriteAndLog
	IfAbsent
	IfAbsentAndLog
)

// DefaultPutBehaviour is what backends use when the caller has no opinion.
const DefaultPutBehaviour = IfAbsent

func (b PutBehaviour) String() string {
	switch b {
	case Overwrite:
		return "overwrite"
	case OverwriteAndLog:
		return "overwrite-and-log"
	case IfAbsent:
		return "if-absent"
	case IfAbsentAndLog:
		return "if-absent-and-log"
	default:
		return fmt.Sprintf("put-behaviour(%d)", int(b))
	}
}

// ParsePutBehaviour parses the textual form used by configuration surfaces.
func ParsePutBehaviour(s string) (PutBehaviour, error) {
	for _, b := range []PutBehaviour{Overwrite, OverwriteAndLog, IfAbsent, IfAbsentAndLog} {
		if b.String() == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown put behaviour %q", s)
}

func (b PutBehaviour) overwrites() bool { return b == Overwrite || b == OverwriteAndLog }
func (b PutBehaviour) logged() bool     { return b == OverwriteAndLog || b == IfAbsentAndLog }

// Blobstore is the uniform storage contract. Keys are opaque strings, values
// are opaque bytes. Absence is not an error: Get reports it through the ok
// return and IsPresent through Presence.
//
// Implementations must be safe for concurrent use.
type Blobstore interface {
	// Put writes value under key. With an IfAbsent behaviour a conflicting
	// existing value fails with *AlreadyPresentError; rewriting identical
	// bytes is idempotent and succeeds.
	Put(ctx context.Context, key string, value []byte, behaviour PutBehaviour) error

	// Get returns the stored bytes, or ok=false if the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// IsPresent answers existence without necessarily paying for a full read.
	IsPresent(ctx context.Context, key string) (Presence, error)
}

// ErrLeaseTimeout is returned when a writer waiting on another writer's
// lease exhausts its wait budget.
var ErrLeaseTimeout = errors.New("blobstore: lease wait timed out")

// AlreadyPresentError reports a conflicting write under an IfAbsent
// behaviour: the key exists and holds different bytes.
type AlreadyPresentError struct {
	Key string
}

func (e *AlreadyPresentError) Error() string {
	return fmt.Sprintf("blobstore: key %q already present with different content", e.Key)
}

// CheckOverwrite decides whether a put may proceed given the existing value
// (if any) and the requested behaviour, emitting the audit record for the
// *AndLog variants. Shared by the physical backends.
func CheckOverwrite(log logrus.FieldLogger, behaviour PutBehaviour, key string, existing []byte, exists bool, incoming []byte) (write bool, err error) {
	if !exists {
		return true, nil
	}
	if behaviour.overwrites() {
		if behaviour.logged() {
			log.WithFields(logrus.Fields{
				"key":      key,
				"old_size": len(existing),
				"new_size": len(incoming),
			}).Info("overwriting existing blob")
		}
		return true, nil
	}
	if bytes.Equal(existing, incoming) {
		// Idempotent: same bytes under a content-addressed key.
		return false, nil
	}
	if behaviour.logged() {
		log.WithField("key", key).Warn("rejected conflicting write to existing blob")
	}
	return false, &AlreadyPresentError{Key: key}
}
