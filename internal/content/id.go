// Package content derives stable identifiers from byte content.
//
// A canonical ID is the sha256 digest of the full logical content. Aliases
// are secondary digests (sha1, blake3) that resolve to the canonical ID via
// a lookup blob. All functions here are pure; no I/O happens in this package.
package content

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/zeebo/blake3"
)

const idPrefix = "sha256:"

// ID is the canonical content identifier: a sha256 digest of the full
// logical content.
type ID [sha256.Size]byte

// NewID computes the canonical ID of data.
func NewID(data []byte) ID {
	return sha256.Sum256(data)
}

func (id ID) Hex() string    { return hex.EncodeToString(id[:]) }
func (id ID) String() string { return idPrefix + id.Hex() }

// ParseID parses a canonical ID in "sha256:<hex>" form.
func ParseID(s string) (ID, error) {
	rest, ok := strings.CutPrefix(s, idPrefix)
	if !ok {
		return ID{}, fmt.Errorf("invalid content id %q: missing %q prefix", s, idPrefix)
	}
	raw, err := hex.DecodeString(rest)
	if err != nil {
		return ID{}, fmt.Errorf("invalid content id %q: %w", s, err)
	}
	if len(raw) != sha256.Size {
		return ID{}, fmt.Errorf("invalid content id %q: expected %d digest bytes, got %d", s, sha256.Size, len(raw))
	}
	var id ID
	copy(id[:], raw)
	return id, nil
}

func (id ID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Algorithm names an alias digest algorithm.
type Algorithm string

const (
	AlgoSHA1   Algorithm = "sha1"
	AlgoBlake3 Algorithm = "blake3"
)

// Alias is a secondary digest resolving to a canonical ID.
type Alias struct {
	Algorithm Algorithm
	Digest    string // lowercase hex
}

func (a Alias) String() string { return string(a.Algorithm) + ":" + a.Digest }

// ParseAlias parses an alias in "<algo>:<hex>" form.
func ParseAlias(s string) (Alias, error) {
	algo, digest, ok := strings.Cut(s, ":")
	if !ok || digest == "" {
		return Alias{}, fmt.Errorf("invalid alias %q", s)
	}
	switch Algorithm(algo) {
	case AlgoSHA1, AlgoBlake3:
	default:
		return Alias{}, fmt.Errorf("invalid alias %q: unknown algorithm %q", s, algo)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return Alias{}, fmt.Errorf("invalid alias %q: %w", s, err)
	}
	return Alias{Algorithm: Algorithm(algo), Digest: digest}, nil
}

func (a Alias) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Alias) UnmarshalText(text []byte) error {
	parsed, err := ParseAlias(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// FetchKey addresses stored content either by its canonical ID or by an
// alias that must be resolved first.
type FetchKey struct {
	id      ID
	alias   Alias
	byAlias bool
}

// Canonical builds a fetch key addressing content by its canonical ID.
func Canonical(id ID) FetchKey { return FetchKey{id: id} }

// Aliased builds a fetch key addressing content through an alias.
func Aliased(a Alias) FetchKey { return FetchKey{alias: a, byAlias: true} }

// IsAliased reports whether the key requires alias resolution.
func (k FetchKey) IsAliased() bool { return k.byAlias }

// ID returns the canonical ID for a canonical key. Only valid when
// IsAliased is false.
func (k FetchKey) ID() ID { return k.id }

// Alias returns the alias for an aliased key. Only valid when IsAliased
// is true.
func (k FetchKey) Alias() Alias { return k.alias }

func (k FetchKey) String() string {
	if k.byAlias {
		return k.alias.String()
	}
	return k.id.String()
}

// ParseFetchKey parses either a canonical ID or an alias.
func ParseFetchKey(s string) (FetchKey, error) {
	if strings.HasPrefix(s, idPrefix) {
		id, err := ParseID(s)
		if err != nil {
			return FetchKey{}, err
		}
		return Canonical(id), nil
	}
	alias, err := ParseAlias(s)
	if err != nil {
		return FetchKey{}, err
	}
	return Aliased(alias), nil
}

// Hasher computes the canonical ID and all configured alias digests of a
// byte stream as it flows through, without retaining the stream.
type Hasher struct {
	sha256 hash.Hash
	sha1   hash.Hash
	blake3 *blake3.Hasher
	n      uint64
}

func NewHasher() *Hasher {
	return &Hasher{
		sha256: sha256.New(),
		sha1:   sha1.New(),
		blake3: blake3.New(),
	}
}

func (h *Hasher) Write(p []byte) (int, error) {
	h.sha256.Write(p)
	h.sha1.Write(p)
	h.blake3.Write(p)
	h.n += uint64(len(p))
	return len(p), nil
}

// Size returns the number of bytes hashed so far.
func (h *Hasher) Size() uint64 { return h.n }

// Sum returns the canonical ID and the alias set of everything written.
func (h *Hasher) Sum() (ID, []Alias) {
	var id ID
	copy(id[:], h.sha256.Sum(nil))
	aliases := []Alias{
		{Algorithm: AlgoSHA1, Digest: hex.EncodeToString(h.sha1.Sum(nil))},
		{Algorithm: AlgoBlake3, Digest: hex.EncodeToString(h.blake3.Sum(nil))},
	}
	return id, aliases
}
