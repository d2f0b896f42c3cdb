// Package ociblob is a physical backend that keeps each blob as a
// single-layer artifact in an OCI registry. The tag is derived from the key
// digest, so any registry that can host images can host a blobstore.
package ociblob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/aweris/blobkit/internal/blobstore"
)

const keyLabel = "dev.blobkit.key"

// Authenticator provides credentials for a registry.
type Authenticator interface {
	Authenticate(registry string) (username, password string, err error)
}

// OCIBlob implements blobstore.Blobstore over one repository.
type OCIBlob struct {
	repo name.Repository
	auth Authenticator
	log  logrus.FieldLogger
}

// New targets a repository ref like "ttl.sh/myorg/blobs". auth may be nil to
// use the ambient keychain.
func New(repoRef string, auth Authenticator) (*OCIBlob, error) {
	repo, err := name.NewRepository(repoRef)
	if err != nil {
		return nil, fmt.Errorf("invalid repository ref %q: %w", repoRef, err)
	}
	return &OCIBlob{repo: repo, auth: auth, log: logrus.StandardLogger()}, nil
}

func (o *OCIBlob) Put(ctx context.Context, key string, value []byte, behaviour blobstore.PutBehaviour) error {
	if behaviour != blobstore.Overwrite {
		existing, ok, err := o.Get(ctx, key)
		if err != nil {
			return err
		}
		write, err := blobstore.CheckOverwrite(o.log, behaviour, key, existing, ok, value)
		if err != nil || !write {
			return err
		}
	}

	img, err := buildArtifact(key, value)
	if err != nil {
		return fmt.Errorf("build artifact for %q: %w", key, err)
	}
	tag := o.repo.Tag(tagFor(key))
	_, err = retry(ctx, 3, func() (struct{}, error) {
		return struct{}{}, remote.Write(tag, img, o.remoteOptions(ctx)...)
	})
	if err != nil {
		return fmt.Errorf("push %q to %s: %w", key, o.repo, err)
	}
	return nil
}

func (o *OCIBlob) Get(ctx context.Context, key string) ([]byte, bool, error) {
	tag := o.repo.Tag(tagFor(key))
	img, err := retry(ctx, 3, func() (v1.Image, error) {
		img, err := remote.Image(tag, o.remoteOptions(ctx)...)
		if isNotFound(err) {
			// Terminal; do not burn retries on a missing key.
			return nil, backoffStop{err}
		}
		return img, err
	})
	if err != nil {
		var stop backoffStop
		if errors.As(err, &stop) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetch %q from %s: %w", key, o.repo, err)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, false, fmt.Errorf("read layers of %q: %w", key, err)
	}
	if len(layers) != 1 {
		return nil, false, fmt.Errorf("artifact for %q has %d layers, want 1", key, len(layers))
	}
	rc, err := layers[0].Uncompressed()
	if err != nil {
		return nil, false, fmt.Errorf("read %q: %w", key, err)
	}
	value, err := io.ReadAll(rc)
	if cerr := rc.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %q: %w", key, err)
	}
	return value, true, nil
}

func (o *OCIBlob) IsPresent(ctx context.Context, key string) (blobstore.Presence, error) {
	tag := o.repo.Tag(tagFor(key))
	_, err := remote.Head(tag, o.remoteOptions(ctx)...)
	if isNotFound(err) {
		return blobstore.Absent, nil
	}
	if err != nil {
		return blobstore.Absent, fmt.Errorf("head %q in %s: %w", key, o.repo, err)
	}
	return blobstore.Present, nil
}

// tagFor derives a registry-safe tag from the key. Keys are arbitrary
// strings and can exceed tag length limits, so the tag is a key digest and
// the raw key travels in a config label.
func tagFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "blob-" + hex.EncodeToString(sum[:20])
}

var zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))

// blobLayer implements v1.Layer with zstd compression for transfer.
type blobLayer struct {
	compressed   []byte
	uncompressed []byte
}

func newBlobLayer(data []byte) *blobLayer {
	return &blobLayer{
		compressed:   zstdEncoder.EncodeAll(data, nil),
		uncompressed: data,
	}
}

func (l *blobLayer) Digest() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.compressed))
	return h, err
}

func (l *blobLayer) DiffID() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.uncompressed))
	return h, err
}

func (l *blobLayer) Compressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.compressed)), nil
}

func (l *blobLayer) Uncompressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.uncompressed)), nil
}

func (l *blobLayer) Size() (int64, error)                { return int64(len(l.compressed)), nil }
func (l *blobLayer) MediaType() (types.MediaType, error) { return types.OCILayerZStd, nil }

func buildArtifact(key string, value []byte) (v1.Image, error) {
	img, err := mutate.AppendLayers(empty.Image, newBlobLayer(value))
	if err != nil {
		return nil, err
	}
	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, err
	}
	cfg.Config.Labels = map[string]string{keyLabel: key}
	return mutate.ConfigFile(img, cfg)
}

func (o *OCIBlob) remoteOptions(ctx context.Context) []remote.Option {
	opts := []remote.Option{remote.WithContext(ctx)}
	if o.auth != nil {
		username, password, err := o.auth.Authenticate(o.repo.RegistryStr())
		if err == nil && username != "" {
			return append(opts, remote.WithAuth(&authn.Basic{
				Username: username,
				Password: password,
			}))
		}
	}
	return append(opts, remote.WithAuthFromKeychain(authn.DefaultKeychain))
}

func isNotFound(err error) bool {
	var terr *transport.Error
	return errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound
}

// backoffStop marks an error as terminal for retry.
type backoffStop struct{ error }

func (b backoffStop) Unwrap() error { return b.error }

func retry[T any](ctx context.Context, maxAttempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := range maxAttempts {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		var stop backoffStop
		if errors.As(err, &stop) {
			return zero, err
		}
		lastErr = err
		if i < maxAttempts-1 {
			delay := time.Duration(1<<i) * 500 * time.Millisecond // 500ms, 1s, 2s, ...
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
