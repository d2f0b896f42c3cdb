// Package sqlblob is the sharded SQL physical backend. Each key routes
// deterministically to one of N independent shards; writes go to the
// shard's primary, reads may prefer a replica. Values are zstd-compressed
// when that pays off.
package sqlblob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aweris/blobkit/internal/blobstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	blob_key   TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	compressed INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
)`

// ReadPreference selects which connection class serves reads.
type ReadPreference int

const (
	ReadReplica ReadPreference = iota
	ReadPrimary
)

// Options tunes a Sqlblob beyond the connector and shard count.
type Options struct {
	// QueryTimeout bounds every statement. Zero means DefaultQueryTimeout.
	QueryTimeout time.Duration

	// ReadPreference defaults to ReadReplica.
	ReadPreference ReadPreference

	// CompressionLevel is the zstd level (1..3); Compress toggles it.
	Compress         bool
	CompressionLevel int

	Log logrus.FieldLogger
}

const DefaultQueryTimeout = 10 * time.Second

type shardConn struct {
	primary *sql.DB
	replica *sql.DB
}

// Sqlblob implements blobstore.Blobstore over N SQL shards.
type Sqlblob struct {
	shards []shardConn
	comp   *compressor
	opts   Options
}

// New opens every shard through connector and ensures the schema on each
// primary. A non-positive shard count is a construction error.
func New(ctx context.Context, connector Connector, shardCount int, opts Options) (*Sqlblob, error) {
	if shardCount <= 0 {
		return nil, fmt.Errorf("shard count must be positive, got %d", shardCount)
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	comp, err := newCompressor(opts.CompressionLevel, opts.Compress)
	if err != nil {
		return nil, err
	}

	s := &Sqlblob{comp: comp, opts: opts}
	for i := 0; i < shardCount; i++ {
		primary, replica, err := connector.Open(i)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.shards = append(s.shards, shardConn{primary: primary, replica: replica})

		initCtx, cancel := context.WithTimeout(ctx, opts.QueryTimeout)
		_, err = primary.ExecContext(initCtx, schema)
		cancel()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("init schema on shard %d: %w", i, err)
		}
	}
	return s, nil
}

func (s *Sqlblob) Put(ctx context.Context, key string, value []byte, behaviour blobstore.PutBehaviour) error {
	shard := shardID(key, len(s.shards))
	db := s.shards[shard].primary

	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put on shard %d: %w", shard, err)
	}
	defer tx.Rollback()

	existing, exists, err := s.readRow(ctx, tx, key)
	if err != nil {
		return fmt.Errorf("check existing %q on shard %d: %w", key, shard, err)
	}
	write, err := blobstore.CheckOverwrite(s.opts.Log, behaviour, key, existing, exists, value)
	if err != nil || !write {
		return err
	}

	stored, compressed := s.comp.compress(value)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO blobs (blob_key, value, compressed, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(blob_key) DO UPDATE SET value = excluded.value,
		   compressed = excluded.compressed, created_at = excluded.created_at`,
		key, stored, boolToInt(compressed), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("put %q on shard %d: %w", key, shard, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put %q on shard %d: %w", key, shard, err)
	}
	return nil
}

func (s *Sqlblob) Get(ctx context.Context, key string) ([]byte, bool, error) {
	shard := shardID(key, len(s.shards))
	db := s.readConn(shard)

	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	var stored []byte
	var compressed int
	err := db.QueryRowContext(ctx,
		`SELECT value, compressed FROM blobs WHERE blob_key = ?`, key).
		Scan(&stored, &compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q from shard %d: %w", key, shard, err)
	}
	value, err := s.comp.decompress(stored, compressed != 0)
	if err != nil {
		return nil, false, fmt.Errorf("get %q from shard %d: %w", key, shard, err)
	}
	return value, true, nil
}

func (s *Sqlblob) IsPresent(ctx context.Context, key string) (blobstore.Presence, error) {
	shard := shardID(key, len(s.shards))
	db := s.readConn(shard)

	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	var one int
	err := db.QueryRowContext(ctx,
		`SELECT 1 FROM blobs WHERE blob_key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return blobstore.Absent, nil
	}
	if err != nil {
		return blobstore.Absent, fmt.Errorf("check %q on shard %d: %w", key, shard, err)
	}
	return blobstore.Present, nil
}

// Shard exposes the routing decision for a key. Used by the shard
// determinism tests and operational tooling.
func (s *Sqlblob) Shard(key string) int { return shardID(key, len(s.shards)) }

func (s *Sqlblob) Close() error {
	var firstErr error
	for _, shard := range s.shards {
		if err := shard.primary.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if shard.replica != shard.primary {
			if err := shard.replica.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	s.comp.close()
	return firstErr
}

func (s *Sqlblob) readConn(shard int) *sql.DB {
	if s.opts.ReadPreference == ReadPrimary {
		return s.shards[shard].primary
	}
	return s.shards[shard].replica
}

func (s *Sqlblob) readRow(ctx context.Context, tx *sql.Tx, key string) ([]byte, bool, error) {
	var stored []byte
	var compressed int
	err := tx.QueryRowContext(ctx,
		`SELECT value, compressed FROM blobs WHERE blob_key = ?`, key).
		Scan(&stored, &compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value, err := s.comp.decompress(stored, compressed != 0)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
