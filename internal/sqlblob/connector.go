package sqlblob

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// Connector establishes the connections for one shard. The three strategies
// (proxy-routed, pooled direct, shard-map-resolved direct) are behaviorally
// identical above the shard router; the router never cares which one is
// configured.
type Connector interface {
	// Open returns the primary handle and the read handle for a shard. The
	// two may be the same handle when the strategy has no replica notion.
	Open(shard int) (primary, replica *sql.DB, err error)
}

// PooledConnector dials each shard directly and caps its own connection
// pool. DSNTemplate must contain one %d verb for the shard number, e.g.
// "file:/var/lib/blobs/shard_%04d.sqlite?_journal_mode=WAL".
type PooledConnector struct {
	DSNTemplate string
	MaxOpen     int
	MaxIdle     int
}

func (c PooledConnector) Open(shard int) (*sql.DB, *sql.DB, error) {
	dsn := fmt.Sprintf(c.DSNTemplate, shard)
	primary, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open shard %d: %w", shard, err)
	}
	if c.MaxOpen > 0 {
		primary.SetMaxOpenConns(c.MaxOpen)
	}
	if c.MaxIdle > 0 {
		primary.SetMaxIdleConns(c.MaxIdle)
	}
	replica, err := sql.Open(driverName, readOnlyDSN(dsn))
	if err != nil {
		// Reads fall back to the primary handle.
		return primary, primary, nil
	}
	return primary, replica, nil
}

// ShardMapConnector resolves each shard through an explicit map of DSNs.
// Replicas holds optional read DSNs; shards without one read from their
// primary.
type ShardMapConnector struct {
	Primaries map[int]string
	Replicas  map[int]string
}

func (c ShardMapConnector) Open(shard int) (*sql.DB, *sql.DB, error) {
	dsn, ok := c.Primaries[shard]
	if !ok {
		return nil, nil, fmt.Errorf("shard map has no entry for shard %d", shard)
	}
	primary, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open shard %d: %w", shard, err)
	}
	if replicaDSN, ok := c.Replicas[shard]; ok {
		replica, err := sql.Open(driverName, replicaDSN)
		if err == nil {
			return primary, replica, nil
		}
	}
	return primary, primary, nil
}

// ProxyConnector routes every shard through a single proxy endpoint that
// multiplexes and does its own read routing, so primary and replica are the
// same handle. DSNTemplate must contain a %s verb for the address and a %d
// verb for the shard.
type ProxyConnector struct {
	Addr        string
	DSNTemplate string
}

func (c ProxyConnector) Open(shard int) (*sql.DB, *sql.DB, error) {
	db, err := sql.Open(driverName, fmt.Sprintf(c.DSNTemplate, c.Addr, shard))
	if err != nil {
		return nil, nil, fmt.Errorf("open shard %d via proxy %s: %w", shard, c.Addr, err)
	}
	return db, db, nil
}

func readOnlyDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&mode=ro"
	}
	return dsn + "?mode=ro"
}
