package sqlblob

import "hash/fnv"

// shardID maps a key deterministically to one of n shards. The routing
// hashes only the key bytes, so a key's shard is stable for the lifetime of
// a shard map. Resharding is out of scope.
func shardID(key string, n int) int {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int(h.Sum64() % uint64(n))
}
