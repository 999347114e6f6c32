// Package syncx provides small synchronization helpers shared by the
// per-user state holders (conversation windows, analytics counters).
package syncx

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 64

// KeyedMutex serializes operations on the same string key while letting
// operations on distinct keys proceed in parallel. Keys are hashed onto a
// fixed set of shards, so two distinct keys may occasionally share a lock;
// that only costs throughput, never correctness.
type KeyedMutex struct {
	shards [shardCount]sync.Mutex
}

// Lock acquires the shard lock for key and returns the matching unlock
// function.
func (m *KeyedMutex) Lock(key string) func() {
	shard := &m.shards[xxhash.Sum64String(key)%shardCount]
	shard.Lock()
	return shard.Unlock
}
