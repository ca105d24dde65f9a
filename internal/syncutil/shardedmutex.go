// Package syncutil holds small locking helpers shared by the storage layers.
package syncutil

import (
	"hash/fnv"
	"sync"
)

const shardCount = 64

// ShardedMutex is a fixed pool of mutexes keyed by string (a file path, a
// seller id). Keys hashing to the same shard share a lock, which only costs
// some extra serialisation. The zero value is ready to use.
type ShardedMutex struct {
	shards [shardCount]sync.Mutex
}

// Lock acquires the mutex for key and returns the matching unlock function.
func (s *ShardedMutex) Lock(key string) func() {
	mu := s.shard(key)
	mu.Lock()
	return mu.Unlock
}

func (s *ShardedMutex) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.shards[h.Sum32()%shardCount]
}
