package service

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// UserLocks serializes per-user read-modify-write operations (credential
// writes, session create/revoke) without a global lock. Users hash onto a
// fixed set of mutex shards; two users may share a shard, which costs a
// little contention but never correctness.
//
// Never hold a user lock across a provider network call. Lock around the
// local read and the local write only.
type UserLocks struct {
	shards [lockShards]sync.Mutex
}

// Lock acquires the shard for userID and returns the matching unlock func.
func (l *UserLocks) Lock(userID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	m := &l.shards[h.Sum32()%lockShards]
	m.Lock()
	return m.Unlock
}
