package service

import (
	"sync"

	"veritasor/pkg/domain"
)

const bondLockShards = 128

// bondLocks serializes mutations per bond. Locks are sharded by bond ID so
// unrelated bonds never contend while two operations on the same bond always
// observe each other's writes.
type bondLocks struct {
	shards [bondLockShards]sync.Mutex
}

// lock acquires the shard for the given bond and returns its release func.
func (l *bondLocks) lock(id domain.BondID) func() {
	shard := &l.shards[uint64(id)%bondLockShards]
	shard.Lock()
	return shard.Unlock
}
