// Package bucketing assigns audit rows to stable partitions so the activity
// fan-out (Kafka keys, ClickHouse partitions) distributes evenly without
// hot-spotting a single admin.
package bucketing

import (
	"hash"
	"sync"

	"github.com/spaolacci/murmur3"
)

const defaultEventBuckets = 16

type Manager struct {
	eventBuckets int
	hasherPool   sync.Pool
}

func NewManager(eventBuckets int) *Manager {
	if eventBuckets <= 0 {
		eventBuckets = defaultEventBuckets
	}
	return &Manager{
		eventBuckets: eventBuckets,
		hasherPool: sync.Pool{
			New: func() interface{} {
				return murmur3.New64()
			},
		},
	}
}

// EventBucket returns a stable bucket in [0, eventBuckets) for the key.
func (m *Manager) EventBucket(key string) int {
	return int(m.hash(key) % uint64(m.eventBuckets))
}

// EventBuckets returns the configured bucket count.
func (m *Manager) EventBuckets() int {
	return m.eventBuckets
}

func (m *Manager) hash(key string) uint64 {
	hasher := m.hasherPool.Get().(hash.Hash64)
	defer m.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}
