package broker

import "sync"

// HeartbeatShards is the default shard count for the Heartbeat Cache
// when a deployment does not override it: a prime near a small
// worker-pool size so connect_id mod N spreads writes evenly without
// the contention of one shared map, generalizing the teacher's single
// sync.RWMutex-guarded map idiom to a sharded one.
const HeartbeatShards = 17

type heartbeatShard struct {
	mu      sync.RWMutex
	records map[uint64]HeartbeatRecord
}

// HeartbeatCache stores the last-seen timestamp and negotiated
// keep-alive for every live connection, partitioned across N shards
// keyed by connect_id mod N. N is a deployment knob (config
// heartbeat.shard_count, spec §9) fixed at construction.
type HeartbeatCache struct {
	shards []*heartbeatShard
}

// NewHeartbeatCache builds a cache with shardCount shards, falling
// back to HeartbeatShards when shardCount is non-positive.
func NewHeartbeatCache(shardCount int) *HeartbeatCache {
	if shardCount <= 0 {
		shardCount = HeartbeatShards
	}
	hc := &HeartbeatCache{shards: make([]*heartbeatShard, shardCount)}
	for i := range hc.shards {
		hc.shards[i] = &heartbeatShard{records: make(map[uint64]HeartbeatRecord)}
	}
	return hc
}

func (hc *HeartbeatCache) shardFor(connectID uint64) *heartbeatShard {
	return hc.shards[connectID%uint64(len(hc.shards))]
}

// ShardCount reports how many shards back this cache, for a reaper
// driving Each across every shard index.
func (hc *HeartbeatCache) ShardCount() int { return len(hc.shards) }

func (hc *HeartbeatCache) ReportHeartbeat(connectID uint64, record HeartbeatRecord) {
	s := hc.shardFor(connectID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[connectID] = record
}

func (hc *HeartbeatCache) RemoveConnection(connectID uint64) {
	s := hc.shardFor(connectID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, connectID)
}

func (hc *HeartbeatCache) Get(connectID uint64) (HeartbeatRecord, bool) {
	s := hc.shardFor(connectID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[connectID]
	return r, ok
}

// Each calls fn with a snapshot of every record in shard index i, for
// a keep-alive reaper to sweep one shard at a time without holding a
// lock across the whole cache.
func (hc *HeartbeatCache) Each(shardIndex int, fn func(HeartbeatRecord)) {
	s := hc.shards[shardIndex%len(hc.shards)]
	s.mu.RLock()
	snapshot := make([]HeartbeatRecord, 0, len(s.records))
	for _, r := range s.records {
		snapshot = append(snapshot, r)
	}
	s.mu.RUnlock()

	for _, r := range snapshot {
		fn(r)
	}
}
