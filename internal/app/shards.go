package app

import (
	"encoding/binary"
	"hash/fnv"
	"sort"
	"sync"
)

const defaultShardCount = 16

// slot est une entrée verrouillable individuellement.
type slot[V any] struct {
	mu sync.Mutex
	v  V
}

// shardedMap répartit les clés sur des shards (fnv); chaque shard protège
// uniquement sa map, chaque valeur a son propre verrou.
type shardedMap[V any] struct {
	shards []mapShard[V]
}

type mapShard[V any] struct {
	mu sync.RWMutex
	m  map[int64]*slot[V]
}

func newShardedMap[V any](shards int) *shardedMap[V] {
	if shards <= 0 {
		shards = defaultShardCount
	}
	entries := make([]mapShard[V], shards)
	for i := range entries {
		entries[i] = mapShard[V]{m: make(map[int64]*slot[V])}
	}
	return &shardedMap[V]{shards: entries}
}

func (m *shardedMap[V]) shardFor(key int64) *mapShard[V] {
	if len(m.shards) == 1 {
		return &m.shards[0]
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(key))
	hasher := fnv.New32a()
	_, _ = hasher.Write(b[:])
	return &m.shards[hasher.Sum32()%uint32(len(m.shards))]
}

func (m *shardedMap[V]) get(key int64) (*slot[V], bool) {
	shard := m.shardFor(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	s, ok := shard.m[key]
	return s, ok
}

func (m *shardedMap[V]) getOrCreate(key int64, init func() V) *slot[V] {
	if s, ok := m.get(key); ok {
		return s
	}
	shard := m.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if s, ok := shard.m[key]; ok {
		return s
	}
	s := &slot[V]{v: init()}
	shard.m[key] = s
	return s
}

// put remplace la valeur (last-writer-wins).
func (m *shardedMap[V]) put(key int64, v V) {
	s := m.getOrCreate(key, func() V { return v })
	s.mu.Lock()
	s.v = v
	s.mu.Unlock()
}

// keys renvoie les clés triées par ordre croissant.
func (m *shardedMap[V]) keys() []int64 {
	var out []int64
	for i := range m.shards {
		shard := &m.shards[i]
		shard.mu.RLock()
		for k := range shard.m {
			out = append(out, k)
		}
		shard.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
