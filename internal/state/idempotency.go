package state

import "encoding/json"

// DefaultMaxIdempotencyEntries bounds the per-instance transaction result
// cache when no override is configured.
const DefaultMaxIdempotencyEntries = 1000

// IdempotencyStore is a bounded FIFO cache of transaction results, keyed by
// txId. It is the only writer of GameState.TxIDCache so the ordered log and
// the lookup index never diverge. Eviction drops the oldest entry; a retry
// older than the window is answered as a fresh transaction, which is an
// accepted trade-off of the bounded cache.
type IdempotencyStore struct {
	state      *GameState
	index      map[string]*TxCacheEntry
	maxEntries int
}

// NewIdempotencyStore wraps the given state's txIdCache. The index is
// rebuilt from the persisted log, so a restored snapshot keeps answering
// replays. maxEntries <= 0 selects the default capacity.
func NewIdempotencyStore(gs *GameState, maxEntries int) *IdempotencyStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxIdempotencyEntries
	}
	s := &IdempotencyStore{
		state:      gs,
		index:      make(map[string]*TxCacheEntry),
		maxEntries: maxEntries,
	}
	// Restored logs may exceed the current capacity; trim oldest-first.
	if len(gs.TxIDCache) > maxEntries {
		gs.TxIDCache = gs.TxIDCache[len(gs.TxIDCache)-maxEntries:]
	}
	for _, e := range gs.TxIDCache {
		s.index[e.TxID] = e
	}
	return s
}

// Get returns the cached entry for txId, or nil.
func (s *IdempotencyStore) Get(txID string) *TxCacheEntry {
	return s.index[txID]
}

// Record stores a transaction result. Recording an already-known txId is a
// no-op; the first result wins. When the log exceeds capacity the oldest
// entry is evicted from both the log and the index.
func (s *IdempotencyStore) Record(txID string, statusCode int, body json.RawMessage) {
	if _, ok := s.index[txID]; ok {
		return
	}
	entry := &TxCacheEntry{TxID: txID, StatusCode: statusCode, Body: body}
	s.state.TxIDCache = append(s.state.TxIDCache, entry)
	s.index[txID] = entry
	if len(s.state.TxIDCache) > s.maxEntries {
		oldest := s.state.TxIDCache[0]
		s.state.TxIDCache = s.state.TxIDCache[1:]
		delete(s.index, oldest.TxID)
	}
}

// Len reports the number of cached results.
func (s *IdempotencyStore) Len() int {
	return len(s.state.TxIDCache)
}
