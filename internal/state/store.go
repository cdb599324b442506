package state

import (
	"log"
	"sort"
	"sync"
)

// Instance pairs one GameState with its serialization lock and idempotency
// cache. All state-observing work for the instance runs under mu, so
// transactions apply one at a time and reads see either fully pre- or fully
// post-transaction state.
type Instance struct {
	mu    sync.Mutex
	State *GameState
	Idem  *IdempotencyStore
}

// WithLock runs fn while holding the instance's serialization lock.
func (in *Instance) WithLock(fn func(*GameState, *IdempotencyStore)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	fn(in.State, in.Idem)
}

// Snapshot returns a deep copy of the state taken under the lock. File I/O
// happens on the copy so disk latency never stalls the writer.
func (in *Instance) Snapshot() *GameState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.State.Clone()
}

// Store holds all live game instances. Different instances mutate in
// parallel; the store itself only guards the instance map.
type Store struct {
	mu         sync.RWMutex
	instances  map[string]*Instance
	maxIdemLog int
	logger     *log.Logger
}

// NewStore creates an empty instance store. maxIdemEntries bounds each
// instance's idempotency log; <= 0 selects the default.
func NewStore(maxIdemEntries int) *Store {
	return &Store{
		instances:  make(map[string]*Instance),
		maxIdemLog: maxIdemEntries,
		logger:     log.New(log.Writer(), "[STORE] ", log.LstdFlags),
	}
}

// Put publishes a state as a live instance. Used at startup for fresh and
// restored (already migrated) states.
func (s *Store) Put(gs *GameState) *Instance {
	gs.Normalize()
	in := &Instance{
		State: gs,
		Idem:  NewIdempotencyStore(gs, s.maxIdemLog),
	}
	s.mu.Lock()
	s.instances[gs.GameInstanceID] = in
	s.mu.Unlock()
	s.logger.Printf("instance %s online (stateVersion=%d, players=%d)",
		gs.GameInstanceID, gs.StateVersion, len(gs.Players))
	return in
}

// Get returns the instance for id, or nil if unknown.
func (s *Store) Get(id string) *Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instances[id]
}

// IDs returns all instance ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.instances))
	for id := range s.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports the number of live instances.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}
