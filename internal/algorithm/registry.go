// Package algorithm holds the named pure functions a GameConfig selects for
// character/gear growth and level-up costs. Configs reference algorithms by
// id; the registry is the single dispatch point, so an unknown id fails in
// one place with a descriptive error.
package algorithm

import (
	"fmt"
	"sort"
	"sync"
)

// GrowthFunc scales base stats to a level. Implementations must be pure:
// same inputs, same outputs, no state.
type GrowthFunc func(base map[string]int64, level int, params map[string]interface{}) (map[string]int64, error)

// CostFunc returns the resource cost of reaching targetLevel from
// targetLevel-1. Keys are either bare resource ids or scoped
// "player.<id>" / "character.<id>" keys, depending on the algorithm.
type CostFunc func(targetLevel int, params map[string]interface{}) (map[string]int64, error)

// GrowthInfo is the metadata half of a registered growth algorithm,
// served by the algorithm catalog endpoint.
type GrowthInfo struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Params      map[string]string `json:"params,omitempty"`
}

// CostInfo is the metadata half of a registered level-cost algorithm.
type CostInfo struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Params      map[string]string `json:"params,omitempty"`
}

type growthEntry struct {
	info GrowthInfo
	fn   GrowthFunc
}

type costEntry struct {
	info CostInfo
	fn   CostFunc
}

// Registry maps algorithm ids to their implementations, one family for
// growth and one for level costs.
type Registry struct {
	mu     sync.RWMutex
	growth map[string]*growthEntry
	cost   map[string]*costEntry
}

// NewRegistry creates a registry preloaded with the built-in algorithms.
func NewRegistry() *Registry {
	r := &Registry{
		growth: make(map[string]*growthEntry),
		cost:   make(map[string]*costEntry),
	}
	r.registerBuiltins()
	return r
}

// RegisterGrowth adds or replaces a growth algorithm.
func (r *Registry) RegisterGrowth(info GrowthInfo, fn GrowthFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.growth[info.ID] = &growthEntry{info: info, fn: fn}
}

// RegisterCost adds or replaces a level-cost algorithm.
func (r *Registry) RegisterCost(info CostInfo, fn CostFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cost[info.ID] = &costEntry{info: info, fn: fn}
}

// HasGrowth reports whether a growth algorithm id is registered.
func (r *Registry) HasGrowth(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.growth[id]
	return ok
}

// HasLevelCost reports whether a level-cost algorithm id is registered.
func (r *Registry) HasLevelCost(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cost[id]
	return ok
}

// ApplyGrowth dispatches to the growth algorithm named by id.
func (r *Registry) ApplyGrowth(id string, base map[string]int64, level int, params map[string]interface{}) (map[string]int64, error) {
	r.mu.RLock()
	entry, ok := r.growth[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown growth algorithm %q", id)
	}
	return entry.fn(base, level, params)
}

// ApplyCost dispatches to the level-cost algorithm named by id.
func (r *Registry) ApplyCost(id string, targetLevel int, params map[string]interface{}) (map[string]int64, error) {
	r.mu.RLock()
	entry, ok := r.cost[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown level-cost algorithm %q", id)
	}
	return entry.fn(targetLevel, params)
}

// TotalCost sums the per-level costs of climbing from currentLevel by
// levels steps, i.e. over targets currentLevel+1 .. currentLevel+levels.
func (r *Registry) TotalCost(id string, currentLevel, levels int, params map[string]interface{}) (map[string]int64, error) {
	total := make(map[string]int64)
	for target := currentLevel + 1; target <= currentLevel+levels; target++ {
		step, err := r.ApplyCost(id, target, params)
		if err != nil {
			return nil, err
		}
		for key, amount := range step {
			total[key] += amount
		}
	}
	return total, nil
}

// Catalog returns the registered algorithm metadata, sorted by id.
func (r *Registry) Catalog() ([]GrowthInfo, []CostInfo) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	growth := make([]GrowthInfo, 0, len(r.growth))
	for _, e := range r.growth {
		growth = append(growth, e.info)
	}
	cost := make([]CostInfo, 0, len(r.cost))
	for _, e := range r.cost {
		cost = append(cost, e.info)
	}
	sort.Slice(growth, func(i, j int) bool { return growth[i].ID < growth[j].ID })
	sort.Slice(cost, func(i, j int) bool { return cost[i].ID < cost[j].ID })
	return growth, cost
}
