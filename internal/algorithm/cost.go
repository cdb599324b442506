package algorithm

import (
	"fmt"
	"math"
	"strings"
)

// Wallet scopes for level-up costs. Scoped cost keys take the form
// "<scope>.<resourceId>".
const (
	ScopePlayer    = "player"
	ScopeCharacter = "character"
)

// ErrInvalidCostKey marks a cost map key that carries no wallet scope.
// Callers surface it as the INVALID_COST_RESOURCE_KEY business error.
type ErrInvalidCostKey struct {
	Key string
}

func (e *ErrInvalidCostKey) Error() string {
	return fmt.Sprintf("cost key %q must be prefixed with %q or %q", e.Key, ScopePlayer+".", ScopeCharacter+".")
}

// SplitScopedCosts partitions a flat cost map into the player and character
// wallets. Every key must carry a scope prefix.
func SplitScopedCosts(costs map[string]int64) (player, character map[string]int64, err error) {
	player = make(map[string]int64)
	character = make(map[string]int64)
	for key, amount := range costs {
		switch {
		case strings.HasPrefix(key, ScopePlayer+"."):
			player[strings.TrimPrefix(key, ScopePlayer+".")] += amount
		case strings.HasPrefix(key, ScopeCharacter+"."):
			character[strings.TrimPrefix(key, ScopeCharacter+".")] += amount
		default:
			return nil, nil, &ErrInvalidCostKey{Key: key}
		}
	}
	return player, character, nil
}

// Built-in level-cost algorithms. A cost applies to reaching targetLevel;
// target <= 1 always costs nothing since level 1 is the floor.

func costFree(targetLevel int, params map[string]interface{}) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func costLinear(targetLevel int, params map[string]interface{}) (map[string]int64, error) {
	resourceID, ok := params["resourceId"].(string)
	if !ok || resourceID == "" {
		return nil, fmt.Errorf("linear_cost requires string param %q", "resourceId")
	}
	base, ok := numberParam(params, "base")
	if !ok {
		return nil, fmt.Errorf("linear_cost requires numeric param %q", "base")
	}
	perLevel, ok := numberParam(params, "perLevel")
	if !ok {
		return nil, fmt.Errorf("linear_cost requires numeric param %q", "perLevel")
	}
	if targetLevel <= 1 {
		return map[string]int64{}, nil
	}
	amount := int64(math.Floor(base + perLevel*float64(targetLevel-2)))
	return map[string]int64{resourceID: amount}, nil
}

func costMixedLinear(targetLevel int, params map[string]interface{}) (map[string]int64, error) {
	rawCosts, ok := params["costs"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("mixed_linear_cost requires list param %q", "costs")
	}
	if targetLevel <= 1 {
		return map[string]int64{}, nil
	}

	out := make(map[string]int64)
	for i, raw := range rawCosts {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("mixed_linear_cost costs[%d]: expected object", i)
		}
		scope, _ := entry["scope"].(string)
		if scope != ScopePlayer && scope != ScopeCharacter {
			return nil, fmt.Errorf("mixed_linear_cost costs[%d]: scope must be %q or %q", i, ScopePlayer, ScopeCharacter)
		}
		resourceID, _ := entry["resourceId"].(string)
		if resourceID == "" {
			return nil, fmt.Errorf("mixed_linear_cost costs[%d]: resourceId is required", i)
		}
		base, ok := numberParam(entry, "base")
		if !ok {
			return nil, fmt.Errorf("mixed_linear_cost costs[%d]: base is required", i)
		}
		perLevel, ok := numberParam(entry, "perLevel")
		if !ok {
			return nil, fmt.Errorf("mixed_linear_cost costs[%d]: perLevel is required", i)
		}
		amount := int64(math.Floor(base + perLevel*float64(targetLevel-2)))
		// Entries sharing a key accumulate.
		out[scope+"."+resourceID] += amount
	}
	return out, nil
}
