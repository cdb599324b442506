package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// AlgorithmResolver answers whether an algorithm id is registered. The
// loader uses it to reject configs that name unknown growth or level-cost
// functions before any instance goes live.
type AlgorithmResolver interface {
	HasGrowth(id string) bool
	HasLevelCost(id string) bool
}

// Load reads, parses and validates a GameConfig file. JSON and YAML are
// both accepted; YAML documents are normalized through JSON so the same
// field tags apply.
func Load(path string, resolver AlgorithmResolver) (*GameConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	var cfg GameConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := Validate(&cfg, resolver); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the structural rules a config must satisfy. Algorithm
// parameter checks are intentionally left to the registry: params are
// opaque here and validated on first apply.
func Validate(c *GameConfig, resolver AlgorithmResolver) error {
	if c.GameConfigID == "" {
		return fmt.Errorf("gameConfigId is required")
	}
	if c.MaxLevel < 1 {
		return fmt.Errorf("maxLevel must be >= 1, got %d", c.MaxLevel)
	}
	if len(c.Stats) == 0 {
		return fmt.Errorf("stats must list at least one stat id")
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("classes must define at least one class")
	}

	slots := make(map[string]bool, len(c.Slots))
	for _, s := range c.Slots {
		if slots[s] {
			return fmt.Errorf("duplicate slot id %q", s)
		}
		slots[s] = true
	}

	for defID, def := range c.GearDefs {
		if len(def.EquipPatterns) == 0 {
			return fmt.Errorf("gearDef %q: equipPatterns must not be empty", defID)
		}
		for _, pattern := range def.EquipPatterns {
			if len(pattern) == 0 {
				return fmt.Errorf("gearDef %q: empty equip pattern", defID)
			}
			for _, slot := range pattern {
				if !slots[slot] {
					return fmt.Errorf("gearDef %q: pattern references unknown slot %q", defID, slot)
				}
			}
		}
		if r := def.Restrictions; r != nil {
			if len(r.AllowedClasses) > 0 && len(r.BlockedClasses) > 0 {
				return fmt.Errorf("gearDef %q: allowedClasses and blockedClasses are mutually exclusive", defID)
			}
		}
		if def.SetID != "" {
			// A referenced but undefined set is legal: the stats pipeline
			// silently skips it.
			if def.SetPieceCount < 0 {
				return fmt.Errorf("gearDef %q: setPieceCount must not be negative", defID)
			}
		}
	}

	for setID, set := range c.Sets {
		for i, bonus := range set.Bonuses {
			if bonus.Pieces < 1 {
				return fmt.Errorf("set %q bonus %d: pieces must be >= 1", setID, i)
			}
		}
	}

	for statID, clamp := range c.StatClamps {
		if clamp.Min != nil && clamp.Max != nil && *clamp.Min > *clamp.Max {
			return fmt.Errorf("statClamp %q: min %d exceeds max %d", statID, *clamp.Min, *clamp.Max)
		}
	}

	if resolver != nil {
		if id := c.Algorithms.Growth.AlgorithmID; !resolver.HasGrowth(id) {
			return fmt.Errorf("unknown growth algorithm %q", id)
		}
		if id := c.Algorithms.LevelCostCharacter.AlgorithmID; !resolver.HasLevelCost(id) {
			return fmt.Errorf("unknown levelCostCharacter algorithm %q", id)
		}
		if id := c.Algorithms.LevelCostGear.AlgorithmID; !resolver.HasLevelCost(id) {
			return fmt.Errorf("unknown levelCostGear algorithm %q", id)
		}
	}
	return nil
}

// yamlToJSON re-encodes a YAML document as JSON. yaml.v2 decodes mappings
// with interface{} keys, which encoding/json refuses, so keys are coerced
// to strings first.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(stringifyKeys(doc))
}

func stringifyKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = stringifyKeys(item)
		}
		return out
	case []interface{}:
		for i, item := range val {
			val[i] = stringifyKeys(item)
		}
		return val
	default:
		return v
	}
}
