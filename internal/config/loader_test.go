package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct{}

func (fakeResolver) HasGrowth(id string) bool    { return id == "linear" || id == "flat" }
func (fakeResolver) HasLevelCost(id string) bool { return id == "flat" || id == "linear_cost" }

const minimalJSON = `{
  "gameConfigId": "config_minimal",
  "maxLevel": 10,
  "stats": ["strength", "hp"],
  "slots": ["main_hand", "off_hand"],
  "classes": {
    "warrior": {"baseStats": {"strength": 5, "hp": 20}}
  },
  "gearDefs": {
    "sword_basic": {
      "baseStats": {"strength": 3},
      "equipPatterns": [["main_hand"], ["off_hand"]]
    }
  },
  "algorithms": {
    "growth": {"algorithmId": "linear", "params": {"perLevelMultiplier": 0.1}},
    "levelCostCharacter": {"algorithmId": "flat"},
    "levelCostGear": {"algorithmId": "flat"}
  }
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "game.json", minimalJSON), fakeResolver{})
	require.NoError(t, err)

	assert.Equal(t, "config_minimal", cfg.GameConfigID)
	assert.Equal(t, 10, cfg.MaxLevel)
	assert.Equal(t, []string{"strength", "hp"}, cfg.Stats)
	assert.Equal(t, int64(5), cfg.Classes["warrior"].BaseStats["strength"])
	assert.Equal(t, [][]string{{"main_hand"}, {"off_hand"}}, cfg.GearDefs["sword_basic"].EquipPatterns)
	assert.InDelta(t, 0.1, cfg.Algorithms.Growth.Params["perLevelMultiplier"], 1e-9)
}

func TestLoadYAML(t *testing.T) {
	yamlDoc := `
gameConfigId: config_minimal
maxLevel: 10
stats: [strength, hp]
slots: [main_hand, off_hand]
classes:
  warrior:
    baseStats: {strength: 5, hp: 20}
gearDefs:
  sword_basic:
    baseStats: {strength: 3}
    equipPatterns:
      - [main_hand]
      - [off_hand]
algorithms:
  growth:
    algorithmId: linear
    params:
      perLevelMultiplier: 0.1
  levelCostCharacter:
    algorithmId: flat
  levelCostGear:
    algorithmId: flat
`
	cfg, err := Load(writeFile(t, "game.yaml", yamlDoc), fakeResolver{})
	require.NoError(t, err)
	assert.Equal(t, "config_minimal", cfg.GameConfigID)
	assert.Equal(t, int64(20), cfg.Classes["warrior"].BaseStats["hp"])
}

func TestLoadRejectsUnknownAlgorithm(t *testing.T) {
	doc := `{
  "gameConfigId": "c", "maxLevel": 5, "stats": ["hp"], "slots": [],
  "classes": {"warrior": {"baseStats": {"hp": 1}}},
  "gearDefs": {},
  "algorithms": {
    "growth": {"algorithmId": "quadratic"},
    "levelCostCharacter": {"algorithmId": "flat"},
    "levelCostGear": {"algorithmId": "flat"}
  }
}`
	_, err := Load(writeFile(t, "game.json", doc), fakeResolver{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quadratic")
}

func TestValidateRejectsBothClassRestrictionLists(t *testing.T) {
	cfg := &GameConfig{
		GameConfigID: "c",
		MaxLevel:     5,
		Stats:        []string{"hp"},
		Slots:        []string{"main_hand"},
		Classes:      map[string]ClassDef{"warrior": {BaseStats: map[string]int64{"hp": 1}}},
		GearDefs: map[string]GearDef{
			"blade": {
				BaseStats:     map[string]int64{"hp": 1},
				EquipPatterns: [][]string{{"main_hand"}},
				Restrictions: &Restrictions{
					AllowedClasses: []string{"warrior"},
					BlockedClasses: []string{"mage"},
				},
			},
		},
		Algorithms: Algorithms{
			Growth:             AlgorithmRef{AlgorithmID: "flat"},
			LevelCostCharacter: AlgorithmRef{AlgorithmID: "flat"},
			LevelCostGear:      AlgorithmRef{AlgorithmID: "flat"},
		},
	}
	err := Validate(cfg, fakeResolver{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestValidateRejectsPatternWithUnknownSlot(t *testing.T) {
	cfg := &GameConfig{
		GameConfigID: "c",
		MaxLevel:     5,
		Stats:        []string{"hp"},
		Slots:        []string{"main_hand"},
		Classes:      map[string]ClassDef{"warrior": {BaseStats: map[string]int64{"hp": 1}}},
		GearDefs: map[string]GearDef{
			"blade": {
				BaseStats:     map[string]int64{"hp": 1},
				EquipPatterns: [][]string{{"tail"}},
			},
		},
		Algorithms: Algorithms{
			Growth:             AlgorithmRef{AlgorithmID: "flat"},
			LevelCostCharacter: AlgorithmRef{AlgorithmID: "flat"},
			LevelCostGear:      AlgorithmRef{AlgorithmID: "flat"},
		},
	}
	err := Validate(cfg, fakeResolver{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tail")
}

func TestValidateRejectsMaxLevelBelowOne(t *testing.T) {
	cfg := &GameConfig{GameConfigID: "c", MaxLevel: 0, Stats: []string{"hp"},
		Classes: map[string]ClassDef{"warrior": {}}}
	require.Error(t, Validate(cfg, nil))
}
