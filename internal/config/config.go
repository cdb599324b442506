package config

// GameConfig is the immutable rule set for a game instance. A config value
// never changes after Load; the engine shares it by reference.
type GameConfig struct {
	GameConfigID string               `json:"gameConfigId"`
	MaxLevel     int                  `json:"maxLevel"`
	Stats        []string             `json:"stats"`
	Slots        []string             `json:"slots"`
	Classes      map[string]ClassDef  `json:"classes"`
	GearDefs     map[string]GearDef   `json:"gearDefs"`
	Sets         map[string]SetDef    `json:"sets,omitempty"`
	Algorithms   Algorithms           `json:"algorithms"`
	StatClamps   map[string]StatClamp `json:"statClamps,omitempty"`
}

// ClassDef is a playable class and its level-1 stats.
type ClassDef struct {
	BaseStats map[string]int64 `json:"baseStats"`
}

// GearDef describes a gear archetype. EquipPatterns lists the slot
// combinations an instance can occupy; the first free pattern wins when the
// client does not name one.
type GearDef struct {
	BaseStats     map[string]int64 `json:"baseStats"`
	EquipPatterns [][]string       `json:"equipPatterns"`
	SetID         string           `json:"setId,omitempty"`
	SetPieceCount int              `json:"setPieceCount,omitempty"`
	Restrictions  *Restrictions    `json:"restrictions,omitempty"`
}

// Restrictions gate equipping. AllowedClasses and BlockedClasses are
// mutually exclusive; Load rejects a def carrying both.
type Restrictions struct {
	AllowedClasses         []string `json:"allowedClasses,omitempty"`
	BlockedClasses         []string `json:"blockedClasses,omitempty"`
	RequiredCharacterLevel int      `json:"requiredCharacterLevel,omitempty"`
	MaxLevelDelta          *int     `json:"maxLevelDelta,omitempty"`
}

// SetDef lists piece-count thresholds and the flat bonuses they unlock.
type SetDef struct {
	Bonuses []SetBonus `json:"bonuses"`
}

// SetBonus activates once the distinct equipped pieces of the set reach
// Pieces. BonusStats are added flat, never scaled by growth.
type SetBonus struct {
	Pieces     int              `json:"pieces"`
	BonusStats map[string]int64 `json:"bonusStats"`
}

// Algorithms selects the growth and level-cost functions for the config.
type Algorithms struct {
	Growth             AlgorithmRef `json:"growth"`
	LevelCostCharacter AlgorithmRef `json:"levelCostCharacter"`
	LevelCostGear      AlgorithmRef `json:"levelCostGear"`
}

// AlgorithmRef names a registered algorithm and carries its opaque params.
type AlgorithmRef struct {
	AlgorithmID string                 `json:"algorithmId"`
	Params      map[string]interface{} `json:"params,omitempty"`
}

// StatClamp bounds a final stat value. Either side may be open.
type StatClamp struct {
	Min *int64 `json:"min,omitempty"`
	Max *int64 `json:"max,omitempty"`
}

// HasSlot reports whether slotID is one of the config's slots.
func (c *GameConfig) HasSlot(slotID string) bool {
	for _, s := range c.Slots {
		if s == slotID {
			return true
		}
	}
	return false
}
