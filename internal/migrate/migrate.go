// Package migrate reshapes a restored GameState to the currently active
// config. Snapshots may predate config changes - classes removed, slots
// renamed, gear definitions dropped - and migration repairs or removes
// whatever no longer fits. Migration never fails a restore: entities that
// cannot be reconciled are dropped with a warning and startup continues.
package migrate

import (
	"fmt"
	"log"
	"sort"

	"github.com/gameng/engine/internal/config"
	"github.com/gameng/engine/internal/state"
)

// Warning describes one repair applied during migration.
type Warning struct {
	Rule       string `json:"rule"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Detail     string `json:"detail"`
}

var logger = log.New(log.Writer(), "[MIGRATE] ", log.LstdFlags)

// Run applies all migration rules in order, mutating gs in place, and
// returns the repair report. Every rule is idempotent: re-running on an
// already-migrated state produces no further warnings.
func Run(gs *state.GameState, cfg *config.GameConfig) []Warning {
	var report []Warning
	warn := func(rule, entityType, entityID, format string, args ...interface{}) {
		w := Warning{Rule: rule, EntityType: entityType, EntityID: entityID, Detail: fmt.Sprintf(format, args...)}
		report = append(report, w)
		logger.Printf("%s: %s %s: %s", w.Rule, w.EntityType, w.EntityID, w.Detail)
	}

	// Rule 1: unknown config id - adopt the active config.
	if gs.GameConfigID != cfg.GameConfigID {
		warn("config-id", "gameState", gs.GameInstanceID,
			"gameConfigId %q replaced with active config %q", gs.GameConfigID, cfg.GameConfigID)
		gs.GameConfigID = cfg.GameConfigID
	}

	for _, playerID := range sortedPlayerIDs(gs) {
		player := gs.Players[playerID]
		if player.Characters == nil {
			player.Characters = make(map[string]*state.Character)
		}
		if player.Gear == nil {
			player.Gear = make(map[string]*state.GearInstance)
		}

		// Rule 2: drop characters whose class no longer exists.
		for _, charID := range sortedCharacterIDs(player) {
			character := player.Characters[charID]
			if _, ok := cfg.Classes[character.ClassID]; !ok {
				warn("unknown-class", "character", charID,
					"class %q is not in the active config; character dropped", character.ClassID)
				delete(player.Characters, charID)
			}
		}

		// Rule 3: clamp levels into [1, maxLevel].
		for _, charID := range sortedCharacterIDs(player) {
			character := player.Characters[charID]
			if character.Level < 1 {
				warn("level-clamp", "character", charID, "level %d raised to 1", character.Level)
				character.Level = 1
			} else if character.Level > cfg.MaxLevel {
				warn("level-clamp", "character", charID, "level %d lowered to maxLevel %d", character.Level, cfg.MaxLevel)
				character.Level = cfg.MaxLevel
			}
		}

		// Rule 4: drop gear whose definition no longer exists.
		for _, gearID := range sortedGearIDs(player) {
			gear := player.Gear[gearID]
			if _, ok := cfg.GearDefs[gear.GearDefID]; !ok {
				warn("unknown-gear-def", "gear", gearID,
					"gearDef %q is not in the active config; gear dropped", gear.GearDefID)
				delete(player.Gear, gearID)
			}
		}
	}

	// Rule 5: scrub equipped maps - unknown slots and dangling gear ids.
	for _, playerID := range sortedPlayerIDs(gs) {
		player := gs.Players[playerID]
		for _, charID := range sortedCharacterIDs(player) {
			character := player.Characters[charID]
			for slot, gearID := range character.Equipped {
				if !cfg.HasSlot(slot) {
					warn("unknown-slot", "character", charID,
						"equipped slot %q is not in the active config; entry dropped", slot)
					delete(character.Equipped, slot)
					continue
				}
				// Characters may only reference their own player's gear; a
				// reference into another player's inventory is dangling too.
				if _, ok := player.Gear[gearID]; !ok {
					warn("dangling-gear-ref", "character", charID,
						"equipped gear %q is not in the owning player's inventory; slot %q cleared", gearID, slot)
					delete(character.Equipped, slot)
				}
			}
		}
	}

	reconcileEquippedBy(gs, warn)

	// Rule 7: fill fields older snapshots lack.
	for _, playerID := range sortedPlayerIDs(gs) {
		player := gs.Players[playerID]
		if player.Resources == nil {
			player.Resources = make(map[string]int64)
		}
		for _, charID := range sortedCharacterIDs(player) {
			character := player.Characters[charID]
			if character.Resources == nil {
				warn("missing-resources", "character", charID, "resources initialized to empty")
				character.Resources = make(map[string]int64)
			}
			if character.Equipped == nil {
				character.Equipped = make(map[string]string)
			}
		}
	}
	if gs.TxIDCache == nil {
		gs.TxIDCache = []*state.TxCacheEntry{}
	}

	return report
}

// reconcileEquippedBy enforces rule 6: the character-side equipped maps are
// authoritative. Each gear's equippedBy is rewritten to match; a gear
// claimed by two characters keeps its first claimant (sorted order) and is
// removed from the rest.
func reconcileEquippedBy(gs *state.GameState, warn func(rule, entityType, entityID, format string, args ...interface{})) {
	owners := make(map[string]string) // gearId -> characterId
	for _, playerID := range sortedPlayerIDs(gs) {
		player := gs.Players[playerID]
		for _, charID := range sortedCharacterIDs(player) {
			character := player.Characters[charID]
			for slot, gearID := range character.Equipped {
				owner, claimed := owners[gearID]
				if claimed && owner != charID {
					warn("duplicate-equip", "gear", gearID,
						"equipped by both %q and %q; keeping %q", owner, charID, owner)
					delete(character.Equipped, slot)
					continue
				}
				owners[gearID] = charID
			}
		}
	}

	for _, playerID := range sortedPlayerIDs(gs) {
		player := gs.Players[playerID]
		for _, gearID := range sortedGearIDs(player) {
			gear := player.Gear[gearID]
			owner, equipped := owners[gearID]
			switch {
			case equipped && (gear.EquippedBy == nil || *gear.EquippedBy != owner):
				warn("equipped-by-fix", "gear", gearID,
					"equippedBy corrected to %q from character-side view", owner)
				gear.EquippedBy = &owner
			case !equipped && gear.EquippedBy != nil:
				warn("equipped-by-fix", "gear", gearID,
					"equippedBy %q cleared; no character equips this gear", *gear.EquippedBy)
				gear.EquippedBy = nil
			}
		}
	}
}

func sortedPlayerIDs(gs *state.GameState) []string {
	ids := make([]string, 0, len(gs.Players))
	for id := range gs.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedCharacterIDs(p *state.Player) []string {
	ids := make([]string, 0, len(p.Characters))
	for id := range p.Characters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedGearIDs(p *state.Player) []string {
	ids := make([]string, 0, len(p.Gear))
	for id := range p.Gear {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
