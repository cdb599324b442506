package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gameng/engine/internal/auth"
	"github.com/gameng/engine/internal/config"
	"github.com/gameng/engine/internal/state"
)

type equipGearTx struct {
	PlayerID    string   `json:"playerId"`
	CharacterID string   `json:"characterId"`
	GearID      string   `json:"gearId"`
	SlotPattern []string `json:"slotPattern,omitempty"`
	Swap        bool     `json:"swap,omitempty"`
}

func (e *Engine) equipGear(gs *state.GameState, principal *auth.Principal, rawBody []byte) outcome {
	var tx equipGearTx
	if err := json.Unmarshal(rawBody, &tx); err != nil {
		return invalid("malformed EquipGear body")
	}
	if tx.CharacterID == "" {
		return invalid("characterId is required")
	}
	if tx.GearID == "" {
		return invalid("gearId is required")
	}
	player, o := e.requireOwnedPlayer(gs, principal, tx.PlayerID)
	if o.status != 0 {
		return o
	}

	gear, ok := player.Gear[tx.GearID]
	if !ok {
		return reject(CodeGearNotFound, fmt.Sprintf("gear %q not found", tx.GearID))
	}
	character, ok := player.Characters[tx.CharacterID]
	if !ok {
		return reject(CodeCharacterNotFound, fmt.Sprintf("character %q not found", tx.CharacterID))
	}
	if gear.EquippedBy != nil {
		return reject(CodeGearAlreadyEquipped, fmt.Sprintf("gear %q is equipped by character %q", tx.GearID, *gear.EquippedBy))
	}
	def, ok := e.cfg.GearDefs[gear.GearDefID]
	if !ok {
		return reject(CodeInvalidConfigReference, fmt.Sprintf("gearDef %q not defined by config %q", gear.GearDefID, e.cfg.GameConfigID))
	}

	slots, o := e.selectSlots(character, def, tx.SlotPattern, tx.Swap)
	if o.status != 0 {
		return o
	}
	if o = checkRestrictions(def.Restrictions, character, gear); o.status != 0 {
		return o
	}

	// With swap, evict whatever currently occupies the chosen slots. An
	// occupant is removed from every slot it holds, including slots outside
	// the chosen pattern: gear is either fully equipped or not at all.
	if tx.Swap {
		for _, slot := range slots {
			occupant, ok := character.Equipped[slot]
			if !ok || occupant == tx.GearID {
				continue
			}
			for s, gid := range character.Equipped {
				if gid == occupant {
					delete(character.Equipped, s)
				}
			}
			if g, ok := player.Gear[occupant]; ok {
				g.EquippedBy = nil
			}
		}
	}

	for _, slot := range slots {
		character.Equipped[slot] = tx.GearID
	}
	owner := tx.CharacterID
	gear.EquippedBy = &owner
	return accept()
}

// selectSlots resolves the slot set the gear will occupy. An explicit
// slotPattern must name known slots and match one of the def's patterns;
// otherwise the first pattern whose slots are all free wins. With swap the
// occupancy requirement is waived.
func (e *Engine) selectSlots(character *state.Character, def config.GearDef, slotPattern []string, swap bool) ([]string, outcome) {
	if len(slotPattern) > 0 {
		for _, slot := range slotPattern {
			if !e.cfg.HasSlot(slot) {
				return nil, reject(CodeInvalidSlot, fmt.Sprintf("slot %q is not defined by the config", slot))
			}
		}
		if !matchesAnyPattern(slotPattern, def.EquipPatterns) {
			return nil, reject(CodePatternMismatch, fmt.Sprintf("slot pattern %v is not a valid equip pattern", slotPattern))
		}
		if !swap {
			for _, slot := range slotPattern {
				if _, occupied := character.Equipped[slot]; occupied {
					return nil, reject(CodeSlotOccupied, fmt.Sprintf("slot %q is occupied", slot))
				}
			}
		}
		return slotPattern, outcome{}
	}

	for _, pattern := range def.EquipPatterns {
		free := true
		for _, slot := range pattern {
			if _, occupied := character.Equipped[slot]; occupied {
				free = false
				break
			}
		}
		if free {
			return pattern, outcome{}
		}
	}
	if swap && len(def.EquipPatterns) > 0 {
		// No free pattern, but swap may evict; take the first.
		return def.EquipPatterns[0], outcome{}
	}
	return nil, reject(CodeSlotOccupied, "no equip pattern has all slots free")
}

// matchesAnyPattern compares the requested slots against the def's patterns
// as sets, so clients need not repeat the config's slot order.
func matchesAnyPattern(requested []string, patterns [][]string) bool {
	want := append([]string(nil), requested...)
	sort.Strings(want)
	for _, pattern := range patterns {
		if len(pattern) != len(want) {
			continue
		}
		have := append([]string(nil), pattern...)
		sort.Strings(have)
		match := true
		for i := range want {
			if want[i] != have[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// checkRestrictions evaluates equip restrictions in their fixed order:
// allowedClasses, blockedClasses, requiredCharacterLevel, maxLevelDelta.
// The first violated rule is named in the error message.
func checkRestrictions(r *config.Restrictions, character *state.Character, gear *state.GearInstance) outcome {
	if r == nil {
		return outcome{}
	}
	if len(r.AllowedClasses) > 0 {
		allowed := false
		for _, classID := range r.AllowedClasses {
			if classID == character.ClassID {
				allowed = true
				break
			}
		}
		if !allowed {
			return reject(CodeRestrictionFailed, fmt.Sprintf("allowedClasses: class %q is not allowed", character.ClassID))
		}
	}
	for _, classID := range r.BlockedClasses {
		if classID == character.ClassID {
			return reject(CodeRestrictionFailed, fmt.Sprintf("blockedClasses: class %q is blocked", character.ClassID))
		}
	}
	if r.RequiredCharacterLevel > 0 && character.Level < r.RequiredCharacterLevel {
		return reject(CodeRestrictionFailed, fmt.Sprintf("requiredCharacterLevel: character level %d is below %d", character.Level, r.RequiredCharacterLevel))
	}
	if r.MaxLevelDelta != nil && gear.Level > character.Level+*r.MaxLevelDelta {
		return reject(CodeRestrictionFailed, fmt.Sprintf("maxLevelDelta: gear level %d exceeds character level %d by more than %d", gear.Level, character.Level, *r.MaxLevelDelta))
	}
	return outcome{}
}

type unequipGearTx struct {
	PlayerID    string `json:"playerId"`
	GearID      string `json:"gearId"`
	CharacterID string `json:"characterId,omitempty"`
}

func (e *Engine) unequipGear(gs *state.GameState, principal *auth.Principal, rawBody []byte) outcome {
	var tx unequipGearTx
	if err := json.Unmarshal(rawBody, &tx); err != nil {
		return invalid("malformed UnequipGear body")
	}
	if tx.GearID == "" {
		return invalid("gearId is required")
	}
	player, o := e.requireOwnedPlayer(gs, principal, tx.PlayerID)
	if o.status != 0 {
		return o
	}

	gear, ok := player.Gear[tx.GearID]
	if !ok {
		return reject(CodeGearNotFound, fmt.Sprintf("gear %q not found", tx.GearID))
	}
	if gear.EquippedBy == nil {
		return reject(CodeGearNotEquipped, fmt.Sprintf("gear %q is not equipped", tx.GearID))
	}
	if tx.CharacterID != "" && tx.CharacterID != *gear.EquippedBy {
		return reject(CodeCharacterMismatch, fmt.Sprintf("gear %q is equipped by character %q, not %q", tx.GearID, *gear.EquippedBy, tx.CharacterID))
	}

	if character, ok := player.Characters[*gear.EquippedBy]; ok {
		for slot, gid := range character.Equipped {
			if gid == tx.GearID {
				delete(character.Equipped, slot)
			}
		}
	}
	gear.EquippedBy = nil
	return accept()
}
