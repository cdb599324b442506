package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gameng/engine/internal/auth"
	"github.com/gameng/engine/internal/state"
)

// CharacterStats is the derived-stats projection for one character.
type CharacterStats struct {
	CharacterID string           `json:"characterId"`
	ClassID     string           `json:"classId"`
	Level       int              `json:"level"`
	FinalStats  map[string]int64 `json:"finalStats"`
}

// Stats resolves a character and computes its final stats under the active
// config. Returns the HTTP status and rendered JSON body.
func (e *Engine) Stats(instanceID, characterID, authHeader string) (int, []byte) {
	in := e.store.Get(instanceID)
	if in == nil {
		return 404, errorBody(CodeInstanceNotFound, fmt.Sprintf("game instance %q not found", instanceID))
	}

	var status int
	var body []byte
	in.WithLock(func(gs *state.GameState, _ *state.IdempotencyStore) {
		principal := auth.ResolveHeader(authHeader, gs, e.adminKey)
		if principal == nil {
			status, body = 401, errorBody(CodeUnauthorized, "missing or unknown bearer token")
			return
		}
		// Ownership before existence: an actor only ever sees characters
		// under its own players, so probing foreign ids cannot distinguish
		// "not yours" from "not there". Only the admin learns existence.
		var character *state.Character
		var ownerID string
		if principal.Admin {
			character, ownerID = gs.FindCharacter(characterID)
			if character == nil {
				status, body = 404, errorBody(CodeCharacterNotFound, fmt.Sprintf("character %q not found", characterID))
				return
			}
		} else {
			character, ownerID = findOwnedCharacter(gs, principal, characterID)
			if character == nil {
				status, body = 403, errorBody(CodeOwnershipViolation, fmt.Sprintf("actor has no character %q", characterID))
				return
			}
		}

		final, err := e.computeStats(gs.Players[ownerID], character)
		if err != nil {
			status, body = 500, errorBody(CodeInvalidConfigReference, err.Error())
			return
		}
		res := CharacterStats{
			CharacterID: characterID,
			ClassID:     character.ClassID,
			Level:       character.Level,
			FinalStats:  final,
		}
		out, _ := json.Marshal(res)
		status, body = 200, out
	})
	return status, body
}

// computeStats runs the projection pipeline: class base, growth, gear sum,
// set bonuses, clamps - in that order.
func (e *Engine) computeStats(player *state.Player, character *state.Character) (map[string]int64, error) {
	cfg := e.cfg
	classDef, ok := cfg.Classes[character.ClassID]
	if !ok {
		return nil, fmt.Errorf("class %q not defined by config %q", character.ClassID, cfg.GameConfigID)
	}

	classBase := make(map[string]int64, len(cfg.Stats))
	for _, stat := range cfg.Stats {
		classBase[stat] = classDef.BaseStats[stat]
	}

	growthRef := cfg.Algorithms.Growth
	classScaled, err := e.registry.ApplyGrowth(growthRef.AlgorithmID, classBase, character.Level, growthRef.Params)
	if err != nil {
		return nil, err
	}

	final := make(map[string]int64, len(cfg.Stats))
	for _, stat := range cfg.Stats {
		final[stat] = classScaled[stat]
	}

	// Multi-slot gear appears once per slot in equipped; stats and set
	// pieces count each instance exactly once.
	gearIDs := distinctGearIDs(character.Equipped)
	setPieceCounts := make(map[string]int)
	for _, gearID := range gearIDs {
		gear, ok := player.Gear[gearID]
		if !ok {
			continue
		}
		def, ok := cfg.GearDefs[gear.GearDefID]
		if !ok {
			continue
		}
		gearScaled, err := e.registry.ApplyGrowth(growthRef.AlgorithmID, def.BaseStats, gear.Level, growthRef.Params)
		if err != nil {
			return nil, err
		}
		for _, stat := range cfg.Stats {
			final[stat] += gearScaled[stat]
		}
		if def.SetID != "" {
			pieces := def.SetPieceCount
			if pieces == 0 {
				pieces = 1
			}
			setPieceCounts[def.SetID] += pieces
		}
	}

	// Set bonuses are flat, never scaled by growth. A setId with no
	// definition is silently ignored.
	for setID, count := range setPieceCounts {
		set, ok := cfg.Sets[setID]
		if !ok {
			continue
		}
		for _, bonus := range set.Bonuses {
			if bonus.Pieces <= count {
				for _, stat := range cfg.Stats {
					final[stat] += bonus.BonusStats[stat]
				}
			}
		}
	}

	for stat, clamp := range cfg.StatClamps {
		v, ok := final[stat]
		if !ok {
			continue
		}
		if clamp.Min != nil && v < *clamp.Min {
			v = *clamp.Min
		}
		if clamp.Max != nil && v > *clamp.Max {
			v = *clamp.Max
		}
		final[stat] = v
	}
	return final, nil
}

// findOwnedCharacter resolves characterID within the principal's own
// players only.
func findOwnedCharacter(gs *state.GameState, principal *auth.Principal, characterID string) (*state.Character, string) {
	if principal.Actor == nil {
		return nil, ""
	}
	for _, playerID := range principal.Actor.PlayerIDs {
		player, ok := gs.Players[playerID]
		if !ok {
			continue
		}
		if c, ok := player.Characters[characterID]; ok {
			return c, playerID
		}
	}
	return nil, ""
}

func distinctGearIDs(equipped map[string]string) []string {
	seen := make(map[string]bool, len(equipped))
	ids := make([]string, 0, len(equipped))
	for _, gearID := range equipped {
		if !seen[gearID] {
			seen[gearID] = true
			ids = append(ids, gearID)
		}
	}
	sort.Strings(ids)
	return ids
}

// errorBody renders a read-path error response.
func errorBody(code, message string) []byte {
	body, _ := json.Marshal(map[string]string{
		"errorCode":    code,
		"errorMessage": message,
	})
	return body
}
