package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gameng/engine/internal/algorithm"
	"github.com/gameng/engine/internal/auth"
	"github.com/gameng/engine/internal/state"
)

type levelUpCharacterTx struct {
	PlayerID    string `json:"playerId"`
	CharacterID string `json:"characterId"`
	Levels      *int   `json:"levels,omitempty"`
}

func (e *Engine) levelUpCharacter(gs *state.GameState, principal *auth.Principal, rawBody []byte) outcome {
	var tx levelUpCharacterTx
	if err := json.Unmarshal(rawBody, &tx); err != nil {
		return invalid("malformed LevelUpCharacter body")
	}
	if tx.CharacterID == "" {
		return invalid("characterId is required")
	}
	levels, o := levelCount(tx.Levels)
	if o.status != 0 {
		return o
	}
	player, o := e.requireOwnedPlayer(gs, principal, tx.PlayerID)
	if o.status != 0 {
		return o
	}

	character, ok := player.Characters[tx.CharacterID]
	if !ok {
		return reject(CodeCharacterNotFound, fmt.Sprintf("character %q not found", tx.CharacterID))
	}
	// Subtraction, not addition: the sum could wrap for huge level counts.
	if levels > e.cfg.MaxLevel-character.Level {
		return reject(CodeMaxLevelReached, fmt.Sprintf("level %d + %d exceeds maxLevel %d", character.Level, levels, e.cfg.MaxLevel))
	}

	ref := e.cfg.Algorithms.LevelCostCharacter
	total, err := e.registry.TotalCost(ref.AlgorithmID, character.Level, levels, ref.Params)
	if err != nil {
		return infra(CodeInvalidConfigReference, err.Error())
	}
	playerCosts, characterCosts, err := algorithm.SplitScopedCosts(total)
	if err != nil {
		var keyErr *algorithm.ErrInvalidCostKey
		if errors.As(err, &keyErr) {
			return reject(CodeInvalidCostResourceKey, err.Error())
		}
		return infra(CodeInvalidConfigReference, err.Error())
	}

	if o := checkFunds(player.Resources, playerCosts, "player"); o.status != 0 {
		return o
	}
	if o := checkFunds(character.Resources, characterCosts, "character"); o.status != 0 {
		return o
	}

	deduct(player.Resources, playerCosts)
	deduct(character.Resources, characterCosts)
	character.Level += levels
	return accept()
}

type levelUpGearTx struct {
	PlayerID    string `json:"playerId"`
	GearID      string `json:"gearId"`
	Levels      *int   `json:"levels,omitempty"`
	CharacterID string `json:"characterId,omitempty"`
}

func (e *Engine) levelUpGear(gs *state.GameState, principal *auth.Principal, rawBody []byte) outcome {
	var tx levelUpGearTx
	if err := json.Unmarshal(rawBody, &tx); err != nil {
		return invalid("malformed LevelUpGear body")
	}
	if tx.GearID == "" {
		return invalid("gearId is required")
	}
	levels, o := levelCount(tx.Levels)
	if o.status != 0 {
		return o
	}
	player, o := e.requireOwnedPlayer(gs, principal, tx.PlayerID)
	if o.status != 0 {
		return o
	}

	gear, ok := player.Gear[tx.GearID]
	if !ok {
		return reject(CodeGearNotFound, fmt.Sprintf("gear %q not found", tx.GearID))
	}
	if levels > e.cfg.MaxLevel-gear.Level {
		return reject(CodeMaxLevelReached, fmt.Sprintf("level %d + %d exceeds maxLevel %d", gear.Level, levels, e.cfg.MaxLevel))
	}

	ref := e.cfg.Algorithms.LevelCostGear
	total, err := e.registry.TotalCost(ref.AlgorithmID, gear.Level, levels, ref.Params)
	if err != nil {
		return infra(CodeInvalidConfigReference, err.Error())
	}
	playerCosts, characterCosts, err := algorithm.SplitScopedCosts(total)
	if err != nil {
		var keyErr *algorithm.ErrInvalidCostKey
		if errors.As(err, &keyErr) {
			return reject(CodeInvalidCostResourceKey, err.Error())
		}
		return infra(CodeInvalidConfigReference, err.Error())
	}

	// Character-scoped costs need a character wallet to charge. The gear
	// need not be equipped on that character.
	var character *state.Character
	if len(characterCosts) > 0 {
		if tx.CharacterID == "" {
			return reject(CodeCharacterRequired, "level cost includes character-scoped resources; characterId is required")
		}
		character, ok = player.Characters[tx.CharacterID]
		if !ok {
			return reject(CodeCharacterNotFound, fmt.Sprintf("character %q not found", tx.CharacterID))
		}
	}

	if o := checkFunds(player.Resources, playerCosts, "player"); o.status != 0 {
		return o
	}
	if character != nil {
		if o := checkFunds(character.Resources, characterCosts, "character"); o.status != 0 {
			return o
		}
	}

	deduct(player.Resources, playerCosts)
	if character != nil {
		deduct(character.Resources, characterCosts)
	}
	gear.Level += levels
	return accept()
}

// levelCount normalizes the optional levels field; omitted means 1.
func levelCount(levels *int) (int, outcome) {
	if levels == nil {
		return 1, outcome{}
	}
	if *levels < 1 {
		return 0, invalid("levels must be a positive integer")
	}
	return *levels, outcome{}
}

func checkFunds(wallet map[string]int64, costs map[string]int64, scope string) outcome {
	for resource, amount := range costs {
		if wallet[resource] < amount {
			return reject(CodeInsufficientResources,
				fmt.Sprintf("%s wallet has %d %s, need %d", scope, wallet[resource], resource, amount))
		}
	}
	return outcome{}
}

func deduct(wallet map[string]int64, costs map[string]int64) {
	for resource, amount := range costs {
		wallet[resource] -= amount
	}
}
