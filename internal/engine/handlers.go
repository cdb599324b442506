package engine

import (
	"encoding/json"
	"fmt"

	"github.com/gameng/engine/internal/auth"
	"github.com/gameng/engine/internal/state"
)

type createActorTx struct {
	ActorID string `json:"actorId"`
	APIKey  string `json:"apiKey"`
}

func (e *Engine) createActor(gs *state.GameState, rawBody []byte) outcome {
	var tx createActorTx
	if err := json.Unmarshal(rawBody, &tx); err != nil {
		return invalid("malformed CreateActor body")
	}
	if tx.ActorID == "" {
		return invalid("actorId is required")
	}
	if tx.APIKey == "" {
		return invalid("apiKey is required")
	}
	if _, ok := gs.Actors[tx.ActorID]; ok {
		return reject(CodeAlreadyExists, fmt.Sprintf("actor %q already exists", tx.ActorID))
	}
	for actorID, actor := range gs.Actors {
		if actor.APIKey == tx.APIKey {
			return reject(CodeDuplicateAPIKey, fmt.Sprintf("apiKey already assigned to actor %q", actorID))
		}
	}
	gs.Actors[tx.ActorID] = &state.Actor{APIKey: tx.APIKey, PlayerIDs: []string{}}
	return accept()
}

type createPlayerTx struct {
	PlayerID string `json:"playerId"`
}

func (e *Engine) createPlayer(gs *state.GameState, principal *auth.Principal, rawBody []byte) outcome {
	var tx createPlayerTx
	if err := json.Unmarshal(rawBody, &tx); err != nil {
		return invalid("malformed CreatePlayer body")
	}
	if tx.PlayerID == "" {
		return invalid("playerId is required")
	}
	if principal.Actor == nil {
		return denied(401, CodeUnauthorized, "CreatePlayer requires an actor principal")
	}
	if _, ok := gs.Players[tx.PlayerID]; ok {
		return reject(CodeAlreadyExists, fmt.Sprintf("player %q already exists", tx.PlayerID))
	}
	gs.Players[tx.PlayerID] = state.NewPlayer()
	// The creating actor owns the player from the start.
	principal.Actor.PlayerIDs = append(principal.Actor.PlayerIDs, tx.PlayerID)
	return accept()
}

type createCharacterTx struct {
	PlayerID    string `json:"playerId"`
	CharacterID string `json:"characterId"`
	ClassID     string `json:"classId"`
}

func (e *Engine) createCharacter(gs *state.GameState, principal *auth.Principal, rawBody []byte) outcome {
	var tx createCharacterTx
	if err := json.Unmarshal(rawBody, &tx); err != nil {
		return invalid("malformed CreateCharacter body")
	}
	if tx.CharacterID == "" {
		return invalid("characterId is required")
	}
	if tx.ClassID == "" {
		return invalid("classId is required")
	}
	player, o := e.requireOwnedPlayer(gs, principal, tx.PlayerID)
	if o.status != 0 {
		return o
	}
	if existing, _ := gs.FindCharacter(tx.CharacterID); existing != nil {
		return reject(CodeAlreadyExists, fmt.Sprintf("character %q already exists", tx.CharacterID))
	}
	if _, ok := e.cfg.Classes[tx.ClassID]; !ok {
		return reject(CodeInvalidConfigReference, fmt.Sprintf("class %q not defined by config %q", tx.ClassID, e.cfg.GameConfigID))
	}
	player.Characters[tx.CharacterID] = &state.Character{
		ClassID:   tx.ClassID,
		Level:     1,
		Equipped:  make(map[string]string),
		Resources: make(map[string]int64),
	}
	return accept()
}

type createGearTx struct {
	PlayerID  string `json:"playerId"`
	GearID    string `json:"gearId"`
	GearDefID string `json:"gearDefId"`
}

func (e *Engine) createGear(gs *state.GameState, principal *auth.Principal, rawBody []byte) outcome {
	var tx createGearTx
	if err := json.Unmarshal(rawBody, &tx); err != nil {
		return invalid("malformed CreateGear body")
	}
	if tx.GearID == "" {
		return invalid("gearId is required")
	}
	if tx.GearDefID == "" {
		return invalid("gearDefId is required")
	}
	player, o := e.requireOwnedPlayer(gs, principal, tx.PlayerID)
	if o.status != 0 {
		return o
	}
	if existing, _ := gs.FindGear(tx.GearID); existing != nil {
		return reject(CodeAlreadyExists, fmt.Sprintf("gear %q already exists", tx.GearID))
	}
	if _, ok := e.cfg.GearDefs[tx.GearDefID]; !ok {
		return reject(CodeInvalidConfigReference, fmt.Sprintf("gearDef %q not defined by config %q", tx.GearDefID, e.cfg.GameConfigID))
	}
	player.Gear[tx.GearID] = &state.GearInstance{
		GearDefID: tx.GearDefID,
		Level:     1,
	}
	return accept()
}

type grantResourcesTx struct {
	PlayerID  string           `json:"playerId"`
	Resources map[string]int64 `json:"resources"`
}

func (e *Engine) grantResources(gs *state.GameState, rawBody []byte) outcome {
	var tx grantResourcesTx
	if err := json.Unmarshal(rawBody, &tx); err != nil {
		return invalid("malformed GrantResources body")
	}
	if tx.PlayerID == "" {
		return invalid("playerId is required")
	}
	if tx.Resources == nil {
		return invalid("resources is required")
	}
	player, ok := gs.Players[tx.PlayerID]
	if !ok {
		return reject(CodePlayerNotFound, fmt.Sprintf("player %q not found", tx.PlayerID))
	}
	// Negative grants are allowed and may drive a balance below zero.
	for resource, amount := range tx.Resources {
		player.Resources[resource] += amount
	}
	return accept()
}

type grantCharacterResourcesTx struct {
	PlayerID    string           `json:"playerId"`
	CharacterID string           `json:"characterId"`
	Resources   map[string]int64 `json:"resources"`
}

func (e *Engine) grantCharacterResources(gs *state.GameState, rawBody []byte) outcome {
	var tx grantCharacterResourcesTx
	if err := json.Unmarshal(rawBody, &tx); err != nil {
		return invalid("malformed GrantCharacterResources body")
	}
	if tx.PlayerID == "" {
		return invalid("playerId is required")
	}
	if tx.CharacterID == "" {
		return invalid("characterId is required")
	}
	if tx.Resources == nil {
		return invalid("resources is required")
	}
	player, ok := gs.Players[tx.PlayerID]
	if !ok {
		return reject(CodePlayerNotFound, fmt.Sprintf("player %q not found", tx.PlayerID))
	}
	character, ok := player.Characters[tx.CharacterID]
	if !ok {
		return reject(CodeCharacterNotFound, fmt.Sprintf("character %q not found", tx.CharacterID))
	}
	for resource, amount := range tx.Resources {
		character.Resources[resource] += amount
	}
	return accept()
}
