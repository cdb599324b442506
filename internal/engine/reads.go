package engine

import (
	"encoding/json"
	"fmt"

	"github.com/gameng/engine/internal/auth"
	"github.com/gameng/engine/internal/state"
)

// PlayerProjection is the read model for GET /state/player/:id.
type PlayerProjection struct {
	GameInstanceID string                          `json:"gameInstanceId"`
	PlayerID       string                          `json:"playerId"`
	StateVersion   uint64                          `json:"stateVersion"`
	Characters     map[string]*state.Character     `json:"characters"`
	Gear           map[string]*state.GearInstance  `json:"gear"`
	Resources      map[string]int64                `json:"resources"`
}

// Player returns a player's stored state. Ownership is checked before
// player existence so unauthorized callers cannot probe for player ids.
func (e *Engine) Player(instanceID, playerID, authHeader string) (int, []byte) {
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
		if !principal.Admin && !principal.OwnsPlayer(playerID) {
			status, body = 403, errorBody(CodeOwnershipViolation, fmt.Sprintf("actor does not own player %q", playerID))
			return
		}
		player, ok := gs.Players[playerID]
		if !ok {
			status, body = 404, errorBody(CodePlayerNotFound, fmt.Sprintf("player %q not found", playerID))
			return
		}

		res := PlayerProjection{
			GameInstanceID: instanceID,
			PlayerID:       playerID,
			StateVersion:   gs.StateVersion,
			Characters:     player.Characters,
			Gear:           player.Gear,
			Resources:      player.Resources,
		}
		out, _ := json.Marshal(res)
		status, body = 200, out
	})
	return status, body
}

// StateVersion returns the instance's current version counter.
func (e *Engine) StateVersion(instanceID string) (int, []byte) {
	in := e.store.Get(instanceID)
	if in == nil {
		return 404, errorBody(CodeInstanceNotFound, fmt.Sprintf("game instance %q not found", instanceID))
	}
	var version uint64
	in.WithLock(func(gs *state.GameState, _ *state.IdempotencyStore) {
		version = gs.StateVersion
	})
	body, _ := json.Marshal(map[string]interface{}{
		"gameInstanceId": instanceID,
		"stateVersion":   version,
	})
	return 200, body
}
