package state

import "encoding/json"

// GameState is the canonical state of one game instance. All fields are
// serialized into the per-instance snapshot file, including the idempotency
// log, so a restart replays cached transaction results exactly.
type GameState struct {
	GameInstanceID string              `json:"gameInstanceId"`
	GameConfigID   string              `json:"gameConfigId"`
	StateVersion   uint64              `json:"stateVersion"`
	Players        map[string]*Player  `json:"players"`
	Actors         map[string]*Actor   `json:"actors"`
	TxIDCache      []*TxCacheEntry     `json:"txIdCache,omitempty"`
}

// Actor is a credential principal. The apiKey is opaque to the engine and
// unique within the instance.
type Actor struct {
	APIKey    string   `json:"apiKey"`
	PlayerIDs []string `json:"playerIds"`
}

// Player owns characters, gear instances and a resource wallet.
type Player struct {
	Characters map[string]*Character   `json:"characters"`
	Gear       map[string]*GearInstance `json:"gear"`
	Resources  map[string]int64        `json:"resources,omitempty"`
}

// Character references gear by id only; the equipped map is the
// authoritative side of the character<->gear relation.
type Character struct {
	ClassID   string            `json:"classId"`
	Level     int               `json:"level"`
	Equipped  map[string]string `json:"equipped"` // slotId -> gearId
	Resources map[string]int64  `json:"resources,omitempty"`
}

// GearInstance is a concrete piece of gear owned by a player. EquippedBy is
// nil while the gear sits in the inventory.
type GearInstance struct {
	GearDefID  string  `json:"gearDefId"`
	Level      int     `json:"level"`
	EquippedBy *string `json:"equippedBy"`
}

// TxCacheEntry is one recorded transaction result. Body holds the exact
// bytes returned to the original caller so replays are byte-identical.
type TxCacheEntry struct {
	TxID       string          `json:"txId"`
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

// NewGameState creates an empty state for a fresh instance.
func NewGameState(instanceID, configID string) *GameState {
	return &GameState{
		GameInstanceID: instanceID,
		GameConfigID:   configID,
		StateVersion:   0,
		Players:        make(map[string]*Player),
		Actors:         make(map[string]*Actor),
	}
}

// NewPlayer creates an empty player.
func NewPlayer() *Player {
	return &Player{
		Characters: make(map[string]*Character),
		Gear:       make(map[string]*GearInstance),
		Resources:  make(map[string]int64),
	}
}

// Normalize fills nil maps after a snapshot load so handlers never have to
// nil-check collection fields.
func (gs *GameState) Normalize() {
	if gs.Players == nil {
		gs.Players = make(map[string]*Player)
	}
	if gs.Actors == nil {
		gs.Actors = make(map[string]*Actor)
	}
	for _, p := range gs.Players {
		if p.Characters == nil {
			p.Characters = make(map[string]*Character)
		}
		if p.Gear == nil {
			p.Gear = make(map[string]*GearInstance)
		}
		if p.Resources == nil {
			p.Resources = make(map[string]int64)
		}
		for _, c := range p.Characters {
			if c.Equipped == nil {
				c.Equipped = make(map[string]string)
			}
			if c.Resources == nil {
				c.Resources = make(map[string]int64)
			}
		}
	}
	for _, a := range gs.Actors {
		if a.PlayerIDs == nil {
			a.PlayerIDs = []string{}
		}
	}
}

// FindGear locates a gear instance anywhere in the instance. Used to
// enforce instance-wide gear id uniqueness; handlers otherwise scope
// lookups to a player.
func (gs *GameState) FindGear(gearID string) (*GearInstance, string) {
	for playerID, p := range gs.Players {
		if g, ok := p.Gear[gearID]; ok {
			return g, playerID
		}
	}
	return nil, ""
}

// FindCharacter locates a character anywhere in the instance and returns it
// with its owning player id.
func (gs *GameState) FindCharacter(characterID string) (*Character, string) {
	for playerID, p := range gs.Players {
		if c, ok := p.Characters[characterID]; ok {
			return c, playerID
		}
	}
	return nil, ""
}

// Clone returns a deep copy of the state. Snapshot writes serialize the
// clone outside the instance lock, so the copy must share no mutable data
// with the live state.
func (gs *GameState) Clone() *GameState {
	out := &GameState{
		GameInstanceID: gs.GameInstanceID,
		GameConfigID:   gs.GameConfigID,
		StateVersion:   gs.StateVersion,
		Players:        make(map[string]*Player, len(gs.Players)),
		Actors:         make(map[string]*Actor, len(gs.Actors)),
	}
	for id, p := range gs.Players {
		np := &Player{
			Characters: make(map[string]*Character, len(p.Characters)),
			Gear:       make(map[string]*GearInstance, len(p.Gear)),
			Resources:  cloneWallet(p.Resources),
		}
		for cid, c := range p.Characters {
			nc := &Character{
				ClassID:   c.ClassID,
				Level:     c.Level,
				Equipped:  make(map[string]string, len(c.Equipped)),
				Resources: cloneWallet(c.Resources),
			}
			for slot, gearID := range c.Equipped {
				nc.Equipped[slot] = gearID
			}
			np.Characters[cid] = nc
		}
		for gid, g := range p.Gear {
			ng := &GearInstance{GearDefID: g.GearDefID, Level: g.Level}
			if g.EquippedBy != nil {
				owner := *g.EquippedBy
				ng.EquippedBy = &owner
			}
			np.Gear[gid] = ng
		}
		out.Players[id] = np
	}
	for id, a := range gs.Actors {
		na := &Actor{APIKey: a.APIKey, PlayerIDs: append([]string(nil), a.PlayerIDs...)}
		out.Actors[id] = na
	}
	if gs.TxIDCache != nil {
		out.TxIDCache = make([]*TxCacheEntry, len(gs.TxIDCache))
		for i, e := range gs.TxIDCache {
			out.TxIDCache[i] = &TxCacheEntry{
				TxID:       e.TxID,
				StatusCode: e.StatusCode,
				Body:       append(json.RawMessage(nil), e.Body...),
			}
		}
	}
	return out
}

func cloneWallet(w map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}
