// Package tests exercises the engine end to end over real HTTP: the full
// account/player/character/gear lifecycle, idempotent replay, derived
// stats, snapshot persistence and restore-time migration.
package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gameng/engine/internal/algorithm"
	"github.com/gameng/engine/internal/config"
	"github.com/gameng/engine/internal/engine"
	"github.com/gameng/engine/internal/httpapi"
	"github.com/gameng/engine/internal/migrate"
	"github.com/gameng/engine/internal/snapshot"
	"github.com/gameng/engine/internal/state"
)

const (
	e2eInstance = "world-1"
	e2eAdminKey = "e2e-admin-key"
)

func e2eConfig() *config.GameConfig {
	return &config.GameConfig{
		GameConfigID: "cfg-e2e",
		MaxLevel:     10,
		Stats:        []string{"strength", "hp"},
		Slots:        []string{"main_hand", "off_hand"},
		Classes: map[string]config.ClassDef{
			"warrior": {BaseStats: map[string]int64{"strength": 5, "hp": 20}},
		},
		GearDefs: map[string]config.GearDef{
			"sword_basic": {
				BaseStats:     map[string]int64{"strength": 3},
				EquipPatterns: [][]string{{"main_hand"}, {"off_hand"}},
			},
		},
		Algorithms: config.Algorithms{
			Growth: config.AlgorithmRef{
				AlgorithmID: "linear",
				Params: map[string]interface{}{
					"perLevelMultiplier": 0.1,
					"additivePerLevel":   map[string]interface{}{"hp": 1.0},
				},
			},
			LevelCostCharacter: config.AlgorithmRef{
				AlgorithmID: "mixed_linear_cost",
				Params: map[string]interface{}{
					"costs": []interface{}{
						map[string]interface{}{"scope": "character", "resourceId": "xp", "base": 100.0, "perLevel": 50.0},
						map[string]interface{}{"scope": "player", "resourceId": "gold", "base": 10.0, "perLevel": 5.0},
					},
				},
			},
			LevelCostGear: config.AlgorithmRef{
				AlgorithmID: "linear_cost",
				Params: map[string]interface{}{
					"resourceId": "player.gold", "base": 10.0, "perLevel": 5.0,
				},
			},
		},
	}
}

type harness struct {
	store  *state.Store
	server *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := state.NewStore(0)
	store.Put(state.NewGameState(e2eInstance, "cfg-e2e"))
	eng := engine.New(store, e2eConfig(), algorithm.NewRegistry(), e2eAdminKey)
	api := httpapi.NewServer(eng, nil)
	ts := httptest.NewServer(api.Router(false))
	t.Cleanup(ts.Close)
	return &harness{store: store, server: ts}
}

// postTx sends a transaction and decodes the result envelope.
func (h *harness) postTx(t *testing.T, token, txID, txType, extra string) (int, engine.TxResult) {
	t.Helper()
	body := fmt.Sprintf(`{"gameInstanceId":%q,"txId":%q,"type":%q`, e2eInstance, txID, txType)
	if extra != "" {
		body += "," + extra
	}
	body += "}"

	req, err := http.NewRequest("POST", h.server.URL+"/"+e2eInstance+"/tx", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post tx: %v", err)
	}
	defer resp.Body.Close()

	var res engine.TxResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode tx result: %v", err)
	}
	return resp.StatusCode, res
}

func (h *harness) mustAccept(t *testing.T, token, txID, txType, extra string) engine.TxResult {
	t.Helper()
	status, res := h.postTx(t, token, txID, txType, extra)
	if status != 200 || !res.Accepted {
		t.Fatalf("%s %s: status=%d accepted=%v code=%s msg=%s",
			txType, txID, status, res.Accepted, res.ErrorCode, res.ErrorMessage)
	}
	return res
}

func (h *harness) get(t *testing.T, path, token string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest("GET", h.server.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode, body
}

// =============================================================================
// 1. FULL LIFECYCLE — account, player, character, gear, equip, level, stats
// =============================================================================

func TestE2E_FullLifecycle(t *testing.T) {
	h := newHarness(t)

	h.mustAccept(t, e2eAdminKey, "tx-actor", "CreateActor", `"actorId":"actor_1","apiKey":"player-key"`)
	h.mustAccept(t, "player-key", "tx-player", "CreatePlayer", `"playerId":"p1"`)
	h.mustAccept(t, "player-key", "tx-char", "CreateCharacter", `"playerId":"p1","characterId":"hero","classId":"warrior"`)
	h.mustAccept(t, "player-key", "tx-gear", "CreateGear", `"playerId":"p1","gearId":"sword","gearDefId":"sword_basic"`)
	h.mustAccept(t, "player-key", "tx-equip", "EquipGear", `"playerId":"p1","characterId":"hero","gearId":"sword"`)

	h.mustAccept(t, e2eAdminKey, "tx-gold", "GrantResources", `"playerId":"p1","resources":{"gold":25}`)
	h.mustAccept(t, e2eAdminKey, "tx-xp", "GrantCharacterResources", `"playerId":"p1","characterId":"hero","resources":{"xp":250}`)
	h.mustAccept(t, "player-key", "tx-level", "LevelUpCharacter", `"playerId":"p1","characterId":"hero","levels":2`)

	status, stats := h.get(t, "/"+e2eInstance+"/character/hero/stats", "player-key")
	if status != 200 {
		t.Fatalf("stats: status=%d body=%v", status, stats)
	}
	if stats["level"] != float64(3) {
		t.Errorf("expected level 3, got %v", stats["level"])
	}
	final := stats["finalStats"].(map[string]interface{})
	// Level 3 warrior: strength floor(5*1.2)=6 plus the level-1 sword's 3.
	// hp: floor(20*1.2) + 1*2 = 26.
	if final["strength"] != float64(9) {
		t.Errorf("expected strength 9, got %v", final["strength"])
	}
	if final["hp"] != float64(26) {
		t.Errorf("expected hp 26, got %v", final["hp"])
	}

	status, player := h.get(t, "/"+e2eInstance+"/state/player/p1", "player-key")
	if status != 200 {
		t.Fatalf("player read: status=%d", status)
	}
	resources := player["resources"].(map[string]interface{})
	if resources["gold"] != float64(0) {
		t.Errorf("leveling should have spent all gold, got %v", resources["gold"])
	}
	if player["stateVersion"] != float64(8) {
		t.Errorf("expected stateVersion 8 after 8 accepted transactions, got %v", player["stateVersion"])
	}
}

// =============================================================================
// 2. IDEMPOTENT REPLAY — duplicate txIds over HTTP
// =============================================================================

func TestE2E_DuplicateTxIDReplaysWithoutReexecution(t *testing.T) {
	h := newHarness(t)
	h.mustAccept(t, e2eAdminKey, "tx-actor", "CreateActor", `"actorId":"actor_1","apiKey":"player-key"`)
	h.mustAccept(t, "player-key", "tx-player", "CreatePlayer", `"playerId":"p1"`)

	first := h.mustAccept(t, e2eAdminKey, "tx-grant", "GrantResources", `"playerId":"p1","resources":{"gold":100}`)

	// Same txId again: replayed, not re-applied.
	status, replay := h.postTx(t, e2eAdminKey, "tx-grant", "GrantResources", `"playerId":"p1","resources":{"gold":100}`)
	if status != 200 || !replay.Accepted {
		t.Fatalf("replay: status=%d accepted=%v", status, replay.Accepted)
	}
	if *replay.StateVersion != *first.StateVersion {
		t.Errorf("replay must report the original stateVersion %d, got %d", *first.StateVersion, *replay.StateVersion)
	}

	_, player := h.get(t, "/"+e2eInstance+"/state/player/p1", e2eAdminKey)
	resources := player["resources"].(map[string]interface{})
	if resources["gold"] != float64(100) {
		t.Errorf("grant applied more than once: gold=%v", resources["gold"])
	}
}

// =============================================================================
// 3. AUTHORIZATION — admin-only types and ownership over HTTP
// =============================================================================

func TestE2E_AuthorizationBoundaries(t *testing.T) {
	h := newHarness(t)
	h.mustAccept(t, e2eAdminKey, "tx-a1", "CreateActor", `"actorId":"actor_1","apiKey":"key-1"`)
	h.mustAccept(t, e2eAdminKey, "tx-a2", "CreateActor", `"actorId":"actor_2","apiKey":"key-2"`)
	h.mustAccept(t, "key-1", "tx-p1", "CreatePlayer", `"playerId":"p1"`)

	// A non-admin cannot mint resources.
	status, res := h.postTx(t, "key-1", "tx-grant", "GrantResources", `"playerId":"p1","resources":{"gold":1}`)
	if status != 401 || res.ErrorCode != "UNAUTHORIZED" {
		t.Errorf("actor GrantResources: status=%d code=%s", status, res.ErrorCode)
	}

	// Another actor cannot act on p1.
	status, res = h.postTx(t, "key-2", "tx-steal", "CreateCharacter", `"playerId":"p1","characterId":"thief","classId":"warrior"`)
	if status != 403 || res.ErrorCode != "OWNERSHIP_VIOLATION" {
		t.Errorf("cross-actor create: status=%d code=%s", status, res.ErrorCode)
	}

	// Nor read p1's state.
	status, _ = h.get(t, "/"+e2eInstance+"/state/player/p1", "key-2")
	if status != 403 {
		t.Errorf("cross-actor read: status=%d", status)
	}
}

// =============================================================================
// 4. PERSISTENCE — snapshot, restore, migrate, resume
// =============================================================================

func TestE2E_SnapshotRestoreMigrateResume(t *testing.T) {
	h := newHarness(t)
	h.mustAccept(t, e2eAdminKey, "tx-actor", "CreateActor", `"actorId":"actor_1","apiKey":"player-key"`)
	h.mustAccept(t, "player-key", "tx-player", "CreatePlayer", `"playerId":"p1"`)
	h.mustAccept(t, "player-key", "tx-char", "CreateCharacter", `"playerId":"p1","characterId":"hero","classId":"warrior"`)

	mgr, err := snapshot.NewManager(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("snapshot manager: %v", err)
	}
	mgr.FlushAll(h.store)

	// Boot a second process against the snapshot directory.
	restored, err := mgr.LoadAll()
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(restored) != 1 {
		t.Fatalf("expected 1 restored state, got %d", len(restored))
	}

	cfg := e2eConfig()
	store2 := state.NewStore(0)
	for _, gs := range restored {
		if warnings := migrate.Run(gs, cfg); len(warnings) != 0 {
			t.Errorf("clean snapshot produced migration warnings: %v", warnings)
		}
		store2.Put(gs)
	}
	eng2 := engine.New(store2, cfg, algorithm.NewRegistry(), e2eAdminKey)
	api2 := httpapi.NewServer(eng2, nil)
	ts2 := httptest.NewServer(api2.Router(false))
	defer ts2.Close()

	h2 := &harness{store: store2, server: ts2}

	// Replays recorded before the restart still answer from the cache.
	status, res := h2.postTx(t, "player-key", "tx-char", "CreateCharacter", `"playerId":"p1","characterId":"hero","classId":"warrior"`)
	if status != 200 || !res.Accepted {
		t.Errorf("pre-restart txId should replay as accepted: status=%d accepted=%v code=%s", status, res.Accepted, res.ErrorCode)
	}

	// And new work continues from the restored version.
	after := h2.mustAccept(t, "player-key", "tx-gear", "CreateGear", `"playerId":"p1","gearId":"sword","gearDefId":"sword_basic"`)
	if *after.StateVersion != 4 {
		t.Errorf("expected stateVersion 4 after restore + 1 tx, got %d", *after.StateVersion)
	}
}

// =============================================================================
// 5. MIGRATION — stale snapshot repaired on restore
// =============================================================================

func TestE2E_StaleSnapshotRepairedOnRestore(t *testing.T) {
	dir := t.TempDir()
	mgr, err := snapshot.NewManager(dir, nil)
	if err != nil {
		t.Fatalf("snapshot manager: %v", err)
	}

	// A snapshot from an older config generation: unknown class, level
	// above the current cap, gear def that no longer exists.
	stale := state.NewGameState(e2eInstance, "cfg-old")
	p := state.NewPlayer()
	p.Characters["hero"] = &state.Character{ClassID: "warrior", Level: 99,
		Equipped: map[string]string{}, Resources: map[string]int64{}}
	p.Characters["ghost"] = &state.Character{ClassID: "necromancer", Level: 5,
		Equipped: map[string]string{}, Resources: map[string]int64{}}
	p.Gear["relic"] = &state.GearInstance{GearDefID: "ancient_relic", Level: 1}
	stale.Players["p1"] = p
	stale.Actors["actor_1"] = &state.Actor{APIKey: "player-key", PlayerIDs: []string{"p1"}}
	if err := mgr.SaveOne(stale); err != nil {
		t.Fatalf("save stale snapshot: %v", err)
	}

	restored, err := mgr.LoadAll()
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	cfg := e2eConfig()
	warnings := migrate.Run(restored[0], cfg)
	if len(warnings) == 0 {
		t.Fatal("expected migration warnings for a stale snapshot")
	}

	gs := restored[0]
	if gs.GameConfigID != "cfg-e2e" {
		t.Errorf("config id not adopted: %s", gs.GameConfigID)
	}
	if _, ok := gs.Players["p1"].Characters["ghost"]; ok {
		t.Error("character with unknown class survived migration")
	}
	if got := gs.Players["p1"].Characters["hero"].Level; got != 10 {
		t.Errorf("level not clamped to maxLevel: %d", got)
	}
	if _, ok := gs.Players["p1"].Gear["relic"]; ok {
		t.Error("gear with unknown def survived migration")
	}

	// The repaired state serves traffic normally.
	store := state.NewStore(0)
	store.Put(gs)
	eng := engine.New(store, cfg, algorithm.NewRegistry(), e2eAdminKey)
	api := httpapi.NewServer(eng, nil)
	ts := httptest.NewServer(api.Router(false))
	defer ts.Close()

	h := &harness{store: store, server: ts}
	status, stats := h.get(t, "/"+e2eInstance+"/character/hero/stats", "player-key")
	if status != 200 {
		t.Fatalf("stats after migration: status=%d body=%v", status, stats)
	}
}
