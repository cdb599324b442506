package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameng/engine/internal/algorithm"
	"github.com/gameng/engine/internal/config"
	"github.com/gameng/engine/internal/engine"
	"github.com/gameng/engine/internal/state"
)

const (
	testInstance = "inst-1"
	adminToken   = "admin-key"
	actorToken   = "actor-key"
)

func testConfig() *config.GameConfig {
	return &config.GameConfig{
		GameConfigID: "cfg-http",
		MaxLevel:     10,
		Stats:        []string{"strength", "hp"},
		Slots:        []string{"main_hand"},
		Classes: map[string]config.ClassDef{
			"warrior": {BaseStats: map[string]int64{"strength": 5, "hp": 20}},
		},
		GearDefs: map[string]config.GearDef{
			"sword_basic": {
				BaseStats:     map[string]int64{"strength": 3},
				EquipPatterns: [][]string{{"main_hand"}},
			},
		},
		Algorithms: config.Algorithms{
			Growth:             config.AlgorithmRef{AlgorithmID: "flat"},
			LevelCostCharacter: config.AlgorithmRef{AlgorithmID: "flat"},
			LevelCostGear:      config.AlgorithmRef{AlgorithmID: "flat"},
		},
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	store := state.NewStore(0)
	gs := state.NewGameState(testInstance, "cfg-http")
	gs.Actors["actor_1"] = &state.Actor{APIKey: actorToken, PlayerIDs: []string{"p1"}}
	gs.Players["p1"] = state.NewPlayer()
	gs.Players["p1"].Characters["c1"] = &state.Character{
		ClassID: "warrior", Level: 1,
		Equipped: map[string]string{}, Resources: map[string]int64{},
	}
	store.Put(gs)

	eng := engine.New(store, testConfig(), algorithm.NewRegistry(), adminToken)
	api := NewServer(eng, nil)
	ts := httptest.NewServer(api.Router(false))
	t.Cleanup(ts.Close)
	return api, ts
}

func get(t *testing.T, ts *httptest.Server, path, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest("GET", ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/health", "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestConfigEcho(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts, "/"+testInstance+"/config", "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "cfg-http", body["gameConfigId"])

	resp, body = get(t, ts, "/no-such/config", "")
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "INSTANCE_NOT_FOUND", body["errorCode"])
}

func TestAlgorithmCatalog(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/"+testInstance+"/algorithms", "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotEmpty(t, body["growth"])
	assert.NotEmpty(t, body["levelCost"])
}

func TestStateVersionRoute(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/"+testInstance+"/stateVersion", "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, testInstance, body["gameInstanceId"])
	assert.Equal(t, float64(0), body["stateVersion"])
}

func TestPlayerRouteAuthFlow(t *testing.T) {
	_, ts := newTestServer(t)
	path := "/" + testInstance + "/state/player/p1"

	resp, body := get(t, ts, path, "")
	assert.Equal(t, 401, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body["errorCode"])

	resp, body = get(t, ts, path, actorToken)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "p1", body["playerId"])

	resp, body = get(t, ts, "/no-such/state/player/p1", actorToken)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "INSTANCE_NOT_FOUND", body["errorCode"])
}

func TestStatsRoute(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts, "/"+testInstance+"/character/c1/stats", actorToken)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "c1", body["characterId"])
	stats := body["finalStats"].(map[string]interface{})
	assert.Equal(t, float64(5), stats["strength"])
	assert.Equal(t, float64(20), stats["hp"])
}

func TestTxRoute(t *testing.T) {
	_, ts := newTestServer(t)

	envelope := fmt.Sprintf(`{"gameInstanceId":%q,"txId":"t1","type":"CreatePlayer","playerId":"p2"}`, testInstance)
	req, err := http.NewRequest("POST", ts.URL+"/"+testInstance+"/tx", strings.NewReader(envelope))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+actorToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var res engine.TxResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.Accepted)
	assert.Equal(t, "t1", res.TxID)
}

func TestShutdownRouteOnlyWhenEnabled(t *testing.T) {
	api, _ := newTestServer(t)

	called := make(chan struct{}, 1)
	api.Shutdown = func() { called <- struct{}{} }

	// Disabled router: the route does not exist.
	tsOff := httptest.NewServer(api.Router(false))
	defer tsOff.Close()
	resp, err := http.Post(tsOff.URL+"/__shutdown", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	// /__shutdown falls through to the {inst}/... routes and misses them
	// all, so anything but 200 is acceptable; it must not trigger Shutdown.
	assert.NotEqual(t, 200, resp.StatusCode)

	tsOn := httptest.NewServer(api.Router(true))
	defer tsOn.Close()
	resp, err = http.Post(tsOn.URL+"/__shutdown", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	<-called
}

func TestCORSHeaders(t *testing.T) {
	_, ts := newTestServer(t)
	resp, _ := get(t, ts, "/health", "")
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}
