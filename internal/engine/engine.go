// Package engine is the transactional core: it validates transaction
// envelopes, enforces idempotency, authorizes principals, routes to typed
// handlers and maintains the per-instance state version.
package engine

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gameng/engine/internal/algorithm"
	"github.com/gameng/engine/internal/auth"
	"github.com/gameng/engine/internal/config"
	"github.com/gameng/engine/internal/events"
	"github.com/gameng/engine/internal/metrics"
	"github.com/gameng/engine/internal/state"
)

// Engine owns transaction dispatch for every live instance. The config and
// registry are immutable after construction; all mutable state lives in the
// store's instances, each guarded by its own lock.
type Engine struct {
	store    *state.Store
	cfg      *config.GameConfig
	registry *algorithm.Registry
	adminKey string
	bus      *events.Bus
	metrics  *metrics.Metrics
	logger   *log.Logger
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithBus wires the commit event bus.
func WithBus(bus *events.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithMetrics wires Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine. adminKey may be empty, in which case admin-only
// transactions always fail UNAUTHORIZED.
func New(store *state.Store, cfg *config.GameConfig, registry *algorithm.Registry, adminKey string, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		cfg:      cfg,
		registry: registry,
		adminKey: adminKey,
		logger:   log.New(log.Writer(), "[ENGINE] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the active game config.
func (e *Engine) Config() *config.GameConfig { return e.cfg }

// Registry returns the algorithm registry.
func (e *Engine) Registry() *algorithm.Registry { return e.registry }

// Store returns the instance store.
func (e *Engine) Store() *state.Store { return e.store }

// Dispatch processes one transaction request against the instance named in
// the URL path. It returns the HTTP status and the exact response body;
// replayed txIds return the recorded bytes verbatim.
func (e *Engine) Dispatch(instanceID string, authHeader string, rawBody []byte) (int, []byte) {
	started := time.Now()

	in := e.store.Get(instanceID)
	if in == nil {
		return 404, renderResult("", nil, denied(404, CodeInstanceNotFound,
			fmt.Sprintf("game instance %q not found", instanceID)))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rawBody, &fields); err != nil {
		return 400, renderResult("", nil, invalid("request body must be a JSON object"))
	}
	txID, hasTxID := stringField(fields, "txId")
	txType, hasType := stringField(fields, "type")
	bodyInstance, _ := stringField(fields, "gameInstanceId")

	if bodyInstance != instanceID {
		return 400, renderResult(txID, nil, denied(400, CodeInstanceMismatch,
			fmt.Sprintf("body gameInstanceId %q does not match path instance %q", bodyInstance, instanceID)))
	}
	if !hasTxID || txID == "" {
		return 400, renderResult(txID, nil, invalid("txId is required and must be a string"))
	}
	if !hasType || txType == "" {
		return 400, renderResult(txID, nil, invalid("type is required and must be a string"))
	}

	var status int
	var body []byte
	var committed *events.TxCommitted
	outcomeLabel := "replayed"

	in.WithLock(func(gs *state.GameState, idem *state.IdempotencyStore) {
		if cached := idem.Get(txID); cached != nil {
			status, body = cached.StatusCode, cached.Body
			return
		}

		principal := auth.ResolveHeader(authHeader, gs, e.adminKey)
		version := gs.StateVersion
		o := e.process(gs, principal, txType, rawBody)

		if o.accepted {
			gs.StateVersion++
			gs.GameConfigID = e.cfg.GameConfigID
			version = gs.StateVersion
			committed = &events.TxCommitted{
				GameInstanceID: instanceID,
				TxID:           txID,
				Type:           txType,
				StateVersion:   version,
				Time:           time.Now().UTC(),
			}
		}

		status = o.status
		body = renderResult(txID, &version, o)

		// Envelope-level 400s are retriable and never cached; everything
		// else is, so retries observe the original result.
		if status != 400 {
			idem.Record(txID, status, body)
		}

		switch {
		case o.accepted:
			outcomeLabel = "accepted"
		case status == 200:
			outcomeLabel = "rejected"
		case status == 500:
			outcomeLabel = "error"
		default:
			outcomeLabel = "denied"
		}
	})

	if committed != nil {
		e.bus.Publish(*committed)
	}
	e.metrics.ObserveTransaction(txType, outcomeLabel, time.Since(started).Seconds())
	return status, body
}

// process authorizes and routes a transaction. Runs under the instance
// lock.
func (e *Engine) process(gs *state.GameState, principal *auth.Principal, txType string, rawBody []byte) outcome {
	if e.cfg == nil {
		return infra(CodeConfigNotFound, "no active game config")
	}
	if principal == nil {
		return denied(401, CodeUnauthorized, "missing or unknown bearer token")
	}
	if adminOnly[txType] && !principal.Admin {
		return denied(401, CodeUnauthorized, fmt.Sprintf("%s requires the admin principal", txType))
	}

	switch txType {
	case TxCreateActor:
		return e.createActor(gs, rawBody)
	case TxCreatePlayer:
		return e.createPlayer(gs, principal, rawBody)
	case TxCreateCharacter:
		return e.createCharacter(gs, principal, rawBody)
	case TxCreateGear:
		return e.createGear(gs, principal, rawBody)
	case TxEquipGear:
		return e.equipGear(gs, principal, rawBody)
	case TxUnequipGear:
		return e.unequipGear(gs, principal, rawBody)
	case TxLevelUpCharacter:
		return e.levelUpCharacter(gs, principal, rawBody)
	case TxLevelUpGear:
		return e.levelUpGear(gs, principal, rawBody)
	case TxGrantResources:
		return e.grantResources(gs, rawBody)
	case TxGrantCharacterResources:
		return e.grantCharacterResources(gs, rawBody)
	default:
		return reject(CodeUnsupportedTxType, fmt.Sprintf("unsupported transaction type %q", txType))
	}
}

// stringField reads a top-level string field from a decoded JSON object.
// Present-but-wrong-typed reads as absent.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// requireOwnedPlayer resolves a transaction's target player. Existence is
// checked first (a business rejection), then ownership (an authorization
// failure). Admin principals never own players.
func (e *Engine) requireOwnedPlayer(gs *state.GameState, principal *auth.Principal, playerID string) (*state.Player, outcome) {
	if playerID == "" {
		return nil, invalid("playerId is required")
	}
	player, ok := gs.Players[playerID]
	if !ok {
		return nil, reject(CodePlayerNotFound, fmt.Sprintf("player %q not found", playerID))
	}
	if !principal.OwnsPlayer(playerID) {
		return nil, denied(403, CodeOwnershipViolation, fmt.Sprintf("actor does not own player %q", playerID))
	}
	return player, outcome{}
}
