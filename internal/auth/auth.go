// Package auth resolves Bearer tokens to principals against a game
// instance. There are exactly two principal kinds: the process-wide admin
// and instance-local actors identified by their apiKey.
package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gameng/engine/internal/state"
)

const bearerPrefix = "Bearer "

// Principal is the resolved identity of a request.
type Principal struct {
	Admin   bool
	ActorID string
	Actor   *state.Actor
}

// BearerToken extracts the token from an Authorization header. The header
// must start with exactly "Bearer " (single space); anything else resolves
// to no token.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, bearerPrefix)
	if token == "" {
		return "", false
	}
	return token, true
}

// Resolve maps a token to a principal for the given instance. The admin key
// is checked first with a constant-time compare; an empty admin key never
// matches, so admin-only transactions are impossible without one
// configured. Returns nil when the token matches nothing.
func Resolve(token string, gs *state.GameState, adminKey string) *Principal {
	if adminKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(adminKey)) == 1 {
		return &Principal{Admin: true}
	}
	for actorID, actor := range gs.Actors {
		if actor.APIKey == token {
			return &Principal{ActorID: actorID, Actor: actor}
		}
	}
	return nil
}

// ResolveHeader combines BearerToken and Resolve.
func ResolveHeader(header string, gs *state.GameState, adminKey string) *Principal {
	token, ok := BearerToken(header)
	if !ok {
		return nil
	}
	return Resolve(token, gs, adminKey)
}

// OwnsPlayer reports whether the principal's actor owns playerID. Admin
// does not own players; admin-only transactions name their target
// explicitly instead.
func (p *Principal) OwnsPlayer(playerID string) bool {
	if p == nil || p.Actor == nil {
		return false
	}
	for _, id := range p.Actor.PlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}
