// Package events is the in-process pub/sub channel for transaction
// commits. The snapshot flusher and tests subscribe; nothing leaves the
// process.
package events

import (
	"log"
	"sync"
	"time"
)

// TxCommitted is published after a transaction is accepted and the state
// version has been bumped.
type TxCommitted struct {
	GameInstanceID string    `json:"gameInstanceId"`
	TxID           string    `json:"txId"`
	Type           string    `json:"type"`
	StateVersion   uint64    `json:"stateVersion"`
	Time           time.Time `json:"time"`
}

// Bus fans TxCommitted events out to subscriber channels. Publishing never
// blocks: a subscriber that falls behind loses events rather than stalling
// the transaction path.
type Bus struct {
	mu         sync.RWMutex
	subs       []chan TxCommitted
	bufferSize int
	logger     *log.Logger
}

// NewBus creates a bus with a per-subscriber buffer of 100 events.
func NewBus() *Bus {
	return &Bus{
		bufferSize: 100,
		logger:     log.New(log.Writer(), "[EVENTS] ", log.LstdFlags),
	}
}

// Subscribe returns a channel receiving all future commit events.
func (b *Bus) Subscribe() <-chan TxCommitted {
	ch := make(chan TxCommitted, b.bufferSize)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers an event to every subscriber. Nil-safe so callers can
// run without a bus wired.
func (b *Bus) Publish(evt TxCommitted) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.logger.Printf("subscriber full, dropping event %s/%s", evt.GameInstanceID, evt.TxID)
		}
	}
}
