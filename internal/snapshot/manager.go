// Package snapshot persists game states as one JSON file per instance and
// restores them at startup. Writes are atomic (tmp file + rename) and
// validated before touching disk, so a crash can never leave a corrupt or
// partial snapshot where a good one stood.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gameng/engine/internal/metrics"
	"github.com/gameng/engine/internal/state"
)

// Manager reads and writes instance snapshots under a single directory.
type Manager struct {
	dir     string
	logger  *log.Logger
	metrics *metrics.Metrics
}

// NewManager creates a manager rooted at dir, creating it if needed.
func NewManager(dir string, m *metrics.Metrics) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}
	return &Manager{
		dir:     dir,
		logger:  log.New(log.Writer(), "[SNAPSHOT] ", log.LstdFlags),
		metrics: m,
	}, nil
}

// Dir returns the snapshot directory.
func (m *Manager) Dir() string { return m.dir }

// SaveOne writes a single instance snapshot. The caller passes a deep copy
// taken under the instance lock; SaveOne performs all file I/O outside any
// lock. A snapshot that fails validation is logged and skipped - the
// previous file on disk stays intact.
func (m *Manager) SaveOne(gs *state.GameState) error {
	started := time.Now()
	err := m.saveOne(gs)
	m.metrics.ObserveSnapshot(time.Since(started).Seconds(), err != nil)
	if err != nil {
		m.logger.Printf("snapshot of %s failed: %v", gs.GameInstanceID, err)
	}
	return err
}

func (m *Manager) saveOne(gs *state.GameState) error {
	raw, err := json.MarshalIndent(gs, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize %s: %w", gs.GameInstanceID, err)
	}
	if err := ValidateRaw(raw); err != nil {
		return fmt.Errorf("validate %s: %w", gs.GameInstanceID, err)
	}

	target := filepath.Join(m.dir, gs.GameInstanceID+".json")
	tmp := target + ".tmp." + uuid.NewString()
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", target, err)
	}
	return nil
}

// LoadAll scans the snapshot directory and returns every valid GameState.
// Non-.json names are ignored; files that fail to parse or validate are
// logged and skipped so one bad snapshot never blocks startup.
func (m *Manager) LoadAll() ([]*state.GameState, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("scan snapshot dir %s: %w", m.dir, err)
	}

	var states []*state.GameState
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			m.logger.Printf("skipping %s: %v", path, err)
			continue
		}
		if err := ValidateRaw(raw); err != nil {
			m.logger.Printf("skipping invalid snapshot %s: %v", path, err)
			continue
		}
		var gs state.GameState
		if err := json.Unmarshal(raw, &gs); err != nil {
			m.logger.Printf("skipping unparsable snapshot %s: %v", path, err)
			continue
		}
		states = append(states, &gs)
		m.logger.Printf("loaded snapshot %s (stateVersion=%d)", gs.GameInstanceID, gs.StateVersion)
	}
	return states, nil
}

// FlushAll snapshots every live instance once. Each state copy is taken
// under its instance lock; writes happen outside it.
func (m *Manager) FlushAll(store *state.Store) {
	for _, id := range store.IDs() {
		in := store.Get(id)
		if in == nil {
			continue
		}
		m.SaveOne(in.Snapshot())
	}
}

// Run flushes all instances on every tick until ctx is cancelled, then
// takes one final flush so shutdown never loses committed state.
func (m *Manager) Run(ctx context.Context, store *state.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.FlushAll(store)
			return
		case <-ticker.C:
			m.FlushAll(store)
		}
	}
}
