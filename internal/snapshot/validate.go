package snapshot

import (
	"encoding/json"
	"fmt"
)

// ValidateRaw checks a serialized GameState against the snapshot schema:
// required identity fields, a numeric stateVersion and object-typed entity
// maps. It operates on the raw document so a snapshot written by a future
// version with extra fields still validates.
func ValidateRaw(raw []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("not a JSON object: %w", err)
	}

	if err := requireString(doc, "gameInstanceId"); err != nil {
		return err
	}
	// gameConfigId must be present but may name a config that no longer
	// exists; the migrator rewrites unknown ids on restore.
	rawConfigID, ok := doc["gameConfigId"]
	if !ok {
		return fmt.Errorf("missing required field %q", "gameConfigId")
	}
	var configID string
	if err := json.Unmarshal(rawConfigID, &configID); err != nil {
		return fmt.Errorf("field %q must be a string", "gameConfigId")
	}

	rawVersion, ok := doc["stateVersion"]
	if !ok {
		return fmt.Errorf("missing required field %q", "stateVersion")
	}
	var version float64
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return fmt.Errorf("field %q must be a number", "stateVersion")
	}
	if version < 0 {
		return fmt.Errorf("field %q must not be negative", "stateVersion")
	}

	if err := requireObject(doc, "players"); err != nil {
		return err
	}
	if err := requireObject(doc, "actors"); err != nil {
		return err
	}

	// txIdCache is optional: snapshots written before idempotency existed
	// omit it.
	if rawCache, ok := doc["txIdCache"]; ok {
		var cache []map[string]json.RawMessage
		if err := json.Unmarshal(rawCache, &cache); err != nil {
			return fmt.Errorf("field %q must be an array of objects", "txIdCache")
		}
		for i, entry := range cache {
			if err := requireString(entry, "txId"); err != nil {
				return fmt.Errorf("txIdCache[%d]: %w", i, err)
			}
		}
	}
	return nil
}

func requireString(doc map[string]json.RawMessage, key string) error {
	raw, ok := doc[key]
	if !ok {
		return fmt.Errorf("missing required field %q", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("field %q must be a string", key)
	}
	if s == "" {
		return fmt.Errorf("field %q must not be empty", key)
	}
	return nil
}

func requireObject(doc map[string]json.RawMessage, key string) error {
	raw, ok := doc[key]
	if !ok {
		return fmt.Errorf("missing required field %q", key)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("field %q must be an object", key)
	}
	return nil
}
