package storage

import (
	"encoding/json"
	"fmt"
)

// PersistentStore is the host-provided key-value state store the connector
// keeps its device identity and auth session in. Implementations must keep
// Set durable enough that a crash between scrape stages loses at most the
// writes after the last Flush.
type PersistentStore interface {
	// Get returns the stored value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Flush pushes any buffered writes to durable storage.
	Flush() error
}

// GetJSON reads key and unmarshals it into out. Returns false when the key
// is absent.
func GetJSON(store PersistentStore, key string, out any) (bool, error) {
	raw, ok, err := store.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("error decoding stored value for %q: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(store PersistentStore, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding value for %q: %w", key, err)
	}
	return store.Set(key, string(raw))
}
