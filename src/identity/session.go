package identity

import (
	"fmt"

	"github.com/Nastunika/ZenPlugins/src/logger"
	"github.com/Nastunika/ZenPlugins/src/models"
	"github.com/Nastunika/ZenPlugins/src/storage"
)

const (
	keyAuth = "auth"

	// GUID keys written by earlier releases; folded into the auth record.
	keyLegacyMGUID = "mGUID"
	keyLegacyGUID  = "guid"
)

// LoadSession reads the persisted auth session, folding in a GUID stored
// under a legacy key if one exists. Returns nil when no session has ever
// been stored. Safe to call repeatedly; the migration happens once.
func LoadSession(store storage.PersistentStore) (*models.AuthSession, error) {
	var guid string
	ok, err := storage.GetJSON(store, keyLegacyMGUID, &guid)
	if err != nil {
		return nil, err
	}
	if !ok || guid == "" {
		if _, err := storage.GetJSON(store, keyLegacyGUID, &guid); err != nil {
			return nil, err
		}
	}
	if guid != "" {
		if err := store.Delete(keyLegacyMGUID); err != nil {
			return nil, fmt.Errorf("error clearing legacy guid key: %w", err)
		}
		if err := store.Delete(keyLegacyGUID); err != nil {
			return nil, fmt.Errorf("error clearing legacy guid key: %w", err)
		}
	}

	var session *models.AuthSession
	var stored models.AuthSession
	ok, err = storage.GetJSON(store, keyAuth, &stored)
	if err != nil {
		return nil, fmt.Errorf("error reading auth session: %w", err)
	}
	if ok {
		session = &stored
	}

	if guid != "" {
		if session == nil {
			session = &models.AuthSession{GUID: guid}
		} else {
			session.GUID = guid
		}
		if err := SaveSession(store, session); err != nil {
			return nil, err
		}
		logger.L.Info("Migrated legacy session GUID into auth record")
	}
	return session, nil
}

// SaveSession persists the auth session. Called after every stage that may
// have refreshed it, so a crash mid-scrape leaves the freshest session on
// disk.
func SaveSession(store storage.PersistentStore, session *models.AuthSession) error {
	if err := storage.SetJSON(store, keyAuth, session); err != nil {
		return fmt.Errorf("error persisting auth session: %w", err)
	}
	return nil
}
