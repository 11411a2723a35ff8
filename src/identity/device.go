// Package identity resolves the persisted device fingerprint and auth
// session, migrating state written by earlier releases of the connector
// into the current canonical shape.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/Nastunika/ZenPlugins/src/logger"
	"github.com/Nastunika/ZenPlugins/src/models"
	"github.com/Nastunika/ZenPlugins/src/storage"
	"github.com/google/uuid"
)

const (
	keyDevice = "device"

	// Keys written by earlier releases. All are cleared once the canonical
	// device record exists.
	keyLegacyDevID    = "devID"
	keyLegacyDevIDOld = "devIDOld"
	keyLegacyDevid    = "devid"
	keyLegacySimID    = "simId"
	keyLegacyIMEI     = "imei"

	// Model strings the bank has seen from this client before; changing
	// them invalidates registered devices server-side.
	migratedDeviceModel = "Xperia Z2"
	defaultDeviceModel  = "Zenmoney Phone"
)

// HasLegacyDeviceMarker reports whether the oldest single-id device key is
// still present. The scrape window migration accommodation keys off it, so
// it must be checked before ResolveDevice clears it.
func HasLegacyDeviceMarker(store storage.PersistentStore) (bool, error) {
	var id string
	ok, err := storage.GetJSON(store, keyLegacyDevid, &id)
	if err != nil {
		return false, err
	}
	return ok && id != "", nil
}

// ResolveDevice returns the installation's device identity, creating and
// persisting it on first use. Older stored formats are folded in by
// precedence: a devID/devIDOld pair is reused verbatim, a bare devid keeps
// its id and gains a generated partner, and with nothing stored the id is
// derived from the login. The canonical record is stored before the legacy
// keys are cleared, so an interrupted run resumes cleanly.
func ResolveDevice(store storage.PersistentStore, login string) (models.DeviceIdentity, error) {
	var device models.DeviceIdentity
	ok, err := storage.GetJSON(store, keyDevice, &device)
	if err != nil {
		return models.DeviceIdentity{}, fmt.Errorf("error reading device identity: %w", err)
	}
	if ok {
		return device, nil
	}

	var devID, devIDOld, devid string
	if _, err := storage.GetJSON(store, keyLegacyDevID, &devID); err != nil {
		return models.DeviceIdentity{}, err
	}
	if _, err := storage.GetJSON(store, keyLegacyDevIDOld, &devIDOld); err != nil {
		return models.DeviceIdentity{}, err
	}
	if _, err := storage.GetJSON(store, keyLegacyDevid, &devid); err != nil {
		return models.DeviceIdentity{}, err
	}

	switch {
	case devID != "" && devIDOld != "":
		device = models.DeviceIdentity{ID: devID, IDOld: devIDOld, Model: migratedDeviceModel}
		logger.L.Info("Migrated device identity from devID/devIDOld pair")
	case devid != "":
		device = models.DeviceIdentity{ID: devid, IDOld: randomDeviceID(), Model: migratedDeviceModel}
		logger.L.Info("Migrated device identity from legacy devid")
	default:
		device = models.DeviceIdentity{ID: deriveDeviceID(login), IDOld: randomDeviceID(), Model: defaultDeviceModel}
		logger.L.Info("Created device identity for new installation")
	}

	if err := storage.SetJSON(store, keyDevice, device); err != nil {
		return models.DeviceIdentity{}, fmt.Errorf("error persisting device identity: %w", err)
	}
	for _, key := range []string{keyLegacySimID, keyLegacyIMEI, keyLegacyDevid, keyLegacyDevID, keyLegacyDevIDOld} {
		if err := store.Delete(key); err != nil {
			return models.DeviceIdentity{}, fmt.Errorf("error clearing legacy key %q: %w", key, err)
		}
	}
	return device, nil
}

// deriveDeviceID builds the deterministic device id the bank has on record
// for installations that never stored one: md5 of the login plus a fixed
// suffix.
func deriveDeviceID(login string) string {
	sum := md5.Sum([]byte(login))
	return hex.EncodeToString(sum[:]) + "0000"
}

// randomDeviceID generates the 36-character secondary id with the same
// fixed suffix.
func randomDeviceID() string {
	return uuid.NewString() + "0000"
}
