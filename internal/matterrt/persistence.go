package matterrt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// psmSnapshot is the persisted shape of one bridge's Matter fabric/ACL
// state. Real rs-matter would persist its own binary fabric table;
// this runtime's placeholder wire layer persists the structurally
// equivalent state it actually maintains (start-up OnOff per endpoint,
// commissioning status).
type psmSnapshot struct {
	Commissioned     bool                        `json:"commissioned"`
	StartUpOnOffByEP map[uint16]StartUpOnOffEnum `json:"start_up_on_off_by_endpoint"`
}

// persistPath returns <storageRoot>/matter/bridge-<bridgeID>.psm,
// matching the Rust source's layout.
func persistPath(storageRoot, bridgeID string) string {
	return filepath.Join(storageRoot, "matter", fmt.Sprintf("bridge-%s.psm", bridgeID))
}

// loadSnapshot reads a psm file, returning an empty snapshot if it
// does not exist.
func loadSnapshot(storageRoot, bridgeID string) (psmSnapshot, error) {
	data, err := os.ReadFile(persistPath(storageRoot, bridgeID))
	if os.IsNotExist(err) {
		return psmSnapshot{StartUpOnOffByEP: map[uint16]StartUpOnOffEnum{}}, nil
	}
	if err != nil {
		return psmSnapshot{}, fmt.Errorf("matterrt: reading psm: %w", err)
	}
	var snap psmSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return psmSnapshot{}, fmt.Errorf("matterrt: decoding psm: %w", err)
	}
	if snap.StartUpOnOffByEP == nil {
		snap.StartUpOnOffByEP = map[uint16]StartUpOnOffEnum{}
	}
	return snap, nil
}

// saveSnapshot writes snap atomically via temp-file + rename, the same
// protocol the Store uses for storage.json.
func saveSnapshot(storageRoot, bridgeID string, snap psmSnapshot) error {
	dir := filepath.Join(storageRoot, "matter")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("matterrt: creating matter directory: %w", err)
	}
	path := persistPath(storageRoot, bridgeID)
	tmp := path + ".tmp"

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("matterrt: encoding psm: %w", err)
	}
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("matterrt: writing psm tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("matterrt: renaming psm tmp: %w", err)
	}
	return nil
}

// eraseSnapshot removes the psm file, used by FactoryReset. A missing
// file is not an error.
func eraseSnapshot(storageRoot, bridgeID string) error {
	err := os.Remove(persistPath(storageRoot, bridgeID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("matterrt: erasing psm: %w", err)
	}
	return nil
}
