// Package store provides the durable JSON snapshot of bridge configs,
// the operation log, per-bridge device lists, and per-bridge runtime
// state.
//
// Every write loads the full state, mutates it, writes to
// <root>/storage.json.tmp, flushes, then renames over storage.json. A
// failure before the rename leaves the existing file untouched; a
// missing file is treated as empty state. All reads and writes are
// serialised by an in-process mutex — the Rust source this bridge is
// modelled on left concurrent writers unserialised (flagged as an open
// issue); this implementation closes that gap, since the REST surface
// and the Dispatcher are both writers after startup.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

// dirPermissions is the permission mode for the storage root directory.
const dirPermissions = 0o750

// filePermissions is the permission mode for storage.json.
const filePermissions = 0o600

const stateFileName = "storage.json"
const tmpFileName = "storage.json.tmp"

// state is the on-disk shape of storage.json.
type state struct {
	Bridges    []model.BridgeConfig                  `json:"bridges"`
	Operations []model.BridgeOperation                `json:"operations"`
	Devices    map[string][]model.BridgeDevice         `json:"devices"`
	Runtime    map[string]model.BridgeRuntimeState      `json:"runtime"`
}

func emptyState() state {
	return state{
		Bridges:    []model.BridgeConfig{},
		Operations: []model.BridgeOperation{},
		Devices:    map[string][]model.BridgeDevice{},
		Runtime:    map[string]model.BridgeRuntimeState{},
	}
}

// Store wraps a root directory holding storage.json.
//
// Thread Safety: all methods are safe for concurrent use from multiple
// goroutines; a single mutex serialises the load-mutate-save window.
type Store struct {
	root string
	mu   sync.Mutex
}

// New creates a Store rooted at dir. The directory is created lazily on
// first write.
func New(dir string) *Store {
	return &Store{root: dir}
}

func (s *Store) path() string {
	return filepath.Join(s.root, stateFileName)
}

func (s *Store) tmpPath() string {
	return filepath.Join(s.root, tmpFileName)
}

// load reads and decodes storage.json, returning empty state if the
// file does not exist. Caller must hold s.mu.
func (s *Store) load() (state, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return emptyState(), nil
	}
	if err != nil {
		return state{}, fmt.Errorf("store: reading storage.json: %w", err)
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return state{}, fmt.Errorf("store: decoding storage.json: %w", err)
	}
	if st.Devices == nil {
		st.Devices = map[string][]model.BridgeDevice{}
	}
	if st.Runtime == nil {
		st.Runtime = map[string]model.BridgeRuntimeState{}
	}
	if st.Bridges == nil {
		st.Bridges = []model.BridgeConfig{}
	}
	if st.Operations == nil {
		st.Operations = []model.BridgeOperation{}
	}
	return st, nil
}

// save atomically writes st to storage.json via temp-file + rename.
// Caller must hold s.mu.
func (s *Store) save(st state) error {
	if err := os.MkdirAll(s.root, dirPermissions); err != nil {
		return fmt.Errorf("store: creating storage directory: %w", err)
	}
	payload, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding storage.json: %w", err)
	}
	f, err := os.OpenFile(s.tmpPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermissions)
	if err == nil {
		if _, err = f.Write(payload); err == nil {
			err = f.Sync()
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("store: writing storage.json.tmp: %w", err)
	}
	if err := os.Rename(s.tmpPath(), s.path()); err != nil {
		return fmt.Errorf("store: renaming storage.json.tmp: %w", err)
	}
	return nil
}

// ListBridges returns all bridge configs.
func (s *Store) ListBridges() ([]model.BridgeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.Bridges, nil
}

// GetBridge returns the bridge with the given id, or ErrBridgeNotFound.
func (s *Store) GetBridge(id string) (model.BridgeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return model.BridgeConfig{}, err
	}
	for _, b := range st.Bridges {
		if b.ID == id {
			return b, nil
		}
	}
	return model.BridgeConfig{}, model.ErrBridgeNotFound
}

// UpsertBridge inserts or replaces the bridge matching bridge.ID.
func (s *Store) UpsertBridge(bridge model.BridgeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, b := range st.Bridges {
		if b.ID == bridge.ID {
			st.Bridges[i] = bridge
			replaced = true
			break
		}
	}
	if !replaced {
		st.Bridges = append(st.Bridges, bridge)
	}
	return s.save(st)
}

// DeleteBridge removes the bridge and cascades its device list and
// runtime state. Deleting an id that does not exist is a no-op.
func (s *Store) DeleteBridge(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	kept := st.Bridges[:0:0]
	for _, b := range st.Bridges {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	st.Bridges = kept
	delete(st.Devices, id)
	delete(st.Runtime, id)
	return s.save(st)
}

// ListOperations returns the operation log in its stored order (most
// recently inserted first — see AddOperation).
func (s *Store) ListOperations() ([]model.BridgeOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.Operations, nil
}

// AddOperation inserts op at the head of the operation log.
func (s *Store) AddOperation(op model.BridgeOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	st.Operations = append([]model.BridgeOperation{op}, st.Operations...)
	return s.save(st)
}

// UpdateOperation replaces the operation matching op.OperationID and
// re-inserts it at the head of the log, modelling recency. Updating an
// operation id that does not exist is an error.
func (s *Store) UpdateOperation(op model.BridgeOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	idx := -1
	for i, o := range st.Operations {
		if o.OperationID == op.OperationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.ErrOperationNotFound
	}
	st.Operations = append(st.Operations[:idx], st.Operations[idx+1:]...)
	st.Operations = append([]model.BridgeOperation{op}, st.Operations...)
	return s.save(st)
}

// NextQueuedOperation returns the most recently inserted operation whose
// status is Queued. Because AddOperation inserts at index 0, this is
// simply the first Queued entry encountered scanning from the head — a
// deliberate LIFO view of recency that the store tests pin down (see
// spec §4.1, §9). Returns false if none is queued.
func (s *Store) NextQueuedOperation() (model.BridgeOperation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return model.BridgeOperation{}, false, err
	}
	for _, op := range st.Operations {
		if op.Status == model.StatusQueued {
			return op, true, nil
		}
	}
	return model.BridgeOperation{}, false, nil
}

// ListBridgeDevices returns the device list for a bridge, or an empty
// slice if none is set.
func (s *Store) ListBridgeDevices(bridgeID string) ([]model.BridgeDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.Devices[bridgeID], nil
}

// SetBridgeDevices replaces the device list for a bridge.
func (s *Store) SetBridgeDevices(bridgeID string, devices []model.BridgeDevice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	st.Devices[bridgeID] = devices
	return s.save(st)
}

// DeleteBridgeDevices removes the device list for a bridge.
func (s *Store) DeleteBridgeDevices(bridgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	delete(st.Devices, bridgeID)
	return s.save(st)
}

// ListBridgeRuntime returns the runtime state of every bridge that has one.
func (s *Store) ListBridgeRuntime() ([]model.BridgeRuntimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	entries := make([]model.BridgeRuntimeEntry, 0, len(st.Runtime))
	for id, rs := range st.Runtime {
		entries = append(entries, model.BridgeRuntimeEntry{BridgeID: id, State: rs})
	}
	return entries, nil
}

// GetBridgeRuntime returns the runtime state for a bridge, if recorded.
func (s *Store) GetBridgeRuntime(bridgeID string) (model.BridgeRuntimeState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return model.BridgeRuntimeState{}, false, err
	}
	rs, ok := st.Runtime[bridgeID]
	return rs, ok, nil
}

// SetBridgeRuntime records the runtime state for a bridge.
func (s *Store) SetBridgeRuntime(bridgeID string, rs model.BridgeRuntimeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	st.Runtime[bridgeID] = rs
	return s.save(st)
}

// DeleteBridgeRuntime removes the runtime state for a bridge.
func (s *Store) DeleteBridgeRuntime(bridgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	delete(st.Runtime, bridgeID)
	return s.save(st)
}
