package matterrt

import (
	"sync"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

// AggregatorEndpointID is the fixed endpoint id of the bridge
// aggregator, per the Matter bridged-device topology.
const AggregatorEndpointID = uint16(1)

// StartUpOnOffEnum mirrors the OnOff cluster's nullable StartUpOnOff
// attribute: the behavior applied to OnOff state after the node
// restarts.
type StartUpOnOffEnum int

const (
	// StartUpOnOffUnset means the attribute has never been written —
	// OnOff keeps whatever value it last held across a restart.
	StartUpOnOffUnset StartUpOnOffEnum = iota
	StartUpOnOffOff
	StartUpOnOffOn
	StartUpOnOffToggle
)

// descriptorRecord is the Descriptor cluster instance for one endpoint:
// a data-version token. rebuild seeds every record at 1; the token
// changes only through bump.
type descriptorRecord struct {
	mu          sync.Mutex
	dataVersion uint32
}

func newDescriptorRecord(seed uint32) *descriptorRecord {
	return &descriptorRecord{dataVersion: seed}
}

func (d *descriptorRecord) bump() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dataVersion++
	return d.dataVersion
}

// bridgedDeviceRecord is the BridgedDeviceBasicInformation cluster
// instance for one bridged-device endpoint.
type bridgedDeviceRecord struct {
	uniqueID string

	mu        sync.RWMutex
	reachable bool
}

func (b *bridgedDeviceRecord) setReachable(v bool) {
	b.mu.Lock()
	b.reachable = v
	b.mu.Unlock()
}

func (b *bridgedDeviceRecord) isReachable() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.reachable
}

// onOffRecord is the OnOff cluster instance plus the hooks object that
// logs state transitions, for one bridged-device endpoint.
type onOffRecord struct {
	entityID string
	logger   transitionLogger

	mu            sync.Mutex
	onOff         bool
	startUpOnOff  StartUpOnOffEnum
}

// transitionLogger records (entity_id, new_state) on every OnOff
// transition. Satisfied by *slog.Logger via the runtime's adapter.
type transitionLogger interface {
	Info(msg string, args ...any)
}

func (r *onOffRecord) apply(on bool) {
	r.mu.Lock()
	changed := r.onOff != on
	r.onOff = on
	r.mu.Unlock()
	if changed && r.logger != nil {
		r.logger.Info("onoff transition", "entity_id", r.entityID, "on", on)
	}
}

func (r *onOffRecord) get() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onOff
}

func (r *onOffRecord) toggle() bool {
	r.mu.Lock()
	r.onOff = !r.onOff
	v := r.onOff
	r.mu.Unlock()
	if r.logger != nil {
		r.logger.Info("onoff transition", "entity_id", r.entityID, "on", v)
	}
	return v
}

func (r *onOffRecord) setStartUpOnOff(v StartUpOnOffEnum) {
	r.mu.Lock()
	r.startUpOnOff = v
	r.mu.Unlock()
}

// endpointArena owns every per-endpoint cluster handler record,
// addressed only by endpoint_id lookups so the graph is never cyclic
// (per the "cyclic handler graphs" note: no handler holds a pointer
// back into the tree or to another handler).
type endpointArena struct {
	mu sync.RWMutex

	descriptors map[uint16]*descriptorRecord
	bridgedInfo map[uint16]*bridgedDeviceRecord
	onOff       map[uint16]*onOffRecord

	entityToEndpoint map[string]uint16
	endpointToEntity map[uint16]string
	deviceTypes      map[uint16]string
}

func newEndpointArena() *endpointArena {
	return &endpointArena{
		descriptors:      make(map[uint16]*descriptorRecord),
		bridgedInfo:      make(map[uint16]*bridgedDeviceRecord),
		onOff:            make(map[uint16]*onOffRecord),
		entityToEndpoint: make(map[string]uint16),
		endpointToEntity: make(map[uint16]string),
		deviceTypes:      make(map[uint16]string),
	}
}

// rebuild replaces the bridged-device endpoints (2..N+1) to match
// devices, preserving the aggregator at endpoint 1. Endpoint tree
// changes from rebuild take effect only on the next Start — a running
// Matter session cannot change endpoints without a restart (spec's
// "Refresh logs that a restart is needed").
func (a *endpointArena) rebuild(devices []model.BridgeDevice, logger transitionLogger) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.descriptors = map[uint16]*descriptorRecord{
		0:                    newDescriptorRecord(1),
		AggregatorEndpointID: newDescriptorRecord(1),
	}
	a.bridgedInfo = make(map[uint16]*bridgedDeviceRecord)
	a.onOff = make(map[uint16]*onOffRecord)
	a.entityToEndpoint = make(map[string]uint16)
	a.endpointToEntity = make(map[uint16]string)
	a.deviceTypes = make(map[uint16]string)

	for i, dev := range devices {
		endpointID := uint16(i) + 2
		a.descriptors[endpointID] = newDescriptorRecord(1)
		a.bridgedInfo[endpointID] = &bridgedDeviceRecord{uniqueID: dev.EntityID, reachable: dev.Reachable}
		a.onOff[endpointID] = &onOffRecord{entityID: dev.EntityID, logger: logger}
		a.entityToEndpoint[dev.EntityID] = endpointID
		a.endpointToEntity[endpointID] = dev.EntityID
		a.deviceTypes[endpointID] = dev.DeviceType
	}
}

// endpointFor returns the endpoint id bridging entityID, if any.
func (a *endpointArena) endpointFor(entityID string) (uint16, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ep, ok := a.entityToEndpoint[entityID]
	return ep, ok
}

func (a *endpointArena) onOffHandler(endpointID uint16) (*onOffRecord, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.onOff[endpointID]
	return h, ok
}

func (a *endpointArena) bridgedInfoHandler(endpointID uint16) (*bridgedDeviceRecord, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.bridgedInfo[endpointID]
	return h, ok
}

// endpointCount returns the number of bridged-device endpoints
// (excluding root and aggregator).
func (a *endpointArena) endpointCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.onOff)
}
