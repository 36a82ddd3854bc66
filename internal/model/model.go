// Package model defines the data types shared across the HAMH bridge:
// bridge configuration, operations, runtime state, and the entity
// descriptors produced by the upstream adapter and consumed by the
// filter/mapper pipeline.
package model

import "time"

// BridgeConfig is a user-created Matter bridge definition. Id is
// immutable after creation; UpdatedAt increases monotonically on every
// mutation.
type BridgeConfig struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Port         uint16       `json:"port"`
	Filter       BridgeFilter `json:"filter"`
	FeatureFlags FeatureFlags `json:"feature_flags"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// BridgeFilter holds ordered include/exclude rule lists. An empty
// Include list means "accept all"; an empty Exclude list means "reject
// none".
type BridgeFilter struct {
	Include []EntityFilter `json:"include"`
	Exclude []EntityFilter `json:"exclude"`
}

// FilterKind selects which EntityDescriptor field an EntityFilter rule
// is matched against.
type FilterKind string

const (
	FilterKindPattern        FilterKind = "pattern"
	FilterKindDomain         FilterKind = "domain"
	FilterKindPlatform       FilterKind = "platform"
	FilterKindEntityID       FilterKind = "entity_id"
	FilterKindEntityCategory FilterKind = "entity_category"
	FilterKindArea           FilterKind = "area"
	FilterKindLabel          FilterKind = "label"
	FilterKindDeviceID       FilterKind = "device_id"
)

// EntityFilter is a single include/exclude rule.
type EntityFilter struct {
	Kind  FilterKind `json:"type"`
	Value string     `json:"value"`
}

// FeatureFlags holds opt-in behavior toggles. New flags default to
// false; unknown flags round-trip untouched via RawFlags.
type FeatureFlags struct {
	CoverDoNotInvertPercentage bool `json:"cover_do_not_invert_percentage"`

	// RawFlags preserves any additional keys present in storage.json that
	// this version of the bridge does not know about, so they survive a
	// load/save cycle unchanged. Populated by UnmarshalJSON.
	RawFlags map[string]any `json:"-"`
}

// EntityDescriptor is the normalised view of a single upstream entity,
// joined from /api/states with the entity/area/label registries.
type EntityDescriptor struct {
	EntityID       string         `json:"entity_id"`
	Domain         string         `json:"domain"`
	Platform       string         `json:"platform,omitempty"`
	EntityCategory string         `json:"entity_category,omitempty"`
	Area           string         `json:"area,omitempty"`
	Labels         []string       `json:"labels,omitempty"`
	DeviceID       string         `json:"device_id,omitempty"`
	Attributes     map[string]any `json:"attributes"`
}

// BridgeDevice is an upstream entity that survived filtering and was
// mapped to a Matter device type, with its assigned endpoint.
type BridgeDevice struct {
	EntityID     string   `json:"entity_id"`
	DeviceType   string   `json:"device_type"`
	EndpointID   uint16   `json:"endpoint_id"`
	DisplayName  string   `json:"display_name"`
	Area         string   `json:"area,omitempty"`
	Capabilities []string `json:"capabilities"`
	Reachable    bool     `json:"reachable"`
}

// OperationType enumerates the bridge lifecycle actions that can be
// queued.
type OperationType string

const (
	OpCreate       OperationType = "create"
	OpUpdate       OperationType = "update"
	OpStart        OperationType = "start"
	OpStop         OperationType = "stop"
	OpRefresh      OperationType = "refresh"
	OpFactoryReset OperationType = "factory_reset"
	OpDelete       OperationType = "delete"
)

// OperationStatus is the lifecycle state of a queued BridgeOperation.
type OperationStatus string

const (
	StatusQueued    OperationStatus = "queued"
	StatusRunning   OperationStatus = "running"
	StatusCompleted OperationStatus = "completed"
	StatusFailed    OperationStatus = "failed"
	StatusCancelled OperationStatus = "cancelled"
)

// BridgeOperation records one queued lifecycle action and its outcome.
type BridgeOperation struct {
	OperationID string          `json:"operation_id"`
	BridgeID    string          `json:"bridge_id"`
	OpType      OperationType   `json:"op_type"`
	Status      OperationStatus `json:"status"`
	QueuedAt    time.Time       `json:"queued_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// RuntimeStatus is the observable lifecycle state of a bridge's Matter
// runtime.
type RuntimeStatus string

const (
	RuntimeStopped  RuntimeStatus = "stopped"
	RuntimeStarting RuntimeStatus = "starting"
	RuntimeRunning  RuntimeStatus = "running"
	RuntimeStopping RuntimeStatus = "stopping"
	RuntimeDeleting RuntimeStatus = "deleting"
	RuntimeError    RuntimeStatus = "error"
	RuntimeQueued   RuntimeStatus = "queued"
)

// BridgeRuntimeState is the last-observed lifecycle state of a bridge's
// Matter runtime, refreshed on every transition.
type BridgeRuntimeState struct {
	Status      RuntimeStatus `json:"status"`
	LastError   string        `json:"last_error,omitempty"`
	OperationID string        `json:"operation_id,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// BridgeRuntimeEntry pairs a bridge id with its runtime state, for the
// list-all-runtimes endpoint.
type BridgeRuntimeEntry struct {
	BridgeID string             `json:"bridge_id"`
	State    BridgeRuntimeState `json:"state"`
}

// PairingInfo is the commissioning material for a bridge, derived
// deterministically from its id, passcode, and discriminator.
type PairingInfo struct {
	QRText       string `json:"qr_text"`
	QRUnicode    string `json:"qr_unicode"`
	ManualCode   string `json:"manual_code"`
	Discriminator uint16 `json:"discriminator"`
}

// EntityState is a single on/off state push applied to a running
// bridge's OnOff hooks.
type EntityState struct {
	EntityID string `json:"entity_id"`
	On       bool   `json:"on"`
}

// DeviceStateRecord is one historical sample of a bridged device's
// state, recorded each time an UpdateStates command is applied. Not
// part of the original spec's data model — an additive supplement
// persisted by internal/infrastructure/sqlitehist when configured.
type DeviceStateRecord struct {
	EntityID   string    `json:"entity_id"`
	BridgeID   string    `json:"bridge_id"`
	Reachable  bool      `json:"reachable"`
	OnOff      bool      `json:"on_off"`
	RecordedAt time.Time `json:"recorded_at"`
}

// DeviceType is the closed vocabulary of Matter device types the mapper
// can assign. Defined as string constants (not a Go enum type) because
// they round-trip through storage.json and the REST surface as plain
// strings.
const (
	DeviceExtendedColorLight  = "ExtendedColorLight"
	DeviceColorTemperatureLight = "ColorTemperatureLight"
	DeviceDimmableLight       = "DimmableLight"
	DeviceOnOffLight          = "OnOffLight"
	DeviceContactSensor       = "ContactSensor"
	DeviceOccupancySensor     = "OccupancySensor"
	DeviceWaterLeakDetector   = "WaterLeakDetector"
	DeviceOnOffSensor         = "OnOffSensor"
	DeviceTemperatureSensor   = "TemperatureSensor"
	DeviceHumiditySensor      = "HumiditySensor"
	DeviceIlluminanceSensor   = "IlluminanceSensor"
	DeviceThermostat          = "Thermostat"
	DeviceWindowCovering      = "WindowCovering"
	DeviceFan                 = "Fan"
	DeviceDoorLock            = "DoorLock"
	DeviceSpeaker             = "Speaker"
	DeviceRoboticVacuumCleaner = "RoboticVacuumCleaner"
	DeviceOnOffPlugInUnit     = "OnOffPlugInUnit"
)
