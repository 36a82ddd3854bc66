package matterrt

import "github.com/nerrad567/hamh-bridge/internal/model"

// commandKind discriminates the four messages the Dispatcher can send
// to a running bridge's command channel.
type commandKind int

const (
	cmdUpdateStates commandKind = iota
	cmdUpdateDevices
	cmdFactoryReset
	cmdShutdown
)

// command is the single message type carried on the (practically
// unbounded, large-buffered) command channel. At most one of its
// payload fields is set, per kind: states for UpdateStates, devices for
// UpdateDevices, none for FactoryReset and Shutdown.
type command struct {
	kind    commandKind
	states  []model.EntityState
	devices []model.BridgeDevice

	// done, if non-nil, is closed once the command has been applied —
	// lets callers await application without a second channel.
	done chan struct{}
}

// commandChannelCapacity is large enough that callers never block in
// practice; the spec describes the channel as unbounded, which Go
// channels cannot literally be.
const commandChannelCapacity = 256
