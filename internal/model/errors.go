package model

import "errors"

// Sentinel errors shared across the store, dispatcher, and REST layers.
// Check with errors.Is().
var (
	// ErrBridgeNotFound is returned when a bridge id does not exist.
	ErrBridgeNotFound = errors.New("model: bridge not found")

	// ErrOperationNotFound is returned when an operation id does not exist.
	ErrOperationNotFound = errors.New("model: operation not found")

	// ErrNoRuntimeState is returned when a bridge has no recorded runtime state.
	ErrNoRuntimeState = errors.New("model: no runtime state")

	// ErrPortInUse is returned when a Matter runtime fails to bind its UDP port.
	ErrPortInUse = errors.New("model: port in use")
)
