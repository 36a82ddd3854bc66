package matterrt

import (
	"errors"
	"fmt"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

// PortInUseError reports a UDP bind failure for the given port. Wraps
// model.ErrPortInUse so callers can use errors.Is against either.
type PortInUseError struct {
	Port uint16
	Err  error
}

func (e *PortInUseError) Error() string {
	return fmt.Sprintf("matterrt: port %d in use: %v", e.Port, e.Err)
}

func (e *PortInUseError) Unwrap() error {
	return errors.Join(model.ErrPortInUse, e.Err)
}

// IOError wraps a non-bind I/O failure (mDNS, persistence, transport).
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("matterrt: io error during %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// RuntimeError wraps a protocol/library-level failure that isn't an
// I/O error — e.g. a malformed command frame.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string {
	return "matterrt: " + e.Message
}

// ErrNotImplemented is returned by runtime paths this codebase's
// placeholder wire layer deliberately does not implement (see
// DESIGN.md's Matter-wire-layer decision).
var ErrNotImplemented = errors.New("matterrt: not implemented")
