package matterrt

import (
	"encoding/binary"
	"fmt"
)

// This file implements the minimal, internally-consistent placeholder
// wire codec described in DESIGN.md's Matter-wire-layer decision: it
// gives the transport/data-model tasks a real framing format to drive
// against, without claiming to implement the Matter 1.x TLV /
// interaction-model specification. No commissioner or controller
// outside this codebase can speak it.

// frameKind discriminates the handful of interaction-model actions
// the placeholder wire format can carry.
type frameKind byte

const (
	frameInvoke frameKind = iota + 1
	frameInvokeResponse
	frameReadAttribute
	frameReadAttributeResponse
)

// frame is one decoded unit of the placeholder wire format. The
// transport loop decodes inbound datagrams into frames and discards
// them; the data-model job consumes commands, not frames.
type frame struct {
	kind       frameKind
	endpointID uint16
	clusterID  uint16
	commandID  byte
	payload    []byte
}

// encodeFrame serialises f as:
// [kind:1][endpointID:2][clusterID:2][commandID:1][payloadLen:2][payload...]
func encodeFrame(f frame) []byte {
	buf := make([]byte, 8+len(f.payload))
	buf[0] = byte(f.kind)
	binary.BigEndian.PutUint16(buf[1:3], f.endpointID)
	binary.BigEndian.PutUint16(buf[3:5], f.clusterID)
	buf[5] = f.commandID
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(f.payload)))
	copy(buf[8:], f.payload)
	return buf
}

// decodeFrame parses the format encodeFrame produces.
func decodeFrame(raw []byte) (frame, error) {
	if len(raw) < 8 {
		return frame{}, fmt.Errorf("matterrt: short frame (%d bytes)", len(raw))
	}
	payloadLen := int(binary.BigEndian.Uint16(raw[6:8]))
	if len(raw) < 8+payloadLen {
		return frame{}, fmt.Errorf("matterrt: truncated frame payload")
	}
	return frame{
		kind:       frameKind(raw[0]),
		endpointID: binary.BigEndian.Uint16(raw[1:3]),
		clusterID:  binary.BigEndian.Uint16(raw[3:5]),
		commandID:  raw[5],
		payload:    raw[8 : 8+payloadLen],
	}, nil
}

// Cluster ids for the three clusters this runtime implements.
const (
	clusterDescriptor                  uint16 = 0x001D
	clusterBridgedDeviceBasicInfo      uint16 = 0x0039
	clusterOnOff                       uint16 = 0x0006
)

// OnOff command ids, per the Matter OnOff cluster.
const (
	onOffCmdOff    byte = 0x00
	onOffCmdOn     byte = 0x01
	onOffCmdToggle byte = 0x02
)
