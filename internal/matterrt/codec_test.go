package matterrt

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeFrame_RoundTrip(t *testing.T) {
	f := frame{
		kind:       frameInvoke,
		endpointID: 3,
		clusterID:  clusterOnOff,
		commandID:  onOffCmdOn,
		payload:    []byte("hello"),
	}

	raw := encodeFrame(f)
	got, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if got.kind != f.kind || got.endpointID != f.endpointID || got.clusterID != f.clusterID || got.commandID != f.commandID {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, f)
	}
	if !bytes.Equal(got.payload, f.payload) {
		t.Fatalf("payload mismatch: got %q want %q", got.payload, f.payload)
	}
}

func TestEncodeDecodeFrame_EmptyPayload(t *testing.T) {
	f := frame{kind: frameReadAttribute, endpointID: 1, clusterID: clusterDescriptor}
	got, err := decodeFrame(encodeFrame(f))
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if len(got.payload) != 0 {
		t.Fatalf("expected empty payload, got %q", got.payload)
	}
}

func TestDecodeFrame_ShortFrameErrors(t *testing.T) {
	if _, err := decodeFrame([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error decoding short frame")
	}
}

func TestDecodeFrame_TruncatedPayloadErrors(t *testing.T) {
	raw := encodeFrame(frame{kind: frameInvoke, payload: []byte("abcd")})
	if _, err := decodeFrame(raw[:len(raw)-2]); err == nil {
		t.Fatal("expected error decoding truncated payload")
	}
}
