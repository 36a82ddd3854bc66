package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/hamh-bridge/internal/matterrt"
	"github.com/nerrad567/hamh-bridge/internal/model"
)

func TestGetBridgeRuntime(t *testing.T) {
	_, router, deps := newTestServer(t)
	deps.store.runtime["bridge-1"] = model.BridgeRuntimeState{
		Status:    model.RuntimeRunning,
		UpdatedAt: time.Now(),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/matter/bridges/bridge-1/runtime", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var state model.BridgeRuntimeState
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if state.Status != model.RuntimeRunning {
		t.Errorf("status = %q, want %q", state.Status, model.RuntimeRunning)
	}
}

func TestGetBridgeRuntime_NotFound(t *testing.T) {
	_, router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/matter/bridges/nonexistent/runtime", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetBridgeRuntime_NoRuntimeStateError(t *testing.T) {
	_, router, deps := newTestServer(t)
	deps.store.getRuntimeErr = model.ErrNoRuntimeState

	req := httptest.NewRequest(http.MethodGet, "/api/matter/bridges/bridge-1/runtime", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListBridgeRuntime(t *testing.T) {
	_, router, deps := newTestServer(t)
	deps.store.runtime["bridge-1"] = model.BridgeRuntimeState{Status: model.RuntimeRunning}
	deps.store.runtime["bridge-2"] = model.BridgeRuntimeState{Status: model.RuntimeStopped}

	req := httptest.NewRequest(http.MethodGet, "/api/matter/bridges/runtime", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var entries []model.BridgeRuntimeEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
}

// TestGetPairing asserts pairing info is returned for an existing
// bridge even though no runtime is running for it — the derivation
// only depends on the bridge id, passcode, and discriminator.
func TestGetPairing(t *testing.T) {
	_, router, deps := newTestServer(t)
	deps.store.bridges["bridge-1"] = model.BridgeConfig{ID: "bridge-1", Name: "Living Room"}

	req := httptest.NewRequest(http.MethodGet, "/api/matter/bridges/bridge-1/pairing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var info model.PairingInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := matterrt.PairingInfo("bridge-1", testPasscode, testDiscriminator)
	if info != want {
		t.Errorf("pairing info = %+v, want %+v", info, want)
	}
}

func TestGetPairing_BridgeNotFound(t *testing.T) {
	_, router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/matter/bridges/nonexistent/pairing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
