package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

func TestListOperations(t *testing.T) {
	_, router, deps := newTestServer(t)
	deps.store.ops = []model.BridgeOperation{
		{OperationID: "op-1", BridgeID: "bridge-1", OpType: model.OpStart, Status: model.StatusCompleted},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/matter/operations", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var ops []model.BridgeOperation
	if err := json.Unmarshal(w.Body.Bytes(), &ops); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("len(ops) = %d, want 1", len(ops))
	}
}

func TestListOperations_StorageError(t *testing.T) {
	_, router, deps := newTestServer(t)
	deps.store.listOpsErr = errFakeStorage

	req := httptest.NewRequest(http.MethodGet, "/api/matter/operations", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestHealth(t *testing.T) {
	_, router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/matter/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}
