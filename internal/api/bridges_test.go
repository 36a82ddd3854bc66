package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

func TestCreateAndGetBridge(t *testing.T) {
	_, router, _ := newTestServer(t)

	body := `{"name":"Living Room Bridge","port":5541}`
	req := httptest.NewRequest(http.MethodPost, "/api/matter/bridges", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var created model.BridgeConfig
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal created: %v", err)
	}
	if created.ID == "" {
		t.Error("expected bridge ID to be auto-generated")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/matter/bridges/"+created.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", w.Code, http.StatusOK)
	}

	var got model.BridgeConfig
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal got: %v", err)
	}
	if got.Name != "Living Room Bridge" {
		t.Errorf("name = %q, want %q", got.Name, "Living Room Bridge")
	}
}

func TestCreateBridge_MissingName(t *testing.T) {
	_, router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/matter/bridges", strings.NewReader(`{"port":5541}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCreateBridge_InvalidJSON(t *testing.T) {
	_, router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/matter/bridges", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetBridge_NotFound(t *testing.T) {
	_, router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/matter/bridges/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListBridges_StorageError(t *testing.T) {
	_, router, deps := newTestServer(t)
	deps.store.listBridgesErr = errFakeStorage

	req := httptest.NewRequest(http.MethodGet, "/api/matter/bridges", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestUpdateBridge_PreservesIDAndCreatedAt(t *testing.T) {
	_, router, deps := newTestServer(t)

	existing := model.BridgeConfig{ID: "bridge-1", Name: "Original", Port: 5540}
	deps.store.bridges[existing.ID] = existing

	req := httptest.NewRequest(http.MethodPut, "/api/matter/bridges/bridge-1", strings.NewReader(`{"name":"Renamed","port":5550}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var updated model.BridgeConfig
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if updated.ID != "bridge-1" {
		t.Errorf("id = %q, want %q", updated.ID, "bridge-1")
	}
	if updated.Name != "Renamed" {
		t.Errorf("name = %q, want %q", updated.Name, "Renamed")
	}
}

func TestUpdateBridge_NotFound(t *testing.T) {
	_, router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/matter/bridges/nonexistent", strings.NewReader(`{"name":"x"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDeleteBridge_Enqueues(t *testing.T) {
	_, router, deps := newTestServer(t)
	deps.store.bridges["bridge-1"] = model.BridgeConfig{ID: "bridge-1", Name: "To Delete"}

	req := httptest.NewRequest(http.MethodDelete, "/api/matter/bridges/bridge-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}

	if len(deps.queue.enqueued) != 1 {
		t.Fatalf("enqueued count = %d, want 1", len(deps.queue.enqueued))
	}
	if deps.queue.enqueued[0].OpType != model.OpDelete {
		t.Errorf("op type = %q, want %q", deps.queue.enqueued[0].OpType, model.OpDelete)
	}
}

func TestDeleteBridge_NotFound(t *testing.T) {
	_, router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/matter/bridges/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestLifecycleActions_Enqueue(t *testing.T) {
	tests := []struct {
		path   string
		opType model.OperationType
	}{
		{"/api/matter/bridges/bridge-1/actions/start", model.OpStart},
		{"/api/matter/bridges/bridge-1/actions/stop", model.OpStop},
		{"/api/matter/bridges/bridge-1/actions/refresh", model.OpRefresh},
		{"/api/matter/bridges/bridge-1/actions/factory-reset", model.OpFactoryReset},
	}

	for _, tt := range tests {
		t.Run(string(tt.opType), func(t *testing.T) {
			_, router, deps := newTestServer(t)
			deps.store.bridges["bridge-1"] = model.BridgeConfig{ID: "bridge-1", Name: "Test"}

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusAccepted {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusAccepted, w.Body.String())
			}

			var op model.BridgeOperation
			if err := json.Unmarshal(w.Body.Bytes(), &op); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if op.OpType != tt.opType {
				t.Errorf("op type = %q, want %q", op.OpType, tt.opType)
			}
		})
	}
}

func TestLifecycleAction_BridgeNotFound(t *testing.T) {
	_, router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/matter/bridges/nonexistent/actions/start", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
