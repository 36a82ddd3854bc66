package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

func TestUpsertAndGetBridge(t *testing.T) {
	s := New(t.TempDir())

	bridge := model.BridgeConfig{ID: "b1", Name: "Living Room", Port: 5540}
	if err := s.UpsertBridge(bridge); err != nil {
		t.Fatalf("UpsertBridge() error = %v", err)
	}

	got, err := s.GetBridge("b1")
	if err != nil {
		t.Fatalf("GetBridge() error = %v", err)
	}
	if got.Name != "Living Room" {
		t.Errorf("Name = %q, want %q", got.Name, "Living Room")
	}

	bridge.Name = "Renamed"
	if err := s.UpsertBridge(bridge); err != nil {
		t.Fatalf("UpsertBridge() (update) error = %v", err)
	}
	got, err = s.GetBridge("b1")
	if err != nil {
		t.Fatalf("GetBridge() error = %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("Name = %q, want %q", got.Name, "Renamed")
	}

	all, err := s.ListBridges()
	if err != nil {
		t.Fatalf("ListBridges() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListBridges() len = %d, want 1", len(all))
	}
}

func TestGetBridge_NotFound(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.GetBridge("missing")
	if !errors.Is(err, model.ErrBridgeNotFound) {
		t.Fatalf("GetBridge() error = %v, want ErrBridgeNotFound", err)
	}
}

func TestDeleteBridge_CascadesDevicesAndRuntime(t *testing.T) {
	s := New(t.TempDir())
	if err := s.UpsertBridge(model.BridgeConfig{ID: "b1"}); err != nil {
		t.Fatalf("UpsertBridge() error = %v", err)
	}
	if err := s.SetBridgeDevices("b1", []model.BridgeDevice{{EntityID: "light.x"}}); err != nil {
		t.Fatalf("SetBridgeDevices() error = %v", err)
	}
	if err := s.SetBridgeRuntime("b1", model.BridgeRuntimeState{Status: model.RuntimeRunning}); err != nil {
		t.Fatalf("SetBridgeRuntime() error = %v", err)
	}

	if err := s.DeleteBridge("b1"); err != nil {
		t.Fatalf("DeleteBridge() error = %v", err)
	}

	if _, err := s.GetBridge("b1"); !errors.Is(err, model.ErrBridgeNotFound) {
		t.Fatalf("GetBridge() after delete error = %v, want ErrBridgeNotFound", err)
	}
	devices, err := s.ListBridgeDevices("b1")
	if err != nil {
		t.Fatalf("ListBridgeDevices() error = %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("ListBridgeDevices() len = %d, want 0", len(devices))
	}
	if _, ok, err := s.GetBridgeRuntime("b1"); err != nil || ok {
		t.Errorf("GetBridgeRuntime() = (_, %v), want ok=false", ok)
	}
}

func TestNextQueuedOperation_ReturnsMostRecentlyInserted(t *testing.T) {
	s := New(t.TempDir())

	first := model.BridgeOperation{OperationID: "op1", BridgeID: "b1", OpType: model.OpStart, Status: model.StatusQueued, QueuedAt: time.Now()}
	second := model.BridgeOperation{OperationID: "op2", BridgeID: "b1", OpType: model.OpStop, Status: model.StatusQueued, QueuedAt: time.Now()}

	if err := s.AddOperation(first); err != nil {
		t.Fatalf("AddOperation(first) error = %v", err)
	}
	if err := s.AddOperation(second); err != nil {
		t.Fatalf("AddOperation(second) error = %v", err)
	}

	next, ok, err := s.NextQueuedOperation()
	if err != nil {
		t.Fatalf("NextQueuedOperation() error = %v", err)
	}
	if !ok {
		t.Fatal("NextQueuedOperation() ok = false, want true")
	}
	if next.OperationID != "op2" {
		t.Errorf("NextQueuedOperation() id = %q, want %q (last inserted)", next.OperationID, "op2")
	}
}

func TestUpdateOperation_MarksCompletedAndSkippedByNext(t *testing.T) {
	s := New(t.TempDir())

	op := model.BridgeOperation{OperationID: "op1", BridgeID: "b1", OpType: model.OpStart, Status: model.StatusQueued, QueuedAt: time.Now()}
	if err := s.AddOperation(op); err != nil {
		t.Fatalf("AddOperation() error = %v", err)
	}

	now := time.Now()
	op.Status = model.StatusCompleted
	op.FinishedAt = &now
	if err := s.UpdateOperation(op); err != nil {
		t.Fatalf("UpdateOperation() error = %v", err)
	}

	_, ok, err := s.NextQueuedOperation()
	if err != nil {
		t.Fatalf("NextQueuedOperation() error = %v", err)
	}
	if ok {
		t.Fatal("NextQueuedOperation() ok = true, want false after completion")
	}

	ops, err := s.ListOperations()
	if err != nil {
		t.Fatalf("ListOperations() error = %v", err)
	}
	if len(ops) != 1 || ops[0].Status != model.StatusCompleted {
		t.Errorf("ListOperations() = %+v, want single completed op", ops)
	}
}

func TestUpdateOperation_NotFound(t *testing.T) {
	s := New(t.TempDir())
	err := s.UpdateOperation(model.BridgeOperation{OperationID: "missing"})
	if !errors.Is(err, model.ErrOperationNotFound) {
		t.Fatalf("UpdateOperation() error = %v, want ErrOperationNotFound", err)
	}
}

func TestLoad_MissingFileIsEmptyState(t *testing.T) {
	s := New(t.TempDir())
	bridges, err := s.ListBridges()
	if err != nil {
		t.Fatalf("ListBridges() error = %v", err)
	}
	if len(bridges) != 0 {
		t.Errorf("ListBridges() len = %d, want 0", len(bridges))
	}
}

func TestSave_WritesViaTempFileAndRename(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.UpsertBridge(model.BridgeConfig{ID: "b1"}); err != nil {
		t.Fatalf("UpsertBridge() error = %v", err)
	}

	finalPath := filepath.Join(dir, stateFileName)
	if _, err := os.Stat(finalPath); err != nil {
		t.Fatalf("expected storage.json to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, tmpFileName)); err == nil {
		t.Errorf("expected storage.json.tmp to be renamed away")
	}
}
