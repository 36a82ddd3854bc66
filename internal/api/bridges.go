package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

// handleListBridges handles GET /api/matter/bridges.
func (s *Server) handleListBridges(w http.ResponseWriter, r *http.Request) {
	bridges, err := s.store.ListBridges()
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bridges)
}

// handleCreateBridge handles POST /api/matter/bridges. Creation is a
// direct store write, not a queued operation — the bridge must exist
// before its id can be referenced by subsequent lifecycle actions.
func (s *Server) handleCreateBridge(w http.ResponseWriter, r *http.Request) {
	var bridge model.BridgeConfig
	if err := json.NewDecoder(r.Body).Decode(&bridge); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if bridge.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	now := time.Now()
	bridge.ID = uuid.NewString()
	bridge.CreatedAt = now
	bridge.UpdatedAt = now

	if err := s.store.UpsertBridge(bridge); err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bridge)
}

// handleGetBridge handles GET /api/matter/bridges/{id}.
func (s *Server) handleGetBridge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	bridge, err := s.store.GetBridge(id)
	if err != nil {
		if errors.Is(err, model.ErrBridgeNotFound) {
			writeNotFound(w, "bridge not found")
			return
		}
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bridge)
}

// handleUpdateBridge handles PUT /api/matter/bridges/{id}. Like create,
// this is a direct store write — config edits take effect on the next
// refresh/restart, they do not themselves restart a running runtime.
func (s *Server) handleUpdateBridge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.store.GetBridge(id)
	if err != nil {
		if errors.Is(err, model.ErrBridgeNotFound) {
			writeNotFound(w, "bridge not found")
			return
		}
		writeStorageError(w, err)
		return
	}

	var bridge model.BridgeConfig
	if err := json.NewDecoder(r.Body).Decode(&bridge); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	bridge.ID = existing.ID
	bridge.CreatedAt = existing.CreatedAt
	bridge.UpdatedAt = time.Now()

	if err := s.store.UpsertBridge(bridge); err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bridge)
}

// handleDeleteBridge handles DELETE /api/matter/bridges/{id}. Deletion
// is queued, not performed directly — the dispatcher stops the running
// runtime and removes stored state before the bridge config itself is
// removed from the store.
func (s *Server) handleDeleteBridge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.GetBridge(id); err != nil {
		if errors.Is(err, model.ErrBridgeNotFound) {
			writeNotFound(w, "bridge not found")
			return
		}
		writeStorageError(w, err)
		return
	}

	if _, err := s.queue.Enqueue(id, model.OpDelete); err != nil {
		writeRuntimeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStartBridge handles POST /api/matter/bridges/{id}/actions/start.
func (s *Server) handleStartBridge(w http.ResponseWriter, r *http.Request) {
	s.enqueueLifecycleAction(w, r, model.OpStart)
}

// handleStopBridge handles POST /api/matter/bridges/{id}/actions/stop.
func (s *Server) handleStopBridge(w http.ResponseWriter, r *http.Request) {
	s.enqueueLifecycleAction(w, r, model.OpStop)
}

// handleRefreshBridge handles POST /api/matter/bridges/{id}/actions/refresh.
func (s *Server) handleRefreshBridge(w http.ResponseWriter, r *http.Request) {
	s.enqueueLifecycleAction(w, r, model.OpRefresh)
}

// handleFactoryResetBridge handles POST /api/matter/bridges/{id}/actions/factory-reset.
func (s *Server) handleFactoryResetBridge(w http.ResponseWriter, r *http.Request) {
	s.enqueueLifecycleAction(w, r, model.OpFactoryReset)
}

// enqueueLifecycleAction enqueues opType for the bridge named by the
// {id} path parameter and responds 202 Accepted with the queued
// operation. The caller polls GET /api/matter/operations or the
// runtime read-outs for completion.
func (s *Server) enqueueLifecycleAction(w http.ResponseWriter, r *http.Request, opType model.OperationType) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.GetBridge(id); err != nil {
		if errors.Is(err, model.ErrBridgeNotFound) {
			writeNotFound(w, "bridge not found")
			return
		}
		writeStorageError(w, err)
		return
	}

	op, err := s.queue.Enqueue(id, opType)
	if err != nil {
		writeRuntimeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, op)
}
