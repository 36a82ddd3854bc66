package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/hamh-bridge/internal/matterrt"
	"github.com/nerrad567/hamh-bridge/internal/model"
)

// handleGetBridgeRuntime handles GET /api/matter/bridges/{id}/runtime.
func (s *Server) handleGetBridgeRuntime(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok, err := s.store.GetBridgeRuntime(id)
	if err != nil {
		if errors.Is(err, model.ErrNoRuntimeState) {
			writeNotFound(w, "no runtime state for bridge")
			return
		}
		writeStorageError(w, err)
		return
	}
	if !ok {
		writeNotFound(w, "no runtime state for bridge")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleListBridgeRuntime handles GET /api/matter/bridges/runtime.
func (s *Server) handleListBridgeRuntime(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListBridgeRuntime()
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleGetPairing handles GET /api/matter/bridges/{id}/pairing. Pairing
// material is a pure function of the bridge id, passcode, and
// discriminator (spec §4.5) — it does not require a running runtime,
// only that the bridge itself exists.
func (s *Server) handleGetPairing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.GetBridge(id); err != nil {
		if errors.Is(err, model.ErrBridgeNotFound) {
			writeNotFound(w, "bridge not found")
			return
		}
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matterrt.PairingInfo(id, s.passcode, s.discriminator))
}
