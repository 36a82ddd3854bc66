package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// deviceServiceCallTimeout bounds the background Home Assistant service
// call kicked off by callDeviceService. The request's own context is
// canceled as soon as the handler returns (http.Request.Context's
// documented contract), so the goroutine must run on a context detached
// from it rather than r.Context().
const deviceServiceCallTimeout = 10 * time.Second

// handleListDevices handles GET /api/matter/bridges/{id}/devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	devices, err := s.store.ListBridgeDevices(id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleDeviceOn handles POST /api/matter/bridges/{id}/devices/{entityID}/actions/on.
// Device on/off/color actions are forwarded to Home Assistant directly —
// the local Matter runtime only implements the OnOff cluster for
// state mirroring, not for driving upstream devices.
func (s *Server) handleDeviceOn(w http.ResponseWriter, r *http.Request) {
	s.callDeviceService(w, r, "turn_on", nil)
}

// handleDeviceOff handles POST /api/matter/bridges/{id}/devices/{entityID}/actions/off.
func (s *Server) handleDeviceOff(w http.ResponseWriter, r *http.Request) {
	s.callDeviceService(w, r, "turn_off", nil)
}

// deviceColorRequest is the body of a color action request.
type deviceColorRequest struct {
	RGB [3]int `json:"rgb"`
}

// handleDeviceColor handles POST /api/matter/bridges/{id}/devices/{entityID}/actions/color.
func (s *Server) handleDeviceColor(w http.ResponseWriter, r *http.Request) {
	var req deviceColorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	for _, c := range req.RGB {
		if c < 0 || c > 255 {
			writeBadRequest(w, "rgb components must be in range 0-255")
			return
		}
	}
	s.callDeviceService(w, r, "turn_on", map[string]any{"rgb_color": req.RGB[:]})
}

// callDeviceService forwards a Home Assistant service call for the
// {entityID} path parameter and responds 202 Accepted. The call runs
// in the background — Home Assistant is the source of truth for the
// resulting state, which arrives back through the statestream
// supplement or the next refresh.
func (s *Server) callDeviceService(w http.ResponseWriter, r *http.Request, service string, extra map[string]any) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		writeBadRequest(w, "entity id is required")
		return
	}
	domain, _, ok := strings.Cut(entityID, ".")
	if !ok || domain == "" {
		writeBadRequest(w, "entity id must be of the form domain.object_id")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deviceServiceCallTimeout)
		defer cancel()
		if err := s.upstream.CallService(ctx, domain, service, entityID, extra); err != nil {
			s.logger.Error("device service call failed", "entity_id", entityID, "service", service, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"entity_id": entityID,
		"service":   service,
	})
}

// handleDeviceHistory handles GET /api/matter/bridges/{id}/devices/{entityID}/history.
// Available only when sqlitehist is configured (EXPANDED, supplemental
// to the original spec).
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "device history is not configured")
		return
	}

	bridgeID := chi.URLParam(r, "id")
	entityID := chi.URLParam(r, "entityID")

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.history.History(r.Context(), bridgeID, entityID, limit)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
