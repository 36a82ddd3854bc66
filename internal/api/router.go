package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.securityHeadersMiddleware)

	r.Route("/api/matter", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/events", s.handleWebSocket)

		r.Get("/operations", s.handleListOperations)

		r.Get("/bridges", s.handleListBridges)
		r.Post("/bridges", s.handleCreateBridge)
		r.Get("/bridges/runtime", s.handleListBridgeRuntime)

		r.Get("/bridges/{id}", s.handleGetBridge)
		r.Put("/bridges/{id}", s.handleUpdateBridge)
		r.Delete("/bridges/{id}", s.handleDeleteBridge)

		r.Post("/bridges/{id}/actions/start", s.handleStartBridge)
		r.Post("/bridges/{id}/actions/stop", s.handleStopBridge)
		r.Post("/bridges/{id}/actions/refresh", s.handleRefreshBridge)
		r.Post("/bridges/{id}/actions/factory-reset", s.handleFactoryResetBridge)

		r.Get("/bridges/{id}/devices", s.handleListDevices)
		r.Post("/bridges/{id}/devices/{entityID}/actions/on", s.handleDeviceOn)
		r.Post("/bridges/{id}/devices/{entityID}/actions/off", s.handleDeviceOff)
		r.Post("/bridges/{id}/devices/{entityID}/actions/color", s.handleDeviceColor)
		r.Get("/bridges/{id}/devices/{entityID}/history", s.handleDeviceHistory)

		r.Get("/bridges/{id}/runtime", s.handleGetBridgeRuntime)
		r.Get("/bridges/{id}/pairing", s.handleGetPairing)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
