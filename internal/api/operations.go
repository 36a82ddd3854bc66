package api

import "net/http"

// handleListOperations handles GET /api/matter/operations.
func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	ops, err := s.store.ListOperations()
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}
