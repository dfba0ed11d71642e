package api

import (
	"log"
	"net/http"

	"github.com/georgepapagapitos/plexify/internal/httputil"
)

// Settings keys the API accepts. Everything else is rejected so a typo in
// a client does not silently create a dead key.
var allowedSettings = map[string]bool{
	"webhook_url":            true,
	"scheduler_enabled":      true,
	"scheduler_cadence":      true,
	"library_lock_ttl":       true,
	"account_lock_ttl":       true,
	"sync_max_attempts":      true,
	"plex_client_identifier": true,
	"worker_queue":           true,
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsRepo.GetAll()
	if err != nil {
		log.Printf("API: get settings: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not load settings")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	for key := range req {
		if !allowedSettings[key] {
			httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown setting: "+key)
			return
		}
	}

	if err := s.settingsRepo.SetAll(req); err != nil {
		log.Printf("API: update settings: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not save settings")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}
