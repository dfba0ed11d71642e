package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/httputil"
)

type triggerSyncRequest struct {
	ServerID  string `json:"server_id,omitempty"`
	LibraryID string `json:"library_id,omitempty"`
}

// handleTriggerSync admits a sync. An empty body syncs the whole account;
// naming a server and library syncs just that section. Either way the
// response carries the job handle and whether the request was admitted or
// skipped because the target was already in flight.
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	var req triggerSyncRequest
	if err := httputil.ReadJSON(r, &req); err != nil && r.ContentLength > 0 {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	accountID := s.accountID(r)

	if req.LibraryID == "" {
		sub, err := s.coord.SubmitAccountByID(r.Context(), accountID)
		if err != nil {
			log.Printf("API: trigger account sync: %v", err)
			httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not start sync")
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, sub)
		return
	}

	serverID, err := uuid.Parse(req.ServerID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "server_id is required with library_id")
		return
	}
	libraryID, err := uuid.Parse(req.LibraryID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid library_id")
		return
	}

	sub, err := s.coord.SubmitLibraryByID(r.Context(), accountID, serverID, libraryID)
	if err != nil {
		log.Printf("API: trigger library sync: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not start sync")
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, sub)
}

func (s *Server) handleGetSyncJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid job id")
		return
	}

	job, err := s.syncJobRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "sync job not found")
		return
	}
	if job.AccountID != s.accountID(r) {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "sync job not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

func (s *Server) handleListSyncJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	jobs, err := s.syncJobRepo.ListRecentByAccount(s.accountID(r), limit)
	if err != nil {
		log.Printf("API: list sync jobs: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not list jobs")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, jobs)
}
