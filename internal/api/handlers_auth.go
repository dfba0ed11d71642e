package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/auth"
	"github.com/georgepapagapitos/plexify/internal/httputil"
	"github.com/georgepapagapitos/plexify/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "DB_DOWN", "database unreachable")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	PlexToken string `json:"plex_token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" || req.PlexToken == "" {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "username, password and plex_token are required")
		return
	}

	if existing, err := s.accountRepo.GetByUsername(req.Username); err == nil && existing != nil {
		httputil.WriteError(w, http.StatusConflict, "CONFLICT", "username already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not hash password")
		return
	}

	account := &models.Account{
		ID:              uuid.New(),
		PlexUsername:    req.Username,
		PlexToken:       req.PlexToken,
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:    hash,
		AutoSyncEnabled: true,
		SyncInterval:    models.SyncDaily,
	}
	if err := s.accountRepo.Create(account); err != nil {
		log.Printf("API: create account: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not create account")
		return
	}

	token, err := s.tokens.Generate(account.ID.String(), account.PlexUsername)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not issue token")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"token":   token,
		"account": account,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	account, err := s.accountRepo.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil || !auth.CheckPassword(account.PasswordHash, req.Password) {
		httputil.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
		return
	}

	token, err := s.tokens.Generate(account.ID.String(), account.PlexUsername)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not issue token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"account": account,
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	account, err := s.accountRepo.GetByID(s.accountID(r))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "account not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

type syncPreferencesRequest struct {
	AutoSyncEnabled bool                `json:"auto_sync_enabled"`
	SyncInterval    models.SyncInterval `json:"sync_interval"`
}

func (s *Server) handleUpdateSyncPreferences(w http.ResponseWriter, r *http.Request) {
	var req syncPreferencesRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	switch req.SyncInterval {
	case models.SyncHourly, models.SyncDaily, models.SyncWeekly:
	default:
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "sync_interval must be hourly, daily or weekly")
		return
	}

	if err := s.accountRepo.UpdateSyncPreferences(s.accountID(r), req.AutoSyncEnabled, req.SyncInterval); err != nil {
		log.Printf("API: update sync preferences: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not update preferences")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"auto_sync_enabled": req.AutoSyncEnabled,
		"sync_interval":     req.SyncInterval,
	})
}
