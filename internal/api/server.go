package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/auth"
	"github.com/georgepapagapitos/plexify/internal/config"
	"github.com/georgepapagapitos/plexify/internal/coordinator"
	"github.com/georgepapagapitos/plexify/internal/db"
	"github.com/georgepapagapitos/plexify/internal/models"
	"github.com/georgepapagapitos/plexify/internal/repository"
)

// movieStore is the slice of the movie repository the browse handlers
// touch, kept narrow so handler tests can stand in a fake.
type movieStore interface {
	GetByID(id uuid.UUID) (*models.Movie, error)
	ListByLibrary(libraryID uuid.UUID, limit, offset int) ([]*models.Movie, error)
	CountByLibrary(libraryID uuid.UUID) (int, error)
	ListRecentlyAdded(accountID uuid.UUID, limit int) ([]*models.Movie, error)
	Random(accountID uuid.UUID, filter repository.RandomPickFilter) (*models.Movie, error)
}

type Server struct {
	config       *config.Config
	db           *db.DB
	tokens       *auth.TokenManager
	authmw       *auth.Middleware
	accountRepo  *repository.AccountRepository
	serverRepo   *repository.ServerRepository
	libraryRepo  *repository.LibraryRepository
	movieRepo    movieStore
	tvRepo       *repository.TVRepository
	genreRepo    *repository.GenreRepository
	syncJobRepo  *repository.SyncJobRepository
	settingsRepo *repository.SettingsRepository
	coord        *coordinator.Coordinator
	wsHub        *WSHub
	router       *http.ServeMux
}

func NewServer(cfg *config.Config, database *db.DB, coord *coordinator.Coordinator) (*Server, error) {
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:       cfg,
		db:           database,
		tokens:       tokens,
		authmw:       auth.NewMiddleware(tokens),
		accountRepo:  repository.NewAccountRepository(database.DB),
		serverRepo:   repository.NewServerRepository(database.DB),
		libraryRepo:  repository.NewLibraryRepository(database.DB),
		movieRepo:    repository.NewMovieRepository(database.DB),
		tvRepo:       repository.NewTVRepository(database.DB),
		genreRepo:    repository.NewGenreRepository(database.DB),
		syncJobRepo:  repository.NewSyncJobRepository(database.DB),
		settingsRepo: repository.NewSettingsRepository(database.DB),
		coord:        coord,
		wsHub:        NewWSHub(),
		router:       http.NewServeMux(),
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) setupRoutes() {
	// Public
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	// WebSocket
	s.router.HandleFunc("GET /api/v1/ws", s.handleWebSocket)

	// Profile
	s.router.HandleFunc("GET /api/v1/profile", s.authMiddleware(s.handleGetProfile))
	s.router.HandleFunc("PUT /api/v1/profile/sync", s.authMiddleware(s.handleUpdateSyncPreferences))

	// Sync triggers and job handles
	s.router.HandleFunc("POST /api/v1/sync", s.authMiddleware(s.handleTriggerSync))
	s.router.HandleFunc("GET /api/v1/sync/jobs", s.authMiddleware(s.handleListSyncJobs))
	s.router.HandleFunc("GET /api/v1/sync/jobs/{id}", s.authMiddleware(s.handleGetSyncJob))

	// Catalog browse
	s.router.HandleFunc("GET /api/v1/servers", s.authMiddleware(s.handleListServers))
	s.router.HandleFunc("GET /api/v1/servers/{id}/libraries", s.authMiddleware(s.handleListServerLibraries))
	s.router.HandleFunc("GET /api/v1/libraries", s.authMiddleware(s.handleListLibraries))
	s.router.HandleFunc("GET /api/v1/libraries/{id}/movies", s.authMiddleware(s.handleListLibraryMovies))
	s.router.HandleFunc("GET /api/v1/libraries/{id}/shows", s.authMiddleware(s.handleListLibraryShows))
	s.router.HandleFunc("GET /api/v1/shows/{id}/seasons", s.authMiddleware(s.handleListShowSeasons))
	s.router.HandleFunc("GET /api/v1/seasons/{id}/episodes", s.authMiddleware(s.handleListSeasonEpisodes))
	s.router.HandleFunc("GET /api/v1/genres", s.authMiddleware(s.handleListGenres))

	// Dashboard
	s.router.HandleFunc("GET /api/v1/movies/recent", s.authMiddleware(s.handleRecentMovies))
	s.router.HandleFunc("GET /api/v1/movies/random", s.authMiddleware(s.handleRandomMovie))
	s.router.HandleFunc("GET /api/v1/movies/{id}", s.authMiddleware(s.handleGetMovie))

	// Settings
	s.router.HandleFunc("GET /api/v1/settings", s.authMiddleware(s.handleGetSettings))
	s.router.HandleFunc("PUT /api/v1/settings", s.authMiddleware(s.handleUpdateSettings))
}

// ──────────────────── Middleware ────────────────────

func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return s.authmw.RequireAuth(next).ServeHTTP
}

// accountID pulls the authenticated account out of the request context.
func (s *Server) accountID(r *http.Request) uuid.UUID {
	data := auth.AccountFromContext(r.Context())
	if data == nil {
		return uuid.Nil
	}
	id, _ := uuid.Parse(data.AccountID)
	return id
}

func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.router)
}

// corsMiddleware handles CORS preflight and response headers globally.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
