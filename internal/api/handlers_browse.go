package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/httputil"
	"github.com/georgepapagapitos/plexify/internal/models"
	"github.com/georgepapagapitos/plexify/internal/repository"
)

const maxListedActors = 5

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	servers, err := s.serverRepo.ListByAccount(s.accountID(r))
	if err != nil {
		log.Printf("API: list servers: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not list servers")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, servers)
}

func (s *Server) handleListServerLibraries(w http.ResponseWriter, r *http.Request) {
	serverID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid server id")
		return
	}

	server, err := s.serverRepo.GetByID(serverID)
	if err != nil || server.AccountID != s.accountID(r) {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "server not found")
		return
	}

	libraries, err := s.libraryRepo.ListByServer(server.ID)
	if err != nil {
		log.Printf("API: list libraries: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not list libraries")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, libraries)
}

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	libraries, err := s.libraryRepo.ListByAccount(s.accountID(r))
	if err != nil {
		log.Printf("API: list libraries: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not list libraries")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, libraries)
}

// libraryForAccount loads a library and verifies it hangs off one of the
// caller's servers.
func (s *Server) libraryForAccount(r *http.Request, libraryID uuid.UUID) (*models.Library, bool) {
	library, err := s.libraryRepo.GetByID(libraryID)
	if err != nil {
		return nil, false
	}
	server, err := s.serverRepo.GetByID(library.ServerID)
	if err != nil || server.AccountID != s.accountID(r) {
		return nil, false
	}
	return library, true
}

func (s *Server) handleListLibraryMovies(w http.ResponseWriter, r *http.Request) {
	libraryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid library id")
		return
	}
	library, ok := s.libraryForAccount(r, libraryID)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "library not found")
		return
	}

	limit, offset := pagination(r)
	movies, err := s.movieRepo.ListByLibrary(library.ID, limit, offset)
	if err != nil {
		log.Printf("API: list movies: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not list movies")
		return
	}
	total, err := s.movieRepo.CountByLibrary(library.ID)
	if err != nil {
		log.Printf("API: count movies: %v", err)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"movies": capActors(movies),
		"total":  total,
	})
}

func (s *Server) handleListLibraryShows(w http.ResponseWriter, r *http.Request) {
	libraryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid library id")
		return
	}
	library, ok := s.libraryForAccount(r, libraryID)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "library not found")
		return
	}

	limit, offset := pagination(r)
	shows, err := s.tvRepo.ListShowsByLibrary(library.ID, limit, offset)
	if err != nil {
		log.Printf("API: list shows: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not list shows")
		return
	}
	total, err := s.tvRepo.CountShowsByLibrary(library.ID)
	if err != nil {
		log.Printf("API: count shows: %v", err)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"shows": shows,
		"total": total,
	})
}

func (s *Server) handleListShowSeasons(w http.ResponseWriter, r *http.Request) {
	showID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid show id")
		return
	}

	show, err := s.tvRepo.GetShowByID(showID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "show not found")
		return
	}
	if _, ok := s.libraryForAccount(r, show.LibraryID); !ok {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "show not found")
		return
	}

	seasons, err := s.tvRepo.ListSeasonsByShow(show.ID)
	if err != nil {
		log.Printf("API: list seasons: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not list seasons")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, seasons)
}

func (s *Server) handleListSeasonEpisodes(w http.ResponseWriter, r *http.Request) {
	seasonID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid season id")
		return
	}

	episodes, err := s.tvRepo.ListEpisodesBySeason(seasonID)
	if err != nil {
		log.Printf("API: list episodes: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not list episodes")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, episodes)
}

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.genreRepo.List()
	if err != nil {
		log.Printf("API: list genres: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not list genres")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, genres)
}

// ──────────────────── Dashboard ────────────────────

func (s *Server) handleRecentMovies(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	movies, err := s.movieRepo.ListRecentlyAdded(s.accountID(r), limit)
	if err != nil {
		log.Printf("API: recent movies: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not list recent movies")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, capActors(movies))
}

func (s *Server) handleRandomMovie(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.RandomPickFilter{GenreSlug: q.Get("genre")}
	if v := q.Get("min_rating"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinRating = f
		}
	}
	if v := q.Get("max_duration_ms"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.MaxDurationMS = n
		}
	}

	movie, err := s.movieRepo.Random(s.accountID(r), filter)
	if err != nil {
		log.Printf("API: random movie: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not pick a movie")
		return
	}
	if movie == nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "no movie matches the filters")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, movie)
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movieID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid movie id")
		return
	}

	movie, err := s.movieRepo.GetByID(movieID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "movie not found")
		return
	}
	if _, ok := s.libraryForAccount(r, movie.LibraryID); !ok {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "movie not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, movie)
}

// ──────────────────── Helpers ────────────────────

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// capActors trims listing payloads to the first few credited actors. The
// full cast stays in storage and on the detail endpoint.
func capActors(movies []*models.Movie) []*models.Movie {
	for _, m := range movies {
		if len(m.Actors) > maxListedActors {
			m.Actors = m.Actors[:maxListedActors]
		}
	}
	return movies
}
