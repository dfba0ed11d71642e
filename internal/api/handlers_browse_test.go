package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/models"
	"github.com/georgepapagapitos/plexify/internal/repository"
)

type fakeMovieStore struct {
	movie      *models.Movie
	err        error
	lastFilter repository.RandomPickFilter
}

func (f *fakeMovieStore) GetByID(id uuid.UUID) (*models.Movie, error) { return f.movie, f.err }

func (f *fakeMovieStore) ListByLibrary(libraryID uuid.UUID, limit, offset int) ([]*models.Movie, error) {
	return nil, f.err
}

func (f *fakeMovieStore) CountByLibrary(libraryID uuid.UUID) (int, error) { return 0, f.err }

func (f *fakeMovieStore) ListRecentlyAdded(accountID uuid.UUID, limit int) ([]*models.Movie, error) {
	return nil, f.err
}

func (f *fakeMovieStore) Random(accountID uuid.UUID, filter repository.RandomPickFilter) (*models.Movie, error) {
	f.lastFilter = filter
	return f.movie, f.err
}

func TestPaginationDefaults(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"no params", "", 50, 0},
		{"explicit", "?limit=25&offset=100", 25, 100},
		{"limit over cap", "?limit=500", 50, 0},
		{"zero limit", "?limit=0", 50, 0},
		{"negative offset", "?offset=-5", 50, 0},
		{"garbage", "?limit=abc&offset=xyz", 50, 0},
		{"at cap", "?limit=200", 200, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/libraries/x/movies"+tt.query, nil)
			limit, offset := pagination(r)
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("pagination = (%d, %d), want (%d, %d)", limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestRandomMovieNoMatchIs404(t *testing.T) {
	s := &Server{movieRepo: &fakeMovieStore{}}
	w := httptest.NewRecorder()
	s.handleRandomMovie(w, httptest.NewRequest("GET", "/api/v1/movies/random?genre=western", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when no movie matches", w.Code)
	}
	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "error" || resp.Error.Code != "NOT_FOUND" {
		t.Errorf("envelope = %+v, want a NOT_FOUND error", resp)
	}
}

func TestRandomMovieStoreFailureIs500(t *testing.T) {
	s := &Server{movieRepo: &fakeMovieStore{err: errors.New("db gone")}}
	w := httptest.NewRecorder()
	s.handleRandomMovie(w, httptest.NewRequest("GET", "/api/v1/movies/random", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 when the store fails", w.Code)
	}
}

func TestRandomMovieFilterParsing(t *testing.T) {
	store := &fakeMovieStore{movie: &models.Movie{Title: "Picked"}}
	s := &Server{movieRepo: store}
	w := httptest.NewRecorder()
	s.handleRandomMovie(w, httptest.NewRequest("GET",
		"/api/v1/movies/random?genre=comedy&min_rating=7.5&max_duration_ms=5400000", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if store.lastFilter.GenreSlug != "comedy" {
		t.Errorf("genre = %q", store.lastFilter.GenreSlug)
	}
	if store.lastFilter.MinRating != 7.5 {
		t.Errorf("min rating = %v, want 7.5", store.lastFilter.MinRating)
	}
	if store.lastFilter.MaxDurationMS != 5400000 {
		t.Errorf("max duration = %d, want 5400000", store.lastFilter.MaxDurationMS)
	}
}

func TestCapActorsTrimsListings(t *testing.T) {
	long := []string{"A", "B", "C", "D", "E", "F", "G"}
	short := []string{"A", "B"}
	movies := []*models.Movie{
		{Title: "Crowded", Actors: append([]string(nil), long...)},
		{Title: "Sparse", Actors: append([]string(nil), short...)},
		{Title: "Empty"},
	}

	capActors(movies)

	if len(movies[0].Actors) != maxListedActors {
		t.Errorf("crowded cast = %d actors, want %d", len(movies[0].Actors), maxListedActors)
	}
	if got := movies[0].Actors[0]; got != "A" {
		t.Errorf("trim kept %q first, want the leading credits", got)
	}
	if len(movies[1].Actors) != 2 {
		t.Errorf("short cast trimmed to %d", len(movies[1].Actors))
	}
	if len(movies[2].Actors) != 0 {
		t.Errorf("empty cast grew to %d", len(movies[2].Actors))
	}
}
