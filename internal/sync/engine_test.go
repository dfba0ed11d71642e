package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/models"
	"github.com/georgepapagapitos/plexify/internal/plex"
)

// ──────────────────── fakes ────────────────────

type fakeRemote struct {
	sections map[string][]plex.Metadata
	children map[string][]plex.Metadata
	// ratingKey → error, for injecting branch failures
	childErr map[string]error
	sectErr  error
}

func (f *fakeRemote) SectionItems(ctx context.Context, server *models.Server, sectionID string) ([]plex.Metadata, string, error) {
	if f.sectErr != nil {
		return nil, "", f.sectErr
	}
	return f.sections[sectionID], "http://srv:32400", nil
}

func (f *fakeRemote) Children(ctx context.Context, server *models.Server, ratingKey string) ([]plex.Metadata, string, error) {
	if err := f.childErr[ratingKey]; err != nil {
		return nil, "", err
	}
	return f.children[ratingKey], "http://srv:32400", nil
}

type fakeMovieStore struct {
	upserts []*models.Movie
	seen    map[string]bool
	genres  map[uuid.UUID][]uuid.UUID
}

func newFakeMovieStore() *fakeMovieStore {
	return &fakeMovieStore{seen: make(map[string]bool), genres: make(map[uuid.UUID][]uuid.UUID)}
}

func (f *fakeMovieStore) Upsert(movie *models.Movie) (bool, error) {
	movie.ID = uuid.New()
	f.upserts = append(f.upserts, movie)
	created := !f.seen[movie.PlexKey]
	f.seen[movie.PlexKey] = true
	return created, nil
}

func (f *fakeMovieStore) SetGenres(movieID uuid.UUID, genreIDs []uuid.UUID) error {
	f.genres[movieID] = genreIDs
	return nil
}

type fakeTVStore struct {
	shows    []*models.Show
	seasons  []*models.Season
	episodes []*models.Episode
	seen     map[string]bool
}

func newFakeTVStore() *fakeTVStore {
	return &fakeTVStore{seen: make(map[string]bool)}
}

func (f *fakeTVStore) upsertKey(key string) bool {
	created := !f.seen[key]
	f.seen[key] = true
	return created
}

func (f *fakeTVStore) UpsertShow(show *models.Show) (bool, error) {
	show.ID = uuid.New()
	f.shows = append(f.shows, show)
	return f.upsertKey("show:" + show.PlexKey), nil
}

func (f *fakeTVStore) SetShowGenres(showID uuid.UUID, genreIDs []uuid.UUID) error { return nil }

func (f *fakeTVStore) UpsertSeason(season *models.Season) (bool, error) {
	season.ID = uuid.New()
	f.seasons = append(f.seasons, season)
	return f.upsertKey(fmt.Sprintf("season:%s:%d", season.ShowID, season.SeasonNumber)), nil
}

func (f *fakeTVStore) UpsertEpisode(episode *models.Episode) (bool, error) {
	episode.ID = uuid.New()
	f.episodes = append(f.episodes, episode)
	return f.upsertKey(fmt.Sprintf("episode:%s:%d", episode.SeasonID, episode.EpisodeNumber)), nil
}

type fakeGenreStore struct{}

func (fakeGenreStore) GetOrCreateAll(names []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(names))
	for i := range names {
		ids[i] = uuid.New()
	}
	return ids, nil
}

type fakeLibraryStore struct {
	lastSynced []uuid.UUID
}

func (f *fakeLibraryStore) UpdateLastSynced(id uuid.UUID) error {
	f.lastSynced = append(f.lastSynced, id)
	return nil
}

func movieLibrary() (*models.Server, *models.Library) {
	server := &models.Server{ID: uuid.New(), Name: "den", MachineIdentifier: "m1"}
	library := &models.Library{ID: uuid.New(), ServerID: server.ID, Name: "Movies", SectionID: "1", LibraryType: models.LibraryMovie}
	return server, library
}

func showLibrary() (*models.Server, *models.Library) {
	server := &models.Server{ID: uuid.New(), Name: "den", MachineIdentifier: "m1"}
	library := &models.Library{ID: uuid.New(), ServerID: server.ID, Name: "TV", SectionID: "2", LibraryType: models.LibraryShow}
	return server, library
}

// ──────────────────── tests ────────────────────

func TestSyncMovieLibraryCounts(t *testing.T) {
	server, library := movieLibrary()
	remote := &fakeRemote{sections: map[string][]plex.Metadata{
		"1": {
			{RatingKey: "10", Type: "movie", Title: "Alien"},
			{RatingKey: "11", Type: "movie", Title: "Aliens"},
		},
	}}
	movies := newFakeMovieStore()
	libs := &fakeLibraryStore{}
	engine := NewEngine(remote, movies, newFakeTVStore(), fakeGenreStore{}, libs)

	result, err := engine.SyncLibrary(context.Background(), server, library)
	if err != nil {
		t.Fatalf("SyncLibrary failed: %v", err)
	}
	if result.Movies.Added != 2 || result.Movies.Updated != 0 || result.Movies.Total != 2 {
		t.Errorf("first run counts = %+v, want 2 added", result.Movies)
	}

	// Second run over the same items updates rather than adds.
	result, err = engine.SyncLibrary(context.Background(), server, library)
	if err != nil {
		t.Fatalf("second SyncLibrary failed: %v", err)
	}
	if result.Movies.Added != 0 || result.Movies.Updated != 2 {
		t.Errorf("second run counts = %+v, want 2 updated", result.Movies)
	}

	if len(libs.lastSynced) != 2 {
		t.Errorf("UpdateLastSynced called %d times, want 2", len(libs.lastSynced))
	}
}

func TestSyncLibrarySkipsMalformedItems(t *testing.T) {
	server, library := movieLibrary()
	remote := &fakeRemote{sections: map[string][]plex.Metadata{
		"1": {
			{RatingKey: "10", Type: "movie", Title: "Good"},
			{Type: "movie", Title: "No Key"},
			{RatingKey: "12", Type: "movie"}, // no title
		},
	}}
	movies := newFakeMovieStore()
	engine := NewEngine(remote, movies, newFakeTVStore(), fakeGenreStore{}, &fakeLibraryStore{})

	result, err := engine.SyncLibrary(context.Background(), server, library)
	if err != nil {
		t.Fatalf("SyncLibrary failed: %v", err)
	}
	if result.Movies.Total != 1 {
		t.Errorf("Total = %d, want 1", result.Movies.Total)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("Skipped = %d, want 2: %+v", len(result.Skipped), result.Skipped)
	}
	for _, skip := range result.Skipped {
		if skip.Reason == "" {
			t.Errorf("skip diagnostic has no reason: %+v", skip)
		}
	}
}

func TestSyncLibraryTopLevelFetchFails(t *testing.T) {
	server, library := movieLibrary()
	remote := &fakeRemote{sectErr: &plex.NetworkError{Op: "GET /all", Err: errors.New("timeout")}}
	libs := &fakeLibraryStore{}
	engine := NewEngine(remote, newFakeMovieStore(), newFakeTVStore(), fakeGenreStore{}, libs)

	if _, err := engine.SyncLibrary(context.Background(), server, library); err == nil {
		t.Fatal("expected error when section listing fails")
	}
	if len(libs.lastSynced) != 0 {
		t.Error("last-synced marker advanced on a failed run")
	}
}

func TestSyncShowLibraryWalksTree(t *testing.T) {
	server, library := showLibrary()
	remote := &fakeRemote{
		sections: map[string][]plex.Metadata{
			"2": {{RatingKey: "100", Type: "show", Title: "The Wire"}},
		},
		children: map[string][]plex.Metadata{
			"100": {
				{RatingKey: "110", Type: "season", Title: "Season 1", Index: float64(1)},
				{RatingKey: "120", Type: "season", Title: "Season 2", Index: float64(2)},
			},
			"110": {
				{RatingKey: "111", Type: "episode", Title: "The Target", Index: float64(1)},
				{RatingKey: "112", Type: "episode", Title: "The Detail", Index: float64(2)},
			},
			"120": {
				{RatingKey: "121", Type: "episode", Title: "Ebb Tide", Index: float64(1)},
			},
		},
	}
	tv := newFakeTVStore()
	engine := NewEngine(remote, newFakeMovieStore(), tv, fakeGenreStore{}, &fakeLibraryStore{})

	result, err := engine.SyncLibrary(context.Background(), server, library)
	if err != nil {
		t.Fatalf("SyncLibrary failed: %v", err)
	}
	if result.Shows.Added != 1 || result.Seasons.Added != 2 || result.Episodes.Added != 3 {
		t.Errorf("counts = shows %+v seasons %+v episodes %+v",
			result.Shows, result.Seasons, result.Episodes)
	}

	// Parent chain is threaded through the walk.
	if len(tv.seasons) != 2 || tv.seasons[0].ShowID != tv.shows[0].ID {
		t.Error("season not linked to its show")
	}
	if len(tv.episodes) != 3 || tv.episodes[0].SeasonID != tv.seasons[0].ID {
		t.Error("episode not linked to its season")
	}
}

func TestSyncShowBranchFailureIsIsolated(t *testing.T) {
	server, library := showLibrary()
	remote := &fakeRemote{
		sections: map[string][]plex.Metadata{
			"2": {
				{RatingKey: "100", Type: "show", Title: "Dead Show"},
				{RatingKey: "200", Type: "show", Title: "Live Show"},
			},
		},
		children: map[string][]plex.Metadata{
			"200": {{RatingKey: "210", Type: "season", Title: "Season 1", Index: float64(1)}},
			"210": {{RatingKey: "211", Type: "episode", Title: "Pilot", Index: float64(1)}},
		},
		childErr: map[string]error{
			"100": &plex.NetworkError{Op: "children", Err: errors.New("conn reset")},
		},
	}
	tv := newFakeTVStore()
	libs := &fakeLibraryStore{}
	engine := NewEngine(remote, newFakeMovieStore(), tv, fakeGenreStore{}, libs)

	result, err := engine.SyncLibrary(context.Background(), server, library)
	if err != nil {
		t.Fatalf("branch failure aborted the run: %v", err)
	}

	// Both show rows land; only the live show's subtree is walked.
	if result.Shows.Total != 2 {
		t.Errorf("Shows.Total = %d, want 2", result.Shows.Total)
	}
	if result.Seasons.Total != 1 || result.Episodes.Total != 1 {
		t.Errorf("subtree counts = seasons %+v episodes %+v", result.Seasons, result.Episodes)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Key != "100" {
		t.Errorf("Skipped = %+v, want the dead show's subtree", result.Skipped)
	}

	// The run still completed, so the library marker advances.
	if len(libs.lastSynced) != 1 {
		t.Error("last-synced marker did not advance after isolated branch failure")
	}
}

func TestSyncLibraryProgressEvents(t *testing.T) {
	server, library := movieLibrary()
	items := make([]plex.Metadata, 60)
	for i := range items {
		items[i] = plex.Metadata{RatingKey: fmt.Sprintf("k%d", i), Type: "movie", Title: fmt.Sprintf("Movie %d", i)}
	}
	remote := &fakeRemote{sections: map[string][]plex.Metadata{"1": items}}
	engine := NewEngine(remote, newFakeMovieStore(), newFakeTVStore(), fakeGenreStore{}, &fakeLibraryStore{})

	var events []Progress
	engine.OnProgress(func(p Progress) { events = append(events, p) })

	if _, err := engine.SyncLibrary(context.Background(), server, library); err != nil {
		t.Fatalf("SyncLibrary failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("progress events = %d, want 2 for 60 items", len(events))
	}
	if events[0].Processed != 25 || events[0].Expected != 60 {
		t.Errorf("first event = %+v", events[0])
	}
}
