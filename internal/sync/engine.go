package sync

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/models"
	"github.com/georgepapagapitos/plexify/internal/normalize"
	"github.com/georgepapagapitos/plexify/internal/plex"
)

// progressEvery controls how often a Progress event fires while walking
// a section's items.
const progressEvery = 25

// Remote abstracts the resolved-connection operations the engine walks a
// library with. Each call also returns the base URL the items were fetched
// from, which the normalizer needs to absolutize artwork paths.
type Remote interface {
	SectionItems(ctx context.Context, server *models.Server, sectionID string) ([]plex.Metadata, string, error)
	Children(ctx context.Context, server *models.Server, ratingKey string) ([]plex.Metadata, string, error)
}

// ResolverRemote adapts a plex.Resolver into the Remote interface, keeping
// the resolver's cached-connection retry semantics on every call.
type ResolverRemote struct {
	Resolver *plex.Resolver
}

func (r *ResolverRemote) SectionItems(ctx context.Context, server *models.Server, sectionID string) ([]plex.Metadata, string, error) {
	var items []plex.Metadata
	var base string
	err := r.Resolver.Do(ctx, server, func(conn *plex.Connection) error {
		var err error
		items, err = conn.SectionItems(ctx, sectionID)
		base = conn.BaseURL
		return err
	})
	return items, base, err
}

func (r *ResolverRemote) Children(ctx context.Context, server *models.Server, ratingKey string) ([]plex.Metadata, string, error) {
	var items []plex.Metadata
	var base string
	err := r.Resolver.Do(ctx, server, func(conn *plex.Connection) error {
		var err error
		items, err = conn.Children(ctx, ratingKey)
		base = conn.BaseURL
		return err
	})
	return items, base, err
}

// Storage interfaces are satisfied by the repository types; the engine only
// sees what it writes.

type MovieStore interface {
	Upsert(movie *models.Movie) (bool, error)
	SetGenres(movieID uuid.UUID, genreIDs []uuid.UUID) error
}

type TVStore interface {
	UpsertShow(show *models.Show) (bool, error)
	SetShowGenres(showID uuid.UUID, genreIDs []uuid.UUID) error
	UpsertSeason(season *models.Season) (bool, error)
	UpsertEpisode(episode *models.Episode) (bool, error)
}

type GenreStore interface {
	GetOrCreateAll(names []string) ([]uuid.UUID, error)
}

type LibraryStore interface {
	UpdateLastSynced(id uuid.UUID) error
}

// Engine walks one library's remote item tree and mirrors it into storage.
// It is built per account because the remote client is bound to one token.
type Engine struct {
	remote    Remote
	movies    MovieStore
	tv        TVStore
	genres    GenreStore
	libraries LibraryStore
	progress  func(Progress)
}

func NewEngine(remote Remote, movies MovieStore, tv TVStore, genres GenreStore, libraries LibraryStore) *Engine {
	return &Engine{
		remote:    remote,
		movies:    movies,
		tv:        tv,
		genres:    genres,
		libraries: libraries,
	}
}

// OnProgress registers a callback fired periodically during a section walk.
func (e *Engine) OnProgress(fn func(Progress)) {
	e.progress = fn
}

// SyncLibrary mirrors one library section. A failure fetching the section's
// top-level listing is returned as the run's error; failures below the top
// level (a malformed item, a dead show subtree) become skip diagnostics and
// the walk continues. The library's last-synced marker advances only when
// the top-level enumeration succeeded.
func (e *Engine) SyncLibrary(ctx context.Context, server *models.Server, library *models.Library) (*Result, error) {
	items, baseURL, err := e.remote.SectionItems(ctx, server, library.SectionID)
	if err != nil {
		return nil, fmt.Errorf("fetch section %s on %s: %w", library.SectionID, server.Name, err)
	}

	result := &Result{}
	for i, md := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		switch library.LibraryType {
		case models.LibraryMovie:
			e.syncMovie(library, md, baseURL, result)
		case models.LibraryShow:
			e.syncShow(ctx, server, library, md, baseURL, result)
		default:
			result.skip(md.Type, md.RatingKey, md.Title, fmt.Sprintf("library type %q not syncable", library.LibraryType))
		}

		if e.progress != nil && (i+1)%progressEvery == 0 {
			e.progress(Progress{
				LibraryID: library.ID.String(),
				Library:   library.Name,
				Processed: i + 1,
				Expected:  len(items),
			})
		}
	}

	if err := e.libraries.UpdateLastSynced(library.ID); err != nil {
		return result, fmt.Errorf("mark library synced: %w", err)
	}

	log.Printf("Sync: library %s done: %d added, %d updated, %d total, %d skipped",
		library.Name, result.Added(), result.Updated(), result.Total(), len(result.Skipped))
	return result, nil
}

func (e *Engine) syncMovie(library *models.Library, md plex.Metadata, baseURL string, result *Result) {
	movie, err := normalize.Movie(md, baseURL)
	if err != nil {
		result.skip("movie", md.RatingKey, md.Title, err.Error())
		return
	}
	movie.LibraryID = library.ID

	created, err := e.movies.Upsert(movie)
	if err != nil {
		result.skip("movie", md.RatingKey, md.Title, fmt.Sprintf("upsert: %v", err))
		return
	}
	if err := e.linkGenres(movie.Genres, func(ids []uuid.UUID) error {
		return e.movies.SetGenres(movie.ID, ids)
	}); err != nil {
		log.Printf("Sync: genres for movie %s: %v", movie.Title, err)
	}
	result.Movies.record(created)
}

// syncShow upserts the show, then descends into seasons and episodes. Any
// failure below the show row skips that branch only.
func (e *Engine) syncShow(ctx context.Context, server *models.Server, library *models.Library, md plex.Metadata, baseURL string, result *Result) {
	show, err := normalize.Show(md, baseURL)
	if err != nil {
		result.skip("show", md.RatingKey, md.Title, err.Error())
		return
	}
	show.LibraryID = library.ID

	created, err := e.tv.UpsertShow(show)
	if err != nil {
		result.skip("show", md.RatingKey, md.Title, fmt.Sprintf("upsert: %v", err))
		return
	}
	if err := e.linkGenres(show.Genres, func(ids []uuid.UUID) error {
		return e.tv.SetShowGenres(show.ID, ids)
	}); err != nil {
		log.Printf("Sync: genres for show %s: %v", show.Title, err)
	}
	result.Shows.record(created)

	seasons, seasonBase, err := e.remote.Children(ctx, server, show.PlexKey)
	if err != nil {
		result.skip("show", md.RatingKey, md.Title, fmt.Sprintf("fetch seasons: %v", err))
		return
	}

	for _, smd := range seasons {
		e.syncSeason(ctx, server, show, smd, seasonBase, result)
	}
}

func (e *Engine) syncSeason(ctx context.Context, server *models.Server, show *models.Show, md plex.Metadata, baseURL string, result *Result) {
	season, err := normalize.Season(md, baseURL)
	if err != nil {
		result.skip("season", md.RatingKey, md.Title, err.Error())
		return
	}
	season.ShowID = show.ID

	created, err := e.tv.UpsertSeason(season)
	if err != nil {
		result.skip("season", md.RatingKey, md.Title, fmt.Sprintf("upsert: %v", err))
		return
	}
	result.Seasons.record(created)

	episodes, episodeBase, err := e.remote.Children(ctx, server, season.PlexKey)
	if err != nil {
		result.skip("season", md.RatingKey, md.Title, fmt.Sprintf("fetch episodes: %v", err))
		return
	}

	for _, emd := range episodes {
		episode, err := normalize.Episode(emd, episodeBase)
		if err != nil {
			result.skip("episode", emd.RatingKey, emd.Title, err.Error())
			continue
		}
		episode.SeasonID = season.ID

		created, err := e.tv.UpsertEpisode(episode)
		if err != nil {
			result.skip("episode", emd.RatingKey, emd.Title, fmt.Sprintf("upsert: %v", err))
			continue
		}
		result.Episodes.record(created)
	}
}

// linkGenres resolves genre names to rows and rewires the junction table.
// Genre failures never fail the item; the caller logs and moves on.
func (e *Engine) linkGenres(names []string, set func([]uuid.UUID) error) error {
	if len(names) == 0 {
		return nil
	}
	ids, err := e.genres.GetOrCreateAll(names)
	if err != nil {
		return err
	}
	return set(ids)
}
