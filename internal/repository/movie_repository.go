package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/georgepapagapitos/plexify/internal/models"
)

type MovieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

const movieColumns = `id, library_id, plex_key, title, sort_title, summary, tagline,
	duration_ms, rating, content_rating, studio, year, originally_available,
	thumb_url, art_url, directors, writers, actors, added_at, created_at, updated_at`

func scanMovie(row interface{ Scan(dest ...interface{}) error }) (*models.Movie, error) {
	m := &models.Movie{}
	err := row.Scan(
		&m.ID, &m.LibraryID, &m.PlexKey, &m.Title, &m.SortTitle, &m.Summary, &m.Tagline,
		&m.DurationMS, &m.Rating, &m.ContentRating, &m.Studio, &m.Year, &m.OriginallyAvailable,
		&m.ThumbURL, &m.ArtURL, &m.Directors, &m.Writers, &m.Actors,
		&m.AddedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

// Upsert inserts or updates a movie keyed by (library_id, plex_key) and
// reports whether a new row was created. xmax = 0 distinguishes a fresh
// insert from the conflict-update arm.
func (r *MovieRepository) Upsert(movie *models.Movie) (bool, error) {
	if movie.ID == uuid.Nil {
		movie.ID = uuid.New()
	}
	query := `
		INSERT INTO movies (id, library_id, plex_key, title, sort_title, summary, tagline,
			duration_ms, rating, content_rating, studio, year, originally_available,
			thumb_url, art_url, directors, writers, actors, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (library_id, plex_key) DO UPDATE SET
			title = EXCLUDED.title, sort_title = EXCLUDED.sort_title,
			summary = EXCLUDED.summary, tagline = EXCLUDED.tagline,
			duration_ms = EXCLUDED.duration_ms, rating = EXCLUDED.rating,
			content_rating = EXCLUDED.content_rating, studio = EXCLUDED.studio,
			year = EXCLUDED.year, originally_available = EXCLUDED.originally_available,
			thumb_url = EXCLUDED.thumb_url, art_url = EXCLUDED.art_url,
			directors = EXCLUDED.directors, writers = EXCLUDED.writers,
			actors = EXCLUDED.actors, added_at = EXCLUDED.added_at,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, (xmax = 0)`
	var created bool
	err := r.db.QueryRow(query, movie.ID, movie.LibraryID, movie.PlexKey, movie.Title,
		movie.SortTitle, movie.Summary, movie.Tagline, movie.DurationMS, movie.Rating,
		movie.ContentRating, movie.Studio, movie.Year, movie.OriginallyAvailable,
		movie.ThumbURL, movie.ArtURL, pq.Array([]string(movie.Directors)),
		pq.Array([]string(movie.Writers)), pq.Array([]string(movie.Actors)), movie.AddedAt).
		Scan(&movie.ID, &created)
	return created, err
}

// SetGenres replaces a movie's genre associations.
func (r *MovieRepository) SetGenres(movieID uuid.UUID, genreIDs []uuid.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM movie_genres WHERE movie_id = $1`, movieID); err != nil {
		return err
	}
	for _, gid := range genreIDs {
		if _, err := tx.Exec(
			`INSERT INTO movie_genres (movie_id, genre_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			movieID, gid,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *MovieRepository) GetByID(id uuid.UUID) (*models.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE id = $1`
	movie, err := scanMovie(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("movie not found")
	}
	if err != nil {
		return nil, err
	}
	movie.Genres, _ = r.genresFor(id)
	return movie, nil
}

func (r *MovieRepository) ListByLibrary(libraryID uuid.UUID, limit, offset int) ([]*models.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE library_id = $1
		ORDER BY sort_title LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(query, libraryID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []*models.Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	return movies, rows.Err()
}

// ListRecentlyAdded is a presentation view over synced items.
func (r *MovieRepository) ListRecentlyAdded(accountID uuid.UUID, limit int) ([]*models.Movie, error) {
	query := `
		SELECT m.id, m.library_id, m.plex_key, m.title, m.sort_title, m.summary, m.tagline,
		       m.duration_ms, m.rating, m.content_rating, m.studio, m.year, m.originally_available,
		       m.thumb_url, m.art_url, m.directors, m.writers, m.actors,
		       m.added_at, m.created_at, m.updated_at
		FROM movies m
		JOIN libraries l ON l.id = m.library_id
		JOIN servers s ON s.id = l.server_id
		WHERE s.account_id = $1
		ORDER BY m.added_at DESC LIMIT $2`
	rows, err := r.db.Query(query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []*models.Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	return movies, rows.Err()
}

// RandomPickFilter narrows the candidate pool for a random movie pick.
// Zero values leave a dimension unfiltered.
type RandomPickFilter struct {
	MinRating     float64
	MaxDurationMS int64
	GenreSlug     string
}

// Random returns one random movie across the account's libraries matching
// the filter, or nil when nothing matches.
func (r *MovieRepository) Random(accountID uuid.UUID, filter RandomPickFilter) (*models.Movie, error) {
	query := `
		SELECT m.id, m.library_id, m.plex_key, m.title, m.sort_title, m.summary, m.tagline,
		       m.duration_ms, m.rating, m.content_rating, m.studio, m.year, m.originally_available,
		       m.thumb_url, m.art_url, m.directors, m.writers, m.actors,
		       m.added_at, m.created_at, m.updated_at
		FROM movies m
		JOIN libraries l ON l.id = m.library_id
		JOIN servers s ON s.id = l.server_id
		WHERE s.account_id = $1
		  AND ($2::double precision = 0 OR m.rating >= $2)
		  AND ($3::bigint = 0 OR m.duration_ms <= $3)
		  AND ($4::text = '' OR EXISTS (
			SELECT 1 FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id
			WHERE mg.movie_id = m.id AND g.slug = $4))
		ORDER BY random() LIMIT 1`
	movie, err := scanMovie(r.db.QueryRow(query, accountID, filter.MinRating,
		filter.MaxDurationMS, filter.GenreSlug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	movie.Genres, _ = r.genresFor(movie.ID)
	return movie, nil
}

func (r *MovieRepository) CountByLibrary(libraryID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM movies WHERE library_id = $1`, libraryID).Scan(&count)
	return count, err
}

func (r *MovieRepository) genresFor(movieID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT g.name FROM genres g
		JOIN movie_genres mg ON mg.genre_id = g.id
		WHERE mg.movie_id = $1 ORDER BY g.name`, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
