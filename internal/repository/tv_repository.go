package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/georgepapagapitos/plexify/internal/models"
)

type TVRepository struct {
	db *sql.DB
}

func NewTVRepository(db *sql.DB) *TVRepository {
	return &TVRepository{db: db}
}

// ──────────────────── Shows ────────────────────

const showColumns = `id, library_id, plex_key, title, sort_title, summary, rating,
	content_rating, studio, year, originally_available, thumb_url, art_url,
	total_seasons, show_status, added_at, created_at, updated_at`

func scanShow(row interface{ Scan(dest ...interface{}) error }) (*models.Show, error) {
	s := &models.Show{}
	err := row.Scan(
		&s.ID, &s.LibraryID, &s.PlexKey, &s.Title, &s.SortTitle, &s.Summary, &s.Rating,
		&s.ContentRating, &s.Studio, &s.Year, &s.OriginallyAvailable, &s.ThumbURL, &s.ArtURL,
		&s.TotalSeasons, &s.ShowStatus, &s.AddedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// UpsertShow inserts or updates a show keyed by (library_id, plex_key) and
// reports whether a new row was created.
func (r *TVRepository) UpsertShow(show *models.Show) (bool, error) {
	if show.ID == uuid.Nil {
		show.ID = uuid.New()
	}
	query := `
		INSERT INTO shows (id, library_id, plex_key, title, sort_title, summary, rating,
			content_rating, studio, year, originally_available, thumb_url, art_url,
			total_seasons, show_status, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (library_id, plex_key) DO UPDATE SET
			title = EXCLUDED.title, sort_title = EXCLUDED.sort_title,
			summary = EXCLUDED.summary, rating = EXCLUDED.rating,
			content_rating = EXCLUDED.content_rating, studio = EXCLUDED.studio,
			year = EXCLUDED.year, originally_available = EXCLUDED.originally_available,
			thumb_url = EXCLUDED.thumb_url, art_url = EXCLUDED.art_url,
			total_seasons = EXCLUDED.total_seasons, show_status = EXCLUDED.show_status,
			added_at = EXCLUDED.added_at, updated_at = CURRENT_TIMESTAMP
		RETURNING id, (xmax = 0)`
	var created bool
	err := r.db.QueryRow(query, show.ID, show.LibraryID, show.PlexKey, show.Title,
		show.SortTitle, show.Summary, show.Rating, show.ContentRating, show.Studio,
		show.Year, show.OriginallyAvailable, show.ThumbURL, show.ArtURL,
		show.TotalSeasons, show.ShowStatus, show.AddedAt).
		Scan(&show.ID, &created)
	return created, err
}

func (r *TVRepository) SetShowGenres(showID uuid.UUID, genreIDs []uuid.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM show_genres WHERE show_id = $1`, showID); err != nil {
		return err
	}
	for _, gid := range genreIDs {
		if _, err := tx.Exec(
			`INSERT INTO show_genres (show_id, genre_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			showID, gid,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *TVRepository) GetShowByID(id uuid.UUID) (*models.Show, error) {
	query := `SELECT ` + showColumns + ` FROM shows WHERE id = $1`
	show, err := scanShow(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("show not found")
	}
	return show, err
}

func (r *TVRepository) ListShowsByLibrary(libraryID uuid.UUID, limit, offset int) ([]*models.Show, error) {
	query := `SELECT ` + showColumns + ` FROM shows WHERE library_id = $1
		ORDER BY sort_title LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(query, libraryID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shows []*models.Show
	for rows.Next() {
		show, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		shows = append(shows, show)
	}
	return shows, rows.Err()
}

func (r *TVRepository) CountShowsByLibrary(libraryID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM shows WHERE library_id = $1`, libraryID).Scan(&count)
	return count, err
}

// ──────────────────── Seasons ────────────────────

const seasonColumns = `id, show_id, season_number, plex_key, title, summary, thumb_url,
	episode_count, added_at, created_at, updated_at`

func scanSeason(row interface{ Scan(dest ...interface{}) error }) (*models.Season, error) {
	s := &models.Season{}
	err := row.Scan(
		&s.ID, &s.ShowID, &s.SeasonNumber, &s.PlexKey, &s.Title, &s.Summary,
		&s.ThumbURL, &s.EpisodeCount, &s.AddedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// UpsertSeason is keyed by (show_id, season_number).
func (r *TVRepository) UpsertSeason(season *models.Season) (bool, error) {
	if season.ID == uuid.Nil {
		season.ID = uuid.New()
	}
	query := `
		INSERT INTO seasons (id, show_id, season_number, plex_key, title, summary,
			thumb_url, episode_count, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (show_id, season_number) DO UPDATE SET
			plex_key = EXCLUDED.plex_key, title = EXCLUDED.title,
			summary = EXCLUDED.summary, thumb_url = EXCLUDED.thumb_url,
			episode_count = EXCLUDED.episode_count, added_at = EXCLUDED.added_at,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, (xmax = 0)`
	var created bool
	err := r.db.QueryRow(query, season.ID, season.ShowID, season.SeasonNumber,
		season.PlexKey, season.Title, season.Summary, season.ThumbURL,
		season.EpisodeCount, season.AddedAt).
		Scan(&season.ID, &created)
	return created, err
}

func (r *TVRepository) ListSeasonsByShow(showID uuid.UUID) ([]*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE show_id = $1 ORDER BY season_number`
	rows, err := r.db.Query(query, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seasons []*models.Season
	for rows.Next() {
		season, err := scanSeason(rows)
		if err != nil {
			return nil, err
		}
		seasons = append(seasons, season)
	}
	return seasons, rows.Err()
}

// ──────────────────── Episodes ────────────────────

const episodeColumns = `id, season_id, episode_number, plex_key, title, summary,
	duration_ms, thumb_url, directors, writers, added_at, created_at, updated_at`

func scanEpisode(row interface{ Scan(dest ...interface{}) error }) (*models.Episode, error) {
	e := &models.Episode{}
	err := row.Scan(
		&e.ID, &e.SeasonID, &e.EpisodeNumber, &e.PlexKey, &e.Title, &e.Summary,
		&e.DurationMS, &e.ThumbURL, &e.Directors, &e.Writers,
		&e.AddedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// UpsertEpisode is keyed by (season_id, episode_number).
func (r *TVRepository) UpsertEpisode(episode *models.Episode) (bool, error) {
	if episode.ID == uuid.Nil {
		episode.ID = uuid.New()
	}
	query := `
		INSERT INTO episodes (id, season_id, episode_number, plex_key, title, summary,
			duration_ms, thumb_url, directors, writers, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (season_id, episode_number) DO UPDATE SET
			plex_key = EXCLUDED.plex_key, title = EXCLUDED.title,
			summary = EXCLUDED.summary, duration_ms = EXCLUDED.duration_ms,
			thumb_url = EXCLUDED.thumb_url, directors = EXCLUDED.directors,
			writers = EXCLUDED.writers, added_at = EXCLUDED.added_at,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, (xmax = 0)`
	var created bool
	err := r.db.QueryRow(query, episode.ID, episode.SeasonID, episode.EpisodeNumber,
		episode.PlexKey, episode.Title, episode.Summary, episode.DurationMS,
		episode.ThumbURL, pq.Array([]string(episode.Directors)),
		pq.Array([]string(episode.Writers)), episode.AddedAt).
		Scan(&episode.ID, &created)
	return created, err
}

func (r *TVRepository) ListEpisodesBySeason(seasonID uuid.UUID) ([]*models.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE season_id = $1 ORDER BY episode_number`
	rows, err := r.db.Query(query, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []*models.Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, episode)
	}
	return episodes, rows.Err()
}
