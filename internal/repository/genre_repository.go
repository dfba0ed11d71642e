package repository

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/models"
)

type GenreRepository struct {
	db *sql.DB
}

func NewGenreRepository(db *sql.DB) *GenreRepository {
	return &GenreRepository{db: db}
}

// GetOrCreate deduplicates genres by normalized name. A concurrent
// get-or-create on the same slug resolves through the conflict arm.
func (r *GenreRepository) GetOrCreate(name string) (*models.Genre, error) {
	genre := &models.Genre{
		ID:   uuid.New(),
		Name: name,
		Slug: Slugify(name),
	}
	query := `
		INSERT INTO genres (id, name, slug) VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`
	if err := r.db.QueryRow(query, genre.ID, genre.Name, genre.Slug).Scan(&genre.ID); err != nil {
		return nil, err
	}
	return genre, nil
}

// GetOrCreateAll resolves a list of genre names to IDs in input order.
func (r *GenreRepository) GetOrCreateAll(names []string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		genre, err := r.GetOrCreate(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, genre.ID)
	}
	return ids, nil
}

func (r *GenreRepository) List() ([]*models.Genre, error) {
	rows, err := r.db.Query(`SELECT id, name, slug FROM genres ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []*models.Genre
	for rows.Next() {
		g := &models.Genre{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

// Slugify lowercases and hyphenates a genre name for dedup.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastHyphen := true
	for _, ch := range slug {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
