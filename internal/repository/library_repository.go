package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/models"
)

type LibraryRepository struct {
	db *sql.DB
}

func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

const libraryColumns = `id, server_id, name, section_id, library_type,
	last_synced_at, created_at, updated_at`

func scanLibrary(row interface{ Scan(dest ...interface{}) error }) (*models.Library, error) {
	lib := &models.Library{}
	err := row.Scan(
		&lib.ID, &lib.ServerID, &lib.Name, &lib.SectionID, &lib.LibraryType,
		&lib.LastSyncedAt, &lib.CreatedAt, &lib.UpdatedAt,
	)
	return lib, err
}

// Upsert creates or refreshes a library keyed by (server_id, section_id).
func (r *LibraryRepository) Upsert(library *models.Library) error {
	if library.ID == uuid.Nil {
		library.ID = uuid.New()
	}
	query := `
		INSERT INTO libraries (id, server_id, name, section_id, library_type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (server_id, section_id) DO UPDATE SET
			name = EXCLUDED.name, library_type = EXCLUDED.library_type,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, last_synced_at, created_at, updated_at`
	return r.db.QueryRow(query, library.ID, library.ServerID, library.Name,
		library.SectionID, library.LibraryType).
		Scan(&library.ID, &library.LastSyncedAt, &library.CreatedAt, &library.UpdatedAt)
}

func (r *LibraryRepository) GetByID(id uuid.UUID) (*models.Library, error) {
	query := `SELECT ` + libraryColumns + ` FROM libraries WHERE id = $1`
	lib, err := scanLibrary(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("library not found")
	}
	if err != nil {
		return nil, err
	}
	return lib, nil
}

func (r *LibraryRepository) GetBySection(serverID uuid.UUID, sectionID string) (*models.Library, error) {
	query := `SELECT ` + libraryColumns + ` FROM libraries
		WHERE server_id = $1 AND section_id = $2`
	lib, err := scanLibrary(r.db.QueryRow(query, serverID, sectionID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("library not found")
	}
	if err != nil {
		return nil, err
	}
	return lib, nil
}

func (r *LibraryRepository) ListByServer(serverID uuid.UUID) ([]*models.Library, error) {
	query := `SELECT ` + libraryColumns + ` FROM libraries WHERE server_id = $1 ORDER BY name`
	rows, err := r.db.Query(query, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var libraries []*models.Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		libraries = append(libraries, lib)
	}
	return libraries, rows.Err()
}

func (r *LibraryRepository) ListByAccount(accountID uuid.UUID) ([]*models.Library, error) {
	query := `
		SELECT l.id, l.server_id, l.name, l.section_id, l.library_type,
		       l.last_synced_at, l.created_at, l.updated_at
		FROM libraries l
		JOIN servers s ON s.id = l.server_id
		WHERE s.account_id = $1 ORDER BY l.name`
	rows, err := r.db.Query(query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var libraries []*models.Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		libraries = append(libraries, lib)
	}
	return libraries, rows.Err()
}

func (r *LibraryRepository) UpdateLastSynced(id uuid.UUID) error {
	query := `UPDATE libraries SET last_synced_at = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.Exec(query, time.Now().UTC(), id)
	return err
}

func (r *LibraryRepository) Delete(id uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM libraries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("library not found")
	}
	return nil
}
