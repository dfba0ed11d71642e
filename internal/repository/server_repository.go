package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/georgepapagapitos/plexify/internal/models"
)

type ServerRepository struct {
	db *sql.DB
}

func NewServerRepository(db *sql.DB) *ServerRepository {
	return &ServerRepository{db: db}
}

const serverColumns = `id, account_id, name, machine_identifier, version, url, local_url,
	direct_url, is_owned, is_local, status, last_error, last_seen_at, created_at, updated_at`

func scanServer(row interface{ Scan(dest ...interface{}) error }) (*models.Server, error) {
	s := &models.Server{}
	err := row.Scan(
		&s.ID, &s.AccountID, &s.Name, &s.MachineIdentifier, &s.Version,
		&s.URL, &s.LocalURL, &s.DirectURL, &s.IsOwned, &s.IsLocal,
		&s.Status, &s.LastError, &s.LastSeenAt, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// Upsert creates or updates a server from discovery, keyed by
// (account_id, machine_identifier). A concurrent discovery racing on the
// same key lands in the DO UPDATE arm, so the race is benign.
func (r *ServerRepository) Upsert(server *models.Server) error {
	if server.ID == uuid.Nil {
		server.ID = uuid.New()
	}
	query := `
		INSERT INTO servers (id, account_id, name, machine_identifier, version, url,
			local_url, direct_url, is_owned, is_local, status, last_error, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '', $12)
		ON CONFLICT (account_id, machine_identifier) DO UPDATE SET
			name = EXCLUDED.name, version = EXCLUDED.version, url = EXCLUDED.url,
			local_url = EXCLUDED.local_url, direct_url = EXCLUDED.direct_url,
			is_owned = EXCLUDED.is_owned, is_local = EXCLUDED.is_local,
			status = EXCLUDED.status, last_error = '',
			last_seen_at = EXCLUDED.last_seen_at, updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(query, server.ID, server.AccountID, server.Name,
		server.MachineIdentifier, server.Version, server.URL, server.LocalURL,
		server.DirectURL, server.IsOwned, server.IsLocal, server.Status, time.Now().UTC()).
		Scan(&server.ID, &server.CreatedAt, &server.UpdatedAt)
}

func (r *ServerRepository) GetByID(id uuid.UUID) (*models.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE id = $1`
	server, err := scanServer(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("server not found")
	}
	if err != nil {
		return nil, err
	}
	return server, nil
}

func (r *ServerRepository) GetByMachineID(accountID uuid.UUID, machineID string) (*models.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers
		WHERE account_id = $1 AND machine_identifier = $2`
	server, err := scanServer(r.db.QueryRow(query, accountID, machineID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("server not found")
	}
	if err != nil {
		return nil, err
	}
	return server, nil
}

func (r *ServerRepository) ListByAccount(accountID uuid.UUID) ([]*models.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE account_id = $1 ORDER BY name`
	rows, err := r.db.Query(query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []*models.Server
	for rows.Next() {
		server, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	return servers, rows.Err()
}

// MarkAvailable clears any previous connection error.
func (r *ServerRepository) MarkAvailable(id uuid.UUID) error {
	query := `UPDATE servers SET status = $1, last_error = '', last_seen_at = $2,
		updated_at = CURRENT_TIMESTAMP WHERE id = $3`
	_, err := r.db.Exec(query, models.ServerAvailable, time.Now().UTC(), id)
	return err
}

func (r *ServerRepository) MarkUnreachable(id uuid.UUID, errText string) error {
	query := `UPDATE servers SET status = $1, last_error = $2,
		updated_at = CURRENT_TIMESTAMP WHERE id = $3`
	_, err := r.db.Exec(query, models.ServerUnreachable, errText, id)
	return err
}

// MarkMissingUnavailable flags servers that discovery no longer reports.
func (r *ServerRepository) MarkMissingUnavailable(accountID uuid.UUID, seenMachineIDs []string) error {
	query := `UPDATE servers SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = $2 AND NOT (machine_identifier = ANY($3))`
	_, err := r.db.Exec(query, models.ServerUnavailable, accountID, pq.Array(seenMachineIDs))
	return err
}

func (r *ServerRepository) Delete(id uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM servers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("server not found")
	}
	return nil
}
