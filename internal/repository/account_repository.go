package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/models"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, plex_username, plex_account_id, plex_token, email, thumb_url,
	password_hash, auto_sync_enabled, sync_interval, last_synced_at, created_at, updated_at`

func scanAccount(row interface{ Scan(dest ...interface{}) error }) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(
		&a.ID, &a.PlexUsername, &a.PlexAccountID, &a.PlexToken, &a.Email, &a.ThumbURL,
		&a.PasswordHash, &a.AutoSyncEnabled, &a.SyncInterval, &a.LastSyncedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func (r *AccountRepository) Create(account *models.Account) error {
	query := `
		INSERT INTO accounts (id, plex_username, plex_account_id, plex_token, email,
			thumb_url, password_hash, auto_sync_enabled, sync_interval)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`
	return r.db.QueryRow(query, account.ID, account.PlexUsername, account.PlexAccountID,
		account.PlexToken, account.Email, account.ThumbURL, account.PasswordHash,
		account.AutoSyncEnabled, account.SyncInterval).
		Scan(&account.CreatedAt, &account.UpdatedAt)
}

func (r *AccountRepository) GetByID(id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account not found")
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *AccountRepository) GetByUsername(username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE plex_username = $1`
	account, err := scanAccount(r.db.QueryRow(query, username))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account not found")
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *AccountRepository) List() ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY plex_username`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// ListAutoSync returns accounts with auto-sync enabled, for the scheduler.
func (r *AccountRepository) ListAutoSync() ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE auto_sync_enabled = true`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) UpdateToken(id uuid.UUID, token string) error {
	query := `UPDATE accounts SET plex_token = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.Exec(query, token, id)
	return err
}

func (r *AccountRepository) UpdateSyncPreferences(id uuid.UUID, enabled bool, interval models.SyncInterval) error {
	query := `UPDATE accounts SET auto_sync_enabled = $1, sync_interval = $2,
		updated_at = CURRENT_TIMESTAMP WHERE id = $3`
	result, err := r.db.Exec(query, enabled, interval, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("account not found")
	}
	return nil
}

func (r *AccountRepository) UpdateLastSynced(id uuid.UUID) error {
	query := `UPDATE accounts SET last_synced_at = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.Exec(query, time.Now().UTC(), id)
	return err
}
