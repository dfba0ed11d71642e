package repository

import (
	"database/sql"

	"github.com/spf13/cast"
)

// Setting keys understood at runtime. Values live in system_settings and
// override environment defaults after config.MergeFromDB.
const (
	SettingWebhookURL       = "webhook_url"
	SettingSchedulerEnabled = "scheduler_enabled"
	SettingWorkerQueue      = "worker_queue"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves a setting value by key. Returns empty string if not found.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM system_settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetBool reads a setting and coerces it to bool; missing keys return def.
func (r *SettingsRepository) GetBool(key string, def bool) (bool, error) {
	raw, err := r.Get(key)
	if err != nil {
		return def, err
	}
	if raw == "" {
		return def, nil
	}
	return cast.ToBool(raw), nil
}

// Set upserts a setting key-value pair.
func (r *SettingsRepository) Set(key, value string) error {
	query := `INSERT INTO system_settings (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = CURRENT_TIMESTAMP`
	_, err := r.db.Exec(query, key, value)
	return err
}

// SetAll upserts multiple settings in a single transaction.
func (r *SettingsRepository) SetAll(values map[string]string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for k, v := range values {
		_, err := tx.Exec(`INSERT INTO system_settings (key, value, updated_at)
			VALUES ($1, $2, CURRENT_TIMESTAMP)
			ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = CURRENT_TIMESTAMP`, k, v)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetAll returns all settings as a map.
func (r *SettingsRepository) GetAll() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT key, value FROM system_settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// Delete removes a setting by key.
func (r *SettingsRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM system_settings WHERE key = $1`, key)
	return err
}
