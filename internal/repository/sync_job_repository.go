package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/models"
)

type SyncJobRepository struct {
	db *sql.DB
}

func NewSyncJobRepository(db *sql.DB) *SyncJobRepository {
	return &SyncJobRepository{db: db}
}

const syncJobColumns = `id, account_id, job_type, server_id, library_id, status, attempt,
	added, updated, total, error_message, started_at, completed_at, updated_at`

func scanSyncJob(row interface{ Scan(dest ...interface{}) error }) (*models.SyncJob, error) {
	j := &models.SyncJob{}
	err := row.Scan(
		&j.ID, &j.AccountID, &j.JobType, &j.ServerID, &j.LibraryID, &j.Status, &j.Attempt,
		&j.Added, &j.Updated, &j.Total, &j.ErrorMessage, &j.StartedAt, &j.CompletedAt, &j.UpdatedAt,
	)
	return j, err
}

func (r *SyncJobRepository) Create(job *models.SyncJob) error {
	query := `
		INSERT INTO sync_jobs (id, account_id, job_type, server_id, library_id, status, attempt)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING started_at, updated_at`
	return r.db.QueryRow(query, job.ID, job.AccountID, job.JobType, job.ServerID,
		job.LibraryID, job.Status, job.Attempt).
		Scan(&job.StartedAt, &job.UpdatedAt)
}

func (r *SyncJobRepository) GetByID(id uuid.UUID) (*models.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs WHERE id = $1`
	job, err := scanSyncJob(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sync job not found")
	}
	return job, err
}

func (r *SyncJobRepository) UpdateStatus(id uuid.UUID, status models.JobStatus, errMsg *string) error {
	query := `UPDATE sync_jobs SET status = $1, error_message = $2, updated_at = CURRENT_TIMESTAMP`
	if status == models.JobCompleted || status == models.JobFailed || status == models.JobSkipped {
		query += `, completed_at = CURRENT_TIMESTAMP`
	}
	query += ` WHERE id = $3`
	_, err := r.db.Exec(query, status, errMsg, id)
	return err
}

// RecordResult stores the final counts alongside the terminal status.
func (r *SyncJobRepository) RecordResult(id uuid.UUID, status models.JobStatus, added, updated, total int, errMsg *string) error {
	query := `UPDATE sync_jobs SET status = $1, added = $2, updated = $3, total = $4,
		error_message = $5, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6`
	_, err := r.db.Exec(query, status, added, updated, total, errMsg, id)
	return err
}

// IncrementAttempt bumps the attempt counter when a retry begins executing
// and moves the job back to running; it sat in retrying while waiting out
// the backoff.
func (r *SyncJobRepository) IncrementAttempt(id uuid.UUID) error {
	query := `UPDATE sync_jobs SET attempt = attempt + 1, status = $1,
		updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.Exec(query, models.JobRunning, id)
	return err
}

func (r *SyncJobRepository) ListRecentByAccount(accountID uuid.UUID, limit int) ([]*models.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs
		WHERE account_id = $1 ORDER BY started_at DESC LIMIT $2`
	rows, err := r.db.Query(query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.SyncJob
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
