package coordinator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/georgepapagapitos/plexify/internal/config"
	"github.com/georgepapagapitos/plexify/internal/jobs"
	"github.com/georgepapagapitos/plexify/internal/locker"
	"github.com/georgepapagapitos/plexify/internal/models"
	"github.com/georgepapagapitos/plexify/internal/repository"
)

// Submission is the outcome of one sync request. Started means a job was
// admitted and queued; a skipped submission means the same target was
// already in flight and nothing new was queued.
type Submission struct {
	Status string          `json:"status"`
	Job    *models.SyncJob `json:"job"`
}

const (
	StatusStarted = "started"
	StatusSkipped = "skipped"
)

// Narrow views over the queue and the stores, satisfied by jobs.Queue and
// the repository types; admission logic only sees what it touches.

type taskQueue interface {
	EnqueueUnique(taskType string, payload interface{}, uniqueID string, opts ...asynq.Option) (string, error)
}

type accountGetter interface {
	GetByID(id uuid.UUID) (*models.Account, error)
}

type serverGetter interface {
	GetByID(id uuid.UUID) (*models.Server, error)
}

type libraryGetter interface {
	GetByID(id uuid.UUID) (*models.Library, error)
}

type jobRecorder interface {
	Create(job *models.SyncJob) error
	UpdateStatus(id uuid.UUID, status models.JobStatus, errMsg *string) error
}

type settingReader interface {
	Get(key string) (string, error)
}

// Coordinator admits sync requests. Admission is a lock precondition: the
// target's lock must be acquired before anything is queued, so concurrent
// requests for the same target collapse to one running job. Locks expire on
// their own if a worker dies mid-run.
type Coordinator struct {
	cfg       *config.Config
	queue     taskQueue
	locks     locker.Locker
	accounts  accountGetter
	servers   serverGetter
	libraries libraryGetter
	syncJobs  jobRecorder
	settings  settingReader
}

func New(cfg *config.Config, queue *jobs.Queue, locks locker.Locker,
	accounts *repository.AccountRepository, servers *repository.ServerRepository,
	libraries *repository.LibraryRepository, syncJobs *repository.SyncJobRepository,
	settings *repository.SettingsRepository) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		queue:     queue,
		locks:     locks,
		accounts:  accounts,
		servers:   servers,
		libraries: libraries,
		syncJobs:  syncJobs,
		settings:  settings,
	}
}

// enqueueOpts builds the shared asynq options: retry cap plus the queue
// override from settings when an operator has routed syncs off the default.
// MaxSyncAttempts counts backoff retries after the initial run; asynq goes
// terminal once Retried reaches MaxRetry, so the cap maps straight through.
func (c *Coordinator) enqueueOpts() []asynq.Option {
	opts := []asynq.Option{asynq.MaxRetry(c.cfg.MaxSyncAttempts)}
	if c.settings != nil {
		if name, err := c.settings.Get(repository.SettingWorkerQueue); err == nil && name != "" {
			opts = append(opts, asynq.Queue(name))
		}
	}
	return opts
}

// SubmitAccount admits a whole-account sync: server discovery plus a
// library fan-out once the catalog is refreshed. The bool reports whether
// the job was started rather than skipped.
func (c *Coordinator) SubmitAccount(ctx context.Context, account *models.Account) (*models.SyncJob, bool, error) {
	lockKey := locker.AccountLockKey(account.ID)
	acquired, err := c.locks.Acquire(ctx, lockKey, c.cfg.AccountLockTTL)
	if err != nil {
		return nil, false, fmt.Errorf("acquire account lock: %w", err)
	}
	if !acquired {
		log.Printf("Coordinator: account %s already syncing, skipped", account.PlexUsername)
		job, err := c.recordSkipped(account.ID, models.JobSyncAccount, nil, nil)
		return job, false, err
	}

	job := &models.SyncJob{
		ID:        uuid.New(),
		AccountID: account.ID,
		JobType:   models.JobSyncAccount,
		Status:    models.JobPending,
		Attempt:   1,
	}
	if err := c.syncJobs.Create(job); err != nil {
		c.release(lockKey)
		return nil, false, fmt.Errorf("create sync job: %w", err)
	}

	payload := jobs.SyncAccountPayload{
		JobID:     job.ID.String(),
		AccountID: account.ID.String(),
		LockKey:   lockKey,
	}
	if _, err := c.queue.EnqueueUnique(jobs.TaskSyncAccount, payload,
		"sync:account:"+account.ID.String(), c.enqueueOpts()...); err != nil {
		c.release(lockKey)
		msg := err.Error()
		if uerr := c.syncJobs.UpdateStatus(job.ID, models.JobFailed, &msg); uerr != nil {
			log.Printf("Coordinator: mark %s failed: %v", job.ID, uerr)
		}
		return nil, false, fmt.Errorf("enqueue account sync: %w", err)
	}

	log.Printf("Coordinator: account sync queued for %s (job %s)", account.PlexUsername, job.ID)
	return job, true, nil
}

// SubmitLibrary admits one library sync. Satisfies jobs.LibrarySubmitter
// so the account handler can fan out through the same admission path.
func (c *Coordinator) SubmitLibrary(ctx context.Context, account *models.Account, server *models.Server, library *models.Library) (*models.SyncJob, bool, error) {
	lockKey := locker.LibraryLockKey(account.ID, server.MachineIdentifier, library.SectionID)
	acquired, err := c.locks.Acquire(ctx, lockKey, c.cfg.LibraryLockTTL)
	if err != nil {
		return nil, false, fmt.Errorf("acquire library lock: %w", err)
	}
	if !acquired {
		log.Printf("Coordinator: library %q already syncing, skipped", library.Name)
		job, err := c.recordSkipped(account.ID, models.JobSyncLibrary, &server.ID, &library.ID)
		return job, false, err
	}

	job := &models.SyncJob{
		ID:        uuid.New(),
		AccountID: account.ID,
		JobType:   models.JobSyncLibrary,
		ServerID:  &server.ID,
		LibraryID: &library.ID,
		Status:    models.JobPending,
		Attempt:   1,
	}
	if err := c.syncJobs.Create(job); err != nil {
		c.release(lockKey)
		return nil, false, fmt.Errorf("create sync job: %w", err)
	}

	payload := jobs.SyncLibraryPayload{
		JobID:     job.ID.String(),
		AccountID: account.ID.String(),
		ServerID:  server.ID.String(),
		LibraryID: library.ID.String(),
		LockKey:   lockKey,
	}
	if _, err := c.queue.EnqueueUnique(jobs.TaskSyncLibrary, payload,
		"sync:library:"+library.ID.String(), c.enqueueOpts()...); err != nil {
		c.release(lockKey)
		msg := err.Error()
		if uerr := c.syncJobs.UpdateStatus(job.ID, models.JobFailed, &msg); uerr != nil {
			log.Printf("Coordinator: mark %s failed: %v", job.ID, uerr)
		}
		return nil, false, fmt.Errorf("enqueue library sync: %w", err)
	}

	log.Printf("Coordinator: library sync queued for %q (job %s)", library.Name, job.ID)
	return job, true, nil
}

// SubmitLibraryByID resolves the target rows and admits the sync. Used by
// the trigger API where the caller only has identifiers.
func (c *Coordinator) SubmitLibraryByID(ctx context.Context, accountID, serverID, libraryID uuid.UUID) (*Submission, error) {
	account, err := c.accounts.GetByID(accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	server, err := c.servers.GetByID(serverID)
	if err != nil {
		return nil, fmt.Errorf("get server: %w", err)
	}
	library, err := c.libraries.GetByID(libraryID)
	if err != nil {
		return nil, fmt.Errorf("get library: %w", err)
	}
	if library.ServerID != server.ID {
		return nil, fmt.Errorf("library %s does not belong to server %s", libraryID, serverID)
	}

	job, started, err := c.SubmitLibrary(ctx, account, server, library)
	if err != nil {
		return nil, err
	}
	return submission(job, started), nil
}

// SubmitAccountByID admits a whole-account sync by identifier.
func (c *Coordinator) SubmitAccountByID(ctx context.Context, accountID uuid.UUID) (*Submission, error) {
	account, err := c.accounts.GetByID(accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	job, started, err := c.SubmitAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	return submission(job, started), nil
}

func submission(job *models.SyncJob, started bool) *Submission {
	status := StatusStarted
	if !started {
		status = StatusSkipped
	}
	return &Submission{Status: status, Job: job}
}

// recordSkipped leaves a terminal job row behind for a skipped submission
// so the dashboard shows the attempt and what it collided with.
func (c *Coordinator) recordSkipped(accountID uuid.UUID, jobType models.JobType, serverID, libraryID *uuid.UUID) (*models.SyncJob, error) {
	msg := "sync already in progress for this target"
	job := &models.SyncJob{
		ID:           uuid.New(),
		AccountID:    accountID,
		JobType:      jobType,
		ServerID:     serverID,
		LibraryID:    libraryID,
		Status:       models.JobSkipped,
		Attempt:      0,
		ErrorMessage: &msg,
	}
	if err := c.syncJobs.Create(job); err != nil {
		return nil, fmt.Errorf("record skipped job: %w", err)
	}
	if err := c.syncJobs.UpdateStatus(job.ID, models.JobSkipped, &msg); err != nil {
		return nil, fmt.Errorf("finalize skipped job: %w", err)
	}
	return job, nil
}

func (c *Coordinator) release(key string) {
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.locks.Release(releaseCtx, key); err != nil {
		log.Printf("Coordinator: release lock %s: %v", key, err)
	}
}
