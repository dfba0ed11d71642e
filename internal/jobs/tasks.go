package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/config"
	"github.com/georgepapagapitos/plexify/internal/locker"
	"github.com/georgepapagapitos/plexify/internal/models"
	"github.com/georgepapagapitos/plexify/internal/repository"
)

// ──────── Payloads ────────

// SyncLibraryPayload carries everything a worker needs to run one library
// sync, including the lock key acquired at admission so the worker can
// release exactly that lock when the job reaches a terminal state.
type SyncLibraryPayload struct {
	JobID     string `json:"job_id"`
	AccountID string `json:"account_id"`
	ServerID  string `json:"server_id"`
	LibraryID string `json:"library_id"`
	LockKey   string `json:"lock_key"`
}

type SyncAccountPayload struct {
	JobID     string `json:"job_id"`
	AccountID string `json:"account_id"`
	LockKey   string `json:"lock_key"`
}

type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// WebhookSender posts sync lifecycle events to a configured external URL.
type WebhookSender interface {
	Send(ctx context.Context, event string, payload interface{})
}

// LibrarySubmitter admits one library sync through lock admission and
// enqueues it. The account handler uses it to fan out after discovery.
type LibrarySubmitter interface {
	SubmitLibrary(ctx context.Context, account *models.Account, server *models.Server, library *models.Library) (*models.SyncJob, bool, error)
}

// Repos bundles the storage handles the task handlers share.
type Repos struct {
	Accounts  *repository.AccountRepository
	Servers   *repository.ServerRepository
	Libraries *repository.LibraryRepository
	Movies    *repository.MovieRepository
	TV        *repository.TVRepository
	Genres    *repository.GenreRepository
	SyncJobs  *repository.SyncJobRepository
}

// ──────── Register all handlers ────────

func RegisterHandlers(q *Queue, cfg *config.Config, repos Repos, locks locker.Locker,
	submitter LibrarySubmitter, notifier EventNotifier, webhooks WebhookSender) {

	q.RegisterHandler(TaskSyncLibrary, NewSyncLibraryHandler(cfg, repos, locks, notifier, webhooks))
	q.RegisterHandler(TaskSyncAccount, NewSyncAccountHandler(cfg, repos, locks, submitter, notifier))
}

func parseID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}
