package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/georgepapagapitos/plexify/internal/config"
	"github.com/georgepapagapitos/plexify/internal/locker"
	"github.com/georgepapagapitos/plexify/internal/models"
	"github.com/georgepapagapitos/plexify/internal/plex"
	syncpkg "github.com/georgepapagapitos/plexify/internal/sync"
)

// isPermanent reports whether a sync failure cannot be fixed by retrying:
// a rejected token, a key that no longer exists, or a response the other
// side will keep producing malformed. Network and connection failures are
// transient and retried with backoff.
func isPermanent(err error) bool {
	var authErr *plex.AuthError
	var notFound *plex.NotFoundError
	var protoErr *plex.ProtocolError
	return errors.As(err, &authErr) || errors.As(err, &notFound) || errors.As(err, &protoErr)
}

// finalAttempt reports whether asynq will not retry this task again.
func finalAttempt(ctx context.Context) bool {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	return retried >= maxRetry
}

// ──────── Library sync ────────

type SyncLibraryHandler struct {
	cfg      *config.Config
	repos    Repos
	locks    locker.Locker
	notifier EventNotifier
	webhooks WebhookSender
}

func NewSyncLibraryHandler(cfg *config.Config, repos Repos, locks locker.Locker, notifier EventNotifier, webhooks WebhookSender) *SyncLibraryHandler {
	return &SyncLibraryHandler{cfg: cfg, repos: repos, locks: locks, notifier: notifier, webhooks: webhooks}
}

func (h *SyncLibraryHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p SyncLibraryPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	jobID := parseID(p.JobID)
	account, err := h.repos.Accounts.GetByID(parseID(p.AccountID))
	if err != nil {
		return h.fail(ctx, jobID, p.LockKey, fmt.Errorf("get account: %w", err), true)
	}
	server, err := h.repos.Servers.GetByID(parseID(p.ServerID))
	if err != nil {
		return h.fail(ctx, jobID, p.LockKey, fmt.Errorf("get server: %w", err), true)
	}
	library, err := h.repos.Libraries.GetByID(parseID(p.LibraryID))
	if err != nil {
		return h.fail(ctx, jobID, p.LockKey, fmt.Errorf("get library: %w", err), true)
	}

	if retried, _ := asynq.GetRetryCount(ctx); retried > 0 {
		if err := h.repos.SyncJobs.IncrementAttempt(jobID); err != nil {
			log.Printf("Job: record attempt for %s: %v", jobID, err)
		}
	} else if err := h.repos.SyncJobs.UpdateStatus(jobID, models.JobRunning, nil); err != nil {
		log.Printf("Job: mark %s running: %v", jobID, err)
	}

	log.Printf("Job: syncing library %q on %s", library.Name, server.Name)
	if h.notifier != nil {
		h.notifier.Broadcast("sync:start", map[string]interface{}{
			"job_id":     p.JobID,
			"library_id": p.LibraryID,
			"library":    library.Name,
			"server":     server.Name,
		})
	}

	engine := h.buildEngine(account)
	if h.notifier != nil {
		var last time.Time
		engine.OnProgress(func(prog syncpkg.Progress) {
			// Throttle: broadcast at most every 500ms.
			if time.Since(last) < 500*time.Millisecond {
				return
			}
			last = time.Now()
			h.notifier.Broadcast("sync:progress", map[string]interface{}{
				"job_id":     p.JobID,
				"library_id": prog.LibraryID,
				"library":    prog.Library,
				"processed":  prog.Processed,
				"expected":   prog.Expected,
			})
		})
	}

	result, err := engine.SyncLibrary(ctx, server, library)
	if err != nil {
		if h.notifier != nil {
			h.notifier.Broadcast("sync:failed", map[string]interface{}{
				"job_id":     p.JobID,
				"library_id": p.LibraryID,
				"error":      err.Error(),
			})
		}
		return h.fail(ctx, jobID, p.LockKey, err, isPermanent(err))
	}

	if err := h.repos.SyncJobs.RecordResult(jobID, models.JobCompleted,
		result.Added(), result.Updated(), result.Total(), nil); err != nil {
		log.Printf("Job: record result for %s: %v", jobID, err)
	}
	h.releaseLock(p.LockKey)

	log.Printf("Job: library %q synced: %d added, %d updated, %d total",
		library.Name, result.Added(), result.Updated(), result.Total())
	if h.notifier != nil {
		h.notifier.Broadcast("sync:complete", map[string]interface{}{
			"job_id":     p.JobID,
			"library_id": p.LibraryID,
			"result":     result,
		})
	}
	if h.webhooks != nil {
		h.webhooks.Send(ctx, "sync.library.completed", map[string]interface{}{
			"job_id":  p.JobID,
			"library": library.Name,
			"server":  server.Name,
			"added":   result.Added(),
			"updated": result.Updated(),
			"total":   result.Total(),
			"skipped": len(result.Skipped),
		})
	}
	return nil
}

func (h *SyncLibraryHandler) buildEngine(account *models.Account) *syncpkg.Engine {
	client := plex.NewClient(h.cfg, account.PlexToken)
	remote := &syncpkg.ResolverRemote{Resolver: plex.NewResolver(client)}
	return syncpkg.NewEngine(remote, h.repos.Movies, h.repos.TV, h.repos.Genres, h.repos.Libraries)
}

// fail records a failed or retrying status. The lock is released only at a
// terminal state so a retry of the same job never races a fresh submission
// for the same target.
func (h *SyncLibraryHandler) fail(ctx context.Context, id uuid.UUID, lockKey string, err error, permanent bool) error {
	msg := err.Error()

	if permanent || finalAttempt(ctx) {
		if uerr := h.repos.SyncJobs.UpdateStatus(id, models.JobFailed, &msg); uerr != nil {
			log.Printf("Job: mark %s failed: %v", id, uerr)
		}
		h.releaseLock(lockKey)
		if permanent {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if uerr := h.repos.SyncJobs.UpdateStatus(id, models.JobRetrying, &msg); uerr != nil {
		log.Printf("Job: mark %s retrying: %v", id, uerr)
	}
	return err
}

func (h *SyncLibraryHandler) releaseLock(key string) {
	if key == "" {
		return
	}
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.locks.Release(releaseCtx, key); err != nil {
		log.Printf("Job: release lock %s: %v", key, err)
	}
}

// ──────── Account sync ────────

// SyncAccountHandler refreshes the account's server and library catalog,
// then fans out one library sync per syncable library. The account job is
// complete once the fan-out is submitted; each library job reports its own
// result under its own lock.
type SyncAccountHandler struct {
	cfg       *config.Config
	repos     Repos
	locks     locker.Locker
	submitter LibrarySubmitter
	notifier  EventNotifier
}

func NewSyncAccountHandler(cfg *config.Config, repos Repos, locks locker.Locker, submitter LibrarySubmitter, notifier EventNotifier) *SyncAccountHandler {
	return &SyncAccountHandler{cfg: cfg, repos: repos, locks: locks, submitter: submitter, notifier: notifier}
}

func (h *SyncAccountHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p SyncAccountPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	jobID := parseID(p.JobID)
	account, err := h.repos.Accounts.GetByID(parseID(p.AccountID))
	if err != nil {
		return h.fail(ctx, jobID, p.LockKey, fmt.Errorf("get account: %w", err), true)
	}

	if retried, _ := asynq.GetRetryCount(ctx); retried > 0 {
		if err := h.repos.SyncJobs.IncrementAttempt(jobID); err != nil {
			log.Printf("Job: record attempt for %s: %v", jobID, err)
		}
	} else if err := h.repos.SyncJobs.UpdateStatus(jobID, models.JobRunning, nil); err != nil {
		log.Printf("Job: mark %s running: %v", jobID, err)
	}

	log.Printf("Job: syncing account %s", account.PlexUsername)
	client := plex.NewClient(h.cfg, account.PlexToken)
	remote := &syncpkg.ResolverRemote{Resolver: plex.NewResolver(client)}

	var disc syncpkg.Discoverer = client
	if cache, ok := h.locks.(syncpkg.DiscoveryCache); ok && h.cfg.DiscoveryCacheTTL > 0 {
		disc = &syncpkg.CachedDiscoverer{
			Inner: client,
			Cache: cache,
			Key:   locker.ResourceCacheKey(account.ID),
			TTL:   h.cfg.DiscoveryCacheTTL,
		}
	}
	discovery := syncpkg.NewDiscovery(disc, remote, h.repos.Servers, h.repos.Libraries)

	pass, err := discovery.Run(ctx, account)
	if err != nil {
		return h.fail(ctx, jobID, p.LockKey, err, isPermanent(err))
	}

	serversByID := make(map[string]*models.Server, len(pass.Servers))
	for _, s := range pass.Servers {
		serversByID[s.ID.String()] = s
	}

	submitted := 0
	for _, library := range pass.Libraries {
		server := serversByID[library.ServerID.String()]
		if server == nil {
			continue
		}
		if _, started, err := h.submitter.SubmitLibrary(ctx, account, server, library); err != nil {
			log.Printf("Job: submit library %q: %v", library.Name, err)
		} else if started {
			submitted++
		}
	}

	if err := h.repos.Accounts.UpdateLastSynced(account.ID); err != nil {
		log.Printf("Job: mark account synced: %v", err)
	}
	if err := h.repos.SyncJobs.RecordResult(jobID, models.JobCompleted,
		len(pass.Servers), pass.Unreachable, submitted, nil); err != nil {
		log.Printf("Job: record result for %s: %v", jobID, err)
	}
	h.releaseLock(p.LockKey)

	log.Printf("Job: account %s synced: %d servers, %d libraries submitted",
		account.PlexUsername, len(pass.Servers), submitted)
	if h.notifier != nil {
		h.notifier.Broadcast("sync:account:complete", map[string]interface{}{
			"job_id":    p.JobID,
			"servers":   len(pass.Servers),
			"submitted": submitted,
		})
	}
	return nil
}

func (h *SyncAccountHandler) fail(ctx context.Context, id uuid.UUID, lockKey string, err error, permanent bool) error {
	msg := err.Error()

	if permanent || finalAttempt(ctx) {
		if uerr := h.repos.SyncJobs.UpdateStatus(id, models.JobFailed, &msg); uerr != nil {
			log.Printf("Job: mark %s failed: %v", id, uerr)
		}
		h.releaseLock(lockKey)
		if permanent {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if uerr := h.repos.SyncJobs.UpdateStatus(id, models.JobRetrying, &msg); uerr != nil {
		log.Printf("Job: mark %s retrying: %v", id, uerr)
	}
	return err
}

func (h *SyncAccountHandler) releaseLock(key string) {
	if key == "" {
		return
	}
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.locks.Release(releaseCtx, key); err != nil {
		log.Printf("Job: release lock %s: %v", key, err)
	}
}
