package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/georgepapagapitos/plexify/internal/coordinator"
	"github.com/georgepapagapitos/plexify/internal/models"
	"github.com/georgepapagapitos/plexify/internal/repository"
)

// Scheduler wakes on a fixed cadence and submits account syncs for every
// auto-sync account whose interval has elapsed. Submission goes through the
// coordinator's lock admission, so a tick that overlaps a running sync
// skips instead of piling up.
type Scheduler struct {
	cron         *cron.Cron
	cadence      time.Duration
	accounts     *repository.AccountRepository
	settingsRepo *repository.SettingsRepository
	coord        *coordinator.Coordinator
	now          func() time.Time
}

func New(cadence time.Duration, accounts *repository.AccountRepository,
	settingsRepo *repository.SettingsRepository, coord *coordinator.Coordinator) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		cadence:      cadence,
		accounts:     accounts,
		settingsRepo: settingsRepo,
		coord:        coord,
		now:          time.Now,
	}
}

func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.cadence)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("schedule sync check: %w", err)
	}
	s.cron.Start()
	log.Printf("[scheduler] started (cadence=%s)", s.cadence)
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[scheduler] stopped")
}

func (s *Scheduler) tick() {
	enabled, err := s.settingsRepo.GetBool(repository.SettingSchedulerEnabled, true)
	if err != nil {
		log.Printf("[scheduler] read settings: %v", err)
	}
	if !enabled {
		return
	}

	accounts, err := s.accounts.ListAutoSync()
	if err != nil {
		log.Printf("[scheduler] list accounts: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, account := range accounts {
		if !s.due(account) {
			continue
		}
		_, started, err := s.coord.SubmitAccount(ctx, account)
		if err != nil {
			log.Printf("[scheduler] submit %s: %v", account.PlexUsername, err)
			continue
		}
		if started {
			log.Printf("[scheduler] queued account sync for %s", account.PlexUsername)
		}
	}
}

// due reports whether the account's sync interval has elapsed. An account
// never synced before is always due.
func (s *Scheduler) due(account *models.Account) bool {
	if account.LastSyncedAt == nil {
		return true
	}
	return s.now().Sub(*account.LastSyncedAt) >= account.SyncInterval.Duration()
}
