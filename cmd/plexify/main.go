package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/georgepapagapitos/plexify/internal/api"
	"github.com/georgepapagapitos/plexify/internal/config"
	"github.com/georgepapagapitos/plexify/internal/coordinator"
	"github.com/georgepapagapitos/plexify/internal/db"
	"github.com/georgepapagapitos/plexify/internal/jobs"
	"github.com/georgepapagapitos/plexify/internal/locker"
	"github.com/georgepapagapitos/plexify/internal/notifications"
	"github.com/georgepapagapitos/plexify/internal/repository"
	"github.com/georgepapagapitos/plexify/internal/scheduler"
	"github.com/georgepapagapitos/plexify/internal/version"
)

func main() {
	ver := version.Load()
	log.Printf("Plexify %s starting...", ver.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(database.DB)

	locks := locker.NewRedisLocker(cfg.RedisAddr)
	defer locks.Close()

	queue := jobs.NewQueue(cfg.RedisAddr, cfg.WorkerConcurrency, cfg.RetryBase)

	repos := jobs.Repos{
		Accounts:  repository.NewAccountRepository(database.DB),
		Servers:   repository.NewServerRepository(database.DB),
		Libraries: repository.NewLibraryRepository(database.DB),
		Movies:    repository.NewMovieRepository(database.DB),
		TV:        repository.NewTVRepository(database.DB),
		Genres:    repository.NewGenreRepository(database.DB),
		SyncJobs:  repository.NewSyncJobRepository(database.DB),
	}
	settingsRepo := repository.NewSettingsRepository(database.DB)

	coord := coordinator.New(cfg, queue, locks, repos.Accounts, repos.Servers, repos.Libraries, repos.SyncJobs, settingsRepo)

	srv, err := api.NewServer(cfg, database, coord)
	if err != nil {
		log.Fatalf("server init failed: %v", err)
	}

	webhooks := notifications.NewWebhookSender(settingsRepo)
	jobs.RegisterHandlers(queue, cfg, repos, locks, coord, srv.WSHub(), webhooks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := queue.Start(ctx); err != nil {
		log.Fatalf("queue start failed: %v", err)
	}

	sched := scheduler.New(cfg.SchedulerCadence, repos.Accounts, settingsRepo, coord)
	if err := sched.Start(); err != nil {
		log.Fatalf("scheduler start failed: %v", err)
	}

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	sched.Stop()
	queue.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
