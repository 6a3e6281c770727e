package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jordankuhns/readwise-twos-sync/internal/config"
	"github.com/jordankuhns/readwise-twos-sync/internal/crypto"
	"github.com/jordankuhns/readwise-twos-sync/internal/database"
	"github.com/jordankuhns/readwise-twos-sync/internal/database/credentials"
	"github.com/jordankuhns/readwise-twos-sync/internal/database/syncruns"
	"github.com/jordankuhns/readwise-twos-sync/internal/database/syncstate"
	"github.com/jordankuhns/readwise-twos-sync/internal/database/users"
	http_controllers "github.com/jordankuhns/readwise-twos-sync/internal/http"
	"github.com/jordankuhns/readwise-twos-sync/internal/readwise"
	"github.com/jordankuhns/readwise-twos-sync/internal/scheduler"
	"github.com/jordankuhns/readwise-twos-sync/internal/services"
	"github.com/jordankuhns/readwise-twos-sync/internal/syncer"
	"github.com/jordankuhns/readwise-twos-sync/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down within
// the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before closing the listener
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires config, database, task queue, scheduler, and router together
// and serves until shutdown.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting readwise-twos-sync v%s", version)

	if cfg.Crypto.Key == "" {
		log.Fatalf("ENCRYPTION_KEY is not set; generate one with the 'genkey' subcommand")
	}
	encryptor, err := crypto.NewEncryptorFromBase64(cfg.Crypto.Key)
	if err != nil {
		log.Fatalf("Invalid ENCRYPTION_KEY: %v", err)
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	userRepo := users.NewRepository(db.DB)
	credRepo := credentials.NewRepository(db.DB, encryptor)
	stateRepo := syncstate.NewRepository(db.DB)
	runsRepo := syncruns.NewRepository(db.DB)

	var source syncer.SourceClient
	if cfg.Readwise.BaseURL != "" {
		source = readwise.NewClientWithBaseURL(cfg.Readwise.BaseURL)
	} else {
		source = readwise.NewClient()
	}

	syncService := services.NewSyncService(userRepo, credRepo, source, stateRepo, runsRepo)

	// Task queue
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(tasks.NewSyncUserQueue(syncService))

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Scheduler needs the task queue to enqueue runs
	var syncScheduler *scheduler.SyncScheduler
	if cfg.Scheduler.Enabled && taskClient != nil {
		syncScheduler = scheduler.NewSyncScheduler(userRepo, taskClient)
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start sync scheduler: %v", err)
		}
	} else if cfg.Scheduler.Enabled {
		log.Printf("WARNING: scheduler requires the task queue; set TASKS_ENABLED=true")
	}

	routerCfg := http_controllers.RouterConfig{
		Database:   db,
		Version:    version,
		Users:      userRepo,
		Runs:       runsRepo,
		Watermarks: stateRepo,
	}
	if taskClient != nil {
		routerCfg.Enqueuer = taskClient
	}
	if syncScheduler != nil {
		routerCfg.Scheduler = syncScheduler
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if syncScheduler != nil {
			syncScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
