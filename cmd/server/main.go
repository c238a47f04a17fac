package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/stemsi/degree-backend/internal/config"
	"github.com/stemsi/degree-backend/internal/database"
	"github.com/stemsi/degree-backend/internal/handler"
	"github.com/stemsi/degree-backend/internal/logger"
	"github.com/stemsi/degree-backend/internal/metrics"
	"github.com/stemsi/degree-backend/internal/repository"
	"github.com/stemsi/degree-backend/internal/router"
	"github.com/stemsi/degree-backend/internal/search"
	"github.com/stemsi/degree-backend/internal/service"
	"github.com/stemsi/degree-backend/internal/validator"
	"github.com/stemsi/degree-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Degree Catalog Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL (Record Store) ──────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis (Search Index) ───────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Metrics ───────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// ─── Initialize Stores ─────────────────────────────────────────────
	degreeRepo := repository.NewDegreeRepository(pool)
	index := search.NewRedisIndex(rdb, cfg.SearchIndexPrefix, cfg.SearchMaxHits)

	// ─── Initialize Services ──────────────────────────────────────────
	syncCoordinator := service.NewSyncCoordinator(degreeRepo, index, m, log)

	var repairQueue service.RepairQueue
	if cfg.SyncRepairEnabled {
		repairQueue = worker.NewRedisRepairQueue(rdb, config.WorkerKey.SyncRepairQueue)
	}
	degreeService := service.NewDegreeService(degreeRepo, index, syncCoordinator, repairQueue, m, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Degree: handler.NewDegreeHandler(degreeService, log),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"record_store": pool,
			"search_index": index,
		}, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	if cfg.SyncRepairEnabled {
		repairWorker := worker.NewRepairWorker(
			rdb,
			config.WorkerKey.SyncRepairQueue,
			degreeRepo,
			index,
			syncCoordinator,
			m,
			worker.RepairOptions{
				MaxAttempts: cfg.SyncRepairMaxAttempts,
				Backoff:     cfg.SyncRepairBackoff,
			},
			log,
		)
		workers.Add(1)
		go func() {
			defer workers.Done()
			repairWorker.Start(workerCtx)
		}()
	} else {
		log.Warn().Msg("Sync repair disabled; failed index writes wait for a reindex")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, m, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers. Queued repair jobs stay in Redis.
	workerCancel()
	done := make(chan struct{})
	go func() {
		workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Timed out waiting for workers")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
