package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/degree-backend/internal/config"
	"github.com/stemsi/degree-backend/internal/database"
	"github.com/stemsi/degree-backend/internal/logger"
	"github.com/stemsi/degree-backend/internal/metrics"
	"github.com/stemsi/degree-backend/internal/repository"
	"github.com/stemsi/degree-backend/internal/search"
	"github.com/stemsi/degree-backend/internal/service"
)

// reindex rebuilds the Redis search index from PostgreSQL.
//
//	go run ./cmd/reindex            # clear the index, then re-sync every record
//	go run ./cmd/reindex -keep      # re-sync over the existing index
func main() {
	keep := flag.Bool("keep", false, "Re-sync without clearing existing index keys first")
	flag.Parse()

	cfg := config.Load()
	log := logger.Component(logger.Setup(cfg.LogLevel, cfg.LogFormat), "reindex")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	repo := repository.NewDegreeRepository(pool)
	index := search.NewRedisIndex(rdb, cfg.SearchIndexPrefix, cfg.SearchMaxHits)
	syncCoordinator := service.NewSyncCoordinator(repo, index, metrics.NewNop(), log)

	var reset service.IndexResetter
	if !*keep {
		reset = index
	}

	start := time.Now()
	report, err := service.Reindex(ctx, repo, reset, syncCoordinator)
	if err != nil {
		log.Error().Err(err).Msg("Reindex aborted")
		os.Exit(1)
	}

	event := log.Info()
	if len(report.FailedIDs) > 0 {
		event = log.Warn().Strs("failed_ids", report.FailedIDs)
	}
	event.
		Int64("cleared_keys", report.ClearedKeys).
		Int("records", report.Records).
		Int("synced", report.Synced).
		Int("skipped", report.Skipped).
		Int("failed", len(report.FailedIDs)).
		Dur("took", time.Since(start)).
		Msg("Reindex complete")

	if len(report.FailedIDs) > 0 {
		os.Exit(1)
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
