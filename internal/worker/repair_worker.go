package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/degree-backend/internal/metrics"
	"github.com/stemsi/degree-backend/internal/repository"
	"github.com/stemsi/degree-backend/internal/search"
	"github.com/stemsi/degree-backend/internal/service"
)

// PollTimeout is the BLPOP timeout. Must be >= 1s to satisfy Redis.
const PollTimeout = 1 * time.Second

// errRecordReappeared marks a delete job whose record exists again. The
// create or update that brought it back owns the index document.
var errRecordReappeared = errors.New("record exists again")

// RepairOptions tunes retry behaviour.
type RepairOptions struct {
	MaxAttempts int
	Backoff     time.Duration
}

// RepairWorker consumes the sync repair queue and retries failed index writes.
type RepairWorker struct {
	rdb     *redis.Client
	key     string
	repo    repository.DegreeRepository
	index   search.Index
	sync    *service.SyncCoordinator
	metrics *metrics.Metrics
	opts    RepairOptions
	log     zerolog.Logger
}

func NewRepairWorker(
	rdb *redis.Client,
	key string,
	repo repository.DegreeRepository,
	index search.Index,
	sync *service.SyncCoordinator,
	m *metrics.Metrics,
	opts RepairOptions,
	log zerolog.Logger,
) *RepairWorker {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return &RepairWorker{
		rdb:     rdb,
		key:     key,
		repo:    repo,
		index:   index,
		sync:    sync,
		metrics: m,
		opts:    opts,
		log:     log.With().Str("component", "repair_worker").Logger(),
	}
}

// Start runs the worker loop until ctx is cancelled. Call in a goroutine.
// Jobs still queued at shutdown stay in Redis. A job popped by a BLPOP that
// is interrupted by cancellation can be lost; a reindex recovers it.
func (w *RepairWorker) Start(ctx context.Context) {
	w.log.Info().
		Int("max_attempts", w.opts.MaxAttempts).
		Dur("backoff", w.opts.Backoff).
		Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *RepairWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, PollTimeout, w.key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			// Avoid a hot loop while Redis is down.
			w.sleep(ctx, PollTimeout)
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var job service.RepairJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		w.log.Error().Err(err).Str("payload", result[1]).Msg("Dropping malformed repair job")
		w.metrics.RepairJobsTotal.WithLabelValues("unknown", "dropped").Inc()
		return
	}

	w.handle(ctx, job)
}

// handle runs one job and either acknowledges, retries or drops it.
func (w *RepairWorker) handle(ctx context.Context, job service.RepairJob) {
	err := w.run(ctx, job)
	log := w.log.With().Str("op", string(job.Op)).Str("degree_id", job.ID).Int("attempt", job.Attempt).Logger()

	switch {
	case err == nil:
		w.metrics.RepairJobsTotal.WithLabelValues(string(job.Op), "repaired").Inc()
		log.Info().Msg("Index repaired")
		return
	case errors.Is(err, errRecordReappeared):
		w.metrics.RepairJobsTotal.WithLabelValues(string(job.Op), "skipped").Inc()
		log.Info().Msg("Record exists again, delete repair skipped")
		return
	}

	job.Attempt++
	if job.Attempt >= w.opts.MaxAttempts {
		w.metrics.RepairJobsTotal.WithLabelValues(string(job.Op), "dropped").Inc()
		log.Error().Err(err).Msg("Repair attempts exhausted, dropping job")
		return
	}

	log.Warn().Err(err).Dur("backoff", w.opts.Backoff).Msg("Repair failed, retrying")
	w.metrics.RepairJobsTotal.WithLabelValues(string(job.Op), "retried").Inc()
	if !w.sleep(ctx, w.opts.Backoff) {
		// Shutting down; keep the job for the next process.
		ctx = context.WithoutCancel(ctx)
	}

	data, _ := json.Marshal(job)
	if err := w.rdb.RPush(ctx, w.key, data).Err(); err != nil {
		log.Error().Err(err).Msg("Failed to re-queue repair job")
	}
}

func (w *RepairWorker) run(ctx context.Context, job service.RepairJob) error {
	switch job.Op {
	case service.RepairSync:
		if res := w.sync.Sync(ctx, job.ID); res.Failed() {
			return res.Err
		}
		return nil
	case service.RepairDelete:
		_, err := w.repo.FindByID(ctx, job.ID)
		if err == nil {
			return errRecordReappeared
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("check record: %w", err)
		}
		return w.index.DeleteByID(ctx, job.ID)
	default:
		return fmt.Errorf("unknown repair op %q", job.Op)
	}
}

// sleep waits for d or until ctx is done and reports whether the full wait elapsed.
func (w *RepairWorker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
