package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/degree-backend/internal/metrics"
	"github.com/stemsi/degree-backend/internal/repository"
	"github.com/stemsi/degree-backend/internal/search"
)

// SyncStatus is the outcome of one sync attempt.
type SyncStatus int

const (
	SyncOK SyncStatus = iota
	// SyncSkipped means the record no longer exists, so there was nothing to index.
	SyncSkipped
	SyncFailed
)

func (s SyncStatus) String() string {
	switch s {
	case SyncOK:
		return "ok"
	case SyncSkipped:
		return "skipped"
	case SyncFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SyncResult reports a sync outcome. Err is set only when Status is SyncFailed.
type SyncResult struct {
	ID     string
	Status SyncStatus
	Err    error
}

// Failed reports whether the sync needs repair.
func (r SyncResult) Failed() bool {
	return r.Status == SyncFailed
}

// SyncCoordinator pushes the current Record Store version of a degree into
// the search index. It never fails its caller: every problem is returned as
// a SyncFailed result, logged, and counted.
type SyncCoordinator struct {
	repo    repository.DegreeRepository
	index   search.Index
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewSyncCoordinator(
	repo repository.DegreeRepository,
	index search.Index,
	m *metrics.Metrics,
	log zerolog.Logger,
) *SyncCoordinator {
	return &SyncCoordinator{
		repo:    repo,
		index:   index,
		metrics: m,
		log:     log.With().Str("component", "sync_coordinator").Logger(),
	}
}

// Sync reads the record for id and writes a full replacement document to the index.
func (c *SyncCoordinator) Sync(ctx context.Context, id string) SyncResult {
	res := c.sync(ctx, id)
	c.metrics.SyncTotal.WithLabelValues(res.Status.String()).Inc()

	switch res.Status {
	case SyncOK:
		c.log.Debug().Str("degree_id", id).Msg("Degree synced to search index")
	case SyncSkipped:
		c.log.Info().Str("degree_id", id).Msg("Degree not found, nothing to sync")
	case SyncFailed:
		c.log.Warn().Err(res.Err).Str("degree_id", id).Msg("Degree sync to search index failed")
	}
	return res
}

func (c *SyncCoordinator) sync(ctx context.Context, id string) SyncResult {
	degree, err := c.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return SyncResult{ID: id, Status: SyncSkipped}
	}
	if err != nil {
		return SyncResult{ID: id, Status: SyncFailed, Err: fmt.Errorf("read record: %w", err)}
	}

	if err := c.index.Index(ctx, degree.ID, degree.Fields()); err != nil {
		return SyncResult{ID: id, Status: SyncFailed, Err: fmt.Errorf("index document: %w", err)}
	}
	return SyncResult{ID: id, Status: SyncOK}
}
