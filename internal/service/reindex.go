package service

import (
	"context"
	"fmt"

	"github.com/stemsi/degree-backend/internal/repository"
)

// IndexResetter drops every document held by the search index.
type IndexResetter interface {
	Reset(ctx context.Context) (int64, error)
}

// ReindexReport summarizes a full rebuild.
type ReindexReport struct {
	ClearedKeys int64
	Records     int
	Synced      int
	Skipped     int
	FailedIDs   []string
}

// Reindex rebuilds the search index from the Record Store. When reset is
// nil the existing index is kept and every record is re-synced over it.
// Per-record failures are collected in the report; only failing to read the
// store or to clear the index aborts.
func Reindex(ctx context.Context, repo repository.DegreeRepository, reset IndexResetter, sync *SyncCoordinator) (*ReindexReport, error) {
	report := &ReindexReport{}

	if reset != nil {
		n, err := reset.Reset(ctx)
		if err != nil {
			return report, fmt.Errorf("%w: reset: %w", ErrSearchUnavailable, err)
		}
		report.ClearedKeys = n
	}

	degrees, err := repo.List(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	report.Records = len(degrees)

	for _, d := range degrees {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		switch res := sync.Sync(ctx, d.ID); res.Status {
		case SyncOK:
			report.Synced++
		case SyncSkipped:
			// Deleted between List and Sync.
			report.Skipped++
		default:
			report.FailedIDs = append(report.FailedIDs, d.ID)
		}
	}
	return report, nil
}
