package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/degree-backend/internal/metrics"
	"github.com/stemsi/degree-backend/internal/model"
	"github.com/stemsi/degree-backend/internal/repository"
	"github.com/stemsi/degree-backend/internal/search"
	"golang.org/x/sync/singleflight"
)

// searchFields are the index fields a free-text query is matched against.
var searchFields = []string{search.FieldName, search.FieldLevel}

type DegreeService interface {
	Create(ctx context.Context, in model.DegreeInput) (*model.Degree, error)
	Get(ctx context.Context, id string) (*model.Degree, error)
	Update(ctx context.Context, id string, in model.DegreeInput) (*model.Degree, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) (*model.SearchResult, error)
}

// degreeService sequences Record Store writes before search index writes.
// The Record Store result decides success; index sync after create and
// update is best effort.
type degreeService struct {
	repo    repository.DegreeRepository
	index   search.Index
	sync    *SyncCoordinator
	repair  RepairQueue
	metrics *metrics.Metrics
	log     zerolog.Logger
	group   singleflight.Group
}

// NewDegreeService wires the service. A nil repair queue disables repair scheduling.
func NewDegreeService(
	repo repository.DegreeRepository,
	index search.Index,
	sync *SyncCoordinator,
	repair RepairQueue,
	m *metrics.Metrics,
	log zerolog.Logger,
) DegreeService {
	if repair == nil {
		repair = noopRepairQueue{}
	}
	return &degreeService{
		repo:    repo,
		index:   index,
		sync:    sync,
		repair:  repair,
		metrics: m,
		log:     log.With().Str("component", "degree_service").Logger(),
	}
}

func (s *degreeService) Create(ctx context.Context, in model.DegreeInput) (*model.Degree, error) {
	fields, err := validateDegree(in)
	if err != nil {
		s.observe("create", err)
		return nil, err
	}

	degree, err := s.repo.Create(ctx, fields)
	if err != nil {
		return nil, s.storeFailure("create", "", err)
	}

	s.syncBestEffort(ctx, degree.ID)
	s.observe("create", nil)
	return degree, nil
}

func (s *degreeService) Get(ctx context.Context, id string) (*model.Degree, error) {
	id, err := validateID(id)
	if err != nil {
		s.observe("get", err)
		return nil, err
	}

	degree, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.observe("get", ErrNotFound)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.storeFailure("get", id, err)
	}

	s.observe("get", nil)
	return degree, nil
}

func (s *degreeService) Update(ctx context.Context, id string, in model.DegreeInput) (*model.Degree, error) {
	id, err := validateID(id)
	if err != nil {
		s.observe("update", err)
		return nil, err
	}
	fields, err := validateDegree(in)
	if err != nil {
		s.observe("update", err)
		return nil, err
	}

	degree, err := s.repo.Update(ctx, id, fields)
	if errors.Is(err, repository.ErrNotFound) {
		s.observe("update", ErrNotFound)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.storeFailure("update", id, err)
	}

	s.syncBestEffort(ctx, degree.ID)
	s.observe("update", nil)
	return degree, nil
}

// Delete removes the record, then its index document. An index failure is
// surfaced as ErrPartialDelete; the record stays deleted.
func (s *degreeService) Delete(ctx context.Context, id string) error {
	id, err := validateID(id)
	if err != nil {
		s.observe("delete", err)
		return err
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.observe("delete", ErrNotFound)
			return ErrNotFound
		}
		return s.storeFailure("delete", id, err)
	}

	if err := s.index.DeleteByID(ctx, id); err != nil {
		s.metrics.IndexDeletesTotal.WithLabelValues("failed").Inc()
		s.log.Error().Err(err).Str("degree_id", id).Msg("Degree removed from store but index delete failed")
		s.scheduleRepair(ctx, RepairJob{Op: RepairDelete, ID: id})
		s.observe("delete", ErrPartialDelete)
		return fmt.Errorf("%w: %w", ErrPartialDelete, err)
	}

	s.metrics.IndexDeletesTotal.WithLabelValues("ok").Inc()
	s.observe("delete", nil)
	return nil
}

// Search runs a multi-field match over the index only. Identical concurrent
// queries share one index round trip.
func (s *degreeService) Search(ctx context.Context, query string) (*model.SearchResult, error) {
	q, err := validateQuery(query)
	if err != nil {
		s.observe("search", err)
		return nil, err
	}

	start := time.Now()
	// The shared call outlives any single caller; each caller waits on its own ctx.
	ch := s.group.DoChan(q, func() (interface{}, error) {
		return s.index.Search(context.WithoutCancel(ctx), q, searchFields)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		s.observe("search", ctx.Err())
		return nil, ctx.Err()
	}
	s.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	if res.Err != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(res.Err).Str("query", q).Msg("Search index query failed")
		s.observe("search", ErrSearchUnavailable)
		return nil, fmt.Errorf("%w: %w", ErrSearchUnavailable, res.Err)
	}
	found := res.Val.(*search.Result)

	result := &model.SearchResult{
		Query: q,
		Total: found.Total,
		Hits:  make([]model.SearchHit, 0, len(found.Hits)),
	}
	for _, h := range found.Hits {
		result.Hits = append(result.Hits, model.SearchHit{
			Degree: model.Degree{
				ID:            h.ID,
				Name:          h.Source.Name,
				Years:         h.Source.Years,
				Level:         h.Source.Level,
				AverageSalary: h.Source.AverageSalary,
			},
			Score: h.Score,
		})
	}
	result.Empty = len(result.Hits) == 0

	if result.Empty {
		s.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
	} else {
		s.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
	}
	s.observe("search", nil)
	return result, nil
}

// syncBestEffort runs the sync coordinator and schedules a repair on failure.
// The outcome never reaches the caller.
func (s *degreeService) syncBestEffort(ctx context.Context, id string) {
	if res := s.sync.Sync(ctx, id); res.Failed() {
		s.scheduleRepair(ctx, RepairJob{Op: RepairSync, ID: id})
	}
}

func (s *degreeService) scheduleRepair(ctx context.Context, job RepairJob) {
	// The request context may already be done; the job must still be queued.
	ctx = context.WithoutCancel(ctx)
	if err := s.repair.Enqueue(ctx, job); err != nil {
		s.metrics.RepairJobsTotal.WithLabelValues(string(job.Op), "enqueue_failed").Inc()
		s.log.Error().Err(err).
			Str("degree_id", job.ID).
			Str("op", string(job.Op)).
			Msg("Failed to enqueue index repair")
		return
	}
	s.metrics.RepairJobsTotal.WithLabelValues(string(job.Op), "enqueued").Inc()
}

func (s *degreeService) storeFailure(op, id string, err error) error {
	s.log.Error().Err(err).Str("op", op).Str("degree_id", id).Msg("Record store operation failed")
	s.observe(op, ErrStoreUnavailable)
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func (s *degreeService) observe(op string, err error) {
	s.metrics.OperationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsValidation(err):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPartialDelete):
		return "partial_delete"
	case errors.Is(err, ErrSearchUnavailable):
		return "search_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "store_unavailable"
	}
}
