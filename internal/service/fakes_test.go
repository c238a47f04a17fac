package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/degree-backend/internal/model"
	"github.com/stemsi/degree-backend/internal/repository"
	"github.com/stemsi/degree-backend/internal/search"
)

var errConnRefused = errors.New("dial tcp: connection refused")

// memRepo is an in-memory Record Store.
type memRepo struct {
	mu       sync.Mutex
	records  map[string]model.Degree
	writes   int
	fail     error
	failGet  error
	failList error
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]model.Degree)}
}

func (r *memRepo) Create(_ context.Context, f *model.DegreeFields) (*model.Degree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	r.writes++
	d := model.Degree{ID: uuid.NewString(), Name: f.Name, Years: f.Years, Level: f.Level, AverageSalary: f.AverageSalary}
	r.records[d.ID] = d
	return &d, nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*model.Degree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	d, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *memRepo) Update(_ context.Context, id string, f *model.DegreeFields) (*model.Degree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	if _, ok := r.records[id]; !ok {
		return nil, repository.ErrNotFound
	}
	r.writes++
	d := model.Degree{ID: id, Name: f.Name, Years: f.Years, Level: f.Level, AverageSalary: f.AverageSalary}
	r.records[id] = d
	return &d, nil
}

func (r *memRepo) Delete(_ context.Context, id string) (*model.Degree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	d, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r.writes++
	delete(r.records, id)
	return &d, nil
}

func (r *memRepo) List(_ context.Context) ([]*model.Degree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList != nil {
		return nil, r.failList
	}
	out := make([]*model.Degree, 0, len(r.records))
	for _, d := range r.records {
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memIndex is an in-memory search index matching any query term against
// the tokenized name and level.
type memIndex struct {
	mu         sync.Mutex
	docs       map[string]model.DegreeFields
	calls      int
	failIndex  error
	failDelete error
	failSearch error
	failReset  error

	// When searchGate is set, Search signals searchStarted and blocks until
	// the gate closes or ctx is done.
	searchGate    chan struct{}
	searchStarted chan struct{}
}

func newMemIndex() *memIndex {
	return &memIndex{docs: make(map[string]model.DegreeFields)}
}

func (x *memIndex) Index(_ context.Context, id string, doc model.DegreeFields) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.calls++
	if x.failIndex != nil {
		return x.failIndex
	}
	x.docs[id] = doc
	return nil
}

func (x *memIndex) DeleteByID(_ context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.calls++
	if x.failDelete != nil {
		return x.failDelete
	}
	delete(x.docs, id)
	return nil
}

func (x *memIndex) Search(ctx context.Context, query string, fields []string) (*search.Result, error) {
	if x.searchGate != nil {
		select {
		case x.searchStarted <- struct{}{}:
		default:
		}
		select {
		case <-x.searchGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.calls++
	if x.failSearch != nil {
		return nil, x.failSearch
	}
	want := make(map[string]bool)
	for _, t := range search.Tokenize(query) {
		want[t] = true
	}
	res := &search.Result{Hits: []search.Hit{}}
	for id, doc := range x.docs {
		var text string
		for _, f := range fields {
			switch f {
			case search.FieldName:
				text += " " + doc.Name
			case search.FieldLevel:
				text += " " + string(doc.Level)
			}
		}
		for _, t := range search.Tokenize(text) {
			if want[t] {
				res.Hits = append(res.Hits, search.Hit{ID: id, Score: 1, Source: doc})
				break
			}
		}
	}
	sort.Slice(res.Hits, func(i, j int) bool { return res.Hits[i].ID < res.Hits[j].ID })
	res.Total = len(res.Hits)
	return res, nil
}

func (x *memIndex) Reset(_ context.Context) (int64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.failReset != nil {
		return 0, x.failReset
	}
	n := int64(len(x.docs))
	x.docs = make(map[string]model.DegreeFields)
	return n, nil
}

func (x *memIndex) doc(id string) (model.DegreeFields, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	d, ok := x.docs[id]
	return d, ok
}

// memRepairQueue records scheduled repair jobs.
type memRepairQueue struct {
	mu   sync.Mutex
	jobs []RepairJob
	fail error
}

func (q *memRepairQueue) Enqueue(_ context.Context, job RepairJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail != nil {
		return q.fail
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memRepairQueue) snapshot() []RepairJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]RepairJob(nil), q.jobs...)
}
