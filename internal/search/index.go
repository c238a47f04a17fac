// Package search implements the degree search index: a denormalized,
// query-optimized copy of the Record Store kept in Redis as an inverted index
// with BM25 relevance scoring.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/degree-backend/internal/config"
	"github.com/stemsi/degree-backend/internal/model"
)

// Searchable document fields.
const (
	FieldName  = "name"
	FieldLevel = "level"
)

// maxTxRetries bounds optimistic-lock retries for one document write.
const maxTxRetries = 5

const (
	termsField = "_terms"
	statDocs   = "docs"
)

var textFields = []string{FieldName, FieldLevel}

var (
	// ErrUnknownField is returned when a search targets a field that is not indexed.
	ErrUnknownField = errors.New("unknown search field")
	// ErrConflict is returned when a document kept changing under concurrent writers.
	ErrConflict = errors.New("index document modified concurrently")
)

// Index is the search index collaborator used by the degree service.
type Index interface {
	Index(ctx context.Context, id string, doc model.DegreeFields) error
	DeleteByID(ctx context.Context, id string) error
	Search(ctx context.Context, query string, fields []string) (*Result, error)
}

// Hit is a matched document with its relevance score.
type Hit struct {
	ID     string
	Score  float64
	Source model.DegreeFields
}

// Result holds the total number of matching documents and the top hits.
type Result struct {
	Total int
	Hits  []Hit
}

// RedisIndex stores each document as a hash and one posting hash per
// (field, term) mapping degree ID to term frequency.
type RedisIndex struct {
	rdb     *redis.Client
	keys    *config.IndexKeys
	maxHits int
}

// NewRedisIndex creates an index under the given key prefix. maxHits <= 0
// means no limit on returned hits.
func NewRedisIndex(rdb *redis.Client, prefix string, maxHits int) *RedisIndex {
	return &RedisIndex{
		rdb:     rdb,
		keys:    config.NewIndexKeys(prefix),
		maxHits: maxHits,
	}
}

// Index writes a full replacement of the document for id. Postings of the
// previous version are removed in the same transaction, so a document never
// mixes old and new fields.
func (x *RedisIndex) Index(ctx context.Context, id string, doc model.DegreeFields) error {
	docKey := x.keys.Doc(id)
	postings, lengths := analyze(doc)

	return x.watch(ctx, docKey, func(tx *redis.Tx) error {
		old, err := tx.HGetAll(ctx, docKey).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(old) > 0 {
				x.unlinkPostings(ctx, pipe, id, old)
			} else {
				pipe.HIncrBy(ctx, x.keys.Stats(), statDocs, 1)
			}

			var terms []string
			for field, freqs := range postings {
				for term, tf := range freqs {
					pipe.HSet(ctx, x.keys.Term(field, term), id, tf)
					terms = append(terms, field+":"+term)
				}
			}
			sort.Strings(terms)

			values := map[string]any{
				FieldName:       doc.Name,
				"years":         formatFloat(doc.Years),
				FieldLevel:      string(doc.Level),
				"averageSalary": formatFloat(doc.AverageSalary),
				termsField:      strings.Join(terms, " "),
			}
			for _, field := range textFields {
				values[lengthField(field)] = lengths[field]
				pipe.HIncrBy(ctx, x.keys.Stats(), lengthField(field), int64(lengths[field]))
			}
			pipe.Del(ctx, docKey)
			pipe.HSet(ctx, docKey, values)
			return nil
		})
		return err
	})
}

// DeleteByID removes the document and its postings. Deleting an absent
// document succeeds.
func (x *RedisIndex) DeleteByID(ctx context.Context, id string) error {
	docKey := x.keys.Doc(id)

	return x.watch(ctx, docKey, func(tx *redis.Tx) error {
		old, err := tx.HGetAll(ctx, docKey).Result()
		if err != nil {
			return err
		}
		if len(old) == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			x.unlinkPostings(ctx, pipe, id, old)
			pipe.HIncrBy(ctx, x.keys.Stats(), statDocs, -1)
			pipe.Del(ctx, docKey)
			return nil
		})
		return err
	})
}

// Search matches the query terms against each requested field and scores
// every candidate by its best field. Hits are ordered by score, then ID.
func (x *RedisIndex) Search(ctx context.Context, query string, fields []string) (*Result, error) {
	for _, f := range fields {
		if !isTextField(f) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
	}

	terms := uniqueTerms(query)
	if len(terms) == 0 || len(fields) == 0 {
		return &Result{Hits: []Hit{}}, nil
	}

	pipe := x.rdb.Pipeline()
	statsCmd := pipe.HGetAll(ctx, x.keys.Stats())
	postingCmds := make(map[string]map[string]*redis.MapStringStringCmd, len(fields))
	for _, field := range fields {
		postingCmds[field] = make(map[string]*redis.MapStringStringCmd, len(terms))
		for _, term := range terms {
			postingCmds[field][term] = pipe.HGetAll(ctx, x.keys.Term(field, term))
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read postings: %w", err)
	}

	stats := statsCmd.Val()
	totalDocs := parseInt(stats[statDocs])

	// field -> term -> id -> tf
	postings := make(map[string]map[string]map[string]int64, len(fields))
	candidates := make(map[string]struct{})
	for field, byTerm := range postingCmds {
		postings[field] = make(map[string]map[string]int64, len(byTerm))
		for term, cmd := range byTerm {
			ids := make(map[string]int64, len(cmd.Val()))
			for id, tf := range cmd.Val() {
				ids[id] = parseInt(tf)
				candidates[id] = struct{}{}
			}
			postings[field][term] = ids
		}
	}
	if len(candidates) == 0 {
		return &Result{Hits: []Hit{}}, nil
	}

	docs, err := x.fetchDocs(ctx, candidates)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(docs))
	for id, raw := range docs {
		best := 0.0
		for _, field := range fields {
			avgLen := 0.0
			if totalDocs > 0 {
				avgLen = float64(parseInt(stats[lengthField(field)])) / float64(totalDocs)
			}
			fieldLen := float64(parseInt(raw[lengthField(field)]))
			score := 0.0
			for _, term := range terms {
				ids := postings[field][term]
				tf, ok := ids[id]
				if !ok {
					continue
				}
				score += idf(totalDocs, int64(len(ids))) * tfNorm(float64(tf), fieldLen, avgLen)
			}
			if score > best {
				best = score
			}
		}
		hits = append(hits, Hit{ID: id, Score: roundScore(best), Source: decodeDoc(raw)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	result := &Result{Total: len(hits), Hits: hits}
	if x.maxHits > 0 && len(hits) > x.maxHits {
		result.Hits = hits[:x.maxHits]
	}
	return result, nil
}

// Get returns the indexed document for id, or false when it is not indexed.
func (x *RedisIndex) Get(ctx context.Context, id string) (model.DegreeFields, bool, error) {
	raw, err := x.rdb.HGetAll(ctx, x.keys.Doc(id)).Result()
	if err != nil {
		return model.DegreeFields{}, false, err
	}
	if len(raw) == 0 {
		return model.DegreeFields{}, false, nil
	}
	return decodeDoc(raw), true, nil
}

// Reset deletes every key owned by the index and returns how many were removed.
func (x *RedisIndex) Reset(ctx context.Context) (int64, error) {
	var deleted int64
	iter := x.rdb.Scan(ctx, 0, x.keys.Pattern(), 100).Iterator()
	for iter.Next(ctx) {
		if err := x.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("deleting key %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning pattern %s: %w", x.keys.Pattern(), err)
	}
	return deleted, nil
}

// Ping checks connectivity to the index backend.
func (x *RedisIndex) Ping(ctx context.Context) error {
	return x.rdb.Ping(ctx).Err()
}

func (x *RedisIndex) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := x.rdb.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrConflict, key)
}

func (x *RedisIndex) unlinkPostings(ctx context.Context, pipe redis.Pipeliner, id string, old map[string]string) {
	for _, ft := range strings.Fields(old[termsField]) {
		field, term, ok := strings.Cut(ft, ":")
		if !ok {
			continue
		}
		pipe.HDel(ctx, x.keys.Term(field, term), id)
	}
	for _, field := range textFields {
		if n := parseInt(old[lengthField(field)]); n != 0 {
			pipe.HIncrBy(ctx, x.keys.Stats(), lengthField(field), -n)
		}
	}
}

func (x *RedisIndex) fetchDocs(ctx context.Context, ids map[string]struct{}) (map[string]map[string]string, error) {
	pipe := x.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(ids))
	for id := range ids {
		cmds[id] = pipe.HGetAll(ctx, x.keys.Doc(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	docs := make(map[string]map[string]string, len(cmds))
	for id, cmd := range cmds {
		// A posting can briefly outlive its document under concurrent deletes.
		if len(cmd.Val()) == 0 {
			continue
		}
		docs[id] = cmd.Val()
	}
	return docs, nil
}

func analyze(doc model.DegreeFields) (map[string]map[string]int, map[string]int) {
	postings := make(map[string]map[string]int, len(textFields))
	lengths := make(map[string]int, len(textFields))
	for field, text := range map[string]string{FieldName: doc.Name, FieldLevel: string(doc.Level)} {
		postings[field], lengths[field] = termFrequencies(text)
	}
	return postings, lengths
}

func decodeDoc(raw map[string]string) model.DegreeFields {
	years, _ := strconv.ParseFloat(raw["years"], 64)
	salary, _ := strconv.ParseFloat(raw["averageSalary"], 64)
	return model.DegreeFields{
		Name:          raw[FieldName],
		Years:         years,
		Level:         model.Level(raw[FieldLevel]),
		AverageSalary: salary,
	}
}

func isTextField(field string) bool {
	for _, f := range textFields {
		if f == field {
			return true
		}
	}
	return false
}

func lengthField(field string) string {
	return "_len:" + field
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
