// Package memstore provides an in-memory store.Store for tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/autotag/pkg/autotag/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	products map[int64]store.ProductRecord
	feedback []store.FeedbackEntry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		nextID:   1,
		products: make(map[int64]store.ProductRecord),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// GetProduct returns a product row by id.
func (s *Store) GetProduct(ctx context.Context, id int64) (store.ProductRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.products[id]; ok {
		return copyRecord(rec), true, nil
	}
	return store.ProductRecord{}, false, nil
}

// UpsertProduct inserts or updates a product row. Rows with ID 0 are
// assigned the next id.
func (s *Store) UpsertProduct(ctx context.Context, r store.ProductRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if r.ID == 0 {
		r.ID = s.nextID
		s.nextID++
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
	} else if r.ID >= s.nextID {
		s.nextID = r.ID + 1
	}
	r.UpdatedAt = now

	s.products[r.ID] = copyRecord(r)
	return r.ID, nil
}

// ListUntagged returns rows still missing a tagging field, ordered by id.
func (s *Store) ListUntagged(ctx context.Context, limit int) ([]store.ProductRecord, error) {
	return s.list(limit, func(r store.ProductRecord) bool { return !r.Complete() })
}

// ListTagged returns fully tagged rows, ordered by id.
func (s *Store) ListTagged(ctx context.Context, limit int) ([]store.ProductRecord, error) {
	return s.list(limit, store.ProductRecord.Complete)
}

func (s *Store) list(limit int, keep func(store.ProductRecord) bool) ([]store.ProductRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	ids := make([]int64, 0, len(s.products))
	for id, rec := range s.products {
		if keep(rec) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]store.ProductRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyRecord(s.products[id]))
	}
	return out, nil
}

// ApplyTags writes the tagging fields of a product row.
func (s *Store) ApplyTags(ctx context.Context, id int64, fields store.TagFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.products[id]
	if !ok {
		return nil
	}
	rec.Company = fields.Company
	rec.Category = fields.Category
	rec.Tags = fields.Tags
	if fields.ProductName != "" {
		rec.ProductName = fields.ProductName
	}
	rec.UpdatedAt = time.Now().UTC()
	s.products[id] = rec
	return nil
}

// RecordFeedback appends a feedback entry.
func (s *Store) RecordFeedback(ctx context.Context, e store.FeedbackEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, e)
	return nil
}

// QueryFeedback returns entries recorded at or after since, oldest first.
func (s *Store) QueryFeedback(ctx context.Context, since time.Time) ([]store.FeedbackEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.FeedbackEntry
	for _, e := range s.feedback {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func copyRecord(r store.ProductRecord) store.ProductRecord {
	if r.Data != nil {
		data := make([]byte, len(r.Data))
		copy(data, r.Data)
		r.Data = data
	}
	return r
}
