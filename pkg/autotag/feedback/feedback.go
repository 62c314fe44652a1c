// Package feedback records human tagging corrections and converts them
// into retraining samples.
package feedback

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/cognicore/autotag/pkg/autotag/store"
)

// System persists corrections and turns the accumulated corpus into
// training samples.
type System struct {
	store store.Store
	log   zerolog.Logger
}

// New creates a feedback system over the given store.
func New(st store.Store, log zerolog.Logger) *System {
	return &System{store: st, log: log}
}

// Record stores one correction. The entry is assigned an id and a
// timestamp if missing; it is immutable once written.
func (s *System) Record(ctx context.Context, e store.FeedbackEntry) error {
	if e.ID == "" {
		e.ID = ulid.MustNew(ulid.Now(), rand.Reader).String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	if err := s.store.RecordFeedback(ctx, e); err != nil {
		return err
	}
	s.log.Info().
		Str("feedback_id", e.ID).
		Int64("product_id", e.ProductID).
		Str("reviewer", e.ReviewerID).
		Msg("feedback recorded")
	return nil
}

// CountSince returns how many entries were recorded at or after since.
func (s *System) CountSince(ctx context.Context, since time.Time) (int, error) {
	entries, err := s.store.QueryFeedback(ctx, since)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// TrainingSamples converts feedback entries into product records suitable
// for retraining. Entries whose source record cannot be resolved, or that
// carry no non-empty corrected field, are dropped.
func (s *System) TrainingSamples(ctx context.Context, entries []store.FeedbackEntry) []store.ProductRecord {
	samples := make([]store.ProductRecord, 0, len(entries))
	for _, e := range entries {
		rec, found, err := s.store.GetProduct(ctx, e.ProductID)
		if err != nil || !found {
			s.log.Warn().Int64("product_id", e.ProductID).Msg("feedback source record unresolved, dropping")
			continue
		}

		c := e.Corrected
		if c.Company == "" && c.Category == "" && c.Tags == "" && c.ProductName == "" {
			continue
		}

		if c.Company != "" {
			rec.Company = c.Company
		}
		if c.Category != "" {
			rec.Category = c.Category
		}
		if c.Tags != "" {
			rec.Tags = c.Tags
		}
		if c.ProductName != "" {
			rec.ProductName = c.ProductName
		}
		if rec.SaleName == "" {
			continue
		}
		samples = append(samples, rec)
	}
	s.log.Debug().Int("entries", len(entries)).Int("samples", len(samples)).Msg("feedback converted to training samples")
	return samples
}
