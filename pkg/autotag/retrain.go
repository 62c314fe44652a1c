package autotag

import (
	"context"
	"fmt"
	"time"

	"github.com/cognicore/autotag/pkg/autotag/artifact"
	"github.com/cognicore/autotag/pkg/autotag/feature"
	"github.com/cognicore/autotag/pkg/autotag/internalerr"
	"github.com/cognicore/autotag/pkg/autotag/model"
	"github.com/cognicore/autotag/pkg/autotag/store"
)

// initialTrain builds the first artifact set from the store's tagged
// records and persists it.
func (e *Engine) initialTrain(ctx context.Context) (*artifact.Set, error) {
	records, err := e.store.ListTagged(ctx, e.cfg.InitialTrainingLimit)
	if err != nil {
		return nil, fmt.Errorf("initial training: %w", err)
	}

	set, err := e.train(records)
	if err != nil {
		return nil, fmt.Errorf("initial training: %w", err)
	}
	if err := artifact.Save(e.cfg.ModelDir, set); err != nil {
		return nil, fmt.Errorf("initial training: %w", err)
	}
	e.log.Info().Str("version", set.Version).Int("records", len(records)).Msg("initial training complete")
	return set, nil
}

// maybeRetrain fires a retrain when enough feedback accumulated since the
// last one. Failures are logged; callers never see them.
func (e *Engine) maybeRetrain(ctx context.Context) {
	count, err := e.fb.CountSince(ctx, e.lastRetrainTime())
	if err != nil {
		e.log.Error().Err(err).Msg("could not count feedback for retrain trigger")
		return
	}
	if count < e.cfg.FeedbackThreshold {
		return
	}

	e.log.Info().Int("feedback_count", count).Int("threshold", e.cfg.FeedbackThreshold).Msg("feedback threshold reached")
	if err := e.Retrain(ctx); err != nil {
		e.log.Error().Err(err).Msg("retrain failed, keeping active artifact set")
	}
}

// Retrain rebuilds the artifact set from recent tagged records plus the
// accumulated feedback corpus and atomically swaps it in. At most one
// retrain runs at a time; a call that finds one in flight returns nil
// without doing anything. On failure the active set stays untouched.
func (e *Engine) Retrain(ctx context.Context) error {
	if !e.retrainMu.TryLock() {
		e.log.Info().Msg("retrain already in flight, skipping")
		return nil
	}
	defer e.retrainMu.Unlock()

	start := time.Now()

	tagged, err := e.store.ListTagged(ctx, e.cfg.RetrainingLimit)
	if err != nil {
		e.met.RetrainFailures.Inc()
		return fmt.Errorf("retrain: %w", err)
	}
	entries, err := e.store.QueryFeedback(ctx, time.Time{})
	if err != nil {
		e.met.RetrainFailures.Inc()
		return fmt.Errorf("retrain: %w", err)
	}
	corpus := append(tagged, e.fb.TrainingSamples(ctx, entries)...)

	set, err := e.train(corpus)
	if err != nil {
		e.met.RetrainFailures.Inc()
		return fmt.Errorf("retrain: %w", err)
	}
	if err := artifact.Save(e.cfg.ModelDir, set); err != nil {
		e.met.RetrainFailures.Inc()
		return fmt.Errorf("retrain: %w", err)
	}

	e.active.Store(set)
	e.setLastRetrain(set.TrainedAt)
	e.met.Retrains.Inc()

	if err := artifact.Prune(e.cfg.ModelDir, e.cfg.KeepArtifactVersions); err != nil {
		e.log.Warn().Err(err).Msg("could not prune old artifact versions")
	}

	e.log.Info().
		Str("version", set.Version).
		Int("tagged_records", len(tagged)).
		Int("feedback_entries", len(entries)).
		Dur("took", time.Since(start)).
		Msg("retrain complete")
	return nil
}

// train fits a fresh extractor generation and the three models on the
// given records. Each model trains on the subset carrying a non-empty
// label for its field; a field with no labeled samples at all fails with
// ErrInsufficientData.
func (e *Engine) train(records []store.ProductRecord) (*artifact.Set, error) {
	records = usable(records)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no training records with a sale name", internalerr.ErrInsufficientData)
	}

	extractor := feature.NewCombinedExtractor(e.cfg.Text, e.registry)
	inputs := make([]feature.Input, len(records))
	for i, r := range records {
		inputs[i] = inputFromRecord(r)
	}
	if err := extractor.Fit(inputs); err != nil {
		return nil, err
	}

	bundles := make([]feature.Bundle, len(records))
	for i, in := range inputs {
		b, err := extractor.Extract(in)
		if err != nil {
			return nil, err
		}
		bundles[i] = b
	}

	company := model.NewCompanyModel(e.cfg.Model)
	if err := fitField(company.Fit, records, bundles, func(r store.ProductRecord) string { return r.Company }); err != nil {
		return nil, fmt.Errorf("company model: %w", err)
	}

	category := model.NewCategoryModel(e.cfg.Model, e.tax)
	if err := fitField(category.Fit, records, bundles, func(r store.ProductRecord) string { return r.Category }); err != nil {
		return nil, fmt.Errorf("category model: %w", err)
	}

	tags := model.NewTagsModel(e.cfg.Model, e.tax)
	if err := fitField(tags.Fit, records, bundles, func(r store.ProductRecord) string { return r.Tags }); err != nil {
		return nil, fmt.Errorf("tags model: %w", err)
	}

	return &artifact.Set{
		Version:   artifact.NewVersion(),
		TrainedAt: time.Now().UTC(),
		Extractor: extractor,
		Company:   company,
		Category:  category,
		Tags:      tags,
	}, nil
}

// usable drops records that cannot feed the text extractor.
func usable(records []store.ProductRecord) []store.ProductRecord {
	kept := records[:0:0]
	for _, r := range records {
		if r.SaleName != "" {
			kept = append(kept, r)
		}
	}
	return kept
}

// fitField trains one model on the records carrying a non-empty label for
// its field. Feedback samples often correct a single field, so label
// coverage varies per model.
func fitField(fit func([]feature.Bundle, []string) error, records []store.ProductRecord, bundles []feature.Bundle, label func(store.ProductRecord) string) error {
	var (
		features []feature.Bundle
		labels   []string
	)
	for i, r := range records {
		if l := label(r); l != "" {
			features = append(features, bundles[i])
			labels = append(labels, l)
		}
	}
	if len(labels) == 0 {
		return fmt.Errorf("%w: no labeled samples", internalerr.ErrInsufficientData)
	}
	return fit(features, labels)
}
