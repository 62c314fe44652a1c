// Package autotag is the product tagging engine facade. It coordinates
// feature extraction, the three classification models, taxonomy
// reconciliation, confidence scoring, and feedback-driven retraining.
package autotag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cognicore/autotag/pkg/autotag/artifact"
	"github.com/cognicore/autotag/pkg/autotag/config"
	"github.com/cognicore/autotag/pkg/autotag/feature"
	"github.com/cognicore/autotag/pkg/autotag/feedback"
	"github.com/cognicore/autotag/pkg/autotag/internalerr"
	"github.com/cognicore/autotag/pkg/autotag/metrics"
	"github.com/cognicore/autotag/pkg/autotag/model"
	"github.com/cognicore/autotag/pkg/autotag/store"
	"github.com/cognicore/autotag/pkg/autotag/taxonomy"
)

// Fixed per-field weights for the overall confidence score. Constants so
// confidence values stay comparable across runs.
const (
	companyWeight  = 0.3
	categoryWeight = 0.4
	tagsWeight     = 0.3
)

// Engine is the tagging engine. One instance per process; safe for
// concurrent use. Readers work against the active artifact set through an
// atomic pointer, so a retrain swap is all-or-nothing from their view.
type Engine struct {
	store    store.Store
	cfg      config.Config
	tax      *taxonomy.Taxonomy
	registry *feature.AdapterRegistry
	fb       *feedback.System
	log      zerolog.Logger
	met      *metrics.Metrics

	active      atomic.Pointer[artifact.Set]
	retrainMu   sync.Mutex
	lastRetrain atomic.Int64 // unix nanoseconds
}

// Options configures an Engine.
type Options struct {
	Store    store.Store
	Config   config.Config
	Taxonomy *taxonomy.Taxonomy       // optional; config/default otherwise
	Adapters *feature.AdapterRegistry // optional; shipped adapters otherwise
	Logger   zerolog.Logger           // zero value discards logs
	Metrics  *metrics.Metrics         // optional; a fresh registry otherwise
}

// New creates an Engine. It loads the persisted artifact set; when no set
// is loadable it trains one from the store's fully tagged records and
// persists it. With no complete records available, construction fails
// with ErrInsufficientData.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("autotag: store is required")
	}

	cfg := opts.Config
	if cfg == (config.Config{}) {
		cfg = config.Default()
	}

	tax := opts.Taxonomy
	if tax == nil {
		var err error
		tax, err = cfg.Taxonomy()
		if err != nil {
			return nil, fmt.Errorf("load taxonomy: %w", err)
		}
	}

	registry := opts.Adapters
	if registry == nil {
		registry = feature.DefaultAdapters()
	}

	met := opts.Metrics
	if met == nil {
		met = metrics.New()
	}

	e := &Engine{
		store:    opts.Store,
		cfg:      cfg,
		tax:      tax,
		registry: registry,
		fb:       feedback.New(opts.Store, opts.Logger),
		log:      opts.Logger,
		met:      met,
	}

	set, err := artifact.Load(cfg.ModelDir, registry)
	if err != nil {
		e.log.Warn().Err(err).Str("dir", cfg.ModelDir).Msg("no loadable artifact set, training from tagged records")
		set, err = e.initialTrain(ctx)
		if err != nil {
			return nil, err
		}
	}

	e.active.Store(set)
	e.setLastRetrain(set.TrainedAt)
	e.log.Info().Str("version", set.Version).Time("trained_at", set.TrainedAt).Msg("artifact set active")
	return e, nil
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Confidence carries the per-field probability mass of the chosen labels
// plus the fixed-weight overall average.
type Confidence struct {
	Company  float64
	Category float64
	Tags     float64
	Overall  float64
}

// TagResult is the outcome of tagging one product.
type TagResult struct {
	ProductID  int64
	Prediction store.Prediction
	Confidence Confidence
}

// TagProduct predicts company, category and tags for one product.
// Unknown ids return ErrNotFound; internal failures come back as wrapped
// errors, never panics.
func (e *Engine) TagProduct(ctx context.Context, id int64) (TagResult, error) {
	start := time.Now()

	rec, found, err := e.store.GetProduct(ctx, id)
	if err != nil {
		e.met.TaggingErrors.Inc()
		return TagResult{}, fmt.Errorf("tag product %d: %w", id, err)
	}
	if !found {
		e.met.TaggingErrors.Inc()
		return TagResult{}, fmt.Errorf("tag product %d: %w", id, internalerr.ErrNotFound)
	}

	result, err := e.predict(e.active.Load(), rec)
	if err != nil {
		e.met.TaggingErrors.Inc()
		return TagResult{}, fmt.Errorf("tag product %d: %w", id, err)
	}

	e.met.ProductsTagged.Inc()
	e.met.TaggingDuration.Observe(time.Since(start).Seconds())
	return result, nil
}

// predict runs extraction, the three models, reconciliation, and
// confidence scoring against one artifact set.
func (e *Engine) predict(set *artifact.Set, rec store.ProductRecord) (TagResult, error) {
	bundle, err := set.Extractor.Extract(inputFromRecord(rec))
	if err != nil {
		return TagResult{}, err
	}

	company, err := set.Company.Predict(bundle)
	if err != nil {
		return TagResult{}, err
	}

	category, fellBack, err := set.Category.PredictWithFallback(bundle)
	if err != nil {
		return TagResult{}, err
	}
	if fellBack {
		e.met.ReconciliationFallbacks.Inc()
		e.log.Warn().Int64("product_id", rec.ID).Str("category", category).Msg("category prediction reconciled into taxonomy")
	}

	// Tags are predicted conditioned on the reconciled category.
	tags, err := set.Tags.Predict(bundle, category)
	if err != nil {
		return TagResult{}, err
	}

	prediction := store.Prediction{Company: company, Category: category, Tags: tags}
	confidence, err := e.score(set, bundle, prediction)
	if err != nil {
		return TagResult{}, err
	}

	return TagResult{ProductID: rec.ID, Prediction: prediction, Confidence: confidence}, nil
}

// score computes per-field confidence: the model's probability for the
// reconciled label, zero when the label is unknown to the model. Tags use
// the first (subcategory) token only.
func (e *Engine) score(set *artifact.Set, bundle feature.Bundle, p store.Prediction) (Confidence, error) {
	companyProbs, err := set.Company.PredictProba(bundle)
	if err != nil {
		return Confidence{}, err
	}
	categoryProbs, err := set.Category.PredictProba(bundle)
	if err != nil {
		return Confidence{}, err
	}
	tagProbs, err := set.Tags.PredictProba(bundle)
	if err != nil {
		return Confidence{}, err
	}

	c := Confidence{
		Company:  companyProbs[p.Company],
		Category: categoryProbs[p.Category],
	}
	if p.Tags != "" {
		first := p.Tags
		if i := strings.Index(first, taxonomy.Delimiter); i >= 0 {
			first = first[:i]
		}
		c.Tags = tagProbs[first]
	}
	c.Overall = companyWeight*c.Company + categoryWeight*c.Category + tagsWeight*c.Tags
	return c, nil
}

// ProcessFeedback recomputes the current prediction for audit, records
// the correction, and evaluates the retrain trigger. Retrain failures are
// logged, never returned.
func (e *Engine) ProcessFeedback(ctx context.Context, id int64, corrected store.TagFields, reviewerID string) error {
	rec, found, err := e.store.GetProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("process feedback for %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("process feedback for %d: %w", id, internalerr.ErrNotFound)
	}

	// Snapshot what the active models would predict right now, so the
	// entry records what the reviewer corrected against.
	var original store.Prediction
	if result, err := e.predict(e.active.Load(), rec); err != nil {
		e.log.Warn().Err(err).Int64("product_id", id).Msg("could not recompute original prediction for feedback audit")
	} else {
		original = result.Prediction
	}

	entry := store.FeedbackEntry{
		ProductID:  id,
		Original:   original,
		Corrected:  corrected,
		ReviewerID: reviewerID,
	}
	if err := e.fb.Record(ctx, entry); err != nil {
		return fmt.Errorf("process feedback for %d: %w", id, err)
	}
	e.met.FeedbackRecorded.Inc()

	e.maybeRetrain(ctx)
	return nil
}

// Batch item status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// BatchItem is one product's outcome within a batch run.
type BatchItem struct {
	ID     int64
	Status string
	Detail string
}

// BatchResult aggregates a batch tagging run.
type BatchResult struct {
	Total      int
	Successful int
	Failed     int
	Items      []BatchItem
}

// BatchTag tags up to limit untagged products and applies successful
// predictions back to the store. A single item's failure never aborts
// the batch.
func (e *Engine) BatchTag(ctx context.Context, limit int) (BatchResult, error) {
	records, err := e.store.ListUntagged(ctx, limit)
	if err != nil {
		return BatchResult{}, fmt.Errorf("batch tag: %w", err)
	}

	result := BatchResult{Total: len(records)}
	for _, rec := range records {
		tagged, err := e.TagProduct(ctx, rec.ID)
		if err != nil {
			result.Failed++
			result.Items = append(result.Items, BatchItem{ID: rec.ID, Status: StatusFailed, Detail: err.Error()})
			continue
		}

		if err := e.ApplyResult(ctx, tagged); err != nil {
			result.Failed++
			result.Items = append(result.Items, BatchItem{ID: rec.ID, Status: StatusFailed, Detail: err.Error()})
			continue
		}

		result.Successful++
		result.Items = append(result.Items, BatchItem{ID: rec.ID, Status: StatusSuccess, Detail: tagged.Prediction.Tags})
	}

	e.log.Info().Int("total", result.Total).Int("successful", result.Successful).Int("failed", result.Failed).Msg("batch tagging finished")
	return result, nil
}

// ApplyResult writes a tagging result's prediction back to the store.
// The canonical product name is left untouched.
func (e *Engine) ApplyResult(ctx context.Context, r TagResult) error {
	fields := store.TagFields{
		Company:  r.Prediction.Company,
		Category: r.Prediction.Category,
		Tags:     r.Prediction.Tags,
	}
	if err := e.store.ApplyTags(ctx, r.ProductID, fields); err != nil {
		return fmt.Errorf("apply tags to %d: %w", r.ProductID, err)
	}
	return nil
}

// Info describes the active artifact set.
type Info struct {
	Version     string
	LabelCounts map[string]int
	TopFeatures map[string][]string
	LastRetrain time.Time
}

// ModelInfo reports label counts and top features per field plus the last
// retrain timestamp.
func (e *Engine) ModelInfo() Info {
	set := e.active.Load()
	info := Info{
		Version: set.Version,
		LabelCounts: map[string]int{
			"company":  len(set.Company.Labels()),
			"category": len(set.Category.Labels()),
			"tags":     len(set.Tags.Labels()),
		},
		TopFeatures: make(map[string][]string, 3),
		LastRetrain: e.lastRetrainTime(),
	}

	const topK = 10
	if imp, err := set.Company.FeatureImportance(); err == nil {
		info.TopFeatures["company"] = model.TopFeatures(imp, topK)
	}
	if imp, err := set.Category.FeatureImportance(); err == nil {
		info.TopFeatures["category"] = model.TopFeatures(imp, topK)
	}
	if imp, err := set.Tags.FeatureImportance(); err == nil {
		info.TopFeatures["tags"] = model.TopFeatures(imp, topK)
	}
	return info
}

func (e *Engine) lastRetrainTime() time.Time {
	return time.Unix(0, e.lastRetrain.Load()).UTC()
}

func (e *Engine) setLastRetrain(t time.Time) {
	e.lastRetrain.Store(t.UnixNano())
	e.met.LastRetrainUnix.Set(float64(t.Unix()))
}

func inputFromRecord(r store.ProductRecord) feature.Input {
	return feature.Input{
		SaleName: r.SaleName,
		Platform: r.Platform,
		Payload:  r.Data,
	}
}
