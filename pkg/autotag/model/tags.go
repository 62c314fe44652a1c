package model

import (
	"fmt"
	"sort"

	"github.com/cognicore/autotag/pkg/autotag/feature"
	"github.com/cognicore/autotag/pkg/autotag/internalerr"
	"github.com/cognicore/autotag/pkg/autotag/taxonomy"
)

// Binary-relevance class names for the per-label classifiers. "absent"
// sorts before "present", which keeps class indices stable.
const (
	labelAbsent  = "absent"
	labelPresent = "present"
)

// multiLabelThreshold is the per-label probability above which a label is
// considered predicted.
const multiLabelThreshold = 0.5

// TagsModel predicts the hierarchical tag string. Training tag strings
// are split on the pipe delimiter into independent label sets; prediction
// is binary relevance (one classifier per label) followed by taxonomy
// reconciliation that pins a subcategory to the front.
type TagsModel struct {
	cfg          Config
	labels       []string
	clfs         map[string]*bayes
	tax          *taxonomy.Taxonomy
	featureNames []string
	fitted       bool
}

// NewTagsModel creates an unfitted tags model. A nil taxonomy falls back
// to the default one.
func NewTagsModel(cfg Config, tax *taxonomy.Taxonomy) *TagsModel {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &TagsModel{cfg: cfg, tax: tax, clfs: make(map[string]*bayes)}
}

// Fit trains one binary classifier per distinct tag label. Labels are
// pipe-delimited strings; empty segments are dropped.
func (m *TagsModel) Fit(features []feature.Bundle, labels []string) error {
	vectors, err := flattenTraining(features, labels)
	if err != nil {
		return err
	}

	tagSets := make([]map[string]struct{}, len(labels))
	labelSet := make(map[string]struct{})
	for i, raw := range labels {
		set := make(map[string]struct{})
		for _, tag := range taxonomy.SplitTags(raw) {
			set[tag] = struct{}{}
			labelSet[tag] = struct{}{}
		}
		tagSets[i] = set
	}
	if len(labelSet) == 0 {
		return fmt.Errorf("%w: no tag labels in training data", internalerr.ErrDimensionMismatch)
	}

	allLabels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		allLabels = append(allLabels, l)
	}
	sort.Strings(allLabels)

	clfs := make(map[string]*bayes, len(allLabels))
	y := make([]string, len(vectors))
	for _, label := range allLabels {
		present := 0
		for i, set := range tagSets {
			if _, ok := set[label]; ok {
				y[i] = labelPresent
				present++
			} else {
				y[i] = labelAbsent
			}
		}
		// A label present in every sample has no negative class; treat
		// it as always-on rather than degenerate training input.
		if present == len(vectors) {
			clfs[label] = nil
			continue
		}
		clf := newBayes(m.cfg)
		if err := clf.fit(vectors, y); err != nil {
			return err
		}
		clfs[label] = clf
	}

	m.labels = allLabels
	m.clfs = clfs
	m.featureNames = features[0].FeatureNames()
	m.fitted = true
	return nil
}

// PredictSet returns the raw unordered predicted label set, emitted in
// sorted label order for determinism.
func (m *TagsModel) PredictSet(b feature.Bundle) ([]string, error) {
	probs, err := m.PredictProba(b)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, label := range m.labels {
		if probs[label] >= multiLabelThreshold {
			out = append(out, label)
		}
	}
	return out, nil
}

// Predict returns the reconciled pipe-delimited tag string for the given
// category: subcategory member first (or the category's default), then
// the remaining predicted labels in order.
func (m *TagsModel) Predict(b feature.Bundle, category string) (string, error) {
	predicted, err := m.PredictSet(b)
	if err != nil {
		return "", err
	}
	return m.tax.ReconcileTags(category, predicted), nil
}

// PredictProba returns the per-label presence probability.
func (m *TagsModel) PredictProba(b feature.Bundle) (map[string]float64, error) {
	if !m.fitted {
		return nil, internalerr.ErrNotFitted
	}

	v := b.Flatten()
	out := make(map[string]float64, len(m.labels))
	for _, label := range m.labels {
		clf := m.clfs[label]
		if clf == nil {
			out[label] = 1.0
			continue
		}
		probs, err := clf.proba(v)
		if err != nil {
			return nil, err
		}
		out[label] = probs[labelPresent]
	}
	return out, nil
}

// FeatureImportance averages the per-label classifier importances.
func (m *TagsModel) FeatureImportance() (map[string]float64, error) {
	if !m.fitted {
		return nil, internalerr.ErrNotFitted
	}

	var acc []float64
	var n int
	for _, clf := range m.clfs {
		if clf == nil {
			continue
		}
		imp := clf.importance()
		if acc == nil {
			acc = make([]float64, len(imp))
		}
		for i, s := range imp {
			acc[i] += s
		}
		n++
	}
	if n == 0 {
		return map[string]float64{}, nil
	}
	for i := range acc {
		acc[i] /= float64(n)
	}
	return namedImportance(m.featureNames, acc), nil
}

// Labels returns the fitted tag label set, sorted.
func (m *TagsModel) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Taxonomy returns the taxonomy this model reconciles against.
func (m *TagsModel) Taxonomy() *taxonomy.Taxonomy { return m.tax }

// Fitted reports whether Fit or Load has completed.
func (m *TagsModel) Fitted() bool { return m.fitted }

type tagsState struct {
	Config        Config              `json:"config"`
	Labels        []string            `json:"labels"`
	Classifiers   map[string]*bayes   `json:"classifiers"`
	FeatureNames  []string            `json:"feature_names"`
	Categories    []string            `json:"categories"`
	Subcategories map[string][]string `json:"subcategories"`
	Fallback      string              `json:"fallback"`
	Fitted        bool                `json:"fitted"`
}

// Save writes the model state, including the subcategory map, to path.
func (m *TagsModel) Save(path string) error {
	subs := make(map[string][]string)
	for _, c := range m.tax.Categories() {
		subs[c] = m.tax.Subcategories(c)
	}
	return saveJSON(path, tagsState{
		Config:        m.cfg,
		Labels:        m.labels,
		Classifiers:   m.clfs,
		FeatureNames:  m.featureNames,
		Categories:    m.tax.Categories(),
		Subcategories: subs,
		Fallback:      m.tax.Fallback(),
		Fitted:        m.fitted,
	})
}

// Load restores the model state from path.
func (m *TagsModel) Load(path string) error {
	var st tagsState
	if err := loadJSON(path, &st); err != nil {
		return err
	}
	m.cfg = st.Config
	m.labels = st.Labels
	m.clfs = st.Classifiers
	if m.clfs == nil {
		m.clfs = make(map[string]*bayes)
	}
	m.featureNames = st.FeatureNames
	if len(st.Categories) > 0 {
		m.tax = taxonomy.New(st.Categories, st.Subcategories, st.Fallback)
	}
	m.fitted = st.Fitted
	return nil
}
