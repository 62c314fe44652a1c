package model

import (
	"github.com/cognicore/autotag/pkg/autotag/feature"
	"github.com/cognicore/autotag/pkg/autotag/internalerr"
	"github.com/cognicore/autotag/pkg/autotag/taxonomy"
)

// CategoryModel predicts the product category and reconciles every raw
// prediction against the closed taxonomy, so callers never see an
// out-of-taxonomy category.
type CategoryModel struct {
	clf          *bayes
	tax          *taxonomy.Taxonomy
	featureNames []string
}

// NewCategoryModel creates an unfitted category model. A nil taxonomy
// falls back to the default one.
func NewCategoryModel(cfg Config, tax *taxonomy.Taxonomy) *CategoryModel {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &CategoryModel{clf: newBayes(cfg), tax: tax}
}

// Fit trains the model on feature bundles and category labels.
func (m *CategoryModel) Fit(features []feature.Bundle, labels []string) error {
	vectors, err := flattenTraining(features, labels)
	if err != nil {
		return err
	}
	if err := m.clf.fit(vectors, labels); err != nil {
		return err
	}
	m.featureNames = features[0].FeatureNames()
	return nil
}

// Predict returns the reconciled category.
func (m *CategoryModel) Predict(b feature.Bundle) (string, error) {
	category, _, err := m.PredictWithFallback(b)
	return category, err
}

// PredictWithFallback returns the reconciled category and whether the raw
// prediction had to be replaced by a taxonomy member.
func (m *CategoryModel) PredictWithFallback(b feature.Bundle) (string, bool, error) {
	v := b.Flatten()
	raw, err := m.clf.predict(v)
	if err != nil {
		return "", false, err
	}
	if m.tax.Contains(raw) {
		return raw, false, nil
	}
	probs, err := m.clf.proba(v)
	if err != nil {
		return "", false, err
	}
	category, _ := m.tax.ReconcileCategory(raw, probs)
	return category, true, nil
}

// PredictProba returns the probability per trained category label.
func (m *CategoryModel) PredictProba(b feature.Bundle) (map[string]float64, error) {
	return m.clf.proba(b.Flatten())
}

// FeatureImportance scores features by how much they discriminate
// between categories.
func (m *CategoryModel) FeatureImportance() (map[string]float64, error) {
	if !m.clf.Fitted {
		return nil, internalerr.ErrNotFitted
	}
	return namedImportance(m.featureNames, m.clf.importance()), nil
}

// Labels returns the fitted category label set, sorted.
func (m *CategoryModel) Labels() []string {
	return append([]string(nil), m.clf.Classes...)
}

// Taxonomy returns the taxonomy this model reconciles against.
func (m *CategoryModel) Taxonomy() *taxonomy.Taxonomy { return m.tax }

// Fitted reports whether Fit or Load has completed.
func (m *CategoryModel) Fitted() bool { return m.clf.Fitted }

type categoryState struct {
	Params          *bayes              `json:"params"`
	FeatureNames    []string            `json:"feature_names"`
	ValidCategories []string            `json:"valid_categories"`
	Subcategories   map[string][]string `json:"subcategories"`
	Fallback        string              `json:"fallback"`
}

// Save writes the model state, including the taxonomy, to path.
func (m *CategoryModel) Save(path string) error {
	subs := make(map[string][]string)
	for _, c := range m.tax.Categories() {
		subs[c] = m.tax.Subcategories(c)
	}
	return saveJSON(path, categoryState{
		Params:          m.clf,
		FeatureNames:    m.featureNames,
		ValidCategories: m.tax.Categories(),
		Subcategories:   subs,
		Fallback:        m.tax.Fallback(),
	})
}

// Load restores the model state from path.
func (m *CategoryModel) Load(path string) error {
	var st categoryState
	if err := loadJSON(path, &st); err != nil {
		return err
	}
	if st.Params == nil {
		st.Params = newBayes(DefaultConfig())
	}
	m.clf = st.Params
	m.featureNames = st.FeatureNames
	if len(st.ValidCategories) > 0 {
		m.tax = taxonomy.New(st.ValidCategories, st.Subcategories, st.Fallback)
	}
	return nil
}
