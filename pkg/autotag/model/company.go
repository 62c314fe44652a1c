package model

import (
	"github.com/cognicore/autotag/pkg/autotag/feature"
	"github.com/cognicore/autotag/pkg/autotag/internalerr"
)

// CompanyModel predicts the brand/company label. The label set is open:
// whatever companies appear in training data become classes, with no
// taxonomy constraint.
type CompanyModel struct {
	clf          *bayes
	featureNames []string
}

// NewCompanyModel creates an unfitted company model.
func NewCompanyModel(cfg Config) *CompanyModel {
	return &CompanyModel{clf: newBayes(cfg)}
}

// Fit trains the model on feature bundles and company labels.
func (m *CompanyModel) Fit(features []feature.Bundle, labels []string) error {
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

// Predict returns the best-matching company.
func (m *CompanyModel) Predict(b feature.Bundle) (string, error) {
	return m.clf.predict(b.Flatten())
}

// PredictProba returns the probability per known company.
func (m *CompanyModel) PredictProba(b feature.Bundle) (map[string]float64, error) {
	return m.clf.proba(b.Flatten())
}

// FeatureImportance scores features by how much they discriminate
// between companies.
func (m *CompanyModel) FeatureImportance() (map[string]float64, error) {
	if !m.clf.Fitted {
		return nil, internalerr.ErrNotFitted
	}
	return namedImportance(m.featureNames, m.clf.importance()), nil
}

// Labels returns the fitted company label set, sorted.
func (m *CompanyModel) Labels() []string {
	return append([]string(nil), m.clf.Classes...)
}

// Fitted reports whether Fit or Load has completed.
func (m *CompanyModel) Fitted() bool { return m.clf.Fitted }

type companyState struct {
	Params       *bayes   `json:"params"`
	FeatureNames []string `json:"feature_names"`
}

// Save writes the model state to path.
func (m *CompanyModel) Save(path string) error {
	return saveJSON(path, companyState{Params: m.clf, FeatureNames: m.featureNames})
}

// Load restores the model state from path.
func (m *CompanyModel) Load(path string) error {
	var st companyState
	if err := loadJSON(path, &st); err != nil {
		return err
	}
	if st.Params == nil {
		st.Params = newBayes(DefaultConfig())
	}
	m.clf = st.Params
	m.featureNames = st.FeatureNames
	return nil
}
