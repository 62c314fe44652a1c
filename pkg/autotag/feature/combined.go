package feature

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cognicore/autotag/pkg/autotag/internalerr"
)

// Persisted file names inside an extractor bundle directory.
const (
	textStateFile       = "text.json"
	structuralStateFile = "structural.json"
	combinedMetaFile    = "combined.json"
)

// CombinedExtractor composes the text and structural extractors into one
// fit/extract/save/load unit. The orchestrator depends only on this type.
type CombinedExtractor struct {
	text       *TextExtractor
	structural *StructuralExtractor
	fitted     bool
}

// NewCombinedExtractor creates an unfitted combined extractor.
func NewCombinedExtractor(cfg TextConfig, registry *AdapterRegistry) *CombinedExtractor {
	return &CombinedExtractor{
		text:       NewTextExtractor(cfg),
		structural: NewStructuralExtractor(registry),
	}
}

// Fit trains both sub-extractors on the same inputs.
func (e *CombinedExtractor) Fit(inputs []Input) error {
	corpus := make([]string, len(inputs))
	for i, in := range inputs {
		corpus[i] = in.SaleName
	}
	if err := e.text.Fit(corpus); err != nil {
		return err
	}
	if err := e.structural.Fit(inputs); err != nil {
		return err
	}
	e.fitted = true
	return nil
}

// Extract produces the nested feature bundle for one record.
func (e *CombinedExtractor) Extract(in Input) (Bundle, error) {
	if !e.fitted {
		return Bundle{}, fmt.Errorf("%w: combined extractor", internalerr.ErrNotFitted)
	}

	vec, err := e.text.Extract(in.SaleName)
	if err != nil {
		return Bundle{}, err
	}
	structural, err := e.structural.Extract(in)
	if err != nil {
		return Bundle{}, err
	}

	return Bundle{
		Text: TextFeatures{
			Vector:     vec,
			Vocabulary: e.text.Vocabulary(),
		},
		Structural: structural,
	}, nil
}

// Fitted reports whether Fit or Load has completed.
func (e *CombinedExtractor) Fitted() bool { return e.fitted }

// Width returns the flattened feature-vector width of this generation.
func (e *CombinedExtractor) Width() int {
	return len(e.text.vocab) + len(e.structural.platforms) + len(e.structural.names)
}

type combinedMeta struct {
	Fitted bool `json:"fitted"`
}

// Save writes both sub-extractor states plus the fitted flag under dir.
func (e *CombinedExtractor) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", internalerr.ErrPersistence, dir, err)
	}
	if err := e.text.Save(filepath.Join(dir, textStateFile)); err != nil {
		return err
	}
	if err := e.structural.Save(filepath.Join(dir, structuralStateFile)); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, combinedMetaFile), combinedMeta{Fitted: e.fitted})
}

// Load restores both sub-extractor states from dir.
func (e *CombinedExtractor) Load(dir string) error {
	if err := e.text.Load(filepath.Join(dir, textStateFile)); err != nil {
		return err
	}
	if err := e.structural.Load(filepath.Join(dir, structuralStateFile)); err != nil {
		return err
	}
	var meta combinedMeta
	if err := readJSON(filepath.Join(dir, combinedMetaFile), &meta); err != nil {
		return err
	}
	e.fitted = meta.Fitted
	return nil
}
