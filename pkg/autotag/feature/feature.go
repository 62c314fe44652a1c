// Package feature turns product records into numeric feature bundles for
// the classification models. Text features come from a TF-IDF vectorizer
// over the sale name; structural features encode platform identity and
// platform-specific payload signals.
package feature

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/cognicore/autotag/pkg/autotag/internalerr"
)

// Input is the extractor's view of a product record.
type Input struct {
	SaleName string
	Platform string
	Payload  json.RawMessage
}

// Bundle is the combined feature set for one record. Widths are fixed per
// fitted extractor generation.
type Bundle struct {
	Text       TextFeatures
	Structural StructuralFeatures
}

// TextFeatures is the TF-IDF vector plus the fitted vocabulary.
type TextFeatures struct {
	Vector     []float64
	Vocabulary []string
}

// StructuralFeatures holds the platform one-hot vector and the
// platform-specific payload signals. Platforms and FeatureNames describe
// the fitted generation's column order.
type StructuralFeatures struct {
	PlatformVector   []int
	PlatformSpecific map[string]float64
	Platforms        []string
	FeatureNames     []string
}

// Flatten concatenates the bundle into a single fixed-width vector:
// text terms, then platform one-hot, then platform-specific signals in
// the fitted column order. Signals absent for this record's platform
// contribute zero.
func (b Bundle) Flatten() []float64 {
	out := make([]float64, 0, len(b.Text.Vector)+len(b.Structural.PlatformVector)+len(b.Structural.FeatureNames))
	out = append(out, b.Text.Vector...)
	for _, v := range b.Structural.PlatformVector {
		out = append(out, float64(v))
	}
	for _, name := range b.Structural.FeatureNames {
		out = append(out, b.Structural.PlatformSpecific[name])
	}
	return out
}

// FeatureNames returns column names matching Flatten's output order.
func (b Bundle) FeatureNames() []string {
	out := make([]string, 0, len(b.Text.Vocabulary)+len(b.Structural.Platforms)+len(b.Structural.FeatureNames))
	out = append(out, b.Text.Vocabulary...)
	for _, p := range b.Structural.Platforms {
		out = append(out, "platform="+p)
	}
	out = append(out, b.Structural.FeatureNames...)
	return out
}

// writeJSON persists v at path via a temp file rename.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", internalerr.ErrPersistence, filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", internalerr.ErrPersistence, filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", internalerr.ErrPersistence, filepath.Base(path), err)
	}
	return nil
}

// readJSON loads path into v, ignoring unknown keys for forward
// compatibility.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", internalerr.ErrPersistence, filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", internalerr.ErrPersistence, filepath.Base(path), err)
	}
	return nil
}
