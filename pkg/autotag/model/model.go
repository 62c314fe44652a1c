package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"

	"github.com/cognicore/autotag/pkg/autotag/feature"
	"github.com/cognicore/autotag/pkg/autotag/internalerr"
)

// flattenTraining validates and flattens a training set. Empty inputs and
// unequal lengths violate the fit precondition.
func flattenTraining(features []feature.Bundle, labels []string) ([][]float64, error) {
	if len(features) == 0 || len(labels) == 0 || len(features) != len(labels) {
		return nil, fmt.Errorf("%w: %d feature bundles vs %d labels", internalerr.ErrDimensionMismatch, len(features), len(labels))
	}
	vectors := make([][]float64, len(features))
	for i, b := range features {
		vectors[i] = b.Flatten()
	}
	return vectors, nil
}

// namedImportance zips feature names with importance scores, dropping
// zero-scoring features.
func namedImportance(names []string, scores []float64) map[string]float64 {
	out := make(map[string]float64)
	for i, s := range scores {
		if s <= 0 {
			continue
		}
		name := fmt.Sprintf("feature_%d", i)
		if i < len(names) {
			name = names[i]
		}
		out[name] = s
	}
	return out
}

// TopFeatures returns the k highest-scoring feature names, descending,
// ties broken by name.
func TopFeatures(importance map[string]float64, k int) []string {
	type nameScore struct {
		name  string
		score float64
	}
	ranked := make([]nameScore, 0, len(importance))
	for n, s := range importance {
		ranked = append(ranked, nameScore{n, s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) > k && k > 0 {
		ranked = ranked[:k]
	}
	out := make([]string, len(ranked))
	for i, ns := range ranked {
		out[i] = ns.name
	}
	return out
}

// saveJSON persists v at path via a temp file rename, creating parent
// directories as needed.
func saveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", internalerr.ErrPersistence, filepath.Dir(path), err)
	}
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

// loadJSON reads path into v. Unknown keys are ignored for forward
// compatibility.
func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", internalerr.ErrPersistence, filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", internalerr.ErrPersistence, filepath.Base(path), err)
	}
	return nil
}
