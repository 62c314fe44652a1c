package feature

import (
	"fmt"
	"sort"

	"github.com/cognicore/autotag/pkg/autotag/internalerr"
)

// StructuralExtractor one-hot encodes platform identity and collects
// platform-specific payload signals through the adapter registry. Records
// from platforms unseen at fit time get an all-zero platform vector and
// no payload signals; new platforms must never break prediction.
type StructuralExtractor struct {
	registry  *AdapterRegistry
	platforms []string
	index     map[string]int
	names     []string
	fitted    bool
}

// NewStructuralExtractor creates an unfitted structural extractor. A nil
// registry falls back to the default adapter set.
func NewStructuralExtractor(registry *AdapterRegistry) *StructuralExtractor {
	if registry == nil {
		registry = DefaultAdapters()
	}
	return &StructuralExtractor{registry: registry}
}

// Fit builds the platform index from the distinct platforms seen in the
// inputs (sorted for determinism) and freezes the generation's
// platform-specific column order.
func (e *StructuralExtractor) Fit(inputs []Input) error {
	set := make(map[string]struct{})
	for _, in := range inputs {
		if in.Platform != "" {
			set[in.Platform] = struct{}{}
		}
	}

	platforms := make([]string, 0, len(set))
	for p := range set {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	e.platforms = platforms
	e.index = make(map[string]int, len(platforms))
	e.names = nil
	for i, p := range platforms {
		e.index[p] = i
		if a, ok := e.registry.Get(p); ok {
			for _, n := range a.FeatureNames {
				e.names = append(e.names, p+"."+n)
			}
		}
	}
	e.fitted = true
	return nil
}

// Extract encodes one record's structural features.
func (e *StructuralExtractor) Extract(in Input) (StructuralFeatures, error) {
	if !e.fitted {
		return StructuralFeatures{}, fmt.Errorf("%w: structural extractor", internalerr.ErrNotFitted)
	}

	vec := make([]int, len(e.platforms))
	if i, ok := e.index[in.Platform]; ok {
		vec[i] = 1
	}

	specific := make(map[string]float64)
	if a, ok := e.registry.Get(in.Platform); ok {
		for name, v := range a.Extract(in.Payload) {
			specific[in.Platform+"."+name] = v
		}
	}

	return StructuralFeatures{
		PlatformVector:   vec,
		PlatformSpecific: specific,
		Platforms:        e.platforms,
		FeatureNames:     e.names,
	}, nil
}

// Fitted reports whether Fit or Load has completed.
func (e *StructuralExtractor) Fitted() bool { return e.fitted }

// structuralState is the persisted form of a fitted structural extractor.
// Adapters are code, not state; only the platform index and column order
// round-trip.
type structuralState struct {
	Platforms    []string `json:"platforms"`
	FeatureNames []string `json:"feature_names"`
	Fitted       bool     `json:"fitted"`
}

// Save writes the extractor state to path.
func (e *StructuralExtractor) Save(path string) error {
	return writeJSON(path, structuralState{
		Platforms:    e.platforms,
		FeatureNames: e.names,
		Fitted:       e.fitted,
	})
}

// Load restores extractor state from path.
func (e *StructuralExtractor) Load(path string) error {
	var st structuralState
	if err := readJSON(path, &st); err != nil {
		return err
	}
	e.platforms = st.Platforms
	e.names = st.FeatureNames
	e.index = make(map[string]int, len(st.Platforms))
	for i, p := range st.Platforms {
		e.index[p] = i
	}
	e.fitted = st.Fitted
	return nil
}
