// Package model implements the classification models behind product
// tagging: a single-label company model, a taxonomy-constrained category
// model, and a multi-label tags model. All share a multinomial
// naive-Bayes core over flattened feature bundles; any classifier meeting
// the fit/predict/predictProba contract could replace it.
package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/autotag/pkg/autotag/internalerr"
)

// Config controls the naive-Bayes core.
type Config struct {
	// Alpha is the Laplace smoothing constant.
	Alpha float64 `json:"alpha" koanf:"alpha"`
}

// DefaultConfig returns the model defaults.
func DefaultConfig() Config {
	return Config{Alpha: 1.0}
}

// bayes is a multinomial naive-Bayes classifier over non-negative feature
// vectors. Classes are kept sorted so prediction ties resolve
// deterministically and label sets are stable across refits.
type bayes struct {
	Alpha     float64     `json:"alpha"`
	Classes   []string    `json:"classes"`
	LogPriors []float64   `json:"log_priors"`
	LogLik    [][]float64 `json:"log_likelihoods"`
	Width     int         `json:"width"`
	Fitted    bool        `json:"fitted"`
}

func newBayes(cfg Config) *bayes {
	if cfg.Alpha <= 0 {
		cfg.Alpha = DefaultConfig().Alpha
	}
	return &bayes{Alpha: cfg.Alpha}
}

// fit estimates per-class priors and feature likelihoods.
func (b *bayes) fit(vectors [][]float64, labels []string) error {
	if len(vectors) == 0 || len(labels) == 0 || len(vectors) != len(labels) {
		return fmt.Errorf("%w: %d feature rows vs %d labels", internalerr.ErrDimensionMismatch, len(vectors), len(labels))
	}

	width := len(vectors[0])
	for _, v := range vectors {
		if len(v) != width {
			return fmt.Errorf("%w: ragged feature rows (%d vs %d)", internalerr.ErrDimensionMismatch, len(v), width)
		}
	}

	classSet := make(map[string]struct{})
	for _, l := range labels {
		classSet[l] = struct{}{}
	}
	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}

	counts := make([]float64, len(classes))
	sums := make([][]float64, len(classes))
	totals := make([]float64, len(classes))
	for i := range sums {
		sums[i] = make([]float64, width)
	}

	for row, v := range vectors {
		ci := classIdx[labels[row]]
		counts[ci]++
		for j, x := range v {
			if x < 0 {
				x = 0
			}
			sums[ci][j] += x
			totals[ci] += x
		}
	}

	b.Classes = classes
	b.Width = width
	b.LogPriors = make([]float64, len(classes))
	b.LogLik = make([][]float64, len(classes))
	n := float64(len(labels))
	for i := range classes {
		b.LogPriors[i] = math.Log(counts[i] / n)
		b.LogLik[i] = make([]float64, width)
		denom := totals[i] + b.Alpha*float64(width)
		for j := 0; j < width; j++ {
			b.LogLik[i][j] = math.Log((sums[i][j] + b.Alpha) / denom)
		}
	}
	b.Fitted = true
	return nil
}

// logScores returns the unnormalized log posterior per class.
func (b *bayes) logScores(v []float64) ([]float64, error) {
	if !b.Fitted {
		return nil, internalerr.ErrNotFitted
	}
	if len(v) != b.Width {
		return nil, fmt.Errorf("%w: feature vector width %d, fitted width %d", internalerr.ErrDimensionMismatch, len(v), b.Width)
	}

	scores := make([]float64, len(b.Classes))
	for i := range b.Classes {
		s := b.LogPriors[i]
		for j, x := range v {
			if x > 0 {
				s += x * b.LogLik[i][j]
			}
		}
		scores[i] = s
	}
	return scores, nil
}

// predict returns the highest-scoring class. With Classes sorted, equal
// scores resolve to the lexicographically smallest class.
func (b *bayes) predict(v []float64) (string, error) {
	scores, err := b.logScores(v)
	if err != nil {
		return "", err
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return b.Classes[best], nil
}

// proba returns the softmax-normalized class probabilities.
func (b *bayes) proba(v []float64) (map[string]float64, error) {
	scores, err := b.logScores(v)
	if err != nil {
		return nil, err
	}

	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	var sum float64
	exps := make([]float64, len(scores))
	for i, s := range scores {
		exps[i] = math.Exp(s - max)
		sum += exps[i]
	}

	out := make(map[string]float64, len(b.Classes))
	for i, c := range b.Classes {
		out[c] = exps[i] / sum
	}
	return out, nil
}

// importance scores each feature by the spread of its log likelihood
// across classes; features that discriminate between classes score high.
func (b *bayes) importance() []float64 {
	if !b.Fitted || len(b.Classes) == 0 {
		return nil
	}

	out := make([]float64, b.Width)
	var total float64
	for j := 0; j < b.Width; j++ {
		var mean float64
		for i := range b.Classes {
			mean += b.LogLik[i][j]
		}
		mean /= float64(len(b.Classes))

		var variance float64
		for i := range b.Classes {
			d := b.LogLik[i][j] - mean
			variance += d * d
		}
		out[j] = variance / float64(len(b.Classes))
		total += out[j]
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}
