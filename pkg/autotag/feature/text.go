package feature

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/cognicore/autotag/pkg/autotag/internalerr"
)

// TextConfig controls TF-IDF vectorization of sale names.
type TextConfig struct {
	MaxFeatures int     `json:"max_features" koanf:"max_features"`
	NGramMin    int     `json:"ngram_min" koanf:"ngram_min"`
	NGramMax    int     `json:"ngram_max" koanf:"ngram_max"`
	MinDF       int     `json:"min_df" koanf:"min_df"`
	MaxDF       float64 `json:"max_df" koanf:"max_df"`
	SublinearTF bool    `json:"sublinear_tf" koanf:"sublinear_tf"`
	StripPunct  bool    `json:"strip_punct" koanf:"strip_punct"`
	StripDigits bool    `json:"strip_digits" koanf:"strip_digits"`
}

// DefaultTextConfig returns the vectorizer defaults.
func DefaultTextConfig() TextConfig {
	return TextConfig{
		MaxFeatures: 1000,
		NGramMin:    1,
		NGramMax:    2,
		MinDF:       1,
		MaxDF:       0.95,
		SublinearTF: true,
	}
}

// TextExtractor vectorizes a product's sale name into a fixed-length
// TF-IDF vector. Fit before Extract; the fitted vocabulary defines the
// vector width for the generation.
type TextExtractor struct {
	cfg    TextConfig
	vocab  []string
	index  map[string]int
	idf    []float64
	fitted bool
}

// NewTextExtractor creates an unfitted text extractor. Zero-valued config
// fields fall back to defaults.
func NewTextExtractor(cfg TextConfig) *TextExtractor {
	def := DefaultTextConfig()
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = def.MaxFeatures
	}
	if cfg.NGramMin <= 0 {
		cfg.NGramMin = def.NGramMin
	}
	if cfg.NGramMax < cfg.NGramMin {
		cfg.NGramMax = cfg.NGramMin
	}
	if cfg.MinDF <= 0 {
		cfg.MinDF = def.MinDF
	}
	if cfg.MaxDF <= 0 || cfg.MaxDF > 1 {
		cfg.MaxDF = def.MaxDF
	}
	return &TextExtractor{cfg: cfg}
}

// Preprocess normalizes raw text: lowercase, optional digit and
// punctuation removal, whitespace collapse. Deterministic.
func (e *TextExtractor) Preprocess(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case e.cfg.StripDigits && unicode.IsDigit(r):
			b.WriteByte(' ')
		case e.cfg.StripPunct && !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// terms expands a preprocessed string into word n-grams.
func (e *TextExtractor) terms(text string) []string {
	words := strings.Fields(text)
	var out []string
	for n := e.cfg.NGramMin; n <= e.cfg.NGramMax; n++ {
		for i := 0; i+n <= len(words); i++ {
			out = append(out, strings.Join(words[i:i+n], " "))
		}
	}
	return out
}

// Fit learns the vocabulary and IDF weights from a corpus of sale names.
// Returns ErrEmptyCorpus when preprocessing leaves no usable documents or
// document-frequency pruning empties the vocabulary.
func (e *TextExtractor) Fit(corpus []string) error {
	var docs [][]string
	for _, raw := range corpus {
		text := e.Preprocess(raw)
		if text == "" {
			continue
		}
		docs = append(docs, e.terms(text))
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: no non-empty documents after preprocessing", internalerr.ErrEmptyCorpus)
	}

	// Document frequency per term.
	df := make(map[string]int)
	for _, terms := range docs {
		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	// Prune by DF bounds.
	n := len(docs)
	maxDF := int(e.cfg.MaxDF * float64(n))
	if maxDF < 1 {
		maxDF = 1
	}
	type termDF struct {
		term string
		df   int
	}
	kept := make([]termDF, 0, len(df))
	for t, d := range df {
		if d < e.cfg.MinDF {
			continue
		}
		if n > 1 && d > maxDF {
			continue
		}
		kept = append(kept, termDF{t, d})
	}
	if len(kept) == 0 {
		return fmt.Errorf("%w: document-frequency pruning removed every term", internalerr.ErrEmptyCorpus)
	}

	// Cap by DF descending, term ascending, for deterministic selection.
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].df != kept[j].df {
			return kept[i].df > kept[j].df
		}
		return kept[i].term < kept[j].term
	})
	if len(kept) > e.cfg.MaxFeatures {
		kept = kept[:e.cfg.MaxFeatures]
	}

	// Vocabulary is stored sorted so indices are stable across fits over
	// the same term set.
	sort.Slice(kept, func(i, j int) bool { return kept[i].term < kept[j].term })

	e.vocab = make([]string, len(kept))
	e.idf = make([]float64, len(kept))
	e.index = make(map[string]int, len(kept))
	for i, td := range kept {
		e.vocab[i] = td.term
		e.index[td.term] = i
		e.idf[i] = math.Log(float64(1+n)/float64(1+td.df)) + 1
	}
	e.fitted = true
	return nil
}

// Extract vectorizes one sale name. Unknown terms weigh zero; an empty
// string yields the zero vector of vocabulary length.
func (e *TextExtractor) Extract(name string) ([]float64, error) {
	if !e.fitted {
		return nil, fmt.Errorf("%w: text extractor", internalerr.ErrNotFitted)
	}

	vec := make([]float64, len(e.vocab))
	text := e.Preprocess(name)
	if text == "" {
		return vec, nil
	}

	counts := make(map[int]float64)
	for _, t := range e.terms(text) {
		if i, ok := e.index[t]; ok {
			counts[i]++
		}
	}

	var norm float64
	for i, c := range counts {
		tf := c
		if e.cfg.SublinearTF {
			tf = 1 + math.Log(c)
		}
		w := tf * e.idf[i]
		vec[i] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// Vocabulary returns the fitted term list in index order.
func (e *TextExtractor) Vocabulary() []string { return e.vocab }

// Fitted reports whether Fit or Load has completed.
func (e *TextExtractor) Fitted() bool { return e.fitted }

// textState is the persisted form of a fitted text extractor.
type textState struct {
	Config     TextConfig `json:"config"`
	Vocabulary []string   `json:"vocabulary"`
	IDF        []float64  `json:"idf"`
	Fitted     bool       `json:"fitted"`
}

// Save writes the extractor state to path.
func (e *TextExtractor) Save(path string) error {
	return writeJSON(path, textState{
		Config:     e.cfg,
		Vocabulary: e.vocab,
		IDF:        e.idf,
		Fitted:     e.fitted,
	})
}

// Load restores extractor state from path.
func (e *TextExtractor) Load(path string) error {
	var st textState
	if err := readJSON(path, &st); err != nil {
		return err
	}
	if len(st.Vocabulary) != len(st.IDF) {
		return fmt.Errorf("%w: text state vocabulary/idf length mismatch", internalerr.ErrPersistence)
	}
	e.cfg = st.Config
	e.vocab = st.Vocabulary
	e.idf = st.IDF
	e.index = make(map[string]int, len(st.Vocabulary))
	for i, t := range st.Vocabulary {
		e.index[t] = i
	}
	e.fitted = st.Fitted
	return nil
}
