// Package taxonomy defines the closed product category set, the
// per-category subcategory lists, and the reconciliation rules that keep
// model output inside the taxonomy.
package taxonomy

import "strings"

// Delimiter separates tokens in a hierarchical tag string.
const Delimiter = "|"

// Taxonomy holds the category set and the subcategory map. The zero
// value is unusable; build one with Default or New.
type Taxonomy struct {
	categories []string
	catSet     map[string]struct{}
	subcats    map[string][]string
	fallback   string
}

// Default returns the built-in vape-shop taxonomy.
func Default() *Taxonomy {
	return New(
		[]string{"액상", "기기", "무화기", "코일", "팟", "일회용기기", "악세사리", "기타"},
		map[string][]string{
			"액상":    {"입호흡액상", "폐호흡액상", "첨가제", "기타액상"},
			"기기":    {"입호흡기기", "폐호흡기기", "AIO기기", "기타기기"},
			"무화기":   {"RDA", "RTA", "RDTA", "기성탱크", "팟탱크", "AIO팟", "일회용", "기타무화기"},
			"팟":     {"일체형팟", "공팟", "기타팟"},
			"일회용기기": {"일체형", "교체형", "무니코틴", "기타일회용기기"},
			"악세사리":  {"경통", "드립팁", "캡", "케이스", "도어", "배터리", "충전기", "리빌드용품", "기타악세사리"},
			// 코일 and 기타 carry free-form option tags only.
			"코일": {},
			"기타": {},
		},
		"기타",
	)
}

// New builds a taxonomy from a category list, a subcategory map, and the
// fallback category used when reconciliation finds no positive-probability
// member. The fallback is appended to the category list if missing.
func New(categories []string, subcats map[string][]string, fallback string) *Taxonomy {
	t := &Taxonomy{
		subcats:  make(map[string][]string, len(subcats)),
		fallback: fallback,
		catSet:   make(map[string]struct{}, len(categories)+1),
	}
	for _, c := range categories {
		if c == "" {
			continue
		}
		if _, ok := t.catSet[c]; ok {
			continue
		}
		t.catSet[c] = struct{}{}
		t.categories = append(t.categories, c)
	}
	if fallback != "" {
		if _, ok := t.catSet[fallback]; !ok {
			t.catSet[fallback] = struct{}{}
			t.categories = append(t.categories, fallback)
		}
	}
	for cat, subs := range subcats {
		t.subcats[cat] = append([]string(nil), subs...)
	}
	return t
}

// Categories returns the closed category set in definition order.
func (t *Taxonomy) Categories() []string {
	return append([]string(nil), t.categories...)
}

// Contains reports whether category is a taxonomy member.
func (t *Taxonomy) Contains(category string) bool {
	_, ok := t.catSet[category]
	return ok
}

// Fallback returns the designated fallback category.
func (t *Taxonomy) Fallback() string { return t.fallback }

// Subcategories returns the defined subcategory list for a category.
// Categories without subcategories return nil.
func (t *Taxonomy) Subcategories(category string) []string {
	subs := t.subcats[category]
	if len(subs) == 0 {
		return nil
	}
	return append([]string(nil), subs...)
}

// ReconcileCategory maps a raw prediction into the taxonomy. Members pass
// through. Non-members are replaced by the highest-probability member in
// probs, or by the fallback when no member has positive probability. The
// second return reports whether a replacement happened.
func (t *Taxonomy) ReconcileCategory(raw string, probs map[string]float64) (string, bool) {
	if t.Contains(raw) {
		return raw, false
	}

	best := ""
	bestProb := 0.0
	for _, cat := range t.categories {
		p := probs[cat]
		if p > bestProb || (p == bestProb && p > 0 && (best == "" || cat < best)) {
			best = cat
			bestProb = p
		}
	}
	if best == "" || bestProb <= 0 {
		return t.fallback, true
	}
	return best, true
}

// ReconcileTags orders a predicted label set for a category. When the
// category defines subcategories, the first matching predicted label is
// moved to the front; if none matches, the first defined subcategory is
// inserted as the deterministic default. Remaining labels keep their
// relative order. Categories without subcategories pass labels through.
func (t *Taxonomy) ReconcileTags(category string, predicted []string) string {
	subs := t.subcats[category]
	if len(subs) == 0 {
		return strings.Join(predicted, Delimiter)
	}

	subSet := make(map[string]struct{}, len(subs))
	for _, s := range subs {
		subSet[s] = struct{}{}
	}

	ordered := make([]string, 0, len(predicted)+1)
	found := false
	for _, tag := range predicted {
		if _, ok := subSet[tag]; ok && !found {
			ordered = append(ordered, tag)
			found = true
			break
		}
	}
	if !found {
		ordered = append(ordered, subs[0])
	}
	for _, tag := range predicted {
		if _, ok := subSet[tag]; !ok {
			ordered = append(ordered, tag)
		}
	}

	return strings.Join(ordered, Delimiter)
}

// SplitTags splits a pipe-delimited tag string, dropping empty segments.
func SplitTags(tags string) []string {
	if tags == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(tags, Delimiter) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
