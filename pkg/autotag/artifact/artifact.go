// Package artifact manages versioned bundles of trained extractor and
// model state. Each successful training run writes a new version
// directory and then repoints the manifest; loading always follows the
// manifest, so readers see a whole version or none.
package artifact

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"

	"github.com/cognicore/autotag/pkg/autotag/feature"
	"github.com/cognicore/autotag/pkg/autotag/internalerr"
	"github.com/cognicore/autotag/pkg/autotag/model"
)

// File layout inside a version directory.
const (
	manifestFile      = "manifest.json"
	extractorDir      = "extractor"
	companyModelFile  = "company_model.json"
	categoryModelFile = "category_model.json"
	tagsModelFile     = "tags_model.json"
)

// Set is one trained generation: the combined extractor and the three
// field models. Exactly one set is active in a running engine; a retrain
// builds a new Set and swaps it in whole.
type Set struct {
	Version   string
	TrainedAt time.Time
	Extractor *feature.CombinedExtractor
	Company   *model.CompanyModel
	Category  *model.CategoryModel
	Tags      *model.TagsModel
}

// NewVersion returns a fresh artifact version identifier.
func NewVersion() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// manifest points at the active version inside an artifact root.
type manifest struct {
	Active    string    `json:"active"`
	TrainedAt time.Time `json:"trained_at"`
}

// Save writes the set under root as a new version directory and then
// publishes it by rewriting the manifest. A failure before the manifest
// write leaves the previously active version untouched.
func Save(root string, s *Set) error {
	if s.Version == "" {
		s.Version = NewVersion()
	}

	dir := filepath.Join(root, s.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", internalerr.ErrPersistence, dir, err)
	}

	if err := s.Extractor.Save(filepath.Join(dir, extractorDir)); err != nil {
		return err
	}
	if err := s.Company.Save(filepath.Join(dir, companyModelFile)); err != nil {
		return err
	}
	if err := s.Category.Save(filepath.Join(dir, categoryModelFile)); err != nil {
		return err
	}
	if err := s.Tags.Save(filepath.Join(dir, tagsModelFile)); err != nil {
		return err
	}

	return writeManifest(root, manifest{Active: s.Version, TrainedAt: s.TrainedAt})
}

// Load reads the active set under root, following the manifest. Adapters
// are code rather than state, so the caller's registry is wired into the
// restored extractor; nil means the default adapter set.
func Load(root string, registry *feature.AdapterRegistry) (*Set, error) {
	m, err := readManifest(root)
	if err != nil {
		return nil, err
	}
	if m.Active == "" {
		return nil, fmt.Errorf("%w: manifest has no active version", internalerr.ErrPersistence)
	}

	dir := filepath.Join(root, m.Active)
	s := &Set{
		Version:   m.Active,
		TrainedAt: m.TrainedAt,
		Extractor: feature.NewCombinedExtractor(feature.DefaultTextConfig(), registry),
		Company:   model.NewCompanyModel(model.DefaultConfig()),
		Category:  model.NewCategoryModel(model.DefaultConfig(), nil),
		Tags:      model.NewTagsModel(model.DefaultConfig(), nil),
	}

	if err := s.Extractor.Load(filepath.Join(dir, extractorDir)); err != nil {
		return nil, err
	}
	if err := s.Company.Load(filepath.Join(dir, companyModelFile)); err != nil {
		return nil, err
	}
	if err := s.Category.Load(filepath.Join(dir, categoryModelFile)); err != nil {
		return nil, err
	}
	if err := s.Tags.Load(filepath.Join(dir, tagsModelFile)); err != nil {
		return nil, err
	}

	if !s.Extractor.Fitted() || !s.Company.Fitted() || !s.Category.Fitted() || !s.Tags.Fitted() {
		return nil, fmt.Errorf("%w: loaded artifact set is not fully fitted", internalerr.ErrPersistence)
	}
	return s, nil
}

// Prune removes version directories other than the active one, keeping
// at most keep of the most recent inactive versions. ULID version names
// sort chronologically.
func Prune(root string, keep int) error {
	m, err := readManifest(root)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", internalerr.ErrPersistence, root, err)
	}

	var versions []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != m.Active {
			versions = append(versions, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))

	if keep < 0 {
		keep = 0
	}
	if len(versions) <= keep {
		return nil
	}
	for _, v := range versions[keep:] {
		if err := os.RemoveAll(filepath.Join(root, v)); err != nil {
			return fmt.Errorf("%w: remove %s: %v", internalerr.ErrPersistence, v, err)
		}
	}
	return nil
}

func writeManifest(root string, m manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal manifest: %v", internalerr.ErrPersistence, err)
	}
	path := filepath.Join(root, manifestFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write manifest: %v", internalerr.ErrPersistence, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: publish manifest: %v", internalerr.ErrPersistence, err)
	}
	return nil
}

func readManifest(root string) (manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, manifestFile))
	if err != nil {
		return manifest{}, fmt.Errorf("%w: read manifest: %v", internalerr.ErrPersistence, err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return manifest{}, fmt.Errorf("%w: decode manifest: %v", internalerr.ErrPersistence, err)
	}
	return m, nil
}
