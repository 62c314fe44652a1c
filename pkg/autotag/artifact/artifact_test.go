package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/autotag/pkg/autotag/feature"
	"github.com/cognicore/autotag/pkg/autotag/model"
)

// trainedSet builds a minimal fitted artifact set for persistence tests.
func trainedSet(t *testing.T) *Set {
	t.Helper()

	inputs := []feature.Input{
		{SaleName: "고드름 입호흡 액상", Platform: "naverCommerce"},
		{SaleName: "아스파이어 폐호흡 기기", Platform: "cafe24"},
	}
	extractor := feature.NewCombinedExtractor(feature.DefaultTextConfig(), feature.DefaultAdapters())
	if err := extractor.Fit(inputs); err != nil {
		t.Fatalf("fit extractor: %v", err)
	}

	bundles := make([]feature.Bundle, len(inputs))
	for i, in := range inputs {
		b, err := extractor.Extract(in)
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		bundles[i] = b
	}

	company := model.NewCompanyModel(model.DefaultConfig())
	if err := company.Fit(bundles, []string{"고드름", "아스파이어"}); err != nil {
		t.Fatalf("fit company: %v", err)
	}
	category := model.NewCategoryModel(model.DefaultConfig(), nil)
	if err := category.Fit(bundles, []string{"액상", "기기"}); err != nil {
		t.Fatalf("fit category: %v", err)
	}
	tags := model.NewTagsModel(model.DefaultConfig(), nil)
	if err := tags.Fit(bundles, []string{"입호흡액상|30ml", "폐호흡기기"}); err != nil {
		t.Fatalf("fit tags: %v", err)
	}

	return &Set{
		Version:   NewVersion(),
		TrainedAt: time.Now().UTC().Truncate(time.Second),
		Extractor: extractor,
		Company:   company,
		Category:  category,
		Tags:      tags,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	set := trainedSet(t)

	if err := Save(root, set); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(root, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Version != set.Version {
		t.Errorf("version = %q, want %q", loaded.Version, set.Version)
	}
	if !loaded.TrainedAt.Equal(set.TrainedAt) {
		t.Errorf("trained_at = %v, want %v", loaded.TrainedAt, set.TrainedAt)
	}
	if !loaded.Extractor.Fitted() || !loaded.Company.Fitted() || !loaded.Category.Fitted() || !loaded.Tags.Fitted() {
		t.Error("loaded set should be fully fitted")
	}
}

func TestLoadMissingManifest(t *testing.T) {
	if _, err := Load(t.TempDir(), nil); err == nil {
		t.Fatal("Load of empty root should fail")
	}
}

func TestSavePublishesNewVersion(t *testing.T) {
	root := t.TempDir()

	first := trainedSet(t)
	if err := Save(root, first); err != nil {
		t.Fatalf("Save first: %v", err)
	}

	second := trainedSet(t)
	if err := Save(root, second); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	loaded, err := Load(root, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Version != second.Version {
		t.Errorf("active version = %q, want the newer %q", loaded.Version, second.Version)
	}

	// The older version directory survives until pruned.
	if _, err := os.Stat(filepath.Join(root, first.Version)); err != nil {
		t.Errorf("previous version should remain on disk: %v", err)
	}
}

func TestPruneKeepsActiveAndRecent(t *testing.T) {
	root := t.TempDir()

	versions := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		s := trainedSet(t)
		if err := Save(root, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
		versions = append(versions, s.Version)
		// ULID timestamps have millisecond resolution; keep versions in
		// distinct milliseconds so their order is well defined.
		time.Sleep(2 * time.Millisecond)
	}

	if err := Prune(root, 1); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	active := versions[len(versions)-1]
	kept := versions[len(versions)-2]
	for i, v := range versions {
		_, err := os.Stat(filepath.Join(root, v))
		switch {
		case v == active || v == kept:
			if err != nil {
				t.Errorf("version %s should survive pruning: %v", v, err)
			}
		default:
			if !os.IsNotExist(err) {
				t.Errorf("version %d (%s) should be pruned", i, v)
			}
		}
	}

	// The active set still loads after pruning.
	if _, err := Load(root, nil); err != nil {
		t.Fatalf("Load after Prune: %v", err)
	}
}
