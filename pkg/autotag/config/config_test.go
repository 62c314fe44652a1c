package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.FeedbackThreshold != 20 {
		t.Errorf("feedback threshold = %d, want 20", cfg.FeedbackThreshold)
	}
	if cfg.InitialTrainingLimit != 200 {
		t.Errorf("initial training limit = %d, want 200", cfg.InitialTrainingLimit)
	}
	if cfg.RetrainingLimit != 500 {
		t.Errorf("retraining limit = %d, want 500", cfg.RetrainingLimit)
	}
	if cfg.ModelDir == "" {
		t.Error("model dir should default to a non-empty path")
	}
}

func TestLoadLayersEnvOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autotag.yaml")
	yaml := []byte("model_dir: /srv/models\nfeedback_threshold: 5\ntext:\n  max_features: 250\n")
	if err := os.WriteFile(path, yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("AUTOTAG_CONFIG", path)
	t.Setenv("AUTOTAG_FEEDBACK_THRESHOLD", "7")
	t.Setenv("AUTOTAG_TEXT__NGRAM_MAX", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ModelDir != "/srv/models" {
		t.Errorf("model dir = %q, want file value", cfg.ModelDir)
	}
	// Env wins over file.
	if cfg.FeedbackThreshold != 7 {
		t.Errorf("feedback threshold = %d, want env value 7", cfg.FeedbackThreshold)
	}
	if cfg.Text.MaxFeatures != 250 {
		t.Errorf("max features = %d, want file value 250", cfg.Text.MaxFeatures)
	}
	if cfg.Text.NGramMax != 3 {
		t.Errorf("ngram max = %d, want env value 3", cfg.Text.NGramMax)
	}
	// Untouched fields keep defaults.
	if cfg.RetrainingLimit != 500 {
		t.Errorf("retraining limit = %d, want default 500", cfg.RetrainingLimit)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("AUTOTAG_CONFIG", "")
	t.Setenv("AUTOTAG_FEEDBACK_THRESHOLD", "0")

	if _, err := Load(); err == nil {
		t.Error("zero feedback threshold should be rejected")
	}
}

func TestLoadTaxonomy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	yaml := []byte(`categories: [액상, 기기, 기타]
subcategories:
  액상: [입호흡액상, 폐호흡액상]
fallback: 기타
`)
	if err := os.WriteFile(path, yaml, 0o644); err != nil {
		t.Fatalf("write taxonomy: %v", err)
	}

	tax, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("LoadTaxonomy: %v", err)
	}
	if !tax.Contains("액상") || !tax.Contains("기기") {
		t.Error("loaded taxonomy missing categories")
	}
	if tax.Fallback() != "기타" {
		t.Errorf("fallback = %q, want 기타", tax.Fallback())
	}
	subs := tax.Subcategories("액상")
	if len(subs) != 2 || subs[0] != "입호흡액상" {
		t.Errorf("subcategories = %v", subs)
	}
}

func TestLoadTaxonomyDefaultsFallbackToLastCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	if err := os.WriteFile(path, []byte("categories: [액상, 기타]\n"), 0o644); err != nil {
		t.Fatalf("write taxonomy: %v", err)
	}

	tax, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("LoadTaxonomy: %v", err)
	}
	if tax.Fallback() != "기타" {
		t.Errorf("fallback = %q, want last category 기타", tax.Fallback())
	}
}

func TestConfigTaxonomyWithoutPathUsesDefault(t *testing.T) {
	cfg := Default()
	tax, err := cfg.Taxonomy()
	if err != nil {
		t.Fatalf("Taxonomy: %v", err)
	}
	if !tax.Contains("무화기") {
		t.Error("default taxonomy expected")
	}
}
