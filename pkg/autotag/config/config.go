// Package config loads engine configuration and taxonomy overrides.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/autotag/pkg/autotag/feature"
	"github.com/cognicore/autotag/pkg/autotag/model"
	"github.com/cognicore/autotag/pkg/autotag/taxonomy"
)

// Config holds all engine tunables.
type Config struct {
	// ModelDir is the artifact root directory.
	ModelDir string `koanf:"model_dir"`

	// FeedbackThreshold is the number of corrections since the last
	// retrain that triggers a new one.
	FeedbackThreshold int `koanf:"feedback_threshold"`

	// InitialTrainingLimit bounds the tagged-record corpus used for the
	// first training pass.
	InitialTrainingLimit int `koanf:"initial_training_limit"`

	// RetrainingLimit bounds the tagged-record corpus gathered for each
	// retrain.
	RetrainingLimit int `koanf:"retraining_limit"`

	// KeepArtifactVersions is how many inactive artifact versions to
	// retain after a retrain.
	KeepArtifactVersions int `koanf:"keep_artifact_versions"`

	// TaxonomyPath optionally points at a YAML taxonomy override.
	TaxonomyPath string `koanf:"taxonomy_path"`

	Text  feature.TextConfig `koanf:"text"`
	Model model.Config       `koanf:"model"`
}

// Default returns the engine defaults.
func Default() Config {
	return Config{
		ModelDir:             "./models",
		FeedbackThreshold:    20,
		InitialTrainingLimit: 200,
		RetrainingLimit:      500,
		KeepArtifactVersions: 2,
		Text:                 feature.DefaultTextConfig(),
		Model:                model.DefaultConfig(),
	}
}

// taxonomyFile is the YAML shape of a taxonomy override.
type taxonomyFile struct {
	Categories    []string            `yaml:"categories"`
	Subcategories map[string][]string `yaml:"subcategories"`
	Fallback      string              `yaml:"fallback"`
}

// LoadTaxonomy loads a taxonomy from a YAML file.
func LoadTaxonomy(path string) (*taxonomy.Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tf taxonomyFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, err
	}

	fallback := tf.Fallback
	if fallback == "" && len(tf.Categories) > 0 {
		fallback = tf.Categories[len(tf.Categories)-1]
	}
	return taxonomy.New(tf.Categories, tf.Subcategories, fallback), nil
}

// Taxonomy resolves the configured taxonomy: the YAML override when set,
// the built-in default otherwise.
func (c Config) Taxonomy() (*taxonomy.Taxonomy, error) {
	if c.TaxonomyPath == "" {
		return taxonomy.Default(), nil
	}
	return LoadTaxonomy(c.TaxonomyPath)
}
