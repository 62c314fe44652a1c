package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (Default())
//  2. file (YAML) if AUTOTAG_CONFIG is set
//  3. env (prefix AUTOTAG_)
func Load() (Config, error) {
	cfg := Default()

	k := koanf.New(".")

	if path := os.Getenv("AUTOTAG_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, err
		}
	}

	// Environment variables: AUTOTAG_MODEL_DIR, AUTOTAG_FEEDBACK_THRESHOLD, ...
	// Nested keys use double underscores: AUTOTAG_TEXT__MAX_FEATURES.
	envProvider := env.Provider("AUTOTAG_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "AUTOTAG_"))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, err
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, err
	}

	if cfg.ModelDir == "" {
		return Config{}, errors.New("model_dir must not be empty")
	}
	if cfg.FeedbackThreshold <= 0 {
		return Config{}, errors.New("feedback_threshold must be positive")
	}
	return cfg, nil
}
