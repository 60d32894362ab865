package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "TOFO_"
	envFileVar = "TOFO_CONFIG"
)

// Load builds a Config by layering defaults, .env, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env in the working directory (never overrides the real environment)
//  3. file (YAML) if TOFO_CONFIG is set
//  4. env (prefix TOFO_, "__" separates nested keys: TOFO_OBSERVATORY__LAT_DEG)
func Load(_ context.Context) (*Config, error) {
	_ = godotenv.Load()

	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		if s == envFileVar {
			return ""
		}
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	// Slices would be merged element-wise into the defaults; take the
	// configured list whole instead.
	cfg := *base
	cfg.Sources = nil
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if seen[s.Name] {
			return fmt.Errorf("%w: source %q listed twice", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}
