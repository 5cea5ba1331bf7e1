package config

import (
	"context"
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
//  1. defaults (New())
//  2. file (YAML) if PACHI_CONFIG is set
//  3. env (prefix PACHI_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("PACHI_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Env keys like PACHI_MAX_SCORE map to max_score; underscores are
	// preserved to match the koanf tags on the struct.
	envProvider := env.Provider("PACHI_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "pachi_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.DataFile == "" {
		return nil, errors.New("data_file must not be empty")
	}
	if cfg.MaxScore <= cfg.MinScore {
		return nil, errors.New("max_score must exceed min_score")
	}
	if cfg.LatencyMaxMS <= cfg.LatencyMinMS {
		return nil, errors.New("latency_max_ms must exceed latency_min_ms")
	}
	return &cfg, nil
}
