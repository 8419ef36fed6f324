package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileEnv names the variable holding an optional YAML config path.
const FileEnv = "FT_CONFIG"

// envKeys are the environment variables Load reads. Anything else in the
// environment is ignored.
var envKeys = map[string]bool{
	"port": true, "environment": true, "log_level": true,
	"llm_provider": true, "narratives_enabled": true,
	"gemini_api_key": true, "gemini_model": true,
	"anthropic_api_key": true, "anthropic_model": true,
	"openai_api_key": true, "openai_model": true, "openai_base_url": true,
	"generation_timeout": true, "narrative_concurrency": true, "content_rating": true,
	"storage_backend": true, "redis_url": true,
	"broadcast_mode": true, "broadcast_relay": true,
	"world_seed": true, "otel_endpoint": true,
}

// Load builds a Config by layering, lowest precedence first:
//  1. defaults (New)
//  2. the YAML file named by FT_CONFIG, if set
//  3. environment variables such as PORT or LLM_PROVIDER
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if !envKeys[key] {
			return ""
		}
		return key
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
