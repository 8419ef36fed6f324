// Package config loads service configuration from defaults, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrInvalidConfig marks a configuration that cannot start the service.
var ErrInvalidConfig = errors.New("invalid config")

// Generation providers.
const (
	ProviderMock      = "mock"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type Config struct {
	Port        string `koanf:"port"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	LLMProvider       string `koanf:"llm_provider"`
	NarrativesEnabled bool   `koanf:"narratives_enabled"`

	GeminiAPIKey    string `koanf:"gemini_api_key"`
	GeminiModel     string `koanf:"gemini_model"`
	AnthropicAPIKey string `koanf:"anthropic_api_key"`
	AnthropicModel  string `koanf:"anthropic_model"`
	OpenAIAPIKey    string `koanf:"openai_api_key"`
	OpenAIModel     string `koanf:"openai_model"`
	OpenAIBaseURL   string `koanf:"openai_base_url"`

	// GenerationTimeout bounds each overlay or narrative call.
	GenerationTimeout    time.Duration `koanf:"generation_timeout"`
	NarrativeConcurrency int           `koanf:"narrative_concurrency"`
	ContentRating        string        `koanf:"content_rating"`

	StorageBackend string `koanf:"storage_backend"`
	RedisURL       string `koanf:"redis_url"`

	// BroadcastMode is "routed" or "global".
	BroadcastMode  string `koanf:"broadcast_mode"`
	BroadcastRelay bool   `koanf:"broadcast_relay"`

	WorldSeed    string `koanf:"world_seed"`
	OTelEndpoint string `koanf:"otel_endpoint"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		Port:                 "8080",
		Environment:          "development",
		LogLevel:             "info",
		LLMProvider:          ProviderMock,
		NarrativesEnabled:    true,
		GeminiModel:          "gemini-1.5-flash",
		AnthropicModel:       "claude-3-5-haiku-latest",
		OpenAIModel:          "gpt-4o-mini",
		OpenAIBaseURL:        "https://api.openai.com/v1",
		GenerationTimeout:    20 * time.Second,
		NarrativeConcurrency: 4,
		ContentRating:        "PG13",
		StorageBackend:       StorageMemory,
		RedisURL:             "localhost:6379",
		BroadcastMode:        "routed",
	}
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate reports the first setting that would prevent startup.
func (c *Config) Validate() error {
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	c.BroadcastMode = strings.ToLower(strings.TrimSpace(c.BroadcastMode))

	if c.Port == "" {
		return fmt.Errorf("%w: port must not be empty", ErrInvalidConfig)
	}

	switch c.LLMProvider {
	case ProviderMock:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required for provider %s", ErrInvalidConfig, c.LLMProvider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY is required for provider %s", ErrInvalidConfig, c.LLMProvider)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for provider %s", ErrInvalidConfig, c.LLMProvider)
		}
	default:
		return fmt.Errorf("%w: unknown LLM provider %q", ErrInvalidConfig, c.LLMProvider)
	}

	switch c.StorageBackend {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: REDIS_URL is required for redis storage", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.StorageBackend)
	}

	switch c.BroadcastMode {
	case "routed", "global":
	default:
		return fmt.Errorf("%w: unknown broadcast mode %q", ErrInvalidConfig, c.BroadcastMode)
	}

	if c.BroadcastRelay && c.StorageBackend != StorageRedis {
		return fmt.Errorf("%w: BROADCAST_RELAY requires redis storage", ErrInvalidConfig)
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("%w: generation timeout must be positive", ErrInvalidConfig)
	}
	if c.NarrativeConcurrency <= 0 {
		return fmt.Errorf("%w: narrative concurrency must be positive", ErrInvalidConfig)
	}
	return nil
}
