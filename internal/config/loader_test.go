package config_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/jwebster45206/fractured-truths/internal/config"
)

var configEnvVars = []string{
	config.FileEnv, "PORT", "ENVIRONMENT", "LOG_LEVEL", "LLM_PROVIDER", "NARRATIVES_ENABLED",
	"GEMINI_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "OPENAI_BASE_URL",
	"GENERATION_TIMEOUT", "NARRATIVE_CONCURRENCY", "STORAGE_BACKEND", "REDIS_URL",
	"BROADCAST_MODE", "BROADCAST_RELAY", "WORLD_SEED",
}

func clearConfigEnvVars() {
	for _, key := range configEnvVars {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "ft-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should load the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, "8080")
				convey.So(cfg.LLMProvider, convey.ShouldEqual, config.ProviderMock)
				convey.So(cfg.NarrativesEnabled, convey.ShouldBeTrue)
				convey.So(cfg.GenerationTimeout, convey.ShouldEqual, 20*time.Second)
				convey.So(cfg.NarrativeConcurrency, convey.ShouldEqual, 4)
				convey.So(cfg.StorageBackend, convey.ShouldEqual, config.StorageMemory)
				convey.So(cfg.BroadcastMode, convey.ShouldEqual, "routed")
				convey.So(cfg.BroadcastRelay, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PORT", "9090")
			_ = os.Setenv("LLM_PROVIDER", "Gemini")
			_ = os.Setenv("GEMINI_API_KEY", "secret")
			_ = os.Setenv("NARRATIVES_ENABLED", "false")
			_ = os.Setenv("GENERATION_TIMEOUT", "5s")
			_ = os.Setenv("NARRATIVE_CONCURRENCY", "8")
			_ = os.Setenv("BROADCAST_MODE", "global")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, "9090")
				convey.So(cfg.LLMProvider, convey.ShouldEqual, config.ProviderGemini)
				convey.So(cfg.GeminiAPIKey, convey.ShouldEqual, "secret")
				convey.So(cfg.NarrativesEnabled, convey.ShouldBeFalse)
				convey.So(cfg.GenerationTimeout, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.NarrativeConcurrency, convey.ShouldEqual, 8)
				convey.So(cfg.BroadcastMode, convey.ShouldEqual, "global")
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			tmpFile := createTempConfigFile(`
port: "7070"
storage_backend: redis
redis_url: redis://cache:6379/0
broadcast_relay: true
world_seed: seeds/realm.yaml
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv(config.FileEnv, tmpFile)
			_ = os.Setenv("PORT", "8081")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then env should win over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, "8081")
				convey.So(cfg.StorageBackend, convey.ShouldEqual, config.StorageRedis)
				convey.So(cfg.RedisURL, convey.ShouldEqual, "redis://cache:6379/0")
				convey.So(cfg.BroadcastRelay, convey.ShouldBeTrue)
				convey.So(cfg.WorldSeed, convey.ShouldEqual, "seeds/realm.yaml")
			})
		})

		convey.Convey("When the config file is invalid YAML", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv(config.FileEnv, tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv(config.FileEnv, "/nonexistent/ft.yaml")
			defer clearConfigEnvVars()

			_, err := config.Load()

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()

		convey.Convey("It should be valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("A hosted provider without credentials is rejected", func() {
			for _, provider := range []string{config.ProviderGemini, config.ProviderAnthropic, config.ProviderOpenAI} {
				cfg.LLMProvider = provider
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})

		convey.Convey("An unknown provider is rejected", func() {
			cfg.LLMProvider = "ollama"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("An unknown storage backend is rejected", func() {
			cfg.StorageBackend = "sqlite"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("An unknown broadcast mode is rejected", func() {
			cfg.BroadcastMode = "multicast"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("The relay requires redis storage", func() {
			cfg.BroadcastRelay = true
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			cfg.StorageBackend = config.StorageRedis
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Log levels parse with an info default", func() {
			cfg.LogLevel = "WARN"
			convey.So(cfg.Level().String(), convey.ShouldEqual, "WARN")
			cfg.LogLevel = "chatty"
			convey.So(cfg.Level().String(), convey.ShouldEqual, "INFO")
		})
	})
}
