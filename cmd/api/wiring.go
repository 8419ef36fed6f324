package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/fractured-truths/internal/config"
	"github.com/jwebster45206/fractured-truths/internal/handlers"
	"github.com/jwebster45206/fractured-truths/internal/middleware"
	"github.com/jwebster45206/fractured-truths/internal/narrative"
	"github.com/jwebster45206/fractured-truths/internal/overlay"
	"github.com/jwebster45206/fractured-truths/internal/pipeline"
	"github.com/jwebster45206/fractured-truths/internal/realtime"
	"github.com/jwebster45206/fractured-truths/internal/services"
	"github.com/jwebster45206/fractured-truths/pkg/metrics"
	"github.com/jwebster45206/fractured-truths/pkg/storage"
)

// newLLMService returns nil for the mock provider, which uses the
// deterministic generators instead.
func newLLMService(cfg *config.Config, log *slog.Logger) (services.LLMService, error) {
	switch cfg.LLMProvider {
	case config.ProviderMock:
		log.Info("Using mock generation provider")
		return nil, nil
	case config.ProviderGemini:
		log.Info("Using Gemini LLM provider", "model", cfg.GeminiModel)
		return services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, log), nil
	case config.ProviderAnthropic:
		log.Info("Using Anthropic LLM provider", "model", cfg.AnthropicModel)
		return services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.AnthropicModel, log), nil
	case config.ProviderOpenAI:
		log.Info("Using OpenAI-compatible LLM provider", "model", cfg.OpenAIModel, "base_url", cfg.OpenAIBaseURL)
		return services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, log), nil
	}
	return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
}

// newPipeline resolves the optional collaborators once.
func newPipeline(cfg *config.Config, llm services.LLMService, store storage.Storage, b pipeline.Broadcaster, m *metrics.Manager, log *slog.Logger) *pipeline.Pipeline {
	var overlays overlay.Generator = overlay.NewStub()
	var narrator narrative.Composer = narrative.NewMock()
	if llm != nil {
		overlays = overlay.NewService(llm, cfg.GenerationTimeout, m, log)
		narrator = narrative.NewService(llm, narrative.Options{
			Timeout:       cfg.GenerationTimeout,
			Concurrency:   cfg.NarrativeConcurrency,
			ContentRating: cfg.ContentRating,
		}, m, log)
	}

	opts := pipeline.Options{Broadcaster: b, Metrics: m}
	if cfg.NarrativesEnabled {
		opts.Narrator = narrator
	} else {
		log.Info("Narratives disabled")
	}
	return pipeline.New(store, overlays, opts, log)
}

func newRouter(cfg *config.Config, p *pipeline.Pipeline, store storage.Storage, hub *realtime.Hub, m *metrics.Manager, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /health", handlers.NewHealthHandler(store, cfg.LLMProvider, log))
	mux.Handle("GET /metrics", m.Handler())

	mux.Handle("POST /join", handlers.NewJoinHandler(p, log))
	mux.Handle("GET /view/{playerId}", handlers.NewViewHandler(p, log))
	mux.Handle("POST /action", handlers.NewActionHandler(p, log))
	mux.Handle("GET /players", handlers.NewPlayersHandler(p, log))
	mux.Handle("GET /history", handlers.NewHistoryHandler(p, log))

	mux.Handle("GET /ws", handlers.NewWebSocketHandler(hub, log))
	mux.Handle("GET /events", handlers.NewEventsHandler(hub, log))

	return middleware.Chain(mux,
		middleware.Recover(log),
		middleware.CORS(),
		middleware.Logger(log),
	)
}
