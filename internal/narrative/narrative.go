// Package narrative composes one alignment-flavored narrative per player for
// a canonical event.
package narrative

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/fractured-truths/internal/services"
	"github.com/jwebster45206/fractured-truths/internal/telemetry"
	"github.com/jwebster45206/fractured-truths/pkg/metrics"
	"github.com/jwebster45206/fractured-truths/pkg/prompts"
	"github.com/jwebster45206/fractured-truths/pkg/textfilter"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

const DefaultConcurrency = 4

// Composer returns exactly one entry per player in players.
type Composer interface {
	Compose(ctx context.Context, evt world.CanonicalEvent, players []world.Player) world.NarrativeMap
}

// Options tune the LLM-backed composer.
type Options struct {
	Timeout       time.Duration
	Concurrency   int
	ContentRating string
}

// Service composes narratives through an LLM, one call per player.
type Service struct {
	llm       services.LLMService
	opts      Options
	sanitizer *textfilter.Sanitizer
	metrics   *metrics.Manager
	logger    *slog.Logger
}

var _ Composer = (*Service)(nil)

func NewService(llm services.LLMService, opts Options, m *metrics.Manager, logger *slog.Logger) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Service{
		llm:       llm,
		opts:      opts,
		sanitizer: textfilter.NewSanitizer(prompts.MaxNarrativeWords, opts.ContentRating),
		metrics:   m,
		logger:    logger,
	}
}

func (s *Service) Compose(ctx context.Context, evt world.CanonicalEvent, players []world.Player) world.NarrativeMap {
	ctx, span := telemetry.Tracer().Start(ctx, "narrative.Compose")
	span.SetAttributes(attribute.String("event.type", evt.Type), attribute.Int("players", len(players)))
	defer span.End()

	results := make([]string, len(players))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, p := range players {
		g.Go(func() error {
			results[i] = s.composeOne(ctx, evt, p)
			return nil
		})
	}
	_ = g.Wait()

	out := make(world.NarrativeMap, len(players))
	for i, p := range players {
		out[p.ID] = results[i]
	}
	return out
}

func (s *Service) composeOne(ctx context.Context, evt world.CanonicalEvent, p world.Player) string {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.llm.Generate(ctx, prompts.NarrativePrompt(evt, p, s.opts.ContentRating).Build())
	s.metrics.ObserveGeneration(metrics.ComponentNarrative, time.Since(start), err)
	if err != nil {
		s.logger.Warn("Narrative generation failed, using fallback",
			"player_id", p.ID, "provider", s.llm.Name(), "error", err)
		s.metrics.IncFallback(metrics.ComponentNarrative)
		return p.Alignment.FallbackNarrative(evt.Description)
	}

	text := s.sanitizer.Clean(raw)
	if text == "" {
		s.logger.Warn("Narrative generation returned empty text, using fallback", "player_id", p.ID)
		s.metrics.IncFallback(metrics.ComponentNarrative)
		return p.Alignment.FallbackNarrative(evt.Description)
	}
	return text
}
