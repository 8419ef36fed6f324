// Package overlay produces the per-player view document derived from
// canonical state. Generation never fails: every error path ends in a
// fallback document.
package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jwebster45206/fractured-truths/internal/services"
	"github.com/jwebster45206/fractured-truths/internal/telemetry"
	"github.com/jwebster45206/fractured-truths/pkg/metrics"
	"github.com/jwebster45206/fractured-truths/pkg/prompts"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// Request carries the snapshot one overlay is generated from.
type Request struct {
	PlayerID    string
	DisplayName string
	Entities    []world.Entity
	Factions    []world.Faction
}

// Generator produces an overlay document for one player.
type Generator interface {
	Generate(ctx context.Context, req Request) world.Document
}

// Fallback is the document served whenever generation cannot produce one.
func Fallback(displayName string) world.Document {
	return world.Document{
		"brief":           "Welcome " + displayName,
		"rumors":          []any{},
		"visibleEntities": []any{},
	}
}

// Service generates overlays through an LLM.
type Service struct {
	llm     services.LLMService
	timeout time.Duration
	metrics *metrics.Manager
	logger  *slog.Logger
}

var _ Generator = (*Service)(nil)

func NewService(llm services.LLMService, timeout time.Duration, m *metrics.Manager, logger *slog.Logger) *Service {
	return &Service{
		llm:     llm,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

func (s *Service) Generate(ctx context.Context, req Request) world.Document {
	ctx, span := telemetry.Tracer().Start(ctx, "overlay.Generate")
	span.SetAttributes(attribute.String("player.id", req.PlayerID))
	defer span.End()

	in := prompts.OverlayInput{
		PlayerID:    req.PlayerID,
		DisplayName: req.DisplayName,
		Entities:    slices.Clone(req.Entities),
		Factions:    slices.Clone(req.Factions),
	}
	messages := prompts.OverlayPrompt(in).Build()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.llm.Generate(ctx, messages)
	s.metrics.ObserveGeneration(metrics.ComponentOverlay, time.Since(start), err)
	if err != nil {
		s.logger.Warn("Overlay generation failed, using fallback",
			"player_id", req.PlayerID, "provider", s.llm.Name(), "error", err)
		s.metrics.IncFallback(metrics.ComponentOverlay)
		return Fallback(req.DisplayName)
	}

	doc, err := Parse(raw)
	if err != nil {
		s.logger.Warn("Overlay response unusable, using fallback",
			"player_id", req.PlayerID, "provider", s.llm.Name(), "error", err)
		s.metrics.IncFallback(metrics.ComponentOverlay)
		return Fallback(req.DisplayName)
	}
	return doc
}

// Parse extracts the JSON object between the first '{' and the last '}' of
// raw. Comments and trailing commas are tolerated.
func Parse(raw string) (world.Document, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in response", world.ErrGenerationFailure)
	}

	var doc world.Document
	if err := json.Unmarshal(jsonc.ToJSON([]byte(raw[start:end+1])), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", world.ErrGenerationFailure, err)
	}
	return doc, nil
}
