package services

import (
	"context"

	"github.com/jwebster45206/fractured-truths/pkg/chat"
)

// LLMService is the text generation capability behind overlays and narratives.
type LLMService interface {
	// Generate returns the raw completion text for messages.
	Generate(ctx context.Context, messages []chat.ChatMessage) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}
