package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jwebster45206/fractured-truths/pkg/chat"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel = "gemini-1.5-flash"
)

// GeminiService implements LLMService for Google Gemini generateContent.
type GeminiService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ LLMService = (*GeminiService)(nil)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type GeminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

func NewGeminiService(apiKey, modelName string, logger *slog.Logger) *GeminiService {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   geminiBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// WithBaseURL points the client at another endpoint, e.g. a test server.
func (g *GeminiService) WithBaseURL(u string) *GeminiService {
	g.baseURL = u
	return g
}

func (g *GeminiService) Name() string {
	return "gemini"
}

func (g *GeminiService) Generate(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	systemPrompt, conversation := chat.SplitSystem(messages)

	gr := GeminiRequest{}
	if systemPrompt != "" {
		gr.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}
	for _, m := range conversation {
		role := "user"
		if m.Role == chat.ChatRoleAgent {
			role = "model"
		}
		gr.Contents = append(gr.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	reqBody, err := json.Marshal(gr)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(g.modelName), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini error %d: %s", resp.StatusCode, string(body))
	}

	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return "", fmt.Errorf("API error: %s", msg.String())
	}

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text").String()
	g.logger.Debug("Gemini completion received", "model", g.modelName, "chars", len(text))
	return text, nil
}
