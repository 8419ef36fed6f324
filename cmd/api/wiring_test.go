package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/fractured-truths/internal/config"
	"github.com/jwebster45206/fractured-truths/internal/realtime"
	"github.com/jwebster45206/fractured-truths/internal/services"
	"github.com/jwebster45206/fractured-truths/pkg/metrics"
	"github.com/jwebster45206/fractured-truths/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewLLMService(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
		wantNil  bool
		wantErr  bool
	}{
		{provider: config.ProviderMock, wantNil: true},
		{provider: config.ProviderGemini, wantName: "gemini"},
		{provider: config.ProviderAnthropic, wantName: "anthropic"},
		{provider: config.ProviderOpenAI, wantName: "openai"},
		{provider: "ollama", wantNil: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := config.New()
			cfg.LLMProvider = tt.provider
			llm, err := newLLMService(cfg, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, llm)
				return
			}
			require.NotNil(t, llm)
			assert.Equal(t, tt.wantName, llm.Name())
		})
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, llm services.LLMService) http.Handler {
	t.Helper()
	log := testLogger()
	m := metrics.NewManager()
	store := storage.NewMemoryStorage()
	hub := realtime.NewHub(realtime.ModeRouted, m, log)
	p := newPipeline(cfg, llm, store, hub, m, log)
	return newRouter(cfg, p, store, hub, m, log)
}

func TestRouter_JoinActView(t *testing.T) {
	h := newTestRouter(t, config.New(), nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/join", strings.NewReader(`{"displayName":"Alice","alignment":"merciful"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	var joined struct {
		PlayerID string `json:"playerId"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &joined))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/action",
		strings.NewReader(`{"playerId":"`+joined.PlayerID+`","type":"decree","payload":{"description":"Gates close at dusk"}}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/view/"+joined.PlayerID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Gates close at dusk")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "fractured_truths_actions_total")
}

func TestRouter_MethodMismatch(t *testing.T) {
	h := newTestRouter(t, config.New(), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/join", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestNewPipeline_NarrativesDisabled(t *testing.T) {
	cfg := config.New()
	cfg.NarrativesEnabled = false
	llm := services.NewMockLLMAPI()
	llm.SetResponse(`{"brief":"hosted"}`)
	h := newTestRouter(t, cfg, llm)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/join", strings.NewReader(`{"displayName":"Bert"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	var joined struct {
		PlayerID string `json:"playerId"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &joined))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/action", strings.NewReader(`{"playerId":"`+joined.PlayerID+`","type":"decree"}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/view/"+joined.PlayerID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"brief":"hosted"`)
	assert.NotContains(t, rr.Body.String(), `"narrative"`)
	assert.Equal(t, 2, llm.CallCount(), "one overlay call per join and per action")
}
