package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/fractured-truths/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	GenerateFunc func(ctx context.Context, messages []chat.ChatMessage) (string, error)

	// Track calls for testing
	GenerateCalls []GenerateCall

	response string
	err      error

	mu sync.Mutex // protects all fields above
}

var _ LLMService = (*MockLLMAPI)(nil)

type GenerateCall struct {
	Messages []chat.ChatMessage
}

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		GenerateCalls: make([]GenerateCall, 0),
		response:      "Mock response",
	}
}

func (m *MockLLMAPI) Name() string {
	return "mock"
}

// Generate records the call and answers with GenerateFunc, the configured
// error, or the configured response, in that order.
func (m *MockLLMAPI) Generate(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, GenerateCall{Messages: messages})
	fn, resp, err := m.GenerateFunc, m.response, m.err
	m.mu.Unlock()

	// Called outside the lock so GenerateFunc may block or inspect the mock.
	if fn != nil {
		return fn(ctx, messages)
	}
	if err != nil {
		return "", err
	}
	return resp, nil
}

// SetResponse configures the text returned by Generate.
func (m *MockLLMAPI) SetResponse(resp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = resp
}

// SetError configures Generate to fail with err.
func (m *MockLLMAPI) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// CallCount returns the number of Generate calls so far.
func (m *MockLLMAPI) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GenerateCalls)
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateCalls = make([]GenerateCall, 0)
	m.err = nil
}
