package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// ViewResponse mirrors GET /view/{playerId}.
type ViewResponse struct {
	PlayerID    string         `json:"playerId"`
	DisplayName string         `json:"displayName"`
	View        world.Document `json:"view"`
}

// APIClient talks to the Fractured Truths HTTP API.
type APIClient struct {
	baseURL string
	http    *http.Client
}

func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

func (c *APIClient) testConnection() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends a JSON request and decodes the response into out when the status
// matches want.
func (c *APIClient) do(method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *APIClient) Join(displayName, alignment string) (string, error) {
	var resp struct {
		PlayerID string `json:"playerId"`
	}
	req := map[string]string{"displayName": displayName, "alignment": alignment}
	if err := c.do(http.MethodPost, "/join", req, http.StatusCreated, &resp); err != nil {
		return "", fmt.Errorf("join failed: %w", err)
	}
	return resp.PlayerID, nil
}

func (c *APIClient) View(playerID string) (*ViewResponse, error) {
	var resp ViewResponse
	if err := c.do(http.MethodGet, "/view/"+url.PathEscape(playerID), nil, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("view failed: %w", err)
	}
	return &resp, nil
}

func (c *APIClient) Act(playerID, actionType string, payload world.Document) error {
	req := map[string]any{"playerId": playerID, "type": actionType, "payload": payload}
	if err := c.do(http.MethodPost, "/action", req, http.StatusOK, nil); err != nil {
		return fmt.Errorf("action failed: %w", err)
	}
	return nil
}

func (c *APIClient) Players() ([]world.Player, error) {
	var resp struct {
		Players []world.Player `json:"players"`
	}
	if err := c.do(http.MethodGet, "/players", nil, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("players failed: %w", err)
	}
	return resp.Players, nil
}

func (c *APIClient) History(limit int) ([]world.GameEvent, error) {
	var resp struct {
		Events []world.GameEvent `json:"events"`
	}
	if err := c.do(http.MethodGet, fmt.Sprintf("/history?limit=%d", limit), nil, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("history failed: %w", err)
	}
	return resp.Events, nil
}

// Listen streams realtime frames for playerID into frames until ctx is
// cancelled or the connection drops. frames is closed on return.
func (c *APIClient) Listen(ctx context.Context, playerID string, frames chan<- world.Message) error {
	defer close(frames)

	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws?playerId=" + url.QueryEscape(playerID)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var msg world.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("realtime connection lost: %w", err)
		}
		select {
		case frames <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

// parseAction splits "type rest of description" into an action type and
// payload. The description is optional.
func parseAction(input string) (string, world.Document) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return "", nil
	}
	payload := world.Document{}
	if desc := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), fields[0])); desc != "" {
		payload["description"] = desc
	}
	return fields[0], payload
}
