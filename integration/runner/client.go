package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// ViewResponse mirrors GET /view/{playerId}.
type ViewResponse struct {
	PlayerID    string         `json:"playerId"`
	DisplayName string         `json:"displayName"`
	View        world.Document `json:"view"`
}

func doJSON(ctx context.Context, client *http.Client, method, target string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned %d (expected %d): %s", method, target, resp.StatusCode, want, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Join registers a player and returns its id.
func Join(ctx context.Context, client *http.Client, baseURL string, p PlayerSpec) (string, error) {
	var resp struct {
		PlayerID string `json:"playerId"`
	}
	req := map[string]string{"displayName": p.DisplayName, "alignment": p.Alignment}
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/join", req, http.StatusCreated, &resp); err != nil {
		return "", err
	}
	return resp.PlayerID, nil
}

// Act posts one action for playerID.
func Act(ctx context.Context, client *http.Client, baseURL, playerID, actionType string, payload map[string]any) error {
	req := map[string]any{"playerId": playerID, "type": actionType, "payload": payload}
	return doJSON(ctx, client, http.MethodPost, baseURL+"/action", req, http.StatusOK, nil)
}

// GetView fetches a player's view.
func GetView(ctx context.Context, client *http.Client, baseURL, playerID string) (*ViewResponse, error) {
	var resp ViewResponse
	if err := doJSON(ctx, client, http.MethodGet, baseURL+"/view/"+url.PathEscape(playerID), nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetHistory returns the newest limit events, oldest first.
func GetHistory(ctx context.Context, client *http.Client, baseURL string, limit int) ([]world.GameEvent, error) {
	var resp struct {
		Events []world.GameEvent `json:"events"`
	}
	target := fmt.Sprintf("%s/history?limit=%d", baseURL, limit)
	if err := doJSON(ctx, client, http.MethodGet, target, nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// LastSeq returns the Seq of the newest event, or 0 for an empty log.
func LastSeq(ctx context.Context, client *http.Client, baseURL string) (int64, error) {
	events, err := GetHistory(ctx, client, baseURL, 1)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}
	return events[len(events)-1].Seq, nil
}
