package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

func dialWS(t *testing.T, srv *httptest.Server, playerID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?playerId=" + playerID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) world.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg world.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketHandler_RoutesNarratives(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.mux)
	defer srv.Close()

	alice := env.join(t, "Alice", "merciful")
	bert := env.join(t, "Bert", "tyrannical")

	aliceConn := dialWS(t, srv, alice)
	anonConn := dialWS(t, srv, "")

	hello := readFrame(t, aliceConn)
	assert.Equal(t, world.MessageHello, hello.Type)
	assert.Equal(t, world.HelloText, hello.Message)
	assert.Equal(t, world.MessageHello, readFrame(t, anonConn).Type)

	rr := env.do(t, http.MethodPost, "/action",
		`{"playerId":"`+bert+`","type":"policy_change","payload":{"description":"King raises tax"}}`)
	require.Equal(t, http.StatusOK, rr.Code)

	frame := readFrame(t, aliceConn)
	assert.Equal(t, world.MessageNarratives, frame.Type)
	require.Len(t, frame.ByPlayer, 1)
	assert.Contains(t, frame.ByPlayer[alice], "King raises tax")
	require.NotNil(t, frame.Event)
	assert.Equal(t, bert, frame.Event.PlayerID)

	anon := readFrame(t, anonConn)
	assert.Equal(t, world.MessageNarratives, anon.Type)
	assert.Empty(t, anon.ByPlayer)
}

func TestWebSocketHandler_UnregistersOnClose(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.mux)
	defer srv.Close()

	conn := dialWS(t, srv, "someone")
	readFrame(t, conn)
	assert.Equal(t, 1, env.hub.Count())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	assert.Eventually(t, func() bool { return env.hub.Count() == 0 },
		3*time.Second, 10*time.Millisecond)
}

type sseEvent struct {
	name string
	data string
}

func readSSE(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var evt sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if evt.name != "" {
				return evt
			}
		case strings.HasPrefix(line, "event: "):
			evt.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			evt.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsHandler_StreamsFrames(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.mux)
	defer srv.Close()

	bert := env.join(t, "Bert", "tyrannical")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?playerId="+bert, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	hello := readSSE(t, reader)
	assert.Equal(t, world.MessageHello, hello.name)
	assert.Contains(t, hello.data, world.HelloText)

	rr := env.do(t, http.MethodPost, "/action",
		`{"playerId":"`+bert+`","type":"policy_change","payload":{"description":"King raises tax"}}`)
	require.Equal(t, http.StatusOK, rr.Code)

	evt := readSSE(t, reader)
	assert.Equal(t, world.MessageNarratives, evt.name)
	var frame world.Message
	require.NoError(t, json.Unmarshal([]byte(evt.data), &frame))
	require.Len(t, frame.ByPlayer, 1)
	assert.Contains(t, frame.ByPlayer[bert], "King raises tax")
}

func TestEventsHandler_Keepalive(t *testing.T) {
	env := newTestEnv(t)
	h := NewEventsHandler(env.hub, testLogger())
	h.keepalive = 10 * time.Millisecond
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readSSE(t, reader)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line == ": keepalive\n" {
			return
		}
	}
}

func TestEventsHandler_EndsWhenHubCloses(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readSSE(t, reader)

	env.hub.CloseAll()
	_, err = io.ReadAll(reader)
	assert.NoError(t, err, "stream should end cleanly")
	assert.Equal(t, 0, env.hub.Count())
}
