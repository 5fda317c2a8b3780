package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livepoll/internal/domain"
)

// wsMessage covers both the update event and the ServerMessage envelope.
type wsMessage struct {
	Type    string          `json:"type"`
	PollID  string          `json:"pollId"`
	Payload json.RawMessage `json:"payload"`
}

// wsClient wraps a test websocket connection. The write pump may batch
// several queued messages into one frame separated by newlines, so reads
// go through a pending queue.
type wsClient struct {
	t       *testing.T
	conn    *websocket.Conn
	pending [][]byte
}

func dialWS(t *testing.T, ts *httptest.Server, forwardedFor string) *wsClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{}
	if forwardedFor != "" {
		header.Set("X-Forwarded-For", forwardedFor)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(msgType string, payload any) {
	c.t.Helper()
	data, err := json.Marshal(map[string]any{"type": msgType, "payload": payload})
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, data))
}

func (c *wsClient) read() wsMessage {
	c.t.Helper()
	for len(c.pending) == 0 {
		c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, frame, err := c.conn.ReadMessage()
		require.NoError(c.t, err)
		for _, part := range bytes.Split(frame, []byte{'\n'}) {
			if len(part) > 0 {
				c.pending = append(c.pending, part)
			}
		}
	}

	raw := c.pending[0]
	c.pending = c.pending[1:]

	var msg wsMessage
	require.NoError(c.t, json.Unmarshal(raw, &msg))
	return msg
}

func (c *wsClient) readSnapshot() (wsMessage, domain.Snapshot) {
	c.t.Helper()
	msg := c.read()
	require.Equal(c.t, "update", msg.Type)
	var snap domain.Snapshot
	require.NoError(c.t, json.Unmarshal(msg.Payload, &snap))
	return msg, snap
}

func (c *wsClient) readError() (string, string) {
	c.t.Helper()
	msg := c.read()
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(c.t, json.Unmarshal(msg.Payload, &payload))
	return msg.Type, payload.Code
}

func TestWebSocketJoinAndVote(t *testing.T) {
	ts, hub := newTestServer(t)

	created, err := hub.CreatePoll(t.Context(), "Q", []string{"A", "B", "C"})
	require.NoError(t, err)

	viewer := dialWS(t, ts, "203.0.113.1")
	viewer.send("join_poll", map[string]any{"pollId": created.PollID})

	// join reply carries the current snapshot
	_, snap := viewer.readSnapshot()
	assert.Equal(t, 0, snap.TotalVotes)
	assert.Equal(t, "Q", snap.Question)

	viewer.send("vote", map[string]any{"pollId": created.PollID, "optionIndex": 1})
	_, snap = viewer.readSnapshot()
	assert.Equal(t, 1, snap.TotalVotes)
	assert.Equal(t, 1, snap.Options[1].Votes)
}

func TestWebSocketDuplicateVoteRejectedPrivately(t *testing.T) {
	ts, hub := newTestServer(t)

	created, err := hub.CreatePoll(t.Context(), "Q", []string{"A", "B"})
	require.NoError(t, err)

	voter := dialWS(t, ts, "203.0.113.10")
	watcher := dialWS(t, ts, "203.0.113.11")

	watcher.send("join_poll", map[string]any{"pollId": created.PollID})
	_, snap := watcher.readSnapshot()
	require.Equal(t, 0, snap.TotalVotes)

	// voting without joining is allowed
	voter.send("vote", map[string]any{"pollId": created.PollID, "optionIndex": 0})
	_, snap = watcher.readSnapshot()
	assert.Equal(t, 1, snap.TotalVotes)

	// second vote from the same origin: rejected to the voter only
	voter.send("vote", map[string]any{"pollId": created.PollID, "optionIndex": 1})
	msgType, code := voter.readError()
	assert.Equal(t, "vote_error", msgType)
	assert.Equal(t, "ALREADY_VOTED", code)

	// the watcher sees no broadcast for the rejection
	watcher.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = watcher.conn.ReadMessage()
	assert.Error(t, err, "no update expected after a rejected vote")
}

func TestWebSocketVoteErrors(t *testing.T) {
	ts, hub := newTestServer(t)

	created, err := hub.CreatePoll(t.Context(), "Q", []string{"A", "B", "C"})
	require.NoError(t, err)

	client := dialWS(t, ts, "203.0.113.20")

	client.send("vote", map[string]any{"pollId": "missing", "optionIndex": 0})
	msgType, code := client.readError()
	assert.Equal(t, "vote_error", msgType)
	assert.Equal(t, "POLL_NOT_FOUND", code)

	client.send("vote", map[string]any{"pollId": created.PollID, "optionIndex": 5})
	msgType, code = client.readError()
	assert.Equal(t, "vote_error", msgType)
	assert.Equal(t, "INVALID_OPTION", code)

	client.send("join_poll", map[string]any{"pollId": "missing"})
	msgType, code = client.readError()
	assert.Equal(t, "error", msgType)
	assert.Equal(t, "POLL_NOT_FOUND", code)

	client.send("bogus", nil)
	msgType, code = client.readError()
	assert.Equal(t, "error", msgType)
	assert.Equal(t, "INVALID_MESSAGE", code)
}

func TestWebSocketPing(t *testing.T) {
	ts, _ := newTestServer(t)

	client := dialWS(t, ts, "203.0.113.30")
	client.send("ping", nil)
	msg := client.read()
	assert.Equal(t, "pong", msg.Type)
}

func TestWebSocketLateJoinerSeesAllVotes(t *testing.T) {
	ts, hub := newTestServer(t)

	created, err := hub.CreatePoll(t.Context(), "Q", []string{"A", "B"})
	require.NoError(t, err)

	for i, origin := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		_, err := hub.Vote(t.Context(), created.PollID, i%2, origin)
		require.NoError(t, err)
	}

	late := dialWS(t, ts, "198.51.100.99")
	late.send("join_poll", map[string]any{"pollId": created.PollID})
	_, snap := late.readSnapshot()
	assert.Equal(t, 3, snap.TotalVotes)
}
