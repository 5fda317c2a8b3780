package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"livepoll/internal/app"
	"livepoll/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

// voteLimit caps how fast a single connection may submit votes.
var voteLimit = rate.Every(100 * time.Millisecond)

const voteBurst = 10

// Client represents a WebSocket viewer connection. It implements app.Conn,
// so rooms can push updates to it.
type Client struct {
	conn    *websocket.Conn
	hub     *app.Hub
	connID  string
	voterID string
	limiter *rate.Limiter
	send    chan []byte
	done    chan struct{}
	logger  *slog.Logger
	mu      sync.Mutex
	closed  bool
}

// NewClient creates a new WebSocket client. voterID is the identity string
// derived by the caller from the connection's network origin.
func NewClient(conn *websocket.Conn, hub *app.Hub, connID, voterID string, logger *slog.Logger) *Client {
	return &Client{
		conn:    conn,
		hub:     hub,
		connID:  connID,
		voterID: voterID,
		limiter: rate.NewLimiter(voteLimit, voteBurst),
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// ID implements app.Conn
func (c *Client) ID() string {
	return c.connID
}

// Send implements app.Conn. It never blocks; if the buffer is full the
// message is dropped for this connection only.
func (c *Client) Send(message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("send buffer full, message dropped", "connID", c.connID)
		return nil
	}
}

// Close implements app.Conn
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming message from the client
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	switch msg.Type {
	case MsgJoinPoll:
		c.handleJoinPoll(msg.Payload)
	case MsgVote:
		c.handleVote(msg.Payload)
	case MsgPing:
		c.sendPong()
	default:
		c.sendError(ErrCodeInvalidMessage, "Unknown message type")
	}
}

// handleJoinPoll subscribes the connection to a poll's room and replies
// with the current snapshot so late joiners see live state immediately.
func (c *Client) handleJoinPoll(payload json.RawMessage) {
	var req JoinPollPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.PollID == "" {
		c.sendError(ErrCodeInvalidMessage, "pollId is required")
		return
	}

	snap, err := c.hub.Subscribe(context.Background(), req.PollID, c)
	if err != nil {
		if errors.Is(err, domain.ErrPollNotFound) {
			c.sendError(ErrCodePollNotFound, "Poll not found")
		} else {
			c.logger.Error("subscribe failed", "pollID", req.PollID, "error", err)
			c.sendError(ErrCodeServerError, "Internal server error")
		}
		return
	}

	c.Send(app.NewUpdateEvent(req.PollID, snap))
}

// handleVote applies a vote. On success the room broadcast carries the new
// snapshot; rejections go back to this connection only.
func (c *Client) handleVote(payload json.RawMessage) {
	var req VotePayload
	if err := json.Unmarshal(payload, &req); err != nil || req.PollID == "" {
		c.sendError(ErrCodeInvalidMessage, "pollId and optionIndex are required")
		return
	}

	if !c.limiter.Allow() {
		c.sendVoteError(ErrCodeRateLimited, "Too many votes, slow down")
		return
	}

	_, err := c.hub.Vote(context.Background(), req.PollID, req.OptionIndex, c.voterID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPollNotFound):
			c.sendVoteError(ErrCodePollNotFound, "Poll not found")
		case errors.Is(err, domain.ErrInvalidOption):
			c.sendVoteError(ErrCodeInvalidOption, "Option index out of range")
		case errors.Is(err, domain.ErrAlreadyVoted):
			c.sendVoteError(ErrCodeAlreadyVoted, "You have already voted in this poll")
		default:
			c.logger.Error("vote failed", "pollID", req.PollID, "error", err)
			c.sendVoteError(ErrCodeServerError, "Internal server error")
		}
	}
}

// sendVoteError sends a vote rejection to this connection only
func (c *Client) sendVoteError(code, message string) {
	c.Send(NewServerMessage(MsgVoteError, &ErrorPayload{Code: code, Message: message}))
}

// sendError sends a protocol error message to the client
func (c *Client) sendError(code, message string) {
	c.Send(NewServerMessage(MsgError, &ErrorPayload{Code: code, Message: message}))
}

// sendPong sends a pong message in response to ping
func (c *Client) sendPong() {
	c.Send(NewServerMessage(MsgPong, nil))
}
