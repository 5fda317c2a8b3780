package ws

import (
	"encoding/json"
	"time"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgJoinPoll MessageType = "join_poll"
	MsgVote     MessageType = "vote"
	MsgPing     MessageType = "ping"
)

// Server → Client message types. Snapshot updates arrive as app.UpdateEvent
// with type "update"; everything else uses the ServerMessage envelope.
const (
	MsgVoteError MessageType = "vote_error"
	MsgError     MessageType = "error"
	MsgPong      MessageType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, payload any) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Client message payloads

// JoinPollPayload is the payload for join_poll
type JoinPollPayload struct {
	PollID string `json:"pollId"`
}

// VotePayload is the payload for vote
type VotePayload struct {
	PollID      string `json:"pollId"`
	OptionIndex int    `json:"optionIndex"`
}

// ErrorPayload is the payload for error and vote_error messages
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodePollNotFound   = "POLL_NOT_FOUND"
	ErrCodeInvalidOption  = "INVALID_OPTION"
	ErrCodeAlreadyVoted   = "ALREADY_VOTED"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeServerError    = "SERVER_ERROR"
)
