package gateway

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the JSON envelope of every websocket frame.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// MessageType names a frame.
type MessageType string

// Client to server message types
const (
	MessageTypeAuth MessageType = "auth"
	MessageTypeChat MessageType = "chat"
)

// Server to client message types. Chat frames travel both ways.
const (
	MessageTypeLogin MessageType = "login"
	MessageTypeError MessageType = "error"
)

// Error codes carried by error frames.
const (
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeRateLimited        = "rate_limited"
	ErrorCodeAuthUnavailable    = "auth_unavailable"
)

// AuthData is sent right after connecting.
type AuthData struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Version  string `json:"version"`
}

// LoginData confirms authentication.
type LoginData struct {
	Username string `json:"username"`
}

// ChatData is an outgoing chat message, or an inbound chat line. ANSI is only
// set on inbound lines, when the server renders them.
type ChatData struct {
	Text string `json:"text"`
	ANSI string `json:"ansi,omitempty"`
}

// ErrorData reports a server-side error.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessage creates a message with the given type and data.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Err converts an error frame into an error that wraps the matching sentinel.
func (d ErrorData) Err() error {
	var sentinel error
	switch d.Code {
	case ErrorCodeInvalidCredentials:
		sentinel = ErrInvalidCredentials
	case ErrorCodeRateLimited:
		sentinel = ErrRateLimited
	case ErrorCodeAuthUnavailable:
		sentinel = ErrAuthUnavailable
	default:
		return fmt.Errorf("server error [%s]: %s", d.Code, d.Message)
	}
	if d.Message == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, d.Message)
}
