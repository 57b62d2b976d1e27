// Package gateway is the boundary to the game server. It defines the
// connection contract the chat bot consumes (dial, chat, close and an ordered
// stream of login, message, error and end events) and ships a websocket
// implementation of it.
//
// A Conn delivers events on a single channel in the order they happened. An
// End event is always the last event of a connection and is delivered exactly
// once, after which the channel is closed.
package gateway

import (
	"context"
	"errors"
)

// Errors reported through ErrorEvent. Callers classify with errors.Is.
var (
	// ErrInvalidCredentials means the account name or password was rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited means the authentication servers refused further logins
	// for now.
	ErrRateLimited = errors.New("rate limited by authentication servers")
	// ErrConnectionReset means the server dropped the connection.
	ErrConnectionReset = errors.New("connection reset")
	// ErrAuthUnavailable means the authentication servers could not be reached.
	ErrAuthUnavailable = errors.New("authentication servers unreachable")
)

// DialOptions identify the server and the account to log in with.
type DialOptions struct {
	Host     string
	Port     int
	Version  string
	Username string
	Password string
}

// Dialer opens connections to a game server.
type Dialer interface {
	// Dial connects and starts logging in. Login completes asynchronously and
	// is reported by a LoginEvent.
	Dial(ctx context.Context, opts DialOptions) (Conn, error)
}

// Conn is one live connection to the game server.
type Conn interface {
	// Events returns the connection's event stream.
	Events() <-chan Event
	// Chat sends a chat message as the logged in account.
	Chat(text string) error
	// Close disconnects. It is safe to call more than once.
	Close() error
}

// Event is one of LoginEvent, MessageEvent, ErrorEvent or EndEvent.
type Event interface {
	event()
}

// LoginEvent reports a successful login.
type LoginEvent struct {
	// Username is the in-game name of the account.
	Username string
}

// MessageEvent carries one inbound chat line.
type MessageEvent struct {
	// Rendered is the line formatted for a terminal, ANSI colors included.
	Rendered string
	// Plain is the same line without formatting.
	Plain string
}

// ErrorEvent reports a connection or authentication problem. It does not end
// the connection by itself.
type ErrorEvent struct {
	Err error
}

// EndEvent reports that the connection is gone.
type EndEvent struct {
	Reason string
}

func (LoginEvent) event()   {}
func (MessageEvent) event() {}
func (ErrorEvent) event()   {}
func (EndEvent) event()     {}
