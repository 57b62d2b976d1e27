package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait       = 10 * time.Second
	eventBufferSize = 64
)

// WSDialer connects to game servers that speak JSON frames over a websocket.
type WSDialer struct {
	// Path is the websocket endpoint on the server.
	Path string
	// TLS selects wss instead of ws.
	TLS              bool
	HandshakeTimeout time.Duration

	logger *log.Logger
}

// NewWSDialer creates a websocket dialer with default settings
func NewWSDialer(logger *log.Logger) *WSDialer {
	return &WSDialer{
		Path:             "/chat",
		HandshakeTimeout: 10 * time.Second,
		logger:           logger.WithPrefix("gateway"),
	}
}

// URL returns the websocket URL for opts
func (d *WSDialer) URL(opts DialOptions) string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Path:   d.Path,
	}
	if d.TLS {
		u.Scheme = "wss"
	}
	return u.String()
}

// Dial connects to the server and sends the auth frame
func (d *WSDialer) Dial(ctx context.Context, opts DialOptions) (Conn, error) {
	serverURL := d.URL(opts)
	d.logger.Info("Connecting to server", "url", serverURL, "version", opts.Version)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	// Connect to server
	ws, _, err := dialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &wsConn{
		ws:     ws,
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
		logger: d.logger.With("user", opts.Username),
	}

	// Send auth frame, the login result arrives as an event
	auth, err := NewMessage(MessageTypeAuth, AuthData{
		Username: opts.Username,
		Password: opts.Password,
		Version:  opts.Version,
	})
	if err == nil {
		err = c.write(auth)
	}
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	// Start reading
	go c.readLoop()
	return c, nil
}

type wsConn struct {
	ws     *websocket.Conn
	events chan Event
	logger *log.Logger

	wmu       sync.Mutex // serializes frame writes
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsConn) Events() <-chan Event {
	return c.events
}

func (c *wsConn) Chat(text string) error {
	if c.isClosed() {
		return fmt.Errorf("not connected")
	}
	msg, err := NewMessage(MessageTypeChat, ChatData{Text: text})
	if err != nil {
		return err
	}
	return c.write(msg)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "quitting"),
			time.Now().Add(time.Second))
		err = c.ws.Close()
		c.logger.Info("Disconnected from server")
	})
	return err
}

func (c *wsConn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *wsConn) write(msg *Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(msg)
}

// readLoop turns frames into events until the connection fails, then emits
// the final EndEvent and closes the event channel.
func (c *wsConn) readLoop() {
	defer close(c.events)
	defer c.ws.Close()

	reason := c.readFrames()
	c.emit(EndEvent{Reason: reason})
}

func (c *wsConn) readFrames() string {
	for {
		var msg Message
		err := c.ws.ReadJSON(&msg)
		if err == nil {
			c.dispatch(&msg)
			continue
		}

		if c.isClosed() {
			return "disconnected"
		}

		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && (closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
			if closeErr.Text != "" {
				return closeErr.Text
			}
			return "server closed the connection"
		}

		c.logger.Error("WebSocket error", "error", err)
		c.emit(ErrorEvent{Err: fmt.Errorf("%w: %v", ErrConnectionReset, err)})
		return "connection lost"
	}
}

func (c *wsConn) dispatch(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type)

	switch msg.Type {
	case MessageTypeLogin:
		var data LoginData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Error("Failed to parse login", "error", err)
			return
		}
		c.emit(LoginEvent{Username: data.Username})

	case MessageTypeChat:
		var data ChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Error("Failed to parse chat", "error", err)
			return
		}
		rendered := data.ANSI
		if rendered == "" {
			rendered = data.Text
		}
		c.emit(MessageEvent{Rendered: rendered, Plain: data.Text})

	case MessageTypeError:
		var data ErrorData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Error("Failed to parse error message", "error", err)
			return
		}
		c.emit(ErrorEvent{Err: data.Err()})

	default:
		c.logger.Debug("No handler for message type", "type", msg.Type)
	}
}

// emit queues ev for the consumer. Once the connection has been closed
// locally, events that do not fit in the buffer are dropped.
func (c *wsConn) emit(ev Event) {
	select {
	case c.events <- ev:
		return
	default:
	}

	select {
	case c.events <- ev:
	case <-c.done:
		c.logger.Debug("Dropping event after close", "event", fmt.Sprintf("%T", ev))
	}
}
