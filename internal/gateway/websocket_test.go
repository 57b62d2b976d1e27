package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal chat server: it accepts one auth frame, then runs
// script against the connection.
type fakeServer struct {
	*httptest.Server
	auth chan AuthData
}

func newFakeServer(t *testing.T, script func(t *testing.T, ws *websocket.Conn)) *fakeServer {
	t.Helper()

	fs := &fakeServer{auth: make(chan AuthData, 1)}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer ws.Close()

		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			t.Errorf("failed to read auth: %v", err)
			return
		}
		if msg.Type != MessageTypeAuth {
			t.Errorf("expected auth frame, got %s", msg.Type)
			return
		}
		var auth AuthData
		if err := json.Unmarshal(msg.Data, &auth); err != nil {
			t.Errorf("failed to parse auth: %v", err)
			return
		}
		fs.auth <- auth

		script(t, ws)
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) dialOptions(t *testing.T) DialOptions {
	t.Helper()

	host, portStr, err := net.SplitHostPort(fs.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return DialOptions{Host: host, Port: port, Version: "1.20.1", Username: "bot@example.com", Password: "hunter2"}
}

func send(t *testing.T, ws *websocket.Conn, messageType MessageType, data any) {
	t.Helper()
	msg, err := NewMessage(messageType, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(msg))
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func nextEvent(t *testing.T, conn Conn) Event {
	t.Helper()
	select {
	case ev, ok := <-conn.Events():
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func requireClosed(t *testing.T, conn Conn) {
	t.Helper()
	select {
	case ev, ok := <-conn.Events():
		require.False(t, ok, "unexpected event %#v", ev)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event channel to close")
	}
}

func TestWSDialerURL(t *testing.T) {
	d := NewWSDialer(testLogger())
	opts := DialOptions{Host: "play.example.com", Port: 25565}
	assert.Equal(t, "ws://play.example.com:25565/chat", d.URL(opts))

	d.TLS = true
	d.Path = "/ws"
	assert.Equal(t, "wss://play.example.com:25565/ws", d.URL(opts))
}

func TestWSConnChatSession(t *testing.T) {
	chats := make(chan string, 1)

	server := newFakeServer(t, func(t *testing.T, ws *websocket.Conn) {
		send(t, ws, MessageTypeLogin, LoginData{Username: "Bot"})

		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			t.Errorf("failed to read chat: %v", err)
			return
		}
		var chat ChatData
		_ = json.Unmarshal(msg.Data, &chat)
		chats <- chat.Text

		send(t, ws, MessageTypeChat, ChatData{Text: "<Bot> " + chat.Text, ANSI: "\x1b[37m<Bot> " + chat.Text + "\x1b[0m"})
		send(t, ws, MessageTypeChat, ChatData{Text: "Server restarting soon"})
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "restart"))
		_, _, _ = ws.ReadMessage()
	})

	conn, err := NewWSDialer(testLogger()).Dial(context.Background(), server.dialOptions(t))
	require.NoError(t, err)
	defer conn.Close()

	auth := <-server.auth
	assert.Equal(t, AuthData{Username: "bot@example.com", Password: "hunter2", Version: "1.20.1"}, auth)

	assert.Equal(t, LoginEvent{Username: "Bot"}, nextEvent(t, conn))

	require.NoError(t, conn.Chat("Hello"))
	assert.Equal(t, "Hello", <-chats)

	assert.Equal(t, MessageEvent{Rendered: "\x1b[37m<Bot> Hello\x1b[0m", Plain: "<Bot> Hello"}, nextEvent(t, conn))
	assert.Equal(t, MessageEvent{Rendered: "Server restarting soon", Plain: "Server restarting soon"}, nextEvent(t, conn))
	assert.Equal(t, EndEvent{Reason: "restart"}, nextEvent(t, conn))
	requireClosed(t, conn)
}

func TestWSConnErrorFrames(t *testing.T) {
	tests := []struct {
		code     string
		sentinel error
	}{
		{ErrorCodeInvalidCredentials, ErrInvalidCredentials},
		{ErrorCodeRateLimited, ErrRateLimited},
		{ErrorCodeAuthUnavailable, ErrAuthUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			server := newFakeServer(t, func(t *testing.T, ws *websocket.Conn) {
				send(t, ws, MessageTypeError, ErrorData{Code: tt.code, Message: "nope"})
				_, _, _ = ws.ReadMessage()
			})

			conn, err := NewWSDialer(testLogger()).Dial(context.Background(), server.dialOptions(t))
			require.NoError(t, err)
			defer conn.Close()

			ev := nextEvent(t, conn)
			errEv, ok := ev.(ErrorEvent)
			require.True(t, ok, "expected ErrorEvent, got %#v", ev)
			assert.ErrorIs(t, errEv.Err, tt.sentinel)
		})
	}

	t.Run("unknown code", func(t *testing.T) {
		err := ErrorData{Code: "kicked", Message: "bye"}.Err()
		assert.EqualError(t, err, "server error [kicked]: bye")
		assert.NotErrorIs(t, err, ErrConnectionReset)
	})
}

func TestWSConnReset(t *testing.T) {
	server := newFakeServer(t, func(t *testing.T, ws *websocket.Conn) {
		send(t, ws, MessageTypeLogin, LoginData{Username: "Bot"})
		// Drop the TCP connection without a close frame.
		_ = ws.UnderlyingConn().Close()
	})

	conn, err := NewWSDialer(testLogger()).Dial(context.Background(), server.dialOptions(t))
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, LoginEvent{Username: "Bot"}, nextEvent(t, conn))

	ev := nextEvent(t, conn)
	errEv, ok := ev.(ErrorEvent)
	require.True(t, ok, "expected ErrorEvent, got %#v", ev)
	assert.ErrorIs(t, errEv.Err, ErrConnectionReset)

	assert.IsType(t, EndEvent{}, nextEvent(t, conn))
	requireClosed(t, conn)
}

func TestWSConnClose(t *testing.T) {
	server := newFakeServer(t, func(t *testing.T, ws *websocket.Conn) {
		send(t, ws, MessageTypeLogin, LoginData{Username: "Bot"})
		_, _, _ = ws.ReadMessage()
	})

	conn, err := NewWSDialer(testLogger()).Dial(context.Background(), server.dialOptions(t))
	require.NoError(t, err)

	assert.Equal(t, LoginEvent{Username: "Bot"}, nextEvent(t, conn))

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	assert.Equal(t, EndEvent{Reason: "disconnected"}, nextEvent(t, conn))
	requireClosed(t, conn)

	assert.Error(t, conn.Chat("too late"))
}

func TestWSDialerRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().(*net.TCPAddr)
	require.NoError(t, listener.Close())

	_, err = NewWSDialer(testLogger()).Dial(context.Background(), DialOptions{Host: "127.0.0.1", Port: addr.Port})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}
