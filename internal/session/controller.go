// Package session runs the chat bot across one or more connections to the
// game server. A Controller owns the current connection, the message
// scheduler, the chat observer and the chat log, and moves between states in
// response to connection events, timers and operator input.
//
// All state changes happen on the goroutine that calls Run, one event at a
// time.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/autochat/internal/config"
	"github.com/lox/autochat/internal/console"
	"github.com/lox/autochat/internal/gateway"
)

// State is the lifecycle stage of a session.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateDisconnected
	StateReconnecting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	case StateReconnecting:
		return "reconnecting"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Reason records why a session ended.
type Reason int32

const (
	ReasonNone Reason = iota
	// ReasonQuit means the operator quit or closed the input.
	ReasonQuit
	// ReasonThreshold means the configured message count was reached.
	ReasonThreshold
	// ReasonRetriesExhausted means the server dropped the bot more often than
	// reconnect_tries allows.
	ReasonRetriesExhausted
	// ReasonAuth means the credentials were rejected or rate limited.
	ReasonAuth
	// ReasonInterrupted means Run's context was cancelled.
	ReasonInterrupted
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonQuit:
		return "quit"
	case ReasonThreshold:
		return "threshold"
	case ReasonRetriesExhausted:
		return "retries exhausted"
	case ReasonAuth:
		return "authentication"
	case ReasonInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("Reason(%d)", int32(r))
	}
}

// Options configures a Controller.
type Options struct {
	Settings config.Settings
	Dialer   gateway.Dialer
	Display  console.Display
	// Input carries operator lines. Closing it quits the session.
	Input <-chan string

	ChatLogDir    string
	ChatLogPrefix string

	Clock  quartz.Clock
	Logger *log.Logger
}

// Controller is the session state machine.
type Controller struct {
	settings config.Settings
	dialer   gateway.Dialer
	display  console.Display
	input    <-chan string
	clock    quartz.Clock
	logger   *log.Logger

	console   *console.Console
	scheduler *Scheduler
	observer  *Observer
	chatLog   *ChatLog

	conn          gateway.Conn
	account       string
	retry         *quartz.Timer
	chatLogTried  bool
	quitRequested bool

	state    atomic.Int32
	reason   atomic.Int32
	attempts atomic.Int32
}

// New creates a controller, nothing happens until Run is called
func New(opts Options) *Controller {
	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	prefix := opts.ChatLogPrefix
	if prefix == "" {
		prefix = "ChatLog"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	c := &Controller{
		settings:  opts.Settings,
		dialer:    opts.Dialer,
		display:   opts.Display,
		input:     opts.Input,
		clock:     clock,
		logger:    logger.WithPrefix("session"),
		scheduler: NewScheduler(clock, opts.Settings.MessageDelay, opts.Settings.Messages),
		observer:  NewObserver(opts.Settings.Messages, opts.Settings.MessageCount),
		chatLog:   NewChatLog(opts.ChatLogDir, prefix, clock),
	}
	c.console = console.New(opts.Display, c)
	return c
}

// State returns the current state (safe from any goroutine)
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Reason returns why the session ended, or ReasonNone while it runs.
func (c *Controller) Reason() Reason {
	return Reason(c.reason.Load())
}

// Attempts returns how many reconnects have been scheduled. The count is
// never reset by a successful login.
func (c *Controller) Attempts() int {
	return int(c.attempts.Load())
}

func (c *Controller) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old != s {
		c.logger.Debug("State changed", "from", old, "to", s)
	}
}

func (c *Controller) finished() bool {
	return c.Reason() != ReasonNone
}

// finish ends the session for reason. The first reason wins.
func (c *Controller) finish(reason Reason) {
	if c.reason.CompareAndSwap(int32(ReasonNone), int32(reason)) {
		c.quitRequested = true
		c.logger.Info("Finishing session", "reason", reason)
	}
}

// Events consumed by step.
type (
	event interface{}

	connEvent        struct{ gateway.Event }
	tickEvent        struct{}
	retryEvent       struct{}
	lineEvent        struct{ line string }
	inputClosedEvent struct{}
	interruptEvent   struct{}
)

// Run connects and processes events until the session finishes. Ending for
// any Reason is not an error; check Reason for the cause.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("Starting session",
		"server", c.settings.Server,
		"port", c.settings.Port,
		"version", c.settings.Version,
		"messages", len(c.settings.Messages))
	defer c.teardown()

	c.connect(ctx)

	input := c.input
	for !c.finished() {
		var events <-chan gateway.Event
		if c.conn != nil {
			events = c.conn.Events()
		}
		var retry <-chan time.Time
		if c.retry != nil {
			retry = c.retry.C
		}

		select {
		case <-ctx.Done():
			c.step(ctx, interruptEvent{})
		case ev, ok := <-events:
			if !ok {
				ev = gateway.EndEvent{Reason: "event stream closed"}
			}
			c.step(ctx, connEvent{ev})
		case <-c.scheduler.C():
			c.step(ctx, tickEvent{})
		case <-retry:
			c.step(ctx, retryEvent{})
		case line, ok := <-input:
			if !ok {
				input = nil
				c.step(ctx, inputClosedEvent{})
				continue
			}
			c.step(ctx, lineEvent{line})
		}
	}
	return nil
}

// step is the transition function
func (c *Controller) step(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case connEvent:
		switch e := ev.Event.(type) {
		case gateway.LoginEvent:
			c.handleLogin(e)
		case gateway.MessageEvent:
			c.handleMessage(e)
		case gateway.ErrorEvent:
			c.handleError(e.Err)
		case gateway.EndEvent:
			c.handleEnd(e)
		}

	case tickEvent:
		c.sendNext()

	case retryEvent:
		c.retry = nil
		c.connect(ctx)

	case lineEvent:
		c.console.Handle(ev.line)

	case inputClosedEvent:
		c.finish(ReasonQuit)

	case interruptEvent:
		c.finish(ReasonInterrupted)
	}
}

func (c *Controller) connect(ctx context.Context) {
	c.setState(StateConnecting)
	c.display.Info("Logging in...")

	creds := c.settings.Credentials
	conn, err := c.dialer.Dial(ctx, gateway.DialOptions{
		Host:     c.settings.Server,
		Port:     c.settings.Port,
		Version:  c.settings.Version,
		Username: creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Error("Failed to connect", "error", err, "attempt", c.Attempts())
		c.handleError(err)
		c.handleEnd(gateway.EndEvent{Reason: "connection failed"})
		return
	}
	c.conn = conn
}

func (c *Controller) handleLogin(ev gateway.LoginEvent) {
	c.account = ev.Username
	c.logger.Info("Logged in", "account", ev.Username)
	c.display.Success(fmt.Sprintf("Logged in as %s.", ev.Username))

	if !c.chatLogTried {
		c.chatLogTried = true
		if err := c.chatLog.Open(c.account); err != nil {
			c.logger.Error("Failed to open chat log", "error", err)
			c.display.Error("Failed to open the chat log. Chat will not be saved.")
		} else {
			c.logger.Info("Writing chat log", "path", c.chatLog.Path())
		}
	}

	c.scheduler.Start()
	c.setState(StateActive)
}

func (c *Controller) handleMessage(ev gateway.MessageEvent) {
	c.display.Print(ev.Rendered)

	user, message, ok := parseChatLine(ev.Plain)
	if !ok {
		return
	}
	if err := c.chatLog.Write(user, message); err != nil {
		c.logger.Warn("Failed to write chat log", "error", err)
	}

	if c.observer.Observe(c.account, user, message) {
		c.display.Success(fmt.Sprintf("Reached %d messages.", c.observer.Threshold()))
		c.finish(ReasonThreshold)
	}
}

func (c *Controller) handleError(err error) {
	c.logger.Warn("Connection error", "error", err)

	switch {
	case errors.Is(err, gateway.ErrInvalidCredentials):
		c.display.Error("Your provided credentials were invalid.")
		c.finish(ReasonAuth)
	case errors.Is(err, gateway.ErrRateLimited):
		c.display.Error("You have been rate limited by the authentication servers. Wait a few minutes and try again.")
		c.finish(ReasonAuth)
	case errors.Is(err, gateway.ErrConnectionReset):
		c.display.Error("You were kicked from the server.")
	case errors.Is(err, gateway.ErrAuthUnavailable):
		c.display.Error("Failed to connect to the authentication servers. They may be down for maintenance, or your connection may be unstable.")
	default:
		c.display.Error(fmt.Sprintf("There was an error while running AutoChat: %v", err))
	}
}

// handleEnd applies the reconnect policy. The scheduler is always stopped
// before a reconnect timer is armed.
func (c *Controller) handleEnd(ev gateway.EndEvent) {
	if c.quitRequested {
		return
	}

	// Stop sending before anything else
	c.scheduler.Stop()
	c.dropConn()
	c.setState(StateDisconnected)
	c.logger.Info("Disconnected", "reason", ev.Reason)
	c.display.Success("The bot was disconnected.")

	// Reconnect while attempts remain
	tries := c.settings.ReconnectTries
	if tries == config.Unlimited || c.Attempts()+1 <= tries {
		c.attempts.Add(1)
		delay := c.settings.ReconnectDelay
		c.logger.Info("Scheduling reconnect", "delay", delay, "attempt", c.Attempts())
		c.display.Success(fmt.Sprintf("Reconnecting in %dms...", delay.Milliseconds()))
		c.retry = c.clock.NewTimer(delay, "reconnect")
		c.setState(StateReconnecting)
		return
	}

	c.display.Error("Exceeded maximum retry attempts.")
	c.finish(ReasonRetriesExhausted)
}

func (c *Controller) sendNext() {
	if c.State() != StateActive || c.conn == nil {
		return
	}
	msg := c.scheduler.Next()
	c.logger.Debug("Sending scheduled message", "message", msg)
	if err := c.conn.Chat(msg); err != nil {
		c.logger.Warn("Failed to send message", "error", err)
	}
}

func (c *Controller) dropConn() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Debug("Error closing connection", "error", err)
	}
	c.conn = nil
}

// teardown releases everything the session owns. A chat log that was never
// opened is not an error.
func (c *Controller) teardown() {
	c.quitRequested = true
	c.scheduler.Stop()
	if c.retry != nil {
		c.retry.Stop("reconnect")
		c.retry = nil
	}
	c.dropConn()

	if err := c.chatLog.Close(); err != nil && !errors.Is(err, ErrNotOpen) {
		c.logger.Error("Failed to close chat log", "error", err)
		c.display.Error("Failed to close the chat log.")
	}

	c.setState(StateTerminated)
	c.logger.Info("Session ended", "reason", c.Reason(), "attempts", c.Attempts())
}

// Chat sends operator text. It implements console.Handler.
func (c *Controller) Chat(text string) {
	if c.State() != StateActive || c.conn == nil {
		c.display.Error("Not connected to the server.")
		return
	}
	if err := c.conn.Chat(text); err != nil {
		c.logger.Warn("Failed to send chat", "error", err)
		c.display.Error(fmt.Sprintf("Failed to send message: %v", err))
	}
}

// Quit ends the session. It implements console.Handler.
func (c *Controller) Quit() {
	c.finish(ReasonQuit)
}

// Progress implements console.Handler
func (c *Controller) Progress() (sent, threshold int) {
	return c.observer.Count(), c.observer.Threshold()
}
