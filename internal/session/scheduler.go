package session

import (
	"time"

	"github.com/coder/quartz"
)

// Scheduler rotates through the configured messages on a fixed period.
// The cursor survives Stop, so a restarted scheduler picks up where it left off
type Scheduler struct {
	clock    quartz.Clock
	interval time.Duration
	messages []string

	cursor int
	ticker *quartz.Ticker
}

// NewScheduler creates a stopped scheduler (messages must not be empty)
func NewScheduler(clock quartz.Clock, interval time.Duration, messages []string) *Scheduler {
	return &Scheduler{
		clock:    clock,
		interval: interval,
		messages: messages,
	}
}

// Start arms a fresh ticker, replacing any running one
func (s *Scheduler) Start() {
	s.Stop()
	s.ticker = s.clock.NewTicker(s.interval, "scheduler")
}

// Stop cancels the ticker. It is safe to call when stopped.
func (s *Scheduler) Stop() {
	if !s.running() {
		return
	}
	s.ticker.Stop("scheduler")
	s.ticker = nil
}

// running reports whether a ticker is armed.
func (s *Scheduler) running() bool {
	return s.ticker != nil
}

// C delivers ticks while running. It is nil when stopped, so a select on it
// blocks.
func (s *Scheduler) C() <-chan time.Time {
	if !s.running() {
		return nil
	}
	return s.ticker.C
}

// Next returns the message at the cursor and advances it, wrapping to the
// first message after the last.
func (s *Scheduler) Next() string {
	msg := s.messages[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.messages)
	return msg
}
