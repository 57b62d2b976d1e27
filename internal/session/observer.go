package session

import (
	"strings"

	"github.com/lox/autochat/internal/config"
)

// Observer counts the configured messages the bot's own account is seen
// saying in chat.
type Observer struct {
	messages  map[string]struct{}
	threshold int
	count     int
}

// NewObserver creates an observer for messages. A threshold of
// config.Unlimited disables counting.
func NewObserver(messages []string, threshold int) *Observer {
	set := make(map[string]struct{}, len(messages))
	for _, m := range messages {
		set[m] = struct{}{}
	}
	return &Observer{messages: set, threshold: threshold}
}

// Observe records one chat line from user and reports whether the threshold
// has been reached.
func (o *Observer) Observe(self, user, message string) bool {
	if o.threshold == config.Unlimited || user != self {
		return false
	}
	if _, ok := o.messages[message]; !ok {
		return false
	}
	o.count++
	return o.count >= o.threshold
}

// Count returns how many matching messages have been seen.
func (o *Observer) Count() int {
	return o.count
}

// Threshold returns the count that ends the run, or config.Unlimited.
func (o *Observer) Threshold() int {
	return o.threshold
}

// parseChatLine splits a player chat line of the form "<user> message". The
// username ends at the first '>' and the message starts after the single
// separator following it.
func parseChatLine(plain string) (user, message string, ok bool) {
	if !strings.HasPrefix(plain, "<") {
		return "", "", false
	}
	end := strings.IndexByte(plain, '>')
	if end < 1 {
		return "", "", false
	}
	user = plain[1:end]
	if end+2 <= len(plain) {
		message = plain[end+2:]
	}
	return user, message, true
}
