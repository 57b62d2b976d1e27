package session

import (
	"testing"

	"github.com/lox/autochat/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestParseChatLine(t *testing.T) {
	tests := []struct {
		plain   string
		user    string
		message string
		ok      bool
	}{
		{"<Bob> hello", "Bob", "hello", true},
		{"<Bob> hello > world", "Bob", "hello > world", true},
		{"<Bob>", "Bob", "", true},
		{"<Bob> ", "Bob", "", true},
		{"<> hi", "", "hi", true},
		{"Bob joined the game", "", "", false},
		{"<Bob hello", "", "", false},
		{" <Bob> hello", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.plain, func(t *testing.T) {
			user, message, ok := parseChatLine(tt.plain)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.user, user)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestObserver(t *testing.T) {
	t.Run("other players never count", func(t *testing.T) {
		o := NewObserver([]string{"hello"}, 1)

		assert.False(t, o.Observe("Bot", "Bob", "hello"))
		assert.Equal(t, 0, o.Count())
	})

	t.Run("unknown messages never count", func(t *testing.T) {
		o := NewObserver([]string{"hello"}, 1)

		assert.False(t, o.Observe("Bot", "Bot", "goodbye"))
		assert.Equal(t, 0, o.Count())
	})

	t.Run("threshold is reached exactly on the last match", func(t *testing.T) {
		o := NewObserver([]string{"Hello", "Hi"}, 3)

		assert.False(t, o.Observe("Bot", "Bot", "Hello"))
		assert.False(t, o.Observe("Bot", "Bob", "Hi"))
		assert.False(t, o.Observe("Bot", "Bot", "Hi"))
		assert.True(t, o.Observe("Bot", "Bot", "Hello"))
		assert.Equal(t, 3, o.Count())
	})

	t.Run("unlimited never counts", func(t *testing.T) {
		o := NewObserver([]string{"Hello"}, config.Unlimited)

		for i := 0; i < 5; i++ {
			assert.False(t, o.Observe("Bot", "Bot", "Hello"))
		}
		assert.Equal(t, 0, o.Count())
		assert.Equal(t, config.Unlimited, o.Threshold())
	})
}
