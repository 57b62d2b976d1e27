package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatLog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := quartz.NewMock(t)
	clock.Set(time.Date(2024, 3, 1, 14, 30, 5, 0, time.UTC)).MustWait(ctx)

	dir := filepath.Join(t.TempDir(), "logs")
	l := NewChatLog(dir, "ChatLog", clock)

	assert.False(t, l.isOpen())
	require.NoError(t, l.Write("Bob", "dropped before open"))
	assert.ErrorIs(t, l.Close(), ErrNotOpen)

	require.NoError(t, l.Open("Bot"))
	require.True(t, l.isOpen())
	assert.Equal(t, filepath.Join(dir, "ChatLog-Bot-2024-03-01-14.txt"), l.Path())

	// A second open keeps the first file.
	clock.Set(time.Date(2024, 3, 1, 15, 0, 1, 0, time.UTC)).MustWait(ctx)
	require.NoError(t, l.Open("Other"))
	assert.Equal(t, filepath.Join(dir, "ChatLog-Bot-2024-03-01-14.txt"), l.Path())

	require.NoError(t, l.Write("Bob", "hello"))
	require.NoError(t, l.Write("Bot", "Hi"))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, "[15:00:01] <Bob> hello\n[15:00:01] <Bot> Hi\n", string(data))
}

func TestChatLogAppends(t *testing.T) {
	clock := quartz.NewMock(t)
	dir := t.TempDir()

	first := NewChatLog(dir, "ChatLog", clock)
	require.NoError(t, first.Open("Bot"))
	require.NoError(t, first.Write("Bob", "one"))
	require.NoError(t, first.Close())

	second := NewChatLog(dir, "ChatLog", clock)
	require.NoError(t, second.Open("Bot"))
	require.NoError(t, second.Write("Bob", "two"))
	require.NoError(t, second.Close())

	require.Equal(t, first.Path(), second.Path())
	data, err := os.ReadFile(first.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "<Bob> one\n")
	assert.Contains(t, string(data), "<Bob> two\n")
}

func TestChatLogOpenFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	l := NewChatLog(filepath.Join(blocker, "logs"), "ChatLog", quartz.NewMock(t))
	assert.Error(t, l.Open("Bot"))
	assert.False(t, l.isOpen())
	assert.ErrorIs(t, l.Close(), ErrNotOpen)
}
