package session

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRotation(t *testing.T) {
	messages := []string{"Hello", "Hi", "Hey"}

	for start := range messages {
		s := NewScheduler(quartz.NewMock(t), time.Second, messages)
		for i := 0; i < start; i++ {
			s.Next()
		}

		for k := 0; k < 2*len(messages); k++ {
			assert.Equal(t, messages[(start+k)%len(messages)], s.Next(), "start %d, send %d", start, k)
		}
	}
}

func TestSchedulerTicks(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := quartz.NewMock(t)
	s := NewScheduler(clock, 5*time.Second, []string{"Hello"})

	assert.False(t, s.running())
	assert.Nil(t, s.C())

	s.Start()
	require.True(t, s.running())

	d, ok := clock.Peek()
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, d)

	clock.Advance(5 * time.Second).MustWait(ctx)
	select {
	case <-s.C():
	default:
		t.Fatal("expected a tick")
	}

	s.Stop()
	assert.False(t, s.running())
	assert.Nil(t, s.C())
	_, ok = clock.Peek()
	assert.False(t, ok, "stopped scheduler should leave no timers")

	// Stop is idempotent.
	s.Stop()
}

func TestSchedulerRestartReplacesTicker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := quartz.NewMock(t)
	s := NewScheduler(clock, 5*time.Second, []string{"Hello"})

	s.Start()
	clock.Advance(3 * time.Second).MustWait(ctx)
	s.Start()

	// The fresh ticker is due a full period after the restart.
	d, ok := clock.Peek()
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, d)

	s.Stop()
}
