package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/message"
)

func press(text string) *message.Event {
	return message.New(text, "", message.SourcePoll)
}

func TestSender_FIFO(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	s := NewSender(4, func(_ context.Context, ev *message.Event) {
		mu.Lock()
		seen = append(seen, ev.Text)
		mu.Unlock()
	}, nil)

	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, s.Post(press(text)))
	}
	s.Close()

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, Stats{Posted: 3, Handled: 3}, s.Stats())
}

func TestSender_DropsNewestWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)

	var handled []string
	s := NewSender(2, func(_ context.Context, ev *message.Event) {
		started <- struct{}{}
		<-release
		handled = append(handled, ev.Text)
	}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	require.NoError(t, s.Post(press("first")))
	<-started
	assert.True(t, s.Busy())

	require.NoError(t, s.Post(press("second")))
	require.NoError(t, s.Post(press("third")))

	err := s.Post(press("fourth"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrQueueFull))
	assert.Equal(t, 2, s.Pending())

	s.Close()
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sender did not drain")
	}

	assert.Equal(t, []string{"first", "second", "third"}, handled)
	assert.Equal(t, Stats{Posted: 3, Dropped: 1, Handled: 3}, s.Stats())
	assert.False(t, s.Busy())
}

func TestSender_PostAfterClose(t *testing.T) {
	s := NewSender(1, func(context.Context, *message.Event) {}, nil)
	s.Close()
	s.Close()

	err := s.Post(press("late"))
	assert.Equal(t, errors.ErrQueueClosed, errors.CodeOf(err))
}

func TestSender_ContextCancel(t *testing.T) {
	s := NewSender(0, func(context.Context, *message.Event) {}, nil)
	assert.Equal(t, DefaultDepth, cap(s.events))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
}

func TestSender_SerialHandling(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	s := NewSender(8, func(context.Context, *message.Event) {
		mu.Lock()
		active++
		if active > maxSeen {
			maxSeen = active
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Post(press("x"))
		}()
	}
	wg.Wait()
	s.Close()

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, int64(8), s.Stats().Handled)
}
