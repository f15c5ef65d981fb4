package indicator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/doorbell/pkg/hal/sim"
)

func fastPatterns() map[State]Pattern {
	return map[State]Pattern{
		Idle:       {{On: true, Duration: 2 * time.Millisecond}, {On: false, Duration: 2 * time.Millisecond}},
		Connecting: {{On: true, Duration: time.Millisecond}, {On: false, Duration: time.Millisecond}},
		Sending:    {{On: true, Duration: time.Millisecond}},
	}
}

func startIndicator(t *testing.T, opts Options) (*Indicator, *sim.LED, <-chan error) {
	t.Helper()
	led := sim.NewLED()
	ind := New(led, opts, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- ind.Run(context.Background()) }()
	t.Cleanup(ind.Stop)
	return ind, led, errCh
}

func TestDefaultPatterns(t *testing.T) {
	p := DefaultPatterns(false)
	assert.Equal(t, time.Second, p[Idle].Duration())
	assert.Equal(t, 200*time.Millisecond, p[Connecting].Duration())
	for _, step := range p[Sending] {
		assert.True(t, step.On)
	}

	hb := DefaultPatterns(true)[Idle]
	require.Len(t, hb, 6)
	assert.Equal(t, 540*time.Millisecond, hb.Duration())
	assert.Equal(t, Step{On: true, Duration: 100 * time.Millisecond}, hb[4])
}

func TestIndicator_SetState(t *testing.T) {
	ind := New(sim.NewLED(), Options{Enabled: true}, nil)
	assert.Equal(t, Idle, ind.State())

	ind.SetState(Sending)
	assert.Equal(t, Sending, ind.State())

	ind.SetState(State(42))
	assert.Equal(t, Sending, ind.State(), "unknown state must be ignored")

	ind.SetState(State(-1))
	assert.Equal(t, Sending, ind.State())
}

func TestIndicator_Blinks(t *testing.T) {
	ind, led, _ := startIndicator(t, Options{Enabled: true, Patterns: fastPatterns()})
	ind.SetState(Connecting)

	assert.Eventually(t, func() bool { return led.Changes() >= 6 }, time.Second, time.Millisecond)
}

func TestIndicator_SendingIsSolid(t *testing.T) {
	ind, led, _ := startIndicator(t, Options{Enabled: true, Patterns: fastPatterns()})
	ind.SetState(Sending)

	// Wait for the running cycle to finish and the solid pattern to take over.
	time.Sleep(20 * time.Millisecond)
	changes := led.Changes()
	time.Sleep(20 * time.Millisecond)

	assert.True(t, led.On())
	assert.Equal(t, changes, led.Changes())
}

func TestIndicator_StopTurnsOff(t *testing.T) {
	ind, led, errCh := startIndicator(t, Options{Enabled: true, Patterns: fastPatterns()})
	ind.SetState(Sending)
	assert.Eventually(t, led.On, time.Second, time.Millisecond)

	ind.Stop()
	ind.Stop()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.False(t, led.On())
}

func TestIndicator_ContextCancel(t *testing.T) {
	led := sim.NewLED()
	ind := New(led, Options{Enabled: true, Patterns: fastPatterns()}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, ind.Run(ctx))
	assert.False(t, led.On())
	assert.Positive(t, led.Changes())
}

func TestIndicator_Disabled(t *testing.T) {
	ind, led, errCh := startIndicator(t, Options{Enabled: false, Patterns: fastPatterns()})
	ind.SetState(Connecting)
	assert.Equal(t, Connecting, ind.State())

	time.Sleep(10 * time.Millisecond)
	ind.Stop()
	require.NoError(t, <-errCh)

	assert.Empty(t, led.History())
}
