package arm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinmclean/feedarm"
)

func TestRunnerTick(t *testing.T) {
	h := newHarness(DefaultConfig())

	var lines []string
	var ticks int
	r := NewRunner(h.c,
		WithStatusOutput(func(s string) { lines = append(lines, s) }),
		OnTick(func(*Controller) { ticks++ }),
	)

	h.clock.Set(4999)
	r.Tick()
	assert.Empty(t, lines)

	h.clock.Set(5000)
	r.Tick()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "state=MONITORING")
	assert.Contains(t, lines[0], "unsticks=0")

	h.clock.Set(6000)
	r.Tick()
	assert.Len(t, lines, 1)
	assert.Equal(t, 3, ticks)
}

func TestRunnerDefaultStatusOutput(t *testing.T) {
	h := newHarness(DefaultConfig())
	r := NewRunner(h.c)

	h.clock.Set(5000)
	r.Tick()
	assert.Contains(t, h.logs[len(h.logs)-1], "state=MONITORING")
}

func TestPeriodicStatus(t *testing.T) {
	t.Run("Slow", func(t *testing.T) {
		h := newHarness(DefaultConfig())
		h.clock.Set(10)
		h.pulses.Handle()
		h.tickAt(1000)
		h.tickAt(2000)

		assert.True(t, h.c.FeedSlow())
		assert.Equal(t,
			"state=MONITORING feed=90° tension=80° cmd=80° unsticks=0 pulses=1 rate=0.00/s last=1990ms SLOW",
			PeriodicStatus(h.c),
		)
	})

	t.Run("Stalled", func(t *testing.T) {
		h := newHarness(DefaultConfig())
		for ms := uint32(1000); ms <= 4000; ms += 1000 {
			h.tickAt(ms)
		}
		assert.Equal(t,
			"state=MONITORING feed=90° tension=80° cmd=80° unsticks=0 pulses=0 rate=0.00/s last=4000ms STALL",
			PeriodicStatus(h.c),
		)
	})

	t.Run("NoPulseCounter", func(t *testing.T) {
		c := New(DefaultConfig(), Hardware{
			FeedPot:      &fixedSampler{value: rawFor(90)},
			TensionPot:   &fixedSampler{value: rawFor(80)},
			FeedServo:    &fakeServo{},
			TensionServo: &fakeServo{},
			Clock:        (&fakeClock{}).Now,
		}, WithLogger(func(string) {}))
		assert.Equal(t, "state=MONITORING feed=90° tension=80° cmd=80° unsticks=0", PeriodicStatus(c))
	})
}

func TestRunnerRun(t *testing.T) {
	h := newHarness(DefaultConfig())
	r := NewRunner(h.c, WithStatusOutput(func(string) {}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Equal(t, feedarm.StateMonitoring, r.Status().State)

	cfg := r.UpdateConfig(func(cfg *Config) {
		cfg.FeedJamAngle = 50
		cfg.MonitorInterval = 10 * time.Millisecond
	})
	assert.Equal(t, float32(50), cfg.FeedJamAngle)
	assert.Equal(t, float32(50), r.Config().FeedJamAngle)
	assert.Equal(t, 10*time.Millisecond, r.Config().MonitorInterval)

	assert.Equal(t, float32(130), r.SetTensionAngle(200))

	assert.True(t, r.ToggleVerbose())
	assert.False(t, r.ToggleVerbose())

	ok, state := r.TriggerUnstick()
	assert.True(t, ok)
	assert.Equal(t, feedarm.StateUnsticking, state)

	ok, state = r.TriggerUnstick()
	assert.False(t, ok)
	assert.True(t, state.Busy())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}

	assert.Contains(t, h.logs, "manual unstick triggered")
}

func TestRunnerDoCanceled(t *testing.T) {
	h := newHarness(DefaultConfig())
	r := NewRunner(h.c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	assert.False(t, r.Do(ctx, func(*Controller) { ran = true }))
	assert.False(t, ran)
}
