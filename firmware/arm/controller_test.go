package arm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinmclean/feedarm"
)

func TestNew(t *testing.T) {
	h := newHarness(DefaultConfig())

	assert.Equal(t, feedarm.StateMonitoring, h.c.State())
	assert.False(t, h.c.FeedAttached())
	assert.Empty(t, h.feedServo.angles)
	assert.Equal(t, []int{80}, h.tensionServo.angles)
	assert.Equal(t, float32(80), h.c.TensionAngle())
	assert.InDelta(t, 90, h.c.FeedArmAngle(), 0.1)
	assert.InDelta(t, 80, h.c.TensionArmAngle(), 0.1)
	assert.Equal(t, uint32(0), h.c.UnstickCount())
	assert.Contains(t, h.logs, "feed servo DETACHED (arm floating with spring)")
}

func TestNewClampsTension(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TensionAngle = 150

	h := newHarness(cfg)
	assert.Equal(t, float32(130), h.c.TensionAngle())
	assert.Equal(t, []int{130}, h.tensionServo.angles)
}

func TestControllerUnstickCycle(t *testing.T) {
	h := newHarness(DefaultConfig())

	h.tickAt(50)
	assert.Equal(t, feedarm.StateMonitoring, h.c.State())

	h.setFeed(40)
	h.tickAt(100)

	require.Equal(t, feedarm.StateHoldUnstick, h.c.State())
	assert.Equal(t, 30, h.tensionServo.Last(), "tension relaxed to minimum")
	assert.Equal(t, float32(80), h.c.TensionAngle(), "commanded tension is unchanged while relaxed")
	assert.True(t, h.c.FeedAttached())
	assert.Equal(t, []int{140}, h.feedServo.angles)
	assert.Equal(t, uint32(0), h.c.UnstickCount())
	assert.Contains(t, h.logs, "MONITORING -> UNSTICKING")
	assert.Contains(t, h.logs, "UNSTICKING -> HOLD_UNSTICK")

	h.tickAt(599)
	assert.Equal(t, feedarm.StateHoldUnstick, h.c.State())

	h.tickAt(600)
	require.Equal(t, feedarm.StateCooldown, h.c.State())
	assert.Equal(t, uint32(1), h.c.UnstickCount())
	assert.Equal(t, 90, h.feedServo.Last())
	assert.True(t, h.c.FeedAttached())
	assert.Equal(t, 30, h.tensionServo.Last(), "tension stays relaxed through cooldown")

	h.tickAt(2599)
	assert.Equal(t, feedarm.StateCooldown, h.c.State())

	h.tickAt(2600)
	require.Equal(t, feedarm.StateMonitoring, h.c.State())
	assert.False(t, h.c.FeedAttached())
	assert.Equal(t, 1, h.feedServo.releases)
	assert.Equal(t, 80, h.tensionServo.Last())
	assert.Equal(t, uint32(0), h.pulses.Count())
	assert.False(t, h.c.FilamentStalled())
	assert.Contains(t, h.logs, "COOLDOWN -> MONITORING")
}

func TestControllerStallJam(t *testing.T) {
	h := newHarness(DefaultConfig())
	h.setFeed(70)

	for _, ms := range []uint32{1000, 2000, 3000} {
		h.tickAt(ms)
		assert.Equal(t, feedarm.StateMonitoring, h.c.State(), "at %dms", ms)
	}
	assert.False(t, h.c.FilamentStalled())

	h.tickAt(4000)
	assert.True(t, h.c.FilamentStalled())
	assert.Equal(t, feedarm.StateHoldUnstick, h.c.State())
	assert.Contains(t, h.logs, "JAM! arm angle=70° (threshold=45°) stall=YES")

	h.setFeed(90)
	h.tickAt(4500)
	assert.Equal(t, feedarm.StateCooldown, h.c.State())
	h.tickAt(6500)
	assert.Equal(t, feedarm.StateMonitoring, h.c.State())
	assert.False(t, h.c.FilamentStalled(), "stall is cleared with the pulse reset")

	h.tickAt(7500)
	assert.Equal(t, feedarm.StateMonitoring, h.c.State())
	assert.False(t, h.c.FilamentStalled(), "grace period restarts after an unstick")
}

func TestControllerStallAtRestIsNotJam(t *testing.T) {
	h := newHarness(DefaultConfig())

	for ms := uint32(1000); ms <= 5000; ms += 1000 {
		h.tickAt(ms)
	}
	assert.True(t, h.c.FilamentStalled())
	assert.Equal(t, feedarm.StateMonitoring, h.c.State())
}

func TestControllerPulsesPreventStall(t *testing.T) {
	h := newHarness(DefaultConfig())
	h.setFeed(70)

	for ms := uint32(500); ms <= 6000; ms += 500 {
		h.clock.Set(ms)
		h.pulses.Handle()
		h.c.Update()
	}
	assert.False(t, h.c.FilamentStalled())
	assert.Equal(t, feedarm.StateMonitoring, h.c.State())
	assert.InDelta(t, 2.0, h.c.PulseRate(), 0.01)
	assert.False(t, h.c.FeedSlow())
}

func TestControllerWithoutPulseCounter(t *testing.T) {
	clock := &fakeClock{}
	c := New(DefaultConfig(), Hardware{
		FeedPot:      &fixedSampler{value: rawFor(70)},
		TensionPot:   &fixedSampler{value: rawFor(80)},
		FeedServo:    &fakeServo{},
		TensionServo: &fakeServo{},
		Clock:        clock.Now,
	}, WithLogger(func(string) {}))

	for ms := uint32(1000); ms <= 10000; ms += 1000 {
		clock.Set(ms)
		c.Update()
	}
	assert.False(t, c.FilamentStalled())
	assert.Equal(t, feedarm.StateMonitoring, c.State())
	assert.Zero(t, c.PulseRate())
	assert.Zero(t, c.SinceLastPulse())
}

func TestControllerTriggerUnstick(t *testing.T) {
	h := newHarness(DefaultConfig())

	h.clock.Set(10)
	require.True(t, h.c.TriggerUnstick())
	assert.Equal(t, feedarm.StateUnsticking, h.c.State())
	assert.Empty(t, h.feedServo.angles, "servos move on the next update")
	assert.Contains(t, h.logs, "manual unstick triggered")

	h.tickAt(20)
	assert.Equal(t, feedarm.StateHoldUnstick, h.c.State())
	assert.Equal(t, []int{140}, h.feedServo.angles)

	t.Run("IgnoredWhileHolding", func(t *testing.T) {
		assert.False(t, h.c.TriggerUnstick())
		assert.Equal(t, feedarm.StateHoldUnstick, h.c.State())
	})
}

func TestControllerRetriggerFromCooldown(t *testing.T) {
	h := newHarness(DefaultConfig())
	h.setFeed(40)
	h.tickAt(100)
	h.setFeed(90)
	h.tickAt(600)
	require.Equal(t, feedarm.StateCooldown, h.c.State())

	h.clock.Set(700)
	require.True(t, h.c.TriggerUnstick())
	h.tickAt(750)
	assert.Equal(t, feedarm.StateHoldUnstick, h.c.State())
	assert.Equal(t, 140, h.feedServo.Last())
	assert.Equal(t, 0, h.feedServo.releases)

	h.tickAt(1250)
	assert.Equal(t, uint32(2), h.c.UnstickCount())
	h.tickAt(3250)
	assert.Equal(t, feedarm.StateMonitoring, h.c.State())
	assert.Equal(t, 80, h.tensionServo.Last(), "original tension restored after the second unstick")
}

func TestControllerSetTensionAngle(t *testing.T) {
	h := newHarness(DefaultConfig())

	assert.Equal(t, float32(100), h.c.SetTensionAngle(100))
	assert.Equal(t, 100, h.tensionServo.Last())

	assert.Equal(t, float32(130), h.c.SetTensionAngle(200))
	assert.Equal(t, 130, h.tensionServo.Last())

	assert.Equal(t, float32(30), h.c.SetTensionAngle(0))
	assert.Equal(t, 30, h.tensionServo.Last())
	assert.Equal(t, float32(30), h.c.TensionAngle())
}

func TestControllerSetTensionDuringUnstick(t *testing.T) {
	h := newHarness(DefaultConfig())
	h.setFeed(40)
	h.tickAt(100)
	require.Equal(t, feedarm.StateHoldUnstick, h.c.State())

	assert.Equal(t, float32(110), h.c.SetTensionAngle(110))
	assert.Equal(t, 30, h.tensionServo.Last(), "tension stays relaxed until the cycle ends")
	assert.Equal(t, float32(110), h.c.TensionAngle())

	h.setFeed(90)
	h.tickAt(600)
	h.tickAt(2600)
	assert.Equal(t, feedarm.StateMonitoring, h.c.State())
	assert.Equal(t, 110, h.tensionServo.Last())
	assert.Equal(t, float32(110), h.c.TensionAngle())
}

func TestControllerUpdateConfig(t *testing.T) {
	h := newHarness(DefaultConfig())
	h.setFeed(50)
	h.tickAt(50)
	assert.Equal(t, feedarm.StateMonitoring, h.c.State())

	cfg := h.c.Config()
	cfg.FeedJamAngle = 55
	h.c.UpdateConfig(cfg)

	h.tickAt(100)
	assert.Equal(t, feedarm.StateHoldUnstick, h.c.State())
}

func TestControllerStatus(t *testing.T) {
	h := newHarness(DefaultConfig())
	h.setFeed(40)
	h.tickAt(100)
	h.tickAt(600)

	s := h.c.Status()
	assert.Equal(t, feedarm.StateCooldown, s.State)
	assert.InDelta(t, 40, s.FeedAngle, 0.1)
	assert.InDelta(t, 80, s.TensionAngle, 0.1)
	assert.Equal(t, float32(80), s.TensionCommand)
	assert.Equal(t, rawFor(40), s.RawFeed)
	assert.Equal(t, rawFor(80), s.RawTension)
	assert.Equal(t, uint32(1), s.UnstickCount)
}

func TestControllerVerbose(t *testing.T) {
	h := newHarness(DefaultConfig())
	h.c.SetVerbose(true)
	assert.True(t, h.c.Verbose())

	h.tickAt(50)
	assert.Contains(t, h.logs, "tick MONITORING feed=90.0° tension=80.0° stall=false")
}
