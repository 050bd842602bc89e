package arm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calvinmclean/feedarm"
)

func TestJamDetected(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		angle    float32
		stalled  bool
		expected bool
	}{
		{"AtJamAngle", 45, false, true},
		{"PastJamAngle", 40, false, true},
		{"AboveJamAngle", 46, false, false},
		{"AtRest", 90, false, false},
		{"StalledAndSagging", 70, true, true},
		{"StalledAtSecondaryThreshold", 75, true, false},
		{"StalledNearRest", 80, true, false},
		{"SaggingWithoutStall", 70, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, JamDetected(cfg, tt.angle, tt.stalled))
		})
	}
}

func transitions(o Outcome) []Transition {
	return o.Transitions[:o.N]
}

func TestMachineFullCycle(t *testing.T) {
	cfg := DefaultConfig()
	m := Machine{State: feedarm.StateMonitoring}

	t.Run("NoJam", func(t *testing.T) {
		next, o := m.Next(cfg, Inputs{Now: 100, FeedAngle: 90})
		assert.Equal(t, m, next)
		assert.Zero(t, o.N)
		assert.Zero(t, o.Effects)
	})

	m, o := m.Next(cfg, Inputs{Now: 100, FeedAngle: 40})
	assert.Equal(t, Machine{State: feedarm.StateHoldUnstick, EnteredAt: 100}, m)
	assert.Equal(t, []Transition{
		{feedarm.StateMonitoring, feedarm.StateUnsticking},
		{feedarm.StateUnsticking, feedarm.StateHoldUnstick},
	}, transitions(o))
	assert.True(t, o.Effects.Has(EffectSaveTension|EffectRelaxTension|EffectAttachFeed|EffectDriveUnstick))
	assert.False(t, o.Effects.Has(EffectDriveRest))

	m, o = m.Next(cfg, Inputs{Now: 599, FeedAttached: true})
	assert.Equal(t, feedarm.StateHoldUnstick, m.State)
	assert.Zero(t, o.N)

	m, o = m.Next(cfg, Inputs{Now: 600, FeedAttached: true})
	assert.Equal(t, Machine{State: feedarm.StateCooldown, EnteredAt: 600}, m)
	assert.Equal(t, []Transition{
		{feedarm.StateHoldUnstick, feedarm.StateReturning},
		{feedarm.StateReturning, feedarm.StateCooldown},
	}, transitions(o))
	assert.Equal(t, EffectDriveRest|EffectCountUnstick, o.Effects)

	m, o = m.Next(cfg, Inputs{Now: 2599, FeedAttached: true})
	assert.Equal(t, feedarm.StateCooldown, m.State)
	assert.Zero(t, o.Effects)

	m, o = m.Next(cfg, Inputs{Now: 2600, FeedAttached: true})
	assert.Equal(t, Machine{State: feedarm.StateMonitoring, EnteredAt: 2600}, m)
	assert.Equal(t, []Transition{{feedarm.StateCooldown, feedarm.StateMonitoring}}, transitions(o))
	assert.Equal(t, EffectDetachFeed|EffectRestoreTension|EffectResetPulses, o.Effects)
}

func TestMachineCooldownIgnoresJam(t *testing.T) {
	cfg := DefaultConfig()
	m := Machine{State: feedarm.StateCooldown, EnteredAt: 0}

	next, o := m.Next(cfg, Inputs{Now: 100, FeedAngle: 10, Stalled: true, FeedAttached: true})
	assert.Equal(t, m, next)
	assert.Zero(t, o.N)
}

func TestMachineTrigger(t *testing.T) {
	tests := []struct {
		state feedarm.State
		ok    bool
	}{
		{feedarm.StateMonitoring, true},
		{feedarm.StateCooldown, true},
		{feedarm.StateUnsticking, false},
		{feedarm.StateHoldUnstick, false},
		{feedarm.StateReturning, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			m := Machine{State: tt.state, EnteredAt: 7}
			next, ok := m.Trigger(50)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, Machine{State: feedarm.StateUnsticking, EnteredAt: 50}, next)
			} else {
				assert.Equal(t, m, next)
			}
		})
	}
}

func TestMachineRetriggerKeepsSavedTension(t *testing.T) {
	cfg := DefaultConfig()
	m, _ := Machine{State: feedarm.StateCooldown}.Trigger(100)

	m, o := m.Next(cfg, Inputs{Now: 150, FeedAngle: 90, FeedAttached: true})
	assert.Equal(t, feedarm.StateHoldUnstick, m.State)
	assert.Equal(t, EffectDriveUnstick, o.Effects)
	assert.Equal(t, []Transition{{feedarm.StateUnsticking, feedarm.StateHoldUnstick}}, transitions(o))
}

func TestMachineZeroDurations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UnstickHold = 0
	cfg.UnstickCooldown = 0

	m, _ := Machine{State: feedarm.StateMonitoring}.Next(cfg, Inputs{Now: 10, FeedAngle: 0})
	m, _ = m.Next(cfg, Inputs{Now: 10, FeedAttached: true})
	assert.Equal(t, feedarm.StateCooldown, m.State)
	m, _ = m.Next(cfg, Inputs{Now: 10, FeedAttached: true})
	assert.Equal(t, feedarm.StateMonitoring, m.State)
}
