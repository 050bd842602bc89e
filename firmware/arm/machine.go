package arm

import "github.com/calvinmclean/feedarm"

// secondaryJamMargin is how far below rest the arm must sag before a stall counts as a jam
const secondaryJamMargin = 15

// Effects is a set of actions the Controller must perform after a transition
type Effects uint16

const (
	// EffectSaveTension remembers the commanded tension angle for the restore at the end of the cycle
	EffectSaveTension Effects = 1 << iota
	// EffectRelaxTension drives the tension servo to its minimum angle
	EffectRelaxTension
	// EffectAttachFeed starts driving the feed servo
	EffectAttachFeed
	// EffectDriveUnstick commands the feed servo to the unstick angle
	EffectDriveUnstick
	// EffectDriveRest commands the feed servo to the rest angle
	EffectDriveRest
	// EffectCountUnstick increments the completed unstick counter
	EffectCountUnstick
	// EffectDetachFeed releases the feed servo so the arm floats
	EffectDetachFeed
	// EffectRestoreTension drives the tension servo back to the saved angle
	EffectRestoreTension
	// EffectResetPulses resets the pulse counter so the unstick doesn't look like a stall
	EffectResetPulses
)

// Has reports whether all of e2 are set in e
func (e Effects) Has(e2 Effects) bool {
	return e&e2 == e2
}

// Inputs are the readings a tick is evaluated against
type Inputs struct {
	Now          uint32
	FeedAngle    float32
	Stalled      bool
	FeedAttached bool
}

// Transition is a single state change
type Transition struct {
	From, To feedarm.State
}

// Outcome describes what happened during one call to Machine.Next
type Outcome struct {
	Effects     Effects
	Transitions [2]Transition
	N           int
}

func (o *Outcome) add(from, to feedarm.State) {
	o.Transitions[o.N] = Transition{From: from, To: to}
	o.N++
}

// Machine is the feed arm state together with the time it was entered
type Machine struct {
	State     feedarm.State
	EnteredAt uint32
}

func (m Machine) enter(s feedarm.State, now uint32, o *Outcome) Machine {
	o.add(m.State, s)
	return Machine{State: s, EnteredAt: now}
}

// Elapsed returns milliseconds spent in the current state
func (m Machine) Elapsed(now uint32) uint32 {
	return now - m.EnteredAt
}

// Next evaluates one tick. UNSTICKING and RETURNING have no exit condition, so they resolve in the
// tick they are entered
func (m Machine) Next(cfg Config, in Inputs) (Machine, Outcome) {
	var o Outcome

	switch m.State {
	case feedarm.StateMonitoring:
		if !JamDetected(cfg, in.FeedAngle, in.Stalled) {
			return m, o
		}
		m = m.enter(feedarm.StateUnsticking, in.Now, &o)
		m = m.unstick(in, &o)

	case feedarm.StateUnsticking:
		m = m.unstick(in, &o)

	case feedarm.StateHoldUnstick:
		if m.Elapsed(in.Now) >= millis(cfg.UnstickHold) {
			m = m.enter(feedarm.StateReturning, in.Now, &o)
			m = m.ret(in, &o)
		}

	case feedarm.StateReturning:
		m = m.ret(in, &o)

	case feedarm.StateCooldown:
		if m.Elapsed(in.Now) >= millis(cfg.UnstickCooldown) {
			o.Effects |= EffectDetachFeed | EffectRestoreTension | EffectResetPulses
			m = m.enter(feedarm.StateMonitoring, in.Now, &o)
		}
	}

	return m, o
}

// unstick runs the UNSTICKING entry actions. When re-triggered from COOLDOWN the feed servo is still
// attached and tension is already relaxed, so the saved tension must not be overwritten
func (m Machine) unstick(in Inputs, o *Outcome) Machine {
	if !in.FeedAttached {
		o.Effects |= EffectSaveTension | EffectRelaxTension | EffectAttachFeed
	}
	o.Effects |= EffectDriveUnstick
	return m.enter(feedarm.StateHoldUnstick, in.Now, o)
}

func (m Machine) ret(in Inputs, o *Outcome) Machine {
	o.Effects |= EffectDriveRest | EffectCountUnstick
	return m.enter(feedarm.StateCooldown, in.Now, o)
}

// Trigger forces an unstick from MONITORING or COOLDOWN. It reports false and leaves m unchanged in
// any other state
func (m Machine) Trigger(now uint32) (Machine, bool) {
	if m.State != feedarm.StateMonitoring && m.State != feedarm.StateCooldown {
		return m, false
	}
	return Machine{State: feedarm.StateUnsticking, EnteredAt: now}, true
}

// JamDetected reports a jam when the arm is pulled to or past the jam angle, or when filament has
// stalled and the arm has sagged well below rest. The second case catches jams that build slowly
func JamDetected(cfg Config, feedAngle float32, stalled bool) bool {
	if feedAngle <= cfg.FeedJamAngle {
		return true
	}
	return stalled && feedAngle < cfg.FeedRestAngle-secondaryJamMargin
}
