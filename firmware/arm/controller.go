package arm

import (
	"fmt"
	"time"

	"github.com/calvinmclean/feedarm"
)

// pulseSampleInterval is how often the reed switch rate and stall status are refreshed
const pulseSampleInterval = 1000

// Hardware is the set of platform resources the Controller drives
type Hardware struct {
	FeedPot      Sampler
	TensionPot   Sampler
	FeedServo    Driver
	TensionServo Driver
	// Pulses is optional. Without it filament is never reported as stalled
	Pulses *PulseCounter
	// Clock defaults to MonotonicClock
	Clock Clock
}

// Option customizes a Controller
type Option func(*Controller)

// WithLogger sends controller log lines to log instead of the console
func WithLogger(log func(string)) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// Controller runs the feed arm state machine. It is not safe for concurrent use; Runner serializes
// access to it
type Controller struct {
	cfg   Config
	clock Clock
	log   func(string)

	feedPot    *AngleSensor
	tensionPot *AngleSensor
	pulses     *PulseCounter
	feed       *Port
	tension    *Port

	fsm Machine

	feedAngle       float32
	tensionArmAngle float32
	// tensionAngle is the commanded tension. It is not changed when tension is relaxed for an unstick
	tensionAngle float32
	savedTension float32
	unstickCount uint32
	stalled      bool

	lastPulseSample uint32
	verbose         bool
}

// New creates a Controller in MONITORING with the tension servo holding cfg.TensionAngle and the
// feed servo detached
func New(cfg Config, hw Hardware, opts ...Option) *Controller {
	if hw.Clock == nil {
		hw.Clock = MonotonicClock()
	}

	c := &Controller{
		cfg:        cfg,
		clock:      hw.Clock,
		log:        consoleLog,
		feedPot:    NewAngleSensor(hw.FeedPot),
		tensionPot: NewAngleSensor(hw.TensionPot),
		pulses:     hw.Pulses,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.feed = NewPort("feed", hw.FeedServo, c.log)
	c.tension = NewPort("tension", hw.TensionServo, c.log)

	// The tension servo stays attached and holds its angle while printing
	c.tensionAngle = cfg.ClampTension(cfg.TensionAngle)
	c.savedTension = c.tensionAngle
	c.tension.Write(c.tensionAngle)
	c.tension.Attach()

	now := c.clock()
	c.fsm = Machine{State: feedarm.StateMonitoring, EnteredAt: now}
	c.lastPulseSample = now

	c.readAngles()

	c.logf("init. feed pot=%.0f° tension pot=%.0f°", c.feedAngle, c.tensionArmAngle)
	c.logf("jam threshold=%.0f° unstick=%.0f° tension cmd=%.0f°", cfg.FeedJamAngle, cfg.FeedUnstickAngle, c.tensionAngle)
	c.logf("feed servo DETACHED (arm floating with spring)")

	return c
}

func consoleLog(msg string) {
	println(feedarm.LogPrefix, msg)
}

func (c *Controller) logf(format string, args ...any) {
	c.log(fmt.Sprintf(format, args...))
}

// Update runs one tick: read sensors, evaluate the state machine and drive the servos
func (c *Controller) Update() {
	now := c.clock()

	// Pots are always read so the actual arm position is known regardless of servo state
	c.readAngles()

	if now-c.lastPulseSample >= pulseSampleInterval {
		if c.pulses != nil {
			c.pulses.Sample()
			c.stalled = c.pulses.Stalled(c.cfg.StallTimeout)
		}
		c.lastPulseSample = now
	}

	if c.verbose {
		c.logf("tick %s feed=%.1f° tension=%.1f° stall=%t", c.fsm.State, c.feedAngle, c.tensionArmAngle, c.stalled)
	}

	prev := c.fsm.State
	next, o := c.fsm.Next(c.cfg, Inputs{
		Now:          now,
		FeedAngle:    c.feedAngle,
		Stalled:      c.stalled,
		FeedAttached: c.feed.Attached(),
	})
	if prev == feedarm.StateMonitoring && o.N > 0 {
		c.logf("JAM! arm angle=%.0f° (threshold=%.0f°) stall=%s", c.feedAngle, c.cfg.FeedJamAngle, yesNo(c.stalled))
	}

	c.fsm = next
	for _, t := range o.Transitions[:o.N] {
		c.logTransition(t.From, t.To)
	}
	c.apply(o.Effects)
}

func (c *Controller) apply(fx Effects) {
	if fx.Has(EffectSaveTension) {
		c.savedTension = c.tensionAngle
	}
	if fx.Has(EffectRelaxTension) {
		// Tension is relaxed before the feed servo engages
		c.tension.Write(c.cfg.TensionAngleMin)
		c.logf("tension relaxed: %.0f° -> %.0f° (min)", c.savedTension, c.cfg.TensionAngleMin)
	}
	if fx.Has(EffectDriveUnstick) {
		c.feed.Write(c.cfg.FeedUnstickAngle)
	}
	if fx.Has(EffectAttachFeed) {
		c.feed.Attach()
		c.logf("servo ATTACHED, driving to unstick angle %.0f°", c.cfg.FeedUnstickAngle)
	}
	if fx.Has(EffectDriveRest) {
		c.feed.Write(c.cfg.FeedRestAngle)
	}
	if fx.Has(EffectCountUnstick) {
		c.unstickCount++
		c.logf("unstick #%d complete. returning to %.0f°", c.unstickCount, c.cfg.FeedRestAngle)
	}
	if fx.Has(EffectDetachFeed) {
		c.feed.Detach()
		c.logf("servo DETACHED, back to monitoring")
	}
	if fx.Has(EffectRestoreTension) {
		c.tensionAngle = c.savedTension
		c.tension.Write(c.tensionAngle)
		c.logf("tension restored to %.0f°", c.tensionAngle)
	}
	if fx.Has(EffectResetPulses) {
		if c.pulses != nil {
			c.pulses.Reset()
		}
		c.stalled = false
	}
}

func (c *Controller) logTransition(from, to feedarm.State) {
	if from != to {
		c.logf("%s -> %s", from, to)
	}
}

func (c *Controller) readAngles() {
	c.feedAngle = c.feedPot.Read(c.cfg.FeedCalibration, c.cfg.PotSamples)
	c.tensionArmAngle = c.tensionPot.Read(c.cfg.TensionCalibration, c.cfg.PotSamples)
}

// TriggerUnstick manually starts an unstick action. It is ignored unless the controller is in
// MONITORING or COOLDOWN; the action itself starts on the next Update
func (c *Controller) TriggerUnstick() bool {
	next, ok := c.fsm.Trigger(c.clock())
	if !ok {
		return false
	}
	c.logf("manual unstick triggered")
	c.logTransition(c.fsm.State, next.State)
	c.fsm = next
	return true
}

// SetTensionAngle adjusts the tension servo for spring calibration and returns the clamped angle.
// While an unstick cycle has tension relaxed, the new angle replaces the saved one and is applied
// when the cycle restores tension
func (c *Controller) SetTensionAngle(angle float32) float32 {
	angle = c.cfg.ClampTension(angle)
	c.tensionAngle = angle

	if c.feed.Attached() {
		c.savedTension = angle
		c.logf("tension set to %.0f° (applied after unstick)", angle)
		return angle
	}

	c.tension.Write(angle)
	c.logf("tension set to %.0f°", angle)
	return angle
}

// UpdateConfig replaces the configuration. It takes effect on the next Update
func (c *Controller) UpdateConfig(cfg Config) {
	c.cfg = cfg
}

// SetVerbose enables per-tick logging
func (c *Controller) SetVerbose(v bool) {
	c.verbose = v
	if v {
		c.logf("verbose ON")
	} else {
		c.logf("verbose OFF")
	}
}

func (c *Controller) Config() Config             { return c.cfg }
func (c *Controller) State() feedarm.State       { return c.fsm.State }
func (c *Controller) FeedArmAngle() float32      { return c.feedAngle }
func (c *Controller) TensionArmAngle() float32   { return c.tensionArmAngle }
func (c *Controller) TensionAngle() float32      { return c.tensionAngle }
func (c *Controller) RawFeed() uint16            { return c.feedPot.Raw() }
func (c *Controller) RawTension() uint16         { return c.tensionPot.Raw() }
func (c *Controller) FilamentStalled() bool      { return c.stalled }
func (c *Controller) UnstickCount() uint32       { return c.unstickCount }
func (c *Controller) FeedAttached() bool         { return c.feed.Attached() }
func (c *Controller) FeedCommandAngle() float32  { return c.feed.Angle() }
func (c *Controller) TensionServoAngle() float32 { return c.tension.Angle() }
func (c *Controller) Pulses() *PulseCounter      { return c.pulses }
func (c *Controller) Verbose() bool              { return c.verbose }

// PulseRate returns pulses/sec, or 0 without a reed switch
func (c *Controller) PulseRate() float32 {
	if c.pulses == nil {
		return 0
	}
	return c.pulses.Rate()
}

// FeedSlow is true when pulses are arriving but slower than the configured minimum rate
func (c *Controller) FeedSlow() bool {
	return c.pulses != nil && !c.stalled && c.pulses.Count() > 0 && c.pulses.Rate() < c.cfg.MinPulseRate
}

// Status returns a snapshot for the console and UI
func (c *Controller) Status() feedarm.Status {
	return feedarm.Status{
		State:          c.fsm.State,
		FeedAngle:      c.feedAngle,
		TensionAngle:   c.tensionArmAngle,
		TensionCommand: c.tensionAngle,
		RawFeed:        c.feedPot.Raw(),
		RawTension:     c.tensionPot.Raw(),
		Stalled:        c.stalled,
		PulseRate:      c.PulseRate(),
		UnstickCount:   c.unstickCount,
	}
}

// SinceLastPulse returns the time since the last reed pulse, or 0 without a reed switch
func (c *Controller) SinceLastPulse() time.Duration {
	if c.pulses == nil {
		return 0
	}
	return c.pulses.SinceLastPulse()
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "no"
}
