package arm

import (
	"context"
	"fmt"
	"time"

	"github.com/calvinmclean/feedarm"
)

// Runner owns a Controller and runs its control loop. Other goroutines, like the serial command
// reader, reach the Controller through Do so that every access happens between ticks
type Runner struct {
	c      *Controller
	ops    chan func(*Controller)
	onTick func(*Controller)
	status func(string)

	lastStatus uint32
}

// RunnerOption customizes a Runner
type RunnerOption func(*Runner)

// OnTick registers a function called after every Update, for example to drive the status LED
func OnTick(fn func(*Controller)) RunnerOption {
	return func(r *Runner) {
		r.onTick = fn
	}
}

// WithStatusOutput sends the periodic status lines to out. Without it they go to the Controller's log
func WithStatusOutput(out func(string)) RunnerOption {
	return func(r *Runner) {
		r.status = out
	}
}

// NewRunner creates a Runner for c
func NewRunner(c *Controller, opts ...RunnerOption) *Runner {
	r := &Runner{
		c:   c,
		ops: make(chan func(*Controller)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.status == nil {
		r.status = c.log
	}
	r.lastStatus = c.clock()
	return r
}

// Run updates the Controller every MonitorInterval until ctx is done
func (r *Runner) Run(ctx context.Context) {
	interval := tickInterval(r.c.Config())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case op := <-r.ops:
			op(r.c)
			if next := tickInterval(r.c.Config()); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Tick runs a single Update along with the periodic status line and the OnTick hook. Run calls it on
// every tick
func (r *Runner) Tick() {
	r.c.Update()

	now := r.c.clock()
	if now-r.lastStatus >= millis(r.c.Config().StatusInterval) {
		r.lastStatus = now
		r.status(PeriodicStatus(r.c))
	}

	if r.onTick != nil {
		r.onTick(r.c)
	}
}

// Do runs fn on the control loop and waits for it to finish. It returns false without running fn if
// ctx is done first
func (r *Runner) Do(ctx context.Context, fn func(*Controller)) bool {
	done := make(chan struct{})
	select {
	case r.ops <- func(c *Controller) {
		fn(c)
		close(done)
	}:
	case <-ctx.Done():
		return false
	}
	<-done
	return true
}

func tickInterval(cfg Config) time.Duration {
	if cfg.MonitorInterval <= 0 {
		return DefaultConfig().MonitorInterval
	}
	return cfg.MonitorInterval
}

// PeriodicStatus formats the status line printed while the controller runs. Filament that is moving
// slower than MinPulseRate is marked SLOW, and filament that has stopped is marked STALL
func PeriodicStatus(c *Controller) string {
	line := fmt.Sprintf("state=%s feed=%.0f° tension=%.0f° cmd=%.0f° unsticks=%d",
		c.State(), c.FeedArmAngle(), c.TensionArmAngle(), c.TensionAngle(), c.UnstickCount())

	if c.Pulses() == nil {
		return line
	}

	line += fmt.Sprintf(" pulses=%d rate=%.2f/s last=%dms",
		c.Pulses().Count(), c.PulseRate(), c.SinceLastPulse().Milliseconds())
	switch {
	case c.FilamentStalled():
		line += " STALL"
	case c.FeedSlow():
		line += " SLOW"
	}
	return line
}

// The following methods let a Runner be used wherever the console needs a Controller. Each one is
// executed on the control loop with context.Background, so they must not be called after Run returns

// TriggerUnstick starts a manual unstick. It returns false and the current state if it was ignored
func (r *Runner) TriggerUnstick() (bool, feedarm.State) {
	var (
		ok    bool
		state feedarm.State
	)
	r.Do(context.Background(), func(c *Controller) {
		ok = c.TriggerUnstick()
		state = c.State()
	})
	return ok, state
}

// SetTensionAngle sets the commanded tension and returns the clamped value
func (r *Runner) SetTensionAngle(angle float32) float32 {
	var out float32
	r.Do(context.Background(), func(c *Controller) {
		out = c.SetTensionAngle(angle)
	})
	return out
}

// Config returns a copy of the current configuration
func (r *Runner) Config() Config {
	var cfg Config
	r.Do(context.Background(), func(c *Controller) {
		cfg = c.Config()
	})
	return cfg
}

// UpdateConfig edits the configuration in place on the control loop
func (r *Runner) UpdateConfig(fn func(*Config)) Config {
	var cfg Config
	r.Do(context.Background(), func(c *Controller) {
		cfg = c.Config()
		fn(&cfg)
		c.UpdateConfig(cfg)
	})
	return cfg
}

// Status returns a snapshot of the controller
func (r *Runner) Status() feedarm.Status {
	var s feedarm.Status
	r.Do(context.Background(), func(c *Controller) {
		s = c.Status()
	})
	return s
}

// ToggleVerbose flips per-tick logging and returns the new setting
func (r *Runner) ToggleVerbose() bool {
	var v bool
	r.Do(context.Background(), func(c *Controller) {
		v = !c.Verbose()
		c.SetVerbose(v)
	})
	return v
}
