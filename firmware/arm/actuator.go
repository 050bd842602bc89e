package arm

import "github.com/calvinmclean/feedarm"

// Driver is a single positional servo output
type Driver interface {
	// SetAngle starts driving the servo to deg
	SetAngle(deg int) error
	// Release stops the drive signal so the servo horn is free to move
	Release() error
}

// Port wraps a Driver with an attach/detach lifecycle. A detached port leaves the arm free to float
// under spring force; writes made while detached are remembered and applied on the next Attach
type Port struct {
	name     string
	drv      Driver
	log      func(string)
	attached bool
	angle    float32
	pending  bool
}

// NewPort creates a detached Port. log receives driver errors
func NewPort(name string, drv Driver, log func(string)) *Port {
	if log == nil {
		log = func(string) {}
	}
	return &Port{name: name, drv: drv, log: log}
}

// Attach starts driving the servo, moving to the last written angle if there is one
func (p *Port) Attach() {
	if p.attached {
		return
	}
	p.attached = true
	if p.pending {
		p.apply()
	}
}

// Detach stops driving the servo
func (p *Port) Detach() {
	if !p.attached {
		return
	}
	p.attached = false
	if err := p.drv.Release(); err != nil {
		p.log("error releasing " + p.name + " servo: " + err.Error())
	}
}

// Write commands angle, clamped to the servo range. It has no physical effect until attached
func (p *Port) Write(angle float32) {
	p.angle = clamp(angle, 0, feedarm.MaxAngle)
	p.pending = true
	if p.attached {
		p.apply()
	}
}

// Attached reports whether the servo is being driven
func (p *Port) Attached() bool {
	return p.attached
}

// Angle returns the last commanded angle
func (p *Port) Angle() float32 {
	return p.angle
}

func (p *Port) apply() {
	if err := p.drv.SetAngle(int(p.angle)); err != nil {
		p.log("error setting " + p.name + " servo angle: " + err.Error())
	}
}
