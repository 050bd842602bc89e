//go:build rp2040 || rp2350

package device

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/servo"

	"github.com/calvinmclean/feedarm/firmware/arm"
)

// Device is the board-level hardware behind the feed arm controller
type Device struct {
	Hardware arm.Hardware
	Clock    arm.Clock
	LED      LED
}

// New configures every peripheral in pins. The reed switch interrupt is live when New returns
func New(pins PinConfig) (Device, error) {
	machine.InitADC()

	feedServo, err := NewServo(pins.FeedServo)
	if err != nil {
		return Device{}, errors.New("error creating feed servo: " + err.Error())
	}

	tensionServo, err := NewServo(pins.TensionServo)
	if err != nil {
		return Device{}, errors.New("error creating tension servo: " + err.Error())
	}

	clock := arm.MonotonicClock()
	pulses := arm.NewPulseCounter(clock)
	err = WatchReed(pins.Reed, pulses)
	if err != nil {
		return Device{}, errors.New("error configuring reed switch: " + err.Error())
	}

	return Device{
		Hardware: arm.Hardware{
			FeedPot:      NewPot(pins.FeedPot),
			TensionPot:   NewPot(pins.TensionPot),
			FeedServo:    feedServo,
			TensionServo: tensionServo,
			Pulses:       pulses,
			Clock:        clock,
		},
		Clock: clock,
		LED:   NewLED(pins.LED),
	}, nil
}

// Servo drives a hobby servo and implements arm.Driver
type Servo struct {
	servo servo.Servo
	cfg   ServoConfig
}

// NewServo sets up the PWM for cfg. The servo stays released until the first SetAngle
func NewServo(cfg ServoConfig) (*Servo, error) {
	s, err := servo.New(cfg.PWM, cfg.Pin)
	if err != nil {
		return nil, err
	}
	s.SetMicroseconds(0)
	return &Servo{servo: s, cfg: cfg}, nil
}

// SetAngle drives the servo to deg
func (s *Servo) SetAngle(deg int) error {
	return s.servo.SetAngleWithMicroseconds(deg, s.cfg.MinPulse, s.cfg.MaxPulse)
}

// Release stops sending pulses so the horn can be back-driven
func (s *Servo) Release() error {
	s.servo.SetMicroseconds(0)
	return nil
}

// Pot reads a potentiometer wiper and implements arm.Sampler
type Pot struct {
	adc machine.ADC
}

// NewPot configures pin as an ADC input. machine.InitADC must be called first
func NewPot(pin machine.Pin) *Pot {
	adc := machine.ADC{Pin: pin}
	adc.Configure(machine.ADCConfig{})
	return &Pot{adc: adc}
}

// Get returns a 12-bit reading. machine.ADC scales everything to 16 bits
func (p *Pot) Get() uint16 {
	return p.adc.Get() >> 4
}

// WatchReed counts falling edges on pin with counter
func WatchReed(pin machine.Pin, counter *arm.PulseCounter) error {
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return pin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		counter.Handle()
	})
}

// LED is the status indicator
type LED struct {
	pin machine.Pin
}

// NewLED configures pin as an output and turns it off
func NewLED(pin machine.Pin) LED {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return LED{pin: pin}
}

// Set turns the LED on or off
func (l LED) Set(on bool) {
	l.pin.Set(on)
}

// Console is the USB serial console
type Console struct{}

func (Console) ReadByte() (byte, error) {
	return machine.Serial.ReadByte()
}

func (Console) Write(b []byte) (int, error) {
	return machine.Serial.Write(b)
}
