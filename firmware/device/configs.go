//go:build rp2040 || rp2350

package device

import (
	"machine"

	"tinygo.org/x/drivers/servo"
)

// ServoConfig has device-level values for setting up a Servo
type ServoConfig struct {
	Pin machine.Pin
	PWM servo.PWM
	// MinPulse and MaxPulse are the pulse widths in microseconds at 0° and 180°
	MinPulse int
	MaxPulse int
}

// PinConfig is the wiring of the feed arm board
type PinConfig struct {
	FeedServo    ServoConfig
	TensionServo ServoConfig
	FeedPot      machine.Pin
	TensionPot   machine.Pin
	// Reed is the guide wheel reed switch. It is pulled up and closes to ground
	Reed machine.Pin
	LED  machine.Pin
}

// DefaultPins returns the Pico wiring used by the reference build
func DefaultPins() PinConfig {
	return PinConfig{
		FeedServo: ServoConfig{
			PWM:      machine.PWM3,
			Pin:      machine.GP22,
			MinPulse: 500,
			MaxPulse: 2500,
		},
		TensionServo: ServoConfig{
			PWM:      machine.PWM2,
			Pin:      machine.GP20,
			MinPulse: 500,
			MaxPulse: 2500,
		},
		FeedPot:    machine.ADC0,
		TensionPot: machine.ADC1,
		Reed:       machine.GP15,
		LED:        machine.LED,
	}
}
