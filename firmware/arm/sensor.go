package arm

import "github.com/calvinmclean/feedarm"

// Sampler reads one raw analog value. Implementations return the 12-bit range used by Calibration
type Sampler interface {
	Get() uint16
}

// AngleSensor reads an arm potentiometer and converts it to degrees
type AngleSensor struct {
	src Sampler
	raw uint16
}

// NewAngleSensor creates an AngleSensor reading from src
func NewAngleSensor(src Sampler) *AngleSensor {
	return &AngleSensor{src: src}
}

// Read averages samples raw reads and maps the result onto [0, 160] using cal
func (s *AngleSensor) Read(cal Calibration, samples uint8) float32 {
	s.raw = s.readSmoothed(samples)
	return MapAngle(s.raw, cal)
}

// Raw returns the averaged raw value from the most recent Read, for calibration
func (s *AngleSensor) Raw() uint16 {
	return s.raw
}

func (s *AngleSensor) readSmoothed(samples uint8) uint16 {
	if samples == 0 {
		samples = 1
	}
	var sum uint32
	for i := uint8(0); i < samples; i++ {
		sum += uint32(s.src.Get())
	}
	return uint16(sum / uint32(samples))
}

// MapAngle linearly maps raw onto degrees using cal. Readings outside the calibration saturate at
// 0 or 160
func MapAngle(raw uint16, cal Calibration) float32 {
	if cal.Max == cal.Min {
		return 0
	}
	angle := (float32(raw) - float32(cal.Min)) / (float32(cal.Max) - float32(cal.Min)) * feedarm.MaxAngle
	return clamp(angle, 0, feedarm.MaxAngle)
}
