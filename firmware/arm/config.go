package arm

import (
	"time"

	"golang.org/x/exp/constraints"
)

// Calibration maps raw ADC readings onto the 0-160° range of an arm potentiometer
type Calibration struct {
	// Min is the raw reading at 0°
	Min uint16
	// Max is the raw reading at 160°
	Max uint16
}

// Config has every threshold and timing used by the Controller. All angles are in degrees.
type Config struct {
	// FeedRestAngle is where the spring holds the arm under normal filament tension
	FeedRestAngle float32
	// FeedJamAngle is the threshold the arm gets pulled down to when filament is stuck on the spool.
	// Lower angle means more tension pulling the arm toward the spool
	FeedJamAngle float32
	// FeedUnstickAngle is where the feed servo drives to yank filament free
	FeedUnstickAngle float32
	UnstickHold      time.Duration
	UnstickCooldown  time.Duration

	// TensionAngle sets the spring's effective length. Higher angle is more spring compression
	TensionAngle    float32
	TensionAngleMin float32
	TensionAngleMax float32

	FeedCalibration    Calibration
	TensionCalibration Calibration
	// PotSamples is the number of ADC reads averaged per angle reading
	PotSamples uint8

	// StallTimeout is how long without a reed pulse before filament counts as stalled
	StallTimeout time.Duration
	// MinPulseRate is the pulses/sec below which feed is reported as slow
	MinPulseRate float32

	MonitorInterval time.Duration
	StatusInterval  time.Duration
}

// DefaultConfig returns the stock configuration for a 160° servo build
func DefaultConfig() Config {
	return Config{
		FeedRestAngle:    90,
		FeedJamAngle:     45,
		FeedUnstickAngle: 140,
		UnstickHold:      500 * time.Millisecond,
		UnstickCooldown:  2000 * time.Millisecond,

		TensionAngle:    80,
		TensionAngleMin: 30,
		TensionAngleMax: 130,

		FeedCalibration:    Calibration{Min: 200, Max: 3800},
		TensionCalibration: Calibration{Min: 200, Max: 3800},
		PotSamples:         8,

		StallTimeout: 3000 * time.Millisecond,
		MinPulseRate: 0.5,

		MonitorInterval: 50 * time.Millisecond,
		StatusInterval:  5 * time.Second,
	}
}

// ClampTension limits angle to the configured tension range
func (c Config) ClampTension(angle float32) float32 {
	return clamp(angle, c.TensionAngleMin, c.TensionAngleMax)
}

// millis converts a duration to the controller's millisecond clock units
func millis(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(d.Milliseconds())
}

// clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
