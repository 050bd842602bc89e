package ui

import (
	"image/color"

	"github.com/calvinmclean/feedarm"
)

var (
	colorMonitoring = color.RGBA{R: 0, G: 128, B: 0, A: 255}
	colorBusy       = color.RGBA{R: 200, G: 120, B: 0, A: 255}
	colorCooldown   = color.RGBA{R: 30, G: 90, B: 200, A: 255}
	colorStalled    = color.RGBA{R: 139, G: 0, B: 0, A: 255}
	colorUnknown    = color.Gray{Y: 128}
)

// stateColor picks the color of the state banner. A stall while monitoring overrides the state
// color since it usually comes right before a jam
func stateColor(s feedarm.State, stalled bool) color.Color {
	switch {
	case s == feedarm.StateMonitoring && stalled:
		return colorStalled
	case s == feedarm.StateMonitoring:
		return colorMonitoring
	case s.Busy(), s == feedarm.StateReturning:
		return colorBusy
	case s == feedarm.StateCooldown:
		return colorCooldown
	default:
		return colorUnknown
	}
}

// stateText is the banner text for s
func stateText(s feedarm.State, stalled bool) string {
	if s == feedarm.StateMonitoring && stalled {
		return s.String() + " (STALL)"
	}
	return s.String()
}
