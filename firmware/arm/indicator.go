package arm

import "github.com/calvinmclean/feedarm"

// IndicatorLevel returns the status LED level for a state at nowMs.
// MONITORING blinks slowly as a heartbeat, or fast when filament is stalled. An unstick in progress
// blinks rapidly. Everything else is dark.
func IndicatorLevel(state feedarm.State, stalled bool, nowMs uint32) bool {
	switch {
	case state == feedarm.StateMonitoring && stalled:
		return (nowMs/250)%2 == 0
	case state == feedarm.StateMonitoring:
		return (nowMs/1000)%2 == 0
	case state.Busy():
		return (nowMs/100)%2 == 0
	default:
		return false
	}
}
