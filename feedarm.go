package feedarm

import "strings"

// MaxAngle is the usable travel of the feed and tension servos in degrees
const MaxAngle = 160

// State is the feed arm controller state
type State uint8

const (
	// StateMonitoring has the feed servo detached so the arm floats on its spring
	StateMonitoring State = iota
	// StateUnsticking relaxes tension and drives the feed arm to the unstick angle
	StateUnsticking
	// StateHoldUnstick holds the unstick angle for the configured duration
	StateHoldUnstick
	// StateReturning drives the feed arm back to its rest angle
	StateReturning
	// StateCooldown keeps the feed servo at rest before handing the arm back to the spring
	StateCooldown
)

var stateNames = [...]string{
	StateMonitoring:  "MONITORING",
	StateUnsticking:  "UNSTICKING",
	StateHoldUnstick: "HOLD_UNSTICK",
	StateReturning:   "RETURNING",
	StateCooldown:    "COOLDOWN",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Busy is true while an unstick action is driving the feed arm
func (s State) Busy() bool {
	return s == StateUnsticking || s == StateHoldUnstick
}

// ParseState looks up a State by its display name. It is case-insensitive
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if strings.EqualFold(n, name) {
			return State(i), true
		}
	}
	return StateMonitoring, false
}
