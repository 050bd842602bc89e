package feedarm

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// StatusPrefix starts every compact status line written by the firmware
	StatusPrefix = "[status]"
	// LogPrefix starts every controller log line written by the firmware
	LogPrefix = "[feedarm]"
)

// Status is a point-in-time snapshot of everything the controller exposes to the console and UI
type Status struct {
	State          State
	FeedAngle      float32
	TensionAngle   float32
	TensionCommand float32
	RawFeed        uint16
	RawTension     uint16
	Stalled        bool
	PulseRate      float32
	UnstickCount   uint32
}

// Report renders a human-readable multi-line snapshot
func (s Status) Report() string {
	var b strings.Builder
	b.WriteString("=== Feed Arm Status ===\n")
	fmt.Fprintf(&b, "  State:           %s\n", s.State)
	fmt.Fprintf(&b, "  Feed arm angle:  %.0f° (pot raw: %d)\n", s.FeedAngle, s.RawFeed)
	fmt.Fprintf(&b, "  Tension angle:   %.0f° cmd / %.0f° actual (pot raw: %d)\n", s.TensionCommand, s.TensionAngle, s.RawTension)
	fmt.Fprintf(&b, "  Reed rate:       %.1f/sec\n", s.PulseRate)
	fmt.Fprintf(&b, "  Filament stall:  %s\n", yesNo(s.Stalled))
	fmt.Fprintf(&b, "  Unstick count:   %d\n", s.UnstickCount)
	return b.String()
}

// Line renders the compact single-line form that ParseStatusLine reads back
func (s Status) Line() string {
	return fmt.Sprintf("%s state=%s feed=%.1f tension=%.1f cmd=%.1f raw_feed=%d raw_tension=%d stall=%d rate=%.2f unsticks=%d",
		StatusPrefix, s.State, s.FeedAngle, s.TensionAngle, s.TensionCommand,
		s.RawFeed, s.RawTension, boolToInt(s.Stalled), s.PulseRate, s.UnstickCount)
}

// ParseStatusLine parses a line produced by Status.Line. Unknown keys are ignored so older hosts
// keep working with newer firmware
func ParseStatusLine(line string) (Status, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), StatusPrefix)
	if !ok {
		return Status{}, false
	}

	var s Status
	var sawState bool
	for _, field := range strings.Fields(rest) {
		key, val, ok := strings.Cut(field, "=")
		if !ok {
			return Status{}, false
		}

		var err error
		switch key {
		case "state":
			s.State, sawState = ParseState(val)
			if !sawState {
				return Status{}, false
			}
		case "feed":
			s.FeedAngle, err = parseFloat32(val)
		case "tension":
			s.TensionAngle, err = parseFloat32(val)
		case "cmd":
			s.TensionCommand, err = parseFloat32(val)
		case "raw_feed":
			s.RawFeed, err = parseUint16(val)
		case "raw_tension":
			s.RawTension, err = parseUint16(val)
		case "stall":
			s.Stalled = val == "1"
		case "rate":
			s.PulseRate, err = parseFloat32(val)
		case "unsticks":
			var n uint64
			n, err = strconv.ParseUint(val, 10, 32)
			s.UnstickCount = uint32(n)
		}
		if err != nil {
			return Status{}, false
		}
	}

	return s, sawState
}

// ParseTransition parses a controller log line of the form "[feedarm] FROM -> TO"
func ParseTransition(line string) (from, to State, ok bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), LogPrefix)
	if !ok {
		return 0, 0, false
	}
	left, right, ok := strings.Cut(rest, "->")
	if !ok {
		return 0, 0, false
	}

	from, okFrom := ParseState(strings.TrimSpace(left))
	to, okTo := ParseState(strings.TrimSpace(right))
	return from, to, okFrom && okTo
}

func parseFloat32(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	return float32(f), err
}

func parseUint16(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	return uint16(n), err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "no"
}
