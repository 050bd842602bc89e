package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/calvinmclean/feedarm"
	"github.com/calvinmclean/feedarm/firmware/arm"
)

// maxLineLength bounds the input buffer. Longer lines are discarded
const maxLineLength = 32

var (
	// IdleDelay is how long Run sleeps when the console has no input. The control loop shares the
	// core, so polling must yield
	IdleDelay = 5 * time.Millisecond

	// CalibrationSamples and CalibrationInterval control the raw readings printed by the calibration
	// command while the arms are moved through their range by hand
	CalibrationSamples  = 25
	CalibrationInterval = 200 * time.Millisecond
)

// ErrUnknownCommand is returned for lines that don't start with a known flag
var ErrUnknownCommand = errors.New("unknown command")

type Command struct {
	Flag        byte
	Args        string
	Run         func(Controller, io.Writer, string) error
	Description string
}

// Controller is used to control the feed arm. arm.Runner implements it
type Controller interface {
	TriggerUnstick() (bool, feedarm.State)
	SetTensionAngle(float32) float32
	Config() arm.Config
	UpdateConfig(func(*arm.Config)) arm.Config
	Status() feedarm.Status
	ToggleVerbose() bool
}

// Console is the serial connection commands are read from and answered on
type Console interface {
	ReadByte() (byte, error)
	io.Writer
}

var (
	UnstickCommand = &Command{
		Flag: 'u',
		Run: func(c Controller, w io.Writer, _ string) error {
			ok, state := c.TriggerUnstick()
			if !ok {
				fmt.Fprintf(w, "unstick ignored in %s\n", state)
			}
			return nil
		},
		Description: "Trigger an unstick now. Ignored while an unstick is in progress.",
	}
	TensionCommand = &Command{
		Flag: 't',
		Args: "[angle]",
		Run: func(c Controller, w io.Writer, arg string) error {
			if arg == "" {
				cfg := c.Config()
				fmt.Fprintf(w, "tension=%.0f° (range %.0f-%.0f°)\n", c.Status().TensionCommand, cfg.TensionAngleMin, cfg.TensionAngleMax)
				return nil
			}
			angle, err := parseAngle(arg)
			if err != nil {
				return err
			}
			c.SetTensionAngle(angle)
			return nil
		},
		Description: "Set the tension servo angle, or print it with no argument.",
	}
	JamAngleCommand = angleCommand('j', "jam angle", func(cfg *arm.Config) *float32 { return &cfg.FeedJamAngle },
		"Set the feed arm angle that counts as a jam.")
	RestAngleCommand = angleCommand('r', "rest angle", func(cfg *arm.Config) *float32 { return &cfg.FeedRestAngle },
		"Set the feed arm rest angle.")
	UnstickAngleCommand = angleCommand('a', "unstick angle", func(cfg *arm.Config) *float32 { return &cfg.FeedUnstickAngle },
		"Set the angle the feed servo drives to during an unstick.")
	HoldCommand = durationCommand('w', "hold", false, func(cfg *arm.Config) *time.Duration { return &cfg.UnstickHold },
		"Set how long the unstick angle is held.")
	CooldownCommand = durationCommand('d', "cooldown", false, func(cfg *arm.Config) *time.Duration { return &cfg.UnstickCooldown },
		"Set the cooldown before the feed servo is released.")
	MonitorIntervalCommand = durationCommand('m', "monitor interval", true, func(cfg *arm.Config) *time.Duration { return &cfg.MonitorInterval },
		"Set the control loop interval.")
	CalibrateCommand = &Command{
		Flag: 'c',
		Run: func(c Controller, w io.Writer, _ string) error {
			cfg := c.Config()
			fmt.Fprintf(w, "calibration: feed %d-%d tension %d-%d\n",
				cfg.FeedCalibration.Min, cfg.FeedCalibration.Max,
				cfg.TensionCalibration.Min, cfg.TensionCalibration.Max)
			for i := 0; i < CalibrationSamples; i++ {
				if i > 0 {
					time.Sleep(CalibrationInterval)
				}
				s := c.Status()
				fmt.Fprintf(w, "raw feed=%d (%.0f°) tension=%d (%.0f°)\n", s.RawFeed, s.FeedAngle, s.RawTension, s.TensionAngle)
			}
			return nil
		},
		Description: "Print raw pot readings while the arms are moved by hand.",
	}
	StatusCommand = &Command{
		Flag: 's',
		Run: func(c Controller, w io.Writer, _ string) error {
			cfg := c.Config()
			io.WriteString(w, c.Status().Report())
			fmt.Fprintf(w, "  Thresholds:      jam=%.0f° rest=%.0f° unstick=%.0f°\n", cfg.FeedJamAngle, cfg.FeedRestAngle, cfg.FeedUnstickAngle)
			fmt.Fprintf(w, "  Timing:          hold=%dms cooldown=%dms interval=%dms\n",
				cfg.UnstickHold.Milliseconds(), cfg.UnstickCooldown.Milliseconds(), cfg.MonitorInterval.Milliseconds())
			return nil
		},
		Description: "Print the full status.",
	}
	QueryCommand = &Command{
		Flag: 'q',
		Run: func(c Controller, w io.Writer, _ string) error {
			fmt.Fprintln(w, c.Status().Line())
			return nil
		},
		Description: "Print a one-line machine readable status.",
	}
	VerboseCommand = &Command{
		Flag: 'v',
		Run: func(c Controller, w io.Writer, _ string) error {
			c.ToggleVerbose()
			return nil
		},
		Description: "Toggle per-tick logging.",
	}
	HelpCommand = &Command{
		Flag:        'h',
		Description: "Show all available commands and their descriptions.",
		Run: func(c Controller, w io.Writer, _ string) error {
			fmt.Fprintln(w, "Available Commands:")
			for _, cmd := range commands {
				usage := string(cmd.Flag)
				if cmd.Args != "" {
					usage += " " + cmd.Args
				}
				fmt.Fprintf(w, "%-10s %s\n", usage, cmd.Description)
			}
			return nil
		},
	}
)

var commands = []*Command{
	UnstickCommand,
	TensionCommand,
	JamAngleCommand,
	RestAngleCommand,
	UnstickAngleCommand,
	HoldCommand,
	CooldownCommand,
	MonitorIntervalCommand,
	CalibrateCommand,
	StatusCommand,
	QueryCommand,
	VerboseCommand,
}

var cmdMap = func() map[byte]*Command {
	m := map[byte]*Command{
		HelpCommand.Flag: HelpCommand,
		'?':              HelpCommand,
	}
	for _, cmd := range commands {
		m[cmd.Flag] = cmd
	}
	return m
}()

func angleCommand(flag byte, name string, field func(*arm.Config) *float32, desc string) *Command {
	return &Command{
		Flag: flag,
		Args: "<angle>",
		Run: func(c Controller, w io.Writer, arg string) error {
			angle, err := parseAngle(arg)
			if err != nil {
				return err
			}
			cfg := c.UpdateConfig(func(cfg *arm.Config) {
				*field(cfg) = angle
			})
			fmt.Fprintf(w, "%s=%.0f°\n", name, *field(&cfg))
			return nil
		},
		Description: desc,
	}
}

func durationCommand(flag byte, name string, positive bool, field func(*arm.Config) *time.Duration, desc string) *Command {
	return &Command{
		Flag: flag,
		Args: "<ms>",
		Run: func(c Controller, w io.Writer, arg string) error {
			ms, err := strconv.ParseUint(arg, 10, 32)
			if err != nil {
				return errors.New("invalid milliseconds: " + arg)
			}
			if positive && ms == 0 {
				return errors.New(name + " must be greater than 0")
			}
			cfg := c.UpdateConfig(func(cfg *arm.Config) {
				*field(cfg) = time.Duration(ms) * time.Millisecond
			})
			fmt.Fprintf(w, "%s=%dms\n", name, field(&cfg).Milliseconds())
			return nil
		},
		Description: desc,
	}
}

func parseAngle(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, errors.New("invalid angle: " + s)
	}
	if f < 0 || f > feedarm.MaxAngle {
		return 0, fmt.Errorf("angle %s out of range 0-%d", s, feedarm.MaxAngle)
	}
	return float32(f), nil
}

// Dispatch runs the command on one input line. The first character selects the command and is
// case-insensitive; the rest of the line is its argument. Blank lines are ignored
func Dispatch(c Controller, w io.Writer, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	flag := line[0]
	if 'A' <= flag && flag <= 'Z' {
		flag += 'a' - 'A'
	}
	cmd, ok := cmdMap[flag]
	if !ok {
		return fmt.Errorf("%w: %q (h for help)", ErrUnknownCommand, line[:1])
	}
	return cmd.Run(c, w, strings.TrimSpace(line[1:]))
}

// Run reads newline-terminated commands from con until ctx is done or con returns io.EOF
func Run(ctx context.Context, c Controller, con Console) {
	buf := make([]byte, 0, maxLineLength)
	overflow := false

	for ctx.Err() == nil {
		b, err := con.ReadByte()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			time.Sleep(IdleDelay)
			continue
		}

		if b != '\n' && b != '\r' {
			if len(buf) == maxLineLength {
				overflow = true
				continue
			}
			buf = append(buf, b)
			continue
		}

		if overflow {
			fmt.Fprintln(con, "error: line too long")
		} else if err := Dispatch(c, con, string(buf)); err != nil {
			fmt.Fprintln(con, "error:", err.Error())
		}
		buf = buf[:0]
		overflow = false
	}
}
