package controller

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/calvinmclean/feedarm"
)

// Profile is a set of thresholds for one printer/spool setup. Unset fields keep the device's
// current values
type Profile struct {
	Name         string   `yaml:"name,omitempty"`
	JamAngle     *float32 `yaml:"jam_angle,omitempty"`
	RestAngle    *float32 `yaml:"rest_angle,omitempty"`
	UnstickAngle *float32 `yaml:"unstick_angle,omitempty"`
	TensionAngle *float32 `yaml:"tension_angle,omitempty"`
	HoldMS       *uint32  `yaml:"hold_ms,omitempty"`
	CooldownMS   *uint32  `yaml:"cooldown_ms,omitempty"`
	IntervalMS   *uint32  `yaml:"interval_ms,omitempty"`
}

// LoadProfile reads and validates a YAML profile. Unknown fields are rejected
func LoadProfile(path string) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("error reading profile: %w", err)
	}

	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	err = dec.Decode(&p)
	if err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, fmt.Errorf("error parsing profile %s: %w", path, err)
	}

	err = p.Validate()
	if err != nil {
		return Profile{}, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that every set angle is in the servo range and the interval is not zero
func (p Profile) Validate() error {
	angles := []struct {
		name  string
		value *float32
	}{
		{"jam_angle", p.JamAngle},
		{"rest_angle", p.RestAngle},
		{"unstick_angle", p.UnstickAngle},
		{"tension_angle", p.TensionAngle},
	}
	for _, a := range angles {
		if a.value != nil && (*a.value < 0 || *a.value > feedarm.MaxAngle) {
			return fmt.Errorf("%s %.1f out of range 0-%d", a.name, *a.value, feedarm.MaxAngle)
		}
	}

	if p.JamAngle != nil && p.RestAngle != nil && *p.JamAngle >= *p.RestAngle {
		return errors.New("jam_angle must be below rest_angle")
	}
	if p.IntervalMS != nil && *p.IntervalMS == 0 {
		return errors.New("interval_ms must be greater than 0")
	}
	return nil
}

// Commands returns the console commands that apply p
func (p Profile) Commands() []string {
	var cmds []string
	addAngle := func(flag string, v *float32) {
		if v != nil {
			cmds = append(cmds, flag+" "+strconv.FormatFloat(float64(*v), 'f', -1, 32))
		}
	}
	addMS := func(flag string, v *uint32) {
		if v != nil {
			cmds = append(cmds, flag+" "+strconv.FormatUint(uint64(*v), 10))
		}
	}

	addAngle("r", p.RestAngle)
	addAngle("j", p.JamAngle)
	addAngle("a", p.UnstickAngle)
	addAngle("t", p.TensionAngle)
	addMS("w", p.HoldMS)
	addMS("d", p.CooldownMS)
	addMS("m", p.IntervalMS)
	return cmds
}
