package ui

import (
	"fmt"
	"io"
	"time"
)

// commandWriter turns UI actions into console commands for the device
type commandWriter struct {
	writer           io.Writer
	lastUnstickTimer *elapsedTimer
}

func (c *commandWriter) Unstick() {
	c.lastUnstickTimer.Set(time.Now())
	fmt.Fprintln(c.writer, "u")
}

func (c *commandWriter) SetTension(value float64) {
	fmt.Fprintf(c.writer, "t %.0f\n", value)
}

func (c *commandWriter) Status() {
	fmt.Fprintln(c.writer, "s")
}

func (c *commandWriter) Calibrate() {
	fmt.Fprintln(c.writer, "c")
}

func (c *commandWriter) Verbose() {
	fmt.Fprintln(c.writer, "v")
}
