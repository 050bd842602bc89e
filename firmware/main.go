//go:build rp2040 || rp2350

package main

import (
	"context"
	"time"

	"github.com/calvinmclean/feedarm/firmware/arm"
	"github.com/calvinmclean/feedarm/firmware/commands"
	"github.com/calvinmclean/feedarm/firmware/device"
)

func main() {
	// Give the USB console a moment to enumerate so the init lines are visible
	time.Sleep(2 * time.Second)

	d, err := device.New(device.DefaultPins())
	if err != nil {
		panic(err)
	}

	c := arm.New(arm.DefaultConfig(), d.Hardware)
	r := arm.NewRunner(c, arm.OnTick(func(c *arm.Controller) {
		d.LED.Set(arm.IndicatorLevel(c.State(), c.FilamentStalled(), d.Clock()))
	}))

	println("feed arm controller ready. send 'h' for commands")

	ctx := context.Background()
	go commands.Run(ctx, r, device.Console{})
	r.Run(ctx)
}
