package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/calvinmclean/feedarm/controller"
	"github.com/calvinmclean/feedarm/ui"
)

const defaultUIPoll = time.Second

func main() {
	cfg := controller.ConfigFromEnv()
	flag.StringVar(&cfg.SerialPort, "port", cfg.SerialPort, "Serial port of the feed arm controller. Use \"None\" to run without a device")
	flag.StringVar(&cfg.BaudRate, "baud", cfg.BaudRate, "Serial baud rate")
	flag.StringVar(&cfg.Profile, "profile", cfg.Profile, "YAML threshold profile applied on connect")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: error, warn, info, or debug")
	flag.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "Request a status line at this interval. 0 disables polling")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if os.Getenv("ENABLE_UI") == "true" {
		runUI(ctx, cfg)
		return
	}

	runCLI(ctx, cfg)
}

func runUI(ctx context.Context, cfg controller.Config) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultUIPoll
	}

	feedArmUI := ui.NewFeedArmUI()
	feedArmUI.Run(ctx, &cfg, func(ctx context.Context, cfg controller.Config, out io.Writer) (io.Writer, error) {
		c, err := controller.New(cfg)
		if err != nil {
			return nil, err
		}

		r, w := io.Pipe()

		// read from Stdin also
		go func() {
			io.Copy(w, os.Stdin)
		}()

		go func() {
			defer c.Close()
			err := c.Run(ctx, r, io.MultiWriter(os.Stdout, out))
			if err != nil {
				panic(err)
			}
			cancel()
		}()

		return w, nil
	})
}

func runCLI(ctx context.Context, cfg controller.Config) {
	c, err := controller.New(cfg)
	if err != nil {
		panic(err)
	}
	defer c.Close()

	err = c.Run(ctx, os.Stdin, os.Stdout)
	if err != nil {
		panic(err)
	}
}
