package controller

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config has everything needed to connect to the feed arm controller
type Config struct {
	// SerialPort is the device path. SerialPortNone runs without a device, and an empty value picks
	// the first USB serial port
	SerialPort string
	BaudRate   string
	// Profile is an optional YAML file of thresholds pushed to the device on connect
	Profile  string
	LogLevel string
	// PollInterval is how often a one-line status is requested. Zero disables polling
	PollInterval time.Duration
}

// ConfigFromEnv reads the Config from FEEDARM_* environment variables
func ConfigFromEnv() Config {
	cfg := Config{
		SerialPort: os.Getenv("FEEDARM_SERIAL_PORT"),
		BaudRate:   os.Getenv("FEEDARM_BAUD_RATE"),
		Profile:    os.Getenv("FEEDARM_PROFILE"),
		LogLevel:   os.Getenv("FEEDARM_LOG_LEVEL"),
	}
	if cfg.BaudRate == "" {
		cfg.BaudRate = "115200"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if poll, err := time.ParseDuration(os.Getenv("FEEDARM_POLL_INTERVAL")); err == nil {
		cfg.PollInterval = poll
	}
	return cfg
}

func (c Config) baudRate() (int, error) {
	baud, err := strconv.Atoi(c.BaudRate)
	if err != nil || baud <= 0 {
		return 0, fmt.Errorf("invalid baud rate %q", c.BaudRate)
	}
	return baud, nil
}

// NewLogger creates a text slog.Logger writing to w at the named level
func NewLogger(level string, w io.Writer) (*slog.Logger, error) {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "error":
		slogLevel = slog.LevelError
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "", "info":
		slogLevel = slog.LevelInfo
	case "debug":
		slogLevel = slog.LevelDebug
	default:
		return nil, fmt.Errorf("invalid log level: %s (must be error, warn, info, or debug)", level)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel})), nil
}
