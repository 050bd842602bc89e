package controller

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/calvinmclean/feedarm"
)

// SerialPortNone runs the controller without a device attached
const SerialPortNone = "None"

// ErrNoUSBSerial is returned by GetSerialPorts when no USB serial device is connected
var ErrNoUSBSerial = errors.New("no USB serial ports found")

// GetSerialPorts lists USB serial ports, which is how the feed arm board enumerates
func GetSerialPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}

	var names []string
	for _, port := range ports {
		if port.IsUSB {
			names = append(names, port.Name)
		}
	}
	if len(names) == 0 {
		return nil, ErrNoUSBSerial
	}
	return names, nil
}

// Controller is the host side of the serial link to the feed arm. It forwards console commands to
// the device and copies device output back, recording parsed events along the way
type Controller struct {
	port     io.ReadWriteCloser
	logger   *slog.Logger
	recorder Recorder
	profile  *Profile
	poll     time.Duration

	writeMtx sync.Mutex
}

// Option customizes a Controller
type Option func(*Controller)

// WithRecorder sets the Recorder for parsed events
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithProfile pushes p to the device when Run starts
func WithProfile(p Profile) Option {
	return func(c *Controller) {
		c.profile = &p
	}
}

// WithPollInterval requests a one-line status every d while running
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.poll = d
	}
}

// NewFromEnv creates a Controller using ConfigFromEnv
func NewFromEnv() (*Controller, error) {
	return New(ConfigFromEnv())
}

// New opens the serial port in cfg and loads its profile
func New(cfg Config) (*Controller, error) {
	logger, err := NewLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return nil, err
	}

	baud, err := cfg.baudRate()
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithRecorder(NewLogRecorder(logger)),
		WithPollInterval(cfg.PollInterval),
	}
	if cfg.Profile != "" {
		p, err := LoadProfile(cfg.Profile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithProfile(p))
	}

	portName := cfg.SerialPort
	if portName == "" {
		ports, err := GetSerialPorts()
		if err != nil {
			return nil, err
		}
		portName = ports[0]
	}

	port, err := openPort(portName, baud)
	if err != nil {
		return nil, fmt.Errorf("error opening serial port %s: %w", portName, err)
	}
	logger.Info("connected", "port", portName, "baud", baud)

	return NewWithPort(port, logger, opts...), nil
}

// NewWithPort creates a Controller on an already open port
func NewWithPort(port io.ReadWriteCloser, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		port:     port,
		logger:   logger,
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func openPort(name string, baud int) (io.ReadWriteCloser, error) {
	if name == SerialPortNone {
		return newNonePort(), nil
	}
	return serial.Open(name, &serial.Mode{BaudRate: baud})
}

// Send writes one command line to the device
func (c *Controller) Send(cmd string) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()

	c.logger.Debug("sending command", "command", cmd)
	_, err := io.WriteString(c.port, strings.TrimSpace(cmd)+"\n")
	if err != nil {
		return fmt.Errorf("error writing command: %w", err)
	}
	return nil
}

// Run forwards lines from in to the device and copies device output to out until the device closes
// the connection or ctx is done. Closing in does not stop Run
func (c *Controller) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		c.port.Close()
	}()

	if c.profile != nil {
		c.logger.Info("applying profile", "name", c.profile.Name)
		for _, cmd := range c.profile.Commands() {
			err := c.Send(cmd)
			if err != nil {
				return err
			}
		}
	}

	go c.forward(ctx, in)
	if c.poll > 0 {
		go c.pollStatus(ctx)
	}

	scanner := bufio.NewScanner(c.port)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		_, err := fmt.Fprintln(out, line)
		if err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
		c.record(ctx, line)
	}

	if ctx.Err() != nil {
		return nil
	}
	err := scanner.Err()
	if err != nil {
		return fmt.Errorf("error reading serial: %w", err)
	}
	return nil
}

func (c *Controller) forward(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		err := c.Send(line)
		if err != nil {
			c.logger.Error("error forwarding command", "error", err)
			return
		}
	}
}

func (c *Controller) pollStatus(ctx context.Context) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.Send("q")
			if err != nil {
				c.logger.Error("error polling status", "error", err)
				return
			}
		}
	}
}

func (c *Controller) record(ctx context.Context, line string) {
	now := time.Now()

	if s, ok := feedarm.ParseStatusLine(line); ok {
		err := c.recorder.Status(ctx, s, now)
		if err != nil {
			c.logger.Error("error recording status", "error", err)
		}
		return
	}

	if from, to, ok := feedarm.ParseTransition(line); ok {
		err := c.recorder.Transition(ctx, from, to, now)
		if err != nil {
			c.logger.Error("error recording transition", "error", err)
		}
	}
}

// Close closes the serial port
func (c *Controller) Close() error {
	return c.port.Close()
}

// nonePort stands in for a device when SerialPortNone is selected. Reads block until Close and
// writes are discarded
type nonePort struct {
	closed chan struct{}
	once   sync.Once
}

func newNonePort() *nonePort {
	return &nonePort{closed: make(chan struct{})}
}

func (p *nonePort) Read([]byte) (int, error) {
	<-p.closed
	return 0, io.EOF
}

func (p *nonePort) Write(b []byte) (int, error) {
	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	default:
		return len(b), nil
	}
}

func (p *nonePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
