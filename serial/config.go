package serial

import (
	"fmt"
	"strings"
	"time"
)

// Driver selects the backend used to talk to the device
type Driver int

const (
	DriverTermios Driver = iota // Raw termios via golang.org/x/sys/unix (Linux)
	DriverBugst                 // go.bug.st/serial, portable
)

func (d Driver) String() string {
	switch d {
	case DriverTermios:
		return "termios"
	case DriverBugst:
		return "bugst"
	default:
		return fmt.Sprintf("driver(%d)", int(d))
	}
}

// ParseDriver maps a configuration string onto a Driver
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "termios":
		return DriverTermios, nil
	case "bugst", "go.bug.st":
		return DriverBugst, nil
	default:
		return 0, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, s)
	}
}

// Config holds the configuration for a serial port
type Config struct {
	Driver       Driver
	BaudRate     int
	DataBits     int
	StopBits     int
	Parity       Parity
	FlowControl  FlowControl
	ReadTimeout  time.Duration // used by Read; ReadTimeout() takes its own
	WriteTimeout time.Duration // used by Write; WriteTimeout() takes its own
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns 115200 8N1 with the timeouts the link pipelines expect
func DefaultConfig() Config {
	return Config{
		Driver:       DriverTermios,
		BaudRate:     115200,
		DataBits:     8,
		StopBits:     1,
		Parity:       ParityNone,
		FlowControl:  FlowControlNone,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	}
}

var standardBaudRates = map[int]struct{}{
	50: {}, 75: {}, 110: {}, 134: {}, 150: {}, 200: {}, 300: {}, 600: {},
	1200: {}, 1800: {}, 2400: {}, 4800: {}, 9600: {}, 19200: {}, 38400: {},
	57600: {}, 115200: {}, 230400: {}, 460800: {}, 500000: {}, 576000: {},
	921600: {}, 1000000: {}, 1152000: {}, 1500000: {}, 2000000: {},
	2500000: {}, 3000000: {}, 3500000: {}, 4000000: {},
}

// WithDriver selects the backend
func WithDriver(d Driver) Option {
	return func(c *Config) error {
		if d != DriverTermios && d != DriverBugst {
			return ErrInvalidConfig
		}
		c.Driver = d
		return nil
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, ok := standardBaudRates[rate]; !ok {
			return ErrInvalidBaudRate
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParitySpace {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		c.FlowControl = fc
		return nil
	}
}

// WithReadTimeout sets the timeout used by Read. The termios driver maps it
// onto VTIME, so it must be a multiple of 100ms no larger than 25.5s.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 || timeout > 25500*time.Millisecond {
			return ErrInvalidConfig
		}
		if timeout%(100*time.Millisecond) != 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithWriteTimeout bounds Write; zero blocks until the kernel accepts the data
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 {
			return ErrInvalidConfig
		}
		c.WriteTimeout = timeout
		return nil
	}
}

// ParseParity maps "none", "odd", "even", "mark" or "space" onto a Parity
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	case "mark", "m":
		return ParityMark, nil
	case "space", "s":
		return ParitySpace, nil
	default:
		return 0, fmt.Errorf("%w: unknown parity %q", ErrInvalidConfig, s)
	}
}
